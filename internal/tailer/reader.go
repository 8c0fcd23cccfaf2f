// Package tailer reads the tail of a date-stamped log file on a slow,
// possibly unreliable mount and turns file growth into line deltas.
//
// A Reader starts with no file. The first read locates the current log file
// and scans it backwards for the last N lines (a cold read). Later reads use
// the byte offset remembered from the previous read and return only the
// appended lines (a warm read). When the locator reports a different file,
// e.g. after midnight, tracking restarts from offset 0.
//
// The offset always advances to the size observed at the start of a read,
// even when the read then fails. A transient error can therefore skip or
// repeat part of a line; delivery is at-least-once, best effort.
package tailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atikulmunna/sharetail/internal/bounded"
	"github.com/atikulmunna/sharetail/internal/logname"
	"github.com/atikulmunna/sharetail/internal/model"
)

// DefaultChunkSize is the block size of the backwards scan.
const DefaultChunkSize = 8 * 1024

// Options tunes a Reader. Zero values take the defaults.
type Options struct {
	ReadTimeout   time.Duration // whole cold or warm read (30s)
	StatTimeout   time.Duration // single stat or open (10s)
	LocateTimeout time.Duration // finding the current file (15s)
	ChunkSize     int64
	InitialLines  int // cap of the first background read (100)
	UpdateLines   int // cap of later background reads (500)
	Decoder       *Decoder
}

func (o Options) withDefaults() Options {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 30 * time.Second
	}
	if o.StatTimeout <= 0 {
		o.StatTimeout = 10 * time.Second
	}
	if o.LocateTimeout <= 0 {
		o.LocateTimeout = 15 * time.Second
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.InitialLines <= 0 {
		o.InitialLines = 100
	}
	if o.UpdateLines <= 0 {
		o.UpdateLines = 500
	}
	if o.Decoder == nil {
		o.Decoder, _ = NewDecoder("")
	}
	return o
}

// State is the tracking state of a Reader.
type State struct {
	Directory     string
	CurrentFile   string // empty until the first successful locate
	Offset        int64
	LastCheckedAt time.Time
}

// Reader tails the log files of one directory. Reads are serialised: the
// background poller and on-demand requests may share a Reader.
type Reader struct {
	readMu  sync.Mutex // one read in flight
	mu      sync.RWMutex
	state   State
	locator *Locator
	opts    Options
	log     *zap.Logger
	now     func() time.Time
	stat    func(name string) (os.FileInfo, error)
}

// NewReader creates a Reader for the log files of dir.
func NewReader(dir string, naming logname.Convention, opts Options, log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Reader{
		state:   State{Directory: dir},
		locator: NewLocator(dir, naming, opts.LocateTimeout),
		opts:    opts,
		log:     log.Named("tailer").With(zap.String("dir", dir)),
		now:     time.Now,
		stat:    os.Stat,
	}
}

// State returns a copy of the current tracking state.
func (r *Reader) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// ReadLogs reads the current log file relative to lastSize, a byte offset
// supplied by the caller. lastSize 0 returns the last maxLines lines; a
// smaller file size than lastSize returns no lines.
func (r *Reader) ReadLogs(ctx context.Context, lastSize int64, maxLines int) model.DeltaResult {
	r.readMu.Lock()
	defer r.readMu.Unlock()

	file, res, ok := r.locate(ctx)
	if !ok {
		return res
	}
	return r.statAndRead(ctx, file, lastSize, maxLines)
}

// CheckForUpdates reads whatever was appended since the previous call. The
// first call, and the first call after the file changes, return the tail of
// the file instead.
func (r *Reader) CheckForUpdates(ctx context.Context) model.DeltaResult {
	r.readMu.Lock()
	defer r.readMu.Unlock()

	prev := r.State()
	if prev.CurrentFile == "" {
		return r.readInitial(ctx)
	}

	file, res, ok := r.locate(ctx)
	if !ok {
		return res
	}
	if file != prev.CurrentFile {
		r.log.Info("log file changed",
			zap.String("from", filepath.Base(prev.CurrentFile)),
			zap.String("to", filepath.Base(file)),
		)
		return r.statAndRead(ctx, file, 0, r.opts.UpdateLines)
	}

	info, err := r.statFile(ctx, file)
	if err != nil {
		return r.statFailure(file, err)
	}
	size := info.Size()

	switch {
	case size > prev.Offset:
		return r.read(ctx, file, info, prev.Offset, r.opts.UpdateLines)
	case size < prev.Offset:
		// Truncated in place: nothing to deliver, continue from the new end.
		r.log.Warn("log file shrank", zap.Int64("from", prev.Offset), zap.Int64("to", size))
		r.commit(file, size)
	default:
		r.touch()
	}

	return model.DeltaResult{
		Success:      true,
		FileName:     filepath.Base(file),
		Size:         size,
		NewLines:     []string{},
		SelectedPath: r.locator.Dir(),
		Timestamp:    r.now(),
	}
}

func (r *Reader) readInitial(ctx context.Context) model.DeltaResult {
	file, res, ok := r.locate(ctx)
	if !ok {
		return res
	}
	return r.statAndRead(ctx, file, 0, r.opts.InitialLines)
}

// locate resolves the current file, converting failures into a result. A
// failure still counts as a check.
func (r *Reader) locate(ctx context.Context) (string, model.DeltaResult, bool) {
	file, err := r.locator.Locate(ctx)
	if err == nil {
		return file, model.DeltaResult{}, true
	}
	r.touch()
	switch {
	case errors.Is(err, ErrNoLogFile):
		r.log.Warn("no log files found")
		return "", r.failure(fmt.Sprintf("No log files found in %s", r.locator.Dir())), false
	case bounded.IsTimeout(err):
		r.log.Error("timeout locating log file")
		return "", r.failure("Timeout accessing log files"), false
	default:
		r.log.Error("error finding log file", zap.Error(err))
		return "", r.failure(err.Error()), false
	}
}

func (r *Reader) statAndRead(ctx context.Context, file string, lastSize int64, maxLines int) model.DeltaResult {
	info, err := r.statFile(ctx, file)
	if err != nil {
		return r.statFailure(file, err)
	}
	return r.read(ctx, file, info, lastSize, maxLines)
}

// read performs a cold (lastSize == 0) or warm read of file, whose size was
// observed as info, and records that size as the new offset.
func (r *Reader) read(ctx context.Context, file string, info os.FileInfo, lastSize int64, maxLines int) model.DeltaResult {
	size := info.Size()

	var (
		lines   []string
		readErr error
	)
	switch {
	case lastSize == 0:
		r.log.Info("reading last lines", zap.String("file", filepath.Base(file)), zap.Int("max_lines", maxLines))
		lines, readErr = r.readRange(ctx, file, 0, size, maxLines)
	case size > lastSize:
		r.log.Debug("file grew", zap.Int64("from", lastSize), zap.Int64("to", size))
		lines, readErr = r.readRange(ctx, file, lastSize, size, maxLines)
	}

	r.commit(file, size)

	if readErr != nil {
		r.log.Error("error reading log file", zap.String("file", file), zap.Error(readErr))
		res := r.failure(describeReadError(readErr))
		res.FileName = filepath.Base(file)
		res.Size = size
		return res
	}
	if lines == nil {
		lines = []string{}
	}
	stats := &model.FileStats{
		Size:     size,
		Modified: info.ModTime(),
		Readable: true,
		FullPath: file,
	}

	return model.DeltaResult{
		Success:      true,
		FileName:     filepath.Base(file),
		Size:         size,
		HasNewData:   len(lines) > 0,
		NewLines:     lines,
		TotalLines:   len(lines),
		SelectedPath: r.locator.Dir(),
		Timestamp:    r.now(),
		FileStats:    stats,
	}
}

// readRange returns the last maxLines non-blank lines of bytes [from, to).
// With from == 0 this is the cold tail of the file; otherwise it is the
// delta appended since from, truncated from the front.
func (r *Reader) readRange(ctx context.Context, file string, from, to int64, maxLines int) ([]string, error) {
	if to <= from || maxLines <= 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.ReadTimeout)
	defer cancel()

	f, err := bounded.Do(ctx, r.opts.StatTimeout, func() (*os.File, error) { return os.Open(file) })
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return tailLines(ctx, io.NewSectionReader(f, from, to-from), maxLines, r.opts.ChunkSize, r.opts.Decoder)
}

func (r *Reader) statFailure(file string, err error) model.DeltaResult {
	r.log.Error("cannot stat log file", zap.String("file", file), zap.Error(err))
	r.touch()
	return r.failure(fmt.Sprintf("Cannot access file %s: %v", file, err))
}

// statFile is the one stat of the log file per read.
func (r *Reader) statFile(ctx context.Context, file string) (os.FileInfo, error) {
	return bounded.Do(ctx, r.opts.StatTimeout, func() (os.FileInfo, error) { return r.stat(file) })
}

// commit records file and size as the tracking position. A new file starts
// from its own size; the previous file's offset is discarded.
func (r *Reader) commit(file string, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.CurrentFile = file
	r.state.Offset = size
	r.state.LastCheckedAt = r.now()
}

func (r *Reader) touch() {
	r.mu.Lock()
	r.state.LastCheckedAt = r.now()
	r.mu.Unlock()
}

func (r *Reader) failure(msg string) model.DeltaResult {
	return model.DeltaResult{
		Success:      false,
		Error:        msg,
		NewLines:     []string{},
		SelectedPath: r.locator.Dir(),
		Timestamp:    r.now(),
	}
}

func describeReadError(err error) string {
	if bounded.IsTimeout(err) {
		return "Timeout reading log file"
	}
	return fmt.Sprintf("Error reading log file: %v", err)
}
