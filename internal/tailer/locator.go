package tailer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/atikulmunna/sharetail/internal/bounded"
	"github.com/atikulmunna/sharetail/internal/logname"
)

// ErrNoLogFile means the directory holds no file of the naming convention.
// It is an expected state (nothing logged yet), not a fault.
var ErrNoLogFile = errors.New("no log files found")

// Locator finds the log file currently being written in a directory.
type Locator struct {
	dir     string
	naming  logname.Convention
	timeout time.Duration
	now     func() time.Time
}

// NewLocator creates a Locator for dir. Each Locate call is bounded by timeout.
func NewLocator(dir string, naming logname.Convention, timeout time.Duration) *Locator {
	return &Locator{dir: dir, naming: naming, timeout: timeout, now: time.Now}
}

// Dir returns the directory being searched.
func (l *Locator) Dir() string { return l.dir }

// Locate returns today's log file if it exists, otherwise the matching file
// with the newest modification time. It returns ErrNoLogFile when nothing
// matches.
func (l *Locator) Locate(ctx context.Context) (string, error) {
	path, err := bounded.Do(ctx, l.timeout, l.locate)
	if err != nil {
		if errors.Is(err, ErrNoLogFile) {
			return "", err
		}
		return "", fmt.Errorf("locate log file in %s: %w", l.dir, err)
	}
	return path, nil
}

func (l *Locator) locate() (string, error) {
	today := filepath.Join(l.dir, l.naming.ForDate(l.now()))
	if info, err := os.Stat(today); err == nil && !info.IsDir() {
		return today, nil
	}
	return l.mostRecent()
}

// mostRecent picks the newest matching file. Files whose modification time
// cannot be read sort as oldest rather than being skipped.
func (l *Locator) mostRecent() (string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return "", err
	}

	var (
		best      string
		bestMtime int64 = -1
	)
	for _, e := range entries {
		if e.IsDir() || !l.naming.Match(e.Name()) {
			continue
		}
		var mtime int64
		if info, err := e.Info(); err == nil {
			mtime = info.ModTime().UnixNano()
		}
		if mtime > bestMtime {
			best, bestMtime = e.Name(), mtime
		}
	}
	if best == "" {
		return "", ErrNoLogFile
	}
	return filepath.Join(l.dir, best), nil
}
