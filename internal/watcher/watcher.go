// Package watcher turns file-system notifications for a log directory into
// wake-up hints. Network file systems often deliver no events at all, so the
// hints only shorten the poll interval; nothing depends on them.
package watcher

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/atikulmunna/sharetail/internal/logname"
)

// Watcher monitors directories and signals when a log file changes.
type Watcher struct {
	fsw    *fsnotify.Watcher
	naming logname.Convention
	wake   chan struct{}
	log    *zap.Logger

	mu    sync.Mutex
	paths []string
}

// New creates a Watcher for files of the given naming convention.
func New(naming logname.Convention, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		fsw:    fsw,
		naming: naming,
		wake:   make(chan struct{}, 1),
		log:    log.Named("watcher"),
	}, nil
}

// Wake delivers at most one pending hint at a time.
func (w *Watcher) Wake() <-chan struct{} { return w.wake }

// Add starts watching dir. A failure is logged and returned; polling works
// without it.
func (w *Watcher) Add(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	if err := w.fsw.Add(abs); err != nil {
		w.log.Warn("cannot watch directory, relying on polling", zap.String("dir", abs), zap.Error(err))
		return err
	}
	w.mu.Lock()
	w.paths = append(w.paths, abs)
	w.mu.Unlock()
	w.log.Info("watching directory", zap.String("dir", abs))
	return nil
}

// Paths returns the directories currently being watched.
func (w *Watcher) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.paths...)
}

// Start forwards relevant events as hints. It blocks until the context is
// cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Forward relevant events (write, create, remove, rename).
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !w.naming.Match(filepath.Base(ev.Name)) {
				continue
			}
			w.signal()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}
