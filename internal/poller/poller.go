// Package poller drives a tail reader on a fixed schedule and hands every
// batch of new lines to a sink.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atikulmunna/sharetail/internal/model"
	"github.com/atikulmunna/sharetail/internal/tailer"
)

// ErrNoShare is returned by a Resolver when no accessible share path exists.
var ErrNoShare = errors.New("no accessible share path found")

// Resolver produces the reader to poll. It is called again on every tick
// until it succeeds.
type Resolver func(ctx context.Context) (*tailer.Reader, error)

// Sink receives update events. Publish must not block for long.
type Sink interface {
	Publish(ev model.UpdateEvent)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev model.UpdateEvent)

func (f SinkFunc) Publish(ev model.UpdateEvent) { f(ev) }

// Options tunes a Coordinator. Zero durations take the defaults.
type Options struct {
	Interval      time.Duration   // sleep after a successful tick (2s)
	ErrorInterval time.Duration   // sleep after a failed tick (5s)
	Wake          <-chan struct{} // optional; a receive ends the current sleep early

	// OnReader, if set, is called once with the first resolved reader.
	OnReader func(r *tailer.Reader)
}

// Stats counts what the loop has done so far.
type Stats struct {
	Ticks     int64     `json:"ticks"`
	Errors    int64     `json:"errors"`
	Updates   int64     `json:"updates"`
	LastError string    `json:"last_error,omitempty"`
	LastTick  time.Time `json:"last_tick"`
}

// Coordinator owns the current reader and the polling loop.
type Coordinator struct {
	resolve Resolver
	sink    Sink
	opts    Options
	log     *zap.Logger

	mu     sync.Mutex
	reader *tailer.Reader
	stats  Stats
}

// New creates a Coordinator. Run starts it.
func New(resolve Resolver, sink Sink, opts Options, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.ErrorInterval <= 0 {
		opts.ErrorInterval = 5 * time.Second
	}
	return &Coordinator{
		resolve: resolve,
		sink:    sink,
		opts:    opts,
		log:     log.Named("poller"),
	}
}

// Reader returns the current reader, resolving one first if needed. The
// coordinator lock is not held while the resolver runs; if two callers
// resolve at once the first stored reader wins.
func (c *Coordinator) Reader(ctx context.Context) (*tailer.Reader, error) {
	c.mu.Lock()
	r := c.reader
	c.mu.Unlock()
	if r != nil {
		return r, nil
	}

	r, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	stored := c.reader == nil
	if stored {
		c.reader = r
	}
	r = c.reader
	c.mu.Unlock()

	if stored {
		c.log.Info("log reader initialized", zap.String("dir", r.State().Directory))
		if c.opts.OnReader != nil {
			c.opts.OnReader(r)
		}
	}
	return r, nil
}

// Current returns the reader without resolving. It is nil until the first
// successful resolve.
func (c *Coordinator) Current() *tailer.Reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reader
}

// Stats returns a copy of the loop counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Run polls until ctx is cancelled. A failing tick is logged and followed by
// the longer error interval; it never ends the loop.
func (c *Coordinator) Run(ctx context.Context) {
	c.log.Info("log monitoring started",
		zap.Duration("interval", c.opts.Interval),
		zap.Duration("error_interval", c.opts.ErrorInterval),
	)
	defer c.log.Info("log monitoring stopped")

	for ctx.Err() == nil {
		delay := c.opts.Interval
		if err := c.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("error in log monitoring", zap.Error(err))
			delay = c.opts.ErrorInterval
		}
		if !c.sleep(ctx, delay) {
			return
		}
	}
}

// Tick performs one poll: resolve the reader if needed, check for updates and
// publish an event when there are new lines. Panics are returned as errors.
func (c *Coordinator) Tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll panicked: %v", r)
		}
		c.record(err)
	}()

	reader, err := c.Reader(ctx)
	if err != nil {
		return err
	}

	res := reader.CheckForUpdates(ctx)
	if !res.Success {
		return errors.New(res.Error)
	}
	if !res.HasNewData {
		return nil
	}

	c.log.Debug("new log lines", zap.String("file", res.FileName), zap.Int("lines", len(res.NewLines)))
	c.sink.Publish(model.NewUpdateEvent(res))

	c.mu.Lock()
	c.stats.Updates++
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) record(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Ticks++
	c.stats.LastTick = time.Now()
	if err != nil {
		c.stats.Errors++
		c.stats.LastError = err.Error()
	}
}

// sleep waits for d, a wake signal or cancellation. It reports false when
// ctx is done.
func (c *Coordinator) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
	case <-c.opts.Wake:
		c.log.Debug("woken by file event")
	}
	return true
}
