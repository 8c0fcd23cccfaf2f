package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/atikulmunna/sharetail/internal/model"
)

const rateWindow = 5 * time.Second

// Stats holds a point-in-time snapshot of aggregated metrics.
type Stats struct {
	Uptime      string    `json:"uptime"`
	Updates     int64     `json:"updates"`
	TotalLines  int64     `json:"total_lines"`
	LPS         float64   `json:"lines_per_sec"`
	Clients     int       `json:"clients"`
	Dropped     int64     `json:"dropped_updates"`
	CurrentFile string    `json:"current_file,omitempty"`
	LastUpdate  time.Time `json:"last_update,omitempty"`
}

type sample struct {
	at    time.Time
	lines int
}

// Aggregator subscribes to the Hub and computes time-windowed metrics.
type Aggregator struct {
	mu          sync.RWMutex
	startTime   time.Time
	updates     int64
	totalLines  int64
	currentFile string
	lastUpdate  time.Time
	window      []sample // last 5 seconds of updates, for LPS
	dropped     func() int64
	clients     func() int
	events      <-chan model.UpdateEvent
	now         func() time.Time
}

// New creates an Aggregator that reads from the given Hub subscriber channel.
// droppedFn and clientsFn provide live values from the Hub.
func New(events <-chan model.UpdateEvent, droppedFn func() int64, clientsFn func() int) *Aggregator {
	return &Aggregator{
		startTime: time.Now(),
		dropped:   droppedFn,
		clients:   clientsFn,
		events:    events,
		now:       time.Now,
	}
}

// Snapshot returns the current metrics.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	cutoff := a.now().Add(-rateWindow)
	var recent int
	for _, s := range a.window {
		if s.at.After(cutoff) {
			recent += s.lines
		}
	}

	return Stats{
		Uptime:      a.now().Sub(a.startTime).Truncate(time.Second).String(),
		Updates:     a.updates,
		TotalLines:  a.totalLines,
		LPS:         float64(recent) / rateWindow.Seconds(),
		Clients:     a.clients(),
		Dropped:     a.dropped(),
		CurrentFile: a.currentFile,
		LastUpdate:  a.lastUpdate,
	}
}

// Start begins consuming events and updating metrics. Blocks until context is
// cancelled or the subscription is closed.
func (a *Aggregator) Start(ctx context.Context) {
	// Periodically prune the sliding window.
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.events:
			if !ok {
				return
			}
			a.record(ev)
		case <-ticker.C:
			a.prune()
		}
	}
}

func (a *Aggregator) record(ev model.UpdateEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(ev.Data.NewLines)
	a.updates++
	a.totalLines += int64(n)
	a.currentFile = ev.Data.FileName
	a.lastUpdate = a.now()
	a.window = append(a.window, sample{at: a.lastUpdate, lines: n})
}

// prune removes samples older than the rate window.
func (a *Aggregator) prune() {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.now().Add(-rateWindow)
	i := 0
	for _, s := range a.window {
		if s.at.After(cutoff) {
			a.window[i] = s
			i++
		}
	}
	a.window = a.window[:i]
}
