// Package discovery finds where the remote log share is mounted on this host.
//
// The local path of a network share depends on the operating system, the
// tool that mounted it (gvfs, cifs, a mapped drive) and the user session.
// Detector enumerates the likely locations, probes them concurrently under a
// timeout and picks the most useful one: a mount that already holds log
// files beats a faster empty one.
package discovery

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/user"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atikulmunna/sharetail/internal/logname"
	"github.com/atikulmunna/sharetail/internal/model"
)

// ProbeFunc tests a single path. It must not return until it has a result.
type ProbeFunc func(ctx context.Context, path string, timeout time.Duration) model.ProbeResult

// Detector runs path discovery for one share.
type Detector struct {
	share  Share
	naming logname.Convention
	goos   string
	env    Env
	log    *zap.Logger

	probe      ProbeFunc
	candidates func() []string

	pingTimeout    time.Duration
	connectTimeout time.Duration
	commands       commandRunner
}

// Option customises a Detector.
type Option func(*Detector)

// WithGOOS overrides the operating system used to generate candidates.
func WithGOOS(goos string) Option {
	return func(d *Detector) { d.goos = goos }
}

// WithEnv overrides the user identity used to generate candidates.
func WithEnv(env Env) Option {
	return func(d *Detector) { d.env = env }
}

// WithCandidates replaces the generated candidate list.
func WithCandidates(paths ...string) Option {
	return func(d *Detector) {
		d.candidates = func() []string { return append([]string(nil), paths...) }
	}
}

// WithProbe replaces the file-system probe.
func WithProbe(fn ProbeFunc) Option {
	return func(d *Detector) { d.probe = fn }
}

// WithConnectivityTimeouts sets the ping and TCP connect deadlines.
func WithConnectivityTimeouts(ping, connect time.Duration) Option {
	return func(d *Detector) {
		d.pingTimeout = ping
		d.connectTimeout = connect
	}
}

// New creates a Detector for share. Log files are recognised by naming.
func New(share Share, naming logname.Convention, log *zap.Logger, opts ...Option) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Detector{
		share:          share,
		naming:         naming,
		goos:           runtime.GOOS,
		env:            currentEnv(),
		log:            log.Named("discovery"),
		pingTimeout:    3 * time.Second,
		connectTimeout: 5 * time.Second,
		commands:       execRunner{},
	}
	d.probe = d.Probe
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Server returns the address of the file-sharing server.
func (d *Detector) Server() string { return d.share.Server }

// ListCandidates returns the paths that will be probed, most likely first.
func (d *Detector) ListCandidates() []string {
	if d.candidates != nil {
		return d.candidates()
	}
	paths := Candidates(d.goos, d.share, d.env)
	if len(paths) == 0 {
		d.log.Warn("no mount candidates for operating system", zap.String("os", d.goos))
	}
	return paths
}

// ProbeAll probes every candidate concurrently and returns one result per
// candidate, in candidate order. A probe that panics is recorded as an
// inaccessible path; it never affects the other probes.
func (d *Detector) ProbeAll(ctx context.Context, timeout time.Duration) []model.ProbeResult {
	paths := d.ListCandidates()
	if len(paths) == 0 {
		return nil
	}

	d.log.Info("testing potential share paths", zap.Int("count", len(paths)))

	results := make([]model.ProbeResult, len(paths))
	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					d.log.Error("probe panicked", zap.String("path", p), zap.Any("panic", r))
					results[i] = model.ProbeResult{Path: p, Error: fmt.Sprint(r)}
				}
			}()
			results[i] = d.probe(ctx, p, timeout)
		}(i, p)
	}
	wg.Wait()

	return results
}

// SelectBest probes all candidates and returns the most useful accessible
// path. ok is false when no candidate exists and is readable.
func (d *Detector) SelectBest(ctx context.Context, timeout time.Duration) (path string, ok bool) {
	best, ok := Rank(d.ProbeAll(ctx, timeout))
	if !ok {
		d.log.Error("no accessible share path found")
		return "", false
	}

	d.log.Info("selected share path",
		zap.String("path", best.Path),
		zap.Int("log_files", best.LogFileCount),
		zap.Float64("response_seconds", responseTime(best)),
	)
	return best.Path, true
}

// Rank picks the best accessible result: among paths that exist and are
// readable, those holding log files win, then the lowest response time, then
// the earliest candidate.
func Rank(results []model.ProbeResult) (model.ProbeResult, bool) {
	var withLogs, accessible []model.ProbeResult
	for _, r := range results {
		if !r.Accessible() {
			continue
		}
		accessible = append(accessible, r)
		if r.LogFileCount > 0 {
			withLogs = append(withLogs, r)
		}
	}
	if len(accessible) == 0 {
		return model.ProbeResult{}, false
	}

	group := accessible
	if len(withLogs) > 0 {
		group = withLogs
	}

	best := group[0]
	for _, r := range group[1:] {
		// Strict less-than keeps the earlier candidate on ties.
		if responseTime(r) < responseTime(best) {
			best = r
		}
	}
	return best, true
}

// responseTime treats an unmeasured probe as infinitely slow.
func responseTime(r model.ProbeResult) float64 {
	if r.ResponseTime == nil {
		return math.Inf(1)
	}
	return *r.ResponseTime
}

func currentEnv() Env {
	env := Env{UID: os.Getuid(), User: os.Getenv("USER")}
	if env.User == "" {
		if u, err := user.Current(); err == nil {
			env.User = u.Username
		}
	}
	return env
}
