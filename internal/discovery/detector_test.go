package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/atikulmunna/sharetail/internal/logname"
	"github.com/atikulmunna/sharetail/internal/model"
)

var sentinel = logname.Convention{Prefix: "ACTSentinel", Extension: "log", DateLayout: "20060102"}

func secs(v float64) *float64 { return &v }

func fakeProbe(results map[string]model.ProbeResult) ProbeFunc {
	return func(_ context.Context, path string, _ time.Duration) model.ProbeResult {
		if r, ok := results[path]; ok {
			r.Path = path
			return r
		}
		return model.ProbeResult{Path: path}
	}
}

func TestProbeAllOneResultPerCandidate(t *testing.T) {
	var calls atomic.Int32
	probe := func(_ context.Context, path string, _ time.Duration) model.ProbeResult {
		calls.Add(1)
		switch path {
		case "/panics":
			panic("stat exploded")
		case "/slow":
			time.Sleep(50 * time.Millisecond)
			return model.ProbeResult{Path: path, Error: "timeout"}
		}
		return model.ProbeResult{Path: path, Exists: true, Readable: true, ResponseTime: secs(0.01)}
	}

	d := New(testShare, sentinel, zaptest.NewLogger(t),
		WithCandidates("/a", "/panics", "/slow", "/b"),
		WithProbe(probe),
	)

	results := d.ProbeAll(context.Background(), time.Second)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if calls.Load() != 4 {
		t.Errorf("expected 4 probe calls, got %d", calls.Load())
	}

	for i, want := range []string{"/a", "/panics", "/slow", "/b"} {
		if results[i].Path != want {
			t.Errorf("result %d: expected path %q, got %q", i, want, results[i].Path)
		}
	}
	if results[1].Exists || results[1].Error == "" {
		t.Errorf("panicking probe should be inaccessible with an error, got %+v", results[1])
	}
	if !results[0].Accessible() || !results[3].Accessible() {
		t.Error("sibling probes must not be affected by a panic")
	}
}

func TestProbeAllNoCandidates(t *testing.T) {
	d := New(testShare, sentinel, zaptest.NewLogger(t), WithGOOS("plan9"))
	if got := d.ProbeAll(context.Background(), time.Second); len(got) != 0 {
		t.Errorf("expected no results, got %v", got)
	}
	if _, ok := d.SelectBest(context.Background(), time.Second); ok {
		t.Error("expected not found")
	}
}

func TestSelectBestPrefersLogFilesOverLatency(t *testing.T) {
	d := New(testShare, sentinel, zaptest.NewLogger(t),
		WithCandidates("/fast-empty", "/slow-full"),
		WithProbe(fakeProbe(map[string]model.ProbeResult{
			"/fast-empty": {Exists: true, Readable: true, ResponseTime: secs(0.1)},
			"/slow-full":  {Exists: true, Readable: true, LogFileCount: 3, ResponseTime: secs(2.0)},
		})),
	)

	path, ok := d.SelectBest(context.Background(), time.Second)
	if !ok {
		t.Fatal("expected a path")
	}
	if path != "/slow-full" {
		t.Errorf("expected /slow-full, got %q", path)
	}
}

func TestSelectBestLowestLatencyWithinGroup(t *testing.T) {
	d := New(testShare, sentinel, zaptest.NewLogger(t),
		WithCandidates("/a", "/b", "/c"),
		WithProbe(fakeProbe(map[string]model.ProbeResult{
			"/a": {Exists: true, Readable: true, ResponseTime: secs(0.5)},
			"/b": {Exists: true, Readable: true, ResponseTime: secs(0.2)},
			"/c": {Exists: true, Readable: true, ResponseTime: secs(0.9)},
		})),
	)

	path, _ := d.SelectBest(context.Background(), time.Second)
	if path != "/b" {
		t.Errorf("expected /b, got %q", path)
	}
}

func TestSelectBestNeverReturnsInaccessible(t *testing.T) {
	d := New(testShare, sentinel, zaptest.NewLogger(t),
		WithCandidates("/missing", "/unreadable", "/timeout"),
		WithProbe(fakeProbe(map[string]model.ProbeResult{
			"/missing":    {Exists: false, LogFileCount: 9, ResponseTime: secs(0.001)},
			"/unreadable": {Exists: true, Readable: false, Writable: true, ResponseTime: secs(0.001)},
			"/timeout":    {Error: "timeout", ResponseTime: secs(10)},
		})),
	)

	if path, ok := d.SelectBest(context.Background(), time.Second); ok {
		t.Errorf("expected not found, got %q", path)
	}
}

func TestRankTieKeepsCandidateOrder(t *testing.T) {
	results := []model.ProbeResult{
		{Path: "/first", Exists: true, Readable: true, LogFileCount: 1, ResponseTime: secs(0.3)},
		{Path: "/second", Exists: true, Readable: true, LogFileCount: 5, ResponseTime: secs(0.3)},
	}
	best, ok := Rank(results)
	if !ok || best.Path != "/first" {
		t.Errorf("expected /first on a tie, got %q (ok=%v)", best.Path, ok)
	}
}

func TestRankUnmeasuredIsSlowest(t *testing.T) {
	results := []model.ProbeResult{
		{Path: "/unmeasured", Exists: true, Readable: true},
		{Path: "/measured", Exists: true, Readable: true, ResponseTime: secs(4)},
	}
	best, _ := Rank(results)
	if best.Path != "/measured" {
		t.Errorf("expected /measured, got %q", best.Path)
	}
}

func TestSelectBestRealDirectories(t *testing.T) {
	root := t.TempDir()
	empty := filepath.Join(root, "empty")
	full := filepath.Join(root, "full")
	for _, dir := range []string{empty, full} {
		if err := os.Mkdir(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(full, "ACTSentinel20261017.log"), []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}

	d := New(testShare, sentinel, zaptest.NewLogger(t),
		WithCandidates(filepath.Join(root, "missing"), empty, full),
	)

	path, ok := d.SelectBest(context.Background(), 5*time.Second)
	if !ok {
		t.Fatal("expected a path")
	}
	if path != full {
		t.Errorf("expected %q, got %q", full, path)
	}
}
