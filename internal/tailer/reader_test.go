package tailer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newTestReader(t *testing.T, dir string, opts Options) *Reader {
	t.Helper()
	r := NewReader(dir, sentinel, opts, zaptest.NewLogger(t))
	r.locator.now = func() time.Time { return fixedDay }
	return r
}

func appendTo(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

func TestColdReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want, data := numbered(40)
	writeFile(t, dir, "ACTSentinel20261017.log", data, time.Time{})

	r := newTestReader(t, dir, Options{ChunkSize: 64})
	res := r.ReadLogs(context.Background(), 0, 1000)

	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if !res.HasNewData || res.TotalLines != 40 {
		t.Errorf("expected 40 new lines, got %d (hasNewData=%v)", res.TotalLines, res.HasNewData)
	}
	if strings.Join(res.NewLines, "\n") != strings.Join(want, "\n") {
		t.Error("cold read did not reproduce the file's lines")
	}
	if res.FileName != "ACTSentinel20261017.log" {
		t.Errorf("unexpected file name %q", res.FileName)
	}
	if res.Size != int64(len(data)) {
		t.Errorf("expected size %d, got %d", len(data), res.Size)
	}
	if res.FileStats == nil || res.FileStats.FullPath != filepath.Join(dir, "ACTSentinel20261017.log") {
		t.Errorf("unexpected file stats %+v", res.FileStats)
	}
	if res.SelectedPath != dir {
		t.Errorf("expected selected path %q, got %q", dir, res.SelectedPath)
	}

	st := r.State()
	if st.Offset != int64(len(data)) {
		t.Errorf("expected offset %d, got %d", len(data), st.Offset)
	}
	if st.LastCheckedAt.IsZero() {
		t.Error("expected last check to be stamped")
	}
}

func TestColdReadLastNLines(t *testing.T) {
	dir := t.TempDir()
	all, data := numbered(300)
	writeFile(t, dir, "ACTSentinel20261017.log", data, time.Time{})

	r := newTestReader(t, dir, Options{})
	res := r.ReadLogs(context.Background(), 0, 25)
	if strings.Join(res.NewLines, "\n") != strings.Join(all[275:], "\n") {
		t.Errorf("expected the last 25 lines, got %d lines starting %q", len(res.NewLines), res.NewLines[0])
	}
}

func TestColdReadEmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ACTSentinel20261017.log", "", time.Time{})

	res := newTestReader(t, dir, Options{}).ReadLogs(context.Background(), 0, 100)
	if !res.Success || res.HasNewData || len(res.NewLines) != 0 {
		t.Errorf("expected an empty successful result, got %+v", res)
	}
}

func TestWarmReadStartsAtOffset(t *testing.T) {
	dir := t.TempDir()
	first := strings.Repeat("a", 99) + "\n"
	path := writeFile(t, dir, "ACTSentinel20261017.log", first, time.Time{})

	r := newTestReader(t, dir, Options{})
	res := r.CheckForUpdates(context.Background())
	if res.Size != 100 || r.State().Offset != 100 {
		t.Fatalf("expected size and offset 100, got %d / %d", res.Size, r.State().Offset)
	}

	grown := "b" + strings.Repeat("x", 73) + "\n" + "c" + strings.Repeat("y", 74) + "\n"
	appendTo(t, path, grown)

	res = r.CheckForUpdates(context.Background())
	if res.Size != 250 {
		t.Fatalf("expected size 250, got %d", res.Size)
	}
	want := []string{"b" + strings.Repeat("x", 73), "c" + strings.Repeat("y", 74)}
	if strings.Join(res.NewLines, "|") != strings.Join(want, "|") {
		t.Errorf("expected only the appended bytes, got %q", res.NewLines)
	}
	if r.State().Offset != 250 {
		t.Errorf("expected offset 250, got %d", r.State().Offset)
	}
}

func TestWarmReadPartialLineAtOffset(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ACTSentinel20261017.log", "complete\npart", time.Time{})

	r := newTestReader(t, dir, Options{})
	r.CheckForUpdates(context.Background())

	appendTo(t, path, "ial\nnext\n")
	res := r.CheckForUpdates(context.Background())

	// The remainder of a line cut by the previous read is delivered as is.
	if strings.Join(res.NewLines, "|") != "ial|next" {
		t.Errorf("expected ial|next, got %q", res.NewLines)
	}
}

func TestCheckForUpdatesIdempotent(t *testing.T) {
	dir := t.TempDir()
	_, data := numbered(5)
	writeFile(t, dir, "ACTSentinel20261017.log", data, time.Time{})

	r := newTestReader(t, dir, Options{})
	if res := r.CheckForUpdates(context.Background()); !res.HasNewData {
		t.Fatalf("first check should deliver the tail, got %+v", res)
	}
	res := r.CheckForUpdates(context.Background())
	if !res.Success || res.HasNewData || len(res.NewLines) != 0 {
		t.Errorf("expected no new data, got %+v", res)
	}
}

func TestCheckForUpdatesInitialCap(t *testing.T) {
	dir := t.TempDir()
	all, data := numbered(50)
	writeFile(t, dir, "ACTSentinel20261017.log", data, time.Time{})

	r := newTestReader(t, dir, Options{InitialLines: 10})
	res := r.CheckForUpdates(context.Background())
	if strings.Join(res.NewLines, "\n") != strings.Join(all[40:], "\n") {
		t.Errorf("expected the last 10 lines, got %q", res.NewLines)
	}
}

func TestDeltaCapKeepsMostRecent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ACTSentinel20261017.log", "start\n", time.Time{})

	r := newTestReader(t, dir, Options{UpdateLines: 3, ChunkSize: 16})
	r.CheckForUpdates(context.Background())

	var b strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "new %d\n", i)
	}
	appendTo(t, path, b.String())

	res := r.CheckForUpdates(context.Background())
	if strings.Join(res.NewLines, "|") != "new 7|new 8|new 9" {
		t.Errorf("expected the 3 most recent lines, got %q", res.NewLines)
	}
}

func TestRotationResetsOffset(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ACTSentinel20261017.log", strings.Repeat("old line\n", 100), time.Time{})

	r := newTestReader(t, dir, Options{})
	r.CheckForUpdates(context.Background())
	if r.State().Offset != 900 {
		t.Fatalf("expected offset 900, got %d", r.State().Offset)
	}

	// Midnight: the locator now expects the next day's file.
	r.locator.now = func() time.Time { return fixedDay.Add(24 * time.Hour) }
	writeFile(t, dir, "ACTSentinel20261018.log", "fresh 1\nfresh 2\n", time.Time{})

	res := r.CheckForUpdates(context.Background())
	if res.FileName != "ACTSentinel20261018.log" {
		t.Fatalf("expected the new file, got %q", res.FileName)
	}
	if strings.Join(res.NewLines, "|") != "fresh 1|fresh 2" {
		t.Errorf("expected the new file from the start, got %q", res.NewLines)
	}
	st := r.State()
	if st.CurrentFile != filepath.Join(dir, "ACTSentinel20261018.log") || st.Offset != 16 {
		t.Errorf("unexpected state after rotation: %+v", st)
	}
}

func TestTruncationProducesNothingThenResumes(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ACTSentinel20261017.log", strings.Repeat("line\n", 20), time.Time{})

	r := newTestReader(t, dir, Options{})
	r.CheckForUpdates(context.Background())

	if err := os.WriteFile(path, []byte("short\n"), 0644); err != nil {
		t.Fatal(err)
	}
	res := r.CheckForUpdates(context.Background())
	if !res.Success || res.HasNewData {
		t.Errorf("truncation should yield no data, got %+v", res)
	}
	if r.State().Offset != 6 {
		t.Errorf("expected offset rebased to 6, got %d", r.State().Offset)
	}

	appendTo(t, path, "after\n")
	res = r.CheckForUpdates(context.Background())
	if strings.Join(res.NewLines, "|") != "after" {
		t.Errorf("expected growth after truncation to be read, got %q", res.NewLines)
	}
}

func TestReadLogsWithCallerOffset(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ACTSentinel20261017.log", "one\ntwo\nthree\n", time.Time{})

	r := newTestReader(t, dir, Options{})
	res := r.ReadLogs(context.Background(), 4, 1000)
	if strings.Join(res.NewLines, "|") != "two|three" {
		t.Errorf("expected two|three, got %q", res.NewLines)
	}

	// A caller that is already up to date gets nothing.
	res = r.ReadLogs(context.Background(), res.Size, 1000)
	if !res.Success || res.HasNewData {
		t.Errorf("expected no new data, got %+v", res)
	}

	// A caller offset beyond the file (stale client) gets nothing either.
	res = r.ReadLogs(context.Background(), 10_000, 1000)
	if !res.Success || res.HasNewData {
		t.Errorf("expected no new data for a stale offset, got %+v", res)
	}
}

func TestNoLogFilesIsAFailedResult(t *testing.T) {
	dir := t.TempDir()

	r := newTestReader(t, dir, Options{})
	res := r.CheckForUpdates(context.Background())
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "No log files found") {
		t.Errorf("unexpected error %q", res.Error)
	}
	if res.NewLines == nil {
		t.Error("NewLines should be an empty slice, not nil")
	}
	if r.State().CurrentFile != "" {
		t.Error("state must stay uninitialised")
	}
	if r.State().LastCheckedAt.IsZero() {
		t.Error("a failed locate still counts as a check")
	}
}

func TestMissingDirectoryIsAFailedResult(t *testing.T) {
	r := newTestReader(t, filepath.Join(t.TempDir(), "unmounted"), Options{})
	res := r.ReadLogs(context.Background(), 0, 10)
	if res.Success || res.Error == "" {
		t.Errorf("expected a failed result with a reason, got %+v", res)
	}
}

func TestDeletedFileIsAFailedResult(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ACTSentinel20261017.log", "x\n", time.Time{})

	r := newTestReader(t, dir, Options{})
	r.CheckForUpdates(context.Background())

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	res := r.CheckForUpdates(context.Background())
	if res.Success {
		t.Errorf("expected failure once the log disappears, got %+v", res)
	}
}

func TestReadTimeoutStillAdvancesOffset(t *testing.T) {
	dir := t.TempDir()
	_, data := numbered(50)
	writeFile(t, dir, "ACTSentinel20261017.log", data, time.Time{})

	r := newTestReader(t, dir, Options{ReadTimeout: time.Nanosecond})

	res := r.CheckForUpdates(context.Background())
	if res.Success {
		t.Fatalf("expected the read to time out, got %+v", res)
	}
	if res.Error != "Timeout reading log file" {
		t.Errorf("unexpected error %q", res.Error)
	}
	if res.Size != int64(len(data)) {
		t.Errorf("expected size %d, got %d", len(data), res.Size)
	}
	// At-least-once: the bytes of the failed read are not retried.
	if got := r.State().Offset; got != int64(len(data)) {
		t.Errorf("expected offset %d after a failed read, got %d", len(data), got)
	}

	res = r.CheckForUpdates(context.Background())
	if !res.Success || res.HasNewData {
		t.Errorf("expected a quiet successful check, got %+v", res)
	}
}

func TestExpiredContextLeavesStateUninitialised(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ACTSentinel20261017.log", "one\ntwo\n", time.Time{})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	r := newTestReader(t, dir, Options{})
	for i := 0; i < 20; i++ {
		res := r.ReadLogs(ctx, 0, 10)
		if res.Success || res.Error != "Timeout accessing log files" {
			t.Fatalf("call %d: expected locate timeout, got %+v", i, res)
		}
	}
	st := r.State()
	if st.CurrentFile != "" || st.Offset != 0 {
		t.Errorf("expected untouched tracking state, got %+v", st)
	}
	if st.LastCheckedAt.IsZero() {
		t.Error("expected the attempt to be stamped")
	}
}

func TestWarmTickStatsFileOnce(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ACTSentinel20261017.log", "first\n", time.Time{})

	r := newTestReader(t, dir, Options{})
	var stats atomic.Int32
	r.stat = func(name string) (os.FileInfo, error) {
		stats.Add(1)
		return os.Stat(name)
	}

	r.CheckForUpdates(context.Background())
	if got := stats.Swap(0); got != 1 {
		t.Errorf("cold read: expected 1 stat, got %d", got)
	}

	appendTo(t, path, "second\n")
	res := r.CheckForUpdates(context.Background())
	if !res.HasNewData || res.FileStats == nil || res.FileStats.Size != res.Size {
		t.Fatalf("unexpected warm result %+v", res)
	}
	if got := stats.Swap(0); got != 1 {
		t.Errorf("warm read: expected 1 stat, got %d", got)
	}
}
