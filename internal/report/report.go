// Package report collects and prints the share diagnostics shown by
// `sharetail diagnose`.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/atikulmunna/sharetail/internal/bounded"
	"github.com/atikulmunna/sharetail/internal/discovery"
	"github.com/atikulmunna/sharetail/internal/logname"
	"github.com/atikulmunna/sharetail/internal/model"
	"github.com/atikulmunna/sharetail/internal/tailer"
)

// Diagnoser is the discovery surface a report needs. *discovery.Detector
// implements it.
type Diagnoser interface {
	ProbeAll(ctx context.Context, timeout time.Duration) []model.ProbeResult
	CheckConnectivity(ctx context.Context) model.Connectivity
}

// LogFile describes the file the viewer would tail.
type LogFile struct {
	Path     string
	Size     int64
	Modified time.Time
}

// Report is one diagnostic run.
type Report struct {
	GeneratedAt  time.Time
	OS           string
	Arch         string
	User         string
	UID          int
	Connectivity model.Connectivity
	Probes       []model.ProbeResult
	Selected     string // empty when nothing is accessible
	LogFile      *LogFile
	LogErr       string
}

// Options bounds the checks of a report.
type Options struct {
	ProbeTimeout  time.Duration
	LocateTimeout time.Duration
	Naming        logname.Convention
}

// Collect runs connectivity checks, probes every candidate and locates the
// current log file in the selected path. It never fails; problems end up in
// the report.
func Collect(ctx context.Context, d Diagnoser, opts Options) Report {
	r := Report{
		GeneratedAt: time.Now(),
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		User:        os.Getenv("USER"),
		UID:         os.Getuid(),
	}

	r.Connectivity = d.CheckConnectivity(ctx)
	r.Probes = d.ProbeAll(ctx, opts.ProbeTimeout)

	best, ok := discovery.Rank(r.Probes)
	if !ok {
		return r
	}
	r.Selected = best.Path

	loc := tailer.NewLocator(best.Path, opts.Naming, opts.LocateTimeout)
	path, err := loc.Locate(ctx)
	if err != nil {
		r.LogErr = err.Error()
		return r
	}
	r.LogFile = &LogFile{Path: path}
	info, err := bounded.Do(ctx, opts.LocateTimeout, func() (os.FileInfo, error) { return statFile(path) })
	if err != nil {
		r.LogErr = err.Error()
		return r
	}
	r.LogFile.Size = info.Size()
	r.LogFile.Modified = info.ModTime()
	return r
}

// statFile is replaceable in tests.
var statFile = os.Stat

// Print writes r as a set of tables.
func Print(w io.Writer, r Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "sharetail diagnostics (%s)\n\n", r.GeneratedAt.Format(time.RFC1123))

	b.WriteString(renderTable(
		[]string{"System", ""},
		[][]string{
			{"OS", r.OS + "/" + r.Arch},
			{"User", fmt.Sprintf("%s (uid %d)", r.User, r.UID)},
		}, nil))
	b.WriteString("\n\n")

	conn := [][]string{
		{"Server", r.Connectivity.Server},
		{"Ping", yesNo(r.Connectivity.PingOK)},
		{"SMB port", yesNo(r.Connectivity.PortOpen)},
	}
	if r.OS == "linux" {
		conn = append(conn, []string{"gvfs running", yesNo(r.Connectivity.MountServiceRunning)})
	}
	b.WriteString(renderTable([]string{"Connectivity", ""}, conn, nil))
	b.WriteString("\n\n")

	rows := make([][]string, 0, len(r.Probes))
	for _, p := range r.Probes {
		rows = append(rows, []string{
			p.Path,
			yesNo(p.Exists),
			yesNo(p.Readable),
			yesNo(p.Writable),
			strconv.Itoa(p.LogFileCount),
			latency(p.ResponseTime),
			p.Error,
		})
	}
	b.WriteString(renderTable(
		[]string{"Path", "Exists", "Read", "Write", "Logs", "Time", "Error"},
		rows,
		[]text.Align{text.AlignLeft, text.AlignCenter, text.AlignCenter, text.AlignCenter, text.AlignRight, text.AlignRight, text.AlignLeft},
	))
	b.WriteString("\n\n")

	switch {
	case r.Selected == "":
		b.WriteString("No accessible share path found.\n")
	case r.LogFile != nil && r.LogErr == "":
		fmt.Fprintf(&b, "Selected path: %s\nLog file:      %s (%s, modified %s)\n",
			r.Selected,
			filepath.Base(r.LogFile.Path),
			humanize.IBytes(uint64(r.LogFile.Size)),
			humanize.Time(r.LogFile.Modified),
		)
	case r.LogFile != nil:
		fmt.Fprintf(&b, "Selected path: %s\nLog file:      %s (stat failed: %s)\n",
			r.Selected, filepath.Base(r.LogFile.Path), r.LogErr)
	default:
		fmt.Fprintf(&b, "Selected path: %s\nLog file:      none (%s)\n", r.Selected, r.LogErr)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(aligns))
	for i, a := range aligns {
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: a, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func latency(s *float64) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.3fs", *s)
}
