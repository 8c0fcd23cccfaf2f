package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/atikulmunna/sharetail/internal/model"
)

func sampleResult() model.DeltaResult {
	return model.DeltaResult{
		Success:    true,
		FileName:   "ACTSentinel20261017.log",
		Size:       42,
		HasNewData: true,
		NewLines:   []string{"2026-10-17 12:00:00 started", "2026-10-17 12:00:01 ready"},
		TotalLines: 2,
		Timestamp:  time.Date(2026, 10, 17, 12, 0, 2, 0, time.UTC),
	}
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	renderer := &JSONRenderer{enc: json.NewEncoder(&buf)}

	if err := renderer.Render(sampleResult()); err != nil {
		t.Fatal(err)
	}

	// Parse the output JSON.
	var got struct {
		Type string `json:"type"`
		Data struct {
			Filename string   `json:"filename"`
			NewLines []string `json:"newLines"`
		} `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\nraw: %s", err, buf.String())
	}

	if got.Type != "log_update" {
		t.Errorf("expected type log_update, got %s", got.Type)
	}
	if got.Data.Filename != "ACTSentinel20261017.log" {
		t.Errorf("unexpected filename %q", got.Data.Filename)
	}
	if len(got.Data.NewLines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(got.Data.NewLines))
	}
}

func TestTextRendererOneRowPerLine(t *testing.T) {
	var buf bytes.Buffer
	r := &TextRenderer{w: &buf}

	if err := r.Render(sampleResult()); err != nil {
		t.Fatal(err)
	}

	rows := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %q", len(rows), buf.String())
	}
	if !strings.Contains(rows[1], "12:00:01 ready") || !strings.Contains(rows[1], "ACTSentinel20261017.log") {
		t.Errorf("unexpected row %q", rows[1])
	}
}

func TestTextRendererError(t *testing.T) {
	var buf bytes.Buffer
	r := &TextRenderer{w: &buf}

	res := model.DeltaResult{Success: false, Error: "Timeout reading log file", Timestamp: time.Now()}
	if err := r.Render(res); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Timeout reading log file") {
		t.Errorf("error not rendered: %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New("xml", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown format")
	}
	if r, err := New("json", &bytes.Buffer{}); err != nil || r == nil {
		t.Errorf("json renderer: %v", err)
	}
}
