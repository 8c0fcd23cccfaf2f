package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "sharetail.log")

	var console bytes.Buffer
	log, err := New(Config{Level: "info", FilePath: path, Console: &console})
	if err != nil {
		t.Fatal(err)
	}

	log.Named("tailer").Info("file located")
	log.Debug("hidden at info level")
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(console.String(), "file located") {
		t.Errorf("expected console output, got %q", console.String())
	}
	if strings.Contains(console.String(), "hidden at info level") {
		t.Error("debug entry should be filtered at info level")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(raw), &entry); err != nil {
		t.Fatalf("file sink should write JSON: %v\nraw: %s", err, raw)
	}
	if entry["msg"] != "file located" {
		t.Errorf("expected msg 'file located', got %v", entry["msg"])
	}
	if entry["logger"] != "tailer" {
		t.Errorf("expected logger name tailer, got %v", entry["logger"])
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var console bytes.Buffer
	log, err := New(Config{Level: "loud", Console: &console})
	if err != nil {
		t.Fatal(err)
	}
	log.Info("visible")
	log.Debug("invisible")
	_ = log.Close()

	if !strings.Contains(console.String(), "visible") || strings.Contains(console.String(), "invisible") {
		t.Errorf("unexpected console output: %q", console.String())
	}
}
