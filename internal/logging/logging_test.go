package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestFileLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tonegen.log")

	logger, cleanup, err := New(Options{File: path})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("stream started", zap.String("backend", "null"))
	logger.Debug("hidden at info level")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "stream started" || entry["backend"] != "null" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestConsoleMirror(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "tonegen.log")

	logger, cleanup, err := New(Options{File: path, Console: true, Debug: true, Stdout: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("negotiated", zap.String("format", "f32"))
	cleanup()

	if !strings.Contains(buf.String(), "negotiated") || !strings.Contains(buf.String(), "f32") {
		t.Errorf("console output missing entry: %q", buf.String())
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "negotiated") {
		t.Errorf("file missing debug entry: %q", data)
	}
}

func TestNoSinksIsNop(t *testing.T) {
	logger, cleanup, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	logger.Info("dropped")
}

func TestBadLogPath(t *testing.T) {
	if _, _, err := New(Options{File: filepath.Join(t.TempDir(), "missing", "x.log")}); err == nil {
		t.Error("expected error for unwritable log path")
	}
}
