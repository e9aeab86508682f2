package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"error":   slog.LevelError,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"info":    slog.LevelInfo,
		"":        slog.LevelDebug,
		"trace":   slog.LevelDebug,
	}
	for in, want := range tests {
		if got := levelFromString(in); got != want {
			t.Errorf("levelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFanoutWritesBothHandlers(t *testing.T) {
	t.Parallel()

	var console, file bytes.Buffer
	logger := newFanout(&console, &file, slog.LevelInfo)
	logger.With("component", "pipeline").Info("document processed", "document_id", "doc-1")
	logger.Debug("dropped")

	if !strings.Contains(console.String(), "component=pipeline") {
		t.Fatalf("console missing record: %q", console.String())
	}
	var rec map[string]any
	if err := json.Unmarshal(file.Bytes(), &rec); err != nil {
		t.Fatalf("file record is not a single json line: %v (%q)", err, file.String())
	}
	if rec["document_id"] != "doc-1" || rec["msg"] != "document processed" {
		t.Fatalf("unexpected file record %v", rec)
	}
}

func TestNewWithFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	logger, closer, err := NewWithFile("info", path)
	if err != nil {
		t.Fatalf("NewWithFile: %v", err)
	}
	logger.Info("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"hello"`) {
		t.Fatalf("unexpected log file %q", raw)
	}
}
