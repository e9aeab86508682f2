package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// New creates a console slog.Logger with provided level string.
func New(level string) *slog.Logger {
	return slog.New(consoleHandler(os.Stdout, levelFromString(level)))
}

// NewWithFile fans records out to the console and, when path is set, to a JSON
// file. The returned closer releases the file.
func NewWithFile(level, path string) (*slog.Logger, io.Closer, error) {
	lvl := levelFromString(level)
	if strings.TrimSpace(path) == "" {
		return slog.New(consoleHandler(os.Stdout, lvl)), io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	return newFanout(os.Stdout, f, lvl), f, nil
}

func newFanout(console, file io.Writer, lvl slog.Level) *slog.Logger {
	return slog.New(slogmulti.Fanout(
		consoleHandler(console, lvl),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: lvl}),
	))
}

func consoleHandler(w io.Writer, lvl slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
