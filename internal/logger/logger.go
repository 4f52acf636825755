// ABOUTME: Structured logging setup
// ABOUTME: Configures the default slog logger and per-component children
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger writing to w in the given format
func New(w io.Writer, level, format string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Setup configures the global logger
func Setup(w io.Writer, level, format string) {
	slog.SetDefault(New(w, level, format))
}

// OpenFile opens the log file and returns the writer logs should go to.
// With quiet set only the file is written, otherwise stdout as well.
func OpenFile(path string, quiet bool) (io.Writer, io.Closer, error) {
	if path == "" {
		if quiet {
			return io.Discard, io.NopCloser(nil), nil
		}
		return os.Stdout, io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening log file: %w", err)
	}
	if quiet {
		return f, f, nil
	}
	return io.MultiWriter(os.Stdout, f), f, nil
}

// WithComponent returns a logger with a component field
func WithComponent(component string) *slog.Logger {
	return slog.With("component", component)
}
