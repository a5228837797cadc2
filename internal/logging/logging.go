package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init creates and sets the package-level default slog logger on stderr.
// format "json" selects JSONHandler; anything else uses TextHandler.
// When the audit trail writes to stdout, callers should pass "json" so the
// two streams stay machine-separable.
func Init(format string, level slog.Level) {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, format, level)))
}

// NewHandler returns a JSON or text handler writing to w.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
