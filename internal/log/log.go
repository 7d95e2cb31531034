// Package log configures the process-wide structured logger.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the log output encoding.
type Format string

const (
	// FormatJSON outputs logs as JSON, one object per line.
	FormatJSON Format = "json"
	// FormatText outputs human-readable key=value logs.
	FormatText Format = "text"
)

// Field keys shared across the codebase so log lines stay greppable.
const (
	AccountKey  = "account"
	BudgetKey   = "budget"
	DurationKey = "duration_ms"
	EndpointKey = "endpoint"
	FileKey     = "file"
	MethodKey   = "method"
	PathKey     = "path"
	StatusKey   = "status"
)

// New creates a slog.Logger with the given level name and format, writing to w.
// Unknown levels fall back to info.
func New(level string, format Format, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var h slog.Handler
	if format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
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
