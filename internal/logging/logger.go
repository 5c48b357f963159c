// Package logging defines a minimal structured-logging interface used across
// the project, with slog and logrus implementations.
package logging

import (
	"context"
	"io"
	"strings"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "track uploaded", "track_id", id, "size", size)
type Logger interface {
	// Debug logs diagnostic detail.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// New builds the logger selected by format: "json" gives a slog JSON logger,
// anything else a logrus text logger with the nested formatter.
func New(format, level string, w io.Writer) Logger {
	if strings.EqualFold(format, "json") {
		return NewJSONSlogLogger(w, level)
	}
	return NewTextLogrusLogger(w, level)
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return NewJSONSlogLogger(io.Discard, "error")
}
