// Package logging builds the zerolog loggers used across the firmware and
// the bench tools.
package logging

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a config level name to a zerolog level; unknown names
// fall back to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "OFF", "DISABLED":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New returns a JSON-lines logger writing to w.
func New(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Console returns a human-readable logger for terminals.
func Console(w io.Writer, level string, color bool) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
		NoColor:    !color,
	}
	return zerolog.New(cw).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Nop discards everything; handy for tests and optional loggers.
func Nop() zerolog.Logger { return zerolog.Nop() }

// Component tags l with the service or driver name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// From returns the logger stored in ctx, or a disabled one.
func From(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
