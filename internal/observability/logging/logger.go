// Package logging builds the process-wide loggers. Logs go to stderr so
// the suggest CLI can pipe its JSON result from stdout without log lines
// mixed in.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger is the worker logger: one JSON object per line, tagged
// with the service name for aggregation.
func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

// NewTextLogger is the CLI logger: human-readable key=value lines.
func NewTextLogger(service, level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

// ParseLevel maps the LOG_LEVEL config value onto a slog level, defaulting
// to info on anything unrecognized.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
