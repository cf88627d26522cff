package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"  WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, c := range cases {
		if got := ParseLevel(c.in); got != c.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLoggersCarryServiceAttr(t *testing.T) {
	for _, build := range []func(string, string) *slog.Logger{NewJSONLogger, NewTextLogger} {
		logger := build("kemapper-test", "error")
		if logger == nil {
			t.Fatalf("expected a logger")
		}
		if !logger.Enabled(context.Background(), slog.LevelError) {
			t.Fatalf("expected error level enabled")
		}
		if logger.Enabled(context.Background(), slog.LevelInfo) {
			t.Fatalf("expected info suppressed at error level")
		}
	}
}
