package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("quote computed")
	logger.Warn("payment config cache unavailable", "error", "dial tcp")

	out := buf.String()
	if strings.Contains(out, "quote computed") {
		t.Fatalf("expected info line to be filtered, got %q", out)
	}
	if !strings.Contains(out, "payment config cache unavailable") {
		t.Fatalf("expected warn line, got %q", out)
	}
}
