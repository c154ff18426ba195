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
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewHonorsLevel(t *testing.T) {
	debug := New("debug", "text")
	if !debug.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug logger should enable debug records")
	}

	errOnly := New("error", "json")
	if errOnly.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("error logger should drop info records")
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if id := RequestID(ctx); id != "" {
		t.Errorf("bare context request id = %q, want empty", id)
	}

	ctx = WithRequestID(ctx, "req-123")
	if id := RequestID(ctx); id != "req-123" {
		t.Errorf("request id = %q, want req-123", id)
	}

	ctx = WithRequestID(ctx, "req-456")
	if id := RequestID(ctx); id != "req-456" {
		t.Errorf("overwritten request id = %q, want req-456", id)
	}
}

func TestLoggerRoundTrip(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) == nil {
		t.Fatal("FromContext on bare context should return the default logger")
	}

	custom := New("debug", "json")
	ctx = WithLogger(ctx, custom)
	if FromContext(ctx) != custom {
		t.Error("FromContext should return the stored logger")
	}
}

func TestLTagsRequestID(t *testing.T) {
	base := New("info", "text")
	ctx := WithLogger(context.Background(), base)

	// Without a request id, L returns the stored logger unchanged.
	if L(ctx) != base {
		t.Error("L without request id should return the context logger")
	}

	// With one, it returns a derived logger.
	ctx = WithRequestID(ctx, "req-789")
	if L(ctx) == base {
		t.Error("L with request id should derive a tagged logger")
	}
}
