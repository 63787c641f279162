package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info+2", slog.LevelInfo + 2},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewLogger(&buf, "warn", "json")
	l.Info("dropped")
	l.Warn("kept", "item", "latte")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("logged %d lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("json handler output: %v", err)
	}
	if rec["msg"] != "kept" || rec["item"] != "latte" {
		t.Errorf("record = %v", rec)
	}

	buf.Reset()
	NewLogger(&buf, "debug", "text").Debug("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text handler output = %q", buf.String())
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	if got := RequestID(ctx); got != "" {
		t.Errorf("RequestID(background) = %q", got)
	}
	if WithRequestID(ctx, "") != ctx {
		t.Error("WithRequestID with empty id should return ctx unchanged")
	}
	if got := RequestID(WithRequestID(ctx, "abc")); got != "abc" {
		t.Errorf("RequestID = %q, want abc", got)
	}
}

// Logger reads slog.Default, so these cases swap it and run serially.
func TestLogger_Annotations(t *testing.T) {
	useTestTracer(t)

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	Logger(context.Background()).Info("bare")
	if out := buf.String(); strings.Contains(out, "trace_id") || strings.Contains(out, "request_id") {
		t.Errorf("bare logger added ids: %q", out)
	}

	buf.Reset()
	ctx, span := StartSpan(WithRequestID(context.Background(), "req-7"), "op")
	defer span.End()
	Logger(ctx).Info("annotated")

	out := buf.String()
	for _, want := range []string{
		"request_id=req-7",
		"trace_id=" + span.SpanContext().TraceID().String(),
		"span_id=" + span.SpanContext().SpanID().String(),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}
