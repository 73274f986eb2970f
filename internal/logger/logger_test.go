package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestWithRequestID_And_RequestIDFromContext(t *testing.T) {
	ctx := context.Background()
	requestID := "req-12345"

	// Initially empty
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("RequestIDFromContext() on empty ctx = %v, want empty", got)
	}

	ctx = WithRequestID(ctx, requestID)
	if got := RequestIDFromContext(ctx); got != requestID {
		t.Errorf("RequestIDFromContext() = %v, want %v", got, requestID)
	}
}

func TestWithUserID(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-1")
	if got := UserIDFromContext(ctx); got != "user-1" {
		t.Errorf("UserIDFromContext() = %v, want user-1", got)
	}
}

func TestFromContext_AttachesFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, "info")

	ctx := WithUserID(WithRequestID(context.Background(), "req-67890"), "user-1")
	FromContext(ctx, base).Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q", buf.String())
	}
	if line["request_id"] != "req-67890" {
		t.Errorf("request_id = %v", line["request_id"])
	}
	if line["user_id"] != "user-1" {
		t.Errorf("user_id = %v", line["user_id"])
	}
}

func TestFromContext_WithoutFields(t *testing.T) {
	base := New("info")
	if got := FromContext(context.Background(), base); got != base {
		t.Error("FromContext() without fields should return the base logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info line written at warn level: %q", buf.String())
	}
	l.Warn("kept")
	if buf.Len() == 0 {
		t.Error("warn line not written")
	}
}
