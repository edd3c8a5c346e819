package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf})

	logger.Info("hello", "key", "value")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output by default, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", record["msg"])
	}
	if record["key"] != "value" {
		t.Errorf("key = %v, want value", record["key"])
	}
}

func TestNewLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf, Format: "text"})

	logger.Info("hello")

	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected text output, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("output missing message: %q", buf.String())
	}
}

func TestNewLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf, Level: "warn"})

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record should be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn record missing: %q", buf.String())
	}
}

func TestRedaction(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"api key", "api_key=abcdefghij0123456789"},
		{"bearer token", "Bearer abcdefghijklmnopqrst"},
		{"openai key", "sk-abcdefghijklmnopqrstuvwxyz0123456789ABCDEF"},
		{"jwt", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(LogConfig{Output: &buf})

			logger.Info("request", "detail", tt.value)

			out := buf.String()
			if !strings.Contains(out, "[REDACTED]") {
				t.Errorf("expected redaction in %q", out)
			}
		})
	}
}

func TestRedactionOfErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf})

	err := errors.New("auth failed: Bearer abcdefghijklmnopqrst")
	logger.Error("request failed", "error", err)

	out := buf.String()
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("expected error value redaction in %q", out)
	}
	if strings.Contains(out, "abcdefghijklmnopqrst") {
		t.Errorf("token leaked into output: %q", out)
	}
}

func TestCustomRedactPatterns(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{
		Output:         &buf,
		RedactPatterns: []string{`user-\d{6}`},
	})

	logger.Info("lookup", "subject", "user-123456")

	if !strings.Contains(buf.String(), "[REDACTED]") {
		t.Errorf("custom pattern not applied: %q", buf.String())
	}
}

func TestRequestIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf})

	ctx := WithRequestID(context.Background(), "req-123")
	logger.InfoContext(ctx, "processing")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", record["request_id"])
	}
}

func TestRequestIDAbsent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf})

	logger.InfoContext(context.Background(), "processing")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := record["request_id"]; ok {
		t.Errorf("request_id should be absent: %v", record)
	}
}

func TestRequestIDHelpers(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("RequestID on empty context = %q, want empty", got)
	}
	ctx := WithRequestID(context.Background(), "req-9")
	if got := RequestID(ctx); got != "req-9" {
		t.Errorf("RequestID = %q, want req-9", got)
	}
}

func TestLogLevelFromString(t *testing.T) {
	tests := []struct {
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
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := LogLevelFromString(tt.in); got != tt.want {
			t.Errorf("LogLevelFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
