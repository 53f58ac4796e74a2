package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		enable  slog.Level
		disable slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"warn level", "warn", slog.LevelWarn, slog.LevelInfo},
		{"warning alias", "WARNING", slog.LevelWarn, slog.LevelInfo},
		{"error level", "error", slog.LevelError, slog.LevelWarn},
		{"default info", "", slog.LevelInfo, slog.LevelDebug},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level)
			if !logger.Enabled(ctx, tt.enable) {
				t.Fatalf("expected level %s to be enabled", tt.enable)
			}
			if logger.Enabled(ctx, tt.disable) {
				t.Fatalf("expected level %s to be disabled", tt.disable)
			}
		})
	}
}

func TestDefaultLogger(t *testing.T) {
	logger := Default()
	logger.Info("test message", "key", "value")

	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("Default() should enable info level")
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("Default() should not enable debug level")
	}
}

func TestWithComponentAndOrg(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json").WithComponent("reminders").WithOrg("org-1")

	logger.Info("sweep finished", "sent", 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["component"] != "reminders" {
		t.Errorf("expected component attr, got %v", entry["component"])
	}
	if entry["org_id"] != "org-1" {
		t.Errorf("expected org_id attr, got %v", entry["org_id"])
	}
	if entry["msg"] != "sweep finished" {
		t.Errorf("unexpected msg %v", entry["msg"])
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug", "text")
	logger.Debug("hello", "lead_id", "l-1")

	out := buf.String()
	if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "lead_id=l-1") {
		t.Fatalf("expected text output, got %q", out)
	}
}

func TestNilLoggerHelpers(t *testing.T) {
	var l *Logger
	if l.WithComponent("x") == nil {
		t.Fatal("expected non-nil logger from nil receiver")
	}
	if l.WithOrg("org") == nil {
		t.Fatal("expected non-nil logger from nil receiver")
	}
}
