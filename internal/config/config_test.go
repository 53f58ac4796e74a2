package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_MAX_REPLY_TOKENS", "")
	t.Setenv("MAX_COST_PER_CALL_USD", "")
	t.Setenv("FOLLOW_UP_AFTER", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LLMProvider != "anthropic" {
		t.Fatalf("expected anthropic provider by default, got %s", cfg.LLMProvider)
	}
	if cfg.LLMMaxReplyTokens != 300 {
		t.Fatalf("expected 300 reply tokens, got %d", cfg.LLMMaxReplyTokens)
	}
	if cfg.MaxCostPerCallUSD != 0.01 {
		t.Fatalf("expected default cost ceiling, got %f", cfg.MaxCostPerCallUSD)
	}
	if cfg.FollowUpAfter != 24*time.Hour {
		t.Fatalf("expected default follow-up delay, got %s", cfg.FollowUpAfter)
	}
	if cfg.MessageHistorySize != 10 || cfg.TranscriptLimit != 20 {
		t.Fatalf("unexpected context limits %d/%d", cfg.MessageHistorySize, cfg.TranscriptLimit)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("LLM_PROVIDER", "Bedrock")
	t.Setenv("MAX_COST_PER_CALL_USD", "0.02")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("FOLLOW_UP_AFTER", "6h")
	t.Setenv("REMINDER_SWEEP_BATCH", "25")
	t.Setenv("GHL_WEBHOOK_TOKEN", "ghl-secret")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Fatalf("expected lower-cased provider, got %s", cfg.LLMProvider)
	}
	if cfg.MaxCostPerCallUSD != 0.02 {
		t.Fatalf("expected cost override, got %f", cfg.MaxCostPerCallUSD)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.FollowUpAfter != 6*time.Hour {
		t.Fatalf("expected follow-up override, got %s", cfg.FollowUpAfter)
	}
	if cfg.ReminderSweepBatch != 25 {
		t.Fatalf("expected batch override, got %d", cfg.ReminderSweepBatch)
	}
	if cfg.WebhookTokens()["ghl"] != "ghl-secret" {
		t.Fatalf("expected ghl token in webhook map")
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("LLM_MAX_REPLY_TOKENS", "lots")
	t.Setenv("LLM_TEMPERATURE", "warm")
	t.Setenv("LLM_TIMEOUT", "soon")
	cfg := Load()
	if cfg.LLMMaxReplyTokens != 300 {
		t.Fatalf("expected fallback reply tokens, got %d", cfg.LLMMaxReplyTokens)
	}
	if cfg.LLMTemperature != 0.7 {
		t.Fatalf("expected fallback temperature, got %f", cfg.LLMTemperature)
	}
	if cfg.LLMTimeout != 60*time.Second {
		t.Fatalf("expected fallback timeout, got %s", cfg.LLMTimeout)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("LEADCONV_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("LEADCONV_TEST_VALUE", "")
	os.Unsetenv("LEADCONV_TEST_VALUE")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("LEADCONV_TEST_VALUE"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
}
