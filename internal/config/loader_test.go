package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("TOGETHER_API_KEY", "key-123")
	dir := writeConfig(t, "app:\n  name: book\n")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.LLM.APIKey != "key-123" {
		t.Errorf("api key = %q, want key-123", cfg.LLM.APIKey)
	}
	if cfg.Server.HTTP.Port != 5151 {
		t.Errorf("port = %d, want 5151", cfg.Server.HTTP.Port)
	}
	if cfg.Generation.BatchSize != 5 || cfg.Generation.Step != 500 || cfg.Generation.ChapterSpan != 3000 {
		t.Errorf("unexpected generation defaults: %+v", cfg.Generation)
	}
	if cfg.Progress.PollInterval != time.Second {
		t.Errorf("poll interval = %v, want 1s", cfg.Progress.PollInterval)
	}
	if cfg.LLM.Retry.MaxAttempts != 0 || cfg.LLM.Retry.Strategy != "fixed" || cfg.LLM.Retry.InitialDelay != time.Minute {
		t.Errorf("unexpected retry defaults: %+v", cfg.LLM.Retry)
	}
	if cfg.Storage.Dir != "saved_pdfs" {
		t.Errorf("storage dir = %q", cfg.Storage.Dir)
	}
}

func TestLoadFromRequiresAPIKey(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("TOGETHER_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")
	dir := writeConfig(t, "llm:\n  api_key: ${TOGETHER_API_KEY:}\n")

	_, err := LoadFrom(dir)
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
	if !strings.Contains(err.Error(), "TOGETHER_API_KEY") {
		t.Errorf("error %q should name TOGETHER_API_KEY", err)
	}
}

func TestLoadFromExpandsPlaceholders(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("TOGETHER_API_KEY", "k")
	t.Setenv("BOOK_DIR", "/tmp/books")
	dir := writeConfig(t, "storage:\n  dir: ${BOOK_DIR:fallback}\nsecurity:\n  auth_token: ${UNSET_SECRET_FOR_TEST:s3cret}\n")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Storage.Dir != "/tmp/books" {
		t.Errorf("storage dir = %q, want /tmp/books", cfg.Storage.Dir)
	}
	if cfg.Security.AuthToken != "s3cret" {
		t.Errorf("auth token = %q, want s3cret", cfg.Security.AuthToken)
	}
}

func TestLoadFromMergesEnvFile(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("TOGETHER_API_KEY", "k")
	dir := writeConfig(t, "generation:\n  batch_size: 5\n")
	if err := os.WriteFile(filepath.Join(dir, "config.staging.yaml"), []byte("generation:\n  batch_size: 2\n"), 0o644); err != nil {
		t.Fatalf("write env config: %v", err)
	}

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Generation.BatchSize != 2 {
		t.Errorf("batch size = %d, want 2", cfg.Generation.BatchSize)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := &Config{}
	cfg.LLM.APIKey = "k"
	cfg.LLM.Retry.Strategy = "fixed"
	cfg.Generation.BatchSize = 5
	cfg.Generation.Step = 500
	cfg.Progress.Backend = "kafka"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown progress backend")
	}

	cfg.Progress.Backend = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for redis backend without redis")
	}

	cfg.Cache.Redis.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("EXPAND_SET", "value")
	got := expandEnv("a=${EXPAND_SET} b=${EXPAND_UNSET_X:def} c=${EXPAND_UNSET_Y}")
	want := "a=value b=def c=${EXPAND_UNSET_Y}"
	if got != want {
		t.Fatalf("expandEnv = %q, want %q", got, want)
	}
}
