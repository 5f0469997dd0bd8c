package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("POLL_INTERVAL_SECONDS", "")
	t.Setenv("POLL_MAX_ATTEMPTS", "")
	t.Setenv("HISTORY_BACKEND", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("PollInterval mismatch: got %s", cfg.PollInterval)
	}
	if cfg.PollMaxAttempts != 60 {
		t.Fatalf("PollMaxAttempts mismatch: got %d", cfg.PollMaxAttempts)
	}
	if cfg.HistoryBackend != "postgres" {
		t.Fatalf("HistoryBackend mismatch: got %q", cfg.HistoryBackend)
	}
	if cfg.StorageBackend != "filesystem" {
		t.Fatalf("StorageBackend mismatch: got %q", cfg.StorageBackend)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigRejectsUnknownHistoryBackend(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("HISTORY_BACKEND", "sqlite")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unsupported history backend")
	}
}

func TestLoadConfigS3RequiresBucket(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("HISTORY_BACKEND", "")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when S3_BUCKET is missing")
	}
}

func TestLoadConfigParsesCORSOrigins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("HISTORY_BACKEND", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://studio.example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"http://localhost:3000", "https://studio.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins mismatch: got %#v want %#v", cfg.CORSAllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
}
