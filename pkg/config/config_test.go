package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("expected sqlite backend, got %s", cfg.Store.Backend)
	}
	if cfg.Providers.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.Providers.Timeout)
	}
	if len(cfg.Providers.Endpoints) != 1 || cfg.Providers.Endpoints[0].Type != "goldapi" {
		t.Errorf("expected a single goldapi endpoint, got %+v", cfg.Providers.Endpoints)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_GOLDAPI_KEY", "gk-test-123")

	content := `
data_dir: "/var/lib/hallmark"
user: "anna"
log_level: debug
store:
  backend: redis
  redis:
    addr: "redis:6379"
    db: 2
providers:
  timeout: 3s
  endpoints:
    - name: goldapi
      type: goldapi
      url: https://api.gold-api.com
      api_key: ${TEST_GOLDAPI_KEY}
      fallback_urls:
        - https://mirror.example.com
    - name: metalpriceapi
      type: metalpriceapi
      url: https://api.metalpriceapi.com/v1
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.User != "anna" {
		t.Errorf("expected user anna, got %s", cfg.User)
	}
	if cfg.Store.Backend != "redis" || cfg.Store.Redis.DB != 2 {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Providers.Timeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %v", cfg.Providers.Timeout)
	}
	if len(cfg.Providers.Endpoints) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(cfg.Providers.Endpoints))
	}
	if cfg.Providers.Endpoints[0].APIKey != "gk-test-123" {
		t.Errorf("env var not expanded: got %s", cfg.Providers.Endpoints[0].APIKey)
	}
	if len(cfg.Providers.Endpoints[0].FallbackURLs) != 1 {
		t.Errorf("expected 1 fallback url, got %v", cfg.Providers.Endpoints[0].FallbackURLs)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.SlogLevel())
	}
}

func TestLoadRejectsUnknownEndpointType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "providers:\n  endpoints:\n    - name: x\n      type: kitco\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown endpoint type")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}
