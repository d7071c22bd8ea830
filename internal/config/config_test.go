// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.Retention.Std() != 30*24*time.Hour {
		t.Errorf("retention = %v", cfg.Retention.Std())
	}
	if !cfg.RateLimit.Enabled {
		t.Error("rate limiting should default to enabled")
	}
	if cfg.RateLimit.Ingest.Requests != 30 {
		t.Errorf("ingest requests = %d", cfg.RateLimit.Ingest.Requests)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	content := `
listen_addr: ":9090"
database_url: "postgres://test@db/telemetry"
admin_api_key: "s3cret"
retention: "72h"
rate_limit:
  enabled: false
  cleanup_interval: "5m"
  ingest:
    requests: 5
    period: "30s"
    burst: 2
  admin:
    requests: 10
    period: "1m"
    burst: 3
`
	path := filepath.Join(t.TempDir(), "collector.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.AdminAPIKey != "s3cret" {
		t.Errorf("admin key = %q", cfg.AdminAPIKey)
	}
	if cfg.Retention.Std() != 72*time.Hour {
		t.Errorf("retention = %v", cfg.Retention.Std())
	}
	if cfg.RateLimit.Enabled {
		t.Error("rate limiting should be disabled by file")
	}
	if cfg.RateLimit.Ingest.Period.Std() != 30*time.Second {
		t.Errorf("ingest period = %v", cfg.RateLimit.Ingest.Period.Std())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	content := `listen_addr: ":9090"` + "\n" + `retention: "72h"` + "\n"
	path := filepath.Join(t.TempDir(), "collector.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	t.Setenv("BLACKBOX_LISTEN_ADDR", ":7070")
	t.Setenv("BLACKBOX_RETENTION", "24h")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":7070" {
		t.Errorf("listen addr = %q, want env override", cfg.ListenAddr)
	}
	if cfg.Retention.Std() != 24*time.Hour {
		t.Errorf("retention = %v, want env override", cfg.Retention.Std())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collector.yaml")
	if err := os.WriteFile(path, []byte(`retention: "soon"`), 0600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid duration")
	}
}
