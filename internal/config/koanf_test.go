// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ETL.BatchSize != 100 {
		t.Errorf("etl.batch_size = %d, want default 100", cfg.ETL.BatchSize)
	}
	if cfg.API.Addr != ":8080" {
		t.Errorf("api.addr = %q, want default :8080", cfg.API.Addr)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("STREAMLENS_ETL_BATCH_SIZE", "250")
	t.Setenv("STREAMLENS_LOG_LEVEL", "debug")
	t.Setenv("STREAMLENS_ETL_INTERVAL", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ETL.BatchSize != 250 {
		t.Errorf("etl.batch_size = %d, want 250", cfg.ETL.BatchSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.ETL.Interval != 2*time.Second {
		t.Errorf("etl.interval = %v, want 2s", cfg.ETL.Interval)
	}
}

func TestLoadIgnoresUnmappedEnv(t *testing.T) {
	t.Setenv("STREAMLENS_SOMETHING_ELSE", "boom")

	if _, err := Load(); err != nil {
		t.Fatalf("Load() error = %v, unmapped variables must be dropped", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := []byte(`
etl:
  batch_size: 42
  interval: 1s
api:
  addr: ":9090"
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ETL.BatchSize != 42 {
		t.Errorf("etl.batch_size = %d, want 42 from file", cfg.ETL.BatchSize)
	}
	if cfg.API.Addr != ":9090" {
		t.Errorf("api.addr = %q, want :9090 from file", cfg.API.Addr)
	}
	// Untouched keys keep their defaults.
	if cfg.ETL.RetentionDays != 30 {
		t.Errorf("etl.retention_days = %d, want default 30", cfg.ETL.RetentionDays)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("etl:\n  batch_size: 42\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("STREAMLENS_ETL_BATCH_SIZE", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ETL.BatchSize != 7 {
		t.Errorf("etl.batch_size = %d, want env override 7", cfg.ETL.BatchSize)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("STREAMLENS_ETL_BATCH_SIZE", "0")

	if _, err := Load(); err == nil {
		t.Error("Load() = nil error, want validation failure")
	}
}
