// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

// Package config loads and validates Streamlens configuration with layered
// sources: struct defaults, an optional YAML file, and environment variables
// with the highest priority.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Streamlens process.
type Config struct {
	Logging  LoggingConfig  `koanf:"logging"`
	Database DatabaseConfig `koanf:"database"`
	ETL      ETLConfig      `koanf:"etl"`
	Producer ProducerConfig `koanf:"producer"`
	API      APIConfig      `koanf:"api"`
	Breaker  BreakerConfig  `koanf:"breaker"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig controls the embedded DuckDB store.
type DatabaseConfig struct {
	Path         string        `koanf:"path" validate:"required"`
	MaxMemory    string        `koanf:"max_memory"`
	Threads      int           `koanf:"threads" validate:"min=0,max=256"`
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// ETLConfig controls the transformation cycle.
type ETLConfig struct {
	Interval          time.Duration `koanf:"interval"`
	BatchSize         int           `koanf:"batch_size" validate:"omitempty,min=1,max=100000"`
	Lookback          time.Duration `koanf:"lookback"`
	AggregationWindow time.Duration `koanf:"aggregation_window"`
	RetentionDays     int           `koanf:"retention_days" validate:"min=1"`
	CleanupEveryCycle int           `koanf:"cleanup_every_cycles" validate:"min=1"`
	UnderrunRatio     float64       `koanf:"underrun_ratio" validate:"min=0,max=1"`
}

// ProducerConfig controls the synthetic event generator.
type ProducerConfig struct {
	Enabled         bool  `koanf:"enabled"`
	EventsPerSecond int   `koanf:"events_per_second" validate:"omitempty,min=1,max=100000"`
	Seed            int64 `koanf:"seed"`
}

// APIConfig controls the read-only HTTP API.
type APIConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Addr      string        `koanf:"addr" validate:"required"`
	RateLimit int           `koanf:"rate_limit" validate:"omitempty,min=1"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
	Timeout   time.Duration `koanf:"timeout"`
}

// BreakerConfig controls the store circuit breaker.
type BreakerConfig struct {
	Threshold uint32        `koanf:"threshold" validate:"omitempty,min=1"`
	Timeout   time.Duration `koanf:"timeout"`
}

// Default returns a Config with production defaults. Defaults are applied
// first, then overridden by the config file and environment.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Caller: false,
		},
		Database: DatabaseConfig{
			Path:         "streamlens.duckdb",
			MaxMemory:    "2GB",
			Threads:      0, // 0 = use runtime.NumCPU()
			QueryTimeout: 10 * time.Second,
		},
		ETL: ETLConfig{
			Interval:          5 * time.Second,
			BatchSize:         100,
			Lookback:          5 * time.Minute,
			AggregationWindow: 30 * time.Minute,
			RetentionDays:     30,
			CleanupEveryCycle: 10,
			UnderrunRatio:     0.01,
		},
		Producer: ProducerConfig{
			Enabled:         true,
			EventsPerSecond: 10,
			Seed:            0, // 0 = time-based seed
		},
		API: APIConfig{
			Enabled:   true,
			Addr:      ":8080",
			RateLimit: 100,
			CacheTTL:  30 * time.Second,
			Timeout:   30 * time.Second,
		},
		Breaker: BreakerConfig{
			Threshold: 5,
			Timeout:   30 * time.Second,
		},
	}
}

// Validate checks invariants the struct tags cannot express and fails fast
// on inconsistent values.
func (c *Config) Validate() error {
	if c.ETL.Lookback < c.ETL.Interval {
		return fmt.Errorf("etl.lookback (%v) must not be shorter than etl.interval (%v)",
			c.ETL.Lookback, c.ETL.Interval)
	}
	if c.ETL.AggregationWindow < c.ETL.Lookback {
		return fmt.Errorf("etl.aggregation_window (%v) must not be shorter than etl.lookback (%v)",
			c.ETL.AggregationWindow, c.ETL.Lookback)
	}
	if c.ETL.BatchSize <= 0 {
		return fmt.Errorf("etl.batch_size must be positive, got %d", c.ETL.BatchSize)
	}
	if c.ETL.UnderrunRatio < 0 || c.ETL.UnderrunRatio > 1 {
		return fmt.Errorf("etl.underrun_ratio must be within [0, 1], got %v", c.ETL.UnderrunRatio)
	}
	if c.ETL.RetentionDays <= 0 {
		return fmt.Errorf("etl.retention_days must be positive, got %d", c.ETL.RetentionDays)
	}
	if c.ETL.CleanupEveryCycle <= 0 {
		return fmt.Errorf("etl.cleanup_every_cycles must be positive, got %d", c.ETL.CleanupEveryCycle)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("database.query_timeout must be positive, got %v", c.Database.QueryTimeout)
	}
	if c.Producer.Enabled && c.Producer.EventsPerSecond <= 0 {
		return fmt.Errorf("producer.events_per_second must be positive, got %d", c.Producer.EventsPerSecond)
	}
	if c.API.Enabled && c.API.Addr == "" {
		return fmt.Errorf("api.addr must not be empty when the API is enabled")
	}
	if c.Breaker.Threshold == 0 {
		return fmt.Errorf("breaker.threshold must be positive")
	}

	return nil
}

// RetentionCutoff returns the deletion cutoff relative to now.
func (c *ETLConfig) RetentionCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -c.RetentionDays)
}
