// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/streamlens/streamlens/internal/validation"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/streamlens/config.yaml",
	"/etc/streamlens/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "STREAMLENS_CONFIG"

// envPrefix is stripped from environment variables before mapping.
const envPrefix = "STREAMLENS_"

// Load builds the configuration from layered sources:
//  1. Defaults: built-in production defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: STREAMLENS_* overrides, highest priority
//
// The result is validated before it is returned; an invalid configuration
// fails the load rather than surfacing later at runtime.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	// STREAMLENS_ETL_BATCH_SIZE -> etl.batch_size
	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if verr := validation.ValidateStruct(cfg); verr != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", verr)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, environment override first.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc maps a STREAMLENS_* environment variable to its koanf
// path. Unmapped variables are dropped so stray environment noise never
// pollutes the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	envMappings := map[string]string{
		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Database
		"db_path":          "database.path",
		"db_max_memory":    "database.max_memory",
		"db_threads":       "database.threads",
		"db_query_timeout": "database.query_timeout",

		// ETL cycle
		"etl_interval":             "etl.interval",
		"etl_batch_size":           "etl.batch_size",
		"etl_lookback":             "etl.lookback",
		"etl_aggregation_window":   "etl.aggregation_window",
		"etl_retention_days":       "etl.retention_days",
		"etl_cleanup_every_cycles": "etl.cleanup_every_cycles",
		"etl_underrun_ratio":       "etl.underrun_ratio",

		// Producer
		"producer_enabled":           "producer.enabled",
		"producer_events_per_second": "producer.events_per_second",
		"producer_seed":              "producer.seed",

		// API
		"api_enabled":    "api.enabled",
		"api_addr":       "api.addr",
		"api_rate_limit": "api.rate_limit",
		"api_cache_ttl":  "api.cache_ttl",
		"api_timeout":    "api.timeout",

		// Circuit breaker
		"breaker_threshold": "breaker.threshold",
		"breaker_timeout":   "breaker.timeout",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return ""
}
