// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

// Package main is the entry point for the Streamlens server.
//
// Streamlens ingests streaming-platform event logs, normalizes them into a
// DuckDB store, and runs a periodic ETL cycle that transforms raw events
// into processed records and aggregated viewing metrics. A small read-only
// HTTP API exposes the results.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, config file, and environment (Koanf v2)
//  2. Database: embedded DuckDB with schema creation and a circuit breaker
//  3. Message bus: in-process Watermill pub/sub carrying raw events
//  4. Ingest consumer: validates and persists raw events from the bus
//  5. Producer (optional): synthetic event generator for demo and load testing
//  6. ETL pipeline: periodic transform, aggregate, and retention cycles
//  7. HTTP API (optional): health, stats, metrics, and records endpoints
//
// All long-running components run under a suture supervision tree and are
// restarted with backoff on failure.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables with the STREAMLENS_ prefix
//   - Config file (config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops the producer and ingest consumer
//   - Finishes the in-flight ETL cycle
//   - Drains HTTP connections (10s timeout)
//   - Closes the message bus and database
package main

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streamlens/streamlens/internal/analytics"
	"github.com/streamlens/streamlens/internal/api"
	"github.com/streamlens/streamlens/internal/bus"
	"github.com/streamlens/streamlens/internal/cache"
	"github.com/streamlens/streamlens/internal/config"
	"github.com/streamlens/streamlens/internal/database"
	"github.com/streamlens/streamlens/internal/etl"
	"github.com/streamlens/streamlens/internal/ingest"
	"github.com/streamlens/streamlens/internal/logging"
	"github.com/streamlens/streamlens/internal/producer"
	"github.com/streamlens/streamlens/internal/supervisor"
	"github.com/streamlens/streamlens/internal/supervisor/services"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

const busBufferSize = 256

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("db_path", cfg.Database.Path).
		Dur("etl_interval", cfg.ETL.Interval).
		Bool("producer_enabled", cfg.Producer.Enabled).
		Bool("api_enabled", cfg.API.Enabled).
		Msg("Starting Streamlens")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	// All store access goes through the circuit breaker so a wedged DuckDB
	// fails fast instead of stalling every cycle and request.
	store := database.NewResilientStore(db, &cfg.Breaker)

	pubsub := bus.New(busBufferSize)
	defer func() {
		if err := pubsub.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing message bus")
		}
	}()

	consumer := ingest.NewConsumer(pubsub, store)

	seed := cfg.Producer.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	transformer := etl.NewTransformer(etl.NewFieldOrSynthesized(rand.New(rand.NewSource(seed)))) //nolint:gosec // not used for security
	aggregator := analytics.NewAggregator(cfg.ETL.UnderrunRatio)
	pipeline := etl.NewPipeline(store, transformer, aggregator, &cfg.ETL)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for the supervisor's event hook
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddPipelineService(services.NewWorkerService("etl-pipeline", pipeline))
	tree.AddTransportService(services.NewWorkerService("ingest-consumer", consumer))

	if cfg.Producer.Enabled {
		gen := producer.New(pubsub, &cfg.Producer)
		tree.AddTransportService(services.NewWorkerService("event-producer", gen))
		logging.Info().
			Int("events_per_second", cfg.Producer.EventsPerSecond).
			Int64("seed", cfg.Producer.Seed).
			Msg("Synthetic producer enabled")
	}

	if cfg.API.Enabled {
		queryCache := cache.New(cfg.API.CacheTTL)
		handler := api.NewHandler(store, pipeline, aggregator, queryCache, cfg, version)
		router := api.NewRouter(handler, &cfg.API)
		server := api.NewServer(router)

		tree.AddAPIService(services.NewHTTPService(server, 10*time.Second))
		logging.Info().Str("addr", cfg.API.Addr).Msg("HTTP API enabled")
	}

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel until the supervisor has fully stopped
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Streamlens stopped gracefully")
}
