// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createSchema creates the tables and indexes if they do not exist. All
// columns are defined in the initial CREATE TABLE statements so the full
// schema has a single source of truth.
func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range schemaQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

func schemaQueries() []string {
	return []string{
		// Raw normalized events as ingested. The processed flag marks rows
		// already consumed by an ETL cycle.
		`CREATE TABLE IF NOT EXISTS raw_records (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			log_type TEXT NOT NULL,
			log_level TEXT NOT NULL,
			user_id TEXT,
			session_id TEXT,
			content_id TEXT,
			content_title TEXT,
			content_type TEXT,
			device_type TEXT,
			platform TEXT,
			country TEXT,
			ip_address TEXT,
			user_agent TEXT,
			duration INTEGER,
			position INTEGER,
			quality TEXT,
			error_type TEXT,
			error_message TEXT,
			response_time_ms INTEGER,
			processed BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL
		)`,

		// Analytics-ready records produced by the transformer.
		`CREATE TABLE IF NOT EXISTS processed_records (
			id UUID PRIMARY KEY,
			raw_record_id UUID NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			event_type TEXT NOT NULL,
			user_id TEXT,
			session_id TEXT,
			content_id TEXT,
			content_title TEXT,
			device_type TEXT,
			platform TEXT,
			country TEXT,
			duration INTEGER,
			quality TEXT,
			error_type TEXT,
			response_time_ms INTEGER,
			processed_at TIMESTAMP NOT NULL
		)`,

		// Scalar metric samples, one row per metric per aggregation pass.
		`CREATE TABLE IF NOT EXISTS metric_points (
			id UUID PRIMARY KEY,
			metric_name TEXT NOT NULL,
			metric_value DOUBLE NOT NULL,
			metric_unit TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			time_window TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_raw_records_timestamp ON raw_records(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_records_processed ON raw_records(processed, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_processed_records_timestamp ON processed_records(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_processed_records_event_type ON processed_records(event_type, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_metric_points_name ON metric_points(metric_name, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_metric_points_timestamp ON metric_points(timestamp)`,
	}
}
