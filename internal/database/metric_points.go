// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/streamlens/streamlens/internal/models"
)

// InsertMetricPoints persists a batch of metric samples in one transaction.
// Metric batches are small (one row per metric name), so unlike record
// batches a failing row aborts the whole batch.
func (db *DB) InsertMetricPoints(ctx context.Context, points []*models.MetricPoint) error {
	if len(points) == 0 {
		return nil
	}

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO metric_points (
		id, metric_name, metric_value, metric_unit, timestamp, time_window, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range points {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Value, p.Unit, p.Timestamp, p.Window, p.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert metric point %s: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metric points: %w", err)
	}
	return nil
}

// QueryMetricsByTimeRange returns metric points within [since, until), newest
// first, capped at limit. An empty name matches all metrics.
func (db *DB) QueryMetricsByTimeRange(ctx context.Context, since, until time.Time, name string, limit int) ([]*models.MetricPoint, error) {
	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	query := `SELECT id, metric_name, metric_value, metric_unit, timestamp, time_window, created_at
		FROM metric_points
		WHERE timestamp >= ? AND timestamp < ?`
	args := []interface{}{since, until}

	if name != "" {
		query += " AND metric_name = ?"
		args = append(args, name)
	}

	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	return queryAndScan(ctx, db.conn, query, args, scanMetricPoint)
}

func scanMetricPoint(rows *sql.Rows) (*models.MetricPoint, error) {
	var p models.MetricPoint
	if err := rows.Scan(&p.ID, &p.Name, &p.Value, &p.Unit, &p.Timestamp, &p.Window, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan metric point: %w", err)
	}
	return &p, nil
}
