// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/streamlens/streamlens/internal/models"
)

// Stats returns a point-in-time snapshot of row counts, latest timestamps,
// and the on-disk size of the database file.
func (db *DB) Stats(ctx context.Context) (*models.StoreStats, error) {
	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	stats := &models.StoreStats{CollectedAt: time.Now()}

	raw, err := db.tableStats(ctx, "raw_records")
	if err != nil {
		return nil, err
	}
	stats.RawRecords = raw

	processed, err := db.tableStats(ctx, "processed_records")
	if err != nil {
		return nil, err
	}
	stats.ProcessedRecords = processed

	points, err := db.tableStats(ctx, "metric_points")
	if err != nil {
		return nil, err
	}
	stats.MetricPoints = points

	if info, err := os.Stat(db.cfg.Path); err == nil {
		stats.FileSizeBytes = info.Size()
	}

	return stats, nil
}

func (db *DB) tableStats(ctx context.Context, table string) (models.TableStats, error) {
	column, ok := retentionTables[table]
	if !ok {
		return models.TableStats{}, fmt.Errorf("unknown table %q", table)
	}

	var stats models.TableStats
	query := fmt.Sprintf("SELECT COUNT(*), MAX(%s) FROM %s", column, table)
	if err := db.conn.QueryRowContext(ctx, query).Scan(&stats.Rows, &stats.Latest); err != nil {
		return models.TableStats{}, fmt.Errorf("failed to collect stats for %s: %w", table, err)
	}
	return stats, nil
}
