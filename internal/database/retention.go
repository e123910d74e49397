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

// retentionTables maps the tables eligible for retention cleanup to the
// timestamp column the cutoff applies to. Table names are interpolated into
// SQL, so anything outside this allowlist is rejected.
var retentionTables = map[string]string{
	"raw_records":       "timestamp",
	"processed_records": "timestamp",
	"metric_points":     "timestamp",
}

// DeleteOlderThan removes rows in table whose timestamp is before cutoff and
// returns the number of rows deleted.
func (db *DB) DeleteOlderThan(ctx context.Context, table string, cutoff time.Time) (int64, error) {
	column, ok := retentionTables[table]
	if !ok {
		return 0, fmt.Errorf("table %q is not eligible for retention cleanup", table)
	}

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	query := fmt.Sprintf("DELETE FROM %s WHERE %s < ?", table, column)
	res, err := db.conn.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired rows from %s: %w", table, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	return deleted, nil
}
