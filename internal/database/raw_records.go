// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamlens/streamlens/internal/logging"
	"github.com/streamlens/streamlens/internal/models"
)

const insertRawRecordSQL = `INSERT INTO raw_records (
	id, timestamp, log_type, log_level,
	user_id, session_id, content_id, content_title, content_type,
	device_type, platform, country, ip_address, user_agent,
	duration, position, quality, error_type, error_message, response_time_ms,
	processed, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`

// InsertRawRecord persists a single normalized event. Inserts are idempotent
// on the record ID, so replayed messages do not produce duplicate rows.
func (db *DB) InsertRawRecord(ctx context.Context, rec *models.NormalizedRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, insertRawRecordSQL, rawRecordArgs(rec)...)
	if err != nil {
		return fmt.Errorf("failed to insert raw record: %w", err)
	}
	return nil
}

// InsertRawRecords persists a batch of normalized events. Rows are inserted
// with per-row isolation: a failing row is logged and skipped, the rest of
// the batch still lands. Returns the number of rows inserted.
func (db *DB) InsertRawRecords(ctx context.Context, recs []*models.NormalizedRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertRawRecordSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range recs {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, rawRecordArgs(rec)...); err != nil {
			logging.Warn().Err(err).Str("record_id", rec.ID.String()).Msg("Skipping raw record insert")
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit raw record batch: %w", err)
	}
	return inserted, nil
}

func rawRecordArgs(rec *models.NormalizedRecord) []interface{} {
	return []interface{}{
		rec.ID, rec.Timestamp, string(rec.EventKind), string(rec.Severity),
		rec.UserID, rec.SessionID, rec.ContentID, rec.ContentTitle, rec.ContentType,
		rec.DeviceType, rec.Platform, rec.Country, rec.IPAddress, rec.UserAgent,
		rec.DurationSec, rec.PositionSec, rec.Quality, rec.ErrorType, rec.ErrorMessage, rec.ResponseTimeMS,
		rec.Processed, rec.CreatedAt,
	}
}

const selectRawRecordColumns = `id, timestamp, log_type, log_level,
	user_id, session_id, content_id, content_title, content_type,
	device_type, platform, country, ip_address, user_agent,
	duration, position, quality, error_type, error_message, response_time_ms,
	processed, created_at`

// QueryUnprocessedRaw returns raw records within [since, until) that have not
// been consumed by an ETL cycle yet, oldest first, capped at limit.
func (db *DB) QueryUnprocessedRaw(ctx context.Context, since, until time.Time, limit int) ([]*models.NormalizedRecord, error) {
	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	query := `SELECT ` + selectRawRecordColumns + `
		FROM raw_records
		WHERE processed = false AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
		LIMIT ?`

	return queryAndScan(ctx, db.conn, query, []interface{}{since, until, limit}, scanRawRecord)
}

func scanRawRecord(rows *sql.Rows) (*models.NormalizedRecord, error) {
	var rec models.NormalizedRecord
	var kind, severity string
	if err := rows.Scan(
		&rec.ID, &rec.Timestamp, &kind, &severity,
		&rec.UserID, &rec.SessionID, &rec.ContentID, &rec.ContentTitle, &rec.ContentType,
		&rec.DeviceType, &rec.Platform, &rec.Country, &rec.IPAddress, &rec.UserAgent,
		&rec.DurationSec, &rec.PositionSec, &rec.Quality, &rec.ErrorType, &rec.ErrorMessage, &rec.ResponseTimeMS,
		&rec.Processed, &rec.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan raw record: %w", err)
	}
	rec.EventKind = models.EventKind(kind)
	rec.Severity = models.Severity(severity)
	return &rec, nil
}

// MarkRawProcessed flags the given raw records as consumed so subsequent
// cycles do not fetch them again.
func (db *DB) MarkRawProcessed(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf("UPDATE raw_records SET processed = true WHERE id IN (%s)",
		strings.Join(placeholders, ","))

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark raw records processed: %w", err)
	}
	return nil
}
