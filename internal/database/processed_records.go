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

	"github.com/streamlens/streamlens/internal/logging"
	"github.com/streamlens/streamlens/internal/models"
)

const insertProcessedRecordSQL = `INSERT INTO processed_records (
	id, raw_record_id, timestamp, event_type,
	user_id, session_id, content_id, content_title,
	device_type, platform, country,
	duration, quality, error_type, response_time_ms,
	processed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`

// InsertProcessedRecord persists a single transformed record.
func (db *DB) InsertProcessedRecord(ctx context.Context, rec *models.ProcessedRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now()
	}

	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, insertProcessedRecordSQL, processedRecordArgs(rec)...)
	if err != nil {
		return fmt.Errorf("failed to insert processed record: %w", err)
	}
	return nil
}

// InsertProcessedRecords persists a batch of transformed records with
// per-row isolation. Returns the number of rows inserted.
func (db *DB) InsertProcessedRecords(ctx context.Context, recs []*models.ProcessedRecord) (int, error) {
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

	stmt, err := tx.PrepareContext(ctx, insertProcessedRecordSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range recs {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		if rec.ProcessedAt.IsZero() {
			rec.ProcessedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, processedRecordArgs(rec)...); err != nil {
			logging.Warn().Err(err).Str("record_id", rec.ID.String()).Msg("Skipping processed record insert")
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit processed record batch: %w", err)
	}
	return inserted, nil
}

func processedRecordArgs(rec *models.ProcessedRecord) []interface{} {
	return []interface{}{
		rec.ID, rec.RawRecordID, rec.Timestamp, rec.EventType,
		rec.UserID, rec.SessionID, rec.ContentID, rec.ContentTitle,
		rec.DeviceType, rec.Platform, rec.Country,
		rec.DurationSec, rec.Quality, rec.ErrorType, rec.ResponseTimeMS,
		rec.ProcessedAt,
	}
}

// QueryProcessedByTimeRange returns processed records within [since, until),
// newest first, capped at limit.
func (db *DB) QueryProcessedByTimeRange(ctx context.Context, since, until time.Time, limit int) ([]*models.ProcessedRecord, error) {
	ctx, cancel := db.queryContext(ctx)
	defer cancel()

	query := `SELECT id, raw_record_id, timestamp, event_type,
			user_id, session_id, content_id, content_title,
			device_type, platform, country,
			duration, quality, error_type, response_time_ms,
			processed_at
		FROM processed_records
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT ?`

	return queryAndScan(ctx, db.conn, query, []interface{}{since, until, limit}, scanProcessedRecord)
}

func scanProcessedRecord(rows *sql.Rows) (*models.ProcessedRecord, error) {
	var rec models.ProcessedRecord
	if err := rows.Scan(
		&rec.ID, &rec.RawRecordID, &rec.Timestamp, &rec.EventType,
		&rec.UserID, &rec.SessionID, &rec.ContentID, &rec.ContentTitle,
		&rec.DeviceType, &rec.Platform, &rec.Country,
		&rec.DurationSec, &rec.Quality, &rec.ErrorType, &rec.ResponseTimeMS,
		&rec.ProcessedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan processed record: %w", err)
	}
	return &rec, nil
}
