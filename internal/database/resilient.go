// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/streamlens/streamlens/internal/config"
	"github.com/streamlens/streamlens/internal/logging"
	"github.com/streamlens/streamlens/internal/metrics"
	"github.com/streamlens/streamlens/internal/models"
)

// ErrCircuitOpen is returned when the store circuit breaker is open and
// calls are being rejected without touching the database.
var ErrCircuitOpen = errors.New("store circuit breaker is open")

// ResilientStore decorates a DB with a circuit breaker. Consecutive store
// failures trip the breaker; while open, calls fail fast with ErrCircuitOpen
// instead of piling up on a wedged database.
type ResilientStore struct {
	db *DB
	cb *gobreaker.CircuitBreaker[interface{}]
}

// NewResilientStore wraps db with a circuit breaker configured from cfg.
func NewResilientStore(db *DB, cfg *config.BreakerConfig) *ResilientStore {
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "store",
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker state changed")
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	}

	return &ResilientStore{
		db: db,
		cb: gobreaker.NewCircuitBreaker[interface{}](settings),
	}
}

// State returns the current breaker state as a string for monitoring.
func (s *ResilientStore) State() string {
	return s.cb.State().String()
}

// execute runs fn through the breaker, recording query duration per
// operation and translating open-circuit errors into ErrCircuitOpen.
func (s *ResilientStore) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	start := time.Now()
	result, err := s.cb.Execute(fn)
	metrics.RecordDBQuery(op, time.Since(start), err)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return result, err
}

func (s *ResilientStore) InsertRawRecord(ctx context.Context, rec *models.NormalizedRecord) error {
	_, err := s.execute("insert_raw_record", func() (interface{}, error) {
		return nil, s.db.InsertRawRecord(ctx, rec)
	})
	return err
}

func (s *ResilientStore) InsertRawRecords(ctx context.Context, recs []*models.NormalizedRecord) (int, error) {
	result, err := s.execute("insert_raw_records", func() (interface{}, error) {
		return s.db.InsertRawRecords(ctx, recs)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

func (s *ResilientStore) InsertProcessedRecord(ctx context.Context, rec *models.ProcessedRecord) error {
	_, err := s.execute("insert_processed_record", func() (interface{}, error) {
		return nil, s.db.InsertProcessedRecord(ctx, rec)
	})
	return err
}

func (s *ResilientStore) InsertProcessedRecords(ctx context.Context, recs []*models.ProcessedRecord) (int, error) {
	result, err := s.execute("insert_processed_records", func() (interface{}, error) {
		return s.db.InsertProcessedRecords(ctx, recs)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

func (s *ResilientStore) InsertMetricPoints(ctx context.Context, points []*models.MetricPoint) error {
	_, err := s.execute("insert_metric_points", func() (interface{}, error) {
		return nil, s.db.InsertMetricPoints(ctx, points)
	})
	return err
}

func (s *ResilientStore) QueryUnprocessedRaw(ctx context.Context, since, until time.Time, limit int) ([]*models.NormalizedRecord, error) {
	result, err := s.execute("query_unprocessed_raw", func() (interface{}, error) {
		return s.db.QueryUnprocessedRaw(ctx, since, until, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.NormalizedRecord), nil
}

func (s *ResilientStore) MarkRawProcessed(ctx context.Context, ids []uuid.UUID) error {
	_, err := s.execute("mark_raw_processed", func() (interface{}, error) {
		return nil, s.db.MarkRawProcessed(ctx, ids)
	})
	return err
}

func (s *ResilientStore) QueryProcessedByTimeRange(ctx context.Context, since, until time.Time, limit int) ([]*models.ProcessedRecord, error) {
	result, err := s.execute("query_processed_by_time_range", func() (interface{}, error) {
		return s.db.QueryProcessedByTimeRange(ctx, since, until, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.ProcessedRecord), nil
}

func (s *ResilientStore) QueryMetricsByTimeRange(ctx context.Context, since, until time.Time, name string, limit int) ([]*models.MetricPoint, error) {
	result, err := s.execute("query_metrics_by_time_range", func() (interface{}, error) {
		return s.db.QueryMetricsByTimeRange(ctx, since, until, name, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.MetricPoint), nil
}

func (s *ResilientStore) DeleteOlderThan(ctx context.Context, table string, cutoff time.Time) (int64, error) {
	result, err := s.execute("delete_older_than", func() (interface{}, error) {
		return s.db.DeleteOlderThan(ctx, table, cutoff)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func (s *ResilientStore) Stats(ctx context.Context) (*models.StoreStats, error) {
	result, err := s.execute("stats", func() (interface{}, error) {
		return s.db.Stats(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.StoreStats), nil
}

// Ping bypasses the breaker so health checks can observe recovery directly.
func (s *ResilientStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *ResilientStore) Close() error {
	return s.db.Close()
}
