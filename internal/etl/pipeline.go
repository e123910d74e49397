// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package etl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamlens/streamlens/internal/analytics"
	"github.com/streamlens/streamlens/internal/config"
	"github.com/streamlens/streamlens/internal/logging"
	"github.com/streamlens/streamlens/internal/metrics"
	"github.com/streamlens/streamlens/internal/models"
)

// retentionTables are the tables swept by the periodic retention cleanup.
var retentionTables = []string{"raw_records", "processed_records", "metric_points"}

// Store is the persistence surface the pipeline drives. Implemented by
// database.DB and database.ResilientStore.
type Store interface {
	QueryUnprocessedRaw(ctx context.Context, since, until time.Time, limit int) ([]*models.NormalizedRecord, error)
	MarkRawProcessed(ctx context.Context, ids []uuid.UUID) error
	InsertProcessedRecord(ctx context.Context, rec *models.ProcessedRecord) error
	QueryProcessedByTimeRange(ctx context.Context, since, until time.Time, limit int) ([]*models.ProcessedRecord, error)
	InsertMetricPoints(ctx context.Context, points []*models.MetricPoint) error
	DeleteOlderThan(ctx context.Context, table string, cutoff time.Time) (int64, error)
}

// Pipeline runs the periodic ETL cycle: fetch unprocessed raw records,
// transform them, persist the results, aggregate the trailing window into
// metric points, and sweep expired rows. A single worker runs cycles back
// to back, so they never overlap.
type Pipeline struct {
	store       Store
	transformer *Transformer
	aggregator  *analytics.Aggregator
	cfg         *config.ETLConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	processedCount int64
	skippedCount   int64
	errorCount     int64
	cycleCount     int64
	lastCycleTime  *time.Time
}

// NewPipeline assembles a pipeline from its stages.
func NewPipeline(store Store, transformer *Transformer, aggregator *analytics.Aggregator, cfg *config.ETLConfig) *Pipeline {
	return &Pipeline{
		store:       store,
		transformer: transformer,
		aggregator:  aggregator,
		cfg:         cfg,
	}
}

// Start begins the cycle loop. Idempotent; a running pipeline is left alone.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.mu.Unlock()

	logging.Info().
		Dur("interval", p.cfg.Interval).
		Int("batch_size", p.cfg.BatchSize).
		Dur("lookback", p.cfg.Lookback).
		Dur("aggregation_window", p.cfg.AggregationWindow).
		Msg("Starting ETL pipeline")

	p.wg.Add(1)
	go p.cycleLoop(ctx)

	return nil
}

// Stop halts the cycle loop and waits for an in-flight cycle to finish.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	logging.Info().Msg("ETL pipeline stopped")
}

// cycleLoop runs cycles so that the next one starts interval after the
// previous one began. An overrun cycle is followed immediately rather than
// letting delays accumulate.
func (p *Pipeline) cycleLoop(ctx context.Context) {
	defer p.wg.Done()

	for {
		started := time.Now()
		p.runCycle(ctx)

		wait := p.cfg.Interval - time.Since(started)
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.stopChan:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// TriggerCycle runs a single cycle immediately on the caller's goroutine.
func (p *Pipeline) TriggerCycle(ctx context.Context) {
	p.runCycle(ctx)
}

// runCycle executes one full ETL pass. Phase errors are logged and counted;
// the loop itself never dies.
func (p *Pipeline) runCycle(ctx context.Context) {
	started := time.Now()
	err := p.cycle(ctx, started)
	metrics.RecordCycle(time.Since(started), err)

	p.mu.Lock()
	p.cycleCount++
	p.lastCycleTime = &started
	cycles := p.cycleCount
	if err != nil {
		p.errorCount++
	}
	p.mu.Unlock()

	if err != nil {
		logging.Error().Err(err).Int64("cycle", cycles).Msg("ETL cycle failed")
	}

	if cycles%int64(p.cfg.CleanupEveryCycle) == 0 {
		p.runRetention(ctx, started)
	}
}

func (p *Pipeline) cycle(ctx context.Context, now time.Time) error {
	batch, err := p.store.QueryUnprocessedRaw(ctx, now.Add(-p.cfg.Lookback), now, p.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch unprocessed records: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}

	result := p.transformer.TransformBatch(batch, now)
	for _, w := range result.Warnings {
		logging.Debug().Str("field", w.Field).Str("reason", w.Reason).Msg("Transform warning")
	}

	stored := 0
	var failed int64
	for _, rec := range result.Processed {
		if err := p.store.InsertProcessedRecord(ctx, rec); err != nil {
			failed++
			logging.Warn().Err(err).Str("record_id", rec.ID.String()).Msg("Failed to persist processed record")
			continue
		}
		stored++
	}
	metrics.RecordsProcessed.Add(float64(stored))
	metrics.RecordsSkipped.Add(float64(result.Skipped))
	metrics.RecordsFailed.Add(float64(failed))

	p.mu.Lock()
	p.processedCount += int64(stored)
	p.skippedCount += int64(result.Skipped)
	p.errorCount += failed
	p.mu.Unlock()

	// Skipped records are marked too; a record that failed validation once
	// will fail it every time, so retrying is pointless.
	ids := make([]uuid.UUID, len(batch))
	for i, rec := range batch {
		ids[i] = rec.ID
	}
	if err := p.store.MarkRawProcessed(ctx, ids); err != nil {
		return fmt.Errorf("failed to mark batch processed: %w", err)
	}

	logging.Debug().
		Int("fetched", len(batch)).
		Int("stored", stored).
		Int("skipped", result.Skipped).
		Msg("ETL cycle transformed batch")

	if stored == 0 {
		return nil
	}
	return p.aggregate(ctx, now)
}

// aggregate computes metrics over the trailing aggregation window and
// persists the resulting points.
func (p *Pipeline) aggregate(ctx context.Context, now time.Time) error {
	window := analytics.Window{Start: now.Add(-p.cfg.AggregationWindow), End: now}

	records, err := p.store.QueryProcessedByTimeRange(ctx, window.Start, window.End, maxAggregationRecords)
	if err != nil {
		return fmt.Errorf("failed to fetch processed records for aggregation: %w", err)
	}

	set, err := p.aggregator.Aggregate(records, window)
	if err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}

	points := set.ToPoints(now, window.Label())
	if err := p.store.InsertMetricPoints(ctx, points); err != nil {
		return fmt.Errorf("failed to persist metric points: %w", err)
	}
	metrics.MetricPointsWritten.Add(float64(len(points)))

	logging.Debug().
		Int("records", set.Records).
		Int("points", len(points)).
		Str("window", window.Label()).
		Msg("Aggregation pass completed")

	return nil
}

// maxAggregationRecords caps how many processed records one aggregation pass
// reads. Windows are short, so this is a safety valve, not a working limit.
const maxAggregationRecords = 100000

// runRetention sweeps rows older than the retention cutoff from all tables.
func (p *Pipeline) runRetention(ctx context.Context, now time.Time) {
	cutoff := p.cfg.RetentionCutoff(now)

	for _, table := range retentionTables {
		deleted, err := p.store.DeleteOlderThan(ctx, table, cutoff)
		if err != nil {
			logging.Warn().Err(err).Str("table", table).Msg("Retention cleanup failed")
			continue
		}
		if deleted > 0 {
			metrics.RetentionRowsDeleted.WithLabelValues(table).Add(float64(deleted))
			logging.Info().Str("table", table).Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Retention cleanup removed expired rows")
		}
	}
}

// Stats returns a consistent snapshot of the pipeline counters.
func (p *Pipeline) Stats() *models.PipelineStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := &models.PipelineStats{
		ProcessedCount: p.processedCount,
		SkippedCount:   p.skippedCount,
		ErrorCount:     p.errorCount,
		CycleCount:     p.cycleCount,
		Running:        p.running,
		LastCycleTime:  p.lastCycleTime,
	}

	total := p.processedCount + p.errorCount
	if total > 0 {
		stats.SuccessRate = models.Round2(float64(p.processedCount) / float64(total) * 100)
	}

	return stats
}
