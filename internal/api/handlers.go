// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

// Package api serves the read-only HTTP surface: health, store and pipeline
// statistics, persisted metric points, on-demand metric summaries, and
// processed record pages. All endpoints share the APIResponse envelope.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/streamlens/streamlens/internal/analytics"
	"github.com/streamlens/streamlens/internal/cache"
	"github.com/streamlens/streamlens/internal/config"
	"github.com/streamlens/streamlens/internal/models"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 10000
)

// Store is the read surface the API queries.
type Store interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (*models.StoreStats, error)
	QueryMetricsByTimeRange(ctx context.Context, since, until time.Time, name string, limit int) ([]*models.MetricPoint, error)
	QueryProcessedByTimeRange(ctx context.Context, since, until time.Time, limit int) ([]*models.ProcessedRecord, error)
}

// Pipeline is the control surface the API exposes.
type Pipeline interface {
	Stats() *models.PipelineStats
	TriggerCycle(ctx context.Context)
}

// Handler serves the HTTP endpoints.
type Handler struct {
	store      Store
	pipeline   Pipeline
	aggregator *analytics.Aggregator
	cache      *cache.Cache
	cfg        *config.Config
	version    string
}

// NewHandler assembles the API handler set.
func NewHandler(store Store, pipeline Pipeline, aggregator *analytics.Aggregator, queryCache *cache.Cache, cfg *config.Config, version string) *Handler {
	return &Handler{
		store:      store,
		pipeline:   pipeline,
		aggregator: aggregator,
		cache:      queryCache,
		cfg:        cfg,
		version:    version,
	}
}

// Health reports liveness: store reachability plus the pipeline running flag.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	storeOK := h.store.Ping(ctx) == nil
	pipelineRunning := h.pipeline.Stats().Running

	status := "ok"
	httpStatus := http.StatusOK
	if !storeOK {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	respondJSON(w, httpStatus, &models.APIResponse{
		Status: "success",
		Data: &models.HealthResponse{
			Status:          status,
			StoreReachable:  storeOK,
			PipelineRunning: pipelineRunning,
			Version:         h.version,
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Stats serves combined store and pipeline statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	storeStats, err := h.store.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to collect store statistics", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: &models.StatsResponse{
			Store:    storeStats,
			Pipeline: h.pipeline.Stats(),
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(started).Milliseconds(),
		},
	})
}

// metricsQuery are the validated query parameters of /api/v1/metrics.
type metricsQuery struct {
	Name  string `validate:"omitempty,max=128"`
	Limit int    `validate:"min=1,max=10000"`
}

// Metrics serves persisted metric points filtered by name and time range.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	q := metricsQuery{
		Name:  r.URL.Query().Get("name"),
		Limit: getIntParam(r, "limit", defaultQueryLimit),
	}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	since, until, ok := h.timeRange(w, r, 24*time.Hour)
	if !ok {
		return
	}

	points, err := h.store.QueryMetricsByTimeRange(r.Context(), since, until, q.Name, q.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query metric points", err)
		return
	}
	if points == nil {
		points = []*models.MetricPoint{}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   points,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(started).Milliseconds(),
		},
	})
}

// MetricsSummary aggregates the trailing window on demand. Responses are
// cached for the configured TTL, so dashboards polling this endpoint do not
// re-aggregate on every request.
func (h *Handler) MetricsSummary(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	now := time.Now()

	window := analytics.Window{
		Start: now.Add(-h.cfg.ETL.AggregationWindow),
		End:   now,
	}

	key := cache.GenerateKey("metrics/summary", window.Label())
	if cached, ok := h.cache.Get(key); ok {
		respondJSON(w, http.StatusOK, &models.APIResponse{
			Status: "success",
			Data:   cached,
			Metadata: models.Metadata{
				Timestamp: time.Now(),
				Cached:    true,
			},
		})
		return
	}

	records, err := h.store.QueryProcessedByTimeRange(r.Context(), window.Start, window.End, maxQueryLimit*10)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query processed records", err)
		return
	}

	set, err := h.aggregator.Aggregate(records, window)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Aggregation failed", err)
		return
	}

	rounded := set.Rounded()
	h.cache.Set(key, rounded)

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   rounded,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(started).Milliseconds(),
		},
	})
}

// recordsQuery are the validated query parameters of /api/v1/records.
type recordsQuery struct {
	Limit int `validate:"min=1,max=10000"`
}

// Records serves a page of processed records.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	q := recordsQuery{Limit: getIntParam(r, "limit", defaultQueryLimit)}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	since, until, ok := h.timeRange(w, r, time.Hour)
	if !ok {
		return
	}

	records, err := h.store.QueryProcessedByTimeRange(r.Context(), since, until, q.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query processed records", err)
		return
	}
	if records == nil {
		records = []*models.ProcessedRecord{}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   records,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(started).Milliseconds(),
		},
	})
}

// TriggerPipeline runs one ETL cycle synchronously and returns the updated
// pipeline counters.
func (h *Handler) TriggerPipeline(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	h.pipeline.TriggerCycle(r.Context())

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   h.pipeline.Stats(),
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(started).Milliseconds(),
		},
	})
}

// timeRange resolves the since/until query parameters, defaulting to the
// trailing span ending now. Responds with a validation error when a
// parameter is malformed or the range is inverted.
func (h *Handler) timeRange(w http.ResponseWriter, r *http.Request, span time.Duration) (time.Time, time.Time, bool) {
	now := time.Now()

	until, err := getTimeParam(r, "until", now)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return time.Time{}, time.Time{}, false
	}

	since, err := getTimeParam(r, "since", until.Add(-span))
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return time.Time{}, time.Time{}, false
	}

	if !since.Before(until) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "since must be before until", nil)
		return time.Time{}, time.Time{}, false
	}

	return since, until, true
}
