// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

// Package metrics provides Prometheus instrumentation for the ingest path,
// the ETL pipeline, the store, the query cache, and the HTTP API. All
// collectors are registered on the default registry and exposed via
// /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest metrics
	IngestMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_messages_consumed_total",
			Help: "Total number of event messages consumed from the bus",
		},
	)

	IngestMessagesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_messages_stored_total",
			Help: "Total number of events that passed validation and were stored",
		},
	)

	IngestMessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_messages_rejected_total",
			Help: "Total number of events rejected during ingest",
		},
		[]string{"reason"}, // "decode", "validation", "storage"
	)

	IngestWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_warnings_total",
			Help: "Total number of normalization warnings on accepted events",
		},
		[]string{"field"},
	)

	// Pipeline metrics
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "etl_cycle_duration_seconds",
			Help:    "Duration of ETL cycles in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_cycles_total",
			Help: "Total number of ETL cycles",
		},
		[]string{"result"}, // "success", "error"
	)

	RecordsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etl_records_processed_total",
			Help: "Total number of raw records successfully transformed",
		},
	)

	RecordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etl_records_skipped_total",
			Help: "Total number of raw records skipped during transformation",
		},
	)

	RecordsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etl_records_failed_total",
			Help: "Total number of records that failed to persist",
		},
	)

	MetricPointsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etl_metric_points_written_total",
			Help: "Total number of metric points persisted by aggregation passes",
		},
	)

	RetentionRowsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_retention_rows_deleted_total",
			Help: "Total number of rows removed by retention cleanup",
		},
		[]string{"table"},
	)

	LastCycleTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "etl_last_cycle_timestamp",
			Help: "Unix timestamp of the last completed ETL cycle",
		},
	)

	// Store metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Producer metrics
	ProducerEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "producer_events_published_total",
			Help: "Total number of synthetic events published",
		},
	)

	ProducerPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "producer_publish_errors_total",
			Help: "Total number of synthetic event publish failures",
		},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordCycle records one completed ETL cycle.
func RecordCycle(duration time.Duration, err error) {
	CycleDuration.Observe(duration.Seconds())
	if err != nil {
		CyclesTotal.WithLabelValues("error").Inc()
		return
	}
	CyclesTotal.WithLabelValues("success").Inc()
	LastCycleTimestamp.Set(float64(time.Now().Unix()))
}

// RecordDBQuery records one store call.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records one served API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordBreakerTransition records a circuit breaker state change and updates
// the state gauge.
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}
