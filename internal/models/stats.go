// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package models

import "time"

// TableStats describes one store table.
type TableStats struct {
	Rows   int64      `json:"rows"`
	Latest *time.Time `json:"latest,omitempty"`
}

// StoreStats is a point-in-time snapshot of the analytical store.
type StoreStats struct {
	RawRecords       TableStats `json:"raw_records"`
	ProcessedRecords TableStats `json:"processed_records"`
	MetricPoints     TableStats `json:"metric_points"`
	FileSizeBytes    int64      `json:"file_size_bytes"`
	CollectedAt      time.Time  `json:"collected_at"`
}

// PipelineStats is a consistent snapshot of the ETL pipeline counters.
// SuccessRate is a percentage over processed+failed records.
type PipelineStats struct {
	ProcessedCount int64      `json:"processed_count"`
	SkippedCount   int64      `json:"skipped_count"`
	ErrorCount     int64      `json:"error_count"`
	SuccessRate    float64    `json:"success_rate"`
	CycleCount     int64      `json:"cycle_count"`
	Running        bool       `json:"running"`
	LastCycleTime  *time.Time `json:"last_cycle_time,omitempty"`
}
