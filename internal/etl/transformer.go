// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

// Package etl implements the transformation stage and the cycle scheduler of
// the Streamlens pipeline. Normalized raw records become analytics-ready
// processed records, which the analytics package aggregates into metrics.
package etl

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamlens/streamlens/internal/models"
	"github.com/streamlens/streamlens/internal/parser"
)

// Response time bounds in milliseconds. Values outside are clamped with a
// warning rather than rejected.
const (
	minResponseTimeMS = 100
	maxResponseTimeMS = 5000
)

// eventTypeFor maps raw event kinds to domain event names.
func eventTypeFor(kind models.EventKind) string {
	switch kind {
	case models.EventPlay:
		return models.EventTypePlayStarted
	case models.EventPause:
		return models.EventTypePlaybackPaused
	case models.EventStop:
		return models.EventTypePlaybackStopped
	case models.EventError:
		return models.EventTypePlaybackError
	case models.EventSeek:
		return models.EventTypePlaybackSeek
	case models.EventQualityChange:
		return models.EventTypeQualityChanged
	default:
		return models.EventTypeUnknown
	}
}

// carriesDuration reports whether the event kind has a meaningful playback
// duration.
func carriesDuration(kind models.EventKind) bool {
	return kind == models.EventPlay || kind == models.EventPause || kind == models.EventStop
}

// ClassifyError assigns an error class from keywords in the error message.
// Matching is case-insensitive; the first matching class wins.
func ClassifyError(message string) string {
	msg := strings.ToLower(message)

	switch {
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection"):
		return models.ErrorClassNetwork
	case strings.Contains(msg, "playback") || strings.Contains(msg, "media"):
		return models.ErrorClassPlayback
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login"):
		return models.ErrorClassAuthentication
	case strings.Contains(msg, "not found") || strings.Contains(msg, "404"):
		return models.ErrorClassContentMissing
	default:
		return models.ErrorClassUnknown
	}
}

// Transformer turns normalized records into processed records.
type Transformer struct {
	durations DurationPolicy
}

// NewTransformer creates a transformer with the given duration policy.
func NewTransformer(durations DurationPolicy) *Transformer {
	return &Transformer{durations: durations}
}

// Transform produces the processed form of a single record. now stamps
// ProcessedAt. A clamped response time yields a warning.
func (t *Transformer) Transform(rec *models.NormalizedRecord, now time.Time) (*models.ProcessedRecord, []parser.Warning, error) {
	if rec == nil {
		return nil, nil, fmt.Errorf("transform: nil record")
	}

	var warnings []parser.Warning

	out := &models.ProcessedRecord{
		ID:          uuid.New(),
		RawRecordID: rec.ID,
		Timestamp:   rec.Timestamp,
		EventType:   eventTypeFor(rec.EventKind),

		UserID:       rec.UserID,
		SessionID:    rec.SessionID,
		ContentID:    rec.ContentID,
		ContentTitle: rec.ContentTitle,
		DeviceType:   rec.DeviceType,
		Platform:     rec.Platform,
		Country:      rec.Country,

		Quality:     rec.Quality,
		ProcessedAt: now.UTC(),
	}

	if carriesDuration(rec.EventKind) {
		out.DurationSec = t.durations.Duration(rec)
	}

	if rec.EventKind == models.EventError {
		// A preset error type wins; the message scan is only a fallback.
		if rec.ErrorType != nil && *rec.ErrorType != "" {
			v := *rec.ErrorType
			out.ErrorType = &v
		} else {
			msg := ""
			if rec.ErrorMessage != nil {
				msg = *rec.ErrorMessage
			}
			class := ClassifyError(msg)
			out.ErrorType = &class
		}
	}

	if rec.ResponseTimeMS != nil {
		v := *rec.ResponseTimeMS
		switch {
		case v < minResponseTimeMS:
			warnings = append(warnings, parser.Warning{
				Field:  "response_time_ms",
				Reason: fmt.Sprintf("clamped %d to %d", v, minResponseTimeMS),
			})
			v = minResponseTimeMS
		case v > maxResponseTimeMS:
			warnings = append(warnings, parser.Warning{
				Field:  "response_time_ms",
				Reason: fmt.Sprintf("clamped %d to %d", v, maxResponseTimeMS),
			})
			v = maxResponseTimeMS
		}
		out.ResponseTimeMS = &v
	}

	return out, warnings, nil
}

// BatchResult reports the outcome of a batch transformation. Processed and
// Skipped always account for every input record.
type BatchResult struct {
	Processed []*models.ProcessedRecord
	Skipped   int
	Warnings  []parser.Warning
}

// TransformBatch transforms records independently: a failing record is
// skipped and counted, never aborting the batch.
func (t *Transformer) TransformBatch(records []*models.NormalizedRecord, now time.Time) *BatchResult {
	result := &BatchResult{
		Processed: make([]*models.ProcessedRecord, 0, len(records)),
	}

	for _, rec := range records {
		out, warnings, err := t.Transform(rec, now)
		if err != nil {
			result.Skipped++
			continue
		}
		result.Warnings = append(result.Warnings, warnings...)
		result.Processed = append(result.Processed, out)
	}

	return result
}
