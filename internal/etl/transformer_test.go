// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package etl

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/streamlens/streamlens/internal/models"
)

func normalized(kind models.EventKind) *models.NormalizedRecord {
	return &models.NormalizedRecord{
		ID:        uuid.New(),
		Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		EventKind: kind,
		Severity:  models.SeverityInfo,
		UserID:    models.StrPtr("user_1"),
	}
}

func TestTransformEventMapping(t *testing.T) {
	t.Parallel()

	tr := NewTransformer(FixedDuration(60))
	now := time.Now()

	tests := []struct {
		kind models.EventKind
		want string
	}{
		{models.EventPlay, models.EventTypePlayStarted},
		{models.EventPause, models.EventTypePlaybackPaused},
		{models.EventStop, models.EventTypePlaybackStopped},
		{models.EventError, models.EventTypePlaybackError},
		{models.EventSeek, models.EventTypePlaybackSeek},
		{models.EventQualityChange, models.EventTypeQualityChanged},
		{models.EventKind("rewind"), models.EventTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()

			out, _, err := tr.Transform(normalized(tt.kind), now)
			if err != nil {
				t.Fatalf("Transform() error = %v", err)
			}
			if out.EventType != tt.want {
				t.Errorf("event type = %q, want %q", out.EventType, tt.want)
			}
		})
	}
}

func TestTransformDurationOnlyForPlaybackEvents(t *testing.T) {
	t.Parallel()

	tr := NewTransformer(FixedDuration(120))
	now := time.Now()

	withDuration := []models.EventKind{models.EventPlay, models.EventPause, models.EventStop}
	for _, kind := range withDuration {
		out, _, err := tr.Transform(normalized(kind), now)
		if err != nil {
			t.Fatalf("Transform(%s) error = %v", kind, err)
		}
		if out.DurationSec == nil || *out.DurationSec != 120 {
			t.Errorf("%s: duration = %v, want 120", kind, out.DurationSec)
		}
	}

	withoutDuration := []models.EventKind{models.EventSeek, models.EventQualityChange, models.EventError}
	for _, kind := range withoutDuration {
		out, _, err := tr.Transform(normalized(kind), now)
		if err != nil {
			t.Fatalf("Transform(%s) error = %v", kind, err)
		}
		if out.DurationSec != nil {
			t.Errorf("%s: duration = %v, want nil", kind, *out.DurationSec)
		}
	}
}

func TestTransformPrefersRecordDuration(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	tr := NewTransformer(NewFieldOrSynthesized(rng))

	rec := normalized(models.EventPlay)
	rec.DurationSec = models.IntPtr(777)

	out, _, err := tr.Transform(rec, time.Now())
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if out.DurationSec == nil || *out.DurationSec != 777 {
		t.Errorf("duration = %v, want 777", out.DurationSec)
	}
}

func TestFieldOrSynthesizedBounds(t *testing.T) {
	t.Parallel()

	policy := NewFieldOrSynthesized(rand.New(rand.NewSource(42)))
	rec := normalized(models.EventPlay)

	for i := 0; i < 1000; i++ {
		d := policy.Duration(rec)
		if d == nil {
			t.Fatal("expected synthesized duration")
		}
		if *d < 1 || *d > 3600 {
			t.Fatalf("synthesized duration %d outside [1, 3600]", *d)
		}
	}
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		want    string
	}{
		{"Network timeout while buffering", models.ErrorClassNetwork},
		{"connection reset by peer", models.ErrorClassNetwork},
		{"playback stalled on segment 14", models.ErrorClassPlayback},
		{"corrupt media chunk", models.ErrorClassPlayback},
		{"authentication token expired", models.ErrorClassAuthentication},
		{"login required", models.ErrorClassAuthentication},
		{"stream manifest not found", models.ErrorClassContentMissing},
		{"upstream returned 404", models.ErrorClassContentMissing},
		{"segfault in decoder", models.ErrorClassUnknown},
		{"", models.ErrorClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyError(tt.message); got != tt.want {
				t.Errorf("ClassifyError(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestTransformClassifiesErrorEvents(t *testing.T) {
	t.Parallel()

	tr := NewTransformer(FixedDuration(1))

	rec := normalized(models.EventError)
	rec.ErrorMessage = models.StrPtr("network unreachable")

	out, _, err := tr.Transform(rec, time.Now())
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if out.ErrorType == nil || *out.ErrorType != models.ErrorClassNetwork {
		t.Errorf("error type = %v, want network_error", out.ErrorType)
	}

	// A type already present on the record wins; the message is not rescanned.
	preset := normalized(models.EventError)
	preset.ErrorType = models.StrPtr("drm_error")
	preset.ErrorMessage = models.StrPtr("license expired")
	out, _, err = tr.Transform(preset, time.Now())
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if out.ErrorType == nil || *out.ErrorType != "drm_error" {
		t.Errorf("error type = %v, want preset drm_error kept", out.ErrorType)
	}

	// Non-error events never get an error class, even with a message set.
	play := normalized(models.EventPlay)
	play.ErrorMessage = models.StrPtr("network unreachable")
	out, _, err = tr.Transform(play, time.Now())
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if out.ErrorType != nil {
		t.Errorf("error type = %v, want nil for play event", *out.ErrorType)
	}
}

func TestTransformResponseTimeClamp(t *testing.T) {
	t.Parallel()

	tr := NewTransformer(FixedDuration(1))
	now := time.Now()

	tests := []struct {
		name         string
		input        *int
		want         *int
		wantWarnings int
	}{
		{"below minimum", models.IntPtr(50), models.IntPtr(100), 1},
		{"at minimum", models.IntPtr(100), models.IntPtr(100), 0},
		{"in range", models.IntPtr(2500), models.IntPtr(2500), 0},
		{"at maximum", models.IntPtr(5000), models.IntPtr(5000), 0},
		{"above maximum", models.IntPtr(9000), models.IntPtr(5000), 1},
		{"absent", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := normalized(models.EventPlay)
			rec.ResponseTimeMS = tt.input

			out, warnings, err := tr.Transform(rec, now)
			if err != nil {
				t.Fatalf("Transform() error = %v", err)
			}
			if len(warnings) != tt.wantWarnings {
				t.Errorf("warnings = %v, want %d", warnings, tt.wantWarnings)
			}
			switch {
			case tt.want == nil && out.ResponseTimeMS != nil:
				t.Errorf("response time = %v, want nil", *out.ResponseTimeMS)
			case tt.want != nil && (out.ResponseTimeMS == nil || *out.ResponseTimeMS != *tt.want):
				t.Errorf("response time = %v, want %d", out.ResponseTimeMS, *tt.want)
			}
		})
	}
}

func TestTransformBatchIsolation(t *testing.T) {
	t.Parallel()

	tr := NewTransformer(FixedDuration(1))

	records := []*models.NormalizedRecord{
		normalized(models.EventPlay),
		nil, // fails, must not abort the batch
		normalized(models.EventStop),
	}

	result := tr.TransformBatch(records, time.Now())

	if len(result.Processed) != 2 {
		t.Errorf("processed = %d, want 2", len(result.Processed))
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}
	if len(result.Processed)+result.Skipped != len(records) {
		t.Error("processed + skipped must equal input size")
	}
}
