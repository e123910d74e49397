// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package parser

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/streamlens/streamlens/internal/models"
)

func validRaw() *models.RawRecord {
	return &models.RawRecord{
		Timestamp: "2026-08-30T12:00:00Z",
		EventKind: "play",
		Severity:  "INFO",
		UserID:    models.StrPtr("user_42"),
	}
}

func TestNormalizeValidRecord(t *testing.T) {
	t.Parallel()

	rec, warnings, err := Normalize(validRaw())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Normalize() warnings = %v, want none", warnings)
	}

	want := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if !rec.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp, want)
	}
	if rec.EventKind != models.EventPlay {
		t.Errorf("event kind = %q, want play", rec.EventKind)
	}
	if rec.Severity != models.SeverityInfo {
		t.Errorf("severity = %q, want INFO", rec.Severity)
	}
}

func TestNormalizeMissingRequiredFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*models.RawRecord)
		wantField string
	}{
		{"missing timestamp", func(r *models.RawRecord) { r.Timestamp = "" }, "timestamp"},
		{"blank timestamp", func(r *models.RawRecord) { r.Timestamp = "   " }, "timestamp"},
		{"missing log type", func(r *models.RawRecord) { r.EventKind = "" }, "log_type"},
		{"missing log level", func(r *models.RawRecord) { r.Severity = "" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw := validRaw()
			tt.mutate(raw)

			rec, _, err := Normalize(raw)
			if rec != nil {
				t.Error("expected no record on validation failure")
			}

			var missing *MissingFieldError
			if !errors.As(err, &missing) {
				t.Fatalf("error = %v, want MissingFieldError", err)
			}
			if missing.Field != tt.wantField {
				t.Errorf("field = %q, want %q", missing.Field, tt.wantField)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("expected error to match ErrValidation")
			}
		})
	}
}

func TestNormalizeMalformedTimestamp(t *testing.T) {
	t.Parallel()

	raw := validRaw()
	raw.Timestamp = "30/08/2026 12:00"

	_, _, err := Normalize(raw)

	var malformed *MalformedTimestampError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want MalformedTimestampError", err)
	}
	if malformed.Value != "30/08/2026 12:00" {
		t.Errorf("value = %q", malformed.Value)
	}
}

func TestNormalizeRejectsUnknownEnums(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*models.RawRecord)
		wantField string
		wantValue string
	}{
		{"unknown event kind", func(r *models.RawRecord) { r.EventKind = "purchase" }, "log_type", "purchase"},
		{"unknown severity", func(r *models.RawRecord) { r.Severity = "FATAL" }, "log_level", "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw := validRaw()
			tt.mutate(raw)

			rec, _, err := Normalize(raw)
			if rec != nil {
				t.Error("expected no record for out-of-enumeration value")
			}

			var invalid *InvalidEnumError
			if !errors.As(err, &invalid) {
				t.Fatalf("error = %v, want InvalidEnumError", err)
			}
			if invalid.Field != tt.wantField {
				t.Errorf("field = %q, want %q", invalid.Field, tt.wantField)
			}
			if invalid.Value != tt.wantValue {
				t.Errorf("value = %q, want %q", invalid.Value, tt.wantValue)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("expected error to match ErrValidation")
			}
		})
	}
}

func TestNormalizeSessionSynthesis(t *testing.T) {
	t.Parallel()

	raw := validRaw()
	raw.Timestamp = "2026-08-30 12:00:00"

	rec, _, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if rec.SessionID == nil {
		t.Fatal("expected synthesized session ID")
	}
	wantUnix := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC).Unix()
	want := "user_42_" + strconv.FormatInt(wantUnix, 10)
	if *rec.SessionID != want {
		t.Errorf("session ID = %q, want %q", *rec.SessionID, want)
	}
}

func TestNormalizeKeepsExplicitSession(t *testing.T) {
	t.Parallel()

	raw := validRaw()
	raw.SessionID = models.StrPtr("sess_abc")

	rec, _, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if rec.SessionID == nil || *rec.SessionID != "sess_abc" {
		t.Errorf("session ID = %v, want sess_abc", rec.SessionID)
	}
}

func TestNormalizeNoSessionWithoutUser(t *testing.T) {
	t.Parallel()

	raw := validRaw()
	raw.UserID = nil

	rec, _, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if rec.SessionID != nil {
		t.Errorf("session ID = %v, want nil", rec.SessionID)
	}
}

func TestNormalizeDropsNegativeNumerics(t *testing.T) {
	t.Parallel()

	raw := validRaw()
	raw.DurationSec = models.IntPtr(-10)
	raw.ResponseTimeMS = models.IntPtr(-1)
	raw.PositionSec = models.IntPtr(30)

	rec, warnings, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if rec.DurationSec != nil {
		t.Error("negative duration should be dropped")
	}
	if rec.ResponseTimeMS != nil {
		t.Error("negative response time should be dropped")
	}
	if rec.PositionSec == nil || *rec.PositionSec != 30 {
		t.Error("valid position should survive")
	}
	if len(warnings) != 2 {
		t.Errorf("warnings = %v, want 2", warnings)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "rfc3339 utc",
			input: "2026-08-30T08:15:00Z",
			want:  time.Date(2026, 8, 30, 8, 15, 0, 0, time.UTC),
		},
		{
			name:  "rfc3339 with offset",
			input: "2026-08-30T10:15:00+02:00",
			want:  time.Date(2026, 8, 30, 8, 15, 0, 0, time.UTC),
		},
		{
			name:  "space separated",
			input: "2026-08-30 08:15:00",
			want:  time.Date(2026, 8, 30, 8, 15, 0, 0, time.UTC),
		},
		{name: "garbage", input: "yesterday", wantErr: true},
		{name: "epoch number", input: "1756541700", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimestamp(%q) error = %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
