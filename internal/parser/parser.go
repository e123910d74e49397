// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

// Package parser validates and normalizes raw playback events before they
// enter the store. Normalize is pure apart from the warnings it returns;
// callers decide how to surface them.
package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamlens/streamlens/internal/models"
)

// Accepted textual timestamp layouts, tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Warning flags a non-fatal irregularity found during normalization.
type Warning struct {
	Field  string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Field, w.Reason)
}

// Normalize validates a raw record and produces its normalized form.
//
// Required fields are timestamp, log type, and log level; a missing one fails
// with MissingFieldError. An unparseable timestamp fails with
// MalformedTimestampError. An event kind or severity outside the closed
// enumerations fails with InvalidEnumError; only the advisory categorical
// fields (title, device, platform, country and the like) pass through
// unchecked. When the record carries a user but no session, a session ID of
// the form "<user_id>_<unix_seconds>" is synthesized from the event
// timestamp.
func Normalize(raw *models.RawRecord) (*models.NormalizedRecord, []Warning, error) {
	if strings.TrimSpace(raw.Timestamp) == "" {
		return nil, nil, &MissingFieldError{Field: "timestamp"}
	}
	if strings.TrimSpace(raw.EventKind) == "" {
		return nil, nil, &MissingFieldError{Field: "log_type"}
	}
	if strings.TrimSpace(raw.Severity) == "" {
		return nil, nil, &MissingFieldError{Field: "log_level"}
	}

	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return nil, nil, err
	}

	kind := models.EventKind(raw.EventKind)
	if !kind.Valid() {
		return nil, nil, &InvalidEnumError{Field: "log_type", Value: raw.EventKind}
	}

	severity := models.Severity(raw.Severity)
	if !severity.Valid() {
		return nil, nil, &InvalidEnumError{Field: "log_level", Value: raw.Severity}
	}

	var warnings []Warning

	rec := &models.NormalizedRecord{
		ID:        uuid.New(),
		Timestamp: ts,
		EventKind: kind,
		Severity:  severity,

		UserID:       raw.UserID,
		SessionID:    raw.SessionID,
		ContentID:    raw.ContentID,
		ContentTitle: raw.ContentTitle,
		ContentType:  raw.ContentType,
		DeviceType:   raw.DeviceType,
		Platform:     raw.Platform,
		Country:      raw.Country,
		IPAddress:    raw.IPAddress,
		UserAgent:    raw.UserAgent,

		DurationSec:    raw.DurationSec,
		PositionSec:    raw.PositionSec,
		Quality:        raw.Quality,
		ErrorType:      raw.ErrorType,
		ErrorMessage:   raw.ErrorMessage,
		ResponseTimeMS: raw.ResponseTimeMS,

		CreatedAt: time.Now().UTC(),
	}

	if rec.SessionID == nil && rec.UserID != nil && *rec.UserID != "" {
		sid := fmt.Sprintf("%s_%d", *rec.UserID, ts.Unix())
		rec.SessionID = &sid
	}

	warnings = append(warnings, clearNegatives(rec)...)

	return rec, warnings, nil
}

// clearNegatives drops negative numeric fields, each with a warning.
func clearNegatives(rec *models.NormalizedRecord) []Warning {
	var warnings []Warning

	if rec.DurationSec != nil && *rec.DurationSec < 0 {
		warnings = append(warnings, Warning{Field: "duration", Reason: "negative value dropped"})
		rec.DurationSec = nil
	}
	if rec.PositionSec != nil && *rec.PositionSec < 0 {
		warnings = append(warnings, Warning{Field: "position", Reason: "negative value dropped"})
		rec.PositionSec = nil
	}
	if rec.ResponseTimeMS != nil && *rec.ResponseTimeMS < 0 {
		warnings = append(warnings, Warning{Field: "response_time_ms", Reason: "negative value dropped"})
		rec.ResponseTimeMS = nil
	}

	return warnings
}

// ParseTimestamp parses a textual timestamp into a UTC instant. RFC 3339 and
// "2006-01-02 15:04:05" (assumed UTC) are accepted.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}

	return time.Time{}, &MalformedTimestampError{Value: value}
}
