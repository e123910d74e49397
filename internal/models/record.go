// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

// Package models defines data structures shared across the Streamlens pipeline:
// raw and normalized playback events, processed analytics records, metric
// points, and API response envelopes.
package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind is the kind of a raw playback event as emitted by a streaming client.
type EventKind string

// Known event kinds. Unknown values survive normalization (with a warning)
// and are mapped to unknown_event by the transformer.
const (
	EventPlay          EventKind = "play"
	EventPause         EventKind = "pause"
	EventStop          EventKind = "stop"
	EventError         EventKind = "error"
	EventSeek          EventKind = "seek"
	EventQualityChange EventKind = "quality_change"
)

// Valid reports whether the kind is one of the known event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventPlay, EventPause, EventStop, EventError, EventSeek, EventQualityChange:
		return true
	default:
		return false
	}
}

// Severity is the log level attached to a raw event.
type Severity string

// Known severities.
const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
	SeverityDebug   Severity = "DEBUG"
)

// Valid reports whether the severity is one of the known levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityDebug:
		return true
	default:
		return false
	}
}

// Domain event type names produced by the transformer.
const (
	EventTypePlayStarted     = "play_started"
	EventTypePlaybackPaused  = "playback_paused"
	EventTypePlaybackStopped = "playback_stopped"
	EventTypePlaybackError   = "playback_error"
	EventTypePlaybackSeek    = "playback_seek"
	EventTypeQualityChanged  = "quality_changed"
	EventTypeUnknown         = "unknown_event"
)

// Error classes assigned by the transformer from error message keywords.
const (
	ErrorClassNetwork        = "network_error"
	ErrorClassPlayback       = "playback_error"
	ErrorClassAuthentication = "authentication_error"
	ErrorClassContentMissing = "content_not_found"
	ErrorClassUnknown        = "unknown_error"
)

// RawRecord is the wire form of an ingested playback event. The timestamp is
// textual as received; optional fields are pointers so that absent and empty
// stay distinguishable. Validation and normalization happen in the parser
// package before anything is persisted.
type RawRecord struct {
	Timestamp string `json:"timestamp"`
	EventKind string `json:"log_type"`
	Severity  string `json:"log_level"`

	UserID       *string `json:"user_id,omitempty"`
	SessionID    *string `json:"session_id,omitempty"`
	ContentID    *string `json:"content_id,omitempty"`
	ContentTitle *string `json:"content_title,omitempty"`
	ContentType  *string `json:"content_type,omitempty"`
	DeviceType   *string `json:"device_type,omitempty"`
	Platform     *string `json:"platform,omitempty"`
	Country      *string `json:"country,omitempty"`
	IPAddress    *string `json:"ip_address,omitempty"`
	UserAgent    *string `json:"user_agent,omitempty"`

	DurationSec    *int    `json:"duration,omitempty"`
	PositionSec    *int    `json:"position,omitempty"`
	Quality        *string `json:"quality,omitempty"`
	ErrorType      *string `json:"error_type,omitempty"`
	ErrorMessage   *string `json:"error_message,omitempty"`
	ResponseTimeMS *int    `json:"response_time_ms,omitempty"`
}

// NormalizedRecord is a RawRecord that passed validation: the timestamp is an
// absolute instant, enums are typed, and a session ID has been synthesized
// when the event carried a user but no session.
type NormalizedRecord struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	EventKind EventKind `json:"log_type"`
	Severity  Severity  `json:"log_level"`

	UserID       *string `json:"user_id,omitempty"`
	SessionID    *string `json:"session_id,omitempty"`
	ContentID    *string `json:"content_id,omitempty"`
	ContentTitle *string `json:"content_title,omitempty"`
	ContentType  *string `json:"content_type,omitempty"`
	DeviceType   *string `json:"device_type,omitempty"`
	Platform     *string `json:"platform,omitempty"`
	Country      *string `json:"country,omitempty"`
	IPAddress    *string `json:"ip_address,omitempty"`
	UserAgent    *string `json:"user_agent,omitempty"`

	DurationSec    *int    `json:"duration,omitempty"`
	PositionSec    *int    `json:"position,omitempty"`
	Quality        *string `json:"quality,omitempty"`
	ErrorType      *string `json:"error_type,omitempty"`
	ErrorMessage   *string `json:"error_message,omitempty"`
	ResponseTimeMS *int    `json:"response_time_ms,omitempty"`

	// Processed is set once the ETL cycle has consumed this record.
	Processed bool      `json:"processed"`
	CreatedAt time.Time `json:"created_at"`
}

// ProcessedRecord is the analytics-ready form produced by the transformer.
// EventType is a domain event name, the error type is classified, and the
// response time is clamped to the accepted range.
type ProcessedRecord struct {
	ID          uuid.UUID `json:"id"`
	RawRecordID uuid.UUID `json:"raw_record_id"`
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"event_type"`

	UserID       *string `json:"user_id,omitempty"`
	SessionID    *string `json:"session_id,omitempty"`
	ContentID    *string `json:"content_id,omitempty"`
	ContentTitle *string `json:"content_title,omitempty"`
	DeviceType   *string `json:"device_type,omitempty"`
	Platform     *string `json:"platform,omitempty"`
	Country      *string `json:"country,omitempty"`

	DurationSec    *int    `json:"duration,omitempty"`
	Quality        *string `json:"quality,omitempty"`
	ErrorType      *string `json:"error_type,omitempty"`
	ResponseTimeMS *int    `json:"response_time_ms,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`
}

// StrPtr returns a pointer to s. Convenience for building records.
func StrPtr(s string) *string { return &s }

// IntPtr returns a pointer to i. Convenience for building records.
func IntPtr(i int) *int { return &i }
