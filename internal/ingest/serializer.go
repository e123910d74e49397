// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

// Package ingest consumes wire-form playback events from the bus, validates
// and normalizes them, and lands them in the raw store.
package ingest

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/streamlens/streamlens/internal/models"
)

// Serializer handles event encoding/decoding for bus messages.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal converts a raw record to JSON bytes.
func (s *Serializer) Marshal(rec *models.RawRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Unmarshal converts JSON bytes to a raw record.
func (s *Serializer) Unmarshal(data []byte) (*models.RawRecord, error) {
	var rec models.RawRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &rec, nil
}
