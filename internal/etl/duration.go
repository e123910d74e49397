// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package etl

import (
	"math/rand"
	"sync"

	"github.com/streamlens/streamlens/internal/models"
)

// Duration bounds for synthesized playback durations, in seconds.
const (
	minSynthDurationSec = 1
	maxSynthDurationSec = 3600
)

// DurationPolicy decides the playback duration attached to a processed
// record. Only play, pause, and stop events carry a duration; the transformer
// never consults the policy for other kinds.
type DurationPolicy interface {
	// Duration returns the duration in seconds for the given record, or nil
	// when none should be set.
	Duration(rec *models.NormalizedRecord) *int
}

// FieldOrSynthesized uses the record's own duration when present and
// synthesizes one from the injected source otherwise. It is safe for
// concurrent use.
type FieldOrSynthesized struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFieldOrSynthesized creates the default duration policy. Pass a seeded
// rand.Rand for reproducible runs.
func NewFieldOrSynthesized(rng *rand.Rand) *FieldOrSynthesized {
	return &FieldOrSynthesized{rng: rng}
}

// Duration implements DurationPolicy.
func (p *FieldOrSynthesized) Duration(rec *models.NormalizedRecord) *int {
	if rec.DurationSec != nil {
		v := *rec.DurationSec
		return &v
	}

	p.mu.Lock()
	v := minSynthDurationSec + p.rng.Intn(maxSynthDurationSec-minSynthDurationSec+1)
	p.mu.Unlock()

	return &v
}

// FixedDuration always returns the same duration. Deterministic policy for
// tests.
type FixedDuration int

// Duration implements DurationPolicy.
func (d FixedDuration) Duration(_ *models.NormalizedRecord) *int {
	v := int(d)
	return &v
}
