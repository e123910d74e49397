// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/streamlens/streamlens/internal/config"
)

func TestResilientStorePassThrough(t *testing.T) {
	db := setupTestDB(t)
	store := NewResilientStore(db, &config.BreakerConfig{Threshold: 3, Timeout: time.Second})

	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := store.InsertRawRecord(ctx, testRawRecord(ts)); err != nil {
		t.Fatalf("InsertRawRecord failed: %v", err)
	}

	got, err := store.QueryUnprocessedRaw(ctx, ts.Add(-time.Minute), ts.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("QueryUnprocessedRaw failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 record, got %d", len(got))
	}

	if state := store.State(); state != "closed" {
		t.Errorf("State = %q, want closed", state)
	}
}

func TestResilientStoreTripsAfterConsecutiveFailures(t *testing.T) {
	db := setupTestDB(t)
	store := NewResilientStore(db, &config.BreakerConfig{Threshold: 3, Timeout: time.Minute})

	ctx := context.Background()

	// Retention on an unknown table always fails; three in a row trip the breaker.
	for i := 0; i < 3; i++ {
		if _, err := store.DeleteOlderThan(ctx, "no_such_table", time.Now()); err == nil {
			t.Fatal("DeleteOlderThan on unknown table succeeded")
		}
	}

	if state := store.State(); state != "open" {
		t.Fatalf("State = %q, want open", state)
	}

	// With the circuit open, even valid calls fail fast.
	_, err := store.Stats(ctx)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Stats error = %v, want ErrCircuitOpen", err)
	}
}

func TestResilientStorePingBypassesBreaker(t *testing.T) {
	db := setupTestDB(t)
	store := NewResilientStore(db, &config.BreakerConfig{Threshold: 1, Timeout: time.Minute})

	if _, err := store.DeleteOlderThan(context.Background(), "no_such_table", time.Now()); err == nil {
		t.Fatal("DeleteOlderThan on unknown table succeeded")
	}
	if state := store.State(); state != "open" {
		t.Fatalf("State = %q, want open", state)
	}

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed with open breaker: %v", err)
	}
}
