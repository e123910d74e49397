// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package analytics

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/streamlens/streamlens/internal/models"
)

var windowStart = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func fiveMinuteWindow() Window {
	return Window{Start: windowStart, End: windowStart.Add(5 * time.Minute)}
}

func processed(eventType string, offset time.Duration) *models.ProcessedRecord {
	return &models.ProcessedRecord{
		ID:        uuid.New(),
		Timestamp: windowStart.Add(offset),
		EventType: eventType,
	}
}

func TestAggregatePlaysAndErrorRate(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(0.01)

	// 5 plays and 1 error inside a 5 minute window.
	records := []*models.ProcessedRecord{
		processed(models.EventTypePlayStarted, time.Minute),
		processed(models.EventTypePlayStarted, time.Minute),
		processed(models.EventTypePlayStarted, 2*time.Minute),
		processed(models.EventTypePlayStarted, 3*time.Minute),
		processed(models.EventTypePlayStarted, 4*time.Minute),
		processed(models.EventTypePlaybackError, 2*time.Minute),
	}
	records[5].ErrorType = models.StrPtr(models.ErrorClassNetwork)

	set, err := agg.Aggregate(records, fiveMinuteWindow())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if set.Playback.TotalPlays != 5 {
		t.Errorf("total plays = %d, want 5", set.Playback.TotalPlays)
	}
	if set.Playback.PlaysPerMinute != 1.0 {
		t.Errorf("plays per minute = %v, want 1.0", set.Playback.PlaysPerMinute)
	}
	if got := models.Round2(set.Errors.ErrorRate); got != 16.67 {
		t.Errorf("rounded error rate = %v, want 16.67", got)
	}
	if set.Errors.ByType[models.ErrorClassNetwork] != 1 {
		t.Errorf("network error count = %d, want 1", set.Errors.ByType[models.ErrorClassNetwork])
	}
}

func TestAggregateIgnoresRecordsOutsideWindow(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(0.01)
	records := []*models.ProcessedRecord{
		processed(models.EventTypePlayStarted, -time.Minute),    // before
		processed(models.EventTypePlayStarted, time.Minute),     // inside
		processed(models.EventTypePlayStarted, 5*time.Minute),   // at end, excluded
		processed(models.EventTypePlayStarted, 10*time.Minute),  // after
		nil,                                                     // defensive
	}

	set, err := agg.Aggregate(records, fiveMinuteWindow())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if set.Records != 1 {
		t.Errorf("records in window = %d, want 1", set.Records)
	}
	if set.Playback.TotalPlays != 1 {
		t.Errorf("total plays = %d, want 1", set.Playback.TotalPlays)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(0.01)

	set, err := agg.Aggregate(nil, fiveMinuteWindow())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if set.Records != 0 || set.Playback.TotalPlays != 0 || set.Errors.ErrorRate != 0 {
		t.Errorf("expected zero-valued set, got %+v", set)
	}
	if set.Engagement.ActiveUsers != 0 || set.Performance.UnderrunRate != 0 {
		t.Errorf("expected zero-valued set, got %+v", set)
	}
}

func TestAggregateInvalidWindow(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(0.01)
	w := Window{Start: windowStart, End: windowStart.Add(-time.Minute)}

	if _, err := agg.Aggregate(nil, w); err == nil {
		t.Error("expected error for inverted window")
	}
}

func TestAggregateTopTitles(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(0.01)

	var records []*models.ProcessedRecord
	add := func(title string, n int) {
		for i := 0; i < n; i++ {
			rec := processed(models.EventTypePlayStarted, time.Minute)
			rec.ContentTitle = models.StrPtr(title)
			records = append(records, rec)
		}
	}
	add("Nebula Drift", 3)
	add("Harbor Lights", 2)
	add("Afterglow", 2)
	// One play without a title; counts toward total but never ranks.
	records = append(records, processed(models.EventTypePlayStarted, time.Minute))

	set, err := agg.Aggregate(records, fiveMinuteWindow())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if len(set.TopTitles) != 3 {
		t.Fatalf("top titles = %d, want 3", len(set.TopTitles))
	}
	if set.TopTitles[0].Title != "Nebula Drift" || set.TopTitles[0].Plays != 3 {
		t.Errorf("first = %+v, want Nebula Drift x3", set.TopTitles[0])
	}
	// Ties resolve alphabetically.
	if set.TopTitles[1].Title != "Afterglow" {
		t.Errorf("second = %+v, want Afterglow", set.TopTitles[1])
	}
	if got := models.Round2(set.TopTitles[0].Percentage); got != 37.5 {
		t.Errorf("top percentage = %v, want 37.5", got)
	}
}

func TestAggregateTopTitlesLimit(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(0.01)

	var records []*models.ProcessedRecord
	titles := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	for _, title := range titles {
		rec := processed(models.EventTypePlayStarted, time.Minute)
		rec.ContentTitle = models.StrPtr(title)
		records = append(records, rec)
	}

	set, err := agg.Aggregate(records, fiveMinuteWindow())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(set.TopTitles) != TopTitlesLimit {
		t.Errorf("top titles = %d, want %d", len(set.TopTitles), TopTitlesLimit)
	}
}

func TestAggregateEngagement(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(0.01)

	// alice: two records spanning 120s; bob: a single record (no span);
	// one anonymous record that must not count as a user.
	a1 := processed(models.EventTypePlayStarted, 0)
	a1.UserID = models.StrPtr("alice")
	a2 := processed(models.EventTypePlaybackStopped, 2*time.Minute)
	a2.UserID = models.StrPtr("alice")
	b1 := processed(models.EventTypePlayStarted, time.Minute)
	b1.UserID = models.StrPtr("bob")
	anon := processed(models.EventTypePlayStarted, time.Minute)

	set, err := agg.Aggregate([]*models.ProcessedRecord{a1, a2, b1, anon}, fiveMinuteWindow())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if set.Engagement.ActiveUsers != 2 {
		t.Errorf("active users = %d, want 2", set.Engagement.ActiveUsers)
	}
	if set.Engagement.AvgSessionDuration != 120 {
		t.Errorf("avg session duration = %v, want 120", set.Engagement.AvgSessionDuration)
	}
	// 3 plays across 2 users.
	if set.Engagement.EngagementScore != 1.5 {
		t.Errorf("engagement score = %v, want 1.5", set.Engagement.EngagementScore)
	}
}

func TestAggregateDistributionsExcludeNil(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(0.01)

	r1 := processed(models.EventTypePlayStarted, time.Minute)
	r1.Country = models.StrPtr("DE")
	r1.DeviceType = models.StrPtr("tv")
	r1.Platform = models.StrPtr("web")
	r2 := processed(models.EventTypePlayStarted, time.Minute)
	r2.Country = models.StrPtr("DE")
	r3 := processed(models.EventTypePlayStarted, time.Minute) // all nil

	set, err := agg.Aggregate([]*models.ProcessedRecord{r1, r2, r3}, fiveMinuteWindow())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if !reflect.DeepEqual(set.Countries, map[string]int{"DE": 2}) {
		t.Errorf("countries = %v", set.Countries)
	}
	if !reflect.DeepEqual(set.Devices, map[string]int{"tv": 1}) {
		t.Errorf("devices = %v", set.Devices)
	}
	if !reflect.DeepEqual(set.Platforms, map[string]int{"web": 1}) {
		t.Errorf("platforms = %v", set.Platforms)
	}
}

func TestAggregatePerformance(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(0.01)

	var records []*models.ProcessedRecord
	for i := 0; i < 200; i++ {
		records = append(records, processed(models.EventTypePlayStarted, time.Minute))
	}
	records[0].ResponseTimeMS = models.IntPtr(100)
	records[1].ResponseTimeMS = models.IntPtr(300)

	set, err := agg.Aggregate(records, fiveMinuteWindow())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if set.Performance.AvgResponseTimeMS != 200 {
		t.Errorf("avg response time = %v, want 200", set.Performance.AvgResponseTimeMS)
	}
	// floor(200 plays * 0.01) = 2 underruns, 1% of plays.
	if set.Performance.BufferUnderruns != 2 {
		t.Errorf("underruns = %d, want 2", set.Performance.BufferUnderruns)
	}
	if set.Performance.UnderrunRate != 1.0 {
		t.Errorf("underrun rate = %v, want 1.0", set.Performance.UnderrunRate)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(0.01)

	records := []*models.ProcessedRecord{
		processed(models.EventTypePlayStarted, time.Minute),
		processed(models.EventTypePlaybackError, 2*time.Minute),
	}
	records[0].UserID = models.StrPtr("alice")
	records[0].ContentTitle = models.StrPtr("Nebula Drift")

	first, err := agg.Aggregate(records, fiveMinuteWindow())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	second, err := agg.Aggregate(records, fiveMinuteWindow())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated aggregation over identical input diverged")
	}
}
