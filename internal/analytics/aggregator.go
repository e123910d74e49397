// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

// Package analytics aggregates processed playback records into windowed
// platform metrics. Aggregate is a pure function of its inputs, so re-running
// it over the same records and window always yields the same result.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/streamlens/streamlens/internal/models"
)

// TopTitlesLimit caps the top-content ranking.
const TopTitlesLimit = 10

// Window is a half-open aggregation interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Minutes returns the window length in minutes.
func (w Window) Minutes() float64 {
	return w.End.Sub(w.Start).Minutes()
}

// Label renders the window length as a compact label, e.g. "5m".
func (w Window) Label() string {
	return models.WindowLabel(w.End.Sub(w.Start))
}

// Aggregator computes MetricSets over processed records.
type Aggregator struct {
	underrunRatio float64
}

// NewAggregator creates an aggregator. underrunRatio is the assumed fraction
// of plays that hit a buffer underrun (0.01 in production configs).
func NewAggregator(underrunRatio float64) *Aggregator {
	return &Aggregator{underrunRatio: underrunRatio}
}

// Aggregate computes the full metric set for records within the window.
// Records outside the window are ignored. Sub-metrics are computed
// concurrently and merged; an empty input yields a zero-valued set.
func (a *Aggregator) Aggregate(records []*models.ProcessedRecord, window Window) (*models.MetricSet, error) {
	if window.End.Before(window.Start) {
		return nil, fmt.Errorf("aggregate: window end %v before start %v", window.End, window.Start)
	}

	inWindow := make([]*models.ProcessedRecord, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if rec.Timestamp.Before(window.Start) || !rec.Timestamp.Before(window.End) {
			continue
		}
		inWindow = append(inWindow, rec)
	}

	set := &models.MetricSet{
		WindowStart: window.Start,
		WindowEnd:   window.End,
		Records:     len(inWindow),
	}

	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		set.Playback = a.playback(inWindow, window)
		set.TopTitles = a.topTitles(inWindow)
	}()
	go func() {
		defer wg.Done()
		set.Errors = a.errors(inWindow)
	}()
	go func() {
		defer wg.Done()
		set.Engagement = a.engagement(inWindow)
	}()
	go func() {
		defer wg.Done()
		set.Countries = countBy(inWindow, func(r *models.ProcessedRecord) *string { return r.Country })
		set.Devices = countBy(inWindow, func(r *models.ProcessedRecord) *string { return r.DeviceType })
		set.Platforms = countBy(inWindow, func(r *models.ProcessedRecord) *string { return r.Platform })
	}()
	go func() {
		defer wg.Done()
		set.Performance = a.performance(inWindow)
	}()

	wg.Wait()

	return set, nil
}

func (a *Aggregator) playback(records []*models.ProcessedRecord, window Window) models.PlaybackMetrics {
	plays := countEvent(records, models.EventTypePlayStarted)

	m := models.PlaybackMetrics{TotalPlays: plays}
	if minutes := window.Minutes(); minutes > 0 {
		m.PlaysPerMinute = float64(plays) / minutes
	}
	return m
}

func (a *Aggregator) errors(records []*models.ProcessedRecord) models.ErrorMetrics {
	m := models.ErrorMetrics{ByType: make(map[string]int)}

	for _, rec := range records {
		if rec.EventType != models.EventTypePlaybackError {
			continue
		}
		m.TotalErrors++
		class := models.ErrorClassUnknown
		if rec.ErrorType != nil {
			class = *rec.ErrorType
		}
		m.ByType[class]++
	}

	if len(records) > 0 {
		m.ErrorRate = float64(m.TotalErrors) / float64(len(records)) * 100
	}
	return m
}

func (a *Aggregator) topTitles(records []*models.ProcessedRecord) []models.TitleCount {
	counts := make(map[string]int)
	totalPlays := 0

	for _, rec := range records {
		if rec.EventType != models.EventTypePlayStarted {
			continue
		}
		totalPlays++
		if rec.ContentTitle == nil || *rec.ContentTitle == "" {
			continue
		}
		counts[*rec.ContentTitle]++
	}

	titles := make([]models.TitleCount, 0, len(counts))
	for title, plays := range counts {
		titles = append(titles, models.TitleCount{Title: title, Plays: plays})
	}

	// Ties break alphabetically so the ranking is stable across runs.
	sort.Slice(titles, func(i, j int) bool {
		if titles[i].Plays != titles[j].Plays {
			return titles[i].Plays > titles[j].Plays
		}
		return titles[i].Title < titles[j].Title
	})

	if len(titles) > TopTitlesLimit {
		titles = titles[:TopTitlesLimit]
	}

	for i := range titles {
		if totalPlays > 0 {
			titles[i].Percentage = float64(titles[i].Plays) / float64(totalPlays) * 100
		}
	}

	return titles
}

func (a *Aggregator) engagement(records []*models.ProcessedRecord) models.EngagementMetrics {
	type span struct {
		first, last time.Time
		count       int
	}

	users := make(map[string]*span)
	plays := 0

	for _, rec := range records {
		if rec.EventType == models.EventTypePlayStarted {
			plays++
		}
		if rec.UserID == nil || *rec.UserID == "" {
			continue
		}
		s, ok := users[*rec.UserID]
		if !ok {
			users[*rec.UserID] = &span{first: rec.Timestamp, last: rec.Timestamp, count: 1}
			continue
		}
		if rec.Timestamp.Before(s.first) {
			s.first = rec.Timestamp
		}
		if rec.Timestamp.After(s.last) {
			s.last = rec.Timestamp
		}
		s.count++
	}

	m := models.EngagementMetrics{ActiveUsers: len(users)}

	// Average session duration only counts users with at least two records;
	// a single event has no measurable span.
	var total float64
	var sessions int
	for _, s := range users {
		if s.count < 2 {
			continue
		}
		total += s.last.Sub(s.first).Seconds()
		sessions++
	}
	if sessions > 0 {
		m.AvgSessionDuration = total / float64(sessions)
	}

	if len(users) > 0 {
		m.EngagementScore = float64(plays) / float64(len(users))
	}

	return m
}

func (a *Aggregator) performance(records []*models.ProcessedRecord) models.PerformanceMetrics {
	var sum float64
	var samples int
	plays := 0

	for _, rec := range records {
		if rec.EventType == models.EventTypePlayStarted {
			plays++
		}
		if rec.ResponseTimeMS != nil {
			sum += float64(*rec.ResponseTimeMS)
			samples++
		}
	}

	m := models.PerformanceMetrics{}
	if samples > 0 {
		m.AvgResponseTimeMS = sum / float64(samples)
	}

	m.BufferUnderruns = int(math.Floor(float64(plays) * a.underrunRatio))
	if plays > 0 {
		m.UnderrunRate = float64(m.BufferUnderruns) / float64(plays) * 100
	}

	return m
}

func countEvent(records []*models.ProcessedRecord, eventType string) int {
	n := 0
	for _, rec := range records {
		if rec.EventType == eventType {
			n++
		}
	}
	return n
}

// countBy tallies non-nil, non-empty values selected from each record.
func countBy(records []*models.ProcessedRecord, sel func(*models.ProcessedRecord) *string) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		v := sel(rec)
		if v == nil || *v == "" {
			continue
		}
		counts[*v]++
	}
	return counts
}
