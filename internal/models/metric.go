// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package models

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MetricPoint is one persisted scalar metric sample.
type MetricPoint struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"metric_name"`
	Value     float64   `json:"metric_value"`
	Unit      string    `json:"metric_unit"`
	Timestamp time.Time `json:"timestamp"`
	Window    string    `json:"time_window"`
	CreatedAt time.Time `json:"created_at"`
}

// Persisted metric point names.
const (
	MetricPlaysPerMinute     = "plays_per_minute"
	MetricErrorRate          = "error_rate"
	MetricActiveUsers        = "active_users"
	MetricAvgSessionDuration = "avg_session_duration"
	MetricEngagementScore    = "engagement_score"
	MetricAvgResponseTime    = "avg_response_time"
	MetricBufferUnderrunRate = "buffer_underrun_rate"
	MetricErrorCountPrefix   = "error_count."
)

// TitleCount is one entry of the top-content ranking.
type TitleCount struct {
	Title      string  `json:"title"`
	Plays      int     `json:"plays"`
	Percentage float64 `json:"percentage"`
}

// PlaybackMetrics covers play volume within the window.
type PlaybackMetrics struct {
	TotalPlays     int     `json:"total_plays"`
	PlaysPerMinute float64 `json:"plays_per_minute"`
}

// ErrorMetrics covers error volume and classification within the window.
type ErrorMetrics struct {
	TotalErrors int            `json:"total_errors"`
	ErrorRate   float64        `json:"error_rate"`
	ByType      map[string]int `json:"by_type"`
}

// EngagementMetrics covers user activity within the window.
type EngagementMetrics struct {
	ActiveUsers        int     `json:"active_users"`
	AvgSessionDuration float64 `json:"avg_session_duration"`
	EngagementScore    float64 `json:"engagement_score"`
}

// PerformanceMetrics covers delivery quality within the window.
type PerformanceMetrics struct {
	AvgResponseTimeMS float64 `json:"avg_response_time_ms"`
	BufferUnderruns   int     `json:"buffer_underruns"`
	UnderrunRate      float64 `json:"underrun_rate"`
}

// MetricSet is the complete aggregation result over one window. Values are
// held in full precision; Round() is applied only at the presentation
// boundary (persistence and API encoding).
type MetricSet struct {
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Records     int       `json:"records"`

	Playback    PlaybackMetrics    `json:"playback"`
	Errors      ErrorMetrics       `json:"errors"`
	TopTitles   []TitleCount       `json:"top_titles"`
	Engagement  EngagementMetrics  `json:"engagement"`
	Countries   map[string]int     `json:"countries"`
	Devices     map[string]int     `json:"devices"`
	Platforms   map[string]int     `json:"platforms"`
	Performance PerformanceMetrics `json:"performance"`
}

// Round2 rounds v to two decimal places. Used only when metrics cross the
// presentation boundary.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Rounded returns a copy of the set with every ratio rounded to two decimals.
func (m *MetricSet) Rounded() *MetricSet {
	out := *m

	out.Playback.PlaysPerMinute = Round2(m.Playback.PlaysPerMinute)
	out.Errors.ErrorRate = Round2(m.Errors.ErrorRate)
	out.Engagement.AvgSessionDuration = Round2(m.Engagement.AvgSessionDuration)
	out.Engagement.EngagementScore = Round2(m.Engagement.EngagementScore)
	out.Performance.AvgResponseTimeMS = Round2(m.Performance.AvgResponseTimeMS)
	out.Performance.UnderrunRate = Round2(m.Performance.UnderrunRate)

	out.TopTitles = make([]TitleCount, len(m.TopTitles))
	for i, tc := range m.TopTitles {
		tc.Percentage = Round2(tc.Percentage)
		out.TopTitles[i] = tc
	}

	return &out
}

// WindowLabel renders a duration as a compact window label, e.g. "5m" or
// "1h30m". Zero trailing components are trimmed, so 5*time.Minute is "5m"
// rather than Go's default "5m0s".
func WindowLabel(d time.Duration) string {
	s := d.Truncate(time.Second).String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return s
}

// ToPoints flattens the scalar metrics into persistable points stamped with
// ts. Values are presentation-rounded.
func (m *MetricSet) ToPoints(ts time.Time, window string) []*MetricPoint {
	points := []*MetricPoint{
		{Name: MetricPlaysPerMinute, Value: Round2(m.Playback.PlaysPerMinute), Unit: "plays/min"},
		{Name: MetricErrorRate, Value: Round2(m.Errors.ErrorRate), Unit: "percent"},
		{Name: MetricActiveUsers, Value: float64(m.Engagement.ActiveUsers), Unit: "users"},
		{Name: MetricAvgSessionDuration, Value: Round2(m.Engagement.AvgSessionDuration), Unit: "seconds"},
		{Name: MetricEngagementScore, Value: Round2(m.Engagement.EngagementScore), Unit: "plays/user"},
		{Name: MetricAvgResponseTime, Value: Round2(m.Performance.AvgResponseTimeMS), Unit: "ms"},
		{Name: MetricBufferUnderrunRate, Value: Round2(m.Performance.UnderrunRate), Unit: "percent"},
	}

	for errType, count := range m.Errors.ByType {
		points = append(points, &MetricPoint{
			Name:  MetricErrorCountPrefix + errType,
			Value: float64(count),
			Unit:  "events",
		})
	}

	for _, p := range points {
		p.ID = uuid.New()
		p.Timestamp = ts
		p.Window = window
	}

	return points
}
