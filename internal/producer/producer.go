// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

// Package producer generates synthetic playback events for development and
// load testing. It publishes wire-form records onto the event bus at a
// configured rate; the ingest consumer treats them exactly like events from
// a real client fleet.
package producer

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/streamlens/streamlens/internal/bus"
	"github.com/streamlens/streamlens/internal/config"
	"github.com/streamlens/streamlens/internal/logging"
	"github.com/streamlens/streamlens/internal/metrics"
	"github.com/streamlens/streamlens/internal/models"
)

// optionalDropRate is the chance that any given optional field is omitted,
// exercising the validation path downstream.
const optionalDropRate = 0.05

// kindWeight pairs an event kind with its relative frequency.
type kindWeight struct {
	kind   models.EventKind
	weight int
}

var eventWeights = []kindWeight{
	{models.EventPlay, 40},
	{models.EventPause, 15},
	{models.EventStop, 15},
	{models.EventSeek, 10},
	{models.EventQualityChange, 10},
	{models.EventError, 10},
}

var (
	userPool = []string{
		"user_001", "user_002", "user_003", "user_004", "user_005",
		"user_006", "user_007", "user_008", "user_009", "user_010",
		"user_011", "user_012", "user_013", "user_014", "user_015",
	}

	titlePool = []struct {
		id    string
		title string
		kind  string
	}{
		{"mov_3001", "The Long Voyage", "movie"},
		{"mov_3002", "Night Train", "movie"},
		{"mov_3003", "Paper Cities", "movie"},
		{"shw_4001", "Harbor Lights", "series"},
		{"shw_4002", "The Last Signal", "series"},
		{"shw_4003", "Glass Gardens", "series"},
		{"doc_5001", "Deep Currents", "documentary"},
		{"doc_5002", "Iron and Salt", "documentary"},
	}

	devicePool   = []string{"smart_tv", "mobile", "tablet", "desktop", "console"}
	platformPool = []string{"ios", "android", "web", "roku", "tvos"}
	countryPool  = []string{"US", "GB", "DE", "BR", "JP", "IN", "FR", "CA"}
	qualityPool  = []string{"480p", "720p", "1080p", "4k"}

	errorMessagePool = []string{
		"network timeout while fetching segment",
		"connection reset by peer",
		"playback stalled: media decode failure",
		"auth token expired, login required",
		"content not found (404)",
		"segment checksum mismatch",
	}
)

// Producer publishes synthetic events at a fixed rate until stopped.
type Producer struct {
	publisher message.Publisher
	limiter   *rate.Limiter
	cfg       *config.ProducerConfig

	rngMu sync.Mutex
	rng   *rand.Rand

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a producer publishing to the raw events topic. A zero seed
// falls back to the current time.
func New(publisher message.Publisher, cfg *config.ProducerConfig) *Producer {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	eps := cfg.EventsPerSecond
	if eps <= 0 {
		eps = 1
	}

	return &Producer{
		publisher: publisher,
		limiter:   rate.NewLimiter(rate.Limit(eps), eps),
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Start begins the generation loop.
func (p *Producer) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.mu.Unlock()

	logging.Info().Int("events_per_second", p.cfg.EventsPerSecond).Msg("Starting synthetic event producer")

	p.wg.Add(1)
	go p.generateLoop(ctx)

	return nil
}

// Stop halts the generation loop.
func (p *Producer) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	logging.Info().Msg("Synthetic event producer stopped")
}

func (p *Producer) generateLoop(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		default:
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return
		}

		if err := p.publishOne(); err != nil {
			metrics.ProducerPublishErrors.Inc()
			logging.Warn().Err(err).Msg("Failed to publish synthetic event")
			continue
		}
		metrics.ProducerEventsPublished.Inc()
	}
}

func (p *Producer) publishOne() error {
	rec := p.Generate(time.Now())

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	return p.publisher.Publish(bus.TopicRawEvents, msg)
}

// Generate builds one synthetic raw record stamped with ts. Randomness comes
// from the injected source only, so a fixed seed yields a fixed stream.
func (p *Producer) Generate(ts time.Time) *models.RawRecord {
	p.rngMu.Lock()
	defer p.rngMu.Unlock()

	kind := p.pickKind()
	content := titlePool[p.rng.Intn(len(titlePool))]

	rec := &models.RawRecord{
		Timestamp: ts.UTC().Format(time.RFC3339),
		EventKind: string(kind),
		Severity:  string(p.severityFor(kind)),
	}

	p.maybeSet(&rec.UserID, userPool[p.rng.Intn(len(userPool))])
	p.maybeSet(&rec.ContentID, content.id)
	p.maybeSet(&rec.ContentTitle, content.title)
	p.maybeSet(&rec.ContentType, content.kind)
	p.maybeSet(&rec.DeviceType, devicePool[p.rng.Intn(len(devicePool))])
	p.maybeSet(&rec.Platform, platformPool[p.rng.Intn(len(platformPool))])
	p.maybeSet(&rec.Country, countryPool[p.rng.Intn(len(countryPool))])
	p.maybeSet(&rec.Quality, qualityPool[p.rng.Intn(len(qualityPool))])

	if p.rng.Float64() >= optionalDropRate {
		rec.ResponseTimeMS = models.IntPtr(50 + p.rng.Intn(6000))
	}

	switch kind {
	case models.EventPlay, models.EventPause, models.EventStop:
		if p.rng.Float64() >= optionalDropRate {
			rec.DurationSec = models.IntPtr(1 + p.rng.Intn(3600))
		}
		if p.rng.Float64() >= optionalDropRate {
			rec.PositionSec = models.IntPtr(p.rng.Intn(7200))
		}
	case models.EventSeek:
		rec.PositionSec = models.IntPtr(p.rng.Intn(7200))
	case models.EventError:
		msg := errorMessagePool[p.rng.Intn(len(errorMessagePool))]
		rec.ErrorMessage = &msg
	}

	return rec
}

func (p *Producer) pickKind() models.EventKind {
	total := 0
	for _, kw := range eventWeights {
		total += kw.weight
	}

	n := p.rng.Intn(total)
	for _, kw := range eventWeights {
		n -= kw.weight
		if n < 0 {
			return kw.kind
		}
	}
	return models.EventPlay
}

func (p *Producer) severityFor(kind models.EventKind) models.Severity {
	if kind == models.EventError {
		return models.SeverityError
	}
	if p.rng.Float64() < 0.05 {
		return models.SeverityWarning
	}
	return models.SeverityInfo
}

// maybeSet assigns value to target unless the optional-field dropout fires.
func (p *Producer) maybeSet(target **string, value string) {
	if p.rng.Float64() < optionalDropRate {
		return
	}
	v := value
	*target = &v
}
