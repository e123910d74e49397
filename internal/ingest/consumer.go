// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package ingest

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/streamlens/streamlens/internal/bus"
	"github.com/streamlens/streamlens/internal/logging"
	"github.com/streamlens/streamlens/internal/metrics"
	"github.com/streamlens/streamlens/internal/models"
	"github.com/streamlens/streamlens/internal/parser"
)

// RawStore is the persistence surface the consumer writes to.
type RawStore interface {
	InsertRawRecord(ctx context.Context, rec *models.NormalizedRecord) error
}

// Consumer subscribes to the raw events topic and lands validated records in
// the store. Every message is acked exactly once: rejected events are logged
// and counted, never requeued, because a record that fails validation once
// will fail it every time.
type Consumer struct {
	subscriber message.Subscriber
	store      RawStore
	serializer *Serializer

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewConsumer creates an ingest consumer.
func NewConsumer(subscriber message.Subscriber, store RawStore) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		store:      store,
		serializer: NewSerializer(),
	}
}

// Start subscribes and begins consuming. Idempotent.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stopChan = make(chan struct{})
	c.mu.Unlock()

	msgs, err := c.subscriber.Subscribe(ctx, bus.TopicRawEvents)
	if err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return err
	}

	logging.Info().Str("topic", bus.TopicRawEvents).Msg("Starting ingest consumer")

	c.wg.Add(1)
	go c.consumeLoop(ctx, msgs)

	return nil
}

// Stop halts consumption and waits for the in-flight message to finish.
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopChan)
	c.mu.Unlock()

	c.wg.Wait()
	logging.Info().Msg("Ingest consumer stopped")
}

func (c *Consumer) consumeLoop(ctx context.Context, msgs <-chan *message.Message) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			c.handle(ctx, msg)
			msg.Ack()
		}
	}
}

// handle processes one message end to end. Failures are terminal for the
// message; the ack in the caller is unconditional.
func (c *Consumer) handle(ctx context.Context, msg *message.Message) {
	metrics.IngestMessagesConsumed.Inc()

	raw, err := c.serializer.Unmarshal(msg.Payload)
	if err != nil {
		metrics.IngestMessagesRejected.WithLabelValues("decode").Inc()
		logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable event")
		return
	}

	rec, warnings, err := parser.Normalize(raw)
	if err != nil {
		metrics.IngestMessagesRejected.WithLabelValues("validation").Inc()
		logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping invalid event")
		return
	}
	for _, w := range warnings {
		metrics.IngestWarnings.WithLabelValues(w.Field).Inc()
		logging.Debug().Str("field", w.Field).Str("reason", w.Reason).Msg("Normalization warning")
	}

	if err := c.store.InsertRawRecord(ctx, rec); err != nil {
		metrics.IngestMessagesRejected.WithLabelValues("storage").Inc()
		logging.Warn().Err(err).Str("record_id", rec.ID.String()).Msg("Failed to store ingested event")
		return
	}

	metrics.IngestMessagesStored.Inc()
}
