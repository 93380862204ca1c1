// Package publisher relays checkout lifecycle events from the outbox to Kafka.
package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const Topic = "checkout-events"

// MessageWriter is the part of *kafka.Writer the poller needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	purgeTick time.Duration
	retention time.Duration
	batchSize int
	outbox    Outbox
	writer    MessageWriter
	log       *slog.Logger
}

func NewOutboxPoller(outbox Outbox, log *slog.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newOutboxPoller(outbox, w, log)
}

func newOutboxPoller(outbox Outbox, w MessageWriter, log *slog.Logger) *OutboxPoller {
	if log == nil {
		log = slog.Default()
	}
	return &OutboxPoller{
		timeout:   5 * time.Second,
		eventTick: time.Second,
		purgeTick: time.Minute,
		retention: 10 * time.Minute,
		batchSize: 100,
		outbox:    outbox,
		writer:    w,
		log:       log,
	}
}

// Run publishes pending events until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	purgeTicker := time.NewTicker(p.purgeTick)
	defer eventTicker.Stop()
	defer purgeTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-purgeTicker.C:
			if n := p.outbox.PurgeProcessed(ctx, time.Now().Add(-p.retention)); n > 0 {
				p.log.Debug("purged published events", slog.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.outbox.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.Error("failed to fetch events", slog.Any("error", err))
		return
	}

	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			p.log.Warn("failed to publish event",
				slog.Int64("event_id", event.ID), slog.String("type", event.EventType), slog.Any("error", err))
			// keep order per session: retry the rest on the next tick
			return
		}

		if err := p.outbox.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Error("failed to mark event as processed", slog.Int64("event_id", event.ID), slog.Any("error", err))
		}
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
		Time: event.CreatedAt,
	}
	return p.writer.WriteMessages(ctx, msg)
}
