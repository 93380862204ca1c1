package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

const (
	EventCheckoutCompleted = "checkout.completed"
	EventCheckoutCancelled = "checkout.cancelled"

	DefaultOutboxCapacity = 10000
)

var ErrOutboxFull = errors.New("outbox is full")

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// Outbox queues events until the poller has published them.
type Outbox interface {
	Enqueue(ctx context.Context, aggregateID, eventType string, payload any) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	PurgeProcessed(ctx context.Context, before time.Time) int
}

// MemoryOutbox is a bounded in-process outbox. Events are lost on restart.
type MemoryOutbox struct {
	mu       sync.Mutex
	nextID   int64
	events   []*OutboxEvent
	capacity int
	now      func() time.Time
}

func NewMemoryOutbox(capacity int) *MemoryOutbox {
	if capacity <= 0 {
		capacity = DefaultOutboxCapacity
	}
	return &MemoryOutbox{capacity: capacity, now: time.Now}
}

func (o *MemoryOutbox) Enqueue(_ context.Context, aggregateID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.events) >= o.capacity {
		return ErrOutboxFull
	}
	o.nextID++
	o.events = append(o.events, &OutboxEvent{
		ID:          o.nextID,
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     data,
		CreatedAt:   o.now(),
	})
	return nil
}

// GetUnprocessedEvents returns up to limit pending events, oldest first.
func (o *MemoryOutbox) GetUnprocessedEvents(_ context.Context, limit int) ([]*OutboxEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []*OutboxEvent
	for _, e := range o.events {
		if e.ProcessedAt != nil {
			continue
		}
		c := *e
		out = append(out, &c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (o *MemoryOutbox) MarkEventAsProcessed(_ context.Context, id int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.events {
		if e.ID == id {
			now := o.now()
			e.ProcessedAt = &now
			return nil
		}
	}
	return errors.New("outbox event not found")
}

// PurgeProcessed drops events published before the given time.
func (o *MemoryOutbox) PurgeProcessed(_ context.Context, before time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	kept := o.events[:0]
	purged := 0
	for _, e := range o.events {
		if e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(o.events); i++ {
		o.events[i] = nil
	}
	o.events = kept
	return purged
}

func (o *MemoryOutbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.events)
}
