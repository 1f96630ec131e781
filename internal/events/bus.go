package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is an immutable record of something that happened in the store.
type Event struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Notifier receives events synchronously. A slow or failing notifier must not
// break the emitting flow, so errors are logged and swallowed.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Bus fans events out to registered notifiers in subscription order, on the
// caller's goroutine. Checkout emits after its own state is durable, so a
// notifier crash can at worst lose a notification, never an order.
type Bus struct {
	mu        sync.RWMutex
	notifiers []Notifier
	log       zerolog.Logger
	now       func() time.Time
}

func NewBus(log zerolog.Logger) *Bus {
	return &Bus{log: log, now: time.Now}
}

// Subscribe registers a notifier for all topics.
func (b *Bus) Subscribe(n Notifier) {
	if b == nil || n == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifiers = append(b.notifiers, n)
}

// Emit delivers the payload under topic to every notifier.
func (b *Bus) Emit(ctx context.Context, topic string, payload any) {
	if b == nil {
		return
	}
	ev := Event{
		ID:         uuid.NewString(),
		Topic:      topic,
		OccurredAt: b.now().UTC(),
		Payload:    payload,
	}
	b.mu.RLock()
	notifiers := make([]Notifier, len(b.notifiers))
	copy(notifiers, b.notifiers)
	b.mu.RUnlock()

	for _, n := range notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			b.log.Warn().Err(err).Str("topic", topic).Str("event_id", ev.ID).Msg("event notifier failed")
		}
	}
}
