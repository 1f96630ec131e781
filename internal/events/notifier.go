package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes every event to the structured log. It is the default
// subscriber in environments without a downstream consumer.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	n.Log.Info().
		Str("event_id", ev.ID).
		Str("topic", ev.Topic).
		Time("occurred_at", ev.OccurredAt).
		Interface("payload", ev.Payload).
		Msg("domain event")
	return nil
}
