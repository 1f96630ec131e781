package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// State is the confirmation flow state for one cart session.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// CanSubmit reports whether a new submission may start from this state.
// Failed is retryable; Succeeded is terminal for the session's order.
func (s State) CanSubmit() bool {
	return s == StateIdle || s == StateFailed || s == ""
}

// Session is the persisted flow state keyed by cart session.
type Session struct {
	State         State     `json:"state"`
	OrderID       string    `json:"orderId,omitempty"`
	InvoiceNumber string    `json:"invoiceNumber,omitempty"`
	FailureReason string    `json:"failureReason,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type stateStore struct {
	r   *redis.Client
	ttl time.Duration
}

func (s stateStore) key(sessionID string) string {
	return "checkout:state:" + sessionID
}

func (s stateStore) load(ctx context.Context, sessionID string) (Session, error) {
	raw, err := s.r.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{State: StateIdle}, nil
	}
	if err != nil {
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{State: StateIdle}, nil
	}
	return sess, nil
}

func (s stateStore) save(ctx context.Context, sessionID string, sess Session) error {
	sess.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.r.Set(ctx, s.key(sessionID), raw, s.ttl).Err()
}
