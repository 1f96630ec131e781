package payment

import (
	"errors"
	"fmt"
)

// ErrInvalidAmount rejects amounts that are not a positive finite number.
var ErrInvalidAmount = errors.New("payment: invalid amount")

// ErrOpenCircuit mirrors the resilience package sentinel so callers can treat
// a tripped breaker as a temporary processor outage.
var ErrProviderUnavailable = errors.New("payment: provider unavailable")

// ProcessorError is a structured error returned by the processor's API.
type ProcessorError struct {
	Type       string
	Code       string
	Message    string
	HTTPStatus int
}

func (e *ProcessorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment: processor error %s (%s)", e.Code, e.Message)
	}
	return fmt.Sprintf("payment: processor error: %s", e.Message)
}

// Declined reports whether the error is a card decline rather than an
// integration or availability problem. Declines are user-facing.
func (e *ProcessorError) Declined() bool {
	return e.Type == "card_error"
}
