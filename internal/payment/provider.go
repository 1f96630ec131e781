package payment

import "context"

// BillingDetails carries the customer identity attached to a confirmation.
// The server never sees raw card data; the card is referenced by an opaque
// payment method token minted by the processor's client SDK.
type BillingDetails struct {
	Name  string
	Email string
	Phone string
}

// Intent is the minimal view of a processor-side payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
}

// ConfirmResult is the normalised outcome of a confirmation attempt.
type ConfirmResult struct {
	IntentID       string
	Status         string
	Paid           bool
	FailureCode    string
	FailureMessage string
}

// Provider abstracts the upstream payment processor.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	// CreateIntent opens an intent for amount in the currency's minor unit
	// and returns the client secret the browser needs to collect payment.
	CreateIntent(ctx context.Context, amount int64, currency string) (Intent, error)
	// Confirm attaches the payment method to the intent identified by
	// clientSecret and attempts to capture it.
	Confirm(ctx context.Context, clientSecret, paymentMethod string, billing BillingDetails) (ConfirmResult, error)
}
