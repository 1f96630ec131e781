package payment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/minhvu-dev/sakura-store/internal/payment"
	"github.com/minhvu-dev/sakura-store/internal/resilience"
)

func newStripe(t *testing.T, handler http.Handler) payment.Stripe {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return payment.Stripe{
		SecretKey: "sk_test_123",
		BaseURL:   srv.URL,
		HTTP:      resilience.HTTPClient{Client: srv.Client(), Timeout: time.Second},
		Log:       zerolog.Nop(),
	}
}

func TestStripeCreateIntent(t *testing.T) {
	stripe := newStripe(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "720", r.PostForm.Get("amount"))
		require.Equal(t, "jpy", r.PostForm.Get("currency"))
		require.Equal(t, "true", r.PostForm.Get("automatic_payment_methods[enabled]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_1","client_secret":"pi_1_secret_abc","amount":720,"currency":"jpy","status":"requires_payment_method"}`))
	}))

	intent, err := stripe.CreateIntent(context.Background(), 720, "JPY")
	require.NoError(t, err)
	require.Equal(t, "pi_1", intent.ID)
	require.Equal(t, "pi_1_secret_abc", intent.ClientSecret)
	require.Equal(t, "JPY", intent.Currency)
}

func TestStripeCreateIntentRejectsNonPositive(t *testing.T) {
	stripe := newStripe(t, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("non-positive amounts must not reach the processor")
	}))

	_, err := stripe.CreateIntent(context.Background(), 0, "JPY")
	require.ErrorIs(t, err, payment.ErrInvalidAmount)
	_, err = stripe.CreateIntent(context.Background(), -500, "JPY")
	require.ErrorIs(t, err, payment.ErrInvalidAmount)
}

func TestStripeCreateIntentProcessorError(t *testing.T) {
	stripe := newStripe(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"amount_too_small","message":"Amount must convert to at least 50 cents."}}`))
	}))

	_, err := stripe.CreateIntent(context.Background(), 1, "USD")
	var perr *payment.ProcessorError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "amount_too_small", perr.Code)
	require.False(t, perr.Declined())
}

func TestStripeConfirmSucceeded(t *testing.T) {
	stripe := newStripe(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents/pi_9/confirm", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "pm_card_visa", r.PostForm.Get("payment_method"))
		require.Equal(t, "Nguyen Van A", r.PostForm.Get("payment_method_data[billing_details][name]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_9","client_secret":"pi_9_secret_x","status":"succeeded"}`))
	}))

	result, err := stripe.Confirm(context.Background(), "pi_9_secret_x", "pm_card_visa", payment.BillingDetails{
		Name:  "Nguyen Van A",
		Email: "a@example.com",
	})
	require.NoError(t, err)
	require.True(t, result.Paid)
	require.Equal(t, "pi_9", result.IntentID)
}

func TestStripeConfirmDecline(t *testing.T) {
	stripe := newStripe(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	}))

	result, err := stripe.Confirm(context.Background(), "pi_9_secret_x", "pm_card_declined", payment.BillingDetails{})
	require.NoError(t, err)
	require.False(t, result.Paid)
	require.Equal(t, "card_declined", result.FailureCode)
}

func TestIntentIDFromClientSecret(t *testing.T) {
	require.Equal(t, "pi_42", payment.IntentIDFromClientSecret("pi_42_secret_xyz"))
	require.Empty(t, payment.IntentIDFromClientSecret("garbage"))
	require.Empty(t, payment.IntentIDFromClientSecret("_secret_only"))
}
