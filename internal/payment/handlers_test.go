package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/minhvu-dev/sakura-store/internal/i18n"
	"github.com/minhvu-dev/sakura-store/internal/payment"
)

type stubProvider struct {
	calls      int
	lastAmount int64
	intent     payment.Intent
	err        error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) CreateIntent(_ context.Context, amount int64, currency string) (payment.Intent, error) {
	s.calls++
	s.lastAmount = amount
	if s.err != nil {
		return payment.Intent{}, s.err
	}
	intent := s.intent
	intent.Amount = amount
	intent.Currency = currency
	return intent, nil
}

func (s *stubProvider) Confirm(context.Context, string, string, payment.BillingDetails) (payment.ConfirmResult, error) {
	return payment.ConfirmResult{}, nil
}

func newRelay(t *testing.T, provider payment.Provider) payment.Handler {
	t.Helper()
	translator, err := i18n.New("vi")
	require.NoError(t, err)
	return payment.Handler{
		Provider: provider,
		Currency: "JPY",
		T:        translator,
		Locale:   "vi",
		Log:      zerolog.Nop(),
	}
}

func postIntent(t *testing.T, h payment.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/create-payment-intent", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.CreateIntent(rec, req)
	return rec
}

func TestCreateIntentSuccess(t *testing.T) {
	provider := &stubProvider{intent: payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret_abc"}}
	rec := postIntent(t, newRelay(t, provider), `{"amount": 720}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "pi_1_secret_abc", body["clientSecret"])
	require.Equal(t, 1, provider.calls)
}

func TestCreateIntentRoundsFractionalAmounts(t *testing.T) {
	provider := &stubProvider{intent: payment.Intent{ClientSecret: "pi_secret_x"}}
	rec := postIntent(t, newRelay(t, provider), `{"amount": 719.6}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(720), provider.lastAmount)
}

func TestCreateIntentRejectsInvalidAmounts(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing", `{}`},
		{"zero", `{"amount": 0}`},
		{"negative", `{"amount": -5}`},
		{"not a number", `{"amount": "abc"}`},
		{"malformed json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &stubProvider{}
			rec := postIntent(t, newRelay(t, provider), tc.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, "Số tiền không hợp lệ", body["error"])
			// Invalid input never reaches the processor.
			require.Zero(t, provider.calls)
		})
	}
}

func TestCreateIntentProviderFailure(t *testing.T) {
	provider := &stubProvider{err: &payment.ProcessorError{
		Type:    "api_error",
		Code:    "processing_error",
		Message: "Something went wrong.",
	}}
	rec := postIntent(t, newRelay(t, provider), `{"amount": 500}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// The processor's own message, not the wrapped error string.
	require.Equal(t, "Something went wrong.", body["error"])
}
