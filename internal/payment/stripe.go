package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/minhvu-dev/sakura-store/internal/resilience"
)

const defaultStripeBaseURL = "https://api.stripe.com"

// Stripe talks to the Stripe PaymentIntents API over its form-encoded REST
// surface. Calls go through the resilience client so a struggling processor
// trips the breaker instead of piling up goroutines.
type Stripe struct {
	SecretKey string
	BaseURL   string
	HTTP      resilience.HTTPClient
	Log       zerolog.Logger
}

func (s Stripe) Name() string { return "stripe" }

type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	LastError    *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent opens a PaymentIntent with automatic payment methods enabled,
// matching what the storefront's client SDK expects to find behind the relay.
func (s Stripe) CreateIntent(ctx context.Context, amount int64, currency string) (Intent, error) {
	if amount <= 0 {
		return Intent{}, ErrInvalidAmount
	}
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", strings.ToLower(strings.TrimSpace(currency)))
	form.Set("automatic_payment_methods[enabled]", "true")

	var intent stripeIntent
	if err := s.call(ctx, "/v1/payment_intents", form, &intent); err != nil {
		return Intent{}, err
	}
	if intent.ClientSecret == "" {
		return Intent{}, &ProcessorError{Type: "api_error", Message: "intent created without client secret"}
	}
	return Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     strings.ToUpper(intent.Currency),
		Status:       intent.Status,
	}, nil
}

// Confirm attaches the payment method token to the intent and captures it.
// The intent id is recovered from the client secret, which Stripe formats as
// "<intent id>_secret_<nonce>".
func (s Stripe) Confirm(ctx context.Context, clientSecret, paymentMethod string, billing BillingDetails) (ConfirmResult, error) {
	intentID := IntentIDFromClientSecret(clientSecret)
	if intentID == "" {
		return ConfirmResult{}, errors.New("payment: malformed client secret")
	}
	if strings.TrimSpace(paymentMethod) == "" {
		return ConfirmResult{}, errors.New("payment: payment method token is required")
	}

	form := url.Values{}
	form.Set("payment_method", paymentMethod)
	if v := strings.TrimSpace(billing.Name); v != "" {
		form.Set("payment_method_data[billing_details][name]", v)
	}
	if v := strings.TrimSpace(billing.Email); v != "" {
		form.Set("payment_method_data[billing_details][email]", v)
	}
	if v := strings.TrimSpace(billing.Phone); v != "" {
		form.Set("payment_method_data[billing_details][phone]", v)
	}

	var intent stripeIntent
	err := s.call(ctx, "/v1/payment_intents/"+intentID+"/confirm", form, &intent)
	if err != nil {
		var perr *ProcessorError
		if errors.As(err, &perr) && perr.Declined() {
			return ConfirmResult{
				IntentID:       intentID,
				Status:         "requires_payment_method",
				FailureCode:    perr.Code,
				FailureMessage: perr.Message,
			}, nil
		}
		return ConfirmResult{}, err
	}

	result := ConfirmResult{
		IntentID: intent.ID,
		Status:   intent.Status,
		Paid:     intent.Status == "succeeded",
	}
	if intent.LastError != nil {
		result.FailureCode = intent.LastError.Code
		result.FailureMessage = intent.LastError.Message
	}
	return result, nil
}

func (s Stripe) call(ctx context.Context, path string, form url.Values, out any) error {
	base := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if base == "" {
		base = defaultStripeBaseURL
	}
	req, err := http.NewRequest(http.MethodPost, base+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.HTTP.Do(ctx, req)
	if err != nil {
		if errors.Is(err, resilience.ErrOpenCircuit) {
			return fmt.Errorf("%w: %s", ErrProviderUnavailable, err)
		}
		return fmt.Errorf("%w: %s", ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %s", ErrProviderUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr stripeError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return &ProcessorError{
				Type:       apiErr.Error.Type,
				Code:       apiErr.Error.Code,
				Message:    apiErr.Error.Message,
				HTTPStatus: resp.StatusCode,
			}
		}
		return &ProcessorError{
			Type:       "api_error",
			Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
			HTTPStatus: resp.StatusCode,
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("payment: decode response: %w", err)
	}
	return nil
}

// IntentIDFromClientSecret extracts the intent id from a client secret.
func IntentIDFromClientSecret(clientSecret string) string {
	secret := strings.TrimSpace(clientSecret)
	idx := strings.Index(secret, "_secret_")
	if idx <= 0 {
		return ""
	}
	return secret[:idx]
}
