package payment

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/minhvu-dev/sakura-store/internal/i18n"
	"github.com/minhvu-dev/sakura-store/internal/obs"
)

// Handler exposes the payment intent relay. The endpoint keeps the flat JSON
// shape the storefront client was built against: {"clientSecret": ...} on
// success and {"error": ...} on failure, with no envelope.
type Handler struct {
	Provider Provider
	Currency string
	T        *i18n.Translator
	Locale   string
	Log      zerolog.Logger
}

type intentRequest struct {
	Amount *float64 `json:"amount"`
}

// CreateIntent handles POST /api/create-payment-intent. The amount arrives in
// the currency's minor unit and is rounded to the nearest integer before the
// processor sees it. Anything that is not a positive finite number is
// rejected before a network call is made.
func (h Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<12)

	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.count("invalid")
		h.writeFlatError(w, http.StatusBadRequest, h.translate("payment.invalid_amount"))
		return
	}
	if req.Amount == nil || math.IsNaN(*req.Amount) || math.IsInf(*req.Amount, 0) || *req.Amount <= 0 {
		h.count("invalid")
		h.writeFlatError(w, http.StatusBadRequest, h.translate("payment.invalid_amount"))
		return
	}

	amount := int64(math.Round(*req.Amount))
	intent, err := h.Provider.CreateIntent(r.Context(), amount, h.Currency)
	if err != nil {
		h.count("error")
		h.Log.Error().Err(err).Int64("amount", amount).Msg("create payment intent failed")
		h.writeFlatError(w, http.StatusInternalServerError, clientMessage(err))
		return
	}

	h.count("ok")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"clientSecret": intent.ClientSecret})
}

// clientMessage surfaces the processor's own message in the response body; the
// wrapped form stays in the log line.
func clientMessage(err error) string {
	var perr *ProcessorError
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	return err.Error()
}

func (h Handler) writeFlatError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (h Handler) translate(key string) string {
	if h.T == nil {
		return key
	}
	return h.T.T(h.Locale, key, nil)
}

func (h Handler) count(result string) {
	if obs.PaymentIntentTotal == nil {
		return
	}
	provider := "unknown"
	if h.Provider != nil {
		provider = h.Provider.Name()
	}
	obs.PaymentIntentTotal.WithLabelValues(provider, result).Inc()
}
