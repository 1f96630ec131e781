package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/minhvu-dev/sakura-store/internal/common"
	"github.com/minhvu-dev/sakura-store/internal/i18n"
	"github.com/minhvu-dev/sakura-store/internal/payment"
)

// Handler exposes checkout submission and invoice re-download.
type Handler struct {
	Svc *Service
	V   *validator.Validate
	T   *i18n.Translator
	Log zerolog.Logger
}

// Submit handles POST /api/v1/checkout.
func (h Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := common.SessionID(r.Context())
	if !ok || sessionID == "" {
		common.JSONError(w, http.StatusBadRequest, "SESSION_REQUIRED", "cart session header is required", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if h.V != nil {
		if err := h.V.Struct(in); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "request failed validation", validationDetails(err))
			return
		}
	}

	out, err := h.Svc.Submit(r.Context(), sessionID, in)
	if err != nil {
		h.writeSubmitError(w, in.Locale, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h Handler) writeSubmitError(w http.ResponseWriter, locale string, err error) {
	var declined *PaymentDeclinedError
	switch {
	case errors.Is(err, ErrCartEmpty):
		common.JSONError(w, http.StatusBadRequest, "CHECKOUT_CART_EMPTY", h.translate(locale, "checkout.cart_empty"), nil)
	case errors.Is(err, ErrAlreadyPaid):
		common.JSONError(w, http.StatusConflict, "CHECKOUT_ALREADY_PAID", h.translate(locale, "checkout.already_paid"), nil)
	case errors.Is(err, ErrInProgress):
		common.JSONError(w, http.StatusConflict, "CHECKOUT_IN_PROGRESS", h.translate(locale, "checkout.in_progress"), nil)
	case errors.As(err, &declined):
		common.JSONError(w, http.StatusPaymentRequired, "PAYMENT_DECLINED", h.translate(locale, "payment.failed"), map[string]string{
			"code":   declined.Code,
			"reason": declined.Message,
		})
	case errors.Is(err, payment.ErrProviderUnavailable):
		common.JSONError(w, http.StatusBadGateway, "PAYMENT_UNAVAILABLE", h.translate(locale, "checkout.request_error"), nil)
	default:
		h.Log.Error().Err(err).Msg("checkout submit failed")
		common.JSONError(w, http.StatusInternalServerError, "CHECKOUT_FAILED", h.translate(locale, "checkout.request_error"), nil)
	}
}

// InvoicePDF handles GET /api/v1/invoices/{invoiceNumber}/pdf. Issued
// invoices stay downloadable until the cache entry expires.
func (h Handler) InvoicePDF(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "invoiceNumber")
	pdf, err := h.Svc.InvoicePDF(r.Context(), number)
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			common.JSONError(w, http.StatusNotFound, "INVOICE_NOT_FOUND", "invoice not found or expired", nil)
			return
		}
		h.Log.Error().Err(err).Str("invoice", number).Msg("load invoice pdf failed")
		common.JSONError(w, http.StatusInternalServerError, "INVOICE_LOAD_FAILED", "could not load invoice", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="Invoice_`+number+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h Handler) translate(locale, key string) string {
	if h.T == nil {
		return key
	}
	return h.T.T(locale, key, nil)
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}
