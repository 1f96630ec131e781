package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/minhvu-dev/sakura-store/internal/cart"
	"github.com/minhvu-dev/sakura-store/internal/events"
	"github.com/minhvu-dev/sakura-store/internal/invoice"
	"github.com/minhvu-dev/sakura-store/internal/lock"
	"github.com/minhvu-dev/sakura-store/internal/obs"
	"github.com/minhvu-dev/sakura-store/internal/payment"
	"github.com/minhvu-dev/sakura-store/internal/pricing"
)

var (
	// ErrCartEmpty rejects checkout on an empty cart.
	ErrCartEmpty = errors.New("checkout: cart is empty")
	// ErrAlreadyPaid rejects resubmission after a successful payment.
	ErrAlreadyPaid = errors.New("checkout: order already paid")
	// ErrInProgress rejects a submission while another one is running.
	ErrInProgress = errors.New("checkout: submission already in progress")
	// ErrInvoiceNotFound means the requested invoice PDF is not cached.
	ErrInvoiceNotFound = errors.New("checkout: invoice not found")
)

// PaymentDeclinedError carries the processor's decline reason. The payment
// failed but the cart is intact and the customer may try again.
type PaymentDeclinedError struct {
	Code    string
	Message string
}

func (e *PaymentDeclinedError) Error() string {
	return fmt.Sprintf("checkout: payment declined (%s)", e.Code)
}

// Input is a checkout submission.
type Input struct {
	Name          string `json:"name" validate:"required,min=2,max=120"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"omitempty,max=32"`
	Address       string `json:"address" validate:"omitempty,max=300"`
	PaymentMethod string `json:"paymentMethod" validate:"required,startswith=pm_"`
	Discount      int64  `json:"discount" validate:"gte=0"`
	Locale        string `json:"locale" validate:"omitempty,bcp47_language_tag"`
}

// Output is returned to the storefront after a successful checkout.
type Output struct {
	OrderID       string         `json:"orderId"`
	InvoiceNumber string         `json:"invoiceNumber"`
	Status        string         `json:"status"`
	IssuedAt      time.Time      `json:"issuedAt"`
	Totals        pricing.Totals `json:"totals"`
}

// Service orchestrates the whole flow: freeze the cart, price it, open and
// confirm the payment intent, render the invoice and clear the cart. Pricing
// happens exactly once per submission; the processor and the invoice always
// see the same grand total.
type Service struct {
	R          *redis.Client
	Cart       *cart.Service
	Provider   payment.Provider
	Renderer   *invoice.Renderer
	Locker     lock.Locker
	Events     *events.Bus
	Log        zerolog.Logger
	Store      invoice.StoreProfile
	Currency   string
	TaxBps     int
	Shipping   pricing.Money
	Locale     string
	LockTTL    time.Duration
	InvoiceTTL time.Duration
}

// Submit runs one confirmation attempt for the session's cart.
func (s *Service) Submit(ctx context.Context, sessionID string, in Input) (Output, error) {
	if s == nil || s.R == nil || s.Cart == nil || s.Provider == nil {
		return Output{}, errors.New("checkout: service not configured")
	}
	if sessionID == "" {
		return Output{}, errors.New("checkout: session id is required")
	}

	var out Output
	err := s.Locker.TryWithLock(ctx, "checkout:lock:"+sessionID, s.lockTTL(), func(ctx context.Context) error {
		var err error
		out, err = s.submitLocked(ctx, sessionID, in)
		return err
	})
	if errors.Is(err, lock.ErrHeld) {
		s.count("in_progress")
		return Output{}, ErrInProgress
	}
	return out, err
}

func (s *Service) submitLocked(ctx context.Context, sessionID string, in Input) (Output, error) {
	states := stateStore{r: s.R, ttl: s.invoiceTTL()}
	sess, err := states.load(ctx, sessionID)
	if err != nil {
		return Output{}, err
	}
	if sess.State == StateSucceeded {
		s.count("already_paid")
		return Output{}, ErrAlreadyPaid
	}
	if !sess.State.CanSubmit() {
		s.count("in_progress")
		return Output{}, ErrInProgress
	}

	// Freeze the cart before touching the processor. Later cart edits must
	// not change what this submission charges or invoices.
	items, err := s.Cart.Snapshot(ctx, sessionID)
	if err != nil {
		return Output{}, err
	}
	if len(items) == 0 {
		s.count("cart_empty")
		return Output{}, ErrCartEmpty
	}

	totals := pricing.Compute(items, s.TaxBps, s.Shipping, pricing.Money(in.Discount), s.Currency)
	if totals.GrandTotal <= 0 {
		s.count("cart_empty")
		return Output{}, ErrCartEmpty
	}

	if err := states.save(ctx, sessionID, Session{State: StateSubmitting}); err != nil {
		return Output{}, err
	}

	intent, err := s.Provider.CreateIntent(ctx, totals.GrandTotal, s.Currency)
	if err != nil {
		return Output{}, s.fail(ctx, states, sessionID, totals, "intent_create_failed", err)
	}

	result, err := s.Provider.Confirm(ctx, intent.ClientSecret, in.PaymentMethod, payment.BillingDetails{
		Name:  in.Name,
		Email: in.Email,
		Phone: in.Phone,
	})
	if err != nil {
		s.countConfirm("error")
		return Output{}, s.fail(ctx, states, sessionID, totals, "confirm_failed", err)
	}
	if !result.Paid {
		s.countConfirm("declined")
		declined := &PaymentDeclinedError{Code: result.FailureCode, Message: result.FailureMessage}
		return Output{}, s.fail(ctx, states, sessionID, totals, result.FailureCode, declined)
	}
	s.countConfirm("ok")

	// The customer may have closed the page while the confirmation was in
	// flight. The charge already happened, so none of the bookkeeping below
	// may be lost to a cancelled request context.
	ctx = context.WithoutCancel(ctx)

	orderID := result.IntentID
	if orderID == "" {
		orderID = invoice.NewOrderID()
	}
	number := invoice.NewNumber()
	locale := in.Locale
	if locale == "" {
		locale = s.Locale
	}

	issuedAt := time.Now().UTC()
	record := invoice.Record{
		Number:   number,
		OrderID:  orderID,
		IssuedAt: issuedAt,
		Locale:   locale,
		Store:    s.Store,
		Customer: invoice.CustomerInfo{
			Name:    in.Name,
			Phone:   in.Phone,
			Email:   in.Email,
			Address: in.Address,
		},
		Items:  toLineItems(items),
		Totals: totals,
		Paid:   true,
	}
	s.renderAndCache(ctx, record)

	if err := s.Cart.Clear(ctx, sessionID); err != nil {
		// The payment went through; losing the cart clear is recoverable.
		s.Log.Warn().Err(err).Str("session_id", sessionID).Msg("clear cart after checkout failed")
	}

	if err := states.save(ctx, sessionID, Session{
		State:         StateSucceeded,
		OrderID:       orderID,
		InvoiceNumber: number,
	}); err != nil {
		s.Log.Warn().Err(err).Str("session_id", sessionID).Msg("persist checkout state failed")
	}

	s.count("ok")
	if s.Events != nil {
		s.Events.Emit(ctx, events.TopicOrderPaid, events.OrderPaid{
			OrderID:       orderID,
			InvoiceNumber: number,
			SessionID:     sessionID,
			GrandTotal:    int64(totals.GrandTotal),
			Currency:      totals.Currency,
		})
	}

	return Output{
		OrderID:       orderID,
		InvoiceNumber: number,
		Status:        string(StateSucceeded),
		IssuedAt:      issuedAt,
		Totals:        totals,
	}, nil
}

// fail records the failed state and emits the failure event. The cart is left
// untouched so the customer can retry. The state write survives a cancelled
// request context: a session stuck in submitting would refuse every retry
// until the state key expires.
func (s *Service) fail(ctx context.Context, states stateStore, sessionID string, totals pricing.Totals, reason string, cause error) error {
	ctx = context.WithoutCancel(ctx)
	s.count("failed")
	if err := states.save(ctx, sessionID, Session{State: StateFailed, FailureReason: reason}); err != nil {
		s.Log.Warn().Err(err).Str("session_id", sessionID).Msg("persist failed checkout state")
	}
	if s.Events != nil {
		s.Events.Emit(ctx, events.TopicPaymentFailed, events.PaymentFailed{
			SessionID: sessionID,
			Amount:    int64(totals.GrandTotal),
			Currency:  totals.Currency,
			Reason:    reason,
		})
	}
	return cause
}

func (s *Service) renderAndCache(ctx context.Context, record invoice.Record) {
	if s.Renderer == nil {
		return
	}
	start := time.Now()
	pdf, err := s.Renderer.Render(record)
	if err != nil {
		// Payment already succeeded; a render failure must not unwind it.
		s.Log.Error().Err(err).Str("invoice", record.Number).Msg("invoice render failed")
		s.countRender("error")
		return
	}
	s.countRender("ok")
	if obs.InvoiceRenderDuration != nil {
		obs.InvoiceRenderDuration.Observe(float64(time.Since(start).Milliseconds()))
	}
	if err := s.R.Set(ctx, invoiceKey(record.Number), pdf, s.invoiceTTL()).Err(); err != nil {
		s.Log.Warn().Err(err).Str("invoice", record.Number).Msg("cache invoice pdf failed")
	}
}

// InvoicePDF returns the cached document for an issued invoice.
func (s *Service) InvoicePDF(ctx context.Context, number string) ([]byte, error) {
	if s == nil || s.R == nil {
		return nil, errors.New("checkout: service not configured")
	}
	raw, err := s.R.Get(ctx, invoiceKey(number)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func invoiceKey(number string) string {
	return "invoice:pdf:" + number
}

func toLineItems(items []pricing.Item) []invoice.LineItem {
	out := make([]invoice.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, invoice.LineItem{
			Name:      it.Name,
			Qty:       int64(it.Qty),
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal(),
		})
	}
	return out
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL > 0 {
		return s.LockTTL
	}
	return 2 * time.Minute
}

func (s *Service) invoiceTTL() time.Duration {
	if s.InvoiceTTL > 0 {
		return s.InvoiceTTL
	}
	return 24 * time.Hour
}

func (s *Service) count(result string) {
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) countConfirm(result string) {
	if obs.PaymentConfirmTotal == nil {
		return
	}
	provider := "unknown"
	if s.Provider != nil {
		provider = s.Provider.Name()
	}
	obs.PaymentConfirmTotal.WithLabelValues(provider, result).Inc()
}

func (s *Service) countRender(result string) {
	if obs.InvoiceRenderTotal != nil {
		obs.InvoiceRenderTotal.WithLabelValues(result).Inc()
	}
}
