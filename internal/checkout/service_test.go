package checkout_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/minhvu-dev/sakura-store/internal/cart"
	"github.com/minhvu-dev/sakura-store/internal/catalog"
	"github.com/minhvu-dev/sakura-store/internal/checkout"
	"github.com/minhvu-dev/sakura-store/internal/events"
	"github.com/minhvu-dev/sakura-store/internal/i18n"
	"github.com/minhvu-dev/sakura-store/internal/invoice"
	"github.com/minhvu-dev/sakura-store/internal/lock"
	"github.com/minhvu-dev/sakura-store/internal/payment"
)

// fakeProvider counts intent creations and can be paused mid-confirm to
// exercise concurrent submissions.
type fakeProvider struct {
	mu              sync.Mutex
	intents         int
	confirms        int
	declineCode     string
	intentErr       error
	hold            chan struct{}
	cancelInConfirm func()
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CreateIntent(_ context.Context, amount int64, currency string) (payment.Intent, error) {
	f.mu.Lock()
	f.intents++
	n := f.intents
	f.mu.Unlock()
	if f.intentErr != nil {
		return payment.Intent{}, f.intentErr
	}
	id := fmt.Sprintf("pi_%d", n)
	return payment.Intent{
		ID:           id,
		ClientSecret: id + "_secret_test",
		Amount:       amount,
		Currency:     currency,
	}, nil
}

func (f *fakeProvider) Confirm(ctx context.Context, clientSecret, _ string, _ payment.BillingDetails) (payment.ConfirmResult, error) {
	if f.hold != nil {
		select {
		case <-f.hold:
		case <-ctx.Done():
			return payment.ConfirmResult{}, ctx.Err()
		}
	}
	if f.cancelInConfirm != nil {
		f.cancelInConfirm()
	}
	f.mu.Lock()
	f.confirms++
	f.mu.Unlock()
	if f.declineCode != "" {
		return payment.ConfirmResult{
			IntentID:    payment.IntentIDFromClientSecret(clientSecret),
			Status:      "requires_payment_method",
			FailureCode: f.declineCode,
		}, nil
	}
	return payment.ConfirmResult{
		IntentID: payment.IntentIDFromClientSecret(clientSecret),
		Status:   "succeeded",
		Paid:     true,
	}, nil
}

func (f *fakeProvider) intentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.intents
}

type fixture struct {
	svc      *checkout.Service
	cart     *cart.Service
	provider *fakeProvider
	client   *redis.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	translator, err := i18n.New("vi")
	require.NoError(t, err)

	catalogSvc := catalog.NewService(nil)
	cartSvc := &cart.Service{R: client, Catalog: catalogSvc}
	provider := &fakeProvider{}

	svc := &checkout.Service{
		R:        client,
		Cart:     cartSvc,
		Provider: provider,
		Renderer: &invoice.Renderer{T: translator},
		Locker:   lock.Locker{R: client},
		Events:   events.NewBus(zerolog.Nop()),
		Log:      zerolog.Nop(),
		Store:    invoice.StoreProfile{Name: "Sakura Store"},
		Currency: "JPY",
		TaxBps:   1000,
		Locale:   "vi",
	}
	return &fixture{svc: svc, cart: cartSvc, provider: provider, client: client}
}

func validInput() checkout.Input {
	return checkout.Input{
		Name:          "Nguyen Van A",
		Email:         "a@example.com",
		PaymentMethod: "pm_card_visa",
	}
}

func TestSubmitSuccess(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.cart.Add(ctx, "s1", 1, 2))

	out, err := fx.svc.Submit(ctx, "s1", validInput())
	require.NoError(t, err)
	require.Equal(t, "succeeded", out.Status)
	require.Equal(t, "pi_1", out.OrderID)
	require.Regexp(t, `^INV-[0-9A-Z]{6}$`, out.InvoiceNumber)
	// 2 x 100 with 10% tax and no shipping or discount.
	require.Equal(t, int64(220), int64(out.Totals.GrandTotal))

	// Cart was cleared.
	view, err := fx.cart.Get(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, view.Items)

	// Invoice is downloadable.
	pdf, err := fx.svc.InvoicePDF(ctx, out.InvoiceNumber)
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(pdf[:4]))
}

func TestSubmitEmptyCart(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.Submit(context.Background(), "s-empty", validInput())
	require.ErrorIs(t, err, checkout.ErrCartEmpty)
	require.Zero(t, fx.provider.intentCount())
}

func TestSubmitDeclineKeepsCart(t *testing.T) {
	fx := newFixture(t)
	fx.provider.declineCode = "card_declined"
	ctx := context.Background()
	require.NoError(t, fx.cart.Add(ctx, "s2", 3, 1))

	_, err := fx.svc.Submit(ctx, "s2", validInput())
	var declined *checkout.PaymentDeclinedError
	require.ErrorAs(t, err, &declined)
	require.Equal(t, "card_declined", declined.Code)

	// Failure leaves the cart intact for a retry.
	view, err := fx.cart.Get(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	// Retry after fixing the card succeeds.
	fx.provider.declineCode = ""
	out, err := fx.svc.Submit(ctx, "s2", validInput())
	require.NoError(t, err)
	require.Equal(t, "succeeded", out.Status)
}

func TestSubmitAfterSuccessIsRejected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.cart.Add(ctx, "s3", 2, 1))

	_, err := fx.svc.Submit(ctx, "s3", validInput())
	require.NoError(t, err)

	_, err = fx.svc.Submit(ctx, "s3", validInput())
	require.ErrorIs(t, err, checkout.ErrAlreadyPaid)
	require.Equal(t, 1, fx.provider.intentCount())
}

func TestConcurrentSubmitCreatesOneIntent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.cart.Add(ctx, "s4", 4, 1))

	fx.provider.hold = make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		_, err := fx.svc.Submit(ctx, "s4", validInput())
		firstDone <- err
	}()

	// Wait until the first submission holds the lock inside Confirm.
	require.Eventually(t, func() bool {
		return fx.provider.intentCount() == 1
	}, time.Second, 5*time.Millisecond)

	_, err := fx.svc.Submit(ctx, "s4", validInput())
	require.ErrorIs(t, err, checkout.ErrInProgress)

	close(fx.provider.hold)
	require.NoError(t, <-firstDone)
	require.Equal(t, 1, fx.provider.intentCount())
}

func TestSubmitAbandonedMidConfirmAllowsRetry(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.cart.Add(context.Background(), "s6", 1, 1))

	fx.provider.hold = make(chan struct{})
	reqCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := fx.svc.Submit(reqCtx, "s6", validInput())
		done <- err
	}()
	require.Eventually(t, func() bool {
		return fx.provider.intentCount() == 1
	}, time.Second, 5*time.Millisecond)

	// The customer navigates away while the confirmation is in flight.
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	// The session must not be stuck in submitting: a fresh request retries.
	fx.provider.hold = nil
	out, err := fx.svc.Submit(context.Background(), "s6", validInput())
	require.NoError(t, err)
	require.Equal(t, "succeeded", out.Status)
}

func TestSubmitClientGoneAfterConfirmStillSettles(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.cart.Add(context.Background(), "s7", 2, 1))

	// The request context dies just as the processor confirms the charge.
	reqCtx, cancel := context.WithCancel(context.Background())
	fx.provider.cancelInConfirm = cancel

	out, err := fx.svc.Submit(reqCtx, "s7", validInput())
	require.NoError(t, err)
	require.Equal(t, "succeeded", out.Status)

	// Settlement survived the cancellation: cart cleared, invoice cached,
	// resubmission refused.
	view, err := fx.cart.Get(context.Background(), "s7")
	require.NoError(t, err)
	require.Empty(t, view.Items)

	pdf, err := fx.svc.InvoicePDF(context.Background(), out.InvoiceNumber)
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(pdf[:4]))

	_, err = fx.svc.Submit(context.Background(), "s7", validInput())
	require.ErrorIs(t, err, checkout.ErrAlreadyPaid)
}

func TestSubmitIntentFailure(t *testing.T) {
	fx := newFixture(t)
	fx.provider.intentErr = &payment.ProcessorError{Type: "api_error", Message: "boom"}
	ctx := context.Background()
	require.NoError(t, fx.cart.Add(ctx, "s5", 1, 1))

	_, err := fx.svc.Submit(ctx, "s5", validInput())
	var perr *payment.ProcessorError
	require.ErrorAs(t, err, &perr)

	view, err := fx.cart.Get(ctx, "s5")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
}

func TestInvoicePDFUnknownNumber(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.InvoicePDF(context.Background(), "INV-ZZZZZZ")
	require.ErrorIs(t, err, checkout.ErrInvoiceNotFound)
}
