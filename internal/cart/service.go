package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minhvu-dev/sakura-store/internal/catalog"
	"github.com/minhvu-dev/sakura-store/internal/pricing"
)

// ErrNotFound indicates the product is not present in the cart.
var ErrNotFound = errors.New("cart item not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Line is a cart entry resolved against the catalog.
type Line struct {
	Product   catalog.Product `json:"product"`
	Qty       int             `json:"qty"`
	LineTotal int64           `json:"lineTotal"`
}

// View is the resolved cart returned to clients.
type View struct {
	SessionID string `json:"sessionId"`
	Items     []Line `json:"items"`
	Subtotal  int64  `json:"subtotal"`
}

// Service keeps one cart per anonymous session as a Redis hash mapping
// product id to quantity. The hash TTL is refreshed on every touch.
type Service struct {
	R       *redis.Client
	Catalog *catalog.Service
	TTL     time.Duration
	Now     func() time.Time
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func key(sessionID string) string {
	return "cart:" + sessionID
}

// Add inserts the product or increments its quantity.
func (s *Service) Add(ctx context.Context, sessionID string, productID int64, qty int) error {
	if s == nil || s.R == nil || s.Catalog == nil {
		return errors.New("cart service not configured")
	}
	if sessionID == "" {
		return fmt.Errorf("session id is required: %w", ErrInvalidInput)
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	if _, err := s.Catalog.Get(ctx, productID); err != nil {
		return fmt.Errorf("unknown product %d: %w", productID, ErrInvalidInput)
	}
	field := strconv.FormatInt(productID, 10)
	if err := s.R.HIncrBy(ctx, key(sessionID), field, int64(qty)).Err(); err != nil {
		return err
	}
	return s.touch(ctx, sessionID)
}

// Increase bumps the quantity of an existing entry by one.
func (s *Service) Increase(ctx context.Context, sessionID string, productID int64) error {
	return s.adjust(ctx, sessionID, productID, 1)
}

// Decrease lowers the quantity by one, removing the entry when it reaches zero.
func (s *Service) Decrease(ctx context.Context, sessionID string, productID int64) error {
	return s.adjust(ctx, sessionID, productID, -1)
}

func (s *Service) adjust(ctx context.Context, sessionID string, productID int64, delta int64) error {
	if s == nil || s.R == nil {
		return errors.New("cart service not configured")
	}
	field := strconv.FormatInt(productID, 10)
	exists, err := s.R.HExists(ctx, key(sessionID), field).Result()
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	remaining, err := s.R.HIncrBy(ctx, key(sessionID), field, delta).Result()
	if err != nil {
		return err
	}
	if remaining <= 0 {
		if err := s.R.HDel(ctx, key(sessionID), field).Err(); err != nil {
			return err
		}
	}
	return s.touch(ctx, sessionID)
}

// Remove deletes the product from the cart regardless of quantity.
func (s *Service) Remove(ctx context.Context, sessionID string, productID int64) error {
	if s == nil || s.R == nil {
		return errors.New("cart service not configured")
	}
	field := strconv.FormatInt(productID, 10)
	removed, err := s.R.HDel(ctx, key(sessionID), field).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrNotFound
	}
	return s.touch(ctx, sessionID)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if s == nil || s.R == nil {
		return errors.New("cart service not configured")
	}
	return s.R.Del(ctx, key(sessionID)).Err()
}

// Get resolves the cart against the catalog, dropping entries whose product
// no longer exists.
func (s *Service) Get(ctx context.Context, sessionID string) (View, error) {
	if s == nil || s.R == nil || s.Catalog == nil {
		return View{}, errors.New("cart service not configured")
	}
	raw, err := s.R.HGetAll(ctx, key(sessionID)).Result()
	if err != nil {
		return View{}, err
	}
	view := View{SessionID: sessionID, Items: make([]Line, 0, len(raw))}
	for field, value := range raw {
		productID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		qty, err := strconv.Atoi(value)
		if err != nil || qty <= 0 {
			continue
		}
		product, err := s.Catalog.Get(ctx, productID)
		if err != nil {
			continue
		}
		line := Line{Product: product, Qty: qty, LineTotal: int64(qty) * product.Price}
		view.Items = append(view.Items, line)
		view.Subtotal += line.LineTotal
	}
	sort.Slice(view.Items, func(i, j int) bool { return view.Items[i].Product.ID < view.Items[j].Product.ID })
	return view, nil
}

// Snapshot freezes the cart as immutable pricing line items for checkout.
// The caller must use this snapshot for the whole transaction instead of
// re-reading the live cart, which may change mid-payment.
func (s *Service) Snapshot(ctx context.Context, sessionID string) ([]pricing.Item, error) {
	view, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items := make([]pricing.Item, 0, len(view.Items))
	for _, line := range view.Items {
		items = append(items, pricing.Item{
			Name:      line.Product.Name,
			Qty:       line.Qty,
			UnitPrice: line.Product.Price,
		})
	}
	return items, nil
}

func (s *Service) touch(ctx context.Context, sessionID string) error {
	return s.R.Expire(ctx, key(sessionID), s.ttl()).Err()
}
