package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound indicates the requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Query narrows a catalog listing. Zero values mean "no filter".
type Query struct {
	Category string
	Search   string
	Tag      Tag
	MinPrice int64
	MaxPrice int64
}

func (q Query) cacheKey() string {
	return fmt.Sprintf("catalog:list:%s:%s:%s:%d:%d",
		strings.ToLower(q.Category), strings.ToLower(q.Search), q.Tag, q.MinPrice, q.MaxPrice)
}

// Service serves the fixed product assortment with optional Redis caching of
// filtered listings.
type Service struct {
	products []Product
	byID     map[int64]Product
	cache    *Cache
}

// NewService builds the catalog from the seed assortment.
func NewService(cache *Cache) *Service {
	products := seedProducts()
	byID := make(map[int64]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &Service{products: products, byID: byID, cache: cache}
}

// List returns products matching the query, in catalog order.
func (s *Service) List(ctx context.Context, q Query) ([]Product, error) {
	key := q.cacheKey()
	var cached []Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if !matches(p, q) {
			continue
		}
		out = append(out, p)
	}
	_ = s.cache.SetJSON(ctx, key, out)
	return out, nil
}

// Get returns a single product by id.
func (s *Service) Get(_ context.Context, id int64) (Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

// Featured returns the storefront's highlighted products (first four, as the
// original assortment does).
func (s *Service) Featured(_ context.Context) []Product {
	n := 4
	if len(s.products) < n {
		n = len(s.products)
	}
	return append([]Product(nil), s.products[:n]...)
}

// Categories lists the distinct categories present in the assortment.
func (s *Service) Categories(_ context.Context) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 4)
	for _, p := range s.products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out
}

func matches(p Product, q Query) bool {
	if q.Category != "" && !strings.EqualFold(p.Category, q.Category) {
		return false
	}
	if q.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search)) {
		return false
	}
	if q.Tag != "" && !p.HasTag(q.Tag) {
		return false
	}
	if q.MinPrice > 0 && p.Price < q.MinPrice {
		return false
	}
	if q.MaxPrice > 0 && p.Price > q.MaxPrice {
		return false
	}
	return true
}
