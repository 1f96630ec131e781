package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/minhvu-dev/sakura-store/internal/cart"
	"github.com/minhvu-dev/sakura-store/internal/catalog"
)

func newService(t *testing.T) (*cart.Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &cart.Service{R: client, Catalog: catalog.NewService(nil), TTL: time.Hour}, mr
}

func TestAddAndGet(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "s1", 1, 2))
	require.NoError(t, svc.Add(ctx, "s1", 2, 1))
	// Adding an existing product increments its quantity.
	require.NoError(t, svc.Add(ctx, "s1", 1, 1))

	view, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	require.Equal(t, 3, view.Items[0].Qty)
	require.EqualValues(t, 300, view.Items[0].LineTotal)
	require.EqualValues(t, 500, view.Subtotal)
}

func TestAddValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	require.ErrorIs(t, svc.Add(ctx, "s1", 1, 0), cart.ErrInvalidInput)
	require.ErrorIs(t, svc.Add(ctx, "s1", 999, 1), cart.ErrInvalidInput)
	require.ErrorIs(t, svc.Add(ctx, "", 1, 1), cart.ErrInvalidInput)
}

func TestDecreaseRemovesAtZero(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "s1", 5, 1))
	require.NoError(t, svc.Decrease(ctx, "s1", 5))

	view, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, view.Items)

	require.ErrorIs(t, svc.Decrease(ctx, "s1", 5), cart.ErrNotFound)
}

func TestIncreaseUnknownItem(t *testing.T) {
	svc, _ := newService(t)
	require.ErrorIs(t, svc.Increase(context.Background(), "s1", 1), cart.ErrNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "s1", 1, 1))
	require.NoError(t, svc.Add(ctx, "s1", 2, 1))
	require.NoError(t, svc.Remove(ctx, "s1", 1))
	require.ErrorIs(t, svc.Remove(ctx, "s1", 1), cart.ErrNotFound)

	require.NoError(t, svc.Clear(ctx, "s1"))
	view, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, view.Items)
}

func TestSessionsAreIsolated(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "alice", 1, 1))
	require.NoError(t, svc.Add(ctx, "bob", 2, 2))

	alice, err := svc.Get(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice.Items, 1)
	require.EqualValues(t, 1, alice.Items[0].Product.ID)

	bob, err := svc.Get(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bob.Items, 1)
	require.EqualValues(t, 2, bob.Items[0].Product.ID)
}

func TestSnapshot(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "s1", 1, 2))
	snapshot, err := svc.Snapshot(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	require.Equal(t, "Product 1", snapshot[0].Name)
	require.Equal(t, 2, snapshot[0].Qty)
	require.EqualValues(t, 100, snapshot[0].UnitPrice)

	// Mutating the live cart does not affect an already-taken snapshot.
	require.NoError(t, svc.Clear(ctx, "s1"))
	require.Equal(t, 2, snapshot[0].Qty)
}

func TestCartTTLRefreshed(t *testing.T) {
	svc, mr := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "s1", 1, 1))
	require.Greater(t, mr.TTL("cart:s1"), time.Duration(0))
}
