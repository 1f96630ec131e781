package lock_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/minhvu-dev/sakura-store/internal/lock"
)

func newLocker(t *testing.T) lock.Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client}
}

func TestTryWithLockRefusesConcurrentHolder(t *testing.T) {
	locker := newLocker(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- locker.TryWithLock(ctx, "checkout:s1", time.Minute, func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	// Second caller is refused immediately while the first holds the lock.
	err := locker.TryWithLock(ctx, "checkout:s1", time.Minute, func(context.Context) error {
		t.Fatal("callback must not run while lock is held")
		return nil
	})
	require.ErrorIs(t, err, lock.ErrHeld)

	close(release)
	require.NoError(t, <-done)

	// Released lock can be re-acquired.
	var ran bool
	require.NoError(t, locker.TryWithLock(ctx, "checkout:s1", time.Minute, func(context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}

func TestTryWithLockReleasesOnError(t *testing.T) {
	locker := newLocker(t)
	ctx := context.Background()

	wantErr := context.DeadlineExceeded
	err := locker.TryWithLock(ctx, "checkout:s2", time.Minute, func(context.Context) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	require.NoError(t, locker.TryWithLock(ctx, "checkout:s2", time.Minute, func(context.Context) error {
		return nil
	}))
}
