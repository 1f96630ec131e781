package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SlidingWindow is a Redis-backed sliding window counter. Each hit becomes a
// member of a sorted set scored by its timestamp; anything older than the
// window is pruned on the way in, so a burst at the window edge cannot double
// the effective budget the way a fixed-window counter would.
type SlidingWindow struct {
	R *redis.Client
}

// Allow records a hit for key and reports whether it stayed within max hits
// per window. It also returns the remaining budget and when the window resets.
func (s SlidingWindow) Allow(ctx context.Context, key string, window time.Duration, max int64) (bool, int64, time.Time, error) {
	if s.R == nil {
		return true, max, time.Now().Add(window), nil
	}
	now := time.Now()
	cutoff := now.Add(-window)

	pipe := s.R.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", cutoff.UnixNano()))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, now.Add(window), err
	}

	used := count.Val()
	remaining := max - used
	if remaining < 0 {
		remaining = 0
	}
	return used <= max, remaining, now.Add(window), nil
}
