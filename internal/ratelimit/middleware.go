package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/minhvu-dev/sakura-store/internal/common"
)

// Limiter decides whether a hit identified by key fits in the window.
type Limiter interface {
	Allow(ctx context.Context, key string, window time.Duration, max int64) (bool, int64, time.Time, error)
}

// Middleware limits requests per client IP. The payment intent relay has no
// authentication, so the source address is the only handle we have on a
// client; the limit is a brake on abuse, not a quota system.
type Middleware struct {
	Limiter Limiter
	Window  time.Duration
	Max     int64
	Prefix  string
	Log     zerolog.Logger
}

func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := fmt.Sprintf("%s:%s", m.Prefix, common.ClientIP(r))
		ok, remaining, reset, err := m.Limiter.Allow(r.Context(), key, m.Window, m.Max)
		if err != nil {
			// Fail open: a Redis hiccup must not take checkout down.
			m.Log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.Max))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset.Unix()))
		if !ok {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(time.Until(reset).Seconds())+1))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, slow down", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
