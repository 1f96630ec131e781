package health

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minhvu-dev/sakura-store/internal/common"
)

// Checker answers liveness and readiness probes. Redis backs the cart,
// checkout state and invoice cache, so readiness is tied to it.
type Checker struct {
	Redis   *redis.Client
	Timeout time.Duration
}

// Live reports process liveness. It always succeeds while the process can
// serve HTTP at all.
func (c Checker) Live(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether dependencies are reachable.
func (c Checker) Ready(w http.ResponseWriter, r *http.Request) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	checks := map[string]string{}
	status := http.StatusOK

	if c.Redis == nil {
		checks["redis"] = "not configured"
		status = http.StatusServiceUnavailable
	} else if err := c.Redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["redis"] = "ok"
	}

	body := map[string]any{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	common.JSON(w, status, body)
}
