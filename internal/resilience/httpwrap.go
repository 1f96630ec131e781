package resilience

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// HTTPClient wraps an http.Client with a per-call timeout and a circuit
// breaker. The payment relay makes exactly one attempt per client request, so
// unlike a generic retrying client there is no retry loop here: a failed call
// surfaces immediately and the caller decides whether the user may resubmit.
type HTTPClient struct {
	Client  *http.Client
	Breaker *Breaker
	Timeout time.Duration
}

// Do executes the request once. When the breaker is open ErrOpenCircuit is
// returned without contacting the downstream service. 5xx responses count as
// failures for the breaker but are returned to the caller untouched.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	breaker := cl.Breaker
	if breaker == nil {
		// default to a closed breaker that never trips
		breaker = NewBreaker(1, 1, time.Second)
	}
	if !breaker.Allow(ctx) {
		return nil, ErrOpenCircuit
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if cl.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, cl.Timeout)
	}

	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if err != nil {
		if cancel != nil {
			cancel()
		}
		breaker.Report(ctx, false)
		return nil, err
	}
	if cancel != nil {
		// The deadline must survive until the body is drained.
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	}
	breaker.Report(ctx, resp.StatusCode < http.StatusInternalServerError)
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
