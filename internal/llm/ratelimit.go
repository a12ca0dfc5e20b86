package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedClient throttles completions so a burst of inbound messages
// cannot exhaust the provider quota.
type RateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps inner with a requests-per-second cap.
// A non-positive rps returns inner unchanged.
func NewRateLimitedClient(inner Client, rps float64) Client {
	if inner == nil {
		panic("llm: inner client cannot be nil")
	}
	if rps <= 0 {
		return inner
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Complete waits for limiter capacity, then delegates.
func (c *RateLimitedClient) Complete(ctx context.Context, req Request) (Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf("llm: rate limit wait: %w", err)
	}
	return c.inner.Complete(ctx, req)
}
