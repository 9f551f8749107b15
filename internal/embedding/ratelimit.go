package embedding

import (
	"context"

	"golang.org/x/time/rate"

	"ragchat/internal/domain"
)

// RateLimited spaces out calls to a remote embedder so that a parallel index
// build stays under the provider's request quota.
type RateLimited struct {
	inner   domain.Embedder
	limiter *rate.Limiter
}

// NewRateLimited allows rps requests per second with the given burst.
func NewRateLimited(inner domain.Embedder, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) Name() string            { return r.inner.Name() }
func (r *RateLimited) Dimension() int          { return r.inner.Dimension() }
func (r *RateLimited) Unwrap() domain.Embedder { return r.inner }

func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, domain.NewProviderError(r.inner.Name(), "rate limit wait", err)
	}
	return r.inner.Embed(ctx, text)
}

func (r *RateLimited) Prepare(corpus []string) error {
	return Prepare(r.inner, corpus)
}
