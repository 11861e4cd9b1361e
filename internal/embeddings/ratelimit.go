package embeddings

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to a wrapped Embedder. Each text counts as one
// request against the limit.
type RateLimited struct {
	Embedder
	limiter *rate.Limiter
}

// NewRateLimited allows at most rpm texts per minute through e. rpm <= 0
// returns e unchanged.
func NewRateLimited(e Embedder, rpm int) Embedder {
	if rpm <= 0 {
		return e
	}
	return &RateLimited{
		Embedder: e,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

func (r *RateLimited) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for range texts {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return r.Embedder.Embed(ctx, texts)
}
