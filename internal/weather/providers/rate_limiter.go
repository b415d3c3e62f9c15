package providers

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/liondevhq/weather-tomorrow/internal/weather"
)

// RateLimitedFetcher wraps a RawSeriesFetcher with a token bucket so a large
// city list does not exceed the upstream request quota.
type RateLimitedFetcher struct {
	fetcher weather.RawSeriesFetcher
	limiter *rate.Limiter
	name    string
}

// NewRateLimitedFetcher allows rps requests per second (fractional values
// allowed) with the given burst.
func NewRateLimitedFetcher(fetcher weather.RawSeriesFetcher, rps float64, burst int) *RateLimitedFetcher {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedFetcher{
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    fmt.Sprintf("%s [rate limited]", fetcher.Name()),
	}
}

// Fetch waits for a token or ctx cancellation before forwarding.
func (r *RateLimitedFetcher) Fetch(ctx context.Context, loc weather.Location, units weather.Units) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.fetcher.Fetch(ctx, loc, units)
}

func (r *RateLimitedFetcher) Name() string {
	return r.name
}

var _ weather.RawSeriesFetcher = (*RateLimitedFetcher)(nil)
