package era5

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/foehnwatch/tas-tracker/internal/domain"
	"github.com/foehnwatch/tas-tracker/internal/observability"
)

// CachedFetcher wraps a fetcher with a per-region TTL cache so a batch
// run fetches each region once instead of once per frame.
type CachedFetcher struct {
	inner   domain.PartialYearFetcher
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	values  []float64
	fetched time.Time
}

// NewCachedFetcher creates a cache decorator around a fetcher. A zero
// TTL disables caching. A nil clock falls back to the wall clock.
func NewCachedFetcher(inner domain.PartialYearFetcher, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedFetcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedFetcher{
		inner:   inner,
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedFetcher) FetchPartialYear(ctx context.Context, region string) ([]float64, error) {
	if c.ttl > 0 {
		c.mu.Lock()
		e, ok := c.entries[region]
		c.mu.Unlock()

		if ok && c.clock.Since(e.fetched) < c.ttl {
			c.metrics.NRTCache.WithLabelValues("hit").Inc()
			return append([]float64(nil), e.values...), nil
		}
	}
	c.metrics.NRTCache.WithLabelValues("miss").Inc()

	values, err := c.inner.FetchPartialYear(ctx, region)
	if err != nil {
		return nil, err
	}

	if c.ttl > 0 {
		c.mu.Lock()
		c.entries[region] = cacheEntry{
			values:  append([]float64(nil), values...),
			fetched: c.clock.Now(),
		}
		c.mu.Unlock()
	}

	return values, nil
}
