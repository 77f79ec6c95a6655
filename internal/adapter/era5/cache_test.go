package era5

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foehnwatch/tas-tracker/internal/observability"
)

// --- mock for cache tests ---

type countingFetcher struct {
	calls  int
	values []float64
	err    error
}

func (m *countingFetcher) FetchPartialYear(_ context.Context, _ string) ([]float64, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.values, nil
}

// --- CachedFetcher tests ---

func TestCachedFetcher_HitWithinTTL(t *testing.T) {
	inner := &countingFetcher{values: []float64{1, 2, 3}}
	clock := clockwork.NewFakeClock()
	cached := NewCachedFetcher(inner, 10*time.Minute, clock, observability.NewMetricsForTesting())

	v1, err := cached.FetchPartialYear(context.Background(), "austria")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, v1)

	clock.Advance(9 * time.Minute)

	v2, err := cached.FetchPartialYear(context.Background(), "austria")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, v2)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedFetcher_ExpiresAfterTTL(t *testing.T) {
	inner := &countingFetcher{values: []float64{1}}
	clock := clockwork.NewFakeClock()
	cached := NewCachedFetcher(inner, 10*time.Minute, clock, observability.NewMetricsForTesting())

	_, err := cached.FetchPartialYear(context.Background(), "austria")
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)

	_, err = cached.FetchPartialYear(context.Background(), "austria")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedFetcher_DifferentRegionsMiss(t *testing.T) {
	inner := &countingFetcher{values: []float64{1}}
	cached := NewCachedFetcher(inner, 10*time.Minute, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	_, _ = cached.FetchPartialYear(context.Background(), "austria")
	_, _ = cached.FetchPartialYear(context.Background(), "europe")

	assert.Equal(t, 2, inner.calls)
}

func TestCachedFetcher_ZeroTTLDisablesCaching(t *testing.T) {
	inner := &countingFetcher{values: []float64{1}}
	cached := NewCachedFetcher(inner, 0, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	_, _ = cached.FetchPartialYear(context.Background(), "austria")
	_, _ = cached.FetchPartialYear(context.Background(), "austria")

	assert.Equal(t, 2, inner.calls)
}

func TestCachedFetcher_ErrorsNotCached(t *testing.T) {
	inner := &countingFetcher{err: errors.New("feed down")}
	cached := NewCachedFetcher(inner, 10*time.Minute, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	_, err := cached.FetchPartialYear(context.Background(), "austria")
	require.Error(t, err)

	inner.err = nil
	inner.values = []float64{5}

	v, err := cached.FetchPartialYear(context.Background(), "austria")
	require.NoError(t, err)
	assert.Equal(t, []float64{5}, v)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedFetcher_HitReturnsCopy(t *testing.T) {
	inner := &countingFetcher{values: []float64{1, 2}}
	cached := NewCachedFetcher(inner, 10*time.Minute, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	v1, err := cached.FetchPartialYear(context.Background(), "austria")
	require.NoError(t, err)
	v1[0] = 99

	v2, err := cached.FetchPartialYear(context.Background(), "austria")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, v2, "callers must not be able to poison the cache")
}
