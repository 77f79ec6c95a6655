//go:build era5

package era5

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foehnwatch/tas-tracker/internal/observability"
)

// These tests hit the live feed and require an NRT_BASE_URL env var.
// Run with: go test -tags=era5 ./internal/adapter/era5/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	baseURL := os.Getenv("NRT_BASE_URL")
	if baseURL == "" {
		t.Fatal("NRT_BASE_URL must be set to run smoke tests")
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSmoke_FetchAustria(t *testing.T) {
	c := smokeClient(t)

	values, err := c.FetchPartialYear(context.Background(), "austria")
	require.NoError(t, err)

	assert.NotEmpty(t, values)
	assert.LessOrEqual(t, len(values), 366)
}
