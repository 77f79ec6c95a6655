// Package era5 fetches the running year from the near-real-time
// temperature feed.
package era5

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foehnwatch/tas-tracker/internal/domain"
	"github.com/foehnwatch/tas-tracker/internal/observability"
)

// Client implements domain.PartialYearFetcher against the feed's HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a feed client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// FetchPartialYear returns the running year's daily means up to the
// feed's latest day. Days the feed has not published yet come back as
// NaN. An unknown region is reported as ErrInvalidRegion.
func (c *Client) FetchPartialYear(ctx context.Context, region string) ([]float64, error) {
	u := fmt.Sprintf("%s/v1/regions/%s/current", c.baseURL, url.PathEscape(region))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.NRTFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch running year for %q: %w", region, err)
	}
	defer resp.Body.Close()

	c.metrics.NRTAPIDuration.Observe(time.Since(start).Seconds())

	if resp.StatusCode == http.StatusNotFound {
		c.metrics.NRTFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: feed has no region %q", domain.ErrInvalidRegion, region)
	}
	if resp.StatusCode != http.StatusOK {
		c.metrics.NRTFetches.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("feed error: status %d: %s", resp.StatusCode, body)
	}

	var cur currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&cur); err != nil {
		c.metrics.NRTFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode feed response: %w", err)
	}

	values := make([]float64, len(cur.Values))
	defined := 0
	for i, v := range cur.Values {
		if v == nil {
			values[i] = math.NaN()
			continue
		}
		values[i] = *v
		defined++
	}

	if defined == 0 {
		c.metrics.NRTFetches.WithLabelValues("empty").Inc()
	} else {
		c.metrics.NRTFetches.WithLabelValues("success").Inc()
	}

	c.logger.Debug("running year fetched",
		"region", region,
		"days", len(values),
		"defined", defined,
	)

	return values, nil
}

// Feed API response types.

type currentResponse struct {
	Region string     `json:"region"`
	Year   int        `json:"year"`
	Values []*float64 `json:"values"`
}
