// Package swpc fetches the planetary Kp index forecast from the NOAA Space
// Weather Prediction Center.
package swpc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/aurora-watch/internal/domain"
	"github.com/couchcryptid/aurora-watch/internal/observability"
)

// DefaultURL is the SWPC 3-Day Forecast text product.
const DefaultURL = "https://services.swpc.noaa.gov/text/3-day-forecast.txt"

const (
	userAgent    = "aurora-watch/1.0"
	maxBodyBytes = 1 << 20
)

// Client implements the scheduler's forecast source over HTTP.
type Client struct {
	url        string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a SWPC forecast client. Every request is bounded by timeout.
func NewClient(url string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch downloads and parses the forecast. Any failure, including a payload
// without a single valid sample, is reported as domain.ErrDataUnavailable.
// Malformed records are dropped and the valid remainder returned.
func (c *Client) Fetch(ctx context.Context) (domain.ForecastSeries, error) {
	start := time.Now()
	defer func() {
		c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrDataUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/plain, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: forecast request: %w", domain.ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: swpc status %d: %s", domain.ErrDataUnavailable, resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrDataUnavailable, err)
	}

	samples, skipped, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}
	if skipped > 0 {
		c.metrics.RecordsSkipped.Add(float64(skipped))
		c.logger.Debug("dropped malformed forecast records", "skipped", skipped, "url", c.url)
	}

	series := domain.NormalizeSeries(samples)
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no valid samples in forecast", domain.ErrDataUnavailable)
	}

	c.logger.Debug("forecast parsed",
		"samples", len(series),
		"first", series[0].Time,
		"last", series[len(series)-1].Time,
	)
	return series, nil
}
