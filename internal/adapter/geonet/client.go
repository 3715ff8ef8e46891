// Package geonet fetches and validates events from the GeoNet quake feed.
package geonet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

// maxBodyBytes bounds the feed response read into memory.
const maxBodyBytes = 32 << 20

// Client implements pipeline.FeedClient against the GeoNet GeoJSON API.
type Client struct {
	url        string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a feed client. The timeout bounds the whole request,
// including reading the body.
func NewClient(url string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch issues one GET against the feed and returns validated events.
// A response without a "features" key yields no events and no error.
func (c *Client) Fetch(ctx context.Context) ([]domain.Event, error) {
	body, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode feed: %v", domain.ErrFetch, err)
	}

	events := make([]domain.Event, 0, len(env.Features))
	for i, f := range env.Features {
		event, err := f.toEvent()
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		events = append(events, event)
	}

	c.logger.Debug("feed fetched", "url", c.url, "features", len(events))
	return events, nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	start := time.Now()
	defer func() {
		c.metrics.FeedRequestDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrFetch, err)
	}
	req.Header.Set("Accept", "application/vnd.geo+json;version=2")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: feed request: %v", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: feed status %d: %s", domain.ErrFetch, resp.StatusCode, snippet)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read feed body: %v", domain.ErrFetch, err)
	}
	return body, nil
}
