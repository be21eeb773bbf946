package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/time/rate"
)

// ErrUpstreamStatus marks a non-200 upstream response. Callers treat
// it like any other fetch failure and move to the next strategy.
var ErrUpstreamStatus = errors.New("unexpected upstream status")

// Client fetches district geometry from the shape mirror. All three
// request shapes funnel through one rate-limited GET path; the mirror
// drops connections when hit too hard, so the limiter is load-bearing.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a geometry source client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// DistrictGeometry requests the individually addressed record for one
// district at one vintage.
func (c *Client) DistrictGeometry(ctx context.Context, vintage int, state, label string) (orb.Geometry, error) {
	url := fmt.Sprintf("%s/%d/%s/%s.geojson",
		c.cfg.DistrictURL, vintage, strings.ToUpper(state), label)
	data, err := c.get(ctx, "district", url)
	if err != nil {
		return nil, err
	}
	return normalizeGeometry(data)
}

// StateCollection requests the legacy multi-district file covering one
// state for one vintage's cycle.
func (c *Client) StateCollection(ctx context.Context, vintage int, state string) ([]DistrictFeature, error) {
	url := fmt.Sprintf("%s/%s_%d_to_%d.geojson",
		c.cfg.BulkURL, stateFileKey(state), vintage, vintage+10)
	data, err := c.get(ctx, "bulk", url)
	if err != nil {
		return nil, err
	}
	return normalizeCollection(data)
}

// StateOutline requests a state's single whole-boundary record.
func (c *Client) StateOutline(ctx context.Context, state string) (orb.Geometry, error) {
	url := fmt.Sprintf("%s/%s.geojson", c.cfg.OutlineURL, stateFileKey(state))
	data, err := c.get(ctx, "outline", url)
	if err != nil {
		return nil, err
	}
	return normalizeGeometry(data)
}

func (c *Client) get(ctx context.Context, kind, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	LogRequest(kind, url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		LogError(kind, err)
		return nil, fmt.Errorf("shape request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: %d for %s", ErrUpstreamStatus, resp.StatusCode, url)
		LogError(kind, err)
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		LogError(kind, err)
		return nil, fmt.Errorf("read shape body: %w", err)
	}

	LogResponse(kind, resp.StatusCode, time.Since(start), len(data))
	return data, nil
}
