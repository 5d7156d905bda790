package headpose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
)

// Config holds the configuration for the head pose service client
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing calls; zero disables throttling
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns a Config for a local deployment of the service
func DefaultConfig() Config {
	return Config{
		BaseURL:           "http://localhost:6000",
		Timeout:           15 * time.Second,
		RequestsPerSecond: 5,
		Burst:             1,
	}
}

// Client posts raw JPEG bytes to the head pose regression service
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     Config
}

// NewClient creates a new head pose client
func NewClient(config Config) *Client {
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		config:     config,
	}
}

// Identify calls POST /api/face_identify with a JPEG body
func (c *Client) Identify(ctx context.Context, jpeg []byte) (*PoseResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, provider.Unavailable(fmt.Errorf("wait for rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/face_identify", bytes.NewReader(jpeg))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, provider.Unavailable(ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", provider.ErrInferenceUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", provider.ErrInferenceUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: head pose service returned status %d", provider.ErrInferenceUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("head pose service returned status %d: %s", resp.StatusCode, string(body))
	}

	var out PoseResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	// the service reports upstream detector failures in the body with a 200
	if out.Error != "" {
		return nil, fmt.Errorf("%w: %s", provider.ErrInferenceUnavailable, out.Error)
	}

	return &out, nil
}
