// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package uploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/metrics"
	"github.com/tomtom215/hydrolog/internal/models"
)

// Transport delivers payloads and serves as the absolute time source.
type Transport interface {
	// Upload POSTs one payload. Returns the wire byte count on
	// confirmed delivery; any non-2xx status or transport failure is an
	// error wrapping ErrAPI.
	Upload(ctx context.Context, payload models.UploadPayload) (int, error)

	// SyncTime obtains absolute UTC from the endpoint's clock.
	SyncTime(ctx context.Context) (time.Time, error)
}

// ClientConfig configures the HTTP transport.
type ClientConfig struct {
	// Endpoint is the telemetry ingest URL.
	Endpoint string

	// AuthToken is sent as a bearer token when non-empty.
	AuthToken string

	// Timeout bounds one HTTP exchange.
	Timeout time.Duration

	// RateLimit and RateBurst feed the client-side limiter protecting a
	// metered uplink. RateLimit <= 0 disables limiting.
	RateLimit float64
	RateBurst int
}

// Client is the production Transport: a single POST per batch through
// a circuit breaker and a request-rate limiter.
//
// The breaker exists for the modem, not the endpoint: a half-up uplink
// makes every request burn airtime for seconds before failing, and the
// breaker converts that into fast local failures until the timeout
// window passes.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[int]
	limiter  *rate.Limiter
}

// NewClient builds the HTTP transport.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("upload client: endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	breaker := gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        "upload-endpoint",
		MaxRequests: 1,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(from.String(), to.String())
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Upload circuit breaker state change")
		},
	})

	return &Client{
		endpoint: cfg.Endpoint,
		token:    cfg.AuthToken,
		http:     &http.Client{Timeout: cfg.Timeout},
		breaker:  breaker,
		limiter:  limiter,
	}, nil
}

// Upload implements Transport.
func (c *Client) Upload(ctx context.Context, payload models.UploadPayload) (int, error) {
	if err := c.wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAPI, err)
	}

	body, err := json.Marshal(&payload)
	if err != nil {
		return 0, fmt.Errorf("%w: marshal payload: %v", ErrAPI, err)
	}

	n, err := c.breaker.Execute(func() (int, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAPI, err)
	}
	return n, nil
}

func (c *Client) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return len(body), nil
}

// SyncTime reads absolute UTC from the endpoint's Date header via a
// HEAD request. Good to about a second, which is plenty next to a
// sampling cadence of minutes; a real NTP source can replace this
// Transport wholesale.
func (c *Client) SyncTime(ctx context.Context) (time.Time, error) {
	if err := c.wait(ctx); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNoTime, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.endpoint, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: build request: %v", ErrNoTime, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNoTime, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))

	date := resp.Header.Get("Date")
	if date == "" {
		return time.Time{}, fmt.Errorf("%w: endpoint sent no Date header", ErrNoTime)
	}

	t, err := http.ParseTime(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: parse Date header: %v", ErrNoTime, err)
	}
	return t.UTC(), nil
}

// wait blocks on the rate limiter, if one is configured.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// BreakerState reports the breaker state for the admin API.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}
