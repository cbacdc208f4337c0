// Package upstream forwards proxied requests to the OpenAI-compatible
// inference server, verbatim, behind a circuit breaker.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Timeout is the fixed upstream round-trip deadline.
const Timeout = 300 * time.Second

// HealthCheckTimeout bounds the /health probe used by the gateway's own
// health endpoint, distinct from the much longer per-request Timeout.
const HealthCheckTimeout = 5 * time.Second

// ErrTimeout signals the upstream round-trip exceeded Timeout.
var ErrTimeout = errors.New("upstream: request timed out")

// Response is the raw upstream reply: status, content type, and body bytes,
// forwarded to the caller verbatim without re-encoding.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client forwards requests to the upstream base URL through a shared
// connection pool, guarded by a circuit breaker so a wedged upstream fails
// fast instead of piling up goroutines on the 300s timeout.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates an upstream Client. baseURL should not carry a trailing slash.
func NewClient(baseURL string) *Client {
	settings := gobreaker.Settings{
		Name:        "upstream",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: Timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

// Forward sends method/subpath/body/contentType to the upstream and returns
// its raw response. Only Content-Type is forwarded from the caller; the
// caller's Authorization header is never propagated upstream.
func (c *Client) Forward(ctx context.Context, method, subpath string, body []byte, contentType string) (Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doForward(ctx, method, subpath, body, contentType)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Response{}, fmt.Errorf("upstream unavailable: %w", err)
		}
		return Response{}, err
	}
	return result.(Response), nil
}

func (c *Client) doForward(ctx context.Context, method, subpath string, body []byte, contentType string) (Response, error) {
	url := c.baseURL + subpath

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("building upstream request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
			(errors.As(err, &netErr) && netErr.Timeout()) {
			return Response{}, ErrTimeout
		}
		return Response{}, fmt.Errorf("calling upstream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("reading upstream response: %w", err)
	}

	return Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// Probe performs a bounded health check against path, returning true iff the
// upstream answered with a 2xx status within HealthCheckTimeout.
func (c *Client) Probe(ctx context.Context, path string) bool {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Healthy tries /health then falls back to /v1/models, per the gateway's own
// health endpoint contract.
func (c *Client) Healthy(ctx context.Context) bool {
	if c.Probe(ctx, "/health") {
		return true
	}
	return c.Probe(ctx, "/v1/models")
}
