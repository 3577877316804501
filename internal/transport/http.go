package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ErrCircuitOpen is returned while the circuit breaker rejects calls
var ErrCircuitOpen = errors.New("circuit breaker open")

// HTTPConfig for creating a new HTTPClient
type HTTPConfig struct {
	Name           string
	Headers        map[string]string // sent with every request
	RequestTimeout time.Duration
	CircuitBreaker CircuitBreakerConfig
	Logger         zerolog.Logger
}

// HTTPClient posts JSON bodies to a batch endpoint
type HTTPClient struct {
	headers    map[string]string
	httpClient *http.Client
	breaker    *CircuitBreaker
	requests   atomic.Uint64
	logger     zerolog.Logger
}

// NewHTTPClient creates a new HTTPClient
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &HTTPClient{
		headers: headers,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		breaker: NewCircuitBreaker(cfg.CircuitBreaker),
		logger:  cfg.Logger.With().Str("upstream", cfg.Name).Logger(),
	}
}

// Requests returns how many HTTP requests reached the endpoint
func (c *HTTPClient) Requests() uint64 {
	return c.requests.Load()
}

// Post sends body to url and returns the response body.
// Any status outside 2xx is an error.
func (c *HTTPClient) Post(ctx context.Context, url string, body []byte, extra map[string]string) ([]byte, error) {
	if !c.breaker.AllowRequest() {
		return nil, ErrCircuitOpen
	}

	respBody, err := c.post(ctx, url, body, extra)
	if err != nil {
		c.breaker.RecordFailure()
		c.logger.Debug().Err(err).Str("url", url).Msg("batch endpoint call failed")
		return nil, err
	}

	c.breaker.RecordSuccess()
	return respBody, nil
}

func (c *HTTPClient) post(ctx context.Context, url string, body []byte, extra map[string]string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range extra {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	c.requests.Add(1)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// Close releases idle connections
func (c *HTTPClient) Close() {
	c.httpClient.CloseIdleConnections()
}
