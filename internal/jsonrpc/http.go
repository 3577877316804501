package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"batchgofer/internal/batcher"
)

// Poster sends a JSON body and returns the response body
type Poster interface {
	Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error)
}

// HTTPTransport sends groups of calls as one JSON-RPC batch over HTTP
type HTTPTransport struct {
	poster Poster
	url    string
	logger zerolog.Logger
}

// NewHTTPTransport creates a new HTTPTransport
func NewHTTPTransport(poster Poster, url string, logger zerolog.Logger) *HTTPTransport {
	return &HTTPTransport{
		poster: poster,
		url:    url,
		logger: logger.With().Str("component", "jsonrpc-http").Logger(),
	}
}

// SendGroup implements batcher.Transport
func (t *HTTPTransport) SendGroup(ctx context.Context, calls []Call) ([]batcher.ResponseItem[json.RawMessage], error) {
	batch, err := encodeBatch(calls)
	if err != nil {
		return nil, err
	}

	t.logger.Debug().
		Str("batchId", batch.prefix).
		Int("size", len(calls)).
		Msg("posting batch")

	data, err := t.poster.Post(ctx, t.url, batch.body, nil)
	if err != nil {
		return nil, err
	}

	responses, _, err := ParseBatchResponse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse batch response: %w", err)
	}
	return batch.align(responses)
}
