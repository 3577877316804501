package arm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"batchgofer/internal/batcher"
)

// Poster sends a JSON body and returns the response body
type Poster interface {
	Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error)
}

// Transport sends groups of requests to the ARM batch endpoint
type Transport struct {
	poster   Poster
	endpoint string
	logger   zerolog.Logger
}

// NewTransport creates a Transport posting to <baseURL>/batch
func NewTransport(poster Poster, baseURL, batchAPIVersion string, logger zerolog.Logger) *Transport {
	if batchAPIVersion == "" {
		batchAPIVersion = DefaultBatchAPIVersion
	}
	endpoint := strings.TrimRight(baseURL, "/") + "/batch?" +
		url.Values{"api-version": []string{batchAPIVersion}}.Encode()

	return &Transport{
		poster:   poster,
		endpoint: endpoint,
		logger:   logger.With().Str("component", "arm").Logger(),
	}
}

// Endpoint returns the batch URL
func (t *Transport) Endpoint() string {
	return t.endpoint
}

// SendGroup implements batcher.Transport
func (t *Transport) SendGroup(ctx context.Context, reqs []Request) ([]batcher.ResponseItem[json.RawMessage], error) {
	body, err := json.Marshal(batchRequest{Requests: reqs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	requestID := uuid.New().String()
	t.logger.Debug().
		Str("requestId", requestID).
		Int("size", len(reqs)).
		Msg("posting batch")

	data, err := t.poster.Post(ctx, t.endpoint, body, map[string]string{
		"x-ms-client-request-id": requestID,
	})
	if err != nil {
		return nil, err
	}

	var resp batchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse batch response: %w", err)
	}

	items := make([]batcher.ResponseItem[json.RawMessage], len(resp.Responses))
	for i, r := range resp.Responses {
		items[i] = batcher.ResponseItem[json.RawMessage]{
			StatusCode: r.HTTPStatusCode,
			Payload:    r.Content,
		}
		if !items[i].OK() {
			items[i].Message = errorMessage(r.Content)
		}
	}
	return items, nil
}
