package arm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"batchgofer/internal/cache"
)

// Requester resolves one logical request, usually through a batch dispatcher
type Requester interface {
	Request(ctx context.Context, req Request) (json.RawMessage, error)
	BatchCount() uint64
}

// Client fetches ARM resources through a coalescing dispatcher
type Client struct {
	requester  Requester
	cache      cache.Cache
	apiVersion string
	logger     zerolog.Logger
}

// NewClient creates a new Client. A nil cache disables caching.
func NewClient(requester Requester, c cache.Cache, apiVersion string, logger zerolog.Logger) *Client {
	if c == nil {
		c = cache.NewNoopCache()
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Client{
		requester:  requester,
		cache:      c,
		apiVersion: apiVersion,
		logger:     logger.With().Str("component", "arm-client").Logger(),
	}
}

// GetResource returns the resource with the given id
func (c *Client) GetResource(ctx context.Context, id string) (*Resource, error) {
	req := NewGetRequest(id, c.apiVersion)

	if data, ok := c.cache.Get(req.RelativeURL); ok {
		c.logger.Debug().Str("id", id).Msg("cache hit")
		return ParseResource(data)
	}

	content, err := c.requester.Request(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get resource %s: %w", id, err)
	}

	res, err := ParseResource(content)
	if err != nil {
		return nil, err
	}
	c.cache.Set(req.RelativeURL, content)
	return res, nil
}

// GetResourceOrStub is GetResource that never fails: on error it logs and
// returns a resource carrying only the id
func (c *Client) GetResourceOrStub(ctx context.Context, id string) *Resource {
	res, err := c.GetResource(ctx, id)
	if err != nil {
		c.logger.Warn().Err(err).Str("id", id).Msg("resource lookup failed, using stub")
		return &Resource{ID: id, Tags: make(map[string]string)}
	}
	return res
}

// BatchCount returns the number of physical batch calls made so far
func (c *Client) BatchCount() uint64 {
	return c.requester.BatchCount()
}
