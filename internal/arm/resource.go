package arm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Resource is an ARM resource record
type Resource struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name,omitempty"`
	Type       string                 `json:"type,omitempty"`
	Kind       string                 `json:"kind,omitempty"`
	Location   string                 `json:"location,omitempty"`
	ManagedBy  string                 `json:"managedBy,omitempty"`
	Tags       map[string]string      `json:"tags,omitempty"`
	Identity   map[string]interface{} `json:"identity,omitempty"`
	Plan       map[string]interface{} `json:"plan,omitempty"`
	Sku        map[string]interface{} `json:"sku,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`

	// OriginalContent is the raw JSON the resource was decoded from
	OriginalContent json.RawMessage `json:"-"`
}

// ParseResource decodes a resource from batch item content
func ParseResource(content json.RawMessage) (*Resource, error) {
	var r Resource
	if err := json.Unmarshal(content, &r); err != nil {
		return nil, fmt.Errorf("failed to parse resource: %w", err)
	}
	r.OriginalContent = append(json.RawMessage(nil), content...)
	if r.Tags == nil {
		r.Tags = make(map[string]string)
	}
	return &r, nil
}

// Equal reports whether both resources have the same id, ignoring case
func (r *Resource) Equal(other *Resource) bool {
	if r == nil || other == nil || r.ID == "" {
		return false
	}
	return strings.EqualFold(r.ID, other.ID)
}

// IsStub reports whether the resource carries only an id (lookup failed)
func (r *Resource) IsStub() bool {
	return len(r.OriginalContent) == 0
}

func (r *Resource) String() string {
	return r.ID
}
