package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Request represents a JSON-RPC request
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      ID              `json:"id"`
}

// Call is one logical JSON-RPC invocation.
// Params holds canonical JSON so equal calls compare equal.
type Call struct {
	Method string
	Params string
}

// NewCall creates a Call; params is marshaled and canonicalised (object keys sorted)
func NewCall(method string, params interface{}) (Call, error) {
	if method == "" {
		return Call{}, fmt.Errorf("method is required")
	}
	if params == nil {
		return Call{Method: method}, nil
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return Call{}, fmt.Errorf("failed to marshal params: %w", err)
	}

	// Round-trip through interface{} so map keys come out sorted
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Call{}, fmt.Errorf("failed to normalize params: %w", err)
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		return Call{}, fmt.Errorf("failed to normalize params: %w", err)
	}

	return Call{Method: method, Params: string(canonical)}, nil
}

// request builds the wire request for c with the given id
func (c Call) request(id ID) *Request {
	req := &Request{
		JSONRPC: Version,
		Method:  c.Method,
		ID:      id,
	}
	if c.Params != "" {
		req.Params = json.RawMessage(c.Params)
	}
	return req
}
