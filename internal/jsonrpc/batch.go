package jsonrpc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"batchgofer/internal/batcher"
)

// wireBatch is an encoded batch plus what is needed to map responses back to calls
type wireBatch struct {
	prefix string
	body   []byte
	size   int
}

// encodeBatch marshals calls as a JSON-RPC batch. Each request id is
// "<batch uuid>-<index>" so responses can be matched whatever their order.
func encodeBatch(calls []Call) (*wireBatch, error) {
	prefix := uuid.New().String()
	reqs := make([]*Request, len(calls))
	for i, c := range calls {
		reqs[i] = c.request(NewIDString(prefix + "-" + strconv.Itoa(i)))
	}

	body, err := json.Marshal(reqs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}
	return &wireBatch{prefix: prefix, body: body, size: len(calls)}, nil
}

// index returns the call position encoded in id, or -1 if id is not from this batch
func (b *wireBatch) index(id ID) int {
	s := id.String()
	if !strings.HasPrefix(s, b.prefix+"-") {
		return -1
	}
	i, err := strconv.Atoi(s[len(b.prefix)+1:])
	if err != nil || i < 0 || i >= b.size {
		return -1
	}
	return i
}

// owns reports whether any response belongs to this batch. A lone error with a
// null id is the server rejecting the batch as a whole.
func (b *wireBatch) owns(responses []*Response) bool {
	for _, r := range responses {
		if b.index(r.ID) >= 0 {
			return true
		}
	}
	return len(responses) == 1 && responses[0].ID.IsNull() && responses[0].HasError()
}

// align orders responses by call position and converts them to batch items
func (b *wireBatch) align(responses []*Response) ([]batcher.ResponseItem[json.RawMessage], error) {
	if len(responses) == 1 && responses[0].ID.IsNull() && responses[0].HasError() {
		e := responses[0].Error
		return nil, fmt.Errorf("batch rejected: %d %s", e.Code, e.Message)
	}

	items := make([]batcher.ResponseItem[json.RawMessage], b.size)
	seen := make([]bool, b.size)
	for _, r := range responses {
		i := b.index(r.ID)
		if i < 0 {
			return nil, fmt.Errorf("unexpected response id %v", r.ID.value)
		}
		if seen[i] {
			return nil, fmt.Errorf("duplicate response for id %s", r.ID.String())
		}
		seen[i] = true
		items[i] = toItem(r)
	}

	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("missing response for call %d", i)
		}
	}
	return items, nil
}

// toItem maps a response to a batch item. JSON-RPC error codes become the status code.
func toItem(r *Response) batcher.ResponseItem[json.RawMessage] {
	if !r.HasError() {
		return batcher.ResponseItem[json.RawMessage]{StatusCode: 200, Payload: r.Result}
	}

	code := r.Error.Code
	if code >= 200 && code < 300 {
		// Must not read as success
		code = CodeServerError
	}
	return batcher.ResponseItem[json.RawMessage]{
		StatusCode: code,
		Message:    r.Error.Message,
		Payload:    r.Error.Data,
	}
}
