package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"batchgofer/internal/batcher"
)

// DefaultWSTimeout bounds a batch round trip when the call context has no deadline
const DefaultWSTimeout = 30 * time.Second

// WSTransport sends groups of calls as one JSON-RPC batch over a WebSocket.
// One batch is on the wire at a time; the connection is dialled on first use
// and re-dialled after any failure.
type WSTransport struct {
	url     string
	timeout time.Duration
	dialer  websocket.Dialer
	conn    *websocket.Conn
	mu      sync.Mutex
	logger  zerolog.Logger
}

// NewWSTransport creates a new WSTransport. timeout <= 0 uses DefaultWSTimeout.
func NewWSTransport(url string, timeout time.Duration, logger zerolog.Logger) *WSTransport {
	if timeout <= 0 {
		timeout = DefaultWSTimeout
	}
	return &WSTransport{
		url:     url,
		timeout: timeout,
		dialer:  websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:  logger.With().Str("component", "jsonrpc-ws").Logger(),
	}
}

// SendGroup implements batcher.Transport
func (t *WSTransport) SendGroup(ctx context.Context, calls []Call) ([]batcher.ResponseItem[json.RawMessage], error) {
	batch, err := encodeBatch(calls)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	conn, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := conn.SetWriteDeadline(deadline); err != nil {
		t.reset()
		return nil, fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, batch.body); err != nil {
		t.reset()
		return nil, fmt.Errorf("failed to send batch: %w", err)
	}

	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			t.reset()
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.reset()
			return nil, fmt.Errorf("failed to read batch response: %w", err)
		}

		responses, _, err := ParseBatchResponse(data)
		if err != nil {
			t.reset()
			return nil, fmt.Errorf("failed to parse batch response: %w", err)
		}

		// Notifications and late answers to abandoned batches are skipped
		if !batch.owns(responses) {
			t.logger.Debug().Int("responses", len(responses)).Msg("skipping unrelated message")
			continue
		}
		return batch.align(responses)
	}
}

// connect returns the live connection, dialling if needed. Caller holds mu.
func (t *WSTransport) connect(ctx context.Context) (*websocket.Conn, error) {
	if t.conn != nil {
		return t.conn, nil
	}

	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect WebSocket: %w", err)
	}
	t.conn = conn
	t.logger.Info().Str("url", t.url).Msg("WebSocket connected")
	return conn, nil
}

// reset drops the current connection. Caller holds mu.
func (t *WSTransport) reset() {
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}

// Close closes the connection
func (t *WSTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
	t.reset()
}
