package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"batchgofer/internal/batcher"
	"batchgofer/internal/transport"
)

func TestNewCall_Canonical(t *testing.T) {
	a, err := NewCall("eth_call", []interface{}{map[string]interface{}{"to": "0x1", "data": "0x2"}, "latest"})
	if err != nil {
		t.Fatalf("NewCall: %v", err)
	}
	b, err := NewCall("eth_call", json.RawMessage(`[ {"data":"0x2", "to":"0x1"}, "latest" ]`))
	if err != nil {
		t.Fatalf("NewCall: %v", err)
	}
	if a != b {
		t.Errorf("calls differ: %+v vs %+v", a, b)
	}

	if _, err := NewCall("", nil); err == nil {
		t.Error("empty method should fail")
	}

	c, err := NewCall("eth_chainId", nil)
	if err != nil {
		t.Fatalf("NewCall: %v", err)
	}
	if c.request(NewIDInt(1)).Params != nil {
		t.Error("call without params should omit params")
	}
}

// answer builds responses for a decoded batch: results echo the method,
// methods starting with "bad_" get an error. Order is reversed.
func answer(reqs []*Request) []*Response {
	out := make([]*Response, 0, len(reqs))
	for i := len(reqs) - 1; i >= 0; i-- {
		r := reqs[i]
		if strings.HasPrefix(r.Method, "bad_") {
			out = append(out, &Response{JSONRPC: Version, ID: r.ID, Error: NewError(CodeMethodNotFound, "Method not found")})
			continue
		}
		result, _ := json.Marshal(r.Method)
		out = append(out, &Response{JSONRPC: Version, ID: r.ID, Result: result})
	}
	return out
}

func mustCall(t *testing.T, method string) Call {
	t.Helper()
	c, err := NewCall(method, []int{1})
	if err != nil {
		t.Fatalf("NewCall: %v", err)
	}
	return c
}

func checkItems(t *testing.T, items []batcher.ResponseItem[json.RawMessage]) {
	t.Helper()
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if !items[0].OK() || string(items[0].Payload) != `"eth_a"` {
		t.Errorf("item 0 = %+v", items[0])
	}
	if items[1].OK() || items[1].StatusCode != CodeMethodNotFound {
		t.Errorf("item 1 = %+v, want method not found", items[1])
	}
	if !items[2].OK() || string(items[2].Payload) != `"eth_c"` {
		t.Errorf("item 2 = %+v", items[2])
	}
}

func newPoster() *transport.HTTPClient {
	return transport.NewHTTPClient(transport.HTTPConfig{
		Name:           "rpc",
		RequestTimeout: time.Second,
		Logger:         zerolog.Nop(),
	})
}

func TestHTTPTransport_AlignsReorderedResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var reqs []*Request
		if err := json.Unmarshal(body, &reqs); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(answer(reqs))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(newPoster(), srv.URL, zerolog.Nop())
	items, err := tr.SendGroup(context.Background(), []Call{
		mustCall(t, "eth_a"), mustCall(t, "bad_b"), mustCall(t, "eth_c"),
	})
	if err != nil {
		t.Fatalf("SendGroup: %v", err)
	}
	checkItems(t, items)
}

func TestHTTPTransport_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body func(reqs []*Request) interface{}
		want string
	}{
		{"missing item", func(reqs []*Request) interface{} { return answer(reqs)[1:] }, "missing response"},
		{"foreign id", func(reqs []*Request) interface{} {
			out := answer(reqs)
			out[0].ID = NewIDString("other")
			return out
		}, "unexpected response id"},
		{"batch rejected", func(reqs []*Request) interface{} {
			return &Response{JSONRPC: Version, Error: NewError(CodeInvalidRequest, "Invalid Request")}
		}, "batch rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				var reqs []*Request
				json.Unmarshal(body, &reqs)
				json.NewEncoder(w).Encode(tt.body(reqs))
			}))
			defer srv.Close()

			tr := NewHTTPTransport(newPoster(), srv.URL, zerolog.Nop())
			_, err := tr.SendGroup(context.Background(), []Call{mustCall(t, "eth_a"), mustCall(t, "eth_b")})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsServer answers each batch, first sending a subscription notification to be skipped
func wsServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var reqs []*Request
			if err := json.Unmarshal(data, &reqs); err != nil {
				return
			}
			conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0x1","result":{}}}`))
			out, _ := json.Marshal(answer(reqs))
			conn.WriteMessage(websocket.TextMessage, out)
		}
	}))
}

func TestWSTransport_SendGroup(t *testing.T) {
	srv := wsServer(t)
	defer srv.Close()

	tr := NewWSTransport("ws"+strings.TrimPrefix(srv.URL, "http"), time.Second, zerolog.Nop())
	defer tr.Close()

	for round := 0; round < 2; round++ {
		items, err := tr.SendGroup(context.Background(), []Call{
			mustCall(t, "eth_a"), mustCall(t, "bad_b"), mustCall(t, "eth_c"),
		})
		if err != nil {
			t.Fatalf("round %d: SendGroup: %v", round, err)
		}
		checkItems(t, items)
	}
}

func TestWSTransport_DeadlineErrorRedials(t *testing.T) {
	srv := wsServer(t)
	defer srv.Close()

	tr := NewWSTransport("ws"+strings.TrimPrefix(srv.URL, "http"), time.Second, zerolog.Nop())
	defer tr.Close()

	calls := []Call{mustCall(t, "eth_a"), mustCall(t, "bad_b"), mustCall(t, "eth_c")}
	if _, err := tr.SendGroup(context.Background(), calls); err != nil {
		t.Fatalf("SendGroup: %v", err)
	}

	// Setting a deadline on a closed socket fails
	tr.conn.UnderlyingConn().Close()
	_, err := tr.SendGroup(context.Background(), calls)
	if err == nil || !strings.Contains(err.Error(), "write deadline") {
		t.Fatalf("err = %v, want write deadline failure", err)
	}

	items, err := tr.SendGroup(context.Background(), calls)
	if err != nil {
		t.Fatalf("SendGroup after reset: %v", err)
	}
	checkItems(t, items)
}

func TestWSTransport_DialFailure(t *testing.T) {
	tr := NewWSTransport("ws://127.0.0.1:1", time.Second, zerolog.Nop())
	defer tr.Close()

	if _, err := tr.SendGroup(context.Background(), []Call{mustCall(t, "eth_a")}); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestWSTransport_WithDispatcher(t *testing.T) {
	srv := wsServer(t)
	defer srv.Close()

	tr := NewWSTransport("ws"+strings.TrimPrefix(srv.URL, "http"), time.Second, zerolog.Nop())
	defer tr.Close()

	d, err := batcher.New[Call, json.RawMessage](batcher.Config{
		MaxBatchSize:  10,
		DebounceDelay: 20 * time.Millisecond,
	}, tr, zerolog.Nop())
	if err != nil {
		t.Fatalf("batcher.New: %v", err)
	}

	methods := []string{"eth_a", "eth_b", "eth_a", "bad_x"}
	calls := make([]Call, len(methods))
	for i, m := range methods {
		calls[i] = mustCall(t, m)
	}

	var wg sync.WaitGroup
	results := make([]json.RawMessage, len(methods))
	errs := make([]error, len(methods))
	for i := range calls {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = d.Request(context.Background(), calls[i])
		}(i)
	}
	wg.Wait()

	for i, m := range methods[:3] {
		if errs[i] != nil {
			t.Fatalf("%s: %v", m, errs[i])
		}
		if string(results[i]) != `"`+m+`"` {
			t.Errorf("%s: result = %s", m, results[i])
		}
	}
	var remote *batcher.RemoteError
	if !errors.As(errs[3], &remote) || remote.Code != CodeMethodNotFound {
		t.Errorf("bad_x: err = %v, want RemoteError %d", errs[3], CodeMethodNotFound)
	}
}
