package batcher

import (
	"context"
	"sync"
	"time"
)

// ResponseItem is one slot of a physical batch response
type ResponseItem[V any] struct {
	StatusCode int
	Message    string
	Payload    V
}

// OK reports whether the item carries a success status (2xx)
func (r ResponseItem[V]) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport performs one physical call for an ordered group of requests.
// Response item i must belong to request i. A returned error fails the whole group.
type Transport[K comparable, V any] interface {
	SendGroup(ctx context.Context, reqs []K) ([]ResponseItem[V], error)
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc[K comparable, V any] func(ctx context.Context, reqs []K) ([]ResponseItem[V], error)

// SendGroup calls f
func (f TransportFunc[K, V]) SendGroup(ctx context.Context, reqs []K) ([]ResponseItem[V], error) {
	return f(ctx, reqs)
}

// entry is the single-resolution result slot shared by every caller
// waiting on an equivalent request
type entry[V any] struct {
	done      chan struct{}
	once      sync.Once
	value     V
	err       error
	createdAt time.Time
}

func newEntry[V any]() *entry[V] {
	return &entry[V]{
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
}

// resolve sets the value; later calls are ignored
func (e *entry[V]) resolve(value V) {
	e.once.Do(func() {
		e.value = value
		close(e.done)
	})
}

// fail sets the error; later calls are ignored
func (e *entry[V]) fail(err error) {
	e.once.Do(func() {
		e.err = err
		close(e.done)
	})
}

// wait blocks until the entry resolves or ctx is done
func (e *entry[V]) wait(ctx context.Context) (V, error) {
	select {
	case <-e.done:
		return e.value, e.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// group is the set of requests sent in one physical call, index-aligned with their entries
type group[K comparable, V any] struct {
	reqs    []K
	entries []*entry[V]
}

func (g *group[K, V]) add(req K, e *entry[V]) {
	g.reqs = append(g.reqs, req)
	g.entries = append(g.entries, e)
}

func (g *group[K, V]) size() int {
	return len(g.reqs)
}

// failAll fails every entry of the group with err
func (g *group[K, V]) failAll(err error) {
	for _, e := range g.entries {
		e.fail(err)
	}
}
