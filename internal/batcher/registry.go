package batcher

import "sync"

// registry maps a request to its pending entry.
// There is at most one entry per equivalent request at any instant.
type registry[K comparable, V any] struct {
	m sync.Map // K -> *entry[V]
}

// getOrCreate returns the entry for req, creating it if absent.
// created reports whether this call made the entry.
func (r *registry[K, V]) getOrCreate(req K) (e *entry[V], created bool) {
	if existing, ok := r.m.Load(req); ok {
		return existing.(*entry[V]), false
	}
	fresh := newEntry[V]()
	actual, loaded := r.m.LoadOrStore(req, fresh)
	return actual.(*entry[V]), !loaded
}

// remove takes the entry for req out of the registry.
// After removal the caller is the only one able to resolve it.
func (r *registry[K, V]) remove(req K) (*entry[V], bool) {
	v, ok := r.m.LoadAndDelete(req)
	if !ok {
		return nil, false
	}
	return v.(*entry[V]), true
}
