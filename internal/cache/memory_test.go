package cache

import (
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	mc, err := NewMemoryCache(10, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	defer mc.Close()

	mc.Set("a", []byte(`{"id":"a"}`))
	got, ok := mc.Get("a")
	if !ok || string(got) != `{"id":"a"}` {
		t.Errorf("Get(a) = %q, %v", got, ok)
	}
	if _, ok := mc.Get("missing"); ok {
		t.Error("Get(missing) should miss")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc, err := NewMemoryCache(10, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	defer mc.Close()

	mc.Set("a", []byte("x"))
	time.Sleep(40 * time.Millisecond)
	if _, ok := mc.Get("a"); ok {
		t.Error("entry should have expired")
	}
}

func TestMemoryCache_ExpiryKeepsFreshEntry(t *testing.T) {
	mc, err := NewMemoryCache(10, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	defer mc.Close()

	mc.Set("a", []byte("old"))
	time.Sleep(40 * time.Millisecond)

	// A Set landing after the expired lookup must survive the removal step
	mc.Set("a", []byte("new"))
	mc.removeIfExpired("a")

	got, ok := mc.Get("a")
	if !ok || string(got) != "new" {
		t.Errorf("Get(a) = %q, %v, want new", got, ok)
	}
}

func TestMemoryCache_Eviction(t *testing.T) {
	mc, err := NewMemoryCache(2, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	defer mc.Close()

	mc.Set("a", []byte("1"))
	mc.Set("b", []byte("2"))
	mc.Set("c", []byte("3"))

	if _, ok := mc.Get("a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if mc.Len() != 2 {
		t.Errorf("Len = %d, want 2", mc.Len())
	}
}

func TestMemoryCache_InvalidSize(t *testing.T) {
	if _, err := NewMemoryCache(0, time.Minute); err == nil {
		t.Error("size 0 should fail")
	}
}

func TestNoopCache(t *testing.T) {
	nc := NewNoopCache()
	nc.Set("a", []byte("1"))
	if _, ok := nc.Get("a"); ok {
		t.Error("noop cache should never hit")
	}
}
