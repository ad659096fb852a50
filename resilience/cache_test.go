package resilience

import (
	"testing"
	"time"
)

func TestResponseCachePutGetRoundTrip(t *testing.T) {
	c := NewResponseCache(10, time.Minute)
	key, err := Key("serpapi", "search", map[string]any{"q": "golang"})
	if err != nil {
		t.Fatalf("key: %v", err)
	}

	c.Put(key, "result")
	got, ok := c.Get(key)
	if !ok || got != "result" {
		t.Fatalf("expected cached result, got %v, %v", got, ok)
	}
}

func TestResponseCacheKeyIndependentOfFieldOrder(t *testing.T) {
	keyA, err := Key("serpapi", "search", map[string]any{"q": "golang", "num": 10})
	if err != nil {
		t.Fatalf("key a: %v", err)
	}
	keyB, err := Key("serpapi", "search", map[string]any{"num": 10, "q": "golang"})
	if err != nil {
		t.Fatalf("key b: %v", err)
	}
	if keyA != keyB {
		t.Fatalf("expected identical keys regardless of field order, got %q vs %q", keyA, keyB)
	}
}

func TestResponseCacheExpiresAfterTTL(t *testing.T) {
	c := NewResponseCache(10, 20*time.Millisecond)
	c.Put("k", "v")

	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected entry present immediately after put")
	}

	time.Sleep(50 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry expired after TTL")
	}
}

func TestResponseCacheEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := NewResponseCache(2, time.Minute)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	if c.Len() != 2 {
		t.Fatalf("expected capacity-bounded length of 2, got %d", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected oldest entry evicted")
	}
}
