package resilience

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/byteness/toolgateway/cryptoutil"
)

// ResponseCache caches adapter results keyed by (tool, action, canonical(params)), bounded
// by a fixed LRU capacity with a per-entry TTL. Concurrent reads and serialized writes per
// key are provided by the underlying expirable.LRU.
type ResponseCache struct {
	lru *expirable.LRU[string, any]
}

// NewResponseCache creates a cache holding at most capacity entries, each expiring ttl
// after insertion.
func NewResponseCache(capacity int, ttl time.Duration) *ResponseCache {
	return &ResponseCache{lru: expirable.NewLRU[string, any](capacity, nil, ttl)}
}

// Key derives the cache key for a (tool, action, params) triple from the canonical JSON
// encoding of params, so field order never causes a spurious cache miss.
func Key(tool, action string, params map[string]any) (string, error) {
	canonical, err := cryptoutil.Canonical(params)
	if err != nil {
		return "", err
	}
	return tool + ":" + action + ":" + string(canonical), nil
}

// Get returns the cached value for key, if present and unexpired.
func (c *ResponseCache) Get(key string) (any, bool) {
	return c.lru.Get(key)
}

// Put stores value under key, evicting the least-recently-used entry if the cache is at
// capacity.
func (c *ResponseCache) Put(key string, value any) {
	c.lru.Add(key, value)
}

// Len reports the number of live (unexpired) entries.
func (c *ResponseCache) Len() int {
	return c.lru.Len()
}
