package policy

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/byteness/toolgateway/cryptoutil"
	"github.com/byteness/toolgateway/store"
)

type cacheEntry struct {
	spec   Spec
	expiry time.Time
}

// Resolver loads and merges the effective Spec for an agent, caching the result for ttl to
// avoid re-fetching and re-merging PolicyRecords on every request: RWMutex-guarded map,
// double-checked locking on miss.
type Resolver struct {
	store store.PolicyStore
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	ttl   time.Duration
}

// NewResolver builds a Resolver over store with the given cache TTL.
func NewResolver(policyStore store.PolicyStore, ttl time.Duration) *Resolver {
	return &Resolver{store: policyStore, cache: make(map[string]*cacheEntry), ttl: ttl}
}

// Resolve returns the merged Spec for (agentID, role), using the cache when fresh.
func (r *Resolver) Resolve(ctx context.Context, agentID, role string) (Spec, error) {
	key := agentID + "|" + role

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && time.Now().Before(entry.expiry) {
		r.mu.RUnlock()
		return entry.spec, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.cache[key]; ok && time.Now().Before(entry.expiry) {
		return entry.spec, nil
	}

	records, err := r.store.ListPoliciesForAgent(ctx, agentID, role)
	if err != nil {
		return Spec{}, err
	}

	var roleSpecs, agentSpecs []Spec
	for _, rec := range records {
		var spec Spec
		if err := json.Unmarshal(rec.SpecJSON, &spec); err != nil {
			return Spec{}, err
		}
		if rec.Binding.AgentID == agentID {
			agentSpecs = append(agentSpecs, spec)
		} else {
			roleSpecs = append(roleSpecs, spec)
		}
	}

	merged := Merge(roleSpecs, agentSpecs)
	r.cache[key] = &cacheEntry{spec: merged, expiry: time.Now().Add(r.ttl)}
	return merged, nil
}

// Invalidate drops any cached entry for (agentID, role), used after a policy mutation so the
// next request re-resolves instead of waiting out the TTL.
func (r *Resolver) Invalidate(agentID, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, agentID+"|"+role)
}

// HashSpec computes the spec_hash stored on a PolicyRecord ("SHA-256 of canonical
// JSON").
func HashSpec(spec Spec) ([32]byte, error) {
	return cryptoutil.CanonicalHash(spec)
}
