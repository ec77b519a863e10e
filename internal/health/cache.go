package health

import (
	"sync"
	"time"

	"github.com/avelinn/mediadeck/internal/domain"
)

// cacheKey ties a cached probe result to the exact connector binding that
// produced it. A config edit changes the signature, so stale results for the
// old binding can never be served for the new one.
type cacheKey struct {
	serviceID string
	signature string
}

type cacheEntry struct {
	result   domain.ConnectionResult
	cachedAt time.Time
}

// ResultCache is a short-lived cache of probe results so a burst of overview
// reads does not hammer the backends.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
	ttl     time.Duration
}

// NewResultCache creates a probe result cache with the given TTL. A zero or
// negative TTL disables caching entirely.
func NewResultCache(ttl time.Duration) *ResultCache {
	return &ResultCache{
		entries: make(map[cacheKey]cacheEntry),
		ttl:     ttl,
	}
}

// Get retrieves a cached result if present and not expired.
func (c *ResultCache) Get(serviceID, signature string) (domain.ConnectionResult, bool) {
	if c.ttl <= 0 {
		return domain.ConnectionResult{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[cacheKey{serviceID, signature}]
	if !ok || time.Since(entry.cachedAt) > c.ttl {
		return domain.ConnectionResult{}, false
	}

	return entry.result, true
}

// Set stores a probe result.
func (c *ResultCache) Set(serviceID, signature string, result domain.ConnectionResult) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey{serviceID, signature}] = cacheEntry{result: result, cachedAt: time.Now()}
}

// Invalidate drops every cached result for a service id, regardless of
// signature.
func (c *ResultCache) Invalidate(serviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if key.serviceID == serviceID {
			delete(c.entries, key)
		}
	}
}

// Clear drops all cached results.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[cacheKey]cacheEntry)
}
