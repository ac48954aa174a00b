package resolver

import (
	"context"
	"sync"
	"time"

	aura "github.com/osmandkitay/aura-sub000"
)

// CacheBackend is a pluggable storage tier for resolved DID documents. The
// in-process MemoryCache implements it; distributed caches can be
// substituted without touching resolver logic. A zero TTL means the entry
// never expires.
type CacheBackend interface {
	Get(ctx context.Context, did string) (*aura.DIDDocument, bool)
	Set(ctx context.Context, did string, doc *aura.DIDDocument, ttl time.Duration)
	Purge(ctx context.Context)
	Len() int
}

// cacheEntry pairs a document with its caching instant and lifetime.
type cacheEntry struct {
	doc *aura.DIDDocument
	at  time.Time
	ttl time.Duration
}

// expired reports whether the entry's lifetime has elapsed. Zero-TTL
// entries are immutable resolutions (e.g. did:key) and never expire.
func (e cacheEntry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.at) >= e.ttl
}

// MemoryCache is an in-process CacheBackend guarded by a read-write mutex.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	clock   func() time.Time
}

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		clock:   time.Now,
	}
}

// Get returns the cached document for a DID when present and unexpired.
// Expired entries are dropped on access.
func (c *MemoryCache) Get(_ context.Context, did string) (*aura.DIDDocument, bool) {
	c.mu.RLock()
	entry, ok := c.entries[did]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if entry.expired(c.clock()) {
		c.mu.Lock()
		// Re-check under the write lock; a fresher entry may have landed.
		if current, ok := c.entries[did]; ok && current.expired(c.clock()) {
			delete(c.entries, did)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.doc, true
}

// Set stores a document under its DID with the given lifetime.
func (c *MemoryCache) Set(_ context.Context, did string, doc *aura.DIDDocument, ttl time.Duration) {
	c.mu.Lock()
	c.entries[did] = cacheEntry{doc: doc, at: c.clock(), ttl: ttl}
	c.mu.Unlock()
}

// Purge drops every entry.
func (c *MemoryCache) Purge(_ context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len reports the number of cached entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
