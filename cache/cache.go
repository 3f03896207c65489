// Package cache implements the process-wide query result cache. It is an
// explicit service object with internal synchronization, constructed once
// at startup and handed to the router and analyzer, never a package-level
// singleton.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"lexquery-backend/models"
)

// DefaultTTL is the self-expiry applied when Put receives a zero ttl
const DefaultTTL = 86400 * time.Second

// Entry is one cached routed response plus its accounting fields
type Entry struct {
	Key          string
	ScopeID      string
	Response     models.RoutedResponse
	HitCount     int
	CreatedAt    time.Time
	LastAccessAt time.Time
	TTL          time.Duration
}

func (e *Entry) expired(now time.Time) bool {
	return now.After(e.CreatedAt.Add(e.TTL))
}

// ResultCache caches (query, scope, type) -> response with TTL expiry and
// scope-wide invalidation. Eviction is purely TTL-based; hit counts are
// diagnostics only.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	ttl     time.Duration
	now     func() time.Time

	onHit        func()
	onMiss       func()
	onInvalidate func(n int)
}

// Option configures a ResultCache
type Option func(*ResultCache)

// WithTTL overrides the default entry TTL
func WithTTL(ttl time.Duration) Option {
	return func(c *ResultCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects a time source, used by tests to step past expiry
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) {
		c.now = now
	}
}

// WithCounters registers hit/miss/invalidation callbacks for metrics
func WithCounters(onHit, onMiss func(), onInvalidate func(n int)) Option {
	return func(c *ResultCache) {
		c.onHit = onHit
		c.onMiss = onMiss
		c.onInvalidate = onInvalidate
	}
}

// New creates an empty result cache
func New(opts ...Option) *ResultCache {
	c := &ResultCache{
		entries: make(map[string]*Entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives the stable cache key from the query text, the scope id and
// the classified query type. Case and whitespace are folded here; callers
// pass text already normalized the way the classifier normalizes it, so
// surface variants of one question share a key.
func Key(query, scopeID string, queryType models.QueryType) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized + "|" + scopeID + "|" + string(queryType)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for key, updating hit count and last
// access time. Expired entries are removed and reported as a miss.
func (c *ResultCache) Get(key string) (models.RoutedResponse, bool) {
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && entry.expired(now) {
		delete(c.entries, key)
		ok = false
	}
	if ok {
		entry.HitCount++
		entry.LastAccessAt = now
	}
	c.mu.Unlock()

	if !ok {
		if c.onMiss != nil {
			c.onMiss()
		}
		return models.RoutedResponse{}, false
	}
	if c.onHit != nil {
		c.onHit()
	}
	return entry.Response, true
}

// Put stores a response under key. Puts are idempotent overwrites; a zero
// ttl falls back to the cache default.
func (c *ResultCache) Put(key, scopeID string, response models.RoutedResponse, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	now := c.now()

	c.mu.Lock()
	c.entries[key] = &Entry{
		Key:          key,
		ScopeID:      scopeID,
		Response:     response,
		CreatedAt:    now,
		LastAccessAt: now,
		TTL:          ttl,
	}
	c.mu.Unlock()
}

// InvalidateScope drops every entry whose scope matches scopeID. Called by
// the analyzer after re-analysis so no answer computed against a
// superseded document version is ever served. Safe to run concurrently
// with unrelated Get/Put calls.
func (c *ResultCache) InvalidateScope(scopeID string) int {
	c.mu.Lock()
	n := 0
	for key, entry := range c.entries {
		if entry.ScopeID == scopeID {
			delete(c.entries, key)
			n++
		}
	}
	c.mu.Unlock()

	if c.onInvalidate != nil && n > 0 {
		c.onInvalidate(n)
	}
	return n
}

// Stats returns hit-count diagnostics per live entry
func (c *ResultCache) Stats() []Entry {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		if entry.expired(now) {
			continue
		}
		stats = append(stats, *entry)
	}
	return stats
}

// Len reports the number of entries currently stored, expired or not
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
