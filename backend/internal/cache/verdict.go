package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/halcyon-labs/comms-triage/backend/internal/verdict"
)

// VerdictCache memoizes verdicts for identical messages. The key covers
// the raw message AND the taxonomy version, so a taxonomy reload
// invalidates prior entries without an explicit flush.
type VerdictCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	maxSize int
	ttl     time.Duration
}

type entry struct {
	verdict   verdict.Verdict
	createdAt time.Time
	hits      int
}

// New creates a cache with the given max size and TTL. maxSize <= 0
// disables eviction by size.
func New(maxSize int, ttl time.Duration) *VerdictCache {
	return &VerdictCache{
		entries: make(map[string]*entry),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Key builds the deterministic cache key for a message under the active
// taxonomy.
func Key(raw, taxonomyVersion string) string {
	h := sha256.New()
	h.Write([]byte(taxonomyVersion))
	h.Write([]byte{0})
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached verdict for a key if present and unexpired. The
// returned verdict is a copy.
func (c *VerdictCache) Get(key string) (*verdict.Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(e.createdAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}

	e.hits++
	v := e.verdict
	return &v, true
}

// Set stores a verdict, evicting the oldest entry when at capacity.
func (c *VerdictCache) Set(key string, v *verdict.Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = &entry{verdict: *v, createdAt: time.Now()}
}

func (c *VerdictCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.createdAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Stats reports cache size and hit totals for the status endpoint.
func (c *VerdictCache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	totalHits := 0
	for _, e := range c.entries {
		totalHits += e.hits
	}
	return map[string]interface{}{
		"size":       len(c.entries),
		"max_size":   c.maxSize,
		"total_hits": totalHits,
		"ttl_sec":    c.ttl.Seconds(),
	}
}

// Clear empties the cache.
func (c *VerdictCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}
