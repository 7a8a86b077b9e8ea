package cost

import (
	"sync"
	"time"
)

// cacheKey identifies one upstream query result.
type cacheKey struct {
	start     string
	end       string
	queryType string
}

type cacheEntry struct {
	series     *CostSeries
	breakdowns []DimensionBreakdown
	resources  map[string]*CostSeries
	storedAt   time.Time
}

// queryCache memoizes billing query results for the life of the
// process. Entries share a single TTL and are evicted lazily when a
// lookup finds them expired.
type queryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[cacheKey]cacheEntry
	now     func() time.Time
}

func newQueryCache(ttl time.Duration) *queryCache {
	return &queryCache{
		ttl:     ttl,
		entries: make(map[cacheKey]cacheEntry),
		now:     time.Now,
	}
}

func (c *queryCache) get(key cacheKey) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return cacheEntry{}, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return cacheEntry{}, false
	}
	return entry, true
}

func (c *queryCache) put(key cacheKey, entry cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry.storedAt = c.now()
	c.entries[key] = entry
}
