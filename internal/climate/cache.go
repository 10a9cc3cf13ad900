package climate

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// CacheKey identifies one memoized threshold set. Two computations agree on
// every field exactly or they do not share an entry.
type CacheKey struct {
	Calendar  Calendar
	Base      BaseRange
	WindowN   int
	Variable  string
	Quantiles string
}

// NewCacheKey canonicalizes the quantile list into the key so equal lists
// produce equal keys regardless of how callers built them.
func NewCacheKey(calendar Calendar, base BaseRange, windowN int, variable string, quantiles []float64) CacheKey {
	parts := make([]string, len(quantiles))
	for i, q := range quantiles {
		parts[i] = strconv.FormatFloat(q, 'g', -1, 64)
	}
	return CacheKey{
		Calendar:  calendar,
		Base:      base,
		WindowN:   windowN,
		Variable:  variable,
		Quantiles: strings.Join(parts, ","),
	}
}

// String renders the key for logging and deduplication
func (k CacheKey) String() string {
	return strings.Join([]string{
		k.Calendar.String(),
		k.Base.String(),
		strconv.Itoa(k.WindowN),
		k.Variable,
		k.Quantiles,
	}, "|")
}

// QuantileCache memoizes threshold sets keyed by everything that influences
// them. Threshold computation dominates index cost, so repeated index runs
// over one session must pay for it once. Safe for concurrent use;
// concurrent requests for one key compute it once.
type QuantileCache struct {
	mu      sync.RWMutex
	entries map[CacheKey]*QuantileSet
	group   singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewQuantileCache returns an empty cache.
func NewQuantileCache() *QuantileCache {
	return &QuantileCache{entries: make(map[CacheKey]*QuantileSet)}
}

// GetOrCompute returns the cached set for key, or runs compute and stores
// its result. Errors are not cached; a failed computation is retried on the
// next request.
func (c *QuantileCache) GetOrCompute(key CacheKey, compute func() (*QuantileSet, error)) (*QuantileSet, error) {
	c.mu.RLock()
	qs, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return qs, nil
	}

	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		c.mu.RLock()
		qs, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			c.hits.Add(1)
			return qs, nil
		}
		c.misses.Add(1)
		qs, err := compute()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = qs
		c.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*QuantileSet), nil
}

// Get returns the cached set for key without computing.
func (c *QuantileCache) Get(key CacheKey) (*QuantileSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	qs, ok := c.entries[key]
	return qs, ok
}

// Put stores a set under key, replacing any existing entry.
func (c *QuantileCache) Put(key CacheKey, qs *QuantileSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = qs
}

// Len returns the number of cached sets
func (c *QuantileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cumulative hit and miss counts
func (c *QuantileCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops every cached entry
func (c *QuantileCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[CacheKey]*QuantileSet)
}
