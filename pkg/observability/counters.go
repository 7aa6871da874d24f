package observability

import (
	"context"
	"sync"
)

// CacheStats is a snapshot of the lookups recorded for one key type.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Writes int64 `json:"writes"`
	Bytes  int64 `json:"bytes"`
}

// CacheCounters tallies cache events per key type. The zero value is ready
// to use and safe for concurrent use.
type CacheCounters struct {
	mu    sync.Mutex
	stats map[string]*CacheStats
}

func (c *CacheCounters) entry(keyType string) *CacheStats {
	if c.stats == nil {
		c.stats = make(map[string]*CacheStats)
	}
	s, ok := c.stats[keyType]
	if !ok {
		s = &CacheStats{}
		c.stats[keyType] = s
	}
	return s
}

func (c *CacheCounters) OnCacheHit(_ context.Context, keyType string) {
	c.mu.Lock()
	c.entry(keyType).Hits++
	c.mu.Unlock()
}

func (c *CacheCounters) OnCacheMiss(_ context.Context, keyType string) {
	c.mu.Lock()
	c.entry(keyType).Misses++
	c.mu.Unlock()
}

func (c *CacheCounters) OnCacheSet(_ context.Context, keyType string, size int) {
	c.mu.Lock()
	e := c.entry(keyType)
	e.Writes++
	e.Bytes += int64(size)
	c.mu.Unlock()
}

// Snapshot copies the current counts.
func (c *CacheCounters) Snapshot() map[string]CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]CacheStats, len(c.stats))
	for k, v := range c.stats {
		out[k] = *v
	}
	return out
}
