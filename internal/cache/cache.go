// Package cache keeps resolved model handles for the life of the process
// and the counters the worker and resolver report.
package cache

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/aircraftstudio/skirmish/pkg/core"
)

// Counter is a monotonic count safe for concurrent use.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Inc() { c.n.Add(1) }

func (c *Counter) Value() int { return int(c.n.Load()) }

func (c *Counter) Set(v int) { c.n.Store(int64(v)) }

// Stats is a point-in-time view of an AssetCache.
type Stats struct {
	Entries int
	Bytes   int
	Hits    int
	Misses  int
}

// AssetCache maps model identifiers to resolved handles. Each model is
// fetched once no matter how many enemies fly it.
type AssetCache struct {
	mu      sync.RWMutex
	handles map[string]core.ModelHandle
	bytes   int

	Hits   Counter
	Misses Counter
}

func NewAssetCache() *AssetCache {
	return &AssetCache{handles: map[string]core.ModelHandle{}}
}

// Get looks id up and counts a hit or a miss.
func (c *AssetCache) Get(id string) (core.ModelHandle, bool) {
	c.mu.RLock()
	h, ok := c.handles[id]
	c.mu.RUnlock()

	if ok {
		c.Hits.Inc()
	} else {
		c.Misses.Inc()
	}
	return h, ok
}

// Add stores h under id, replacing an older handle. Placeholders are not
// stored so a later resolve can still find the real model.
func (c *AssetCache) Add(id string, h core.ModelHandle) {
	if h.Placeholder {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytes += len(h.Data) - len(c.handles[id].Data)
	c.handles[id] = h
}

// Remove forgets id, e.g. after its model was deleted from the catalogue.
func (c *AssetCache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytes -= len(c.handles[id].Data)
	delete(c.handles, id)
}

func (c *AssetCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.handles)
	c.bytes = 0
}

func (c *AssetCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handles)
}

// Keys returns the cached identifiers in order.
func (c *AssetCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.handles))
	for k := range c.handles {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (c *AssetCache) Stats() Stats {
	c.mu.RLock()
	entries, bytes := len(c.handles), c.bytes
	c.mu.RUnlock()
	return Stats{Entries: entries, Bytes: bytes, Hits: c.Hits.Value(), Misses: c.Misses.Value()}
}
