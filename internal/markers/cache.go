package markers

import "github.com/pmorvan/tregorweather/internal/forecast"

// renderCacheCap bounds the render cache; the oldest entry is evicted past
// this count.
const renderCacheCap = 16

type renderKey struct {
	zoom     float64
	day      int
	dryOnly  bool
	activity forecast.Activity
}

// renderCache is a small bounded cache of computed render sets. It is a
// performance optimization only; correctness never depends on a hit.
type renderCache struct {
	cap     int
	entries map[renderKey]RenderSet
	order   []renderKey
}

func newRenderCache(cap int) *renderCache {
	return &renderCache{
		cap:     cap,
		entries: make(map[renderKey]RenderSet, cap),
	}
}

func (c *renderCache) get(key renderKey) (RenderSet, bool) {
	rs, ok := c.entries[key]
	return rs, ok
}

func (c *renderCache) put(key renderKey, rs RenderSet) {
	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.cap {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = rs
}

func (c *renderCache) clear() {
	c.entries = make(map[renderKey]RenderSet, c.cap)
	c.order = c.order[:0]
}
