package formula

import (
	"sync"
)

// DefaultCacheLimit bounds the number of compiled programs kept in memory.
// Formulas come from form definitions, so the working set is small; the
// bound guards against tenants with many distinct one-off formulas.
const DefaultCacheLimit = 100

// Cache stores compiled programs keyed by the literal expression text.
// Eviction is least-recently-inserted: when the bound is reached the oldest
// insertion is dropped and recompiled on next use. Entries are immutable,
// so eviction never invalidates a program an in-flight evaluation holds.
type Cache struct {
	mu    sync.RWMutex
	limit int
	items map[string]*Program
	order []string

	hits   int64
	misses int64
}

// NewCache creates a bounded program cache. A non-positive limit falls back
// to DefaultCacheLimit.
func NewCache(limit int) *Cache {
	if limit <= 0 {
		limit = DefaultCacheLimit
	}
	return &Cache{
		limit: limit,
		items: make(map[string]*Program, limit),
		order: make([]string, 0, limit),
	}
}

// Get returns the cached program for an expression, if present
func (c *Cache) Get(expression string) (*Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[expression]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return p, ok
}

// Put stores a compiled program, evicting the oldest insertion at capacity
func (c *Cache) Put(expression string, p *Program) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[expression]; exists {
		c.items[expression] = p
		return
	}
	if len(c.order) >= c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
	c.items[expression] = p
	c.order = append(c.order, expression)
}

// Len returns the number of cached programs
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns cumulative hit and miss counts
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
