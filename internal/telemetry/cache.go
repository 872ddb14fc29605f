package telemetry

import (
	"sync"
	"time"
)

// Cache stores the latest Signal per entity key.
// It is written only by the stream's message handler and read by consumers
// through immutable snapshot copies, so readers never observe a partial update.
type Cache struct {
	mu      sync.RWMutex
	signals map[string]Signal
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		signals: make(map[string]Signal),
	}
}

// Upsert inserts or overwrites the signal for key.
// Later updates win; insertion order is irrelevant.
func (c *Cache) Upsert(key string, value interface{}, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals[key] = Signal{Value: value, LastUpdated: ts}
}

// Get returns the signal for key.
// The second return is false if the entity never reported a value.
func (c *Cache) Get(key string) (Signal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.signals[key]
	return s, ok
}

// Snapshot returns a copy of all signals.
func (c *Cache) Snapshot() map[string]Signal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]Signal, len(c.signals))
	for k, v := range c.signals {
		out[k] = v
	}
	return out
}

// Clear drops all signals. Called on every (re)connection so stale values
// from a previous gateway session never leak into a new one.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = make(map[string]Signal)
}

// Len returns the number of signals that have reported at least once.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.signals)
}
