package sensors

import (
	"fmt"
	"sync"
	"time"

	"github.com/pibotics/go-humanoid/pkg/hardware"
)

// DefaultTTL bounds how stale a served reading can be.
const DefaultTTL = 100 * time.Millisecond

// Cache memoizes sensor readings for a short TTL. Entries are replaced
// wholesale on refresh and never partially updated; a failed refresh does
// not poison the cache.
type Cache struct {
	adapter hardware.Adapter
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[hardware.SensorID]Reading
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithNow injects a time source for deterministic tests.
func WithNow(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache returns an empty cache backed by the adapter.
func NewCache(adapter hardware.Adapter, opts ...CacheOption) *Cache {
	c := &Cache{
		adapter: adapter,
		ttl:     DefaultTTL,
		now:     time.Now,
		entries: make(map[hardware.SensorID]Reading),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read returns the cached reading while it is fresh; otherwise it
// performs one hardware read, replaces the entry and returns the new
// value. On a failed refresh the prior entry is kept (it stays servable
// until it, too, would have expired) and ErrSensorUnavailable surfaces
// so safety-critical callers can decide whether staleness is acceptable.
func (c *Cache) Read(id hardware.SensorID) (Reading, error) {
	if !Known(id) {
		return Reading{}, fmt.Errorf("%w: unknown sensor %q", ErrSensorUnavailable, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if entry, ok := c.entries[id]; ok && now.Sub(entry.CapturedAt) < c.ttl {
		return entry, nil
	}

	frame, err := c.adapter.ReadSensor(id)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %s: %w", ErrSensorUnavailable, id, err)
	}
	values, err := Decode(id, frame)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %s: %w", ErrSensorUnavailable, id, err)
	}

	entry := Reading{Sensor: id, Values: values, CapturedAt: now}
	c.entries[id] = entry
	return entry, nil
}

// Invalidate forces the next Read of id to bypass the cache.
func (c *Cache) Invalidate(id hardware.SensorID) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}
