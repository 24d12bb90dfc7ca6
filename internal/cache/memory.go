package cache

import (
	"time"

	"github.com/maypok86/otter"

	"github.com/csalazar/almoner/internal/engine"
)

// MemoryCache is the local tier, holding compiled snapshots using a
// contention-free S3-FIFO cache (otter). Getting a snapshot here skips both
// Redis and rule compilation entirely.
type MemoryCache struct {
	store otter.Cache[string, *engine.Snapshot]
}

// NewMemoryCache initializes the in-memory cache.
// capacity caps the number of snapshots held (one per jurisdiction+date in
// practice); ttl bounds staleness after a rule set update.
func NewMemoryCache(capacity int, ttl time.Duration) (*MemoryCache, error) {
	cache, err := otter.MustBuilder[string, *engine.Snapshot](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}

	return &MemoryCache{store: cache}, nil
}

// Get retrieves a snapshot. The snapshot is shared across requests, so
// callers must treat it as immutable.
func (c *MemoryCache) Get(key string) (*engine.Snapshot, bool) {
	return c.store.Get(key)
}

// Set adds or updates a snapshot. The TTL configured in NewMemoryCache is
// applied automatically.
func (c *MemoryCache) Set(key string, snap *engine.Snapshot) {
	c.store.Set(key, snap)
}

// Del removes a snapshot.
func (c *MemoryCache) Del(key string) {
	c.store.Delete(key)
}

// Close shuts down the cache and its background cleanup goroutines.
func (c *MemoryCache) Close() {
	c.store.Close()
}
