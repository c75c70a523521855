package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/gpuscout/internal/model"
)

// MemoryCache keeps records in process memory with expiry
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a memory cache. A non-positive ttl keeps entries
// until Clear.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		return &MemoryCache{items: gocache.New(gocache.NoExpiration, 0)}
	}
	return &MemoryCache{items: gocache.New(ttl, 2*ttl)}
}

// Get returns the cached record for key
func (c *MemoryCache) Get(key string) (model.StandardizedRecord, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return model.StandardizedRecord{}, false
	}
	rec, ok := v.(model.StandardizedRecord)
	return rec, ok
}

// Set stores a record under the default expiry
func (c *MemoryCache) Set(key string, record model.StandardizedRecord) error {
	c.items.SetDefault(key, record)
	return nil
}

// Len returns the number of stored records, expired ones included until cleanup
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}

// Clear drops every record
func (c *MemoryCache) Clear() error {
	c.items.Flush()
	return nil
}
