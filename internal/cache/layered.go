package cache

import (
	"errors"

	"github.com/ppiankov/gpuscout/internal/model"
)

// LayeredCache checks a fast cache before a slow one and promotes slow hits
type LayeredCache struct {
	fast Cache
	slow Cache
}

// NewLayeredCache creates a two-level cache
func NewLayeredCache(fast, slow Cache) *LayeredCache {
	return &LayeredCache{fast: fast, slow: slow}
}

// Get checks the fast layer, then the slow one
func (c *LayeredCache) Get(key string) (model.StandardizedRecord, bool) {
	if rec, ok := c.fast.Get(key); ok {
		return rec, true
	}
	rec, ok := c.slow.Get(key)
	if !ok {
		return model.StandardizedRecord{}, false
	}
	_ = c.fast.Set(key, rec) // memory writes do not fail
	return rec, true
}

// Set writes through to both layers
func (c *LayeredCache) Set(key string, record model.StandardizedRecord) error {
	if err := c.fast.Set(key, record); err != nil {
		return err
	}
	return c.slow.Set(key, record)
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	return errors.Join(c.fast.Clear(), c.slow.Clear())
}
