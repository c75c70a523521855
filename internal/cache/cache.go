package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/ppiankov/gpuscout/internal/model"
)

// Cache stores standardized records by key. Records are deterministic for a
// given listing and table set, so a hit is always equal to a fresh run.
type Cache interface {
	Get(key string) (model.StandardizedRecord, bool)
	Set(key string, record model.StandardizedRecord) error
	Clear() error
}

// Key derives the cache key of a listing under a table fingerprint
func Key(fingerprint string, listing model.RawListing) string {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	data, _ := json.Marshal(listing) // plain strings and a time, cannot fail
	h.Write(data)
	return "gpuscout:v1:" + hex.EncodeToString(h.Sum(nil))
}

// New builds the cache described by the configuration, or nil when disabled
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL)
	}
	return NewLayeredCache(NewMemoryCache(cfg.MemoryTTL), NewDiskCache(cfg.Dir, cfg.DiskTTL))
}
