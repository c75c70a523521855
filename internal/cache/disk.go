package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/gpuscout/internal/model"
)

// DiskCache persists records as JSON files, one per key, so repeated runs
// over the same export skip standardization
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates a disk cache rooted at dir. A non-positive ttl never
// expires entries.
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{dir: dir, ttl: ttl, now: time.Now}
}

type diskEntry struct {
	Record    model.StandardizedRecord `json:"record"`
	ExpiresAt time.Time                `json:"expires_at,omitempty"`
}

// Get reads the record for key, removing it when expired
func (c *DiskCache) Get(key string) (model.StandardizedRecord, bool) {
	path := c.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return model.StandardizedRecord{}, false
	}

	var entry diskEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(path)
		return model.StandardizedRecord{}, false
	}
	if !entry.ExpiresAt.IsZero() && c.now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return model.StandardizedRecord{}, false
	}
	return entry.Record, true
}

// Set writes the record atomically (temp file + rename)
func (c *DiskCache) Set(key string, record model.StandardizedRecord) error {
	entry := diskEntry{Record: record}
	if c.ttl > 0 {
		entry.ExpiresAt = c.now().Add(c.ttl)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Clear removes the cache directory
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// path shards entries by the first two hex characters of the key hash
func (c *DiskCache) path(key string) string {
	name := key[strings.LastIndex(key, ":")+1:]
	shard := "00"
	if len(name) >= 2 {
		shard = name[:2]
	}
	return filepath.Join(c.dir, shard, name+".json")
}
