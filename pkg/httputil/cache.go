// Package httputil provides the small HTTP plumbing shared by registry
// clients: a file-backed JSON cache and retry with exponential backoff.
package httputil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ErrExpired is returned by [Cache.Get] when an entry exists on disk but
// has exceeded its TTL. Callers should refetch and [Cache.Set] the fresh
// value.
var ErrExpired = errors.New("cache entry expired")

// Cache stores JSON-marshalable values as individual files, one per key.
// Filenames are SHA-256 hashes of the key, so arbitrary key strings are
// safe. Expiration is based on file modification time; a TTL of zero
// means entries never expire.
//
// A Cache instance is not goroutine-safe, but separate instances (and
// separate processes) may share a directory.
type Cache struct {
	dir    string
	ttl    time.Duration
	prefix string
}

// NewCache creates a cache rooted at dir with the given TTL. An empty dir
// selects the default location, ~/.cache/crateship/. The directory is
// created if needed.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".cache", "crateship")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// TTL returns the entry time-to-live. Zero means no expiration.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get unmarshals the cached value for key into v. It reports (true, nil)
// on a fresh hit, (false, nil) on a miss, and (false, ErrExpired) when the
// entry exists but is stale. v is untouched unless the hit is fresh.
func (c *Cache) Get(key string, v any) (bool, error) {
	path := c.keyPath(key)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		return false, ErrExpired
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, v)
}

// Set stores v under key, overwriting any previous entry and refreshing
// its TTL.
func (c *Cache) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(c.keyPath(key), data, 0o644)
}

// Namespace returns a view of the cache that prefixes every key, keeping
// different data sources from colliding:
//
//	crates := cache.Namespace("crates:")
//	crates.Set("serde", data) // stored under "crates:serde"
//
// The view shares the parent's directory and TTL; calls can be chained.
func (c *Cache) Namespace(prefix string) *Cache {
	return &Cache{dir: c.dir, ttl: c.ttl, prefix: c.prefix + prefix}
}

func (c *Cache) keyPath(key string) string {
	h := sha256.Sum256([]byte(c.prefix + key))
	return filepath.Join(c.dir, hex.EncodeToString(h[:]))
}
