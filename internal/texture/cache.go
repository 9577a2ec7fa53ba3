package texture

import (
	"image"
	"log/slog"
	"os"
	"sync"
)

// Resolver resolves a texture path to a decoded image, or nil when it cannot
// be found or decoded.
type Resolver interface {
	Resolve(path string) *image.NRGBA
}

// Cache is a concurrency-safe texture cache.
type Cache struct {
	mu      sync.RWMutex
	items   map[string]*cacheEntry
	index   *Index
	maxSize int
}

type cacheEntry struct {
	img    *image.NRGBA
	loaded bool // true if we've attempted to load (img may still be nil)
}

// NewCache creates a texture cache. index may be nil; maxSize <= 0 keeps
// textures at full resolution.
func NewCache(index *Index, maxSize int) *Cache {
	return &Cache{
		items:   make(map[string]*cacheEntry),
		index:   index,
		maxSize: maxSize,
	}
}

// Resolve loads and caches a texture. A path that does not exist is looked up
// by stem in the index. Returns nil if not found; failures are cached too.
func (c *Cache) Resolve(path string) *image.NRGBA {
	if _, err := os.Stat(path); err != nil {
		alt, ok := c.index.ResolvePath(path)
		if !ok {
			slog.Warn("texture not found", "path", path)
			return nil
		}
		path = alt
	}

	// Fast path: read lock
	c.mu.RLock()
	if entry, exists := c.items[path]; exists {
		c.mu.RUnlock()
		return entry.img
	}
	c.mu.RUnlock()

	// Slow path: load from disk
	img, err := LoadTexture(path)
	if err != nil {
		slog.Warn("texture not loaded", "path", path, "err", err)
	} else {
		img = Fit(img, c.maxSize)
	}

	// Write lock with double-check
	c.mu.Lock()
	if entry, exists := c.items[path]; exists {
		c.mu.Unlock()
		return entry.img
	}
	c.items[path] = &cacheEntry{img: img, loaded: true}
	c.mu.Unlock()

	return img
}

// Len returns the number of cached paths, failed loads included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
