package mesh

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"sofa-scene-importer/internal/texture"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Handle is a loaded mesh shared by every object that references the same
// file. Handles are never copied; identity is the pointer.
type Handle struct {
	ID       string
	Path     string
	Geometry *Geometry
}

// VertexCount returns the number of mesh vertices.
func (h *Handle) VertexCount() int {
	return len(h.Geometry.Vertices)
}

// Loader loads the geometry at an already normalized path.
type Loader interface {
	Load(path string) (*Geometry, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(path string) (*Geometry, error)

func (f LoaderFunc) Load(path string) (*Geometry, error) { return f(path) }

// OBJLoader loads Wavefront OBJ files.
type OBJLoader struct {
	Textures texture.Resolver
}

func (l OBJLoader) Load(path string) (*Geometry, error) {
	return LoadOBJ(path, l.Textures)
}

// LoadError is a cached mesh load failure.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("mesh: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Stats counts cache activity.
type Stats struct {
	Resolves int // calls to Resolve
	Loads    int // loader invocations
	Failures int // loads that failed
	Handles  int // successfully cached handles
}

// Hits returns the number of resolutions served without a load.
func (s Stats) Hits() int { return s.Resolves - s.Loads }

// Cache loads each mesh file at most once per run. Concurrent resolutions of
// one path share a single load; different paths load in parallel.
type Cache struct {
	loader Loader
	group  singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
	stats   Stats
}

type entry struct {
	handle *Handle
	err    *LoadError
}

// NewCache creates a cache backed by loader.
func NewCache(loader Loader) *Cache {
	return &Cache{
		loader:  loader,
		entries: make(map[string]*entry),
	}
}

// Key normalizes a mesh path the way the cache keys it: absolute, cleaned,
// with ".obj" appended when the name has no extension.
func Key(path string) (string, error) {
	if filepath.Ext(path) == "" {
		path += ".obj"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// Resolve returns the handle for path, loading it on first use. A failed
// load is remembered and returned as the same *LoadError on every later call.
func (c *Cache) Resolve(path string) (*Handle, error) {
	key, err := Key(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	c.mu.Lock()
	c.stats.Resolves++
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return e.result()
	}
	c.mu.Unlock()

	v, _, _ := c.group.Do(key, func() (any, error) {
		// A previous flight may have finished between the lookup and Do.
		c.mu.Lock()
		if e, ok := c.entries[key]; ok {
			c.mu.Unlock()
			return e, nil
		}
		c.stats.Loads++
		c.mu.Unlock()

		start := time.Now()
		geom, err := c.loader.Load(key)
		if err == nil && geom == nil {
			err = errors.New("loader returned no geometry")
		}

		e := &entry{}
		if err != nil {
			e.err = &LoadError{Path: key, Err: err}
			slog.Warn("mesh load failed", "path", key, "err", err)
		} else {
			e.handle = &Handle{ID: uuid.NewString(), Path: key, Geometry: geom}
			slog.Debug("mesh loaded", "path", key, "vertices", len(geom.Vertices),
				"faces", len(geom.Faces), "elapsed", time.Since(start).Round(time.Microsecond))
		}

		c.mu.Lock()
		c.entries[key] = e
		if e.err != nil {
			c.stats.Failures++
		} else {
			c.stats.Handles++
		}
		c.mu.Unlock()
		return e, nil
	})
	return v.(*entry).result()
}

func (e *entry) result() (*Handle, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.handle, nil
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Len returns the number of cached paths, failures included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
