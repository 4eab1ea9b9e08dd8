package resolve

import (
	"path/filepath"
	"slices"
	"sync"
)

// Cache is the set of feature files already dispatched in a run.
// It only grows.
type Cache struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

// NewCache creates an empty dispatch cache.
func NewCache() *Cache {
	return &Cache{seen: make(map[string]struct{})}
}

// Claim records path and reports whether this is its first dispatch.
// Paths are compared after resolving symlinks and, when possible, made
// absolute, so "features/a.feature", "./features//a.feature" and a link
// to it are the same file.
func (c *Cache) Claim(path string) bool {
	key := cacheKey(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[key]; ok {
		return false
	}
	c.seen[key] = struct{}{}
	c.order = append(c.order, path)
	return true
}

// Dispatched returns the claimed paths in dispatch order.
func (c *Cache) Dispatched() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.order)
}

// Len returns the number of dispatched files.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func cacheKey(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
