package pipeline

import "sync"

// Cache is the keyed pipeline table. Keys combine a program identity with a
// State key; values are opaque backend pipeline handles. Entries live until
// the owning renderer is disposed; pipelines are shared, so no per-drawable
// disposal applies.
type Cache struct {
	mu      *sync.Mutex
	entries map[string]any
}

// NewCache creates an empty pipeline cache.
//
// Returns:
//   - *Cache: the empty cache
func NewCache() *Cache {
	return &Cache{
		mu:      &sync.Mutex{},
		entries: make(map[string]any),
	}
}

// Get looks up a compiled pipeline by key.
//
// Parameters:
//   - key: the combined program/state key
//
// Returns:
//   - any: the backend pipeline handle, or nil when absent
//   - bool: true when present
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.entries[key]
	return h, ok
}

// Set stores a compiled pipeline under its key.
//
// Parameters:
//   - key: the combined program/state key
//   - handle: the backend pipeline handle
func (c *Cache) Set(key string, handle any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = handle
}

// Len returns the number of cached pipelines.
//
// Returns:
//   - int: the entry count
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge removes every entry, invoking the disposer on each handle. Called on
// renderer disposal.
//
// Parameters:
//   - dispose: backend release for a pipeline handle (may be nil)
func (c *Cache) Purge(dispose func(handle any)) {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]any)
	c.mu.Unlock()

	if dispose == nil {
		return
	}
	for _, h := range entries {
		dispose(h)
	}
}
