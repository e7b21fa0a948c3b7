// Package cache provides identity-keyed handle tables mapping CPU-side
// resources to backend GPU handles, together with the disposal registry that
// guarantees deterministic, at-most-once release of GPU memory.
package cache

import (
	"sync"
	"sync/atomic"
)

// idCounter issues stable resource identities. IDs start at 1 so the zero
// value never collides with an issued identity.
var idCounter atomic.Uint64

// NewID returns a process-unique resource identity. Every cacheable object
// obtains one at construction time; a structural change that must force GPU
// reallocation is expressed by obtaining a fresh identity.
//
// Returns:
//   - uint64: a stable identity, never zero
func NewID() uint64 {
	return idCounter.Add(1)
}

// Resource is the contract a CPU-side object must satisfy to participate in
// GPU handle caching: a stable identity and a disposal registry.
type Resource interface {
	// ResourceID returns the stable identity assigned at creation. Identity
	// changes exactly when the object's GPU representation must be rebuilt.
	//
	// Returns:
	//   - uint64: the current identity
	ResourceID() uint64

	// OnDispose registers a release function to run when the object is
	// disposed. Registrations run in reverse order and at most once.
	//
	// Parameters:
	//   - release: the function to run on disposal
	OnDispose(release func())
}

// Cache is a handle table keyed by resource identity. Several caches may
// track the same resource (a geometry's attribute buffers plus its vertex
// layout object, for example); each registers its own release so disposal of
// the owning object tears down every tracked handle exactly once.
type Cache[H any] struct {
	mu      *sync.Mutex
	entries map[uint64]H
}

// New creates an empty Cache for handles of type H.
//
// Returns:
//   - *Cache[H]: the empty cache
func New[H any]() *Cache[H] {
	return &Cache[H]{
		mu:      &sync.Mutex{},
		entries: make(map[uint64]H),
	}
}

// Get looks up the handle cached for a resource.
//
// Parameters:
//   - r: the resource to look up
//
// Returns:
//   - H: the cached handle, or the zero value when absent
//   - bool: true when a handle is cached for the resource's current identity
func (c *Cache[H]) Get(r Resource) (H, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.entries[r.ResourceID()]
	return h, ok
}

// Set stores the handle for a resource and chains its teardown onto the
// resource's disposal: the disposer runs with the stored handle, then the
// cache entry is removed. Passing a nil disposer still removes the entry on
// disposal.
//
// Parameters:
//   - r: the owning resource
//   - handle: the backend handle to cache
//   - disposer: backend release for the handle (may be nil)
func (c *Cache[H]) Set(r Resource, handle H, disposer func(H)) {
	id := r.ResourceID()
	c.mu.Lock()
	c.entries[id] = handle
	c.mu.Unlock()

	r.OnDispose(func() {
		if disposer != nil {
			disposer(handle)
		}
		c.mu.Lock()
		delete(c.entries, id)
		c.mu.Unlock()
	})
}

// Delete removes the entry for a resource without running its disposer.
// Used when a handle has been handed off or replaced in place.
//
// Parameters:
//   - r: the resource whose entry should be dropped
func (c *Cache[H]) Delete(r Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, r.ResourceID())
}

// Len returns the number of live entries.
//
// Returns:
//   - int: the entry count
func (c *Cache[H]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
