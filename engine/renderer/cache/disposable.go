package cache

import "sync"

// Disposable is the canonical disposal registry. CPU-side resources embed it
// to satisfy the Resource contract's OnDispose half: release functions are
// registered explicitly and run exactly once, in reverse registration order,
// when Dispose is called. Later Dispose calls are no-ops.
type Disposable struct {
	mu       *sync.Mutex
	released bool
	releases []func()
}

// NewDisposable creates an empty disposal registry.
//
// Returns:
//   - Disposable: the registry, ready for embedding
func NewDisposable() Disposable {
	return Disposable{mu: &sync.Mutex{}}
}

// OnDispose registers a release function. Registering after disposal runs
// the function immediately, so a late cache registration can never leak a
// GPU handle.
//
// Parameters:
//   - release: the function to run on disposal (ignored when nil)
func (d *Disposable) OnDispose(release func()) {
	if release == nil {
		return
	}
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		release()
		return
	}
	d.releases = append(d.releases, release)
	d.mu.Unlock()
}

// Dispose runs every registered release in reverse registration order, then
// marks the registry released. Subsequent calls do nothing.
func (d *Disposable) Dispose() {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return
	}
	d.released = true
	releases := d.releases
	d.releases = nil
	d.mu.Unlock()

	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}

// Disposed reports whether Dispose has run.
//
// Returns:
//   - bool: true once disposed
func (d *Disposable) Disposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}
