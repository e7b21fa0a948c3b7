// Package target provides offscreen render targets: sized color attachments
// with per-attachment sampler configuration plus an implicit depth/stencil
// attachment managed by the backend.
package target

import (
	"sync"

	"github.com/kestrel3d/kestrel/engine/renderer/cache"
	"github.com/kestrel3d/kestrel/engine/texture"
)

// RenderTarget is an offscreen framebuffer description. A dirty target (new
// size) has its GPU attachments reallocated the next time it is bound; the
// flag clears after reallocation.
type RenderTarget interface {
	// ResourceID returns the stable cache identity for this target.
	//
	// Returns:
	//   - uint64: the identity assigned at creation
	ResourceID() uint64

	// OnDispose registers a release function to run when Dispose is called.
	//
	// Parameters:
	//   - release: the function to run on disposal
	OnDispose(release func())

	// Dispose releases the GPU attachments registered against this target.
	Dispose()

	// Size returns the target dimensions in pixels.
	//
	// Returns:
	//   - int: width
	//   - int: height
	Size() (int, int)

	// SetSize resizes the target, marking it dirty so attachments are
	// reallocated on next bind.
	//
	// Parameters:
	//   - width: new width in pixels
	//   - height: new height in pixels
	SetSize(width, height int)

	// Attachments returns the per-attachment sampler configurations. The
	// length is the color attachment count.
	//
	// Returns:
	//   - []texture.SamplerConfig: one entry per color attachment
	Attachments() []texture.SamplerConfig

	// NeedsRebuild reports whether the GPU attachments are stale.
	//
	// Returns:
	//   - bool: true when bind must reallocate
	NeedsRebuild() bool

	// MarkRebuilt clears the dirty flag after attachment reallocation.
	MarkRebuilt()
}

type engineTarget struct {
	cache.Disposable

	mu          *sync.Mutex
	id          uint64
	width       int
	height      int
	attachments []texture.SamplerConfig
	dirty       bool
}

var _ RenderTarget = &engineTarget{}
var _ cache.Resource = &engineTarget{}

// NewRenderTarget creates a render target with the specified options. The
// default is a single linear/clamp color attachment at 1x1.
//
// Parameters:
//   - options: functional options to configure the target
//
// Returns:
//   - RenderTarget: the configured target, dirty for its initial allocation
func NewRenderTarget(options ...TargetBuilderOption) RenderTarget {
	t := &engineTarget{
		Disposable:  cache.NewDisposable(),
		mu:          &sync.Mutex{},
		id:          cache.NewID(),
		width:       1,
		height:      1,
		attachments: []texture.SamplerConfig{texture.DefaultSampler()},
		dirty:       true,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *engineTarget) ResourceID() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

func (t *engineTarget) Size() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height
}

func (t *engineTarget) SetSize(width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if width == t.width && height == t.height {
		return
	}
	t.width = width
	t.height = height
	t.dirty = true
}

func (t *engineTarget) Attachments() []texture.SamplerConfig {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]texture.SamplerConfig, len(t.attachments))
	copy(out, t.attachments)
	return out
}

func (t *engineTarget) NeedsRebuild() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

func (t *engineTarget) MarkRebuilt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = false
}
