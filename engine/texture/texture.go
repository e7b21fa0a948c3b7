// Package texture provides CPU-side texture objects with deferred pixel
// sources. A texture is drawable only once its pixels are ready; the frame
// loop skips not-yet-ready textures and retries them on a later encounter.
package texture

import (
	"sync"

	"github.com/kestrel3d/kestrel/engine/renderer/cache"
)

// FilterMode selects texel filtering for magnification and minification.
type FilterMode int

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

// WrapMode selects texture coordinate addressing outside [0, 1].
type WrapMode int

const (
	WrapClampToEdge WrapMode = iota
	WrapRepeat
	WrapMirrorRepeat
)

// SamplerConfig holds the sampler parameters attached to a texture or render
// target attachment. Backends translate these to their native sampler types.
type SamplerConfig struct {
	MagFilter  FilterMode
	MinFilter  FilterMode
	WrapS      WrapMode
	WrapT      WrapMode
	Anisotropy uint16
}

// DefaultSampler returns the linear/clamp configuration used when a texture
// does not specify its own sampler.
//
// Returns:
//   - SamplerConfig: linear filtering, clamp-to-edge wrapping, no anisotropy
func DefaultSampler() SamplerConfig {
	return SamplerConfig{
		MagFilter:  FilterLinear,
		MinFilter:  FilterLinear,
		WrapS:      WrapClampToEdge,
		WrapT:      WrapClampToEdge,
		Anisotropy: 1,
	}
}

// Texture is a CPU-side texture with RGBA pixels and sampler configuration.
// It participates in GPU handle caching through its stable resource identity
// and disposal registry.
type Texture interface {
	// ResourceID returns the stable cache identity for this texture.
	//
	// Returns:
	//   - uint64: the identity assigned at creation
	ResourceID() uint64

	// OnDispose registers a release function to run when Dispose is called.
	//
	// Parameters:
	//   - release: the function to run on disposal
	OnDispose(release func())

	// Dispose releases every GPU handle registered against this texture.
	// Safe to call more than once; only the first call has an effect.
	Dispose()

	// Ready reports whether pixel data is available for upload. A texture
	// backed by an asynchronous source stays unready until its loader
	// delivers pixels.
	//
	// Returns:
	//   - bool: true when Pixels returns usable data
	Ready() bool

	// NeedsUpload reports whether the pixel data changed since the last GPU
	// upload.
	//
	// Returns:
	//   - bool: true when the backend should rewrite the GPU texture
	NeedsUpload() bool

	// MarkUploaded clears the dirty flag after a successful GPU upload.
	MarkUploaded()

	// Pixels returns the RGBA pixel data and its dimensions. The slice is
	// nil until the texture is ready.
	//
	// Returns:
	//   - []byte: RGBA pixels, 4 bytes per texel, row-major
	//   - uint32: width in texels
	//   - uint32: height in texels
	Pixels() ([]byte, uint32, uint32)

	// SetPixels replaces the pixel data, marking the texture ready and in
	// need of upload. Safe to call from a loader goroutine.
	//
	// Parameters:
	//   - pixels: RGBA data, 4 bytes per texel
	//   - width: width in texels
	//   - height: height in texels
	SetPixels(pixels []byte, width, height uint32)

	// Sampler returns the sampler configuration for this texture.
	//
	// Returns:
	//   - SamplerConfig: the configuration set at construction
	Sampler() SamplerConfig
}

type engineTexture struct {
	cache.Disposable

	mu      *sync.Mutex
	id      uint64
	pixels  []byte
	width   uint32
	height  uint32
	ready   bool
	dirty   bool
	sampler SamplerConfig
}

var _ Texture = &engineTexture{}
var _ cache.Resource = &engineTexture{}

// NewTexture creates a texture with the specified options. A texture created
// without pixels stays unready until SetPixels is called (typically by a
// Loader).
//
// Parameters:
//   - options: functional options to configure the texture
//
// Returns:
//   - Texture: the configured texture
func NewTexture(options ...TextureBuilderOption) Texture {
	t := &engineTexture{
		Disposable: cache.NewDisposable(),
		mu:         &sync.Mutex{},
		id:         cache.NewID(),
		sampler:    DefaultSampler(),
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *engineTexture) ResourceID() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

func (t *engineTexture) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready
}

func (t *engineTexture) NeedsUpload() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

func (t *engineTexture) MarkUploaded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = false
}

func (t *engineTexture) Pixels() ([]byte, uint32, uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pixels, t.width, t.height
}

func (t *engineTexture) SetPixels(pixels []byte, width, height uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// A size change invalidates the cached GPU texture; a fresh identity
	// forces reallocation instead of an in-place rewrite.
	if t.ready && (width != t.width || height != t.height) {
		t.id = cache.NewID()
	}
	t.pixels = pixels
	t.width = width
	t.height = height
	t.ready = true
	t.dirty = true
}

func (t *engineTexture) Sampler() SamplerConfig {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sampler
}
