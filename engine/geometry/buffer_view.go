// Package geometry provides drawable vertex data: named attribute views,
// optional index data, a draw-range window and a derived bounding radius.
// Views carry the dirty and identity signals the resource cache keys on.
package geometry

import (
	"sync"

	"github.com/kestrel3d/kestrel/engine/renderer/cache"
)

// BufferView is one named vertex attribute's backing data: a flat float32
// slice interpreted as consecutive items of ItemSize components. A view owns
// its GPU buffer identity: rewriting data of the same length marks the view
// dirty for an in-place rewrite, while a length change takes a fresh identity
// so the cache reallocates.
type BufferView struct {
	cache.Disposable

	mu       *sync.Mutex
	id       uint64
	data     []float32
	itemSize int
	divisor  int
	dirty    bool
}

var _ cache.Resource = &BufferView{}

// NewBufferView creates a view over the given data.
//
// Parameters:
//   - data: flat component data
//   - itemSize: components per item (1 to 4)
//   - options: functional options to configure the view
//
// Returns:
//   - *BufferView: the view, marked dirty for its initial upload
func NewBufferView(data []float32, itemSize int, options ...BufferViewBuilderOption) *BufferView {
	if itemSize < 1 || itemSize > 4 {
		panic("geometry: itemSize must be between 1 and 4")
	}
	v := &BufferView{
		Disposable: cache.NewDisposable(),
		mu:         &sync.Mutex{},
		id:         cache.NewID(),
		data:       data,
		itemSize:   itemSize,
		dirty:      true,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// BufferViewBuilderOption is a functional option used to configure a BufferView during construction.
type BufferViewBuilderOption func(*BufferView)

// WithDivisor marks the view as per-instance data advancing once every
// divisor instances rather than per vertex.
//
// Parameters:
//   - divisor: the instance divisor (0 = per vertex)
//
// Returns:
//   - BufferViewBuilderOption: a function that sets the divisor
func WithDivisor(divisor int) BufferViewBuilderOption {
	return func(v *BufferView) {
		v.divisor = divisor
	}
}

func (v *BufferView) ResourceID() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.id
}

// Data returns the backing slice. Callers must not mutate it directly; use
// SetData so the dirty and identity signals stay correct.
func (v *BufferView) Data() []float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data
}

// SetData replaces the backing data. Same-length replacement is an in-place
// rewrite on next encounter; a length change forces GPU reallocation by
// taking a fresh identity.
//
// Parameters:
//   - data: the new component data
func (v *BufferView) SetData(data []float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(data) != len(v.data) {
		v.id = cache.NewID()
	}
	v.data = data
	v.dirty = true
}

// ItemSize returns the component count per item.
func (v *BufferView) ItemSize() int { return v.itemSize }

// Divisor returns the instance divisor (0 = per vertex).
func (v *BufferView) Divisor() int { return v.divisor }

// Stride returns the byte stride between consecutive items.
func (v *BufferView) Stride() int { return v.itemSize * 4 }

// Count returns the number of items in the view.
func (v *BufferView) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.itemSize == 0 {
		return 0
	}
	return len(v.data) / v.itemSize
}

// NeedsUpload reports whether the data changed since the last GPU write.
func (v *BufferView) NeedsUpload() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dirty
}

// MarkUploaded clears the dirty flag after a GPU write.
func (v *BufferView) MarkUploaded() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dirty = false
}

// IndexView is the element index analogue of BufferView, backed by uint32
// indices.
type IndexView struct {
	cache.Disposable

	mu    *sync.Mutex
	id    uint64
	data  []uint32
	dirty bool
}

var _ cache.Resource = &IndexView{}

// NewIndexView creates an index view over the given indices.
//
// Parameters:
//   - data: the element indices
//
// Returns:
//   - *IndexView: the view, marked dirty for its initial upload
func NewIndexView(data []uint32) *IndexView {
	return &IndexView{
		Disposable: cache.NewDisposable(),
		mu:         &sync.Mutex{},
		id:         cache.NewID(),
		data:       data,
		dirty:      true,
	}
}

func (v *IndexView) ResourceID() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.id
}

// Data returns the backing indices.
func (v *IndexView) Data() []uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data
}

// SetData replaces the indices, with the same identity semantics as
// BufferView.SetData.
//
// Parameters:
//   - data: the new element indices
func (v *IndexView) SetData(data []uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(data) != len(v.data) {
		v.id = cache.NewID()
	}
	v.data = data
	v.dirty = true
}

// Count returns the number of indices.
func (v *IndexView) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.data)
}

// NeedsUpload reports whether the indices changed since the last GPU write.
func (v *IndexView) NeedsUpload() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dirty
}

// MarkUploaded clears the dirty flag after a GPU write.
func (v *IndexView) MarkUploaded() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dirty = false
}
