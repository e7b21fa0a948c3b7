package geometry

import (
	"math"
	"sync"

	"github.com/kestrel3d/kestrel/engine/renderer/cache"
)

// Geometry is a drawable's vertex data: named attribute views, an optional
// index view and a draw-range window. Its resource identity covers the
// attribute set as a whole (the vertex-layout object on the GPU side), so
// adding or removing an attribute forces layout reallocation while plain data
// rewrites do not.
type Geometry interface {
	// ResourceID returns the stable cache identity for the attribute set.
	//
	// Returns:
	//   - uint64: the current identity
	ResourceID() uint64

	// OnDispose registers a release function to run when Dispose is called.
	//
	// Parameters:
	//   - release: the function to run on disposal
	OnDispose(release func())

	// Dispose releases every GPU handle registered against this geometry and
	// its views. Safe to call more than once.
	Dispose()

	// SetAttribute stores a named attribute view, replacing any previous one
	// under the same name. Changing the attribute set takes a fresh geometry
	// identity.
	//
	// Parameters:
	//   - name: the attribute name (the "position" attribute drives bounds)
	//   - view: the backing view
	SetAttribute(name string, view *BufferView)

	// Attribute looks up a named attribute view.
	//
	// Parameters:
	//   - name: the attribute name
	//
	// Returns:
	//   - *BufferView: the view, or nil
	//   - bool: true when present
	Attribute(name string) (*BufferView, bool)

	// AttributeNames returns the attribute names in insertion order. The
	// order is stable so derived layouts and cache keys are deterministic.
	//
	// Returns:
	//   - []string: the names
	AttributeNames() []string

	// SetIndex sets the element index view (nil for non-indexed drawing).
	//
	// Parameters:
	//   - view: the index view or nil
	SetIndex(view *IndexView)

	// Index returns the element index view, or nil for non-indexed drawing.
	//
	// Returns:
	//   - *IndexView: the index view or nil
	Index() *IndexView

	// SetDrawRange restricts drawing to a window of vertices or indices.
	//
	// Parameters:
	//   - start: first vertex or index
	//   - count: number to draw (negative = through the end)
	SetDrawRange(start, count int)

	// DrawRange returns the configured draw window.
	//
	// Returns:
	//   - int: first vertex or index
	//   - int: count (negative = through the end)
	DrawRange() (int, int)

	// BoundingRadius returns the maximum distance of any position-attribute
	// vertex from the local origin. Recomputed lazily after the position
	// attribute changes.
	//
	// Returns:
	//   - float32: the local-space bounding sphere radius
	BoundingRadius() float32
}

type engineGeometry struct {
	cache.Disposable

	mu        *sync.Mutex
	id        uint64
	attrs     map[string]*BufferView
	attrOrder []string
	index     *IndexView

	rangeStart int
	rangeCount int

	radius      float32
	radiusValid bool
}

var _ Geometry = &engineGeometry{}
var _ cache.Resource = &engineGeometry{}

// NewGeometry creates a geometry with the specified options.
//
// Parameters:
//   - options: functional options to configure the geometry
//
// Returns:
//   - Geometry: the configured geometry
func NewGeometry(options ...GeometryBuilderOption) Geometry {
	g := &engineGeometry{
		Disposable: cache.NewDisposable(),
		mu:         &sync.Mutex{},
		id:         cache.NewID(),
		attrs:      make(map[string]*BufferView),
		rangeStart: 0,
		rangeCount: -1,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *engineGeometry) ResourceID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.id
}

func (g *engineGeometry) Dispose() {
	g.mu.Lock()
	views := make([]*BufferView, 0, len(g.attrs))
	for _, v := range g.attrs {
		views = append(views, v)
	}
	index := g.index
	g.mu.Unlock()

	for _, v := range views {
		v.Dispose()
	}
	if index != nil {
		index.Dispose()
	}
	g.Disposable.Dispose()
}

func (g *engineGeometry) SetAttribute(name string, view *BufferView) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.attrs[name]; !exists {
		g.attrOrder = append(g.attrOrder, name)
		g.id = cache.NewID()
	}
	g.attrs[name] = view
	if name == "position" {
		g.radiusValid = false
	}
}

func (g *engineGeometry) Attribute(name string) (*BufferView, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.attrs[name]
	return v, ok
}

func (g *engineGeometry) AttributeNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, len(g.attrOrder))
	copy(names, g.attrOrder)
	return names
}

func (g *engineGeometry) SetIndex(view *IndexView) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.index = view
}

func (g *engineGeometry) Index() *IndexView {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.index
}

func (g *engineGeometry) SetDrawRange(start, count int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rangeStart = start
	g.rangeCount = count
}

func (g *engineGeometry) DrawRange() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rangeStart, g.rangeCount
}

func (g *engineGeometry) BoundingRadius() float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.radiusValid {
		return g.radius
	}

	g.radius = 0
	g.radiusValid = true
	pos, ok := g.attrs["position"]
	if !ok {
		return 0
	}

	data := pos.Data()
	itemSize := pos.ItemSize()
	maxSq := float32(0)
	for i := 0; i+itemSize <= len(data); i += itemSize {
		sq := float32(0)
		for c := 0; c < itemSize; c++ {
			sq += data[i+c] * data[i+c]
		}
		if sq > maxSq {
			maxSq = sq
		}
	}
	g.radius = float32(math.Sqrt(float64(maxSq)))
	return g.radius
}
