// Package material provides the drawable surface description: per-stage
// shader sources, named uniform values and fixed-function render state.
// Shader source text is opaque to the engine; only the uniform declarations
// are scanned, by the uniform package, when a schema is first needed.
package material

import (
	"sync"

	"github.com/kestrel3d/kestrel/engine/renderer/cache"
	"github.com/kestrel3d/kestrel/engine/renderer/pipeline"
	"github.com/kestrel3d/kestrel/engine/renderer/uniform"
)

// Side selects which triangle faces a material renders.
type Side int

const (
	SideFront Side = iota
	SideBack
	SideBoth
)

// CullMode resolves the rendered side to the faces the backend discards.
//
// Returns:
//   - pipeline.CullMode: the cull mode implied by the side
func (s Side) CullMode() pipeline.CullMode {
	switch s {
	case SideBack:
		return pipeline.CullFront
	case SideBoth:
		return pipeline.CullNone
	default:
		return pipeline.CullBack
	}
}

// Material describes how a drawable's surface is shaded: shader sources per
// stage, named uniform values and render-state flags. Shader sources are
// fixed at construction; the material's resource identity keys the compiled
// program.
type Material interface {
	// ResourceID returns the stable cache identity keying the compiled
	// program for this material's shader sources.
	//
	// Returns:
	//   - uint64: the identity assigned at creation
	ResourceID() uint64

	// OnDispose registers a release function to run when Dispose is called.
	//
	// Parameters:
	//   - release: the function to run on disposal
	OnDispose(release func())

	// Dispose releases every GPU handle registered against this material.
	Dispose()

	// VertexSource returns the vertex-stage shader source.
	VertexSource() string

	// FragmentSource returns the fragment-stage shader source.
	FragmentSource() string

	// ComputeSource returns the compute-stage shader source, or "" when the
	// material has no compute stage.
	ComputeSource() string

	// HasComputeStage reports whether a compute source is present.
	HasComputeStage() bool

	// SetUniform stores a named uniform value for the next pack.
	//
	// Parameters:
	//   - name: the uniform name as declared in the shader
	//   - value: the tagged value
	SetUniform(name string, value uniform.Value)

	// Uniform looks up a named uniform value.
	//
	// Parameters:
	//   - name: the uniform name
	//
	// Returns:
	//   - uniform.Value: the value, zero-valued when absent
	//   - bool: true when set
	Uniform(name string) (uniform.Value, bool)

	// Side returns which faces this material renders.
	Side() Side

	// Transparent reports whether the material blends over the framebuffer.
	Transparent() bool

	// SetTransparent flips the transparency flag; the next encounter
	// recompiles the pipeline under the changed state key.
	//
	// Parameters:
	//   - transparent: the new flag value
	SetTransparent(transparent bool)

	// DepthTest reports whether depth comparison is enabled.
	DepthTest() bool

	// DepthWrite reports whether the material writes the depth buffer.
	DepthWrite() bool

	// Blend returns the blend descriptor used when Transparent is set.
	Blend() pipeline.BlendState

	// Topology returns the primitive assembly mode.
	Topology() pipeline.Topology

	// Workgroups returns the compute dispatch dimensions.
	//
	// Returns:
	//   - [3]uint32: x, y, z workgroup counts
	Workgroups() [3]uint32
}

type engineMaterial struct {
	cache.Disposable

	mu *sync.Mutex
	id uint64

	vertexSrc   string
	fragmentSrc string
	computeSrc  string

	uniforms map[string]uniform.Value

	side        Side
	transparent bool
	depthTest   bool
	depthWrite  bool
	blend       pipeline.BlendState
	topology    pipeline.Topology
	workgroups  [3]uint32
}

var _ Material = &engineMaterial{}
var _ cache.Resource = &engineMaterial{}

// NewMaterial creates a material with the specified options. Defaults are an
// opaque, depth-tested, depth-writing, front-sided triangle material with
// standard alpha blending available when transparency is enabled.
//
// Parameters:
//   - options: functional options to configure the material
//
// Returns:
//   - Material: the configured material
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &engineMaterial{
		Disposable: cache.NewDisposable(),
		mu:         &sync.Mutex{},
		id:         cache.NewID(),
		uniforms:   make(map[string]uniform.Value),
		side:       SideFront,
		depthTest:  true,
		depthWrite: true,
		blend:      pipeline.AlphaBlend(),
		topology:   pipeline.TopologyTriangles,
		workgroups: [3]uint32{1, 1, 1},
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *engineMaterial) ResourceID() uint64 {
	return m.id
}

func (m *engineMaterial) VertexSource() string   { return m.vertexSrc }
func (m *engineMaterial) FragmentSource() string { return m.fragmentSrc }
func (m *engineMaterial) ComputeSource() string  { return m.computeSrc }
func (m *engineMaterial) HasComputeStage() bool  { return m.computeSrc != "" }

func (m *engineMaterial) SetUniform(name string, value uniform.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uniforms[name] = value
}

func (m *engineMaterial) Uniform(name string) (uniform.Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.uniforms[name]
	return v, ok
}

func (m *engineMaterial) Side() Side { return m.side }

func (m *engineMaterial) Transparent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transparent
}

func (m *engineMaterial) SetTransparent(transparent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transparent = transparent
}

func (m *engineMaterial) DepthTest() bool  { return m.depthTest }
func (m *engineMaterial) DepthWrite() bool { return m.depthWrite }

func (m *engineMaterial) Blend() pipeline.BlendState { return m.blend }

func (m *engineMaterial) Topology() pipeline.Topology { return m.topology }

func (m *engineMaterial) Workgroups() [3]uint32 { return m.workgroups }
