package renderer

import (
	"github.com/kestrel3d/kestrel/engine/renderer/pipeline"
	"github.com/kestrel3d/kestrel/engine/texture"
)

// BufferKind selects the GPU usage of a buffer allocation.
type BufferKind int

const (
	BufferVertex BufferKind = iota
	BufferIndex
	BufferUniform
)

// ProgramDesc carries the per-stage shader sources for one program. Compute
// programs set only ComputeSrc; render programs set the other two.
type ProgramDesc struct {
	VertexSrc   string
	FragmentSrc string
	ComputeSrc  string
}

// TextureBinding pairs a shader-declared texture name with its backend
// handle for binding.
type TextureBinding struct {
	Name   string
	Handle any
}

// Backend is the command interface both GPU implementations satisfy. Handles
// are opaque to the orchestrator: it allocates them here, stores them in the
// resource caches and passes them back for binding and disposal. All methods
// run on the frame's single logical thread.
type Backend interface {
	// Name identifies the backend ("wgpu" or "gl") for diagnostics.
	Name() string

	// ClipZeroToOne reports the backend's clip-space z convention: true for
	// [0, 1], false for [-1, 1].
	ClipZeroToOne() bool

	// Configure sizes (or resizes) the default surface. Must succeed before
	// a frame can target the default surface.
	//
	// Parameters:
	//   - width: surface width in pixels
	//   - height: surface height in pixels
	//
	// Returns:
	//   - error: error if the surface cannot be configured
	Configure(width, height int) error

	// CreateBuffer allocates a GPU buffer initialized with data.
	CreateBuffer(kind BufferKind, data []byte) (any, error)

	// WriteBuffer rewrites an existing buffer in place. The data length must
	// not exceed the original allocation.
	WriteBuffer(handle any, data []byte) error

	// DisposeBuffer releases a buffer handle.
	DisposeBuffer(handle any)

	// CompileProgram compiles and links the program for a descriptor.
	// Failures return a *CompileError carrying the offending stage's source.
	CompileProgram(desc ProgramDesc) (any, error)

	// DisposeProgram releases a compiled program.
	DisposeProgram(handle any)

	// CreatePipeline builds the backend pipeline for a program under a fixed
	// state tuple.
	CreatePipeline(program any, state pipeline.State) (any, error)

	// DisposePipeline releases a pipeline handle.
	DisposePipeline(handle any)

	// CreateGeometryBinding assembles the vertex input object binding
	// attribute buffers (one per layout entry, in order) and an optional
	// index buffer.
	CreateGeometryBinding(layout []pipeline.VertexAttribute, buffers []any, index any) (any, error)

	// DisposeGeometryBinding releases a geometry binding.
	DisposeGeometryBinding(handle any)

	// CreateTexture allocates and fills a sampled 2D RGBA texture.
	CreateTexture(pixels []byte, width, height uint32, sampler texture.SamplerConfig) (any, error)

	// WriteTexture rewrites an existing texture's pixels in place (same
	// dimensions).
	WriteTexture(handle any, pixels []byte, width, height uint32) error

	// DisposeTexture releases a texture handle.
	DisposeTexture(handle any)

	// CreateTarget allocates an offscreen target: one color attachment per
	// sampler configuration plus an implicit depth/stencil attachment.
	CreateTarget(width, height int, attachments []texture.SamplerConfig) (any, error)

	// DisposeTarget releases a target handle.
	DisposeTarget(handle any)

	// BeginFrame opens the frame's command encoding against an offscreen
	// target handle, or the default surface when target is nil.
	BeginFrame(target any) error

	// Clear clears color, depth and stencil jointly.
	Clear(color [4]float32, depth float32, stencil uint32)

	// BindPipeline makes a compiled pipeline (and its program) current.
	BindPipeline(pipelineHandle, program any)

	// BindUniforms binds the packed uniform buffer and the drawable's
	// texture bindings to the current program.
	BindUniforms(program any, uniformBuffer any, textures []TextureBinding)

	// BindGeometry makes a geometry binding current.
	BindGeometry(binding any)

	// Draw issues the draw call for the current bindings.
	//
	// Parameters:
	//   - indexed: true to draw elements, false to draw arrays
	//   - count: vertices or indices to draw
	//   - instances: instance count (1 for non-instanced)
	//   - start: first vertex or index
	Draw(indexed bool, count, instances, start int)

	// EndFrame finishes encoding, submits the command batch and presents
	// when targeting the default surface.
	EndFrame() error

	// Dispatch issues one compute dispatch outside the per-frame loop.
	// Backends without compute support return a *StateError.
	Dispatch(program any, uniformBuffer any, workgroups [3]uint32) error

	// Dispose releases backend-owned state (device, surface, queue).
	Dispose()
}
