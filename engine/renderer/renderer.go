// Package renderer contains the frame orchestrator, the visibility planner,
// the backend contract and the two GPU backend implementations. A renderer is
// constructed from an explicitly acquired Device and drives one frame at a
// time through a fixed state machine.
package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kestrel3d/kestrel/common"
	"github.com/kestrel3d/kestrel/engine/camera"
	"github.com/kestrel3d/kestrel/engine/geometry"
	"github.com/kestrel3d/kestrel/engine/material"
	"github.com/kestrel3d/kestrel/engine/node"
	"github.com/kestrel3d/kestrel/engine/renderer/cache"
	"github.com/kestrel3d/kestrel/engine/renderer/pipeline"
	"github.com/kestrel3d/kestrel/engine/renderer/uniform"
	"github.com/kestrel3d/kestrel/engine/target"
)

// errTextureNotReady marks a drawable whose texture source has not delivered
// pixels yet. Absorbed silently; the drawable is retried on a later frame.
var errTextureNotReady = errors.New("texture source not ready")

// FrameStats exposes per-frame diagnostics.
type FrameStats struct {
	// Frame counts submitted frames.
	Frame uint64

	// DrawCalls counts draws issued in the last frame.
	DrawCalls int

	// Culled counts drawables rejected by the frustum test in the last
	// frame.
	Culled int

	// Skipped counts drawables skipped in the last frame (compile errors,
	// schema mismatches, unready textures).
	Skipped int

	// Compiles counts program and pipeline compilations over the renderer's
	// lifetime.
	Compiles int
}

// Renderer draws a scene hierarchy through its device's backend.
type Renderer interface {
	// SetSize configures the default surface dimensions. Must succeed
	// before rendering to the default surface.
	//
	// Parameters:
	//   - width: surface width in pixels
	//   - height: surface height in pixels
	//
	// Returns:
	//   - error: error if the backend cannot configure the surface
	SetSize(width, height int) error

	// SetRenderTarget selects an offscreen target for subsequent frames, or
	// restores the default surface when nil.
	//
	// Parameters:
	//   - t: the render target or nil
	SetRenderTarget(t target.RenderTarget)

	// Render draws one frame of the scene. Per-drawable failures (shader
	// compile errors, schema mismatches, unready textures) skip that
	// drawable only; allocation failures propagate after the frame is
	// submitted. A render with no bound surface or target is rejected with
	// a *StateError before any GPU work.
	//
	// Parameters:
	//   - root: the scene root
	//   - cam: the camera, or nil to draw without culling or depth ordering
	//
	// Returns:
	//   - error: *StateError, *AllocationError or a backend frame error
	Render(root node.Node, cam camera.Camera) error

	// Compute issues one dispatch for a compute-capable material, outside
	// the per-frame loop. Rejected with a *StateError when the drawable
	// lacks a compute stage, a frame is in flight, or the backend cannot
	// dispatch.
	//
	// Parameters:
	//   - drawable: the node carrying the compute material
	//
	// Returns:
	//   - error: *StateError, *CompileError or *AllocationError
	Compute(drawable node.Node) error

	// Stats returns the diagnostics from the most recent frame.
	//
	// Returns:
	//   - FrameStats: the counters
	Stats() FrameStats

	// Dispose releases renderer-owned GPU state (compiled programs and the
	// pipeline cache). Resource handles owned by scene objects are released
	// through their own disposal; the device stays with its owner.
	Dispose()
}

// bindingEntry tracks a geometry binding together with the buffer identities
// it was assembled from, so a resized attribute view rebuilds the binding.
type bindingEntry struct {
	handle any
	key    string
}

// programEntry is one compiled program, shared by every material with the
// same source pair. The identity keys the pipeline cache, keeping pipeline
// keys short regardless of shader length.
type programEntry struct {
	handle any
	id     uint64
}

type engineRenderer struct {
	mu      *sync.Mutex
	device  Device
	b       Backend
	machine frameMachine

	width        int
	height       int
	surfaceReady bool

	currentTarget target.RenderTarget

	autoClear   bool
	clearColor  [4]float32
	sampleCount int

	programs        map[string]*programEntry
	computePrograms map[string]*programEntry
	uniformBufs     *cache.Cache[any]
	computeBufs     *cache.Cache[any]
	packers         *cache.Cache[*uniform.Packer]
	computePackers  *cache.Cache[*uniform.Packer]
	buffers         *cache.Cache[any]
	indexBufs       *cache.Cache[any]
	textures        *cache.Cache[any]
	targets         map[uint64]any
	bindings        map[uint64]*bindingEntry
	pipelines       *pipeline.Cache
	schemas         *uniform.SchemaCache

	stats FrameStats
}

var _ Renderer = &engineRenderer{}

// NewRenderer creates a renderer over an acquired device.
//
// Parameters:
//   - device: the owned device from AcquireDevice
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the configured renderer
func NewRenderer(device Device, options ...RendererBuilderOption) Renderer {
	if device == nil {
		panic("renderer: device must not be nil")
	}
	r := &engineRenderer{
		mu:              &sync.Mutex{},
		device:          device,
		b:               device.backend(),
		autoClear:       true,
		clearColor:      [4]float32{0, 0, 0, 1},
		sampleCount:     1,
		programs:        make(map[string]*programEntry),
		computePrograms: make(map[string]*programEntry),
		uniformBufs:     cache.New[any](),
		computeBufs:     cache.New[any](),
		packers:         cache.New[*uniform.Packer](),
		computePackers:  cache.New[*uniform.Packer](),
		buffers:         cache.New[any](),
		indexBufs:       cache.New[any](),
		textures:        cache.New[any](),
		targets:         make(map[uint64]any),
		bindings:        make(map[uint64]*bindingEntry),
		pipelines:       pipeline.NewCache(),
		schemas:         uniform.NewSchemaCache(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *engineRenderer) SetSize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.b.Configure(width, height); err != nil {
		return fmt.Errorf("failed to configure surface: %w", err)
	}
	r.width = width
	r.height = height
	r.surfaceReady = true
	common.Logger().Info("surface configured", "backend", r.b.Name(), "width", width, "height", height)
	return nil
}

func (r *engineRenderer) SetRenderTarget(t target.RenderTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentTarget = t
}

func (r *engineRenderer) Render(root node.Node, cam camera.Camera) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if root == nil {
		return &StateError{Op: "render", Reason: "scene root is nil"}
	}
	if r.currentTarget == nil && !r.surfaceReady {
		return &StateError{Op: "render", Reason: "no bound surface or render target"}
	}

	var targetHandle any
	attachmentCount := 1
	if r.currentTarget != nil {
		h, err := r.ensureTarget(r.currentTarget)
		if err != nil {
			return err
		}
		targetHandle = h
		attachmentCount = len(r.currentTarget.Attachments())
	}

	root.UpdateWorld()
	if cam != nil {
		cam.UpdateWorld()
	}

	if err := r.machine.transition(frameTargetBound); err != nil {
		return err
	}
	if err := r.b.BeginFrame(targetHandle); err != nil {
		r.machine.reset()
		return fmt.Errorf("failed to begin frame: %w", err)
	}

	if r.autoClear {
		if err := r.machine.transition(frameCleared); err != nil {
			return err
		}
		r.b.Clear(r.clearColor, 1.0, 0)
	}
	if err := r.machine.transition(frameTraversing); err != nil {
		return err
	}

	items, culled := plan(root, cam, r.b.ClipZeroToOne())
	r.stats.DrawCalls = 0
	r.stats.Skipped = 0
	r.stats.Culled = culled

	// Allocation failures abort the drawable loop, but the frame still
	// reaches submission; the error propagates afterward.
	var frameErr error
	for _, it := range items {
		err := r.drawOne(it, cam, attachmentCount)
		switch {
		case err == nil:
		case errors.Is(err, errTextureNotReady):
			r.stats.Skipped++
			common.Logger().Debug("drawable deferred", "node", it.node.Name(), "reason", "texture not ready")
		case isDrawableError(err):
			r.stats.Skipped++
			common.Logger().Warn("drawable skipped", "node", it.node.Name(), "error", err)
		default:
			frameErr = err
		}
		if frameErr != nil {
			break
		}
	}

	if err := r.machine.transition(frameSubmitted); err != nil {
		return err
	}
	if err := r.b.EndFrame(); err != nil && frameErr == nil {
		frameErr = fmt.Errorf("failed to submit frame: %w", err)
	}
	if err := r.machine.transition(frameIdle); err != nil {
		return err
	}
	r.stats.Frame++
	return frameErr
}

// isDrawableError reports whether an error is fatal for one drawable only
// (compile and uniform schema failures) rather than for the frame.
func isDrawableError(err error) bool {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return true
	}
	var schemaErr *uniform.SchemaMismatchError
	return errors.As(err, &schemaErr)
}

// drawOne runs the fixed per-drawable sequence: compile (program, uniforms,
// pipeline), then apply state, bind resources and draw.
func (r *engineRenderer) drawOne(it plannedDrawable, cam camera.Camera, attachmentCount int) error {
	n := it.node
	mat := n.Material()
	geom := n.Geometry()

	schema, err := r.schemas.Lookup(mat.VertexSource(), mat.FragmentSource())
	if err != nil {
		return err
	}

	texBindings, err := r.ensureTextures(mat, schema)
	if err != nil {
		return err
	}

	// Programs are keyed by the source pair, so byte-identical shaders on
	// distinct material instances compile once.
	progKey := mat.VertexSource() + "\x00" + mat.FragmentSource()
	entry, ok := r.programs[progKey]
	if !ok {
		compiled, err := r.b.CompileProgram(ProgramDesc{
			VertexSrc:   mat.VertexSource(),
			FragmentSrc: mat.FragmentSource(),
		})
		if err != nil {
			return err
		}
		entry = &programEntry{handle: compiled, id: cache.NewID()}
		r.programs[progKey] = entry
		r.stats.Compiles++
	}
	prog := entry.handle

	ubuf, err := r.ensureUniforms(mat, schema, n, cam, r.packers, r.uniformBufs)
	if err != nil {
		return err
	}

	layout, vertexBuffers, indexBuf, bindingKey, err := r.ensureGeometry(geom)
	if err != nil {
		return err
	}

	binding, err := r.ensureBinding(geom, layout, vertexBuffers, indexBuf, bindingKey)
	if err != nil {
		return err
	}

	state := r.buildState(mat, layout, attachmentCount)
	pipeKey := fmt.Sprintf("%d|%s", entry.id, state.Key())
	pipe, ok := r.pipelines.Get(pipeKey)
	if !ok {
		pipe, err = r.b.CreatePipeline(prog, state)
		if err != nil {
			return err
		}
		r.pipelines.Set(pipeKey, pipe)
		r.stats.Compiles++
		common.Logger().Debug("pipeline compiled", "key", pipeKey)
	}

	if err := r.machine.transition(frameCompiled); err != nil {
		return err
	}
	if err := r.machine.transition(frameStateApplied); err != nil {
		return err
	}
	r.b.BindPipeline(pipe, prog)
	r.b.BindUniforms(prog, ubuf, texBindings)
	r.b.BindGeometry(binding)

	indexed := geom.Index() != nil
	total := 0
	if indexed {
		total = geom.Index().Count()
	} else if pos, found := firstVertexView(geom); found {
		total = pos.Count()
	}
	start, count := geom.DrawRange()
	if count < 0 || start+count > total {
		count = total - start
	}
	r.b.Draw(indexed, count, instanceCount(geom), start)

	if err := r.machine.transition(frameDrawn); err != nil {
		return err
	}
	r.stats.DrawCalls++
	return nil
}

// buildState assembles the pipeline state tuple for a material under the
// current target configuration.
func (r *engineRenderer) buildState(mat material.Material, layout []pipeline.VertexAttribute, attachmentCount int) pipeline.State {
	depthCompare := pipeline.CompareAlways
	if mat.DepthTest() {
		depthCompare = pipeline.CompareLess
	}
	blend := pipeline.BlendState{}
	if mat.Transparent() {
		blend = mat.Blend()
	}
	// Offscreen targets are single-sampled; only the default surface carries
	// the configured MSAA count.
	sampleCount := r.sampleCount
	if r.currentTarget != nil {
		sampleCount = 1
	}
	return pipeline.State{
		Transparent:     mat.Transparent(),
		CullMode:        mat.Side().CullMode(),
		Topology:        mat.Topology(),
		DepthWrite:      mat.DepthWrite(),
		DepthCompare:    depthCompare,
		Layout:          layout,
		Blend:           blend,
		AttachmentCount: attachmentCount,
		SampleCount:     sampleCount,
	}
}

// ensureTextures uploads every texture member's pixels and returns the
// bindings. An unready texture defers the whole drawable.
func (r *engineRenderer) ensureTextures(mat material.Material, schema *uniform.Schema) ([]TextureBinding, error) {
	var bindings []TextureBinding
	for _, m := range schema.Members {
		if m.Kind != uniform.KindTexture {
			continue
		}
		v, ok := mat.Uniform(m.Name)
		if !ok || v.Kind() != uniform.KindTexture || v.Texture() == nil {
			common.Logger().Warn("texture uniform unset", "member", m.Name)
			continue
		}
		tex := v.Texture()
		if !tex.Ready() {
			return nil, errTextureNotReady
		}

		handle, cached := r.textures.Get(tex)
		if !cached {
			pixels, w, h := tex.Pixels()
			created, err := r.b.CreateTexture(pixels, w, h, tex.Sampler())
			if err != nil {
				return nil, &AllocationError{Resource: "texture", Err: err}
			}
			r.textures.Set(tex, created, r.b.DisposeTexture)
			tex.MarkUploaded()
			handle = created
		} else if tex.NeedsUpload() {
			pixels, w, h := tex.Pixels()
			if err := r.b.WriteTexture(handle, pixels, w, h); err != nil {
				return nil, &AllocationError{Resource: "texture", Err: err}
			}
			tex.MarkUploaded()
		}
		bindings = append(bindings, TextureBinding{Name: m.Name, Handle: handle})
	}
	return bindings, nil
}

// ensureUniforms packs the drawable's uniform values and creates or rewrites
// the backing GPU buffer. The packed CPU buffer and the GPU buffer share one
// lifetime, keyed by the material.
func (r *engineRenderer) ensureUniforms(mat material.Material, schema *uniform.Schema, n node.Node, cam camera.Camera, packers *cache.Cache[*uniform.Packer], bufs *cache.Cache[any]) (any, error) {
	packer, ok := packers.Get(mat)
	if !ok {
		packer = uniform.NewPacker(schema)
		packers.Set(mat, packer, nil)
	}

	packed := packer.Pack(r.uniformResolver(mat, n, cam))
	data := common.SliceToBytes(packed)

	handle, ok := bufs.Get(mat)
	if !ok {
		created, err := r.b.CreateBuffer(BufferUniform, data)
		if err != nil {
			return nil, &AllocationError{Resource: "buffer", Err: err}
		}
		bufs.Set(mat, created, r.b.DisposeBuffer)
		return created, nil
	}
	if err := r.b.WriteBuffer(handle, data); err != nil {
		return nil, &AllocationError{Resource: "buffer", Err: err}
	}
	return handle, nil
}

// uniformResolver resolves engine-supplied matrix uniforms first, then the
// material's own values. The projection is converted per resolve on
// zero-to-one backends.
func (r *engineRenderer) uniformResolver(mat material.Material, n node.Node, cam camera.Camera) func(string) (uniform.Value, bool) {
	return func(name string) (uniform.Value, bool) {
		switch name {
		case "model":
			return uniform.Mat4(n.World()), true
		case "view":
			if cam != nil {
				return uniform.Mat4(cam.View()), true
			}
		case "projection":
			if cam != nil {
				return uniform.Mat4(r.clipProjection(cam.Projection())), true
			}
		case "viewProjection":
			if cam != nil {
				return uniform.Mat4(r.clipProjection(cam.Projection()).Mul4(cam.View())), true
			}
		}
		return mat.Uniform(name)
	}
}

func (r *engineRenderer) clipProjection(p mgl32.Mat4) mgl32.Mat4 {
	if r.b.ClipZeroToOne() {
		return common.ZeroToOneProjection(p)
	}
	return p
}

// ensureGeometry uploads dirty or missing attribute and index buffers and
// derives the vertex layout. The binding key captures the buffer identities
// so a resized view rebuilds the geometry binding.
func (r *engineRenderer) ensureGeometry(geom geometry.Geometry) ([]pipeline.VertexAttribute, []any, any, string, error) {
	names := geom.AttributeNames()
	layout := make([]pipeline.VertexAttribute, 0, len(names))
	buffers := make([]any, 0, len(names))
	key := ""

	for _, name := range names {
		view, ok := geom.Attribute(name)
		if !ok {
			continue
		}
		handle, cached := r.buffers.Get(view)
		if !cached {
			created, err := r.b.CreateBuffer(BufferVertex, common.SliceToBytes(view.Data()))
			if err != nil {
				return nil, nil, nil, "", &AllocationError{Resource: "buffer", Err: err}
			}
			r.buffers.Set(view, created, r.b.DisposeBuffer)
			view.MarkUploaded()
			handle = created
		} else if view.NeedsUpload() {
			if err := r.b.WriteBuffer(handle, common.SliceToBytes(view.Data())); err != nil {
				return nil, nil, nil, "", &AllocationError{Resource: "buffer", Err: err}
			}
			view.MarkUploaded()
		}

		layout = append(layout, pipeline.VertexAttribute{
			Name:    name,
			Format:  attributeFormat(view.ItemSize()),
			Stride:  view.Stride(),
			Divisor: view.Divisor(),
		})
		buffers = append(buffers, handle)
		key += fmt.Sprintf("%d|", view.ResourceID())
	}

	var indexHandle any
	if idx := geom.Index(); idx != nil {
		handle, cached := r.indexBufs.Get(idx)
		if !cached {
			created, err := r.b.CreateBuffer(BufferIndex, common.SliceToBytes(idx.Data()))
			if err != nil {
				return nil, nil, nil, "", &AllocationError{Resource: "buffer", Err: err}
			}
			r.indexBufs.Set(idx, created, r.b.DisposeBuffer)
			idx.MarkUploaded()
			handle = created
		} else if idx.NeedsUpload() {
			if err := r.b.WriteBuffer(handle, common.SliceToBytes(idx.Data())); err != nil {
				return nil, nil, nil, "", &AllocationError{Resource: "buffer", Err: err}
			}
			idx.MarkUploaded()
		}
		indexHandle = handle
		key += fmt.Sprintf("i%d", idx.ResourceID())
	}

	return layout, buffers, indexHandle, key, nil
}

// ensureBinding creates or rebuilds the geometry binding when its underlying
// buffer identities change.
func (r *engineRenderer) ensureBinding(geom geometry.Geometry, layout []pipeline.VertexAttribute, buffers []any, index any, key string) (any, error) {
	id := geom.ResourceID()
	entry := r.bindings[id]
	if entry != nil && entry.key == key {
		return entry.handle, nil
	}

	handle, err := r.b.CreateGeometryBinding(layout, buffers, index)
	if err != nil {
		return nil, &AllocationError{Resource: "geometry binding", Err: err}
	}

	if entry != nil {
		r.b.DisposeGeometryBinding(entry.handle)
		entry.handle = handle
		entry.key = key
		return handle, nil
	}

	r.bindings[id] = &bindingEntry{handle: handle, key: key}
	geom.OnDispose(func() {
		if e, ok := r.bindings[id]; ok {
			r.b.DisposeGeometryBinding(e.handle)
			delete(r.bindings, id)
		}
	})
	return handle, nil
}

// ensureTarget reallocates a dirty offscreen target and returns its handle.
// Targets keep their identity across resizes, so the handle is replaced in
// place under a single disposal registration.
func (r *engineRenderer) ensureTarget(t target.RenderTarget) (any, error) {
	id := t.ResourceID()
	handle, ok := r.targets[id]
	if ok && !t.NeedsRebuild() {
		return handle, nil
	}
	if ok {
		r.b.DisposeTarget(handle)
	}

	w, h := t.Size()
	created, err := r.b.CreateTarget(w, h, t.Attachments())
	if err != nil {
		delete(r.targets, id)
		return nil, &AllocationError{Resource: "target", Err: err}
	}
	if !ok {
		t.OnDispose(func() {
			if h, live := r.targets[id]; live {
				r.b.DisposeTarget(h)
				delete(r.targets, id)
			}
		})
	}
	r.targets[id] = created
	t.MarkRebuilt()
	return created, nil
}

func (r *engineRenderer) Compute(drawable node.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if drawable == nil || drawable.Material() == nil {
		return &StateError{Op: "compute", Reason: "drawable has no material"}
	}
	mat := drawable.Material()
	if !mat.HasComputeStage() {
		return &StateError{Op: "compute", Reason: "material lacks a compute stage"}
	}
	if r.machine.current() != frameIdle {
		return &StateError{Op: "compute", Reason: "a frame is in flight"}
	}

	schema, err := r.schemas.Lookup(mat.ComputeSource(), "")
	if err != nil {
		return err
	}

	entry, ok := r.computePrograms[mat.ComputeSource()]
	if !ok {
		compiled, err := r.b.CompileProgram(ProgramDesc{ComputeSrc: mat.ComputeSource()})
		if err != nil {
			return err
		}
		entry = &programEntry{handle: compiled, id: cache.NewID()}
		r.computePrograms[mat.ComputeSource()] = entry
		r.stats.Compiles++
	}

	ubuf, err := r.ensureUniforms(mat, schema, drawable, nil, r.computePackers, r.computeBufs)
	if err != nil {
		return err
	}

	return r.b.Dispatch(entry.handle, ubuf, mat.Workgroups())
}

func (r *engineRenderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *engineRenderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelines.Purge(r.b.DisposePipeline)
	for key, entry := range r.programs {
		r.b.DisposeProgram(entry.handle)
		delete(r.programs, key)
	}
	for key, entry := range r.computePrograms {
		r.b.DisposeProgram(entry.handle)
		delete(r.computePrograms, key)
	}
}

// firstVertexView returns the first per-vertex (divisor 0) attribute view,
// which defines the non-indexed vertex count.
func firstVertexView(geom geometry.Geometry) (*geometry.BufferView, bool) {
	for _, name := range geom.AttributeNames() {
		if view, ok := geom.Attribute(name); ok && view.Divisor() == 0 {
			return view, true
		}
	}
	return nil, false
}

// instanceCount derives the instance count from the first instanced view: a
// view of N items advancing every d instances covers N*d instances.
func instanceCount(geom geometry.Geometry) int {
	for _, name := range geom.AttributeNames() {
		if view, ok := geom.Attribute(name); ok && view.Divisor() > 0 {
			return view.Count() * view.Divisor()
		}
	}
	return 1
}

func attributeFormat(itemSize int) pipeline.AttributeFormat {
	switch itemSize {
	case 1:
		return pipeline.FormatFloat32
	case 2:
		return pipeline.FormatFloat32x2
	case 3:
		return pipeline.FormatFloat32x3
	default:
		return pipeline.FormatFloat32x4
	}
}
