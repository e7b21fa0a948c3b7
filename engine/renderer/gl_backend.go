package renderer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/kestrel3d/kestrel/engine/renderer/pipeline"
	"github.com/kestrel3d/kestrel/engine/texture"
)

type glBuffer struct {
	id     uint32
	target uint32
	size   int
}

type glProgram struct {
	id uint32
}

// glPipeline carries the state tuple; GL has no pipeline objects, so the
// state is replayed onto the context at bind time.
type glPipeline struct {
	state pipeline.State
}

type glBinding struct {
	vao uint32
}

type glTexture struct {
	id uint32
}

type glTarget struct {
	fbo    uint32
	colors []uint32
	depth  uint32
}

type glBackend struct {
	mu *sync.Mutex

	width  int
	height int

	currentProgram  uint32
	currentTopology uint32
}

var _ Backend = &glBackend{}

// newGLBackend binds to the calling goroutine's current OpenGL context. The
// caller must have made a 4.1 core context current (through the window
// package) before acquisition.
func newGLBackend(width, height int) (Backend, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize gl: %w", err)
	}
	b := &glBackend{
		mu:     &sync.Mutex{},
		width:  width,
		height: height,
	}
	gl.Viewport(0, 0, int32(width), int32(height))
	return b, nil
}

func (b *glBackend) Name() string { return "gl" }

func (b *glBackend) ClipZeroToOne() bool { return false }

func (b *glBackend) Configure(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width = width
	b.height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	return nil
}

func (b *glBackend) CreateBuffer(kind BufferKind, data []byte) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var target uint32
	switch kind {
	case BufferIndex:
		target = gl.ELEMENT_ARRAY_BUFFER
	case BufferUniform:
		target = gl.UNIFORM_BUFFER
	default:
		target = gl.ARRAY_BUFFER
	}

	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(target, id)
	size := len(data)
	if size == 0 {
		size = 16
	}
	if len(data) > 0 {
		gl.BufferData(target, size, gl.Ptr(data), gl.DYNAMIC_DRAW)
	} else {
		gl.BufferData(target, size, nil, gl.DYNAMIC_DRAW)
	}
	gl.BindBuffer(target, 0)
	return &glBuffer{id: id, target: target, size: size}, nil
}

func (b *glBackend) WriteBuffer(handle any, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := handle.(*glBuffer)
	if len(data) > buf.size {
		return fmt.Errorf("write of %d bytes exceeds buffer allocation of %d", len(data), buf.size)
	}
	gl.BindBuffer(buf.target, buf.id)
	gl.BufferSubData(buf.target, 0, len(data), gl.Ptr(data))
	gl.BindBuffer(buf.target, 0)
	return nil
}

func (b *glBackend) DisposeBuffer(handle any) {
	buf := handle.(*glBuffer)
	gl.DeleteBuffers(1, &buf.id)
}

func (b *glBackend) CompileProgram(desc ProgramDesc) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if desc.ComputeSrc != "" {
		return nil, &StateError{Op: "compute", Reason: "gl backend does not support compute dispatch"}
	}

	vs, err := compileShader(gl.VERTEX_SHADER, desc.VertexSrc)
	if err != nil {
		return nil, &CompileError{Stage: "vertex", Source: desc.VertexSrc, Diagnostic: err.Error()}
	}
	fs, err := compileShader(gl.FRAGMENT_SHADER, desc.FragmentSrc)
	if err != nil {
		gl.DeleteShader(vs)
		return nil, &CompileError{Stage: "fragment", Source: desc.FragmentSrc, Diagnostic: err.Error()}
	}

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vs)
	gl.AttachShader(prog, fs)
	gl.LinkProgram(prog)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		log := programInfoLog(prog)
		gl.DeleteProgram(prog)
		return nil, &CompileError{Stage: "link", Diagnostic: log}
	}

	// The packed uniform buffer feeds uniform block 0 through binding point 0.
	var blocks int32
	gl.GetProgramiv(prog, gl.ACTIVE_UNIFORM_BLOCKS, &blocks)
	if blocks > 0 {
		gl.UniformBlockBinding(prog, 0, 0)
	}
	return &glProgram{id: prog}, nil
}

func compileShader(xtype uint32, source string) (uint32, error) {
	shader := gl.CreateShader(xtype)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func programInfoLog(prog uint32) string {
	var logLength int32
	gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLength)
	log := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(prog, logLength, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

func (b *glBackend) DisposeProgram(handle any) {
	gl.DeleteProgram(handle.(*glProgram).id)
}

func (b *glBackend) CreatePipeline(program any, state pipeline.State) (any, error) {
	return &glPipeline{state: state}, nil
}

func (b *glBackend) DisposePipeline(handle any) {
	// Pipeline state is replayed onto the context; nothing to release.
}

func (b *glBackend) CreateGeometryBinding(layout []pipeline.VertexAttribute, buffers []any, index any) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	// Attribute locations follow layout order; shaders declare
	// layout(location = N) to match.
	for i, a := range layout {
		buf := buffers[i].(*glBuffer)
		gl.BindBuffer(gl.ARRAY_BUFFER, buf.id)
		gl.EnableVertexAttribArray(uint32(i))
		gl.VertexAttribPointer(uint32(i), int32(a.Format.Components()), gl.FLOAT, false, int32(a.Stride), gl.PtrOffset(0))
		gl.VertexAttribDivisor(uint32(i), uint32(a.Divisor))
	}
	if index != nil {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, index.(*glBuffer).id)
	}
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return &glBinding{vao: vao}, nil
}

func (b *glBackend) DisposeGeometryBinding(handle any) {
	binding := handle.(*glBinding)
	gl.DeleteVertexArrays(1, &binding.vao)
}

func (b *glBackend) CreateTexture(pixels []byte, width, height uint32, sampler texture.SamplerConfig) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter(sampler.MagFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter(sampler.MinFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, glWrap(sampler.WrapS))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, glWrap(sampler.WrapT))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return &glTexture{id: id}, nil
}

func (b *glBackend) WriteTexture(handle any, pixels []byte, width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := handle.(*glTexture)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

func (b *glBackend) DisposeTexture(handle any) {
	t := handle.(*glTexture)
	gl.DeleteTextures(1, &t.id)
}

func (b *glBackend) CreateTarget(width, height int, attachments []texture.SamplerConfig) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := &glTarget{}
	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)

	drawBuffers := make([]uint32, len(attachments))
	for i, sampler := range attachments {
		var id uint32
		gl.GenTextures(1, &id)
		gl.BindTexture(gl.TEXTURE_2D, id)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter(sampler.MagFilter))
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter(sampler.MinFilter))
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, glWrap(sampler.WrapS))
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, glWrap(sampler.WrapT))
		attachment := uint32(gl.COLOR_ATTACHMENT0 + i)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachment, gl.TEXTURE_2D, id, 0)
		t.colors = append(t.colors, id)
		drawBuffers[i] = attachment
	}
	gl.DrawBuffers(int32(len(drawBuffers)), &drawBuffers[0])

	gl.GenRenderbuffers(1, &t.depth)
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.depth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, int32(width), int32(height))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, t.depth)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		b.releaseTarget(t)
		return nil, fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}
	return t, nil
}

func (b *glBackend) releaseTarget(t *glTarget) {
	for _, id := range t.colors {
		tex := id
		gl.DeleteTextures(1, &tex)
	}
	if t.depth != 0 {
		gl.DeleteRenderbuffers(1, &t.depth)
	}
	if t.fbo != 0 {
		gl.DeleteFramebuffers(1, &t.fbo)
	}
}

func (b *glBackend) DisposeTarget(handle any) {
	b.releaseTarget(handle.(*glTarget))
}

func (b *glBackend) BeginFrame(target any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if target != nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, target.(*glTarget).fbo)
	} else {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	}
	return nil
}

func (b *glBackend) Clear(color [4]float32, depth float32, stencil uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	gl.ClearColor(color[0], color[1], color[2], color[3])
	gl.ClearDepth(float64(depth))
	gl.ClearStencil(int32(stencil))
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT | gl.STENCIL_BUFFER_BIT)
}

func (b *glBackend) BindPipeline(pipelineHandle, program any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := pipelineHandle.(*glPipeline).state
	prog := program.(*glProgram)
	gl.UseProgram(prog.id)
	b.currentProgram = prog.id
	b.currentTopology = glTopology(state.Topology)

	// Writing depth requires the test enabled even under CompareAlways.
	if state.DepthCompare == pipeline.CompareAlways && !state.DepthWrite {
		gl.Disable(gl.DEPTH_TEST)
	} else {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(glCompare(state.DepthCompare))
	}
	gl.DepthMask(state.DepthWrite)

	switch state.CullMode {
	case pipeline.CullNone:
		gl.Disable(gl.CULL_FACE)
	case pipeline.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	case pipeline.CullBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}

	if state.Transparent {
		gl.Enable(gl.BLEND)
		gl.BlendEquationSeparate(glBlendOp(state.Blend.Color.Op), glBlendOp(state.Blend.Alpha.Op))
		gl.BlendFuncSeparate(
			glBlendFactor(state.Blend.Color.Src), glBlendFactor(state.Blend.Color.Dst),
			glBlendFactor(state.Blend.Alpha.Src), glBlendFactor(state.Blend.Alpha.Dst),
		)
	} else {
		gl.Disable(gl.BLEND)
	}
}

func (b *glBackend) BindUniforms(program any, uniformBuffer any, textures []TextureBinding) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prog := program.(*glProgram)
	if uniformBuffer != nil {
		gl.BindBufferBase(gl.UNIFORM_BUFFER, 0, uniformBuffer.(*glBuffer).id)
	}
	for i, t := range textures {
		gl.ActiveTexture(uint32(gl.TEXTURE0 + i))
		gl.BindTexture(gl.TEXTURE_2D, t.Handle.(*glTexture).id)
		location := gl.GetUniformLocation(prog.id, gl.Str(t.Name+"\x00"))
		if location >= 0 {
			gl.Uniform1i(location, int32(i))
		}
	}
}

func (b *glBackend) BindGeometry(binding any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	gl.BindVertexArray(binding.(*glBinding).vao)
}

func (b *glBackend) Draw(indexed bool, count, instances, start int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if indexed {
		gl.DrawElementsInstanced(b.currentTopology, int32(count), gl.UNSIGNED_INT, gl.PtrOffset(start*4), int32(instances))
	} else {
		gl.DrawArraysInstanced(b.currentTopology, int32(start), int32(count), int32(instances))
	}
}

func (b *glBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	gl.BindVertexArray(0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Flush()
	return nil
}

func (b *glBackend) Dispatch(program any, uniformBuffer any, workgroups [3]uint32) error {
	return &StateError{Op: "compute", Reason: "gl backend does not support compute dispatch"}
}

func (b *glBackend) Dispose() {
	// The context belongs to the window; per-resource handles are released
	// through their own disposers.
}

func glFilter(f texture.FilterMode) int32 {
	if f == texture.FilterNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func glWrap(w texture.WrapMode) int32 {
	switch w {
	case texture.WrapRepeat:
		return gl.REPEAT
	case texture.WrapMirrorRepeat:
		return gl.MIRRORED_REPEAT
	default:
		return gl.CLAMP_TO_EDGE
	}
}

func glTopology(t pipeline.Topology) uint32 {
	switch t {
	case pipeline.TopologyTriangleStrip:
		return gl.TRIANGLE_STRIP
	case pipeline.TopologyLines:
		return gl.LINES
	case pipeline.TopologyLineStrip:
		return gl.LINE_STRIP
	case pipeline.TopologyPoints:
		return gl.POINTS
	default:
		return gl.TRIANGLES
	}
}

func glCompare(f pipeline.CompareFunc) uint32 {
	switch f {
	case pipeline.CompareNever:
		return gl.NEVER
	case pipeline.CompareLess:
		return gl.LESS
	case pipeline.CompareEqual:
		return gl.EQUAL
	case pipeline.CompareLessEqual:
		return gl.LEQUAL
	case pipeline.CompareGreater:
		return gl.GREATER
	case pipeline.CompareNotEqual:
		return gl.NOTEQUAL
	case pipeline.CompareGreaterEqual:
		return gl.GEQUAL
	default:
		return gl.ALWAYS
	}
}

func glBlendOp(op pipeline.BlendOp) uint32 {
	switch op {
	case pipeline.BlendOpSubtract:
		return gl.FUNC_SUBTRACT
	case pipeline.BlendOpReverseSubtract:
		return gl.FUNC_REVERSE_SUBTRACT
	case pipeline.BlendOpMin:
		return gl.MIN
	case pipeline.BlendOpMax:
		return gl.MAX
	default:
		return gl.FUNC_ADD
	}
}

func glBlendFactor(f pipeline.BlendFactor) uint32 {
	switch f {
	case pipeline.BlendZero:
		return gl.ZERO
	case pipeline.BlendSrcColor:
		return gl.SRC_COLOR
	case pipeline.BlendOneMinusSrcColor:
		return gl.ONE_MINUS_SRC_COLOR
	case pipeline.BlendSrcAlpha:
		return gl.SRC_ALPHA
	case pipeline.BlendOneMinusSrcAlpha:
		return gl.ONE_MINUS_SRC_ALPHA
	case pipeline.BlendDstColor:
		return gl.DST_COLOR
	case pipeline.BlendOneMinusDstColor:
		return gl.ONE_MINUS_DST_COLOR
	case pipeline.BlendDstAlpha:
		return gl.DST_ALPHA
	case pipeline.BlendOneMinusDstAlpha:
		return gl.ONE_MINUS_DST_ALPHA
	default:
		return gl.ONE
	}
}
