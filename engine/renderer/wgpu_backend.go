package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/kestrel3d/kestrel/common"
	"github.com/kestrel3d/kestrel/engine/renderer/pipeline"
	"github.com/kestrel3d/kestrel/engine/texture"
)

// wgpuProgram bundles the compiled shader modules for one program. The
// compute pipeline is built lazily on first dispatch.
type wgpuProgram struct {
	vs *wgpu.ShaderModule
	fs *wgpu.ShaderModule
	cs *wgpu.ShaderModule

	computePipeline *wgpu.ComputePipeline
	computeSrc      string
}

type wgpuBuffer struct {
	buf  *wgpu.Buffer
	size uint64
}

type wgpuTexture struct {
	tex     *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

type wgpuTarget struct {
	colors     []*wgpu.Texture
	colorViews []*wgpu.TextureView
	depth      *wgpu.Texture
	depthView  *wgpu.TextureView
}

// wgpuBinding is the assembled vertex input for one geometry: one buffer per
// layout slot plus an optional index buffer.
type wgpuBinding struct {
	buffers []*wgpu.Buffer
	index   *wgpu.Buffer
}

type wgpuBackend struct {
	mu       *sync.Mutex
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat    *wgpu.TextureFormat
	depthTexture     *wgpu.Texture
	depthTextureView *wgpu.TextureView
	msaaTexture      *wgpu.Texture
	msaaTextureView  *wgpu.TextureView
	sampleCount      int
	presentMode      wgpu.PresentMode

	// Frame state for batching draws into one submission.
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	frameTarget  *wgpuTarget

	// The pass is opened lazily at the first pipeline bind so a Clear issued
	// after BeginFrame can still select the pass load op.
	clearRequested bool
	clearColor     [4]float32
	clearDepth     float32

	currentPipeline *wgpu.RenderPipeline
	transientGroups []*wgpu.BindGroup
}

var _ Backend = &wgpuBackend{}

// newWGPUBackend acquires the WebGPU adapter, device and queue, blocking
// until the asynchronous requests complete. The surface descriptor may be nil
// for headless (offscreen-only) use.
func newWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height, sampleCount int) (Backend, error) {
	runtime.LockOSThread()
	b := &wgpuBackend{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: sampleCount,
		clearDepth:  1.0,
	}
	if b.sampleCount < 1 {
		b.sampleCount = 1
	}
	if surfaceDescriptor != nil {
		b.surface = b.instance.CreateSurface(surfaceDescriptor)
	}

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Kestrel Device",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()

	if b.surface != nil {
		if err := b.Configure(width, height); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *wgpuBackend) Name() string { return "wgpu" }

func (b *wgpuBackend) ClipZeroToOne() bool { return true }

func (b *wgpuBackend) Configure(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return fmt.Errorf("no surface to configure")
	}

	// Reconfiguring replaces the depth and MSAA attachments; the previous
	// allocations are released before the new ones are created.
	b.releaseSurfaceAttachments()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	if b.sampleCount > 1 {
		// The pass draws into the MSAA texture and resolves to the swapchain
		// view set per-frame as the ResolveTarget.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   uint32(b.sampleCount),
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("failed to create msaa texture: %w", err)
		}
		b.msaaTexture = msaaTexture
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			return fmt.Errorf("failed to create msaa texture view: %w", err)
		}
	}

	// Depth sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   uint32(b.sampleCount),
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("failed to create depth texture: %w", err)
	}
	b.depthTexture = depthTexture
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("failed to create depth texture view: %w", err)
	}
	return nil
}

func (b *wgpuBackend) releaseSurfaceAttachments() {
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}
	if b.msaaTexture != nil {
		b.msaaTexture.Release()
		b.msaaTexture = nil
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTextureView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
}

// colorFormat is the format shared by the surface and offscreen color
// attachments, so one pipeline serves both paths.
func (b *wgpuBackend) colorFormat() wgpu.TextureFormat {
	if b.surfaceFormat != nil {
		return *b.surfaceFormat
	}
	return wgpu.TextureFormatRGBA8Unorm
}

func (b *wgpuBackend) CreateBuffer(kind BufferKind, data []byte) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var usage wgpu.BufferUsage
	switch kind {
	case BufferIndex:
		usage = wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
	case BufferUniform:
		usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	default:
		usage = wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	}

	size := uint64(len(data))
	if size == 0 {
		size = 16
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Size:             size,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		b.queue.WriteBuffer(buf, 0, data)
	}
	return &wgpuBuffer{buf: buf, size: size}, nil
}

func (b *wgpuBackend) WriteBuffer(handle any, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb := handle.(*wgpuBuffer)
	if uint64(len(data)) > wb.size {
		return fmt.Errorf("write of %d bytes exceeds buffer allocation of %d", len(data), wb.size)
	}
	b.queue.WriteBuffer(wb.buf, 0, data)
	return nil
}

func (b *wgpuBackend) DisposeBuffer(handle any) {
	handle.(*wgpuBuffer).buf.Release()
}

func (b *wgpuBackend) CompileProgram(desc ProgramDesc) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := &wgpuProgram{computeSrc: desc.ComputeSrc}

	if desc.ComputeSrc != "" {
		cs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label:          "compute",
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.ComputeSrc},
		})
		if err != nil {
			return nil, &CompileError{Stage: "compute", Source: desc.ComputeSrc, Diagnostic: err.Error()}
		}
		p.cs = cs
		return p, nil
	}

	vs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "vertex",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.VertexSrc},
	})
	if err != nil {
		return nil, &CompileError{Stage: "vertex", Source: desc.VertexSrc, Diagnostic: err.Error()}
	}
	fs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "fragment",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.FragmentSrc},
	})
	if err != nil {
		vs.Release()
		return nil, &CompileError{Stage: "fragment", Source: desc.FragmentSrc, Diagnostic: err.Error()}
	}
	p.vs = vs
	p.fs = fs
	return p, nil
}

func (b *wgpuBackend) DisposeProgram(handle any) {
	p := handle.(*wgpuProgram)
	if p.vs != nil {
		p.vs.Release()
	}
	if p.fs != nil {
		p.fs.Release()
	}
	if p.cs != nil {
		p.cs.Release()
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
	}
}

func (b *wgpuBackend) CreatePipeline(program any, state pipeline.State) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := program.(*wgpuProgram)

	// One vertex buffer slot per layout entry; shader locations follow the
	// geometry's attribute insertion order.
	vertexLayouts := make([]wgpu.VertexBufferLayout, len(state.Layout))
	attrs := make([]wgpu.VertexAttribute, len(state.Layout))
	for i, a := range state.Layout {
		stepMode := wgpu.VertexStepModeVertex
		if a.Divisor > 0 {
			stepMode = wgpu.VertexStepModeInstance
		}
		attrs[i] = wgpu.VertexAttribute{
			Format:         wgpuVertexFormat(a.Format),
			Offset:         0,
			ShaderLocation: uint32(i),
		}
		vertexLayouts[i] = wgpu.VertexBufferLayout{
			ArrayStride: uint64(a.Stride),
			StepMode:    stepMode,
			Attributes:  attrs[i : i+1],
		}
	}

	targets := make([]wgpu.ColorTargetState, state.AttachmentCount)
	for i := range targets {
		target := wgpu.ColorTargetState{
			Format:    b.colorFormat(),
			WriteMask: wgpu.ColorWriteMaskAll,
		}
		if state.Transparent {
			target.Blend = &wgpu.BlendState{
				Color: wgpu.BlendComponent{
					Operation: wgpuBlendOp(state.Blend.Color.Op),
					SrcFactor: wgpuBlendFactor(state.Blend.Color.Src),
					DstFactor: wgpuBlendFactor(state.Blend.Color.Dst),
				},
				Alpha: wgpu.BlendComponent{
					Operation: wgpuBlendOp(state.Blend.Alpha.Op),
					SrcFactor: wgpuBlendFactor(state.Blend.Alpha.Src),
					DstFactor: wgpuBlendFactor(state.Blend.Alpha.Dst),
				},
			}
		}
		targets[i] = target
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Render Pipeline",
		Vertex: wgpu.VertexState{
			Module:     p.vs,
			EntryPoint: "vs_main",
			Buffers:    vertexLayouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.fs,
			EntryPoint: "fs_main",
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpuTopology(state.Topology),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpuCullMode(state.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(state.SampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: state.DepthWrite,
			DepthCompare:      wgpuCompare(state.DepthCompare),
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
	})
	if err != nil {
		return nil, &CompileError{Stage: "pipeline", Diagnostic: err.Error()}
	}
	return created, nil
}

func (b *wgpuBackend) DisposePipeline(handle any) {
	handle.(*wgpu.RenderPipeline).Release()
}

func (b *wgpuBackend) CreateGeometryBinding(layout []pipeline.VertexAttribute, buffers []any, index any) (any, error) {
	binding := &wgpuBinding{buffers: make([]*wgpu.Buffer, len(buffers))}
	for i, h := range buffers {
		binding.buffers[i] = h.(*wgpuBuffer).buf
	}
	if index != nil {
		binding.index = index.(*wgpuBuffer).buf
	}
	return binding, nil
}

func (b *wgpuBackend) DisposeGeometryBinding(handle any) {
	// The binding only references buffers owned by the buffer cache.
}

func (b *wgpuBackend) CreateTexture(pixels []byte, width, height uint32, sampler texture.SamplerConfig) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}
	b.writePixels(tex, pixels, width, height)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpuAddressMode(sampler.WrapS),
		AddressModeV:  wgpuAddressMode(sampler.WrapT),
		AddressModeW:  wgpuAddressMode(sampler.WrapT),
		MagFilter:     wgpuFilter(sampler.MagFilter),
		MinFilter:     wgpuFilter(sampler.MinFilter),
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32.0,
		MaxAnisotropy: common.Coalesce(sampler.Anisotropy, 1),
	})
	if err != nil {
		view.Release()
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{tex: tex, view: view, sampler: samp}, nil
}

func (b *wgpuBackend) WriteTexture(handle any, pixels []byte, width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writePixels(handle.(*wgpuTexture).tex, pixels, width, height)
	return nil
}

func (b *wgpuBackend) writePixels(tex *wgpu.Texture, pixels []byte, width, height uint32) {
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * 4,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)
}

func (b *wgpuBackend) DisposeTexture(handle any) {
	t := handle.(*wgpuTexture)
	t.sampler.Release()
	t.view.Release()
	t.tex.Release()
}

func (b *wgpuBackend) CreateTarget(width, height int, attachments []texture.SamplerConfig) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := &wgpuTarget{}
	for range attachments {
		tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Usage:     wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
			Dimension: wgpu.TextureDimension2D,
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			Format:        b.colorFormat(),
			MipLevelCount: 1,
			SampleCount:   1,
		})
		if err != nil {
			b.releaseTarget(t)
			return nil, err
		}
		view, err := tex.CreateView(nil)
		if err != nil {
			tex.Release()
			b.releaseTarget(t)
			return nil, err
		}
		t.colors = append(t.colors, tex)
		t.colorViews = append(t.colorViews, view)
	}

	depth, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Usage:     wgpu.TextureUsageRenderAttachment,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatDepth24Plus,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		b.releaseTarget(t)
		return nil, err
	}
	depthView, err := depth.CreateView(nil)
	if err != nil {
		depth.Release()
		b.releaseTarget(t)
		return nil, err
	}
	t.depth = depth
	t.depthView = depthView
	return t, nil
}

func (b *wgpuBackend) releaseTarget(t *wgpuTarget) {
	for _, v := range t.colorViews {
		v.Release()
	}
	for _, tex := range t.colors {
		tex.Release()
	}
	if t.depthView != nil {
		t.depthView.Release()
	}
	if t.depth != nil {
		t.depth.Release()
	}
}

func (b *wgpuBackend) DisposeTarget(handle any) {
	b.releaseTarget(handle.(*wgpuTarget))
}

func (b *wgpuBackend) BeginFrame(target any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		return fmt.Errorf("previous frame not yet submitted")
	}

	if target != nil {
		b.frameTarget = target.(*wgpuTarget)
	} else {
		if b.surface == nil {
			return fmt.Errorf("no surface bound")
		}
		surfaceTexture, err := b.surface.GetCurrentTexture()
		if err != nil {
			return err
		}
		view, err := surfaceTexture.CreateView(nil)
		if err != nil {
			surfaceTexture.Release()
			return err
		}
		b.frameSurface = surfaceTexture
		b.frameView = view
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		b.releaseFrameSurface()
		return err
	}
	b.frameEncoder = encoder
	b.clearRequested = false
	return nil
}

func (b *wgpuBackend) Clear(color [4]float32, depth float32, stencil uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearRequested = true
	b.clearColor = color
	b.clearDepth = depth
}

// beginPass opens the render pass on first use. WebGPU expresses clears as
// pass load operations, so the pass cannot open until the frame knows whether
// a clear was requested.
func (b *wgpuBackend) beginPass() {
	if b.framePass != nil {
		return
	}

	loadOp := wgpu.LoadOpLoad
	if b.clearRequested {
		loadOp = wgpu.LoadOpClear
	}
	clearValue := wgpu.Color{
		R: float64(b.clearColor[0]),
		G: float64(b.clearColor[1]),
		B: float64(b.clearColor[2]),
		A: float64(b.clearColor[3]),
	}

	var colorAttachments []wgpu.RenderPassColorAttachment
	depthView := b.depthTextureView
	if b.frameTarget != nil {
		depthView = b.frameTarget.depthView
		for _, view := range b.frameTarget.colorViews {
			colorAttachments = append(colorAttachments, wgpu.RenderPassColorAttachment{
				View:       view,
				LoadOp:     loadOp,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: clearValue,
			})
		}
	} else {
		attachment := wgpu.RenderPassColorAttachment{
			View:       b.frameView,
			LoadOp:     loadOp,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clearValue,
		}
		if b.msaaTextureView != nil {
			attachment.View = b.msaaTextureView
			attachment.ResolveTarget = b.frameView
			attachment.StoreOp = wgpu.StoreOpDiscard
		}
		colorAttachments = append(colorAttachments, attachment)
	}

	depthLoadOp := wgpu.LoadOpLoad
	if b.clearRequested {
		depthLoadOp = wgpu.LoadOpClear
	}
	b.framePass = b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: colorAttachments,
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     depthLoadOp,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: b.clearDepth,
		},
	})
}

func (b *wgpuBackend) BindPipeline(pipelineHandle, program any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.beginPass()
	p := pipelineHandle.(*wgpu.RenderPipeline)
	b.framePass.SetPipeline(p)
	b.currentPipeline = p
}

func (b *wgpuBackend) BindUniforms(program any, uniformBuffer any, textures []TextureBinding) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Bind group layout comes from the pipeline's auto layout: binding 0 is
	// the packed uniform buffer, then view/sampler pairs per texture in
	// declaration order.
	entries := []wgpu.BindGroupEntry{}
	if uniformBuffer != nil {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: 0,
			Buffer:  uniformBuffer.(*wgpuBuffer).buf,
			Size:    wgpu.WholeSize,
		})
	}
	for i, t := range textures {
		wt := t.Handle.(*wgpuTexture)
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: uint32(1 + 2*i), TextureView: wt.view},
			wgpu.BindGroupEntry{Binding: uint32(2 + 2*i), Sampler: wt.sampler},
		)
	}

	layout := b.currentPipeline.GetBindGroupLayout(0)
	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		common.Logger().Warn("bind group creation failed", "error", err)
		return
	}
	b.framePass.SetBindGroup(0, group, nil)
	b.transientGroups = append(b.transientGroups, group)
}

func (b *wgpuBackend) BindGeometry(binding any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb := binding.(*wgpuBinding)
	for i, buf := range wb.buffers {
		b.framePass.SetVertexBuffer(uint32(i), buf, 0, wgpu.WholeSize)
	}
	if wb.index != nil {
		b.framePass.SetIndexBuffer(wb.index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	}
}

func (b *wgpuBackend) Draw(indexed bool, count, instances, start int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if indexed {
		b.framePass.DrawIndexed(uint32(count), uint32(instances), uint32(start), 0, 0)
	} else {
		b.framePass.Draw(uint32(count), uint32(instances), uint32(start), 0)
	}
}

func (b *wgpuBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A frame with zero draws still applies its clear.
	b.beginPass()
	b.framePass.End()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
		b.releaseFrameSurface()
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil

	for _, g := range b.transientGroups {
		g.Release()
	}
	b.transientGroups = b.transientGroups[:0]

	if b.frameSurface != nil {
		b.surface.Present()
	}
	b.releaseFrameSurface()
	b.frameTarget = nil
	return nil
}

func (b *wgpuBackend) releaseFrameSurface() {
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuBackend) Dispatch(program any, uniformBuffer any, workgroups [3]uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := program.(*wgpuProgram)
	if p.cs == nil {
		return &StateError{Op: "compute", Reason: "program has no compute module"}
	}

	if p.computePipeline == nil {
		created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label: "Compute Pipeline",
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     p.cs,
				EntryPoint: "cs_main",
			},
		})
		if err != nil {
			return &CompileError{Stage: "compute", Source: p.computeSrc, Diagnostic: err.Error()}
		}
		p.computePipeline = created
	}

	var group *wgpu.BindGroup
	if uniformBuffer != nil {
		layout := p.computePipeline.GetBindGroupLayout(0)
		created, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: layout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: uniformBuffer.(*wgpuBuffer).buf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return &AllocationError{Resource: "bind group", Err: err}
		}
		group = created
		defer group.Release()
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return &AllocationError{Resource: "command encoder", Err: err}
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.computePipeline)
	if group != nil {
		pass.SetBindGroup(0, group, nil)
	}
	pass.DispatchWorkgroups(workgroups[0], workgroups[1], workgroups[2])
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()
	return nil
}

func (b *wgpuBackend) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseSurfaceAttachments()
	if b.queue != nil {
		b.queue.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.surface != nil {
		b.surface.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}

func wgpuFilter(f texture.FilterMode) wgpu.FilterMode {
	switch f {
	case texture.FilterNearest:
		return wgpu.FilterModeNearest
	default:
		return wgpu.FilterModeLinear
	}
}

func wgpuAddressMode(m texture.WrapMode) wgpu.AddressMode {
	switch m {
	case texture.WrapRepeat:
		return wgpu.AddressModeRepeat
	case texture.WrapMirrorRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeClampToEdge
	}
}

func wgpuVertexFormat(f pipeline.AttributeFormat) wgpu.VertexFormat {
	switch f {
	case pipeline.FormatFloat32:
		return wgpu.VertexFormatFloat32
	case pipeline.FormatFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case pipeline.FormatFloat32x3:
		return wgpu.VertexFormatFloat32x3
	default:
		return wgpu.VertexFormatFloat32x4
	}
}

func wgpuTopology(t pipeline.Topology) wgpu.PrimitiveTopology {
	switch t {
	case pipeline.TopologyTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	case pipeline.TopologyLines:
		return wgpu.PrimitiveTopologyLineList
	case pipeline.TopologyLineStrip:
		return wgpu.PrimitiveTopologyLineStrip
	case pipeline.TopologyPoints:
		return wgpu.PrimitiveTopologyPointList
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

func wgpuCullMode(m pipeline.CullMode) wgpu.CullMode {
	switch m {
	case pipeline.CullFront:
		return wgpu.CullModeFront
	case pipeline.CullBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

func wgpuCompare(f pipeline.CompareFunc) wgpu.CompareFunction {
	switch f {
	case pipeline.CompareNever:
		return wgpu.CompareFunctionNever
	case pipeline.CompareLess:
		return wgpu.CompareFunctionLess
	case pipeline.CompareEqual:
		return wgpu.CompareFunctionEqual
	case pipeline.CompareLessEqual:
		return wgpu.CompareFunctionLessEqual
	case pipeline.CompareGreater:
		return wgpu.CompareFunctionGreater
	case pipeline.CompareNotEqual:
		return wgpu.CompareFunctionNotEqual
	case pipeline.CompareGreaterEqual:
		return wgpu.CompareFunctionGreaterEqual
	default:
		return wgpu.CompareFunctionAlways
	}
}

func wgpuBlendOp(op pipeline.BlendOp) wgpu.BlendOperation {
	switch op {
	case pipeline.BlendOpSubtract:
		return wgpu.BlendOperationSubtract
	case pipeline.BlendOpReverseSubtract:
		return wgpu.BlendOperationReverseSubtract
	case pipeline.BlendOpMin:
		return wgpu.BlendOperationMin
	case pipeline.BlendOpMax:
		return wgpu.BlendOperationMax
	default:
		return wgpu.BlendOperationAdd
	}
}

func wgpuBlendFactor(f pipeline.BlendFactor) wgpu.BlendFactor {
	switch f {
	case pipeline.BlendZero:
		return wgpu.BlendFactorZero
	case pipeline.BlendSrcColor:
		return wgpu.BlendFactorSrc
	case pipeline.BlendOneMinusSrcColor:
		return wgpu.BlendFactorOneMinusSrc
	case pipeline.BlendSrcAlpha:
		return wgpu.BlendFactorSrcAlpha
	case pipeline.BlendOneMinusSrcAlpha:
		return wgpu.BlendFactorOneMinusSrcAlpha
	case pipeline.BlendDstColor:
		return wgpu.BlendFactorDst
	case pipeline.BlendOneMinusDstColor:
		return wgpu.BlendFactorOneMinusDst
	case pipeline.BlendDstAlpha:
		return wgpu.BlendFactorDstAlpha
	case pipeline.BlendOneMinusDstAlpha:
		return wgpu.BlendFactorOneMinusDstAlpha
	default:
		return wgpu.BlendFactorOne
	}
}
