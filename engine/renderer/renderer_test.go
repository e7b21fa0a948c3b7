package renderer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel3d/kestrel/engine/camera"
	"github.com/kestrel3d/kestrel/engine/geometry"
	"github.com/kestrel3d/kestrel/engine/material"
	"github.com/kestrel3d/kestrel/engine/node"
	"github.com/kestrel3d/kestrel/engine/renderer/pipeline"
	"github.com/kestrel3d/kestrel/engine/renderer/uniform"
	"github.com/kestrel3d/kestrel/engine/target"
	"github.com/kestrel3d/kestrel/engine/texture"
)

// fakeBackend records the command stream so tests can assert on ordering,
// allocation counts and disposal without a GPU.
type fakeBackend struct {
	clipZeroToOne bool

	configured     bool
	clears         int
	compiled       []string
	pipelines      int
	buffersCreated int
	bufferWrites   int
	drawOrder      []string
	draws          int
	framesBegun    int
	framesEnded    int
	disposed       map[string]int

	failBuffers bool

	currentProgram string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{clipZeroToOne: true, disposed: map[string]int{}}
}

func (f *fakeBackend) Name() string        { return "fake" }
func (f *fakeBackend) ClipZeroToOne() bool { return f.clipZeroToOne }

func (f *fakeBackend) Configure(width, height int) error {
	f.configured = true
	return nil
}

func (f *fakeBackend) CreateBuffer(kind BufferKind, data []byte) (any, error) {
	if f.failBuffers {
		return nil, errors.New("out of memory")
	}
	f.buffersCreated++
	return fmt.Sprintf("buffer-%d", f.buffersCreated), nil
}

func (f *fakeBackend) WriteBuffer(handle any, data []byte) error {
	f.bufferWrites++
	return nil
}

func (f *fakeBackend) DisposeBuffer(handle any) { f.disposed["buffer"]++ }

func (f *fakeBackend) CompileProgram(desc ProgramDesc) (any, error) {
	src := desc.VertexSrc
	if desc.ComputeSrc != "" {
		src = desc.ComputeSrc
	}
	if src == "bad shader" {
		return nil, &CompileError{Stage: "vertex", Source: src, Diagnostic: "syntax error"}
	}
	f.compiled = append(f.compiled, src)
	return src, nil
}

func (f *fakeBackend) DisposeProgram(handle any) { f.disposed["program"]++ }

func (f *fakeBackend) CreatePipeline(program any, state pipeline.State) (any, error) {
	f.pipelines++
	return fmt.Sprintf("pipeline-%d", f.pipelines), nil
}

func (f *fakeBackend) DisposePipeline(handle any) { f.disposed["pipeline"]++ }

func (f *fakeBackend) CreateGeometryBinding(layout []pipeline.VertexAttribute, buffers []any, index any) (any, error) {
	return "binding", nil
}

func (f *fakeBackend) DisposeGeometryBinding(handle any) { f.disposed["binding"]++ }

func (f *fakeBackend) CreateTexture(pixels []byte, width, height uint32, sampler texture.SamplerConfig) (any, error) {
	return "texture", nil
}

func (f *fakeBackend) WriteTexture(handle any, pixels []byte, width, height uint32) error {
	return nil
}

func (f *fakeBackend) DisposeTexture(handle any) { f.disposed["texture"]++ }

func (f *fakeBackend) CreateTarget(width, height int, attachments []texture.SamplerConfig) (any, error) {
	return "target", nil
}

func (f *fakeBackend) DisposeTarget(handle any) { f.disposed["target"]++ }

func (f *fakeBackend) BeginFrame(target any) error {
	f.framesBegun++
	return nil
}

func (f *fakeBackend) Clear(color [4]float32, depth float32, stencil uint32) { f.clears++ }

func (f *fakeBackend) BindPipeline(pipelineHandle, program any) {
	f.currentProgram = program.(string)
}

func (f *fakeBackend) BindUniforms(program any, uniformBuffer any, textures []TextureBinding) {}

func (f *fakeBackend) BindGeometry(binding any) {}

func (f *fakeBackend) Draw(indexed bool, count, instances, start int) {
	f.draws++
	f.drawOrder = append(f.drawOrder, f.currentProgram)
}

func (f *fakeBackend) EndFrame() error {
	f.framesEnded++
	return nil
}

func (f *fakeBackend) Dispatch(program any, uniformBuffer any, workgroups [3]uint32) error {
	return nil
}

func (f *fakeBackend) Dispose() {}

var _ Backend = &fakeBackend{}

func testRenderer(t *testing.T, options ...RendererBuilderOption) (Renderer, *fakeBackend) {
	t.Helper()
	b := newFakeBackend()
	r := NewRenderer(newDeviceWithBackend(BackendTypeWGPU, b), options...)
	require.NoError(t, r.SetSize(640, 480))
	return r, b
}

func triangleGeometry() geometry.Geometry {
	return geometry.NewGeometry(
		geometry.WithAttribute("position", geometry.NewBufferView([]float32{
			0, 0, 0,
			1, 0, 0,
			0, 1, 0,
		}, 3)),
	)
}

func drawableNode(name string, z float32, opts ...material.MaterialBuilderOption) node.Node {
	base := []material.MaterialBuilderOption{
		material.WithVertexShader("// " + name),
		material.WithFragmentShader("// " + name),
	}
	return node.NewNode(
		node.WithName(name),
		node.WithPosition(mgl32.Vec3{0, 0, z}),
		node.WithGeometry(triangleGeometry()),
		node.WithMaterial(material.NewMaterial(append(base, opts...)...)),
	)
}

func testCamera() camera.Camera {
	return camera.NewCamera(
		camera.WithPerspective(mgl32.DegToRad(60), 1, 0.1, 1000),
		camera.WithPosition(mgl32.Vec3{0, 0, 0}),
	)
}

func TestRenderWithoutSurfaceRejected(t *testing.T) {
	b := newFakeBackend()
	r := NewRenderer(newDeviceWithBackend(BackendTypeWGPU, b))

	err := r.Render(node.NewNode(), nil)

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "render", stateErr.Op)
	assert.Equal(t, 0, b.framesBegun)
}

func TestRenderEmptySceneSubmits(t *testing.T) {
	r, b := testRenderer(t)

	require.NoError(t, r.Render(node.NewNode(), nil))

	assert.Equal(t, 1, b.framesBegun)
	assert.Equal(t, 1, b.framesEnded)
	assert.Equal(t, 1, b.clears)
	assert.Equal(t, uint64(1), r.Stats().Frame)
}

func TestRenderAutoClearDisabled(t *testing.T) {
	r, b := testRenderer(t, WithAutoClear(false))

	require.NoError(t, r.Render(node.NewNode(), nil))

	assert.Equal(t, 0, b.clears)
	assert.Equal(t, 1, b.framesEnded)
}

func TestSubmissionOrder(t *testing.T) {
	// A ignores depth, so it draws first. C and D share the far distance and
	// opaque beats transparent there. B is nearest and transparent, so it
	// draws last.
	r, b := testRenderer(t)

	root := node.NewNode()
	root.Add(drawableNode("B", -5, material.WithTransparent(true)))
	root.Add(drawableNode("D", -10, material.WithTransparent(true)))
	root.Add(drawableNode("C", -10))
	root.Add(drawableNode("A", -2, material.WithDepthTest(false)))

	require.NoError(t, r.Render(root, testCamera()))

	assert.Equal(t, []string{"// A", "// C", "// D", "// B"}, b.drawOrder)
}

func TestFrustumCullingSkipsOffscreenDrawables(t *testing.T) {
	r, b := testRenderer(t)

	root := node.NewNode()
	root.Add(drawableNode("visible", -10))
	root.Add(drawableNode("behind", 50))

	require.NoError(t, r.Render(root, testCamera()))

	assert.Equal(t, 1, b.draws)
	assert.Equal(t, 1, r.Stats().Culled)
}

func TestInvisibleSubtreePruned(t *testing.T) {
	r, b := testRenderer(t)

	hidden := node.NewNode(node.WithVisible(false))
	hidden.Add(drawableNode("child", -5))
	root := node.NewNode()
	root.Add(hidden)

	require.NoError(t, r.Render(root, testCamera()))

	assert.Equal(t, 0, b.draws)
}

func TestProgramAndPipelineCachedAcrossFrames(t *testing.T) {
	r, b := testRenderer(t)

	root := node.NewNode()
	root.Add(drawableNode("cube", -5))

	require.NoError(t, r.Render(root, testCamera()))
	require.NoError(t, r.Render(root, testCamera()))

	assert.Len(t, b.compiled, 1)
	assert.Equal(t, 1, b.pipelines)
	assert.Equal(t, 2, b.draws)
}

func TestTransparencyFlipRecompilesPipeline(t *testing.T) {
	r, b := testRenderer(t)

	n := drawableNode("cube", -5)
	root := node.NewNode()
	root.Add(n)

	require.NoError(t, r.Render(root, testCamera()))
	n.Material().SetTransparent(true)
	require.NoError(t, r.Render(root, testCamera()))

	assert.Len(t, b.compiled, 1)
	assert.Equal(t, 2, b.pipelines)
}

func TestSharedMaterialSharesPipeline(t *testing.T) {
	r, b := testRenderer(t)

	mat := material.NewMaterial(
		material.WithVertexShader("// shared"),
		material.WithFragmentShader("// shared"),
	)
	root := node.NewNode()
	for i := 0; i < 3; i++ {
		root.Add(node.NewNode(
			node.WithPosition(mgl32.Vec3{float32(i), 0, -5}),
			node.WithGeometry(triangleGeometry()),
			node.WithMaterial(mat),
		))
	}

	require.NoError(t, r.Render(root, testCamera()))

	assert.Len(t, b.compiled, 1)
	assert.Equal(t, 1, b.pipelines)
	assert.Equal(t, 3, b.draws)
}

func TestIdenticalSourcesSharePipelineAcrossMaterials(t *testing.T) {
	// Distinct material instances with byte-identical sources and the same
	// state tuple share one program and one pipeline.
	r, b := testRenderer(t)

	root := node.NewNode()
	for i := 0; i < 2; i++ {
		root.Add(node.NewNode(
			node.WithPosition(mgl32.Vec3{float32(i), 0, -5}),
			node.WithGeometry(triangleGeometry()),
			node.WithMaterial(material.NewMaterial(
				material.WithVertexShader("// same"),
				material.WithFragmentShader("// same"),
			)),
		))
	}

	require.NoError(t, r.Render(root, testCamera()))

	assert.Len(t, b.compiled, 1)
	assert.Equal(t, 1, b.pipelines)
	assert.Equal(t, 2, b.draws)
}

func TestDirtyBufferRewritesInPlace(t *testing.T) {
	r, b := testRenderer(t)

	view := geometry.NewBufferView([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, 3)
	geom := geometry.NewGeometry(geometry.WithAttribute("position", view))
	root := node.NewNode()
	root.Add(node.NewNode(
		node.WithPosition(mgl32.Vec3{0, 0, -5}),
		node.WithGeometry(geom),
		node.WithMaterial(material.NewMaterial(
			material.WithVertexShader("// v"),
			material.WithFragmentShader("// f"),
		)),
	))

	require.NoError(t, r.Render(root, testCamera()))
	created := b.buffersCreated

	// Same length: the buffer is rewritten, not reallocated.
	view.SetData([]float32{0, 0, 0, 2, 0, 0, 0, 2, 0})
	require.NoError(t, r.Render(root, testCamera()))
	assert.Equal(t, created, b.buffersCreated)

	// Length change: fresh identity, fresh allocation.
	view.SetData([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 0})
	require.NoError(t, r.Render(root, testCamera()))
	assert.Equal(t, created+1, b.buffersCreated)
}

func TestCompileFailureSkipsDrawableOnly(t *testing.T) {
	r, b := testRenderer(t)

	root := node.NewNode()
	root.Add(drawableNode("good", -5))
	root.Add(node.NewNode(
		node.WithName("broken"),
		node.WithPosition(mgl32.Vec3{0, 0, -5}),
		node.WithGeometry(triangleGeometry()),
		node.WithMaterial(material.NewMaterial(
			material.WithVertexShader("bad shader"),
			material.WithFragmentShader("// f"),
		)),
	))

	require.NoError(t, r.Render(root, testCamera()))

	assert.Equal(t, 1, b.draws)
	assert.Equal(t, 1, r.Stats().Skipped)
	assert.Equal(t, 1, b.framesEnded)
}

func TestUnreadyTextureDefersDrawable(t *testing.T) {
	r, b := testRenderer(t)

	tex := texture.NewTexture()
	root := node.NewNode()
	root.Add(node.NewNode(
		node.WithPosition(mgl32.Vec3{0, 0, -5}),
		node.WithGeometry(triangleGeometry()),
		node.WithMaterial(material.NewMaterial(
			material.WithVertexShader("// v"),
			material.WithFragmentShader("var albedo: texture_2d<f32>;"),
			material.WithUniform("albedo", uniform.Texture(tex)),
		)),
	))

	require.NoError(t, r.Render(root, testCamera()))
	assert.Equal(t, 0, b.draws)
	assert.Equal(t, 1, r.Stats().Skipped)

	tex.SetPixels([]byte{255, 0, 0, 255}, 1, 1)
	require.NoError(t, r.Render(root, testCamera()))
	assert.Equal(t, 1, b.draws)
}

func TestAllocationFailureStillSubmitsFrame(t *testing.T) {
	r, b := testRenderer(t)
	b.failBuffers = true

	root := node.NewNode()
	root.Add(drawableNode("cube", -5))

	err := r.Render(root, testCamera())

	var allocErr *AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, 1, b.framesEnded)
	assert.Equal(t, uint64(1), r.Stats().Frame)

	// The machine returned to idle, so the next frame proceeds.
	b.failBuffers = false
	require.NoError(t, r.Render(root, testCamera()))
}

func TestComputeRequiresComputeStage(t *testing.T) {
	r, _ := testRenderer(t)

	n := drawableNode("cube", -5)
	err := r.Compute(n)

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "compute", stateErr.Op)
}

func TestComputeDispatches(t *testing.T) {
	r, b := testRenderer(t)

	n := node.NewNode(node.WithMaterial(material.NewMaterial(
		material.WithComputeShader("// particles"),
		material.WithWorkgroups(8, 1, 1),
	)))

	require.NoError(t, r.Compute(n))
	assert.Contains(t, b.compiled, "// particles")
}

func TestRenderTargetRebuildOnResize(t *testing.T) {
	r, b := testRenderer(t)

	rt := target.NewRenderTarget(target.WithSize(256, 256))
	r.SetRenderTarget(rt)

	root := node.NewNode()
	require.NoError(t, r.Render(root, nil))
	require.NoError(t, r.Render(root, nil))
	assert.Equal(t, 0, b.disposed["target"])

	rt.SetSize(512, 512)
	require.NoError(t, r.Render(root, nil))
	assert.Equal(t, 1, b.disposed["target"])
}

func TestDisposePurgesPipelines(t *testing.T) {
	r, b := testRenderer(t)

	root := node.NewNode()
	root.Add(drawableNode("cube", -5))
	require.NoError(t, r.Render(root, testCamera()))

	r.Dispose()
	assert.Equal(t, 1, b.disposed["pipeline"])
	assert.Equal(t, 1, b.disposed["program"])
}

func TestGeometryDisposeReleasesGPUHandles(t *testing.T) {
	r, b := testRenderer(t)

	geom := triangleGeometry()
	root := node.NewNode()
	root.Add(node.NewNode(
		node.WithPosition(mgl32.Vec3{0, 0, -5}),
		node.WithGeometry(geom),
		node.WithMaterial(material.NewMaterial(
			material.WithVertexShader("// v"),
			material.WithFragmentShader("// f"),
		)),
	))
	require.NoError(t, r.Render(root, testCamera()))

	geom.Dispose()
	assert.Equal(t, 1, b.disposed["binding"])
	assert.Equal(t, 1, b.disposed["buffer"])
}

func TestFrameMachineRejectsIllegalTransition(t *testing.T) {
	var m frameMachine
	require.NoError(t, m.transition(frameTargetBound))
	assert.Error(t, m.transition(frameDrawn))
	assert.Error(t, m.transition(frameIdle))
}

func TestFrameMachineFullFrame(t *testing.T) {
	var m frameMachine
	for _, s := range []frameState{
		frameTargetBound, frameCleared, frameTraversing,
		frameCompiled, frameStateApplied, frameDrawn,
		frameCompiled, frameStateApplied, frameDrawn,
		frameSubmitted, frameIdle,
	} {
		require.NoError(t, m.transition(s), "transition to %s", s)
	}
}
