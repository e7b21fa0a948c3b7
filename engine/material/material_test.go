package material

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel3d/kestrel/engine/renderer/pipeline"
	"github.com/kestrel3d/kestrel/engine/renderer/uniform"
)

func TestDefaults(t *testing.T) {
	m := NewMaterial()
	assert.Equal(t, SideFront, m.Side())
	assert.False(t, m.Transparent())
	assert.True(t, m.DepthTest())
	assert.True(t, m.DepthWrite())
	assert.Equal(t, pipeline.TopologyTriangles, m.Topology())
	assert.Equal(t, [3]uint32{1, 1, 1}, m.Workgroups())
	assert.False(t, m.HasComputeStage())
	assert.NotZero(t, m.ResourceID())
}

func TestSideCullModeResolution(t *testing.T) {
	assert.Equal(t, pipeline.CullBack, SideFront.CullMode())
	assert.Equal(t, pipeline.CullFront, SideBack.CullMode())
	assert.Equal(t, pipeline.CullNone, SideBoth.CullMode())
}

func TestUniformRoundTrip(t *testing.T) {
	m := NewMaterial(WithUniform("tint", uniform.Vec4(mgl32.Vec4{1, 0, 0, 1})))

	v, ok := m.Uniform("tint")
	require.True(t, ok)
	assert.Equal(t, uniform.KindVec4, v.Kind())

	m.SetUniform("time", uniform.Scalar(1.5))
	v, ok = m.Uniform("time")
	require.True(t, ok)
	assert.Equal(t, []float32{1.5}, v.Floats())

	_, ok = m.Uniform("missing")
	assert.False(t, ok)
}

func TestComputeStage(t *testing.T) {
	m := NewMaterial(
		WithComputeShader("@compute @workgroup_size(64) fn cs_main() {}"),
		WithWorkgroups(8, 4, 0),
	)
	assert.True(t, m.HasComputeStage())
	assert.Equal(t, [3]uint32{8, 4, 1}, m.Workgroups(), "zero workgroup counts clamp to 1")
}

func TestSetTransparent(t *testing.T) {
	m := NewMaterial()
	m.SetTransparent(true)
	assert.True(t, m.Transparent())
}

func TestDisposeRunsOnce(t *testing.T) {
	m := NewMaterial()
	calls := 0
	m.OnDispose(func() { calls++ })

	m.Dispose()
	m.Dispose()
	assert.Equal(t, 1, calls)
}
