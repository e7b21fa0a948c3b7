package uniform

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wgslVertex = `
struct Uniforms {
	model : mat4x4<f32>,
	tint : vec4<f32>,
	time : f32,
}
@group(0) @binding(0) var<uniform> u : Uniforms;

@vertex
fn vs_main(@location(0) position : vec3<f32>) -> @builtin(position) vec4<f32> {
	return u.model * vec4<f32>(position, 1.0);
}
`

const wgslFragment = `
struct Uniforms {
	model : mat4x4<f32>,
	tint : vec4<f32>,
}
@group(0) @binding(0) var<uniform> u : Uniforms;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
	return u.tint;
}
`

const glslVertex = `
#version 410 core
layout(location = 0) in vec3 position;
uniform Params {
	mat4 model;
	vec4 tint;
	float time;
};
void main() { gl_Position = model * vec4(position, 1.0); }
`

const glslFragment = `
#version 410 core
uniform Params {
	mat4 model;
	vec4 tint;
};
out vec4 fragColor;
void main() { fragColor = tint; }
`

func TestParseWGSLUnionPrefersLongerDeclaration(t *testing.T) {
	s, err := Parse(wgslVertex, wgslFragment)
	require.NoError(t, err)
	require.Len(t, s.Members, 3)

	model, ok := s.Member("model")
	require.True(t, ok)
	assert.Equal(t, KindMat4, model.Kind)
	assert.Equal(t, 0, model.Offset)

	tint, ok := s.Member("tint")
	require.True(t, ok)
	assert.Equal(t, 16, tint.Offset)

	time, ok := s.Member("time")
	require.True(t, ok)
	assert.Equal(t, KindScalar, time.Kind)
	assert.Equal(t, 20, time.Offset)

	assert.Equal(t, 24, s.TotalSlots, "total rounds up to a multiple of 4")
}

func TestParseGLSLBlocks(t *testing.T) {
	s, err := Parse(glslVertex, glslFragment)
	require.NoError(t, err)
	require.Len(t, s.Members, 3)
	assert.Equal(t, 24, s.TotalSlots)
}

func TestParseRejectsKindDisagreement(t *testing.T) {
	frag := `
struct Uniforms {
	model : vec4<f32>,
}
@group(0) @binding(0) var<uniform> u : Uniforms;
`
	_, err := Parse(wgslVertex, frag)
	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "model", mismatch.Member)
}

func TestParseRejectsNonSupersetStages(t *testing.T) {
	frag := `
struct Uniforms {
	model : mat4x4<f32>,
	tint : vec4<f32>,
	exposure : f32,
}
@group(0) @binding(0) var<uniform> u : Uniforms;
`
	// Vertex declares {model, tint, time}; fragment declares {model, tint,
	// exposure}. Same length, neither side contains the other.
	var mismatch *SchemaMismatchError
	_, err := Parse(wgslVertex, frag)
	require.ErrorAs(t, err, &mismatch)
}

func TestParseRejectsUnparseableUniformSyntax(t *testing.T) {
	src := `@group(0) @binding(0) var<uniform> u : Undeclared;`
	_, err := Parse(src, "")
	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch, "uniform syntax that fails to parse must error, never yield an empty set")
}

func TestParsePlainGLSLAndTextures(t *testing.T) {
	vert := `
#version 410 core
uniform mat4 model;
uniform float time;
void main() {}
`
	frag := `
#version 410 core
uniform mat4 model;
uniform sampler2D albedo;
void main() {}
`
	s, err := Parse(vert, frag)
	require.NoError(t, err)

	albedo, ok := s.Member("albedo")
	require.True(t, ok)
	assert.Equal(t, KindTexture, albedo.Kind)
	assert.Equal(t, -1, albedo.Offset, "texture members occupy no buffer slots")
}

func TestFragmentOnlyTextureJoinsSchema(t *testing.T) {
	// A sampler usually appears in the fragment stage alone; it must not
	// trip the numeric superset rule.
	vert := `
#version 410 core
uniform mat4 model;
uniform float time;
void main() {}
`
	frag := `
#version 410 core
uniform mat4 model;
uniform sampler2D albedo;
void main() {}
`
	s, err := Parse(vert, frag)
	require.NoError(t, err)
	require.Len(t, s.Members, 3)

	_, ok := s.Member("time")
	assert.True(t, ok)
	albedo, ok := s.Member("albedo")
	require.True(t, ok)
	assert.Equal(t, KindTexture, albedo.Kind)
}

func TestParseRejectsTextureNumericClash(t *testing.T) {
	vert := `
#version 410 core
uniform vec4 albedo;
void main() {}
`
	frag := `
#version 410 core
uniform sampler2D albedo;
void main() {}
`
	_, err := Parse(vert, frag)
	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "albedo", mismatch.Member)
}

func TestPackPlacement(t *testing.T) {
	s, err := Parse(`
uniform float a;
uniform vec2 b;
uniform vec4 c;
void main() {}
`, "")
	require.NoError(t, err)

	a, _ := s.Member("a")
	b, _ := s.Member("b")
	c, _ := s.Member("c")
	assert.Equal(t, 0, a.Offset)
	assert.Equal(t, 2, b.Offset)
	assert.Equal(t, 4, c.Offset)
	assert.Equal(t, 8, s.TotalSlots)

	values := map[string]Value{
		"a": Scalar(1),
		"b": Vec2(mgl32.Vec2{2, 3}),
		"c": Vec4(mgl32.Vec4{4, 5, 6, 7}),
	}
	p := NewPacker(s)
	buf := p.Pack(func(name string) (Value, bool) {
		v, ok := values[name]
		return v, ok
	})
	assert.Equal(t, []float32{1, 0, 2, 3, 4, 5, 6, 7}, buf)
}

func TestPackReusesBuffer(t *testing.T) {
	s, err := Parse(`
uniform vec4 c;
void main() {}
`, "")
	require.NoError(t, err)

	p := NewPacker(s)
	resolve := func(string) (Value, bool) { return Vec4(mgl32.Vec4{1, 2, 3, 4}), true }
	first := p.Pack(resolve)
	second := p.Pack(func(string) (Value, bool) { return Vec4(mgl32.Vec4{9, 9, 9, 9}), true })

	assert.Equal(t, &first[0], &second[0], "re-packing must write into the same buffer object")
	assert.Equal(t, float32(9), first[0])
}

func TestPackMat3PadsColumns(t *testing.T) {
	s, err := Parse(`
uniform mat3 normalMatrix;
void main() {}
`, "")
	require.NoError(t, err)
	require.Equal(t, 12, s.TotalSlots)

	m := mgl32.Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}
	p := NewPacker(s)
	buf := p.Pack(func(string) (Value, bool) { return Mat3(m), true })
	assert.Equal(t, []float32{1, 2, 3, 0, 4, 5, 6, 0, 7, 8, 9, 0}, buf)
}

func TestPackSkipsShapeDisagreement(t *testing.T) {
	s, err := Parse(`
uniform vec4 c;
void main() {}
`, "")
	require.NoError(t, err)

	p := NewPacker(s)
	buf := p.Pack(func(string) (Value, bool) { return Scalar(5), true })
	assert.Equal(t, []float32{0, 0, 0, 0}, buf, "mismatched shapes must not corrupt the buffer")
}

func TestFromSlice(t *testing.T) {
	cases := []struct {
		length int
		kind   Kind
	}{
		{1, KindScalar},
		{2, KindVec2},
		{3, KindVec3},
		{4, KindVec4},
		{9, KindMat3},
		{16, KindMat4},
	}
	for _, tc := range cases {
		v, ok := FromSlice(make([]float32, tc.length))
		require.True(t, ok)
		assert.Equal(t, tc.kind, v.Kind())
	}

	_, ok := FromSlice(make([]float32, 7))
	assert.False(t, ok)
}

func TestSchemaCacheMemoizes(t *testing.T) {
	c := NewSchemaCache()
	s1, err := c.Lookup(glslVertex, glslFragment)
	require.NoError(t, err)
	s2, err := c.Lookup(glslVertex, glslFragment)
	require.NoError(t, err)
	assert.Same(t, s1, s2)
}
