package material

import (
	"github.com/kestrel3d/kestrel/engine/renderer/pipeline"
	"github.com/kestrel3d/kestrel/engine/renderer/uniform"
)

// MaterialBuilderOption is a functional option used to configure a Material during construction.
type MaterialBuilderOption func(*engineMaterial)

// WithVertexShader sets the vertex-stage shader source.
//
// Parameters:
//   - src: the shader source text (WGSL or GLSL, per the target backend)
//
// Returns:
//   - MaterialBuilderOption: a function that sets the vertex source
func WithVertexShader(src string) MaterialBuilderOption {
	return func(m *engineMaterial) {
		m.vertexSrc = src
	}
}

// WithFragmentShader sets the fragment-stage shader source.
//
// Parameters:
//   - src: the shader source text
//
// Returns:
//   - MaterialBuilderOption: a function that sets the fragment source
func WithFragmentShader(src string) MaterialBuilderOption {
	return func(m *engineMaterial) {
		m.fragmentSrc = src
	}
}

// WithComputeShader sets the compute-stage shader source, making the material
// eligible for dispatch.
//
// Parameters:
//   - src: the shader source text
//
// Returns:
//   - MaterialBuilderOption: a function that sets the compute source
func WithComputeShader(src string) MaterialBuilderOption {
	return func(m *engineMaterial) {
		m.computeSrc = src
	}
}

// WithUniform sets an initial named uniform value.
//
// Parameters:
//   - name: the uniform name as declared in the shader
//   - value: the tagged value
//
// Returns:
//   - MaterialBuilderOption: a function that stores the value
func WithUniform(name string, value uniform.Value) MaterialBuilderOption {
	return func(m *engineMaterial) {
		m.uniforms[name] = value
	}
}

// WithSide sets which faces the material renders.
//
// Parameters:
//   - side: SideFront, SideBack or SideBoth
//
// Returns:
//   - MaterialBuilderOption: a function that sets the side
func WithSide(side Side) MaterialBuilderOption {
	return func(m *engineMaterial) {
		m.side = side
	}
}

// WithTransparent marks the material as blending over the framebuffer.
//
// Parameters:
//   - transparent: the transparency flag
//
// Returns:
//   - MaterialBuilderOption: a function that sets the flag
func WithTransparent(transparent bool) MaterialBuilderOption {
	return func(m *engineMaterial) {
		m.transparent = transparent
	}
}

// WithDepthTest enables or disables depth comparison.
//
// Parameters:
//   - enabled: the depth test flag
//
// Returns:
//   - MaterialBuilderOption: a function that sets the flag
func WithDepthTest(enabled bool) MaterialBuilderOption {
	return func(m *engineMaterial) {
		m.depthTest = enabled
	}
}

// WithDepthWrite enables or disables depth buffer writes.
//
// Parameters:
//   - enabled: the depth write flag
//
// Returns:
//   - MaterialBuilderOption: a function that sets the flag
func WithDepthWrite(enabled bool) MaterialBuilderOption {
	return func(m *engineMaterial) {
		m.depthWrite = enabled
	}
}

// WithBlendState sets the blend descriptor used when the material is
// transparent.
//
// Parameters:
//   - blend: the blend descriptor
//
// Returns:
//   - MaterialBuilderOption: a function that sets the descriptor
func WithBlendState(blend pipeline.BlendState) MaterialBuilderOption {
	return func(m *engineMaterial) {
		m.blend = blend
	}
}

// WithTopology sets the primitive assembly mode.
//
// Parameters:
//   - topology: the topology
//
// Returns:
//   - MaterialBuilderOption: a function that sets the topology
func WithTopology(topology pipeline.Topology) MaterialBuilderOption {
	return func(m *engineMaterial) {
		m.topology = topology
	}
}

// WithWorkgroups sets the compute dispatch dimensions.
//
// Parameters:
//   - x, y, z: workgroup counts per axis (values below 1 are clamped to 1)
//
// Returns:
//   - MaterialBuilderOption: a function that sets the dispatch size
func WithWorkgroups(x, y, z uint32) MaterialBuilderOption {
	return func(m *engineMaterial) {
		if x < 1 {
			x = 1
		}
		if y < 1 {
			y = 1
		}
		if z < 1 {
			z = 1
		}
		m.workgroups = [3]uint32{x, y, z}
	}
}
