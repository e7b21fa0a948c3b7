package node

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/kestrel3d/kestrel/engine/geometry"
	"github.com/kestrel3d/kestrel/engine/material"
)

// NodeBuilderOption is a functional option used to configure a Node during construction.
type NodeBuilderOption func(*engineNode)

// WithName sets an optional debug name.
//
// Parameters:
//   - name: the name used in diagnostics
//
// Returns:
//   - NodeBuilderOption: a function that sets the name
func WithName(name string) NodeBuilderOption {
	return func(n *engineNode) {
		n.name = name
	}
}

// WithPosition sets the initial local translation.
//
// Parameters:
//   - p: the translation
//
// Returns:
//   - NodeBuilderOption: a function that sets the position
func WithPosition(p mgl32.Vec3) NodeBuilderOption {
	return func(n *engineNode) {
		n.position = p
	}
}

// WithRotation sets the initial local orientation.
//
// Parameters:
//   - q: the orientation quaternion
//
// Returns:
//   - NodeBuilderOption: a function that sets the rotation
func WithRotation(q mgl32.Quat) NodeBuilderOption {
	return func(n *engineNode) {
		n.rotation = q
	}
}

// WithScale sets the initial local scale.
//
// Parameters:
//   - s: the per-axis scale
//
// Returns:
//   - NodeBuilderOption: a function that sets the scale
func WithScale(s mgl32.Vec3) NodeBuilderOption {
	return func(n *engineNode) {
		n.scale = s
	}
}

// WithGeometry attaches a geometry, making the node drawable when a material
// is also present.
//
// Parameters:
//   - g: the geometry
//
// Returns:
//   - NodeBuilderOption: a function that sets the geometry
func WithGeometry(g geometry.Geometry) NodeBuilderOption {
	return func(n *engineNode) {
		n.geometry = g
	}
}

// WithMaterial attaches a material, making the node drawable when a geometry
// is also present.
//
// Parameters:
//   - m: the material
//
// Returns:
//   - NodeBuilderOption: a function that sets the material
func WithMaterial(m material.Material) NodeBuilderOption {
	return func(n *engineNode) {
		n.material = m
	}
}

// WithVisible sets the initial visibility flag.
//
// Parameters:
//   - visible: the flag value
//
// Returns:
//   - NodeBuilderOption: a function that sets the flag
func WithVisible(visible bool) NodeBuilderOption {
	return func(n *engineNode) {
		n.visible = visible
	}
}

// WithFrustumCulled sets the initial frustum-culling flag.
//
// Parameters:
//   - culled: the flag value
//
// Returns:
//   - NodeBuilderOption: a function that sets the flag
func WithFrustumCulled(culled bool) NodeBuilderOption {
	return func(n *engineNode) {
		n.frustumCulled = culled
	}
}
