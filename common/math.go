// Package common contains shared math and data-conversion helpers used
// throughout the engine. These are plain functions and structs, not
// interface-wrapped types.
package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Compose builds a 4x4 world matrix from a translation, an orientation and a
// per-axis scale, in that multiplication order (translate * rotate * scale).
// All matrices are column-major per the mgl32 convention.
//
// Parameters:
//   - position: translation in parent space
//   - rotation: orientation quaternion (should be unit length)
//   - scale: per-axis scale factors
//
// Returns:
//   - mgl32.Mat4: the composed transform
func Compose(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(position.X(), position.Y(), position.Z())
	r := rotation.Mat4()
	s := mgl32.Scale3D(scale.X(), scale.Y(), scale.Z())
	return t.Mul4(r).Mul4(s)
}

// MaxScale returns the largest per-axis scale magnitude encoded in a world
// matrix. Used to scale bounding-sphere radii conservatively under
// non-uniform scaling.
//
// Parameters:
//   - m: world matrix (column-major)
//
// Returns:
//   - float32: the largest of the three basis-column lengths
func MaxScale(m mgl32.Mat4) float32 {
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	max := sx
	if sy > max {
		max = sy
	}
	if sz > max {
		max = sz
	}
	return max
}

// ZeroToOneProjection converts a projection matrix built for the [-1, 1]
// clip-space z range to the [0, 1] range some backends consume: z' = 0.5z +
// 0.5w, applied by premultiplying a scale-and-shift along z.
//
// Parameters:
//   - m: a [-1, 1] projection matrix
//
// Returns:
//   - mgl32.Mat4: the [0, 1] equivalent
func ZeroToOneProjection(m mgl32.Mat4) mgl32.Mat4 {
	convert := mgl32.Translate3D(0, 0, 0.5).Mul4(mgl32.Scale3D(1, 1, 0.5))
	return convert.Mul4(m)
}

// TranslationOf extracts the world-space translation column of a matrix.
//
// Parameters:
//   - m: world matrix (column-major)
//
// Returns:
//   - mgl32.Vec3: the translation component
func TranslationOf(m mgl32.Mat4) mgl32.Vec3 {
	return m.Col(3).Vec3()
}
