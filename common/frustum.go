package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a plane in 3D space using the equation ax + by + cz + d = 0,
// where (a, b, c) is the normal and d is the signed distance from the origin.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// DistanceTo returns the signed distance from a point to the plane.
// Positive means the point lies on the side the normal points toward.
//
// Parameters:
//   - p: the point in world space
//
// Returns:
//   - float32: the signed distance
func (pl Plane) DistanceTo(p mgl32.Vec3) float32 {
	return pl.Normal.Dot(p) + pl.Distance
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that the positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// Frustum plane indices.
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustum extracts the six frustum planes from a combined
// projection * view matrix using the Gribb/Hartmann method: each plane is a
// signed combination of the matrix's w row with one of the x/y/z rows.
//
// When clipZeroToOne is true the matrix is assumed to have been built for a
// [-1, 1] clip-space z range while the backend consumes [0, 1]; the near
// plane is then rebuilt from the converted z row (half the z-row contribution
// with the w row folded in). The other five planes are unaffected by the
// z-range convention.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the combined projection * view matrix (column-major)
//   - clipZeroToOne: true when the backend clip-space z range is [0, 1]
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustum(viewProj mgl32.Mat4, clipZeroToOne bool) Frustum {
	// For a column-major matrix, M[row][col] is at index col*4 + row.
	row := func(i int) mgl32.Vec4 {
		return mgl32.Vec4{viewProj[i], viewProj[4+i], viewProj[8+i], viewProj[12+i]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	var f Frustum
	f.Planes[FrustumLeft] = planeFromRow(r3.Sub(r0))
	f.Planes[FrustumRight] = planeFromRow(r3.Add(r0))
	f.Planes[FrustumBottom] = planeFromRow(r3.Sub(r1))
	f.Planes[FrustumTop] = planeFromRow(r3.Add(r1))
	f.Planes[FrustumNear] = planeFromRow(r3.Add(r2))
	f.Planes[FrustumFar] = planeFromRow(r3.Sub(r2))

	if clipZeroToOne {
		f.Planes[FrustumNear] = planeFromRow(r2.Mul(0.5).Add(r3.Mul(0.5)))
	}

	for i := range f.Planes {
		f.Planes[i] = normalizePlane(f.Planes[i])
	}
	return f
}

// ContainsSphere reports whether a bounding sphere intersects the frustum.
// The test is conservative: a sphere is rejected only when it lies entirely
// behind at least one plane, so borderline spheres are kept.
//
// Parameters:
//   - center: sphere center in world space
//   - radius: sphere radius
//
// Returns:
//   - bool: false only when the sphere is fully outside
func (f Frustum) ContainsSphere(center mgl32.Vec3, radius float32) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceTo(center) <= -radius {
			return false
		}
	}
	return true
}

func planeFromRow(r mgl32.Vec4) Plane {
	return Plane{Normal: r.Vec3(), Distance: r.W()}
}

func normalizePlane(p Plane) Plane {
	length := float32(math.Sqrt(float64(p.Normal.Dot(p.Normal))))
	if length > 0 {
		inv := 1.0 / length
		p.Normal = p.Normal.Mul(inv)
		p.Distance *= inv
	}
	return p
}
