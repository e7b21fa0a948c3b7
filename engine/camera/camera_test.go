package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel3d/kestrel/common"
)

func TestViewIsInverseOfWorld(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{0, 0, 10}))
	c.UpdateWorld()

	identity := c.World().Mul4(c.View())
	for i, want := range mgl32.Ident4() {
		assert.InDelta(t, want, identity[i], 1e-5)
	}
}

func TestFrustumExtractionRows(t *testing.T) {
	// Identity view, symmetric perspective: fov 90, aspect 1, near 1, far 100.
	c := NewCamera(WithPerspective(mgl32.DegToRad(90), 1, 1, 100))
	c.UpdateWorld()
	combined := c.Combined()

	row := func(i int) mgl32.Vec4 {
		return mgl32.Vec4{combined[i], combined[4+i], combined[8+i], combined[12+i]}
	}
	r0, r3 := row(0), row(3)

	f := c.Frustum(false)

	left := r3.Sub(r0)
	leftLen := left.Vec3().Len()
	assert.InDelta(t, left.X()/leftLen, f.Planes[common.FrustumLeft].Normal.X(), 1e-5)
	assert.InDelta(t, left.Y()/leftLen, f.Planes[common.FrustumLeft].Normal.Y(), 1e-5)
	assert.InDelta(t, left.Z()/leftLen, f.Planes[common.FrustumLeft].Normal.Z(), 1e-5)
	assert.InDelta(t, left.W()/leftLen, f.Planes[common.FrustumLeft].Distance, 1e-5)

	right := r3.Add(r0)
	rightLen := right.Vec3().Len()
	assert.InDelta(t, right.X()/rightLen, f.Planes[common.FrustumRight].Normal.X(), 1e-5)
	assert.InDelta(t, right.W()/rightLen, f.Planes[common.FrustumRight].Distance, 1e-5)
}

func TestUnitSphereAtOriginIsInsideDefaultFrustum(t *testing.T) {
	// Default perspective: fov 75, near 0.1, far 1000; camera pulled back so
	// the origin is in front of it.
	c := NewCamera(
		WithPerspective(mgl32.DegToRad(75), 16.0/9.0, 0.1, 1000),
		WithPosition(mgl32.Vec3{0, 0, 5}),
	)
	c.UpdateWorld()

	f := c.Frustum(false)
	assert.True(t, f.ContainsSphere(mgl32.Vec3{0, 0, 0}, 1))
}

func TestSphereBehindCameraIsExcluded(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{0, 0, 5}))
	c.UpdateWorld()

	f := c.Frustum(false)
	assert.False(t, f.ContainsSphere(mgl32.Vec3{0, 0, 50}, 1), "sphere behind the near plane")
	assert.False(t, f.ContainsSphere(mgl32.Vec3{0, 0, -2000}, 1), "sphere beyond the far plane")
}

func TestZeroToOneFrustumStillContainsScene(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{0, 0, 5}))
	c.UpdateWorld()

	f := c.Frustum(true)
	assert.True(t, f.ContainsSphere(mgl32.Vec3{0, 0, 0}, 1))
	assert.False(t, f.ContainsSphere(mgl32.Vec3{0, 0, 50}, 1))
}

func TestFrustumCachedPerPass(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{0, 0, 5}))
	c.UpdateWorld()

	f1 := c.Frustum(false)
	f2 := c.Frustum(false)
	assert.Equal(t, f1, f2)

	c.SetPosition(mgl32.Vec3{0, 0, -5})
	c.UpdateWorld()
	f3 := c.Frustum(false)
	assert.NotEqual(t, f1, f3, "a new transform pass re-extracts the frustum")
}

func TestCameraIsNotFrustumCulled(t *testing.T) {
	c := NewCamera()
	require.False(t, c.FrustumCulled())
	assert.False(t, c.IsDrawable())
}
