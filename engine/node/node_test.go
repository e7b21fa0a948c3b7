package node

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel3d/kestrel/common"
	"github.com/kestrel3d/kestrel/engine/geometry"
	"github.com/kestrel3d/kestrel/engine/material"
)

func assertMat4Near(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "element %d", i)
	}
}

func TestUpdateWorldRootEqualsLocal(t *testing.T) {
	n := NewNode(
		WithPosition(mgl32.Vec3{1, 2, 3}),
		WithRotation(mgl32.QuatRotate(0.5, mgl32.Vec3{0, 1, 0})),
		WithScale(mgl32.Vec3{2, 2, 2}),
	)
	n.UpdateWorld()

	local := common.Compose(n.Position(), n.Rotation(), n.Scale())
	assertMat4Near(t, local, n.World())
}

func TestUpdateWorldComposesWithParent(t *testing.T) {
	parent := NewNode(WithPosition(mgl32.Vec3{10, 0, 0}))
	child := NewNode(WithPosition(mgl32.Vec3{0, 5, 0}))
	grandchild := NewNode(WithPosition(mgl32.Vec3{0, 0, 2}))
	parent.Add(child)
	child.Add(grandchild)

	parent.UpdateWorld()

	childLocal := common.Compose(child.Position(), child.Rotation(), child.Scale())
	assertMat4Near(t, parent.World().Mul4(childLocal), child.World())

	gcLocal := common.Compose(grandchild.Position(), grandchild.Rotation(), grandchild.Scale())
	assertMat4Near(t, child.World().Mul4(gcLocal), grandchild.World())

	pos := common.TranslationOf(grandchild.World())
	assert.InDelta(t, 10, float64(pos.X()), 1e-5)
	assert.InDelta(t, 5, float64(pos.Y()), 1e-5)
	assert.InDelta(t, 2, float64(pos.Z()), 1e-5)
}

func TestFrozenNodeStillPropagates(t *testing.T) {
	parent := NewNode(WithPosition(mgl32.Vec3{1, 0, 0}))
	child := NewNode(WithPosition(mgl32.Vec3{0, 1, 0}))
	parent.Add(child)

	parent.SetAutoUpdate(false)
	frozen := mgl32.Translate3D(100, 0, 0)
	parent.SetWorld(frozen)

	parent.UpdateWorld()
	assertMat4Near(t, frozen, parent.World())

	pos := common.TranslationOf(child.World())
	assert.InDelta(t, 100, float64(pos.X()), 1e-5, "children compose against the frozen matrix")
	assert.InDelta(t, 1, float64(pos.Y()), 1e-5)
}

func TestVisitPrunesSubtree(t *testing.T) {
	root := NewNode(WithName("root"))
	hidden := NewNode(WithName("hidden"))
	leaf := NewNode(WithName("leaf"))
	sibling := NewNode(WithName("sibling"))
	root.Add(hidden)
	hidden.Add(leaf)
	root.Add(sibling)

	var seen []string
	root.Visit(func(n Node) bool {
		seen = append(seen, n.Name())
		return n.Name() != "hidden"
	})
	assert.Equal(t, []string{"root", "hidden", "sibling"}, seen, "pruning skips the subtree but not siblings")
}

func TestAddRemoveMaintainsParent(t *testing.T) {
	parent := NewNode()
	child := NewNode()
	parent.Add(child)
	require.Len(t, parent.Children(), 1)
	assert.Equal(t, parent, child.Parent())

	parent.Remove(child)
	assert.Empty(t, parent.Children())
	assert.Nil(t, child.Parent())

	// Removing a non-child is a no-op.
	parent.Remove(child)
	assert.Empty(t, parent.Children())
}

func TestIsDrawable(t *testing.T) {
	plain := NewNode()
	assert.False(t, plain.IsDrawable())

	g := geometry.NewGeometry()
	m := material.NewMaterial()
	drawable := NewNode(WithGeometry(g), WithMaterial(m))
	assert.True(t, drawable.IsDrawable())
	assert.Equal(t, g, drawable.Geometry())
	assert.Equal(t, m, drawable.Material())

	geometryOnly := NewNode(WithGeometry(g))
	assert.False(t, geometryOnly.IsDrawable())
}

func TestDefaults(t *testing.T) {
	n := NewNode()
	assert.True(t, n.AutoUpdate())
	assert.True(t, n.Visible())
	assert.True(t, n.FrustumCulled())
	assert.Equal(t, mgl32.Ident4(), n.World())
}
