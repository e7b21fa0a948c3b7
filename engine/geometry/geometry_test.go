package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferViewSameLengthRewriteKeepsIdentity(t *testing.T) {
	v := NewBufferView([]float32{1, 2, 3}, 3)
	id := v.ResourceID()
	v.MarkUploaded()

	v.SetData([]float32{4, 5, 6})
	assert.Equal(t, id, v.ResourceID(), "same-length rewrite must keep the buffer identity")
	assert.True(t, v.NeedsUpload())
}

func TestBufferViewResizeBumpsIdentity(t *testing.T) {
	v := NewBufferView([]float32{1, 2, 3}, 3)
	id := v.ResourceID()

	v.SetData([]float32{1, 2, 3, 4, 5, 6})
	assert.NotEqual(t, id, v.ResourceID(), "resize must force reallocation via a fresh identity")
	assert.Equal(t, 2, v.Count())
}

func TestBufferViewStrideAndCount(t *testing.T) {
	v := NewBufferView(make([]float32, 12), 3)
	assert.Equal(t, 12, v.Stride())
	assert.Equal(t, 4, v.Count())
	assert.Equal(t, 0, v.Divisor())

	inst := NewBufferView(make([]float32, 16), 4, WithDivisor(1))
	assert.Equal(t, 1, inst.Divisor())
}

func TestNewBufferViewRejectsBadItemSize(t *testing.T) {
	assert.Panics(t, func() { NewBufferView(nil, 0) })
	assert.Panics(t, func() { NewBufferView(nil, 5) })
}

func TestSetAttributeBumpsGeometryIdentityOnlyForNewNames(t *testing.T) {
	g := NewGeometry()
	id0 := g.ResourceID()

	g.SetAttribute("position", NewBufferView([]float32{0, 0, 0}, 3))
	id1 := g.ResourceID()
	assert.NotEqual(t, id0, id1, "a new attribute changes the layout")

	g.SetAttribute("position", NewBufferView([]float32{1, 1, 1}, 3))
	assert.NotEqual(t, id1, id0)
	assert.Equal(t, id1, g.ResourceID(), "replacing an existing attribute keeps the layout identity")
}

func TestAttributeNamesKeepInsertionOrder(t *testing.T) {
	g := NewGeometry(
		WithAttribute("position", NewBufferView(make([]float32, 9), 3)),
		WithAttribute("normal", NewBufferView(make([]float32, 9), 3)),
		WithAttribute("uv", NewBufferView(make([]float32, 6), 2)),
	)
	assert.Equal(t, []string{"position", "normal", "uv"}, g.AttributeNames())
}

func TestBoundingRadius(t *testing.T) {
	g := NewGeometry(WithAttribute("position", NewBufferView([]float32{
		1, 0, 0,
		0, -3, 0,
		0, 0, 2,
	}, 3)))
	assert.InDelta(t, 3.0, float64(g.BoundingRadius()), 1e-6)
}

func TestBoundingRadiusWithoutPosition(t *testing.T) {
	g := NewGeometry()
	assert.Zero(t, g.BoundingRadius())
}

func TestDisposeCascadesToViews(t *testing.T) {
	pos := NewBufferView(make([]float32, 3), 3)
	idx := NewIndexView([]uint32{0})
	g := NewGeometry(WithAttribute("position", pos), WithIndex(idx))

	var released []string
	pos.OnDispose(func() { released = append(released, "position") })
	idx.OnDispose(func() { released = append(released, "index") })
	g.OnDispose(func() { released = append(released, "layout") })

	g.Dispose()
	require.ElementsMatch(t, []string{"position", "index", "layout"}, released)

	g.Dispose()
	assert.Len(t, released, 3, "second dispose must be a no-op")
}

func TestDrawRange(t *testing.T) {
	g := NewGeometry(WithDrawRange(3, 6))
	start, count := g.DrawRange()
	assert.Equal(t, 3, start)
	assert.Equal(t, 6, count)

	g.SetDrawRange(0, -1)
	start, count = g.DrawRange()
	assert.Equal(t, 0, start)
	assert.Equal(t, -1, count)
}

func TestIndexViewIdentitySemantics(t *testing.T) {
	v := NewIndexView([]uint32{0, 1, 2})
	id := v.ResourceID()

	v.SetData([]uint32{2, 1, 0})
	assert.Equal(t, id, v.ResourceID())

	v.SetData([]uint32{0, 1, 2, 2, 3, 0})
	assert.NotEqual(t, id, v.ResourceID())
	assert.Equal(t, 6, v.Count())
}
