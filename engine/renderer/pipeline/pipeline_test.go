package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseState() State {
	return State{
		Transparent:  false,
		CullMode:     CullBack,
		Topology:     TopologyTriangles,
		DepthWrite:   true,
		DepthCompare: CompareLess,
		Layout: []VertexAttribute{
			{Name: "position", Format: FormatFloat32x3, Stride: 12},
			{Name: "uv", Format: FormatFloat32x2, Stride: 8},
		},
		AttachmentCount: 1,
		SampleCount:     1,
	}
}

func TestKeyIsDeterministicAcrossInstances(t *testing.T) {
	a := baseState()
	b := baseState()
	// Distinct layout slices with equal contents must not change the key.
	b.Layout = append([]VertexAttribute(nil), a.Layout...)
	assert.Equal(t, a.Key(), b.Key())
}

func TestKeyChangesWhenAnyFieldFlips(t *testing.T) {
	base := baseState()

	mutations := map[string]func(*State){
		"transparent":     func(s *State) { s.Transparent = true },
		"cullMode":        func(s *State) { s.CullMode = CullNone },
		"topology":        func(s *State) { s.Topology = TopologyLines },
		"depthWrite":      func(s *State) { s.DepthWrite = false },
		"depthCompare":    func(s *State) { s.DepthCompare = CompareAlways },
		"blend":           func(s *State) { s.Blend = AlphaBlend() },
		"attachmentCount": func(s *State) { s.AttachmentCount = 2 },
		"sampleCount":     func(s *State) { s.SampleCount = 4 },
		"layoutFormat":    func(s *State) { s.Layout[1].Format = FormatFloat32x4 },
		"layoutDivisor":   func(s *State) { s.Layout[0].Divisor = 1 },
	}
	for name, mutate := range mutations {
		s := baseState()
		s.Layout = append([]VertexAttribute(nil), base.Layout...)
		mutate(&s)
		assert.NotEqual(t, base.Key(), s.Key(), "mutation %q must change the key", name)
	}
}

func TestCacheSharesByKey(t *testing.T) {
	c := NewCache()
	key := baseState().Key()

	_, ok := c.Get(key)
	require.False(t, ok)

	c.Set(key, "compiled")
	h, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "compiled", h)
	assert.Equal(t, 1, c.Len())

	// Same structural state from a distinct instance hits the same entry.
	h2, ok := c.Get(baseState().Key())
	require.True(t, ok)
	assert.Equal(t, h, h2)
}

func TestCachePurgeDisposesEachOnce(t *testing.T) {
	c := NewCache()
	c.Set("a", 1)
	c.Set("b", 2)

	disposed := map[any]int{}
	c.Purge(func(h any) { disposed[h]++ })

	assert.Equal(t, map[any]int{1: 1, 2: 1}, disposed)
	assert.Equal(t, 0, c.Len())
}

func TestAttributeFormatComponents(t *testing.T) {
	assert.Equal(t, 1, FormatFloat32.Components())
	assert.Equal(t, 2, FormatFloat32x2.Components())
	assert.Equal(t, 3, FormatFloat32x3.Components())
	assert.Equal(t, 4, FormatFloat32x4.Components())
}
