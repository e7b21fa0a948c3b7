// Package pipeline defines the backend-agnostic pipeline state tuple and its
// keyed cache. Two draws with structurally identical state share one compiled
// backend pipeline; recompilation happens only when the serialized key
// changes.
package pipeline

import (
	"fmt"
	"strings"
)

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// Topology selects the primitive assembly mode.
type Topology int

const (
	TopologyTriangles Topology = iota
	TopologyTriangleStrip
	TopologyLines
	TopologyLineStrip
	TopologyPoints
)

// CompareFunc selects the depth comparison. CompareAlways expresses a
// disabled depth test.
type CompareFunc int

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

// BlendOp selects the blend equation operator.
type BlendOp int

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

// BlendFactor selects a blend equation operand scale.
type BlendFactor int

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstColor
	BlendOneMinusDstColor
	BlendDstAlpha
	BlendOneMinusDstAlpha
)

// BlendComponent is one half of a blend descriptor (color or alpha).
type BlendComponent struct {
	Op  BlendOp
	Src BlendFactor
	Dst BlendFactor
}

// BlendState is the full blend descriptor for one attachment.
type BlendState struct {
	Color BlendComponent
	Alpha BlendComponent
}

// AlphaBlend returns the standard premultiplied-style alpha blend used for
// transparent materials.
//
// Returns:
//   - BlendState: srcAlpha/oneMinusSrcAlpha color, one/oneMinusSrcAlpha alpha
func AlphaBlend() BlendState {
	return BlendState{
		Color: BlendComponent{Op: BlendOpAdd, Src: BlendSrcAlpha, Dst: BlendOneMinusSrcAlpha},
		Alpha: BlendComponent{Op: BlendOpAdd, Src: BlendOne, Dst: BlendOneMinusSrcAlpha},
	}
}

// AttributeFormat identifies a vertex attribute's component layout.
type AttributeFormat int

const (
	FormatFloat32 AttributeFormat = iota
	FormatFloat32x2
	FormatFloat32x3
	FormatFloat32x4
)

// Components returns the float component count of the format.
func (f AttributeFormat) Components() int {
	switch f {
	case FormatFloat32:
		return 1
	case FormatFloat32x2:
		return 2
	case FormatFloat32x3:
		return 3
	case FormatFloat32x4:
		return 4
	default:
		return 0
	}
}

// VertexAttribute describes one named vertex input: its format, the byte
// stride of its backing view and its per-instance divisor (0 = per vertex).
type VertexAttribute struct {
	Name    string
	Format  AttributeFormat
	Stride  int
	Divisor int
}

// State is the complete fixed-function tuple a compiled pipeline depends on.
// Shader identity is carried separately (per material); State covers the
// structural remainder.
type State struct {
	Transparent     bool
	CullMode        CullMode
	Topology        Topology
	DepthWrite      bool
	DepthCompare    CompareFunc
	Layout          []VertexAttribute
	Blend           BlendState
	AttachmentCount int
	SampleCount     int
}

// Key returns a deterministic value-serialization of the tuple. Structurally
// identical states produce identical keys even across distinct instances, so
// the key is safe to use as the pipeline cache key.
//
// Returns:
//   - string: the serialized tuple
func (s State) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "t%v|c%d|p%d|w%v|d%d|a%d|s%d",
		s.Transparent, s.CullMode, s.Topology, s.DepthWrite, s.DepthCompare,
		s.AttachmentCount, s.SampleCount)
	fmt.Fprintf(&b, "|b%d.%d.%d-%d.%d.%d",
		s.Blend.Color.Op, s.Blend.Color.Src, s.Blend.Color.Dst,
		s.Blend.Alpha.Op, s.Blend.Alpha.Src, s.Blend.Alpha.Dst)
	for _, a := range s.Layout {
		fmt.Fprintf(&b, "|v%s.%d.%d.%d", a.Name, a.Format, a.Stride, a.Divisor)
	}
	return b.String()
}
