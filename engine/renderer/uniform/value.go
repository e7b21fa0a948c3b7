// Package uniform implements uniform schema derivation and value packing.
// Schemas are parsed once per shader source pair by a regexp scan; values are
// tagged variants whose shape is fixed at construction, so the per-frame pack
// loop never branches on raw value representation.
package uniform

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/kestrel3d/kestrel/engine/texture"
)

// Kind identifies the shape of a uniform value or schema member.
type Kind int

const (
	KindInvalid Kind = iota
	KindScalar
	KindVec2
	KindVec3
	KindVec4
	KindMat3
	KindMat4
	KindTexture
)

// String returns the lowercase name of the kind for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindVec2:
		return "vec2"
	case KindVec3:
		return "vec3"
	case KindVec4:
		return "vec4"
	case KindMat3:
		return "mat3"
	case KindMat4:
		return "mat4"
	case KindTexture:
		return "texture"
	default:
		return "invalid"
	}
}

// slotCount returns the number of float32 slots a kind occupies in a packed
// buffer. Matrices pack column-major; mat3 columns pad to 4 slots each.
func (k Kind) slotCount() int {
	switch k {
	case KindScalar:
		return 1
	case KindVec2:
		return 2
	case KindVec3:
		return 3
	case KindVec4:
		return 4
	case KindMat3:
		return 12
	case KindMat4:
		return 16
	default:
		return 0
	}
}

// slotAlign returns the alignment boundary for a kind: scalars are unaligned,
// two-component values align to 2, everything wider aligns to 4.
func (k Kind) slotAlign() int {
	switch k {
	case KindScalar:
		return 1
	case KindVec2:
		return 2
	case KindVec3, KindVec4, KindMat3, KindMat4:
		return 4
	default:
		return 1
	}
}

// Value is a tagged uniform value. The shape is decided once at construction
// and never re-inspected per frame.
type Value struct {
	kind Kind
	data [16]float32
	tex  texture.Texture
}

// Scalar wraps a single float.
func Scalar(v float32) Value {
	return Value{kind: KindScalar, data: [16]float32{v}}
}

// Vec2 wraps a two-component vector.
func Vec2(v mgl32.Vec2) Value {
	return Value{kind: KindVec2, data: [16]float32{v.X(), v.Y()}}
}

// Vec3 wraps a three-component vector.
func Vec3(v mgl32.Vec3) Value {
	return Value{kind: KindVec3, data: [16]float32{v.X(), v.Y(), v.Z()}}
}

// Vec4 wraps a four-component vector.
func Vec4(v mgl32.Vec4) Value {
	return Value{kind: KindVec4, data: [16]float32{v.X(), v.Y(), v.Z(), v.W()}}
}

// Mat3 wraps a 3x3 matrix (column-major).
func Mat3(m mgl32.Mat3) Value {
	v := Value{kind: KindMat3}
	copy(v.data[:9], m[:])
	return v
}

// Mat4 wraps a 4x4 matrix (column-major).
func Mat4(m mgl32.Mat4) Value {
	v := Value{kind: KindMat4}
	copy(v.data[:], m[:])
	return v
}

// Texture wraps a texture handle. Texture values occupy no buffer slots;
// backends bind them through their own sampler machinery.
func Texture(t texture.Texture) Value {
	return Value{kind: KindTexture, tex: t}
}

// FromSlice builds a Value from a raw numeric slice, mapping lengths 1, 2, 3,
// 4, 9 and 16 to the corresponding kinds.
//
// Parameters:
//   - values: the raw numbers
//
// Returns:
//   - Value: the tagged value
//   - bool: false when the length maps to no recognized shape
func FromSlice(values []float32) (Value, bool) {
	var kind Kind
	switch len(values) {
	case 1:
		kind = KindScalar
	case 2:
		kind = KindVec2
	case 3:
		kind = KindVec3
	case 4:
		kind = KindVec4
	case 9:
		kind = KindMat3
	case 16:
		kind = KindMat4
	default:
		return Value{}, false
	}
	v := Value{kind: kind}
	copy(v.data[:], values)
	return v, true
}

// Kind returns the tagged shape of the value.
func (v Value) Kind() Kind { return v.kind }

// Floats returns the raw component values for numeric kinds. Mat3 returns 9
// components; padding to 12 slots happens during packing.
func (v Value) Floats() []float32 {
	switch v.kind {
	case KindScalar:
		return v.data[:1]
	case KindVec2:
		return v.data[:2]
	case KindVec3:
		return v.data[:3]
	case KindVec4:
		return v.data[:4]
	case KindMat3:
		return v.data[:9]
	case KindMat4:
		return v.data[:16]
	default:
		return nil
	}
}

// Texture returns the wrapped texture handle, or nil for numeric kinds.
func (v Value) Texture() texture.Texture { return v.tex }
