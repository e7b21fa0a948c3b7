package uniform

import (
	"github.com/kestrel3d/kestrel/common"
)

// Packer writes named uniform values into a packed float32 buffer laid out by
// a Schema. The backing buffer is allocated exactly once, on first pack, and
// reused for every subsequent pack: buffer identity is tied to an expensive
// backend allocation, so it must stay stable while the schema is unchanged.
type Packer struct {
	schema *Schema
	buffer []float32
}

// NewPacker creates a Packer for a resolved schema.
//
// Parameters:
//   - schema: the layout to pack against
//
// Returns:
//   - *Packer: the packer, with no buffer allocated yet
func NewPacker(schema *Schema) *Packer {
	return &Packer{schema: schema}
}

// Schema returns the layout this packer writes.
func (p *Packer) Schema() *Schema { return p.schema }

// Pack writes the resolved value of every numeric schema member into the
// backing buffer and returns it. Members the resolver cannot supply keep
// their previous contents; a value whose shape disagrees with the schema is
// skipped with a warning rather than corrupting neighboring slots.
//
// Parameters:
//   - resolve: lookup returning the value for a member name
//
// Returns:
//   - []float32: the packed buffer, identical across calls
func (p *Packer) Pack(resolve func(name string) (Value, bool)) []float32 {
	if p.buffer == nil {
		p.buffer = make([]float32, p.schema.TotalSlots)
	}

	for _, m := range p.schema.Members {
		if m.Kind == KindTexture {
			continue
		}
		v, ok := resolve(m.Name)
		if !ok {
			continue
		}
		if v.Kind() != m.Kind {
			common.Logger().Warn("uniform value shape disagrees with schema",
				"member", m.Name, "declared", m.Kind.String(), "supplied", v.Kind().String())
			continue
		}
		p.write(m, v)
	}
	return p.buffer
}

// write copies a value's components into its member's slots. Mat3 columns pad
// to 4 slots each to honor the 4-slot alignment of the following member.
func (p *Packer) write(m Member, v Value) {
	dst := p.buffer[m.Offset : m.Offset+m.Slots]
	src := v.Floats()

	if m.Kind == KindMat3 {
		for col := 0; col < 3; col++ {
			copy(dst[col*4:col*4+3], src[col*3:col*3+3])
		}
		return
	}
	copy(dst, src)
}
