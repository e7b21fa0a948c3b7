package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, uint16(4), Coalesce(uint16(4), 1))
	assert.Equal(t, uint16(1), Coalesce(uint16(0), 1))
	assert.Equal(t, 0, Coalesce(0, 0))
	assert.Equal(t, "fallback", Coalesce("", "fallback"))
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]float32(nil)))

	data := []float32{1, 2}
	raw := SliceToBytes(data)
	assert.Len(t, raw, 8)

	// The byte view shares memory with the source slice.
	data[0] = 0
	assert.Equal(t, byte(0), raw[3])
}
