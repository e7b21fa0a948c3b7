package renderer

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"

	"github.com/kestrel3d/kestrel/engine/texture"
)

func TestWGPUSamplerModeMapping(t *testing.T) {
	assert.Equal(t, wgpu.FilterModeNearest, wgpuFilter(texture.FilterNearest))
	assert.Equal(t, wgpu.FilterModeLinear, wgpuFilter(texture.FilterLinear))

	assert.Equal(t, wgpu.AddressModeClampToEdge, wgpuAddressMode(texture.WrapClampToEdge))
	assert.Equal(t, wgpu.AddressModeRepeat, wgpuAddressMode(texture.WrapRepeat))
	assert.Equal(t, wgpu.AddressModeMirrorRepeat, wgpuAddressMode(texture.WrapMirrorRepeat))
}
