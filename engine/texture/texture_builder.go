package texture

// TextureBuilderOption is a functional option used to configure a Texture during construction.
type TextureBuilderOption func(*engineTexture)

// WithPixels sets the initial RGBA pixel data, marking the texture ready.
//
// Parameters:
//   - pixels: RGBA data, 4 bytes per texel, row-major
//   - width: width in texels
//   - height: height in texels
//
// Returns:
//   - TextureBuilderOption: a function that sets the pixel data
func WithPixels(pixels []byte, width, height uint32) TextureBuilderOption {
	return func(t *engineTexture) {
		t.pixels = pixels
		t.width = width
		t.height = height
		t.ready = true
		t.dirty = true
	}
}

// WithSampler sets the sampler configuration for this texture.
//
// Parameters:
//   - s: the sampler configuration to use
//
// Returns:
//   - TextureBuilderOption: a function that sets the sampler configuration
func WithSampler(s SamplerConfig) TextureBuilderOption {
	return func(t *engineTexture) {
		t.sampler = s
	}
}
