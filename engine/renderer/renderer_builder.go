package renderer

// RendererBuilderOption is a functional option used to configure a Renderer.
type RendererBuilderOption func(*engineRenderer)

// WithAutoClear controls whether every frame clears color, depth and stencil
// before traversal. Defaults to true.
//
// Parameters:
//   - autoClear: true to clear at the start of every frame
//
// Returns:
//   - RendererBuilderOption: a function that sets the auto-clear flag
func WithAutoClear(autoClear bool) RendererBuilderOption {
	return func(r *engineRenderer) {
		r.autoClear = autoClear
	}
}

// WithClearColor sets the color used by the per-frame clear. Defaults to
// opaque black.
//
// Parameters:
//   - red: red component in [0, 1]
//   - green: green component in [0, 1]
//   - blue: blue component in [0, 1]
//   - alpha: alpha component in [0, 1]
//
// Returns:
//   - RendererBuilderOption: a function that sets the clear color
func WithClearColor(red, green, blue, alpha float32) RendererBuilderOption {
	return func(r *engineRenderer) {
		r.clearColor = [4]float32{red, green, blue, alpha}
	}
}

// WithSampleCount sets the MSAA sample count for the default surface.
// Defaults to 1 (no multisampling). Values below 1 are clamped to 1.
//
// Parameters:
//   - count: samples per pixel, typically 1 or 4
//
// Returns:
//   - RendererBuilderOption: a function that sets the sample count
func WithSampleCount(count int) RendererBuilderOption {
	return func(r *engineRenderer) {
		if count < 1 {
			count = 1
		}
		r.sampleCount = count
	}
}
