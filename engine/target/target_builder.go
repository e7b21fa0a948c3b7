package target

import "github.com/kestrel3d/kestrel/engine/texture"

// TargetBuilderOption is a functional option used to configure a RenderTarget during construction.
type TargetBuilderOption func(*engineTarget)

// WithSize sets the target dimensions in pixels.
//
// Parameters:
//   - width: width in pixels
//   - height: height in pixels
//
// Returns:
//   - TargetBuilderOption: a function that sets the size
func WithSize(width, height int) TargetBuilderOption {
	return func(t *engineTarget) {
		if width > 0 {
			t.width = width
		}
		if height > 0 {
			t.height = height
		}
	}
}

// WithAttachments sets the color attachment samplers, one per attachment.
//
// Parameters:
//   - samplers: sampler configuration per color attachment (at least one)
//
// Returns:
//   - TargetBuilderOption: a function that sets the attachments
func WithAttachments(samplers ...texture.SamplerConfig) TargetBuilderOption {
	return func(t *engineTarget) {
		if len(samplers) > 0 {
			t.attachments = samplers
		}
	}
}
