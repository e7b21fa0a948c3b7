package renderer

import "github.com/cogentcore/webgpu/wgpu"

type deviceConfig struct {
	typ         BackendType
	surface     *wgpu.SurfaceDescriptor
	width       int
	height      int
	sampleCount int
}

// DeviceBuilderOption is a functional option used to configure device acquisition.
type DeviceBuilderOption func(*deviceConfig)

// WithBackendType selects the backend implementation to acquire.
//
// Parameters:
//   - typ: BackendTypeWGPU or BackendTypeGL
//
// Returns:
//   - DeviceBuilderOption: a function that sets the backend type
func WithBackendType(typ BackendType) DeviceBuilderOption {
	return func(cfg *deviceConfig) {
		cfg.typ = typ
	}
}

// WithSurfaceDescriptor supplies the platform surface the WebGPU backend
// presents to. Ignored by the GL backend, which presents through the current
// context's default framebuffer.
//
// Parameters:
//   - desc: the platform surface descriptor (from the window package)
//
// Returns:
//   - DeviceBuilderOption: a function that sets the surface
func WithSurfaceDescriptor(desc *wgpu.SurfaceDescriptor) DeviceBuilderOption {
	return func(cfg *deviceConfig) {
		cfg.surface = desc
	}
}

// WithInitialSize sets the initial surface dimensions.
//
// Parameters:
//   - width: surface width in pixels
//   - height: surface height in pixels
//
// Returns:
//   - DeviceBuilderOption: a function that sets the size
func WithInitialSize(width, height int) DeviceBuilderOption {
	return func(cfg *deviceConfig) {
		if width > 0 {
			cfg.width = width
		}
		if height > 0 {
			cfg.height = height
		}
	}
}

// WithMSAASampleCount sets the multisample count for the default surface's
// attachments. A renderer built over this device should be configured with the
// same count through WithSampleCount so compiled pipelines match the surface.
//
// Parameters:
//   - count: samples per pixel, typically 1 or 4
//
// Returns:
//   - DeviceBuilderOption: a function that sets the sample count
func WithMSAASampleCount(count int) DeviceBuilderOption {
	return func(cfg *deviceConfig) {
		if count > 1 {
			cfg.sampleCount = count
		}
	}
}
