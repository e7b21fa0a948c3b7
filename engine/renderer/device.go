package renderer

// BackendType selects which GPU implementation a device is acquired for.
type BackendType int

const (
	// BackendTypeWGPU is the compute-capable WebGPU backend.
	BackendTypeWGPU BackendType = iota

	// BackendTypeGL is the rasterization-oriented OpenGL 4.1 core backend.
	// It cannot dispatch compute work.
	BackendTypeGL
)

// Device is an owned GPU device handle acquired once at startup and passed
// into NewRenderer. There is no module-scope device: ownership is explicit,
// and tests substitute a device over a fake backend.
type Device interface {
	// Name identifies the underlying backend for diagnostics.
	Name() string

	// Type returns the backend selection this device was acquired for.
	Type() BackendType

	// ClipZeroToOne reports the device's clip-space z convention.
	ClipZeroToOne() bool

	// Release frees the device and everything the backend owns. The device
	// must outlive every renderer constructed from it.
	Release()

	// backend exposes the command interface to the renderer.
	backend() Backend
}

type engineDevice struct {
	typ BackendType
	b   Backend
}

var _ Device = &engineDevice{}

// AcquireDevice performs the one-time device acquisition for the selected
// backend. For WebGPU this blocks on the asynchronous adapter and device
// requests; for GL it binds to the calling goroutine's current context. It
// must complete before any rendering proceeds.
//
// Parameters:
//   - options: functional options selecting backend, surface and initial size
//
// Returns:
//   - Device: the owned device
//   - error: error if acquisition fails
func AcquireDevice(options ...DeviceBuilderOption) (Device, error) {
	cfg := &deviceConfig{
		typ:         BackendTypeWGPU,
		width:       1280,
		height:      720,
		sampleCount: 1,
	}
	for _, opt := range options {
		opt(cfg)
	}

	var b Backend
	var err error
	switch cfg.typ {
	case BackendTypeGL:
		b, err = newGLBackend(cfg.width, cfg.height)
	default:
		b, err = newWGPUBackend(cfg.surface, cfg.width, cfg.height, cfg.sampleCount)
	}
	if err != nil {
		return nil, err
	}
	return &engineDevice{typ: cfg.typ, b: b}, nil
}

// newDeviceWithBackend wraps an existing backend as a Device. Used by tests
// to substitute a fake backend for the real GPU.
func newDeviceWithBackend(typ BackendType, b Backend) Device {
	return &engineDevice{typ: typ, b: b}
}

func (d *engineDevice) Name() string        { return d.b.Name() }
func (d *engineDevice) Type() BackendType   { return d.typ }
func (d *engineDevice) ClipZeroToOne() bool { return d.b.ClipZeroToOne() }
func (d *engineDevice) Release()            { d.b.Dispose() }
func (d *engineDevice) backend() Backend    { return d.b }
