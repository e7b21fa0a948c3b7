package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption is a functional option used to configure a Camera during construction.
type CameraBuilderOption func(*engineCamera)

// WithPerspective sets a perspective projection.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport width / height
//   - near: near plane distance (> 0)
//   - far: far plane distance (> near)
//
// Returns:
//   - CameraBuilderOption: a function that sets the projection
func WithPerspective(fovY, aspect, near, far float32) CameraBuilderOption {
	return func(c *engineCamera) {
		c.projection = mgl32.Perspective(fovY, aspect, near, far)
	}
}

// WithProjection sets the projection matrix directly.
//
// Parameters:
//   - m: the projection matrix
//
// Returns:
//   - CameraBuilderOption: a function that sets the projection
func WithProjection(m mgl32.Mat4) CameraBuilderOption {
	return func(c *engineCamera) {
		c.projection = m
	}
}

// WithPosition sets the camera's initial world position.
//
// Parameters:
//   - p: the translation
//
// Returns:
//   - CameraBuilderOption: a function that positions the camera
func WithPosition(p mgl32.Vec3) CameraBuilderOption {
	return func(c *engineCamera) {
		c.Node.SetPosition(p)
		c.Node.UpdateWorld()
	}
}
