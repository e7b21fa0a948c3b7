// Package camera provides the camera node: a scene node that additionally
// derives view, combined and frustum data from its world matrix during the
// transform pass.
package camera

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kestrel3d/kestrel/common"
	"github.com/kestrel3d/kestrel/engine/node"
)

// Camera is a scene node with projection state. After each transform pass it
// exposes view = invert(world), combined = projection * view and the frustum
// planes extracted from the combined matrix.
type Camera interface {
	node.Node

	// Projection returns the projection matrix (built for a [-1, 1] clip-z
	// range; zero-to-one backends convert during frustum extraction and in
	// their own uniform plumbing).
	Projection() mgl32.Mat4

	// SetProjection installs a projection matrix directly.
	//
	// Parameters:
	//   - m: the projection matrix
	SetProjection(m mgl32.Mat4)

	// SetPerspective rebuilds the projection from perspective parameters.
	//
	// Parameters:
	//   - fovY: vertical field of view in radians
	//   - aspect: viewport width / height
	//   - near: near plane distance (> 0)
	//   - far: far plane distance (> near)
	SetPerspective(fovY, aspect, near, far float32)

	// View returns the view matrix from the last transform pass.
	View() mgl32.Mat4

	// Combined returns projection * view from the last transform pass.
	Combined() mgl32.Mat4

	// Frustum returns the six culling planes for the current combined
	// matrix. The zero-to-one near-plane conversion runs at most once per
	// transform pass per convention; repeated calls return the cached set.
	//
	// Parameters:
	//   - clipZeroToOne: true when the backend clip-space z range is [0, 1]
	//
	// Returns:
	//   - common.Frustum: the culling planes
	Frustum(clipZeroToOne bool) common.Frustum
}

type engineCamera struct {
	node.Node

	mu         *sync.Mutex
	projection mgl32.Mat4
	view       mgl32.Mat4
	combined   mgl32.Mat4

	// gen stamps each transform pass so frustum extraction runs once per
	// pass per clip convention.
	gen        uint64
	frustum    [2]common.Frustum
	frustumGen [2]uint64
}

var _ Camera = &engineCamera{}

// NewCamera creates a camera with the specified options. The default
// projection is a 75 degree perspective at 16:9 with near 0.1 and far 1000.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the configured camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &engineCamera{
		Node:       node.NewNode(node.WithName("camera"), node.WithFrustumCulled(false)),
		mu:         &sync.Mutex{},
		projection: mgl32.Perspective(mgl32.DegToRad(75), 16.0/9.0, 0.1, 1000),
		view:       mgl32.Ident4(),
		combined:   mgl32.Ident4(),
		gen:        1,
	}
	for _, opt := range options {
		opt(c)
	}
	c.refresh()
	return c
}

func (c *engineCamera) Projection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *engineCamera) SetProjection(m mgl32.Mat4) {
	c.mu.Lock()
	c.projection = m
	c.mu.Unlock()
	c.refresh()
}

func (c *engineCamera) SetPerspective(fovY, aspect, near, far float32) {
	c.SetProjection(mgl32.Perspective(fovY, aspect, near, far))
}

func (c *engineCamera) View() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *engineCamera) Combined() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.combined
}

func (c *engineCamera) UpdateWorld() {
	c.Node.UpdateWorld()
	c.refresh()
}

// refresh derives view and combined from the current world matrix and
// invalidates the cached frustums.
func (c *engineCamera) refresh() {
	world := c.Node.World()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = world.Inv()
	c.combined = c.projection.Mul4(c.view)
	c.gen++
}

func (c *engineCamera) Frustum(clipZeroToOne bool) common.Frustum {
	idx := 0
	if clipZeroToOne {
		idx = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frustumGen[idx] != c.gen {
		c.frustum[idx] = common.ExtractFrustum(c.combined, clipZeroToOne)
		c.frustumGen[idx] = c.gen
	}
	return c.frustum[idx]
}
