// Package node provides the scene hierarchy: nodes with local TRS transforms,
// cached world matrices, visibility flags and a pruning visit traversal. A
// node carrying both a geometry and a material is drawable.
package node

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kestrel3d/kestrel/common"
	"github.com/kestrel3d/kestrel/engine/geometry"
	"github.com/kestrel3d/kestrel/engine/material"
)

// Node is one element of the scene hierarchy.
type Node interface {
	// Name returns the optional debug name.
	Name() string

	// Add appends a child and sets its parent back-reference. A node must
	// not be its own ancestor; ownership cycles are the caller's
	// responsibility to avoid.
	//
	// Parameters:
	//   - child: the node to attach
	Add(child Node)

	// Remove detaches a child, clearing its parent back-reference. Removing
	// a node that is not a child is a no-op.
	//
	// Parameters:
	//   - child: the node to detach
	Remove(child Node)

	// Children returns the ordered child list.
	//
	// Returns:
	//   - []Node: the children, in insertion order
	Children() []Node

	// Parent returns the parent node, or nil for a root.
	Parent() Node

	// SetParent sets the parent back-reference. Managed by Add and Remove;
	// callers normally never invoke it directly.
	//
	// Parameters:
	//   - parent: the new parent (nil detaches)
	SetParent(parent Node)

	// SetPosition sets the local translation.
	SetPosition(p mgl32.Vec3)

	// Position returns the local translation.
	Position() mgl32.Vec3

	// SetRotation sets the local orientation.
	SetRotation(q mgl32.Quat)

	// Rotation returns the local orientation.
	Rotation() mgl32.Quat

	// SetScale sets the local per-axis scale.
	SetScale(s mgl32.Vec3)

	// Scale returns the local per-axis scale.
	Scale() mgl32.Vec3

	// World returns the cached world matrix from the last transform pass.
	World() mgl32.Mat4

	// SetWorld overrides the world matrix directly. Meaningful only for
	// nodes with auto-update disabled; an auto-updating node recomputes its
	// matrix on the next pass.
	//
	// Parameters:
	//   - m: the world matrix to install
	SetWorld(m mgl32.Mat4)

	// AutoUpdate reports whether the transform pass recomputes this node's
	// world matrix.
	AutoUpdate() bool

	// SetAutoUpdate freezes or unfreezes this node's own matrix. A frozen
	// node still propagates updates to its descendants.
	SetAutoUpdate(enabled bool)

	// Visible reports whether this node and its subtree participate in
	// rendering. The planner prunes subtrees at invisible nodes.
	Visible() bool

	// SetVisible toggles subtree participation in rendering.
	SetVisible(visible bool)

	// FrustumCulled reports whether the planner may cull this node by its
	// bounding sphere. Disable for geometry deformed on the GPU.
	FrustumCulled() bool

	// SetFrustumCulled toggles bounding-sphere culling for this node.
	SetFrustumCulled(culled bool)

	// UpdateWorld runs the transform pass over this subtree: recompute this
	// node's world matrix when auto-update is set, then recurse into the
	// children unconditionally.
	UpdateWorld()

	// Visit walks the subtree in pre-order. Returning false from the
	// callback prunes recursion below that node; siblings still run.
	//
	// Parameters:
	//   - fn: the callback, returning true to descend
	Visit(fn func(Node) bool)

	// Geometry returns the node's geometry, or nil for a plain node.
	Geometry() geometry.Geometry

	// Material returns the node's material, or nil for a plain node.
	Material() material.Material

	// IsDrawable reports whether the node carries both geometry and
	// material.
	IsDrawable() bool
}

type engineNode struct {
	mu *sync.Mutex

	name     string
	parent   Node
	children []Node

	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3
	world    mgl32.Mat4

	autoUpdate    bool
	visible       bool
	frustumCulled bool

	geometry geometry.Geometry
	material material.Material
}

var _ Node = &engineNode{}

// NewNode creates a node with the specified options. Defaults: identity
// transform, auto-updating, visible and frustum-culled.
//
// Parameters:
//   - options: functional options to configure the node
//
// Returns:
//   - Node: the configured node
func NewNode(options ...NodeBuilderOption) Node {
	n := &engineNode{
		mu:            &sync.Mutex{},
		rotation:      mgl32.QuatIdent(),
		scale:         mgl32.Vec3{1, 1, 1},
		world:         mgl32.Ident4(),
		autoUpdate:    true,
		visible:       true,
		frustumCulled: true,
	}
	for _, opt := range options {
		opt(n)
	}
	return n
}

func (n *engineNode) Name() string { return n.name }

func (n *engineNode) Add(child Node) {
	n.mu.Lock()
	n.children = append(n.children, child)
	n.mu.Unlock()
	child.SetParent(n)
}

func (n *engineNode) Remove(child Node) {
	n.mu.Lock()
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			n.mu.Unlock()
			child.SetParent(nil)
			return
		}
	}
	n.mu.Unlock()
}

func (n *engineNode) Children() []Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Node, len(n.children))
	copy(out, n.children)
	return out
}

func (n *engineNode) Parent() Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.parent
}

func (n *engineNode) SetParent(parent Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.parent = parent
}

func (n *engineNode) SetPosition(p mgl32.Vec3) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.position = p
}

func (n *engineNode) Position() mgl32.Vec3 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.position
}

func (n *engineNode) SetRotation(q mgl32.Quat) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rotation = q
}

func (n *engineNode) Rotation() mgl32.Quat {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rotation
}

func (n *engineNode) SetScale(s mgl32.Vec3) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scale = s
}

func (n *engineNode) Scale() mgl32.Vec3 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.scale
}

func (n *engineNode) World() mgl32.Mat4 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.world
}

func (n *engineNode) SetWorld(m mgl32.Mat4) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.world = m
}

func (n *engineNode) AutoUpdate() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.autoUpdate
}

func (n *engineNode) SetAutoUpdate(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.autoUpdate = enabled
}

func (n *engineNode) Visible() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.visible
}

func (n *engineNode) SetVisible(visible bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visible = visible
}

func (n *engineNode) FrustumCulled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.frustumCulled
}

func (n *engineNode) SetFrustumCulled(culled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.frustumCulled = culled
}

func (n *engineNode) UpdateWorld() {
	n.mu.Lock()
	if n.autoUpdate {
		local := common.Compose(n.position, n.rotation, n.scale)
		if n.parent != nil {
			n.world = n.parent.World().Mul4(local)
		} else {
			n.world = local
		}
	}
	children := make([]Node, len(n.children))
	copy(children, n.children)
	n.mu.Unlock()

	// Recursion is unconditional: a frozen node keeps its own matrix but
	// still propagates the pass to its descendants.
	for _, c := range children {
		c.UpdateWorld()
	}
}

func (n *engineNode) Visit(fn func(Node) bool) {
	visit(n, fn)
}

func visit(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		visit(c, fn)
	}
}

func (n *engineNode) Geometry() geometry.Geometry { return n.geometry }
func (n *engineNode) Material() material.Material { return n.material }

func (n *engineNode) IsDrawable() bool {
	return n.geometry != nil && n.material != nil
}
