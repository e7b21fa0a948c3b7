package renderer

import (
	"sort"

	"github.com/kestrel3d/kestrel/common"
	"github.com/kestrel3d/kestrel/engine/camera"
	"github.com/kestrel3d/kestrel/engine/node"
)

// plannedDrawable is one visible drawable with its camera distance resolved
// once, before sorting.
type plannedDrawable struct {
	node     node.Node
	distance float32
}

// plan walks the scene, prunes invisible subtrees, frustum-culls by bounding
// sphere and sorts the survivors into submission order.
//
// Ordering precedence: depth-test-disabled drawables first; among depth-tested
// drawables with a camera present, farther-from-camera before nearer
// (back-to-front, required for correct alpha blending of transparent geometry
// drawn later); opaque before transparent on equal depth. The sort is stable,
// so otherwise-equal drawables keep traversal order.
//
// Parameters:
//   - root: the scene root
//   - cam: the camera, or nil to skip culling and distance ordering
//   - clipZeroToOne: the backend clip convention for frustum extraction
//
// Returns:
//   - []plannedDrawable: drawables in submission order
//   - int: number of drawables culled by the frustum test
func plan(root node.Node, cam camera.Camera, clipZeroToOne bool) ([]plannedDrawable, int) {
	var items []plannedDrawable
	culled := 0

	var frustum common.Frustum
	var eye [3]float32
	haveCam := cam != nil
	if haveCam {
		frustum = cam.Frustum(clipZeroToOne)
		p := common.TranslationOf(cam.World())
		eye = [3]float32{p.X(), p.Y(), p.Z()}
	}

	root.Visit(func(n node.Node) bool {
		if !n.Visible() {
			return false
		}
		if !n.IsDrawable() {
			return true
		}

		world := n.World()
		center := common.TranslationOf(world)

		if haveCam && n.FrustumCulled() {
			radius := n.Geometry().BoundingRadius() * common.MaxScale(world)
			if !frustum.ContainsSphere(center, radius) {
				culled++
				return true
			}
		}

		distance := float32(0)
		if haveCam {
			dx := center.X() - eye[0]
			dy := center.Y() - eye[1]
			dz := center.Z() - eye[2]
			distance = dx*dx + dy*dy + dz*dz
		}
		items = append(items, plannedDrawable{node: n, distance: distance})
		return true
	})

	sort.SliceStable(items, func(i, j int) bool {
		mi := items[i].node.Material()
		mj := items[j].node.Material()

		di, dj := mi.DepthTest(), mj.DepthTest()
		if di != dj {
			return !di
		}
		if haveCam && di {
			if items[i].distance != items[j].distance {
				return items[i].distance > items[j].distance
			}
		}
		ti, tj := mi.Transparent(), mj.Transparent()
		if ti != tj {
			return !ti
		}
		return false
	})

	return items, culled
}
