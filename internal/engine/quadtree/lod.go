package quadtree

import "github.com/go-gl/mathgl/mgl64"

// UpdateLOD picks which blocks of the subtree show their own mesh for the
// viewpoint. Walking down from b, a block is shown when it is a leaf or when
// the eye is at least its adjusted LOD distance away; its descendants are then
// hidden. Otherwise it is hidden and its children decide for themselves.
// Afterwards every root-to-leaf path has exactly one visible block.
//
// UpdateLOD only flips flags. Separate trees can be updated concurrently.
func (b *Block) UpdateLOD(vp Viewpoint) {
	if b.IsLeaf() || b.shouldShow(vp) {
		b.visible.Store(true)
		for _, c := range b.children {
			c.hideAll()
		}
		return
	}

	b.visible.Store(false)
	for _, c := range b.children {
		c.UpdateLOD(vp)
	}
}

// shouldShow reports whether the eye is far enough away for this block's detail.
// A distance exactly at the threshold counts as far enough.
func (b *Block) shouldShow(vp Viewpoint) bool {
	closest := b.Bounds().ClosestPoint(vp.Position)
	distance := closest.Sub(vp.Position).Len()
	return distance >= b.LODSize()*b.viewFactor(vp, closest, distance)
}

// viewFactor scales the switch distance by how directly the block is looked
// at and by the zoom relative to the reference field of view. Blocks behind
// the eye get 0 and always stay coarse.
func (b *Block) viewFactor(vp Viewpoint, closest mgl64.Vec3, distance float64) float64 {
	cos := 1.0
	if distance > 0 {
		cos = vp.Forward.Normalize().Dot(closest.Sub(vp.Position).Mul(1 / distance))
	}
	if cos < b.settings.BehindCutoff {
		return 0
	}
	return cos * (b.settings.ReferenceFOV / vp.FOV)
}

func (b *Block) hideAll() {
	b.visible.Store(false)
	for _, c := range b.children {
		c.hideAll()
	}
}
