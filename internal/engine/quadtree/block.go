package quadtree

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/internal/engine/terrain"
	"github.com/Faultbox/quadsphere/pkg/spheremath"
)

// Block is one node of a face tree.
//
// A block owns its children and its mesh and collider; parent is only used
// for traversal. Children and resources are written during Build and read
// after the build has been joined.
type Block struct {
	name     string
	parent   *Block
	children []*Block // nil or exactly 4, indexed as terrain.Patch.Quadrant
	depth    int
	patch    terrain.Patch
	settings *Settings

	data     *terrain.MeshData
	mesh     Mesh
	collider Collider

	visible atomic.Bool
}

// NewRoot creates the root block of a face. name becomes the first element
// of every block path in the tree, e.g. "top" and "top/2/3".
func NewRoot(name string, center, left, forward mgl64.Vec3, size float64, s Settings) (*Block, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %v must be positive", ErrInvalidConfig, size)
	}
	return &Block{
		name: name,
		patch: terrain.Patch{
			Center:     center,
			Left:       spheremath.Normalize(left),
			Forward:    spheremath.Normalize(forward),
			Size:       size,
			Resolution: s.Resolution,
		},
		settings: &s,
	}, nil
}

func (b *Block) child(i int) *Block {
	return &Block{
		name:     b.name + "/" + strconv.Itoa(i),
		parent:   b,
		depth:    b.depth + 1,
		patch:    b.patch.Quadrant(i),
		settings: b.settings,
	}
}

// Name returns the block path.
func (b *Block) Name() string { return b.name }

// Parent returns the parent block, or nil for a root.
func (b *Block) Parent() *Block { return b.parent }

// Depth returns the distance from the root.
func (b *Block) Depth() int { return b.depth }

// Size returns the edge length in world units.
func (b *Block) Size() float64 { return b.patch.Size }

// Center returns the block center on the cube face plane.
func (b *Block) Center() mgl64.Vec3 { return b.patch.Center }

// Patch returns the block's grid geometry.
func (b *Block) Patch() terrain.Patch { return b.patch }

// Children returns the four children, or nil for a leaf.
func (b *Block) Children() []*Block { return b.children }

// Child returns child i, or nil.
func (b *Block) Child(i int) *Block {
	if i < 0 || i >= len(b.children) {
		return nil
	}
	return b.children[i]
}

// IsLeaf reports whether the block has no children.
func (b *Block) IsLeaf() bool { return len(b.children) == 0 }

// LODSize returns the distance below which the block is replaced by its
// children when viewed head-on at the reference field of view.
func (b *Block) LODSize() float64 { return b.patch.Size * b.settings.LODThreshold }

// Data returns the CPU mesh, or nil before the block is built.
func (b *Block) Data() *terrain.MeshData { return b.data }

// Mesh returns the renderable, or nil before the block is committed.
func (b *Block) Mesh() Mesh { return b.mesh }

// Collider returns the collision shape, or nil before the block is committed.
func (b *Block) Collider() Collider { return b.collider }

// Visible reports whether the block currently contributes its own mesh.
func (b *Block) Visible() bool { return b.visible.Load() }

// SetVisible sets the block's own visibility flag. Only face roots are shown
// directly, once their tree is built; UpdateLOD manages the rest.
func (b *Block) SetVisible(v bool) { b.visible.Store(v) }

// Bounds returns the bounding box of the block's surface, or of its planar
// patch before it has mesh data.
func (b *Block) Bounds() spheremath.AABB {
	if b.data != nil && !b.data.Bounds.IsEmpty() {
		return b.data.Bounds
	}
	r := b.patch.Resolution
	return spheremath.BoundsOf([]mgl64.Vec3{
		b.patch.GridPoint(0, 0),
		b.patch.GridPoint(r, 0),
		b.patch.GridPoint(0, r),
		b.patch.GridPoint(r, r),
	})
}

// Walk calls fn for b and every descendant, parents before children.
// Returning false from fn skips the block's subtree.
func (b *Block) Walk(fn func(*Block) bool) {
	if !fn(b) {
		return
	}
	for _, c := range b.children {
		c.Walk(fn)
	}
}

// Release frees the resources of b and its whole subtree and detaches the
// children. It must run on the main context. Releasing twice is a no-op.
func (b *Block) Release() {
	for _, c := range b.children {
		c.Release()
	}
	b.children = nil
	b.releaseOwn()
}

func (b *Block) releaseOwn() {
	b.visible.Store(false)
	if b.collider != nil {
		b.collider.Release()
		b.collider = nil
	}
	if b.mesh != nil {
		b.mesh.Release()
		b.mesh = nil
	}
	b.data = nil
}
