package planet

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/internal/engine/quadtree"
)

// Direction identifies one of the six cube faces.
type Direction int

// Cube face directions.
const (
	Front  Direction = iota // +Z
	Back                    // -Z
	Left                    // -X
	Right                   // +X
	Top                     // +Y
	Bottom                  // -Y
)

// Directions lists every face in build order.
var Directions = [6]Direction{Front, Back, Left, Right, Top, Bottom}

var directionNames = [6]string{"front", "back", "left", "right", "top", "bottom"}

// String returns the lower-case face name used in block paths.
func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return "unknown"
	}
	return directionNames[d]
}

// Normal returns the outward unit normal of the face.
func (d Direction) Normal() mgl64.Vec3 {
	switch d {
	case Front:
		return mgl64.Vec3{0, 0, 1}
	case Back:
		return mgl64.Vec3{0, 0, -1}
	case Left:
		return mgl64.Vec3{-1, 0, 0}
	case Right:
		return mgl64.Vec3{1, 0, 0}
	case Top:
		return mgl64.Vec3{0, 1, 0}
	default:
		return mgl64.Vec3{0, -1, 0}
	}
}

// Basis returns the face's left and forward axes. left x forward = Normal().
func (d Direction) Basis() (left, forward mgl64.Vec3) {
	x := mgl64.Vec3{1, 0, 0}
	y := mgl64.Vec3{0, 1, 0}
	z := mgl64.Vec3{0, 0, 1}

	switch d {
	case Front:
		return x, y
	case Back:
		return y, x
	case Left:
		return z, y
	case Right:
		return y, z
	case Top:
		return z, x
	default:
		return x, z
	}
}

// Face is one attached cube face and its tree.
type Face struct {
	Direction Direction
	Root      *quadtree.Block
}

// newRoot creates the unbuilt root block of a face of a cube with edge size.
func newRoot(d Direction, size float64, s quadtree.Settings) (*quadtree.Block, error) {
	left, forward := d.Basis()
	center := d.Normal().Mul(size / 2)
	return quadtree.NewRoot(d.String(), center, left, forward, size, s)
}
