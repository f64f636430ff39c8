package terrain

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Resample builds a patch mesh by taking every other vertex of its four
// children (indexed as Patch.Quadrant). Vertices are copied verbatim so seams
// between levels line up exactly. When a child's buffer is missing or has the
// wrong size, the affected points are computed from the surface instead; the
// number of such points is returned.
func Resample(patch Patch, surface Surface, children [4]*MeshData) (*MeshData, int) {
	r := patch.Resolution
	half := r / 2
	positions := make([]mgl64.Vec3, (r+1)*(r+1))
	fallbacks := 0

	for z := 0; z <= r; z++ {
		for x := 0; x <= r; x++ {
			q, offX, offZ := quadrantOf(x, z, half)
			child := children[q]

			if !child.Fits(r) {
				positions[z*(r+1)+x] = surface.Project(patch.GridPoint(x, z))
				fallbacks++
				continue
			}

			cx := clamp((x-offX)*2, 0, r)
			cz := clamp((z-offZ)*2, 0, r)
			positions[z*(r+1)+x] = child.Positions[cz*(r+1)+cx]
		}
	}

	return finish(positions, r), fallbacks
}

// quadrantOf maps a parent grid coordinate to the child that covers it and
// that child's offset in parent coordinates.
func quadrantOf(x, z, half int) (q, offX, offZ int) {
	highX := x >= half
	highZ := z >= half

	switch {
	case !highX && !highZ:
		q = 2
	case highX && !highZ:
		q = 3
	case !highX && highZ:
		q = 0
	default:
		q = 1
	}

	if highX {
		offX = half
	}
	if highZ {
		offZ = half
	}
	return q, offX, offZ
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
