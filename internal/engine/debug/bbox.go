// Package debug provides debug visualization utilities.
package debug

import (
	"github.com/Faultbox/quadsphere/pkg/spheremath"
)

// BoxVertexCount is the number of line vertices per box (12 edges × 2).
const BoxVertexCount = 24

// BoxLines returns line-list vertices ([x, y, z] per vertex) for the edges of
// box, grown by padding on every side. Empty boxes produce no vertices.
func BoxLines(box spheremath.AABB, padding float64) []float32 {
	if box.IsEmpty() {
		return nil
	}
	lo := box.Min
	hi := box.Max
	minX, minY, minZ := float32(lo[0]-padding), float32(lo[1]-padding), float32(lo[2]-padding)
	maxX, maxY, maxZ := float32(hi[0]+padding), float32(hi[1]+padding), float32(hi[2]+padding)

	return []float32{
		// Bottom face
		minX, minY, minZ, maxX, minY, minZ,
		maxX, minY, minZ, maxX, minY, maxZ,
		maxX, minY, maxZ, minX, minY, maxZ,
		minX, minY, maxZ, minX, minY, minZ,
		// Top face
		minX, maxY, minZ, maxX, maxY, minZ,
		maxX, maxY, minZ, maxX, maxY, maxZ,
		maxX, maxY, maxZ, minX, maxY, maxZ,
		minX, maxY, maxZ, minX, maxY, minZ,
		// Vertical edges
		minX, minY, minZ, minX, maxY, minZ,
		maxX, minY, minZ, maxX, maxY, minZ,
		maxX, minY, maxZ, maxX, maxY, maxZ,
		minX, minY, maxZ, minX, maxY, maxZ,
	}
}

// AppendBoxes appends the lines of every box to dst.
func AppendBoxes(dst []float32, boxes []spheremath.AABB, padding float64) []float32 {
	for _, b := range boxes {
		dst = append(dst, BoxLines(b, padding)...)
	}
	return dst
}
