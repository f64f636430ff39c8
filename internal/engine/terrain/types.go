// Package terrain builds the CPU side of planet surface meshes: square grid
// patches on cube faces projected onto a noisy sphere, and coarse patches
// resampled from their four children.
package terrain

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/pkg/spheremath"
)

// MeshData holds the buffers of one patch. Positions are row-major with z rows
// and x columns, (R+1)^2 entries. It is handed from a worker to the main
// context by ownership transfer and never mutated afterwards.
type MeshData struct {
	Positions []mgl64.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
	Bounds    spheremath.AABB
}

// VertexCount returns the number of vertices.
func (m *MeshData) VertexCount() int {
	if m == nil {
		return 0
	}
	return len(m.Positions)
}

// TriangleCount returns the number of triangles.
func (m *MeshData) TriangleCount() int {
	if m == nil {
		return 0
	}
	return len(m.Indices) / 3
}

// Fits reports whether the buffers match a grid of the given resolution.
func (m *MeshData) Fits(resolution int) bool {
	if m == nil {
		return false
	}
	n := (resolution + 1) * (resolution + 1)
	return len(m.Positions) == n
}

// Triangle returns the corners of triangle i.
func (m *MeshData) Triangle(i int) (a, b, c mgl64.Vec3) {
	return m.Positions[m.Indices[i*3]], m.Positions[m.Indices[i*3+1]], m.Positions[m.Indices[i*3+2]]
}

// Interleaved packs position, normal and UV per vertex for GPU upload
// (8 floats per vertex).
func (m *MeshData) Interleaved() []float32 {
	out := make([]float32, 0, len(m.Positions)*8)
	for i, p := range m.Positions {
		n := m.Normals[i]
		uv := m.UVs[i]
		out = append(out,
			float32(p[0]), float32(p[1]), float32(p[2]),
			n[0], n[1], n[2],
			uv[0], uv[1],
		)
	}
	return out
}

// Patch is a square grid on a cube face plane.
type Patch struct {
	Center     mgl64.Vec3
	Left       mgl64.Vec3 // Unit vector, left x forward = face normal
	Forward    mgl64.Vec3
	Size       float64 // Edge length in world units
	Resolution int     // Quads per edge; must be even
}

// Anchor returns the corner the grid starts from.
func (p Patch) Anchor() mgl64.Vec3 {
	half := p.Size / 2
	return p.Center.Sub(p.Left.Mul(half)).Sub(p.Forward.Mul(half))
}

// GridPoint returns the planar position of grid vertex (x, z).
func (p Patch) GridPoint(x, z int) mgl64.Vec3 {
	r := float64(p.Resolution)
	return p.Anchor().
		Add(p.Left.Mul(float64(x) / r * p.Size)).
		Add(p.Forward.Mul(float64(z) / r * p.Size))
}

// Quadrant returns the patch covering one quarter of p.
// Quadrant 0 is (-left, +forward), 1 is (+left, +forward),
// 2 is (-left, -forward) and 3 is (+left, -forward).
func (p Patch) Quadrant(i int) Patch {
	q := p.Size / 4
	sl, sf := quadrantSigns(i)
	child := p
	child.Center = p.Center.Add(p.Left.Mul(sl * q)).Add(p.Forward.Mul(sf * q))
	child.Size = p.Size / 2
	return child
}

func quadrantSigns(i int) (left, forward float64) {
	switch i {
	case 0:
		return -1, 1
	case 1:
		return 1, 1
	case 2:
		return -1, -1
	default:
		return 1, -1
	}
}
