package terrain

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/pkg/spheremath"
)

// BuildMesh samples the patch grid on the surface. It is pure computation and
// safe to run on any goroutine.
func BuildMesh(patch Patch, surface Surface) *MeshData {
	r := patch.Resolution
	positions := make([]mgl64.Vec3, (r+1)*(r+1))

	for z := 0; z <= r; z++ {
		for x := 0; x <= r; x++ {
			positions[z*(r+1)+x] = surface.Project(patch.GridPoint(x, z))
		}
	}

	return finish(positions, r)
}

// finish derives indices, normals, UVs and bounds from grid positions.
func finish(positions []mgl64.Vec3, r int) *MeshData {
	m := &MeshData{
		Positions: positions,
		Indices:   GridIndices(r),
		UVs:       make([]mgl32.Vec2, len(positions)),
		Bounds:    spheremath.BoundsOf(positions),
	}

	for z := 0; z <= r; z++ {
		for x := 0; x <= r; x++ {
			m.UVs[z*(r+1)+x] = mgl32.Vec2{float32(x) / float32(r), float32(z) / float32(r)}
		}
	}

	m.Normals = vertexNormals(positions, m.Indices)
	return m
}

// GridIndices returns the triangle list for an r x r quad grid.
// Each quad (i0=z(r+1)+x, i1=i0+1, i2=i0+r+1, i3=i2+1) becomes
// (i0,i1,i2) and (i1,i3,i2), counter-clockwise seen from outside.
func GridIndices(r int) []uint32 {
	indices := make([]uint32, 0, r*r*6)
	stride := uint32(r + 1)

	for z := 0; z < r; z++ {
		for x := 0; x < r; x++ {
			i0 := uint32(z)*stride + uint32(x)
			i1 := i0 + 1
			i2 := i0 + stride
			i3 := i2 + 1
			indices = append(indices,
				i0, i1, i2,
				i1, i3, i2,
			)
		}
	}
	return indices
}

// vertexNormals averages the face normals around each vertex.
// Larger triangles weigh more since the cross product is not normalized first.
func vertexNormals(positions []mgl64.Vec3, indices []uint32) []mgl32.Vec3 {
	acc := make([]mgl64.Vec3, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		n := positions[b].Sub(positions[a]).Cross(positions[c].Sub(positions[a]))
		acc[a] = acc[a].Add(n)
		acc[b] = acc[b].Add(n)
		acc[c] = acc[c].Add(n)
	}

	normals := make([]mgl32.Vec3, len(positions))
	for i, n := range acc {
		n = spheremath.Normalize(n)
		if n.Len() == 0 {
			// Degenerate neighbourhood; fall back to the radial direction.
			n = spheremath.Normalize(positions[i])
		}
		normals[i] = mgl32.Vec3{float32(n[0]), float32(n[1]), float32(n[2])}
	}
	return normals
}
