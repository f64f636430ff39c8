// Package collision provides triangulated collision shapes for terrain patches.
package collision

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/internal/engine/terrain"
	"github.com/Faultbox/quadsphere/pkg/spheremath"
)

// triEpsilon rejects rays nearly parallel to a triangle.
const triEpsilon = 1e-12

type triangle struct {
	a, e1, e2 mgl64.Vec3 // First corner and the two edges from it
}

// TriangleShape is a static triangle soup with a bounding box, built from a
// patch mesh. It is an approximation of the surface, good enough for picking
// and ground clamping.
type TriangleShape struct {
	tris   []triangle
	bounds spheremath.AABB
}

// NewTriangleShape copies the triangles of data into a shape.
func NewTriangleShape(data *terrain.MeshData) *TriangleShape {
	s := &TriangleShape{
		tris:   make([]triangle, 0, data.TriangleCount()),
		bounds: data.Bounds,
	}
	for i := 0; i < data.TriangleCount(); i++ {
		a, b, c := data.Triangle(i)
		s.tris = append(s.tris, triangle{a: a, e1: b.Sub(a), e2: c.Sub(a)})
	}
	return s
}

// Bounds returns the shape's bounding box.
func (s *TriangleShape) Bounds() spheremath.AABB {
	return s.bounds
}

// Triangles returns the number of triangles in the shape.
func (s *TriangleShape) Triangles() int {
	return len(s.tris)
}

// Raycast returns the distance along dir to the nearest triangle hit.
// dir does not need to be normalized; t is in units of dir.
func (s *TriangleShape) Raycast(origin, dir mgl64.Vec3) (float64, bool) {
	if len(s.tris) == 0 {
		return 0, false
	}
	if _, hit := s.bounds.IntersectRay(origin, dir); !hit {
		return 0, false
	}

	best := math.Inf(1)
	for _, tri := range s.tris {
		if t, ok := tri.intersect(origin, dir); ok && t < best {
			best = t
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}
	return best, true
}

// Release drops the triangle data.
func (s *TriangleShape) Release() {
	s.tris = nil
}

// intersect is the Moller-Trumbore ray/triangle test. Both faces count as hits.
func (tri triangle) intersect(origin, dir mgl64.Vec3) (float64, bool) {
	p := dir.Cross(tri.e2)
	det := tri.e1.Dot(p)
	if math.Abs(det) < triEpsilon {
		return 0, false
	}
	inv := 1 / det

	s := origin.Sub(tri.a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(tri.e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := tri.e2.Dot(q) * inv
	if t < 0 {
		return 0, false
	}
	return t, true
}
