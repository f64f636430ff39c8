package spheremath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// EmptyAABB returns an inverted box that any Extend call will replace.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// BoundsOf returns the smallest box containing every point.
func BoundsOf(points []mgl64.Vec3) AABB {
	b := EmptyAABB()
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Extend returns the box grown to include p.
func (b AABB) Extend(p mgl64.Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
	return b
}

// Union returns the box containing both b and o.
func (b AABB) Union(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Center returns the middle of the box.
func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Contains reports whether p lies inside or on the box.
func (b AABB) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// ClosestPoint returns the point of the box nearest to p (p itself when inside).
func (b AABB) ClosestPoint(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		mgl64.Clamp(p[0], b.Min[0], b.Max[0]),
		mgl64.Clamp(p[1], b.Min[1], b.Max[1]),
		mgl64.Clamp(p[2], b.Min[2], b.Max[2]),
	}
}

// IntersectRay tests a ray against the box with the slab method.
// dir does not need to be normalized; t is in units of dir.
// If the ray starts inside the box, the exit distance is returned.
func (b AABB) IntersectRay(origin, dir mgl64.Vec3) (t float64, hit bool) {
	tmin := math.Inf(-1)
	tmax := math.Inf(1)

	for i := 0; i < 3; i++ {
		if dir[i] != 0 {
			t1 := (b.Min[i] - origin[i]) / dir[i]
			t2 := (b.Max[i] - origin[i]) / dir[i]
			if t1 > t2 {
				t1, t2 = t2, t1
			}
			tmin = math.Max(tmin, t1)
			tmax = math.Min(tmax, t2)
		} else if origin[i] < b.Min[i] || origin[i] > b.Max[i] {
			return 0, false
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}
