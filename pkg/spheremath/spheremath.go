// Package spheremath provides vector helpers for working on and around a sphere:
// projection, spherical interpolation, great-circle directions and bounding boxes.
package spheremath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// epsilon below which vectors are treated as zero length or parallel.
const epsilon = 1e-12

// Lerp linearly interpolates between a and b.
func Lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// Normalize returns v scaled to unit length, or the zero vector for zero input.
// mgl64's Normalize divides by zero length; this one does not.
func Normalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < epsilon {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// ProjectToSphere maps p radially onto the sphere of the given radius centered at the origin.
func ProjectToSphere(p mgl64.Vec3, radius float64) mgl64.Vec3 {
	return Normalize(p).Mul(radius)
}

// AngleBetween returns the angle in radians between a and b.
func AngleBetween(a, b mgl64.Vec3) float64 {
	na, nb := Normalize(a), Normalize(b)
	return math.Acos(mgl64.Clamp(na.Dot(nb), -1, 1))
}

// Slerp interpolates along the great circle between the directions a and b.
// The result has the length interpolated linearly between |a| and |b|,
// so points at equal radius stay on the sphere.
func Slerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	la, lb := a.Len(), b.Len()
	na, nb := Normalize(a), Normalize(b)

	dot := mgl64.Clamp(na.Dot(nb), -1, 1)
	theta := math.Acos(dot)
	length := la + (lb-la)*t

	sinTheta := math.Sin(theta)
	if sinTheta < 1e-9 {
		// Parallel or antiparallel; nlerp is as good as anything here.
		return Normalize(Lerp(na, nb, t)).Mul(length)
	}

	wa := math.Sin((1-t)*theta) / sinTheta
	wb := math.Sin(t*theta) / sinTheta
	return na.Mul(wa).Add(nb.Mul(wb)).Mul(length)
}

// GreatCircleDirection returns the unit tangent at from pointing along the
// shortest great circle towards to. It returns false when the two points are
// (anti)parallel and the direction is undefined.
func GreatCircleDirection(from, to mgl64.Vec3) (mgl64.Vec3, bool) {
	n := Normalize(from)
	target := Normalize(to)
	tangent := target.Sub(n.Mul(n.Dot(target)))
	if tangent.Len() < 1e-9 {
		return mgl64.Vec3{}, false
	}
	return Normalize(tangent), true
}

// RotateAlongGreatCircle moves the point p by angle radians along the great
// circle through p tangent to dir. Distance from the origin is preserved.
func RotateAlongGreatCircle(p, dir mgl64.Vec3, angle float64) mgl64.Vec3 {
	axis := Normalize(p.Cross(dir))
	if axis.Len() == 0 {
		return p
	}
	return mgl64.HomogRotate3D(angle, axis).Mul4x1(p.Vec4(1)).Vec3()
}

// Basis returns two unit vectors perpendicular to n and to each other, so that
// left x forward = n.
func Basis(n mgl64.Vec3) (left, forward mgl64.Vec3) {
	n = Normalize(n)
	ref := mgl64.Vec3{0, 1, 0}
	if math.Abs(n.Dot(ref)) > 0.99 {
		ref = mgl64.Vec3{0, 0, 1}
	}
	forward = Normalize(ref.Sub(n.Mul(n.Dot(ref))))
	left = forward.Cross(n)
	return left, forward
}
