// Package camera provides the planet orbit camera.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/internal/engine/quadtree"
	"github.com/Faultbox/quadsphere/pkg/spheremath"
)

// PlanetCamera hovers above a planet centered at the origin. It moves along
// great circles, keeps "up" pointing away from the planet center and tilts
// between looking straight down and looking at the horizon.
type PlanetCamera struct {
	position mgl64.Vec3
	heading  mgl64.Vec3 // Unit tangent the camera faces, perpendicular to position

	// Pitch tilts the view from straight down (0) towards the horizon (radians).
	Pitch    float64
	MaxPitch float64

	// Constraints
	Radius      float64 // Planet base radius
	MinAltitude float64
	MaxDistance float64

	// Sensitivity
	Speed           float64 // Ground speed as a fraction of altitude per second
	DragSensitivity float64
	ZoomSensitivity float64

	// Projection
	FOV  float64 // Vertical field of view in degrees
	Near float64
	Far  float64

	// Ground, when set, returns the surface distance from the center in the
	// direction of p. Altitude is measured from it instead of Radius.
	Ground func(p mgl64.Vec3) float64

	target    mgl64.Vec3
	traveling bool
}

// NewPlanetCamera places a camera at distance from the center above the +Z axis.
func NewPlanetCamera(radius, distance float64) *PlanetCamera {
	c := &PlanetCamera{
		position:        mgl64.Vec3{0, 0, distance},
		heading:         mgl64.Vec3{0, 1, 0},
		MaxPitch:        1.4,
		Radius:          radius,
		MinAltitude:     radius * 0.005,
		MaxDistance:     radius * 8,
		Speed:           0.6,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FOV:             70,
		Near:            0.5,
		Far:             radius * 20,
	}
	c.clampDistance()
	return c
}

// Position returns the eye position.
func (c *PlanetCamera) Position() mgl64.Vec3 { return c.position }

// Up returns the radial direction at the eye.
func (c *PlanetCamera) Up() mgl64.Vec3 { return spheremath.Normalize(c.position) }

// Heading returns the tangent direction the camera faces.
func (c *PlanetCamera) Heading() mgl64.Vec3 { return c.heading }

// Forward returns the view direction.
func (c *PlanetCamera) Forward() mgl64.Vec3 {
	down := c.Up().Mul(-1)
	return down.Mul(math.Cos(c.Pitch)).Add(c.heading.Mul(math.Sin(c.Pitch)))
}

// Altitude returns the height above the ground.
func (c *PlanetCamera) Altitude() float64 {
	return c.position.Len() - c.groundRadius(c.position)
}

func (c *PlanetCamera) groundRadius(p mgl64.Vec3) float64 {
	if c.Ground != nil {
		return c.Ground(p)
	}
	return c.Radius
}

// SetPosition moves the eye, keeping the heading as close as possible.
func (c *PlanetCamera) SetPosition(p mgl64.Vec3) {
	if p.Len() == 0 {
		return
	}
	c.position = p
	c.reorthogonalize()
	c.clampDistance()
}

// Viewpoint implements the planet's viewpoint source.
func (c *PlanetCamera) Viewpoint() (quadtree.Viewpoint, bool) {
	vp := quadtree.Viewpoint{Position: c.position, Forward: c.Forward(), FOV: c.FOV}
	return vp, vp.Validate() == nil
}

// HandleMovement moves over the surface: forward along the heading, right
// perpendicular to it. Speed scales with altitude.
func (c *PlanetCamera) HandleMovement(forward, right, dt float64) {
	if forward == 0 && right == 0 {
		return
	}
	c.traveling = false

	dir := c.heading.Mul(forward).Add(c.right().Mul(right))
	if dir.Len() == 0 {
		return
	}
	dir = dir.Normalize()

	angle := c.Speed * dt * math.Max(c.Altitude(), c.MinAltitude) / c.position.Len()
	c.rotate(dir, angle)
}

// HandleDrag turns the heading with horizontal drag and tilts with vertical drag.
func (c *PlanetCamera) HandleDrag(deltaX, deltaY float64) {
	yaw := mgl64.QuatRotate(-deltaX*c.DragSensitivity, c.Up())
	c.heading = spheremath.Normalize(yaw.Rotate(c.heading))

	c.Pitch = mgl64.Clamp(c.Pitch+deltaY*c.DragSensitivity, 0, c.MaxPitch)
}

// HandleZoom changes altitude by a fraction of itself.
func (c *PlanetCamera) HandleZoom(delta float64) {
	alt := math.Max(c.Altitude(), c.MinAltitude)
	alt -= delta * alt * c.ZoomSensitivity
	c.position = c.Up().Mul(c.groundRadius(c.position) + alt)
	c.clampDistance()
}

// TravelTo starts a great-circle flight towards the point above target.
func (c *PlanetCamera) TravelTo(target mgl64.Vec3) {
	if target.Len() == 0 {
		return
	}
	c.target = target
	c.traveling = true
}

// Traveling reports whether a TravelTo flight is in progress.
func (c *PlanetCamera) Traveling() bool { return c.traveling }

// Update advances a running flight. Each second covers about the fraction
// Speed*2 of the remaining arc.
func (c *PlanetCamera) Update(dt float64) {
	if !c.traveling {
		return
	}

	remaining := spheremath.AngleBetween(c.position, c.target)
	if remaining < 1e-4 {
		c.traveling = false
		return
	}
	if dir, ok := spheremath.GreatCircleDirection(c.position, c.target); ok {
		c.heading = dir
	}

	t := math.Min(1, c.Speed*2*dt)
	next := spheremath.Slerp(c.position, c.target.Normalize().Mul(c.position.Len()), t)
	c.position = next
	c.reorthogonalize()
	c.clampDistance()
}

// ViewMatrix returns the view matrix for GL.
func (c *PlanetCamera) ViewMatrix() mgl32.Mat4 {
	return toMat32(mgl64.LookAtV(c.position, c.position.Add(c.Forward()), c.screenUp()))
}

// ProjectionMatrix returns the perspective matrix for the given aspect ratio.
func (c *PlanetCamera) ProjectionMatrix(aspect float64) mgl32.Mat4 {
	return toMat32(mgl64.Perspective(mgl64.DegToRad(c.FOV), aspect, c.Near, c.Far))
}

// ScreenRay returns the world-space ray through a pixel.
func (c *PlanetCamera) ScreenRay(x, y, width, height float64) (origin, dir mgl64.Vec3) {
	view := mgl64.LookAtV(c.position, c.position.Add(c.Forward()), c.screenUp())
	proj := mgl64.Perspective(mgl64.DegToRad(c.FOV), width/height, c.Near, c.Far)
	inv := proj.Mul4(view).Inv()

	ndcX := 2*x/width - 1
	ndcY := 1 - 2*y/height
	near := mgl64.TransformCoordinate(mgl64.Vec3{ndcX, ndcY, -1}, inv)
	far := mgl64.TransformCoordinate(mgl64.Vec3{ndcX, ndcY, 1}, inv)
	return near, spheremath.Normalize(far.Sub(near))
}

func (c *PlanetCamera) screenUp() mgl64.Vec3 {
	if c.Pitch < 1e-6 {
		// Looking straight down the radial; the heading is the screen's up.
		return c.heading
	}
	return c.Up()
}

func (c *PlanetCamera) right() mgl64.Vec3 {
	return c.heading.Cross(c.Up())
}

// rotate moves the eye by angle along the great circle in direction dir and
// carries the heading with it.
func (c *PlanetCamera) rotate(dir mgl64.Vec3, angle float64) {
	axis := spheremath.Normalize(c.position.Cross(dir))
	if axis.Len() == 0 {
		return
	}
	q := mgl64.QuatRotate(angle, axis)
	c.position = spheremath.RotateAlongGreatCircle(c.position, dir, angle)
	c.heading = spheremath.Normalize(q.Rotate(c.heading))
	c.reorthogonalize()
	c.clampDistance()
}

// reorthogonalize keeps the heading a unit tangent at the eye.
func (c *PlanetCamera) reorthogonalize() {
	up := c.Up()
	h := c.heading.Sub(up.Mul(up.Dot(c.heading)))
	if h.Len() < 1e-9 {
		_, h = spheremath.Basis(up)
	}
	c.heading = spheremath.Normalize(h)
}

func (c *PlanetCamera) clampDistance() {
	minDist := c.groundRadius(c.position) + c.MinAltitude
	d := c.position.Len()
	switch {
	case d < minDist:
		c.position = c.Up().Mul(minDist)
	case c.MaxDistance > 0 && d > c.MaxDistance:
		c.position = c.Up().Mul(c.MaxDistance)
	}
}

func toMat32(m mgl64.Mat4) mgl32.Mat4 {
	var out mgl32.Mat4
	for i := range m {
		out[i] = float32(m[i])
	}
	return out
}
