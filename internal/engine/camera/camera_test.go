package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// approxVec compares with an absolute tolerance.
func approxVec(a, b mgl64.Vec3, eps float64) bool {
	return a.Sub(b).Len() < eps
}

func TestNewPlanetCamera(t *testing.T) {
	c := NewPlanetCamera(512, 1600)
	if got := c.Position(); got != (mgl64.Vec3{0, 0, 1600}) {
		t.Errorf("Position() = %v, want (0,0,1600)", got)
	}
	if got := c.Altitude(); got != 1088 {
		t.Errorf("Altitude() = %v, want 1088", got)
	}
	if !approxVec(c.Forward(), mgl64.Vec3{0, 0, -1}, 1e-9) {
		t.Errorf("Forward() = %v, want straight down", c.Forward())
	}

	vp, ok := c.Viewpoint()
	if !ok {
		t.Fatal("Viewpoint() not ok")
	}
	if vp.Position != c.Position() || vp.FOV != 70 {
		t.Errorf("Viewpoint() = %+v", vp)
	}
}

func TestViewpointInvalidFOV(t *testing.T) {
	c := NewPlanetCamera(512, 1600)
	c.FOV = 0
	if _, ok := c.Viewpoint(); ok {
		t.Error("Viewpoint() with zero fov should not be ok")
	}
}

func TestHandleMovementStaysOnShell(t *testing.T) {
	c := NewPlanetCamera(512, 1600)
	start := c.Position()

	for i := 0; i < 100; i++ {
		c.HandleMovement(1, 0.3, 0.05)
	}

	if d := c.Position().Len(); math.Abs(d-1600) > 1e-6 {
		t.Errorf("distance after moving = %v, want 1600", d)
	}
	if dot := c.Heading().Dot(c.Up()); math.Abs(dot) > 1e-9 {
		t.Errorf("heading not tangent: dot = %v", dot)
	}
	if math.Abs(c.Heading().Len()-1) > 1e-9 {
		t.Errorf("heading not unit: %v", c.Heading().Len())
	}
	if approxVec(c.Position(), start, 1e-9) {
		t.Error("camera did not move")
	}
}

func TestHandleMovementForwardFollowsHeading(t *testing.T) {
	c := NewPlanetCamera(512, 1600)
	c.HandleMovement(1, 0, 0.1)
	// Heading starts as +Y.
	if c.Position()[1] <= 0 {
		t.Errorf("forward move went to %v, want positive y", c.Position())
	}
	if math.Abs(c.Position()[0]) > 1e-9 {
		t.Errorf("forward move drifted sideways: %v", c.Position())
	}
}

func TestHandleDrag(t *testing.T) {
	c := NewPlanetCamera(512, 1600)

	c.HandleDrag(0, 100)
	if math.Abs(c.Pitch-0.5) > 1e-12 {
		t.Errorf("Pitch = %v, want 0.5", c.Pitch)
	}
	c.HandleDrag(0, 10000)
	if c.Pitch != c.MaxPitch {
		t.Errorf("Pitch = %v, want clamp to %v", c.Pitch, c.MaxPitch)
	}
	c.HandleDrag(0, -10000)
	if c.Pitch != 0 {
		t.Errorf("Pitch = %v, want clamp to 0", c.Pitch)
	}

	// Quarter turn of yaw.
	c.HandleDrag(-math.Pi/2/c.DragSensitivity, 0)
	if !approxVec(c.Heading(), mgl64.Vec3{-1, 0, 0}, 1e-9) {
		t.Errorf("Heading() after yaw = %v, want (-1,0,0)", c.Heading())
	}
}

func TestHandleZoomClamps(t *testing.T) {
	c := NewPlanetCamera(512, 1600)
	for i := 0; i < 200; i++ {
		c.HandleZoom(5)
	}
	if got, want := c.Altitude(), c.MinAltitude; math.Abs(got-want) > 1e-9 {
		t.Errorf("Altitude() = %v, want min %v", got, want)
	}
	for i := 0; i < 200; i++ {
		c.HandleZoom(-5)
	}
	if got := c.Position().Len(); math.Abs(got-c.MaxDistance) > 1e-9 {
		t.Errorf("distance = %v, want max %v", got, c.MaxDistance)
	}
}

func TestGroundClamp(t *testing.T) {
	c := NewPlanetCamera(512, 1600)
	c.Ground = func(mgl64.Vec3) float64 { return 600 }
	c.SetPosition(mgl64.Vec3{0, 550, 0})
	if got, want := c.Position().Len(), 600+c.MinAltitude; math.Abs(got-want) > 1e-9 {
		t.Errorf("distance = %v, want %v above raised ground", got, want)
	}
}

func TestTravelTo(t *testing.T) {
	c := NewPlanetCamera(512, 1600)
	target := mgl64.Vec3{300, 0, 0}
	c.TravelTo(target)
	if !c.Traveling() {
		t.Fatal("Traveling() = false after TravelTo")
	}

	for i := 0; i < 1000 && c.Traveling(); i++ {
		c.Update(0.1)
		if d := c.Position().Len(); math.Abs(d-1600) > 1e-6 {
			t.Fatalf("step %d: distance = %v, want 1600", i, d)
		}
	}
	if c.Traveling() {
		t.Fatal("flight never finished")
	}
	if !approxVec(c.Up(), mgl64.Vec3{1, 0, 0}, 1e-3) {
		t.Errorf("ended above %v, want above +X", c.Up())
	}

	c.TravelTo(mgl64.Vec3{0, 1, 0})
	c.HandleMovement(1, 0, 0.1)
	if c.Traveling() {
		t.Error("manual movement should cancel the flight")
	}
}

func TestScreenRayCenter(t *testing.T) {
	c := NewPlanetCamera(512, 1600)
	c.Pitch = 0.3
	origin, dir := c.ScreenRay(400, 300, 800, 600)
	if !approxVec(dir, c.Forward(), 1e-6) {
		t.Errorf("center ray dir = %v, want forward %v", dir, c.Forward())
	}
	if origin.Sub(c.Position()).Len() > c.Near*2 {
		t.Errorf("ray origin %v too far from eye %v", origin, c.Position())
	}
}

func TestMatrices(t *testing.T) {
	c := NewPlanetCamera(512, 1600)
	view := c.ViewMatrix()

	// The eye maps to the view-space origin and the planet center lies ahead (-Z).
	eye := view.Mul4x1(mgl32.Vec4{0, 0, 1600, 1})
	if eye.Vec3().Len() > 1e-2 {
		t.Errorf("eye in view space = %v, want origin", eye)
	}
	center := view.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if center[2] > -1599 || center[2] < -1601 {
		t.Errorf("center in view space = %v, want z = -1600", center)
	}

	proj := c.ProjectionMatrix(16.0 / 9.0)
	if proj[11] != -1 {
		t.Errorf("projection[11] = %v, want -1 for a perspective matrix", proj[11])
	}
}
