// Package lighting provides the directional sun lighting the planet.
package lighting

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Sun is a directional light circling the planet around the Y axis.
type Sun struct {
	Longitude float64 // Degrees around Y, 0 lies on +Z
	Latitude  float64 // Degrees above the equator plane
	Speed     float64 // Degrees of longitude per second while animated
	Animated  bool
}

// NewSun returns a sun lighting the +Z side from slightly above.
func NewSun() *Sun {
	return &Sun{Longitude: 30, Latitude: 35, Speed: 6}
}

// ToSun returns the unit vector pointing from the planet towards the sun.
func (s *Sun) ToSun() mgl32.Vec3 {
	lon := s.Longitude * math.Pi / 180
	lat := s.Latitude * math.Pi / 180
	return mgl32.Vec3{
		float32(math.Cos(lat) * math.Sin(lon)),
		float32(math.Sin(lat)),
		float32(math.Cos(lat) * math.Cos(lon)),
	}
}

// Direction returns the direction the light travels, as shaders expect it.
func (s *Sun) Direction() mgl32.Vec3 {
	return s.ToSun().Mul(-1)
}

// Update advances an animated sun by dt seconds.
func (s *Sun) Update(dt float64) {
	if !s.Animated {
		return
	}
	s.Longitude = math.Mod(s.Longitude+s.Speed*dt, 360)
}
