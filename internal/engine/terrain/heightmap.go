package terrain

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/pkg/noise"
	"github.com/Faultbox/quadsphere/pkg/spheremath"
)

// Surface maps cube-face points onto the planet: a sphere of Radius displaced
// along the normal by Field.
type Surface struct {
	Radius float64
	Field  noise.Field
}

// Height returns the terrain offset above the base radius in direction dir.
func (s Surface) Height(dir mgl64.Vec3) float64 {
	if s.Field == nil {
		return 0
	}
	return s.Field.Sample(spheremath.Normalize(dir))
}

// Project returns the surface point for planar point p.
func (s Surface) Project(p mgl64.Vec3) mgl64.Vec3 {
	dir := spheremath.Normalize(p)
	return dir.Mul(s.Radius + s.Height(dir))
}

// Altitude returns how far p lies above the surface along its direction.
// Negative values are below ground.
func (s Surface) Altitude(p mgl64.Vec3) float64 {
	return p.Len() - s.Radius - s.Height(p)
}
