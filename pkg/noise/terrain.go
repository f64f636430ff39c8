package noise

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Terrain is the planet height field: a fractal sum of value noise warped by a
// ridge layer. Heights are in world units and lie within [-Amplitude, Amplitude].
type Terrain struct {
	Seed        int64
	Octaves     int
	Persistence float64
	Lacunarity  float64
	Frequency   float64 // Base frequency applied to the sample point
	Amplitude   float64 // Peak height offset in world units

	RidgeFrequency float64
	RidgePower     float64 // Sharpness of the ridge crests
	RidgeWeight    float64 // 0 disables the ridge warp, 1 applies it fully
}

// Sample implements Field.
func (t Terrain) Sample(p mgl64.Vec3) float64 {
	if t.Amplitude == 0 || t.Octaves <= 0 {
		return 0
	}
	base := Octaves(p.Mul(t.Frequency), t.Seed, t.Octaves, t.Persistence, t.Lacunarity)
	return t.Amplitude * base * t.ridge(p)
}

// ridge returns the multiplicative warp in [1-RidgeWeight, 1].
func (t Terrain) ridge(p mgl64.Vec3) float64 {
	if t.RidgeWeight == 0 {
		return 1
	}
	n := Value3D(p[0]*t.RidgeFrequency, p[1]*t.RidgeFrequency, p[2]*t.RidgeFrequency, t.Seed^0x5bd1e995)
	r := 1 - math.Abs(n)
	if t.RidgePower > 0 {
		r = math.Pow(r, t.RidgePower)
	}
	return lerp(1, r, mgl64.Clamp(t.RidgeWeight, 0, 1))
}
