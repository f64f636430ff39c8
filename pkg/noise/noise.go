// Package noise provides deterministic coherent 3D noise for planet heights.
//
// Values come from hashed lattice points (SplitMix64 style) blended with a
// quintic fade, so the same seed and position always produce the same height
// on every machine and goroutine.
package noise

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Field samples a scalar height offset at a point, usually a unit-sphere direction.
// Implementations must be safe for concurrent use.
type Field interface {
	Sample(p mgl64.Vec3) float64
}

// Flat is a Field that is zero everywhere. Useful for tests and smooth spheres.
type Flat struct{}

// Sample implements Field.
func (Flat) Sample(mgl64.Vec3) float64 { return 0 }

// fade is the 6t^5 - 15t^4 + 10t^3 smoothing curve.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func hash3(x, y, z int64, seed int64) uint64 {
	v := uint64(x)*0x9E3779B97F4A7C15 + uint64(y)*0x517CC1B727220A95 + uint64(z)*0x6C62272E07BB0142 + uint64(seed)
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	v = v ^ (v >> 31)
	return v
}

// lattice maps a hashed corner to [-1, 1].
func lattice(x, y, z int64, seed int64) float64 {
	h := hash3(x, y, z, seed)
	return float64(h&0xFFFFFFFF)/float64(0xFFFFFFFF)*2 - 1
}

// Value3D returns trilinearly blended value noise in [-1, 1].
func Value3D(x, y, z float64, seed int64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	z0 := math.Floor(z)
	ix, iy, iz := int64(x0), int64(y0), int64(z0)

	fx := fade(x - x0)
	fy := fade(y - y0)
	fz := fade(z - z0)

	v000 := lattice(ix, iy, iz, seed)
	v100 := lattice(ix+1, iy, iz, seed)
	v010 := lattice(ix, iy+1, iz, seed)
	v110 := lattice(ix+1, iy+1, iz, seed)
	v001 := lattice(ix, iy, iz+1, seed)
	v101 := lattice(ix+1, iy, iz+1, seed)
	v011 := lattice(ix, iy+1, iz+1, seed)
	v111 := lattice(ix+1, iy+1, iz+1, seed)

	i00 := lerp(v000, v100, fx)
	i10 := lerp(v010, v110, fx)
	i01 := lerp(v001, v101, fx)
	i11 := lerp(v011, v111, fx)

	i0 := lerp(i00, i10, fy)
	i1 := lerp(i01, i11, fy)

	return lerp(i0, i1, fz)
}

// Octaves sums octaves of Value3D and normalizes the result back to [-1, 1].
func Octaves(p mgl64.Vec3, seed int64, octaves int, persistence, lacunarity float64) float64 {
	amplitude := 1.0
	frequency := 1.0
	sum := 0.0
	norm := 0.0
	for i := range octaves {
		v := Value3D(p[0]*frequency, p[1]*frequency, p[2]*frequency, seed+int64(i*131))
		sum += v * amplitude
		norm += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}
