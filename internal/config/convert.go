package config

import (
	"github.com/Faultbox/quadsphere/internal/engine/planet"
	"github.com/Faultbox/quadsphere/pkg/noise"
)

// PlanetOptions converts the planet section into shell options.
func (c *Config) PlanetOptions() planet.Options {
	p := c.Planet
	return planet.Options{
		Size:         p.Size,
		Radius:       p.Radius,
		Resolution:   p.Resolution,
		Split:        p.Split,
		LODThreshold: p.LODThreshold,
		LODInterval:  p.LODInterval,
		ReferenceFOV: p.ReferenceFOV,
		BehindCutoff: p.BehindCutoff,
	}
}

// Terrain returns the height field described by the noise section.
func (c *Config) Terrain() noise.Terrain {
	return c.TerrainWithSeed(c.Noise.Seed)
}

// TerrainWithSeed is Terrain with the seed replaced.
func (c *Config) TerrainWithSeed(seed int64) noise.Terrain {
	n := c.Noise
	return noise.Terrain{
		Seed:           seed,
		Octaves:        n.Octaves,
		Persistence:    n.Persistence,
		Lacunarity:     n.Lacunarity,
		Frequency:      n.Frequency,
		Amplitude:      n.Amplitude,
		RidgeFrequency: n.RidgeFrequency,
		RidgePower:     n.RidgePower,
		RidgeWeight:    n.RidgeWeight,
	}
}
