// Package config handles planet and viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalid is returned by Validate for settings the planet cannot be built with.
var ErrInvalid = errors.New("invalid config")

// Config holds all settings.
type Config struct {
	Planet    PlanetConfig    `yaml:"planet"`
	Noise     NoiseConfig     `yaml:"noise"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Graphics  GraphicsConfig  `yaml:"graphics"`
	Camera    CameraConfig    `yaml:"camera"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PlanetConfig holds the quadtree shape and LOD settings.
type PlanetConfig struct {
	Size         float64       `yaml:"size"`          // Cube edge length in world units
	Radius       float64       `yaml:"radius"`        // Base sphere radius, 0 means Size/2
	Resolution   int           `yaml:"resolution"`    // Quads per chunk edge, must be even
	Split        int           `yaml:"split"`         // Maximum quadtree depth
	LODThreshold float64       `yaml:"lod_threshold"` // Fraction of chunk size used as switch distance
	LODInterval  time.Duration `yaml:"lod_interval"`  // Minimum time between LOD passes
	ReferenceFOV float64       `yaml:"reference_fov"` // Degrees; FOV at which the view factor is unscaled
	BehindCutoff float64       `yaml:"behind_cutoff"` // Cosine below which a chunk counts as behind the eye
}

// EffectiveRadius returns Radius, or half the cube size when Radius is unset.
func (p PlanetConfig) EffectiveRadius() float64 {
	if p.Radius > 0 {
		return p.Radius
	}
	return p.Size / 2
}

// NoiseConfig holds the terrain height field parameters.
type NoiseConfig struct {
	Seed           int64   `yaml:"seed"`
	Octaves        int     `yaml:"octaves"`
	Persistence    float64 `yaml:"persistence"`
	Lacunarity     float64 `yaml:"lacunarity"`
	Frequency      float64 `yaml:"frequency"`
	Amplitude      float64 `yaml:"amplitude"`
	RidgeFrequency float64 `yaml:"ridge_frequency"`
	RidgePower     float64 `yaml:"ridge_power"`
	RidgeWeight    float64 `yaml:"ridge_weight"`
}

// SchedulerConfig sizes the worker pool and the main-context queue.
type SchedulerConfig struct {
	Workers           int `yaml:"workers"`              // 0 means runtime.NumCPU()
	WorkerQueue       int `yaml:"worker_queue"`         // Buffered worker jobs
	MainQueue         int `yaml:"main_queue"`           // Buffered main-context tasks
	MainTasksPerFrame int `yaml:"main_tasks_per_frame"` // Commit budget per rendered frame
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Fullscreen bool    `yaml:"fullscreen"`
	VSync      bool    `yaml:"vsync"`
	FOV        float64 `yaml:"fov"` // Vertical field of view in degrees
	Wireframe  bool    `yaml:"wireframe"`
}

// CameraConfig holds orbit camera settings.
type CameraConfig struct {
	Distance    float64 `yaml:"distance"`     // Initial distance from the planet center
	MinAltitude float64 `yaml:"min_altitude"` // Closest approach above the base radius
	MaxDistance float64 `yaml:"max_distance"`
	Speed       float64 `yaml:"speed"` // Radians per second along the great circle
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Planet: PlanetConfig{
			Size:         1024,
			Resolution:   32,
			Split:        4,
			LODThreshold: 1.5,
			LODInterval:  100 * time.Millisecond,
			ReferenceFOV: 70,
			BehindCutoff: -0.1,
		},
		Noise: NoiseConfig{
			Seed:           1337,
			Octaves:        5,
			Persistence:    0.5,
			Lacunarity:     2.0,
			Frequency:      2.0,
			Amplitude:      24,
			RidgeFrequency: 1.5,
			RidgePower:     2.0,
			RidgeWeight:    0.6,
		},
		Scheduler: SchedulerConfig{
			Workers:           0,
			WorkerQueue:       256,
			MainQueue:         1024,
			MainTasksPerFrame: 16,
		},
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FOV:        70,
			Wireframe:  false,
		},
		Camera: CameraConfig{
			Distance:    1600,
			MinAltitude: 4,
			MaxDistance: 8000,
			Speed:       0.6,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings that would produce a malformed quadtree.
func (c *Config) Validate() error {
	p := c.Planet
	switch {
	case p.Size <= 0:
		return fmt.Errorf("%w: planet.size must be positive, got %v", ErrInvalid, p.Size)
	case p.Resolution < 2 || p.Resolution%2 != 0:
		return fmt.Errorf("%w: planet.resolution must be even and at least 2, got %d", ErrInvalid, p.Resolution)
	case p.Split < 0:
		return fmt.Errorf("%w: planet.split must not be negative, got %d", ErrInvalid, p.Split)
	case p.LODThreshold <= 0:
		return fmt.Errorf("%w: planet.lod_threshold must be positive, got %v", ErrInvalid, p.LODThreshold)
	case p.LODInterval < 0:
		return fmt.Errorf("%w: planet.lod_interval must not be negative, got %v", ErrInvalid, p.LODInterval)
	case p.ReferenceFOV <= 0:
		return fmt.Errorf("%w: planet.reference_fov must be positive, got %v", ErrInvalid, p.ReferenceFOV)
	case c.Graphics.FOV <= 0 || c.Graphics.FOV >= 180:
		return fmt.Errorf("%w: graphics.fov must be in (0, 180), got %v", ErrInvalid, c.Graphics.FOV)
	case c.Noise.Octaves < 0:
		return fmt.Errorf("%w: noise.octaves must not be negative, got %d", ErrInvalid, c.Noise.Octaves)
	case c.Scheduler.Workers < 0:
		return fmt.Errorf("%w: scheduler.workers must not be negative, got %d", ErrInvalid, c.Scheduler.Workers)
	}
	return nil
}
