package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagSize       = flag.Float64("size", 0, "Planet cube edge length")
	flagResolution = flag.Int("resolution", 0, "Quads per chunk edge (even)")
	flagSplit      = flag.Int("split", -1, "Maximum quadtree depth")
	flagSeed       = flag.Int64("seed", 0, "Terrain noise seed")
	flagWorkers    = flag.Int("workers", 0, "Mesh worker goroutines (0 = NumCPU)")
	flagWireframe  = flag.Bool("wireframe", false, "Start in wireframe mode")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSize > 0 {
		cfg.Planet.Size = *flagSize
	}
	if *flagResolution > 0 {
		cfg.Planet.Resolution = *flagResolution
	}
	if *flagSplit >= 0 {
		cfg.Planet.Split = *flagSplit
	}
	if *flagSeed != 0 {
		cfg.Noise.Seed = *flagSeed
	}
	if *flagWorkers > 0 {
		cfg.Scheduler.Workers = *flagWorkers
	}
	if *flagWireframe {
		cfg.Graphics.Wireframe = true
	}
	if *flagWindowed {
		cfg.Graphics.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
}
