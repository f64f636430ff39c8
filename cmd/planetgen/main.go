// planetgen builds a planet headlessly, selects its level of detail for an eye
// position and prints what would be drawn.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/quadsphere/internal/config"
	"github.com/Faultbox/quadsphere/internal/engine/planet"
	"github.com/Faultbox/quadsphere/internal/engine/quadtree"
	"github.com/Faultbox/quadsphere/internal/engine/sched"
	"github.com/Faultbox/quadsphere/internal/engine/terrain"
	"github.com/Faultbox/quadsphere/internal/logger"
)

var (
	flagEye        = flag.String("eye", "", "Eye position x,y,z (default: above +Z at camera.distance)")
	flagLook       = flag.String("look", "", "Point the eye looks at x,y,z (default: planet center)")
	flagFOV        = flag.Float64("fov", 0, "Vertical field of view in degrees (default: graphics.fov)")
	flagOBJ        = flag.String("obj", "", "Write the visible chunks to this Wavefront OBJ file")
	flagSaveConfig = flag.String("save-config", "", "Write the effective config to this YAML file and exit")
	flagTimeout    = flag.Duration("timeout", 5*time.Minute, "Abort generation after this long")
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if *flagSaveConfig != "" {
		if err := cfg.SaveTo(*flagSaveConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config written to %s\n", *flagSaveConfig)
		return
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("planetgen failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	vp, err := viewpoint(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()

	// Without a window the main context is a goroutine draining the queue.
	mainQ := sched.NewMainQueue(cfg.Scheduler.MainQueue)
	mainCtx, stopMain := context.WithCancel(context.Background())
	mainDone := make(chan struct{})
	go func() {
		defer close(mainDone)
		if err := mainQ.Run(mainCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("main queue stopped", zap.Error(err))
		}
	}()
	defer func() {
		stopMain()
		<-mainDone
		mainQ.Close()
	}()

	workers := sched.NewWorkerPool(cfg.Scheduler.Workers, cfg.Scheduler.WorkerQueue)
	defer workers.Shutdown()

	factory := quadtree.NewMemoryFactory()
	factory.InMain = mainQ.InTask

	shell, err := planet.New(cfg.PlanetOptions(), planet.Deps{
		Field:   cfg.Terrain(),
		Workers: workers,
		Main:    mainQ,
		Factory: factory,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shell.Release(context.Background()); err != nil {
			logger.Warn("failed to release planet", zap.Error(err))
		}
	}()

	start := time.Now()
	if err := shell.Build(ctx); err != nil {
		return err
	}
	took := time.Since(start)

	if err := shell.RefreshLOD(vp); err != nil {
		return err
	}

	printReport(cfg, shell, vp, took, factory)

	if *flagOBJ != "" {
		if err := exportOBJ(*flagOBJ, shell); err != nil {
			return err
		}
	}
	return nil
}

func viewpoint(cfg *config.Config) (quadtree.Viewpoint, error) {
	eye := mgl64.Vec3{0, 0, cfg.Camera.Distance}
	if *flagEye != "" {
		v, err := parseVec3(*flagEye)
		if err != nil {
			return quadtree.Viewpoint{}, fmt.Errorf("-eye: %w", err)
		}
		eye = v
	}

	var look mgl64.Vec3
	if *flagLook != "" {
		v, err := parseVec3(*flagLook)
		if err != nil {
			return quadtree.Viewpoint{}, fmt.Errorf("-look: %w", err)
		}
		look = v
	}

	fov := cfg.Graphics.FOV
	if *flagFOV > 0 {
		fov = *flagFOV
	}

	vp := quadtree.Viewpoint{Position: eye, Forward: look.Sub(eye), FOV: fov}
	if l := vp.Forward.Len(); l > 0 {
		vp.Forward = vp.Forward.Mul(1 / l)
	}
	return vp, vp.Validate()
}

// parseVec3 parses "x,y,z".
func parseVec3(s string) (mgl64.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v mgl64.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return mgl64.Vec3{}, fmt.Errorf("component %d: %w", i, err)
		}
		v[i] = f
	}
	return v, nil
}

func printReport(cfg *config.Config, shell *planet.Shell, vp quadtree.Viewpoint, took time.Duration, factory *quadtree.MemoryFactory) {
	st := shell.Stats()
	p := cfg.Planet

	fmt.Printf("Planet:     size %.0f, radius %.1f, resolution %d, split %d, seed %d\n",
		p.Size, shell.Radius(), p.Resolution, p.Split, cfg.Noise.Seed)
	fmt.Printf("Generated:  %d blocks in %v\n", st.Blocks, took.Round(time.Millisecond))
	fmt.Printf("Resources:  %d meshes, %d colliders\n", factory.LiveMeshes(), factory.LiveColliders())
	fmt.Printf("Eye:        (%.1f, %.1f, %.1f), altitude %.1f, fov %.0f\n",
		vp.Position[0], vp.Position[1], vp.Position[2], shell.Surface().Altitude(vp.Position), vp.FOV)
	fmt.Println()
	fmt.Println("Visible by depth:")
	for d, n := range st.VisibleByDepth {
		fmt.Printf("  %-3d %d\n", d, n)
	}
	fmt.Printf("Visible:    %d blocks, %d vertices, %d triangles\n", st.Visible, st.Vertices, st.Triangles)

	if hit, ok := shell.Raycast(vp.Position, vp.Forward); ok {
		fmt.Printf("Looking at: %s, %.1f units away\n", hit.Block.Name(), hit.Distance)
	}
}

func exportOBJ(path string, shell *planet.Shell) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := terrain.NewOBJWriter(f)
	for _, b := range shell.VisibleBlocks() {
		if err := w.WriteMesh(b.Name(), b.Data()); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Printf("Exported %d chunks to %s\n", w.Meshes(), path)
	return nil
}
