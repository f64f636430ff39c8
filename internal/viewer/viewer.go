// Package viewer implements the interactive planet viewer loop.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/quadsphere/internal/config"
	"github.com/Faultbox/quadsphere/internal/engine/camera"
	"github.com/Faultbox/quadsphere/internal/engine/debug"
	"github.com/Faultbox/quadsphere/internal/engine/input"
	"github.com/Faultbox/quadsphere/internal/engine/lighting"
	"github.com/Faultbox/quadsphere/internal/engine/planet"
	"github.com/Faultbox/quadsphere/internal/engine/renderer"
	"github.com/Faultbox/quadsphere/internal/engine/sched"
	"github.com/Faultbox/quadsphere/internal/engine/window"
	"github.com/Faultbox/quadsphere/internal/logger"
)

// clickSlop is how far in pixels the mouse may move between press and release
// for the gesture to count as a click.
const clickSlop = 4

// Viewer is the interactive planet viewer.
type Viewer struct {
	cfg     *config.Config
	log     *zap.Logger
	running bool

	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.PlanetCamera
	sun      *lighting.Sun

	main    *sched.MainQueue
	workers *sched.WorkerPool
	factory *renderer.Factory
	shell   *planet.Shell
	shots   *debug.Screenshots

	ctx     context.Context
	cancel  context.CancelFunc
	builds  planet.Builds
	seed    int64

	capture  bool   // Save the next rendered frame
	press    [2]int // Mouse position at left button press
	dragged  bool
	pressing bool
}

// New creates the window, renderer and an ungenerated planet.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		cfg:  cfg,
		log:  logger.Named("viewer"),
		seed: cfg.Noise.Seed,
	}

	var err error
	v.window, err = window.New(window.Config{
		Title:      "quadsphere",
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	radius := cfg.Planet.EffectiveRadius()
	width, height := v.window.DrawableSize()
	v.renderer, err = renderer.New(renderer.Config{
		Width:     width,
		Height:    height,
		Wireframe: cfg.Graphics.Wireframe,
		Radius:    radius,
		Amplitude: cfg.Noise.Amplitude,
		FogFar:    radius * 6,
	})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.input = input.New()
	v.sun = lighting.NewSun()

	v.camera = camera.NewPlanetCamera(radius, cfg.Camera.Distance)
	v.camera.FOV = cfg.Graphics.FOV
	v.camera.MinAltitude = cfg.Camera.MinAltitude
	v.camera.MaxDistance = cfg.Camera.MaxDistance
	v.camera.Speed = cfg.Camera.Speed

	v.main = sched.NewMainQueue(cfg.Scheduler.MainQueue)
	v.workers = sched.NewWorkerPool(cfg.Scheduler.Workers, cfg.Scheduler.WorkerQueue)
	v.factory = renderer.NewFactory()

	v.shell, err = planet.New(cfg.PlanetOptions(), planet.Deps{
		Field:      cfg.Terrain(),
		Workers:    v.workers,
		Main:       v.main,
		Factory:    v.factory,
		Viewpoints: v.camera,
	})
	if err != nil {
		v.closeEngine()
		return nil, fmt.Errorf("failed to create planet: %w", err)
	}

	v.shots = debug.NewScreenshots("screenshots", "planet")
	v.camera.Ground = func(p mgl64.Vec3) float64 {
		return v.shell.Surface().Project(p).Len()
	}

	v.ctx, v.cancel = context.WithCancel(context.Background())

	v.log.Info("viewer initialized",
		zap.Int("workers", v.workers.Workers()),
		zap.Float64("radius", radius),
		zap.Int64("seed", v.seed))
	return v, nil
}

// Run starts generation and runs the frame loop until the window closes.
func (v *Viewer) Run() error {
	v.running = true
	v.builds.Add(v.shell.BuildAsync(v.ctx))

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting viewer loop")

	for v.running {
		now := time.Now()
		dt := now.Sub(lastTime)
		lastTime = now

		// 1. Input
		if v.input.Update() {
			v.running = false
			break
		}
		v.handleEvents()
		v.camera.HandleMovement(
			v.input.Axis(sdl.SCANCODE_S, sdl.SCANCODE_W),
			v.input.Axis(sdl.SCANCODE_A, sdl.SCANCODE_D),
			dt.Seconds(),
		)
		v.camera.Update(dt.Seconds())
		v.sun.Update(dt.Seconds())

		// 2. Main-context work: commits, releases and attaches
		v.main.Drain(v.cfg.Scheduler.MainTasksPerFrame)
		v.pollBuild()

		// 3. Level of detail
		v.shell.Tick(dt)

		// 4. Render
		v.render()
		if v.capture {
			v.capture = false
			v.screenshot()
		}
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.updateTitle(frameCount)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) handleEvents() {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			v.renderer.Resize(v.window.DrawableSize())

		case input.EventKeyDown:
			if event.Repeat {
				continue
			}
			switch event.Key {
			case sdl.SCANCODE_ESCAPE:
				v.running = false
			case sdl.SCANCODE_F:
				v.renderer.ToggleWireframe()
			case sdl.SCANCODE_C:
				v.renderer.ToggleDepthColors()
			case sdl.SCANCODE_L:
				v.sun.Animated = !v.sun.Animated
			case sdl.SCANCODE_B:
				v.renderer.ToggleBounds()
			case sdl.SCANCODE_F12:
				v.capture = true
			case sdl.SCANCODE_R:
				v.regenerate()
			}

		case input.EventMouseDown:
			if event.Button == sdl.BUTTON_LEFT {
				v.press = [2]int{event.MouseX, event.MouseY}
				v.pressing = true
				v.dragged = false
			}

		case input.EventMouseMove:
			if v.pressing {
				dx, dy := event.MouseX-v.press[0], event.MouseY-v.press[1]
				if abs(dx) > clickSlop || abs(dy) > clickSlop {
					v.dragged = true
				}
				if v.dragged {
					v.camera.HandleDrag(float64(event.DeltaX), float64(event.DeltaY))
				}
			}

		case input.EventMouseUp:
			if event.Button == sdl.BUTTON_LEFT && v.pressing {
				v.pressing = false
				if !v.dragged {
					v.pick(event.MouseX, event.MouseY)
				}
			}

		case input.EventMouseWheel:
			v.camera.HandleZoom(float64(event.DeltaY))
		}
	}
}

// regenerate rebuilds the planet with the next seed.
func (v *Viewer) regenerate() {
	v.seed++
	v.log.Info("regenerating planet", zap.Int64("seed", v.seed))
	v.builds.Add(v.shell.RegenerateAsync(v.ctx, v.cfg.TerrainWithSeed(v.seed)))
}

// pollBuild logs the results of finished builds without blocking.
func (v *Viewer) pollBuild() {
	for _, err := range v.builds.Poll() {
		v.logBuild(err)
	}
}

func (v *Viewer) logBuild(err error) {
	switch {
	case err == nil:
	case errors.Is(err, planet.ErrSuperseded), errors.Is(err, context.Canceled):
		v.log.Debug("planet build dropped", zap.Error(err))
	default:
		v.log.Error("planet build failed", zap.Error(err))
	}
}

// pick flies the camera towards the surface point under the cursor.
func (v *Viewer) pick(x, y int) {
	width, height := v.window.Size()
	origin, dir := v.camera.ScreenRay(float64(x), float64(y), float64(width), float64(height))
	hit, ok := v.shell.Raycast(origin, dir)
	if !ok {
		return
	}
	v.log.Debug("surface picked",
		zap.String("block", hit.Block.Name()),
		zap.Float64("distance", hit.Distance))
	v.camera.TravelTo(hit.Point)
}

// screenshot saves the frame in the back buffer.
func (v *Viewer) screenshot() {
	pixels, width, height := v.renderer.ReadPixels()
	name, err := v.shots.Save(pixels, width, height)
	if err != nil {
		v.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("file", name))
}

func (v *Viewer) render() {
	v.renderer.Begin()
	if !v.shell.IsGenerated() {
		return
	}
	eye := v.camera.Position()
	v.renderer.DrawChunks(v.shell.VisibleBlocks(), renderer.Frame{
		View:       v.camera.ViewMatrix(),
		Projection: v.camera.ProjectionMatrix(v.renderer.Aspect()),
		Eye:        mgl32.Vec3{float32(eye[0]), float32(eye[1]), float32(eye[2])},
		LightDir:   v.sun.Direction(),
	})
}

func (v *Viewer) updateTitle(fps int) {
	stats := v.renderer.Stats()
	meshes, _, bytes := v.factory.Stats()
	v.window.SetTitle(fmt.Sprintf("quadsphere | %d fps | %d chunks | %d tris | %.1f MB | alt %.1f",
		fps, stats.DrawCalls, stats.Triangles, float64(bytes)/(1<<20), v.camera.Altitude()))
	v.log.Debug("frame stats",
		zap.Int("fps", fps),
		zap.Int("draw_calls", stats.DrawCalls),
		zap.Int("meshes", meshes),
		zap.Int("main_pending", v.main.Pending()))
}

// Close releases the planet and shuts the engine down.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.cancel != nil {
		v.cancel()
	}
	// Cancelled and superseded builds still hand their blocks to the main
	// queue for release.
	for _, err := range v.builds.Wait(v.await) {
		v.logBuild(err)
	}
	if v.shell != nil {
		if err := v.await(asyncErr(func() error {
			return v.shell.Release(context.Background())
		})); err != nil {
			v.log.Warn("failed to release planet", zap.Error(err))
		}
	}

	v.closeEngine()
}

func (v *Viewer) closeEngine() {
	if v.main != nil {
		v.main.Close()
	}
	if v.workers != nil {
		v.workers.Shutdown()
	}
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}

// await drains the main queue on the calling goroutine until ch delivers.
func (v *Viewer) await(ch <-chan error) error {
	for {
		select {
		case err := <-ch:
			v.main.Drain(0)
			return err
		default:
		}
		if v.main.Drain(0) == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}

func asyncErr(fn func() error) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- fn() }()
	return ch
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
