// Package planet assembles six quadtree faces into a planet shell and drives
// their build, level of detail and regeneration.
package planet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/quadsphere/internal/engine/quadtree"
	"github.com/Faultbox/quadsphere/internal/engine/sched"
	"github.com/Faultbox/quadsphere/internal/engine/terrain"
	"github.com/Faultbox/quadsphere/internal/logger"
	"github.com/Faultbox/quadsphere/pkg/noise"
)

var (
	// ErrSuperseded is returned by a build that finished after a newer
	// Regenerate started. Its trees are released instead of attached.
	ErrSuperseded = errors.New("planet: build superseded")

	// ErrNotGenerated is returned when an operation needs attached faces.
	ErrNotGenerated = errors.New("planet: not generated")
)

// ViewpointSource supplies the eye used for level of detail. ok is false when
// no viewpoint is available, for example before a camera exists.
type ViewpointSource interface {
	Viewpoint() (vp quadtree.Viewpoint, ok bool)
}

// Options shape the planet.
type Options struct {
	Size         float64       // Edge length of the cube the faces start from
	Radius       float64       // Base sphere radius; <= 0 uses Size/2
	Resolution   int           // Quads per block edge
	Split        int           // Maximum subdivision depth
	LODThreshold float64       // Block switch distance as a fraction of its size
	LODInterval  time.Duration // Minimum time between LOD refreshes in Tick
	ReferenceFOV float64
	BehindCutoff float64
}

func (o Options) radius() float64 {
	if o.Radius > 0 {
		return o.Radius
	}
	return o.Size / 2
}

func (o Options) settings() quadtree.Settings {
	return quadtree.Settings{
		Resolution:   o.Resolution,
		MaxDepth:     o.Split,
		LODThreshold: o.LODThreshold,
		ReferenceFOV: o.ReferenceFOV,
		BehindCutoff: o.BehindCutoff,
	}
}

// Deps are the collaborators a shell builds with.
type Deps struct {
	Field      noise.Field
	Workers    sched.Executor
	Main       sched.Executor
	Factory    quadtree.ResourceFactory
	Viewpoints ViewpointSource // Optional; Tick does nothing without it
}

// Shell is the planet: six cube faces, each a quadtree of terrain blocks.
//
// Build, Regenerate and Release wait on the main executor and must not be
// called from a main task; the main loop uses BuildAsync and RegenerateAsync.
// Tick, RefreshLOD and VisibleBlocks belong to the main context.
type Shell struct {
	opts       Options
	settings   quadtree.Settings
	workers    sched.Executor
	main       sched.Executor
	factory    quadtree.ResourceFactory
	viewpoints ViewpointSource
	log        *zap.Logger

	mu    sync.RWMutex
	faces [6]*Face // Attached faces; nil entries until generated
	field noise.Field

	generation atomic.Uint64
	generated  atomic.Bool
	elapsed    time.Duration // Main context only
}

// New creates an empty shell. Call Build to generate it.
func New(opts Options, deps Deps) (*Shell, error) {
	settings := opts.settings()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if opts.Size <= 0 {
		return nil, fmt.Errorf("%w: size %v must be positive", quadtree.ErrInvalidConfig, opts.Size)
	}
	if opts.LODInterval < 0 {
		return nil, fmt.Errorf("%w: negative lod interval", quadtree.ErrInvalidConfig)
	}
	if deps.Workers == nil || deps.Main == nil || deps.Factory == nil {
		return nil, fmt.Errorf("%w: workers, main executor and factory are required", quadtree.ErrInvalidConfig)
	}

	field := deps.Field
	if field == nil {
		field = noise.Flat{}
	}

	return &Shell{
		opts:       opts,
		settings:   settings,
		workers:    deps.Workers,
		main:       deps.Main,
		factory:    deps.Factory,
		viewpoints: deps.Viewpoints,
		log:        logger.Named("planet"),
		field:      field,
	}, nil
}

// Options returns the options the shell was created with.
func (s *Shell) Options() Options { return s.opts }

// Radius returns the base sphere radius.
func (s *Shell) Radius() float64 { return s.opts.radius() }

// Surface returns the current terrain surface.
func (s *Shell) Surface() terrain.Surface {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return terrain.Surface{Radius: s.opts.radius(), Field: s.field}
}

// IsGenerated reports whether all six faces are built and attached.
func (s *Shell) IsGenerated() bool { return s.generated.Load() }

// Generation returns a counter bumped by every Regenerate and Release.
func (s *Shell) Generation() uint64 { return s.generation.Load() }

// SetViewpointSource replaces the provider Tick queries.
// Call it from the main context.
func (s *Shell) SetViewpointSource(v ViewpointSource) { s.viewpoints = v }

// Build generates the six faces concurrently and attaches them on the main
// context with their roots visible. If a Regenerate starts meanwhile, the
// result is released and ErrSuperseded returned.
func (s *Shell) Build(ctx context.Context) error {
	return s.build(ctx, s.generation.Load())
}

// BuildAsync runs Build on a new goroutine and delivers its result.
func (s *Shell) BuildAsync(ctx context.Context) <-chan error {
	gen := s.generation.Load()
	return async(func() error { return s.build(ctx, gen) })
}

// Regenerate drops the current faces and builds new ones from scratch.
func (s *Shell) Regenerate(ctx context.Context) error {
	return s.RegenerateWith(ctx, nil)
}

// RegenerateWith is Regenerate with a new height field; nil keeps the current one.
func (s *Shell) RegenerateWith(ctx context.Context, field noise.Field) error {
	return s.regenerate(ctx, s.restart(field))
}

// RegenerateAsync runs RegenerateWith on a new goroutine and delivers its result.
// The shell stops counting as generated before it returns.
func (s *Shell) RegenerateAsync(ctx context.Context, field noise.Field) <-chan error {
	gen := s.restart(field)
	return async(func() error { return s.regenerate(ctx, gen) })
}

// restart starts a new generation, optionally with a new field.
func (s *Shell) restart(field noise.Field) uint64 {
	gen := s.invalidate()
	if field != nil {
		s.mu.Lock()
		s.field = field
		s.mu.Unlock()
	}
	return gen
}

func (s *Shell) regenerate(ctx context.Context, gen uint64) error {
	if err := s.main.Do(ctx, func() error {
		if s.generation.Load() != gen {
			return ErrSuperseded
		}
		s.detach()
		return nil
	}); err != nil {
		return fmt.Errorf("release planet: %w", err)
	}
	return s.build(ctx, gen)
}

// Release detaches and frees every face. Builds still running are discarded.
func (s *Shell) Release(ctx context.Context) error {
	s.invalidate()
	return s.main.Do(ctx, func() error {
		s.detach()
		return nil
	})
}

func (s *Shell) invalidate() uint64 {
	gen := s.generation.Add(1)
	s.generated.Store(false)
	return gen
}

func async(fn func() error) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- fn() }()
	return ch
}

func (s *Shell) build(ctx context.Context, gen uint64) error {
	start := time.Now()
	pipeline := s.pipeline()

	var roots [6]*quadtree.Block
	for i, d := range Directions {
		root, err := newRoot(d, s.opts.Size, s.settings)
		if err != nil {
			return err
		}
		roots[i] = root
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, root := range roots {
		g.Go(func() error {
			return root.Build(gctx, pipeline)
		})
	}
	if err := g.Wait(); err != nil {
		s.discard(ctx, roots)
		s.log.Error("planet build failed", zap.Error(err))
		return fmt.Errorf("build planet: %w", err)
	}

	attached := false
	err := s.main.Do(ctx, func() error {
		if s.generation.Load() != gen {
			return ErrSuperseded
		}
		s.attach(roots)
		attached = true
		return nil
	})
	if !attached {
		s.discard(ctx, roots)
		if errors.Is(err, ErrSuperseded) {
			s.log.Info("discarded superseded planet build", zap.Uint64("generation", gen))
		}
		return fmt.Errorf("attach planet: %w", err)
	}

	s.log.Info("planet generated",
		zap.Uint64("generation", gen),
		zap.Int("faces", len(roots)),
		zap.Int("depth", s.opts.Split),
		zap.Int("resolution", s.opts.Resolution),
		zap.Int64("fallbacks", pipeline.Fallbacks()),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (s *Shell) pipeline() *quadtree.Pipeline {
	return &quadtree.Pipeline{
		Surface: s.Surface(),
		Workers: s.workers,
		Main:    s.main,
		Factory: s.factory,
	}
}

// attach installs freshly built roots. Main context only.
func (s *Shell) attach(roots [6]*quadtree.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, root := range roots {
		if old := s.faces[i]; old != nil {
			old.Root.Release()
		}
		root.SetVisible(true)
		s.faces[i] = &Face{Direction: Directions[i], Root: root}
	}
	s.elapsed = 0
	s.generated.Store(true)
}

// detach releases and forgets the attached faces. Main context only.
func (s *Shell) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.faces {
		if f != nil {
			f.Root.Release()
			s.faces[i] = nil
		}
	}
}

// discard releases trees that were never attached.
func (s *Shell) discard(ctx context.Context, roots [6]*quadtree.Block) {
	err := s.main.Do(context.WithoutCancel(ctx), func() error {
		for _, root := range roots {
			if root != nil {
				root.Release()
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warn("failed to release discarded faces", zap.Error(err))
	}
}

// Faces returns the attached faces, or nil when not generated.
func (s *Shell) Faces() []*Face {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.faces[0] == nil {
		return nil
	}
	out := make([]*Face, 0, len(s.faces))
	for _, f := range s.faces {
		out = append(out, f)
	}
	return out
}

// Face returns the attached face for d, or nil.
func (s *Shell) Face(d Direction) *Face {
	if d < 0 || int(d) >= len(s.faces) {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.faces[d]
}
