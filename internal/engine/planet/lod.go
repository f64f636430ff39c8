package planet

import (
	"errors"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/quadsphere/internal/engine/quadtree"
)

// Tick advances the LOD timer by dt. Once the elapsed time exceeds the
// configured interval it asks the viewpoint source for the eye and refreshes
// every face. Missing or invalid viewpoints are logged and skipped. Main
// context only.
func (s *Shell) Tick(dt time.Duration) {
	if !s.generated.Load() {
		return
	}
	s.elapsed += dt
	if s.elapsed <= s.opts.LODInterval {
		return
	}
	s.elapsed = 0

	if s.viewpoints == nil {
		s.log.Warn("no viewpoint source, skipping LOD refresh")
		return
	}
	vp, ok := s.viewpoints.Viewpoint()
	if !ok {
		s.log.Warn("viewpoint unavailable, skipping LOD refresh")
		return
	}
	if err := s.RefreshLOD(vp); err != nil && !errors.Is(err, ErrNotGenerated) {
		s.log.Warn("LOD refresh skipped", zap.Error(err))
	}
}

// RefreshLOD reselects the visible blocks of all faces for vp, one goroutine
// per face.
func (s *Shell) RefreshLOD(vp quadtree.Viewpoint) error {
	if err := vp.Validate(); err != nil {
		return err
	}
	if !s.generated.Load() {
		return ErrNotGenerated
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var g errgroup.Group
	for _, f := range s.faces {
		if f == nil {
			continue
		}
		g.Go(func() error {
			f.Root.UpdateLOD(vp)
			return nil
		})
	}
	return g.Wait()
}

// Walk calls fn for every block of every attached face, parents first.
// Returning false skips the block's subtree.
func (s *Shell) Walk(fn func(*quadtree.Block) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.faces {
		if f != nil {
			f.Root.Walk(fn)
		}
	}
}

// VisibleBlocks returns the blocks whose meshes should be drawn this frame.
func (s *Shell) VisibleBlocks() []*quadtree.Block {
	var out []*quadtree.Block
	s.Walk(func(b *quadtree.Block) bool {
		if b.Visible() {
			out = append(out, b)
			return false
		}
		return true
	})
	return out
}

// Hit is the result of a ray cast against the planet surface.
type Hit struct {
	Block    *quadtree.Block
	Distance float64 // In units of the ray direction
	Point    mgl64.Vec3
}

// Raycast intersects a ray with the colliders of the visible blocks and
// returns the nearest hit.
func (s *Shell) Raycast(origin, dir mgl64.Vec3) (Hit, bool) {
	best := Hit{Distance: math.Inf(1)}
	for _, b := range s.VisibleBlocks() {
		c := b.Collider()
		if c == nil {
			continue
		}
		if t, ok := c.Raycast(origin, dir); ok && t < best.Distance {
			best = Hit{Block: b, Distance: t}
		}
	}
	if best.Block == nil {
		return Hit{}, false
	}
	best.Point = origin.Add(dir.Mul(best.Distance))
	return best, true
}

// Stats summarizes the attached trees.
type Stats struct {
	Generated      bool
	Blocks         int
	Visible        int
	VisibleByDepth []int // Index is the block depth
	Vertices       int   // Of visible blocks
	Triangles      int   // Of visible blocks
}

// Stats counts blocks, visible blocks per depth and drawn geometry.
func (s *Shell) Stats() Stats {
	st := Stats{
		Generated:      s.generated.Load(),
		VisibleByDepth: make([]int, s.opts.Split+1),
	}
	s.Walk(func(b *quadtree.Block) bool {
		st.Blocks++
		if b.Visible() {
			st.Visible++
			if d := b.Depth(); d < len(st.VisibleByDepth) {
				st.VisibleByDepth[d]++
			}
			st.Vertices += b.Data().VertexCount()
			st.Triangles += b.Data().TriangleCount()
		}
		return true
	})
	return st
}
