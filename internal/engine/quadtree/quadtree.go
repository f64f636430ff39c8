// Package quadtree implements the per-face chunk tree of a cube-mapped planet.
//
// Each Block covers a square of a cube face. Leaves generate their mesh from
// the terrain surface on the worker pool; interior blocks resample their
// children. Meshes and colliders are created, and released, only on the main
// execution context through a ResourceFactory. Level of detail is picked per
// frame by flipping visibility flags; geometry is never rebuilt for LOD.
package quadtree

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/internal/engine/sched"
	"github.com/Faultbox/quadsphere/internal/engine/terrain"
	"github.com/Faultbox/quadsphere/pkg/spheremath"
)

var (
	// ErrInvalidConfig is returned for tree settings that cannot produce a mesh.
	ErrInvalidConfig = errors.New("quadtree: invalid configuration")

	// ErrInvalidViewpoint is returned for a viewpoint LOD cannot be computed from.
	ErrInvalidViewpoint = errors.New("quadtree: invalid viewpoint")
)

// Settings are shared by every block of a tree.
type Settings struct {
	Resolution   int     // Quads per block edge, even and >= 2
	MaxDepth     int     // Depth of the leaves; 0 makes the root a leaf
	LODThreshold float64 // Fraction of the block size used as switch distance
	ReferenceFOV float64 // Field of view, in degrees, the threshold is tuned for
	BehindCutoff float64 // View cosine below which blocks count as behind the eye
}

// Validate checks the settings.
func (s Settings) Validate() error {
	switch {
	case s.Resolution < 2 || s.Resolution%2 != 0:
		return fmt.Errorf("%w: resolution %d must be even and at least 2", ErrInvalidConfig, s.Resolution)
	case s.MaxDepth < 0:
		return fmt.Errorf("%w: max depth %d is negative", ErrInvalidConfig, s.MaxDepth)
	case s.LODThreshold <= 0:
		return fmt.Errorf("%w: lod threshold %v must be positive", ErrInvalidConfig, s.LODThreshold)
	case s.ReferenceFOV <= 0:
		return fmt.Errorf("%w: reference fov %v must be positive", ErrInvalidConfig, s.ReferenceFOV)
	}
	return nil
}

// Viewpoint is the eye the LOD selection measures against.
type Viewpoint struct {
	Position mgl64.Vec3
	Forward  mgl64.Vec3 // View direction, need not be normalized
	FOV      float64    // Vertical field of view in degrees
}

// Validate checks that LOD can be computed from the viewpoint.
func (v Viewpoint) Validate() error {
	for i := 0; i < 3; i++ {
		if !finite(v.Position[i]) || !finite(v.Forward[i]) {
			return fmt.Errorf("%w: non-finite vector", ErrInvalidViewpoint)
		}
	}
	if v.Forward.Len() < 1e-9 {
		return fmt.Errorf("%w: zero forward vector", ErrInvalidViewpoint)
	}
	if !(v.FOV > 0 && v.FOV < 180) {
		return fmt.Errorf("%w: fov %v outside (0, 180)", ErrInvalidViewpoint, v.FOV)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Mesh is a renderable created on the main context.
type Mesh interface {
	Name() string
	Data() *terrain.MeshData
	Release()
}

// Collider is a collision shape created on the main context.
type Collider interface {
	Bounds() spheremath.AABB
	Raycast(origin, dir mgl64.Vec3) (float64, bool)
	Release()
}

// ResourceFactory creates engine resources. Every method is called only from
// inside a task on the main executor.
type ResourceFactory interface {
	NewMesh(name string, data *terrain.MeshData) (Mesh, error)
	NewCollider(mesh Mesh) (Collider, error)
}

// Pipeline carries what a build needs besides the tree itself.
type Pipeline struct {
	Surface terrain.Surface
	Workers sched.Executor // CPU-bound mesh generation
	Main    sched.Executor // Resource creation and release
	Factory ResourceFactory

	fallbacks atomic.Int64
}

// Fallbacks returns how many interior vertices had to be computed from the
// surface because a child buffer was unusable.
func (p *Pipeline) Fallbacks() int64 {
	return p.fallbacks.Load()
}
