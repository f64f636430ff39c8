package quadtree

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Faultbox/quadsphere/internal/engine/collision"
	"github.com/Faultbox/quadsphere/internal/engine/terrain"
)

// ErrOffMain is returned by MemoryFactory when it is called outside a main task.
var ErrOffMain = errors.New("quadtree: resource call off the main context")

// MemoryFactory is a ResourceFactory without a GPU: meshes keep their CPU data
// and colliders are collision.TriangleShapes. Headless tools and tests use it.
// It counts live resources so leaks show up.
type MemoryFactory struct {
	// InMain, when set, must report true for every call; see sched.MainQueue.InTask.
	InMain func() bool

	// Fail, when set, makes NewMesh fail for names it returns true for.
	Fail func(name string) bool

	mu        sync.Mutex
	meshes    map[*MemoryMesh]struct{}
	colliders int
	created   int
}

// NewMemoryFactory creates an empty factory.
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{meshes: make(map[*MemoryMesh]struct{})}
}

// NewMesh implements ResourceFactory.
func (f *MemoryFactory) NewMesh(name string, data *terrain.MeshData) (Mesh, error) {
	if f.InMain != nil && !f.InMain() {
		return nil, fmt.Errorf("mesh %s: %w", name, ErrOffMain)
	}
	if f.Fail != nil && f.Fail(name) {
		return nil, fmt.Errorf("mesh %s: injected failure", name)
	}
	if data == nil {
		return nil, fmt.Errorf("mesh %s: no data", name)
	}

	m := &MemoryMesh{name: name, data: data, factory: f}
	f.mu.Lock()
	f.meshes[m] = struct{}{}
	f.created++
	f.mu.Unlock()
	return m, nil
}

// NewCollider implements ResourceFactory.
func (f *MemoryFactory) NewCollider(mesh Mesh) (Collider, error) {
	if f.InMain != nil && !f.InMain() {
		return nil, fmt.Errorf("collider %s: %w", mesh.Name(), ErrOffMain)
	}

	f.mu.Lock()
	f.colliders++
	f.mu.Unlock()
	return &memoryCollider{TriangleShape: collision.NewTriangleShape(mesh.Data()), factory: f}, nil
}

// LiveMeshes returns the number of meshes not yet released.
func (f *MemoryFactory) LiveMeshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.meshes)
}

// LiveColliders returns the number of colliders not yet released.
func (f *MemoryFactory) LiveColliders() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.colliders
}

// Created returns the number of meshes ever created.
func (f *MemoryFactory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

// Has reports whether a live mesh with the given name exists.
func (f *MemoryFactory) Has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for m := range f.meshes {
		if m.name == name {
			return true
		}
	}
	return false
}

// MemoryMesh is the mesh type created by MemoryFactory.
type MemoryMesh struct {
	name     string
	data     *terrain.MeshData
	factory  *MemoryFactory
	released bool
}

// Name implements Mesh.
func (m *MemoryMesh) Name() string { return m.name }

// Data implements Mesh.
func (m *MemoryMesh) Data() *terrain.MeshData { return m.data }

// Release implements Mesh.
func (m *MemoryMesh) Release() {
	if m.released {
		return
	}
	m.released = true
	m.factory.mu.Lock()
	delete(m.factory.meshes, m)
	m.factory.mu.Unlock()
}

type memoryCollider struct {
	*collision.TriangleShape
	factory  *MemoryFactory
	released bool
}

func (c *memoryCollider) Release() {
	if c.released {
		return
	}
	c.released = true
	c.TriangleShape.Release()
	c.factory.mu.Lock()
	c.factory.colliders--
	c.factory.mu.Unlock()
}
