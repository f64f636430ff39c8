package renderer

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/quadsphere/internal/engine/collision"
	"github.com/Faultbox/quadsphere/internal/engine/quadtree"
	"github.com/Faultbox/quadsphere/internal/engine/terrain"
	"github.com/Faultbox/quadsphere/internal/logger"
)

// floatsPerVertex matches terrain.MeshData.Interleaved.
const floatsPerVertex = 8

// ErrEmptyMesh is returned for mesh data without vertices or indices.
var ErrEmptyMesh = errors.New("empty mesh data")

// Factory uploads chunk meshes to OpenGL. It must only be used on the thread
// that owns the GL context, which is what the main queue guarantees.
type Factory struct {
	meshes    int
	colliders int
	bytes     int
}

// NewFactory creates a GL resource factory.
func NewFactory() *Factory {
	return &Factory{}
}

// NewMesh implements quadtree.ResourceFactory.
func (f *Factory) NewMesh(name string, data *terrain.MeshData) (quadtree.Mesh, error) {
	if data == nil || data.VertexCount() == 0 || len(data.Indices) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyMesh)
	}

	vertices := data.Interleaved()
	m := &Mesh{
		name:    name,
		data:    data,
		count:   int32(len(data.Indices)),
		factory: f,
		bytes:   len(vertices)*4 + len(data.Indices)*4,
	}

	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(data.Indices)*4, unsafe.Pointer(&data.Indices[0]), gl.STATIC_DRAW)

	stride := int32(floatsPerVertex * 4)
	// Position
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	// Normal
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)
	// UV
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 6*4)
	gl.EnableVertexAttribArray(2)

	gl.BindVertexArray(0)

	f.meshes++
	f.bytes += m.bytes
	return m, nil
}

// NewCollider implements quadtree.ResourceFactory.
func (f *Factory) NewCollider(mesh quadtree.Mesh) (quadtree.Collider, error) {
	if mesh == nil || mesh.Data() == nil {
		return nil, ErrEmptyMesh
	}
	f.colliders++
	return &collider{TriangleShape: collision.NewTriangleShape(mesh.Data()), factory: f}, nil
}

// Stats returns the number of live meshes and colliders and the GPU bytes held.
func (f *Factory) Stats() (meshes, colliders, bytes int) {
	return f.meshes, f.colliders, f.bytes
}

// Mesh is an uploaded chunk mesh.
type Mesh struct {
	name    string
	data    *terrain.MeshData
	vao     uint32
	vbo     uint32
	ebo     uint32
	count   int32
	bytes   int
	factory *Factory
}

// Name implements quadtree.Mesh.
func (m *Mesh) Name() string { return m.name }

// Data implements quadtree.Mesh.
func (m *Mesh) Data() *terrain.MeshData { return m.data }

// Draw issues the indexed draw call. The terrain program must be bound.
func (m *Mesh) Draw() {
	if m.vao == 0 {
		return
	}
	gl.BindVertexArray(m.vao)
	gl.DrawElementsWithOffset(gl.TRIANGLES, m.count, gl.UNSIGNED_INT, 0)
}

// Release implements quadtree.Mesh. It must run on the GL thread.
func (m *Mesh) Release() {
	if m.vao == 0 {
		return
	}
	gl.DeleteVertexArrays(1, &m.vao)
	gl.DeleteBuffers(1, &m.vbo)
	gl.DeleteBuffers(1, &m.ebo)
	m.vao, m.vbo, m.ebo = 0, 0, 0

	m.factory.meshes--
	m.factory.bytes -= m.bytes
	logger.Debug("mesh released", zap.String("block", m.name))
}

type collider struct {
	*collision.TriangleShape
	factory  *Factory
	released bool
}

func (c *collider) Release() {
	if c.released {
		return
	}
	c.released = true
	c.TriangleShape.Release()
	c.factory.colliders--
}
