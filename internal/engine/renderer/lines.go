package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/quadsphere/internal/engine/renderer/shaders"
	"github.com/Faultbox/quadsphere/internal/engine/shader"
)

// lineBatch draws a streamed list of debug line vertices.
type lineBatch struct {
	program  *shader.Program
	vao      uint32
	vbo      uint32
	capacity int // Floats the buffer can hold
}

func newLineBatch() (*lineBatch, error) {
	program, err := shader.New(shaders.LineVertexShader, shaders.LineFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("line shader: %w", err)
	}
	lb := &lineBatch{program: program}

	gl.GenVertexArrays(1, &lb.vao)
	gl.BindVertexArray(lb.vao)
	gl.GenBuffers(1, &lb.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, lb.vbo)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 3*4, 0)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)
	return lb, nil
}

func (lb *lineBatch) draw(vertices []float32, viewProj mgl32.Mat4, color mgl32.Vec3) {
	if len(vertices) == 0 {
		return
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, lb.vbo)
	if len(vertices) > lb.capacity {
		lb.capacity = len(vertices)
		gl.BufferData(gl.ARRAY_BUFFER, lb.capacity*4, unsafe.Pointer(&vertices[0]), gl.STREAM_DRAW)
	} else {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(vertices)*4, unsafe.Pointer(&vertices[0]))
	}

	lb.program.Use()
	lb.program.SetMat4("uViewProj", viewProj)
	lb.program.SetVec3("uColor", color)

	gl.BindVertexArray(lb.vao)
	gl.DrawArrays(gl.LINES, 0, int32(len(vertices)/3))
	gl.BindVertexArray(0)
}

func (lb *lineBatch) delete() {
	gl.DeleteVertexArrays(1, &lb.vao)
	gl.DeleteBuffers(1, &lb.vbo)
	lb.program.Delete()
}
