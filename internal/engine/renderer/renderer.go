// Package renderer draws the visible planet chunks with OpenGL.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/quadsphere/internal/engine/debug"
	"github.com/Faultbox/quadsphere/internal/engine/quadtree"
	"github.com/Faultbox/quadsphere/internal/engine/renderer/shaders"
	"github.com/Faultbox/quadsphere/internal/engine/shader"
	"github.com/Faultbox/quadsphere/internal/logger"
)

// Config holds renderer configuration.
type Config struct {
	Width     int
	Height    int
	Wireframe bool

	Radius    float64 // Base sphere radius, for altitude colouring
	Amplitude float64 // Terrain height scale
	FogFar    float64
}

// Frame holds the per-frame camera state.
type Frame struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Eye        mgl32.Vec3
	LightDir   mgl32.Vec3 // Direction the sunlight travels
}

// DrawStats describes the last drawn frame.
type DrawStats struct {
	DrawCalls int
	Triangles int
}

// Renderer handles all OpenGL rendering.
type Renderer struct {
	config      Config
	program     *shader.Program
	lines       *lineBatch
	lineBuf     []float32
	depthColors bool
	showBounds  bool
	stats       DrawStats
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER the OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config: cfg,
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)
	gl.ClearColor(0.05, 0.06, 0.09, 1.0)

	var err error
	r.program, err = shader.New(shaders.TerrainVertexShader, shaders.TerrainFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("terrain shader: %w", err)
	}
	r.lines, err = newLineBatch()
	if err != nil {
		r.program.Delete()
		return nil, err
	}

	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	logger.Info("closing renderer")
	if r.lines != nil {
		r.lines.delete()
	}
	if r.program != nil {
		r.program.Delete()
	}
}

// Resize handles window resize. Sizes are in drawable pixels.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Aspect returns the viewport aspect ratio.
func (r *Renderer) Aspect() float64 {
	if r.config.Height == 0 {
		return 1
	}
	return float64(r.config.Width) / float64(r.config.Height)
}

// Wireframe reports whether chunks are drawn as lines.
func (r *Renderer) Wireframe() bool { return r.config.Wireframe }

// ToggleWireframe switches between filled and line rendering.
func (r *Renderer) ToggleWireframe() {
	r.config.Wireframe = !r.config.Wireframe
}

// ToggleDepthColors tints every chunk by its quadtree depth.
func (r *Renderer) ToggleDepthColors() {
	r.depthColors = !r.depthColors
}

// ToggleBounds switches drawing of the visible blocks' bounding boxes.
func (r *Renderer) ToggleBounds() {
	r.showBounds = !r.showBounds
}

// Stats returns the statistics of the last DrawChunks call.
func (r *Renderer) Stats() DrawStats { return r.stats }

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// DrawChunks draws every block whose mesh was uploaded by a Factory.
func (r *Renderer) DrawChunks(blocks []*quadtree.Block, f Frame) {
	r.stats = DrawStats{}

	mode := uint32(gl.FILL)
	if r.config.Wireframe {
		mode = gl.LINE
	}
	gl.PolygonMode(gl.FRONT_AND_BACK, mode)

	r.program.Use()
	r.program.SetMat4("uViewProj", f.Projection.Mul4(f.View))
	r.program.SetVec3("uLightDir", f.LightDir)
	r.program.SetVec3("uEye", f.Eye)
	r.program.SetFloat("uRadius", float32(r.config.Radius))
	r.program.SetFloat("uAmplitude", float32(r.config.Amplitude))
	r.program.SetFloat("uAmbient", 0.25)
	r.program.SetFloat("uFogFar", float32(r.config.FogFar))

	for _, b := range blocks {
		m, ok := b.Mesh().(*Mesh)
		if !ok {
			continue
		}
		tint := mgl32.Vec3{1, 1, 1}
		if r.depthColors {
			tint = DepthColor(b.Depth())
		}
		r.program.SetVec3("uTint", tint)
		m.Draw()

		r.stats.DrawCalls++
		r.stats.Triangles += int(m.count / 3)
	}

	gl.BindVertexArray(0)
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)

	if r.showBounds {
		r.lineBuf = r.lineBuf[:0]
		for _, b := range blocks {
			r.lineBuf = append(r.lineBuf, debug.BoxLines(b.Bounds(), 0)...)
		}
		r.lines.draw(r.lineBuf, f.Projection.Mul4(f.View), mgl32.Vec3{1, 0.8, 0.2})
	}
}

// ReadPixels reads the current framebuffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() (pixels []byte, width, height int) {
	width, height = r.config.Width, r.config.Height
	pixels = make([]byte, width*height*4)
	if len(pixels) == 0 {
		return pixels, width, height
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, width, height
}

var depthPalette = [...]mgl32.Vec3{
	{1.00, 1.00, 1.00},
	{1.00, 0.70, 0.70},
	{0.70, 1.00, 0.70},
	{0.70, 0.75, 1.00},
	{1.00, 1.00, 0.60},
	{1.00, 0.65, 1.00},
	{0.60, 1.00, 1.00},
}

// DepthColor returns the debug tint for a quadtree depth. The palette repeats.
func DepthColor(depth int) mgl32.Vec3 {
	if depth < 0 {
		depth = 0
	}
	return depthPalette[depth%len(depthPalette)]
}
