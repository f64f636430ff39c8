package terrain

import (
	"bufio"
	"fmt"
	"io"
)

// OBJWriter streams meshes as one Wavefront OBJ file, one group per mesh.
// Positions are written in world space, so adjacent chunks line up.
type OBJWriter struct {
	w     *bufio.Writer
	base  int // Vertices written so far; OBJ indices are global and 1-based
	count int
}

// NewOBJWriter creates a writer. Call Close to flush.
func NewOBJWriter(w io.Writer) *OBJWriter {
	return &OBJWriter{w: bufio.NewWriter(w)}
}

// WriteMesh appends m under group name. Nil or empty meshes are skipped.
func (o *OBJWriter) WriteMesh(name string, m *MeshData) error {
	if m.VertexCount() == 0 {
		return nil
	}
	if o.count == 0 {
		if _, err := fmt.Fprintln(o.w, "# quadsphere chunk export"); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(o.w, "g %s\n", name); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	for _, p := range m.Positions {
		if _, err := fmt.Fprintf(o.w, "v %g %g %g\n", p[0], p[1], p[2]); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	for _, n := range m.Normals {
		if _, err := fmt.Fprintf(o.w, "vn %g %g %g\n", n[0], n[1], n[2]); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	for _, uv := range m.UVs {
		if _, err := fmt.Fprintf(o.w, "vt %g %g\n", uv[0], uv[1]); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a := int(m.Indices[i]) + o.base + 1
		b := int(m.Indices[i+1]) + o.base + 1
		c := int(m.Indices[i+2]) + o.base + 1
		if _, err := fmt.Fprintf(o.w, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	o.base += m.VertexCount()
	o.count++
	return nil
}

// Meshes returns the number of meshes written.
func (o *OBJWriter) Meshes() int { return o.count }

// Close flushes buffered output. It does not close the underlying writer.
func (o *OBJWriter) Close() error {
	return o.w.Flush()
}
