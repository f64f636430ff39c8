package terrain

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/pkg/noise"
)

func buildChildren(parent Patch, s Surface) [4]*MeshData {
	var children [4]*MeshData
	for i := range children {
		children[i] = BuildMesh(parent.Quadrant(i), s)
	}
	return children
}

func TestResampleCopiesChildVertices(t *testing.T) {
	const r = 8
	parent := topPatch(r)
	s := testSurface()
	children := buildChildren(parent, s)

	m, fallbacks := Resample(parent, s, children)
	if fallbacks != 0 {
		t.Errorf("fallbacks = %d, want 0", fallbacks)
	}
	if got, want := m.VertexCount(), (r+1)*(r+1); got != want {
		t.Fatalf("vertices = %d, want %d", got, want)
	}
	if got, want := m.TriangleCount(), 2*r*r; got != want {
		t.Errorf("triangles = %d, want %d", got, want)
	}

	tests := []struct {
		name         string
		x, z         int
		child        int
		childX, chiZ int
	}{
		{"anchor", 0, 0, 2, 0, 0},
		{"low-x low-z", 3, 1, 2, 6, 2},
		{"high-x low-z", 4, 0, 3, 0, 0},
		{"low-x high-z", 2, 5, 0, 4, 2},
		{"high-x high-z", 8, 8, 1, 8, 8},
		{"center", 4, 4, 1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Positions[tt.z*(r+1)+tt.x]
			want := children[tt.child].Positions[tt.chiZ*(r+1)+tt.childX]
			if got != want {
				t.Errorf("parent (%d,%d) = %v, want child %d (%d,%d) = %v", tt.x, tt.z, got, tt.child, tt.childX, tt.chiZ, want)
			}
		})
	}
}

func TestResampleEveryVertexFromAChild(t *testing.T) {
	const r = 6
	parent := topPatch(r)
	s := testSurface()
	children := buildChildren(parent, s)
	m, _ := Resample(parent, s, children)

	for i, p := range m.Positions {
		found := false
		for _, c := range children {
			for _, cp := range c.Positions {
				if cp == p {
					found = true
				}
			}
		}
		if !found {
			t.Fatalf("parent vertex %d %v is not bit-identical to any child vertex", i, p)
		}
	}
}

func TestResampleMatchesAnalyticOnFlatSphere(t *testing.T) {
	const r = 8
	parent := topPatch(r)
	s := Surface{Radius: 512, Field: noise.Flat{}}

	m, _ := Resample(parent, s, buildChildren(parent, s))
	direct := BuildMesh(parent, s)
	for i := range m.Positions {
		if m.Positions[i].Sub(direct.Positions[i]).Len() > 1e-6 {
			t.Fatalf("vertex %d = %v, want %v", i, m.Positions[i], direct.Positions[i])
		}
	}
}

func TestResampleFallback(t *testing.T) {
	const r = 4
	parent := topPatch(r)
	s := testSurface()
	children := buildChildren(parent, s)

	// Child 1 owns x >= 2 and z >= 2: a 3x3 block of parent coordinates.
	missing := children
	missing[1] = nil
	m, fallbacks := Resample(parent, s, missing)
	if fallbacks != 9 {
		t.Errorf("fallbacks with missing child = %d, want 9", fallbacks)
	}
	want := s.Project(parent.GridPoint(4, 4))
	if got := m.Positions[4*(r+1)+4]; got != want {
		t.Errorf("fallback vertex = %v, want %v", got, want)
	}

	// Wrong length counts as missing.
	short := children
	short[2] = &MeshData{Positions: []mgl64.Vec3{{1, 2, 3}}}
	if _, fallbacks := Resample(parent, s, short); fallbacks != 4 {
		t.Errorf("fallbacks with short child = %d, want 4", fallbacks)
	}

	var none [4]*MeshData
	if _, fallbacks := Resample(parent, s, none); fallbacks != (r+1)*(r+1) {
		t.Errorf("fallbacks with no children = %d, want %d", fallbacks, (r+1)*(r+1))
	}
}
