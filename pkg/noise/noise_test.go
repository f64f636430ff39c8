package noise

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// TestHash3Deterministic verifies hash3 produces identical results for same inputs
func TestHash3Deterministic(t *testing.T) {
	first := hash3(10, 20, 30, 42)
	for i := 0; i < 100; i++ {
		if got := hash3(10, 20, 30, 42); got != first {
			t.Fatalf("hash3 not deterministic: got %d, want %d", got, first)
		}
	}
}

func TestHash3DifferentInputs(t *testing.T) {
	seed := int64(42)
	pairs := []struct {
		name string
		a, b uint64
	}{
		{"x", hash3(1, 0, 0, seed), hash3(2, 0, 0, seed)},
		{"y", hash3(0, 1, 0, seed), hash3(0, 2, 0, seed)},
		{"z", hash3(0, 0, 1, seed), hash3(0, 0, 2, seed)},
		{"seed", hash3(1, 1, 1, 100), hash3(1, 1, 1, 200)},
		{"axis swap", hash3(1, 2, 3, seed), hash3(3, 2, 1, seed)},
	}
	for _, p := range pairs {
		if p.a == p.b {
			t.Errorf("hash3 should differ for different %s: both %d", p.name, p.a)
		}
	}
}

func TestValue3DRange(t *testing.T) {
	rng := rand.New(rand.NewSource(12345))
	for i := 0; i < 1000; i++ {
		x := rng.Float64()*200 - 100
		y := rng.Float64()*200 - 100
		z := rng.Float64()*200 - 100
		v := Value3D(x, y, z, 42)
		if v < -1 || v > 1 {
			t.Errorf("Value3D(%f, %f, %f) = %f, expected in [-1,1]", x, y, z, v)
		}
	}
}

func TestValue3DMatchesLatticeAtIntegers(t *testing.T) {
	for _, c := range [][3]int64{{0, 0, 0}, {3, -2, 7}, {-5, -5, -5}} {
		got := Value3D(float64(c[0]), float64(c[1]), float64(c[2]), 9)
		want := lattice(c[0], c[1], c[2], 9)
		if got != want {
			t.Errorf("Value3D at lattice %v = %v, want %v", c, got, want)
		}
	}
}

func TestValue3DContinuity(t *testing.T) {
	// Neighbouring samples across a lattice boundary must stay close.
	const step = 1e-6
	for _, x := range []float64{0.999999, 4.0, -2.0} {
		a := Value3D(x-step, 0.5, 0.5, 1)
		b := Value3D(x+step, 0.5, 0.5, 1)
		if math.Abs(a-b) > 1e-4 {
			t.Errorf("discontinuity at x=%v: %v vs %v", x, a, b)
		}
	}
}

func TestOctavesZero(t *testing.T) {
	if got := Octaves(mgl64.Vec3{1, 2, 3}, 1, 0, 0.5, 2); got != 0 {
		t.Errorf("Octaves with 0 octaves = %v, want 0", got)
	}
}

func TestTerrainAmplitudeBound(t *testing.T) {
	field := Terrain{
		Seed: 7, Octaves: 5, Persistence: 0.5, Lacunarity: 2, Frequency: 3, Amplitude: 20,
		RidgeFrequency: 2, RidgePower: 2, RidgeWeight: 0.8,
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		p := mgl64.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}.Normalize()
		h := field.Sample(p)
		if math.Abs(h) > field.Amplitude {
			t.Fatalf("Sample(%v) = %v exceeds amplitude %v", p, h, field.Amplitude)
		}
	}
}

func TestTerrainRidgeWarp(t *testing.T) {
	plain := Terrain{Seed: 3, Octaves: 4, Persistence: 0.5, Lacunarity: 2, Frequency: 2, Amplitude: 10}
	ridged := plain
	ridged.RidgeFrequency = 2
	ridged.RidgePower = 3
	ridged.RidgeWeight = 1

	p := mgl64.Vec3{0.3, 0.8, -0.52}.Normalize()
	w := ridged.ridge(p)
	if w < 0 || w > 1 {
		t.Fatalf("ridge warp %v outside [0,1]", w)
	}
	if got, want := ridged.Sample(p), plain.Sample(p)*w; math.Abs(got-want) > 1e-12 {
		t.Errorf("ridged sample = %v, want plain*warp = %v", got, want)
	}
	if plain.ridge(p) != 1 {
		t.Error("zero ridge weight should not warp")
	}
}

func TestTerrainDisabled(t *testing.T) {
	if got := (Terrain{Octaves: 4}).Sample(mgl64.Vec3{1, 0, 0}); got != 0 {
		t.Errorf("zero amplitude sample = %v, want 0", got)
	}
	if got := (Flat{}).Sample(mgl64.Vec3{1, 2, 3}); got != 0 {
		t.Errorf("Flat sample = %v, want 0", got)
	}
}

func TestTerrainConcurrentDeterminism(t *testing.T) {
	field := Terrain{Seed: 11, Octaves: 4, Persistence: 0.5, Lacunarity: 2, Frequency: 4, Amplitude: 8, RidgeFrequency: 3, RidgePower: 2, RidgeWeight: 0.5}
	p := mgl64.Vec3{0.1, 0.2, 0.97}.Normalize()
	want := field.Sample(p)

	var wg sync.WaitGroup
	results := make([]float64, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = field.Sample(p)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if got != want {
			t.Errorf("goroutine %d sample = %v, want %v", i, got, want)
		}
	}
}
