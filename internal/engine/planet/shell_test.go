package planet

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/internal/engine/quadtree"
	"github.com/Faultbox/quadsphere/internal/engine/sched"
	"github.com/Faultbox/quadsphere/pkg/noise"
)

type fixedViewpoint struct {
	vp quadtree.Viewpoint
	ok bool
}

func (f *fixedViewpoint) Viewpoint() (quadtree.Viewpoint, bool) { return f.vp, f.ok }

type testShell struct {
	*Shell
	main    *sched.MainQueue
	factory *quadtree.MemoryFactory
	view    *fixedViewpoint
}

func testOptions(r, split int) Options {
	return Options{
		Size:         1024,
		Radius:       512,
		Resolution:   r,
		Split:        split,
		LODThreshold: 0.5,
		LODInterval:  100 * time.Millisecond,
		ReferenceFOV: 70,
		BehindCutoff: -0.1,
	}
}

func newTestShell(t *testing.T, opts Options, field noise.Field) *testShell {
	t.Helper()
	main := sched.NewMainQueue(128)
	ctx, cancel := context.WithCancel(context.Background())
	go main.Run(ctx)
	pool := sched.NewWorkerPool(4, 128)
	t.Cleanup(func() {
		pool.Shutdown()
		cancel()
	})

	factory := quadtree.NewMemoryFactory()
	factory.InMain = main.InTask
	view := &fixedViewpoint{}

	s, err := New(opts, Deps{
		Field:      field,
		Workers:    pool,
		Main:       main,
		Factory:    factory,
		Viewpoints: view,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return &testShell{Shell: s, main: main, factory: factory, view: view}
}

func (ts *testShell) mustBuild(t *testing.T) {
	t.Helper()
	if err := ts.Build(context.Background()); err != nil {
		t.Fatalf("Build() error: %v", err)
	}
}

// blocksPerFace is the node count of a full tree of the given depth.
func blocksPerFace(split int) int {
	n, level := 0, 1
	for d := 0; d <= split; d++ {
		n += level
		level *= 4
	}
	return n
}

func farViewpoint() quadtree.Viewpoint {
	return quadtree.Viewpoint{Position: mgl64.Vec3{0, 20000, 0}, Forward: mgl64.Vec3{0, -1, 0}, FOV: 70}
}

func nearTopViewpoint() quadtree.Viewpoint {
	return quadtree.Viewpoint{Position: mgl64.Vec3{0, 812, 0}, Forward: mgl64.Vec3{0, -1, 0}, FOV: 70}
}

func TestFaceBasis(t *testing.T) {
	names := map[string]bool{}
	for _, d := range Directions {
		left, forward := d.Basis()
		if got := left.Cross(forward); got != d.Normal() {
			t.Errorf("%s: left x forward = %v, want %v", d, got, d.Normal())
		}
		names[d.String()] = true
	}
	if len(names) != 6 {
		t.Errorf("face names not unique: %v", names)
	}
	if Direction(9).String() != "unknown" {
		t.Errorf("out of range direction name = %q", Direction(9).String())
	}
}

func TestBuildAttachesSixVisibleRoots(t *testing.T) {
	ts := newTestShell(t, testOptions(32, 2), noise.Terrain{Seed: 1, Octaves: 3, Persistence: 0.5, Lacunarity: 2, Frequency: 2, Amplitude: 10})
	if ts.IsGenerated() {
		t.Fatal("IsGenerated() before Build")
	}
	ts.mustBuild(t)

	if !ts.IsGenerated() {
		t.Fatal("IsGenerated() = false after Build")
	}
	faces := ts.Faces()
	if len(faces) != 6 {
		t.Fatalf("Faces() = %d, want 6", len(faces))
	}
	for i, f := range faces {
		if f.Direction != Directions[i] || f.Root.Name() != Directions[i].String() {
			t.Errorf("face %d = %v/%s", i, f.Direction, f.Root.Name())
		}
	}

	st := ts.Stats()
	if st.Blocks != 6*blocksPerFace(2) {
		t.Errorf("Blocks = %d, want %d", st.Blocks, 6*blocksPerFace(2))
	}
	if st.VisibleByDepth[0] != 6 || st.VisibleByDepth[1] != 0 || st.VisibleByDepth[2] != 0 {
		t.Errorf("VisibleByDepth = %v, want [6 0 0]", st.VisibleByDepth)
	}
	if st.Vertices != 6*33*33 || st.Triangles != 6*2*32*32 {
		t.Errorf("visible geometry = %d verts %d tris", st.Vertices, st.Triangles)
	}
	if ts.factory.LiveMeshes() != st.Blocks || ts.factory.LiveColliders() != st.Blocks {
		t.Errorf("live meshes/colliders = %d/%d, want %d", ts.factory.LiveMeshes(), ts.factory.LiveColliders(), st.Blocks)
	}
}

func TestRefreshLODFarViewpoint(t *testing.T) {
	ts := newTestShell(t, testOptions(32, 2), noise.Flat{})
	ts.mustBuild(t)

	if err := ts.RefreshLOD(farViewpoint()); err != nil {
		t.Fatalf("RefreshLOD() error: %v", err)
	}
	st := ts.Stats()
	if st.Visible != 6 || st.VisibleByDepth[0] != 6 {
		t.Errorf("VisibleByDepth = %v, want six roots only", st.VisibleByDepth)
	}
}

func TestRefreshLODNearFace(t *testing.T) {
	ts := newTestShell(t, testOptions(8, 2), noise.Flat{})
	ts.mustBuild(t)

	if err := ts.RefreshLOD(nearTopViewpoint()); err != nil {
		t.Fatalf("RefreshLOD() error: %v", err)
	}

	top := ts.Face(Top).Root
	if top.Visible() {
		t.Error("top root should be hidden")
	}
	for _, c := range top.Children() {
		if !c.Visible() {
			t.Errorf("%s should be visible", c.Name())
		}
	}
	for _, d := range Directions {
		if d != Top && !ts.Face(d).Root.Visible() {
			t.Errorf("%s root should stay visible", d)
		}
	}

	st := ts.Stats()
	want := []int{5, 4, 0}
	for d := range want {
		if st.VisibleByDepth[d] != want[d] {
			t.Errorf("VisibleByDepth = %v, want %v", st.VisibleByDepth, want)
			break
		}
	}
	if got := len(ts.VisibleBlocks()); got != 9 {
		t.Errorf("VisibleBlocks() = %d, want 9", got)
	}
}

func TestRefreshLODSingleVisiblePerPath(t *testing.T) {
	ts := newTestShell(t, testOptions(4, 3), noise.Terrain{Seed: 8, Octaves: 4, Persistence: 0.5, Lacunarity: 2, Frequency: 3, Amplitude: 20})
	ts.mustBuild(t)

	eyes := []mgl64.Vec3{{0, 530, 0}, {300, 300, 300}, {-600, 10, 40}, {0, 0, -2000}, {5, -540, 5}}
	for _, eye := range eyes {
		vp := quadtree.Viewpoint{Position: eye, Forward: eye.Mul(-1), FOV: 60}
		if err := ts.RefreshLOD(vp); err != nil {
			t.Fatalf("RefreshLOD() error: %v", err)
		}
		for _, f := range ts.Faces() {
			var check func(b *quadtree.Block, above int)
			check = func(b *quadtree.Block, above int) {
				if b.Visible() {
					above++
				}
				if b.IsLeaf() {
					if above != 1 {
						t.Errorf("eye %v: path to %s has %d visible blocks", eye, b.Name(), above)
					}
					return
				}
				for _, c := range b.Children() {
					check(c, above)
				}
			}
			check(f.Root, 0)
		}
	}
}

func TestRefreshLODErrors(t *testing.T) {
	ts := newTestShell(t, testOptions(4, 1), noise.Flat{})

	if err := ts.RefreshLOD(farViewpoint()); !errors.Is(err, ErrNotGenerated) {
		t.Errorf("RefreshLOD before Build = %v, want ErrNotGenerated", err)
	}
	ts.mustBuild(t)
	if err := ts.RefreshLOD(quadtree.Viewpoint{Forward: mgl64.Vec3{0, 0, 1}}); !errors.Is(err, quadtree.ErrInvalidViewpoint) {
		t.Errorf("RefreshLOD with zero fov = %v, want ErrInvalidViewpoint", err)
	}
}

func TestTickHonoursInterval(t *testing.T) {
	ts := newTestShell(t, testOptions(8, 2), noise.Flat{})
	ts.view.vp, ts.view.ok = nearTopViewpoint(), true

	// Not generated yet: nothing happens.
	ts.Tick(time.Second)

	ts.mustBuild(t)
	top := ts.Face(Top).Root

	ts.Tick(50 * time.Millisecond)
	if !top.Visible() {
		t.Fatal("LOD refreshed before the interval elapsed")
	}
	ts.Tick(60 * time.Millisecond)
	if top.Visible() {
		t.Fatal("LOD not refreshed after the interval elapsed")
	}

	// Timer restarts after a refresh.
	ts.view.vp = farViewpoint()
	ts.Tick(10 * time.Millisecond)
	if top.Visible() {
		t.Error("LOD refreshed again without waiting for the interval")
	}
	ts.Tick(100 * time.Millisecond)
	if !top.Visible() {
		t.Error("far viewpoint should show the top root")
	}
}

func TestTickWaitsUntilIntervalExceeded(t *testing.T) {
	ts := newTestShell(t, testOptions(8, 2), noise.Flat{})
	ts.view.vp, ts.view.ok = nearTopViewpoint(), true
	ts.mustBuild(t)
	top := ts.Face(Top).Root

	ts.Tick(100 * time.Millisecond)
	if !top.Visible() {
		t.Fatal("LOD refreshed with elapsed time equal to the interval")
	}
	ts.Tick(time.Nanosecond)
	if top.Visible() {
		t.Error("LOD not refreshed once the interval was exceeded")
	}
}

func TestTickWithoutViewpointIsNoop(t *testing.T) {
	ts := newTestShell(t, testOptions(8, 2), noise.Flat{})
	ts.mustBuild(t)
	before := ts.Stats()

	ts.view.ok = false
	ts.Tick(time.Second)

	ts.view.vp, ts.view.ok = quadtree.Viewpoint{Position: mgl64.Vec3{0, 812, 0}}, true
	ts.Tick(time.Second)

	ts.SetViewpointSource(nil)
	ts.Tick(time.Second)

	after := ts.Stats()
	if before.Visible != after.Visible || after.VisibleByDepth[0] != 6 {
		t.Errorf("visibility changed without a usable viewpoint: %v -> %v", before.VisibleByDepth, after.VisibleByDepth)
	}
}

func TestRegenerate(t *testing.T) {
	opts := testOptions(8, 1)
	ts := newTestShell(t, opts, noise.Terrain{Seed: 1, Octaves: 3, Persistence: 0.5, Lacunarity: 2, Frequency: 2, Amplitude: 10})
	ts.mustBuild(t)
	oldRoot := ts.Face(Top).Root
	oldVertex := oldRoot.Data().Positions[0]
	created := ts.factory.Created()

	field := noise.Terrain{Seed: 2, Octaves: 3, Persistence: 0.5, Lacunarity: 2, Frequency: 2, Amplitude: 10}
	if err := ts.RegenerateWith(context.Background(), field); err != nil {
		t.Fatalf("RegenerateWith() error: %v", err)
	}

	if !ts.IsGenerated() {
		t.Fatal("IsGenerated() = false after regenerate")
	}
	newRoot := ts.Face(Top).Root
	if newRoot == oldRoot {
		t.Error("regenerate kept the old root")
	}
	if oldRoot.Data() != nil || !oldRoot.IsLeaf() {
		t.Error("old tree was not released")
	}
	if newRoot.Data().Positions[0] == oldVertex {
		t.Error("new seed produced the same surface")
	}
	want := 6 * blocksPerFace(1)
	if ts.factory.LiveMeshes() != want {
		t.Errorf("LiveMeshes() = %d, want %d", ts.factory.LiveMeshes(), want)
	}
	if ts.factory.Created() != created+want {
		t.Errorf("Created() = %d, want %d", ts.factory.Created(), created+want)
	}
	if !newRoot.Visible() {
		t.Error("new root should be visible")
	}

	// Same field again.
	if err := ts.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate() error: %v", err)
	}
	if ts.factory.LiveMeshes() != want {
		t.Errorf("LiveMeshes() after second regenerate = %d, want %d", ts.factory.LiveMeshes(), want)
	}
}

func TestSupersededBuildIsDiscarded(t *testing.T) {
	ts := newTestShell(t, testOptions(4, 1), noise.Flat{})

	stale := ts.generation.Load()
	ts.invalidate()
	err := ts.build(context.Background(), stale)
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("build() error = %v, want ErrSuperseded", err)
	}
	if ts.IsGenerated() || ts.Faces() != nil {
		t.Error("superseded build was attached")
	}
	if ts.factory.LiveMeshes() != 0 || ts.factory.LiveColliders() != 0 {
		t.Errorf("live meshes/colliders = %d/%d, want 0/0", ts.factory.LiveMeshes(), ts.factory.LiveColliders())
	}
}

func TestConcurrentBuildAndRegenerate(t *testing.T) {
	ts := newTestShell(t, testOptions(4, 2), noise.Flat{})

	first := ts.BuildAsync(context.Background())
	second := ts.RegenerateAsync(context.Background(), nil)

	if err := <-first; err != nil && !errors.Is(err, ErrSuperseded) {
		t.Fatalf("build error = %v, want nil or ErrSuperseded", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("regenerate error: %v", err)
	}

	if !ts.IsGenerated() {
		t.Fatal("IsGenerated() = false")
	}
	want := 6 * blocksPerFace(2)
	if ts.factory.LiveMeshes() != want {
		t.Errorf("LiveMeshes() = %d, want %d (one tree set)", ts.factory.LiveMeshes(), want)
	}
}

func TestBuildFailureLeavesNothing(t *testing.T) {
	ts := newTestShell(t, testOptions(4, 2), noise.Flat{})
	ts.factory.Fail = func(name string) bool { return name == "front/1/2" }

	err := ts.Build(context.Background())
	if err == nil {
		t.Fatal("Build() should fail")
	}
	if ts.IsGenerated() || ts.Faces() != nil {
		t.Error("failed build should attach nothing")
	}
	if ts.factory.LiveMeshes() != 0 || ts.factory.LiveColliders() != 0 {
		t.Errorf("live meshes/colliders = %d/%d, want 0/0", ts.factory.LiveMeshes(), ts.factory.LiveColliders())
	}
	if len(ts.VisibleBlocks()) != 0 {
		t.Error("failed build left visible blocks")
	}

	// A later regenerate recovers.
	ts.factory.Fail = nil
	if err := ts.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate() error: %v", err)
	}
	if !ts.IsGenerated() {
		t.Error("IsGenerated() = false after recovery")
	}
}

func TestRaycast(t *testing.T) {
	ts := newTestShell(t, testOptions(8, 1), noise.Flat{})
	ts.mustBuild(t)

	hit, ok := ts.Raycast(mgl64.Vec3{0, 2000, 0}, mgl64.Vec3{0, -1, 0})
	if !ok {
		t.Fatal("expected a hit on the top face")
	}
	if hit.Block.Name() != "top" {
		t.Errorf("hit block = %s, want top", hit.Block.Name())
	}
	if math.Abs(hit.Distance-1488) > 1e-6 || math.Abs(hit.Point[1]-512) > 1e-6 {
		t.Errorf("hit = %v at %v, want distance 1488 at y 512", hit.Distance, hit.Point)
	}

	if _, ok := ts.Raycast(mgl64.Vec3{0, 2000, 0}, mgl64.Vec3{0, 1, 0}); ok {
		t.Error("ray pointing away should miss")
	}
}

func TestRelease(t *testing.T) {
	ts := newTestShell(t, testOptions(4, 1), noise.Flat{})
	ts.mustBuild(t)

	if err := ts.Release(context.Background()); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if ts.IsGenerated() || ts.Faces() != nil {
		t.Error("released shell still has faces")
	}
	if ts.factory.LiveMeshes() != 0 {
		t.Errorf("LiveMeshes() = %d, want 0", ts.factory.LiveMeshes())
	}
}

func TestNewValidates(t *testing.T) {
	pool := sched.NewWorkerPool(1, 1)
	defer pool.Shutdown()
	main := sched.NewMainQueue(1)
	deps := Deps{Workers: pool, Main: main, Factory: quadtree.NewMemoryFactory()}

	tests := []struct {
		name   string
		modify func(*Options, *Deps)
	}{
		{"odd resolution", func(o *Options, _ *Deps) { o.Resolution = 5 }},
		{"zero size", func(o *Options, _ *Deps) { o.Size = 0 }},
		{"negative split", func(o *Options, _ *Deps) { o.Split = -1 }},
		{"negative interval", func(o *Options, _ *Deps) { o.LODInterval = -time.Second }},
		{"no main executor", func(_ *Options, d *Deps) { d.Main = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, d := testOptions(8, 1), deps
			tt.modify(&opts, &d)
			if _, err := New(opts, d); !errors.Is(err, quadtree.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}

	opts := testOptions(8, 1)
	opts.Radius = 0
	s, err := New(opts, deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if s.Radius() != 512 {
		t.Errorf("Radius() = %v, want half the size", s.Radius())
	}
}

func TestBuildsPoll(t *testing.T) {
	var b Builds
	finished := make(chan error, 1)
	finished <- ErrSuperseded
	b.Add(finished)
	b.Add(make(chan error))

	got := b.Poll()
	if len(got) != 1 || !errors.Is(got[0], ErrSuperseded) {
		t.Errorf("Poll() = %v, want [ErrSuperseded]", got)
	}
	if b.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", b.Pending())
	}
	if got := b.Poll(); len(got) != 0 {
		t.Errorf("second Poll() = %v, want nothing", got)
	}
}

// Superseded builds release their blocks on the main queue before Wait returns.
func TestBuildsWaitCoversSupersededBuilds(t *testing.T) {
	ts := newTestShell(t, testOptions(8, 2), noise.Flat{})
	ctx := context.Background()

	var b Builds
	b.Add(ts.BuildAsync(ctx))
	b.Add(ts.RegenerateAsync(ctx, noise.Terrain{Seed: 2, Octaves: 2, Persistence: 0.5, Lacunarity: 2, Frequency: 1, Amplitude: 5}))
	b.Add(ts.RegenerateAsync(ctx, nil))

	results := b.Wait(func(ch <-chan error) error { return <-ch })
	if len(results) != 3 {
		t.Fatalf("Wait() returned %d results, want 3", len(results))
	}
	for i, err := range results {
		if err != nil && !errors.Is(err, ErrSuperseded) {
			t.Errorf("build %d error = %v", i, err)
		}
	}
	if results[2] != nil {
		t.Errorf("latest build error = %v, want nil", results[2])
	}
	if b.Pending() != 0 {
		t.Errorf("Pending() = %d after Wait", b.Pending())
	}
	if !ts.IsGenerated() {
		t.Error("IsGenerated() = false after the latest build")
	}

	want := 6 * blocksPerFace(2)
	if ts.factory.LiveMeshes() != want || ts.factory.LiveColliders() != want {
		t.Errorf("live meshes/colliders = %d/%d, want %d", ts.factory.LiveMeshes(), ts.factory.LiveColliders(), want)
	}

	if err := ts.Release(ctx); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if ts.factory.LiveMeshes() != 0 || ts.factory.LiveColliders() != 0 {
		t.Errorf("leaked %d meshes, %d colliders", ts.factory.LiveMeshes(), ts.factory.LiveColliders())
	}
}
