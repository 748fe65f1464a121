package vistree

import (
	"math"
	"math/rand"
	"testing"

	"voxlod/internal/camera"
	"voxlod/internal/config"
	"voxlod/internal/geompool"
	"voxlod/internal/render/rendertest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

// stubViewer sees every box unless hidden is set.
type stubViewer struct {
	pos    mgl32.Vec3
	hidden bool
	boxes  int
}

func (v *stubViewer) Position() mgl32.Vec3 { return v.pos }

func (v *stubViewer) BoxVisible(x0, x1, y0, y1, z0, z1 float32) bool {
	v.boxes++
	return !v.hidden
}

func testConfig() config.Terrain {
	cfg := config.Default()
	cfg.NumLevels = 3
	cfg.MaxNodes = 128
	cfg.MaxGeoms = 256
	cfg.MaxVertices = 16
	cfg.Threshold = 2
	return cfg
}

func newTestTree(t *testing.T, cfg config.Terrain) (*Tree, *geompool.Pool) {
	t.Helper()
	pool, err := geompool.New(rendertest.New(), cfg.MaxGeoms, cfg.MaxVertices)
	require.NoError(t, err)
	return New(cfg, pool, nil), pool
}

func center(tr *Tree) mgl32.Vec3 {
	half := float32(tr.RootBounds().X1) / 2
	return mgl32.Vec3{half, 40, half}
}

func far(tr *Tree) mgl32.Vec3 {
	half := float32(tr.RootBounds().X1) / 2
	return mgl32.Vec3{10000, 40, half}
}

// drainAll gives every pending job one fresh slot.
func drainAll(tr *Tree, pool *geompool.Pool) int {
	n := 0
	for {
		job, ok := tr.Queue().Pop()
		if !ok {
			return n
		}
		if !tr.IsPending(job.Node) {
			continue
		}
		tr.ApplyGeoms(job.Node, []int32{int32(pool.Alloc())})
		n++
	}
}

func referencedSlots(tr *Tree) int {
	n := 0
	for i := range tr.nodes {
		if tr.nodes[i].Flags&flagAllocated != 0 {
			n += len(tr.nodes[i].GeomSlots())
		}
	}
	return n
}

func TestNewAllocatesRoot(t *testing.T) {
	tr, _ := newTestTree(t, testConfig())

	require.Equal(t, int32(0), tr.Root())
	require.Equal(t, Bounds{X0: 0, X1: 256, Y0: 0, Y1: 256}, tr.RootBounds())
	st := tr.Stats()
	require.Equal(t, 1, st.LiveNodes)
	require.Equal(t, 127, st.FreeNodes)
	require.True(t, nodeRef(tr.Node(0)).IsLeaf())
	require.False(t, nodeRef(tr.Node(0)).HasGeometry())
	require.NoError(t, tr.CheckInvariants())
}

func TestCalibration(t *testing.T) {
	require.InDelta(t, 500.0, Calibration(1000, 90), 1e-9)
	require.InDelta(t, 1280/(2*math.Tan(math.Pi/6)), Calibration(1280, 60), 1e-9)
}

func TestScreenSpaceErrorViewerInside(t *testing.T) {
	tr, _ := newTestTree(t, testConfig())
	b := tr.RootBounds()
	rho := tr.ScreenSpaceError(tr.NumLevels(), b, 128, 128)
	require.InDelta(t, tr.K()*8, rho, 1e-9)
}

func TestScreenSpaceErrorMonotonic(t *testing.T) {
	tr, _ := newTestTree(t, testConfig())
	b := Bounds{X0: 0, X1: 32, Y0: 0, Y1: 32}

	prev := math.Inf(1)
	for d := 0.0; d < 5000; d += 37 {
		rho := tr.ScreenSpaceError(2, b, 32+d, 16)
		require.LessOrEqual(t, rho, prev, "distance %v", d)
		prev = rho
	}
	for level := 1; level < 10; level++ {
		require.Greater(t,
			tr.ScreenSpaceError(level, b, 500, 500),
			tr.ScreenSpaceError(level-1, b, 500, 500))
	}
	// Distance is measured to the rectangle, not its corner.
	require.Equal(t, tr.ScreenSpaceError(0, b, 16, 40), tr.ScreenSpaceError(0, b, 0, 40))
}

func TestTraverseRefinesAboveViewer(t *testing.T) {
	tr, _ := newTestTree(t, testConfig())
	v := &stubViewer{pos: center(tr)}

	tr.Traverse(v)

	leaf, level := tr.LeafAt(128, 128)
	require.Equal(t, 0, level)
	require.True(t, nodeRef(tr.Node(leaf)).Pending())
	// Every level-1 node is within K voxels of the center, so the map refines fully.
	st := tr.Stats()
	require.Equal(t, 1+4+16+64, st.LiveNodes)
	require.Equal(t, 64, st.Queued)
	require.Equal(t, 64, st.Pending)
	require.Empty(t, tr.DrawNodes())
	require.NoError(t, tr.CheckInvariants())
}

func TestJobTransform(t *testing.T) {
	tr, _ := newTestTree(t, testConfig())
	tr.Traverse(&stubViewer{pos: center(tr)})

	for {
		job, ok := tr.Queue().Pop()
		if !ok {
			break
		}
		require.Equal(t, 0, job.Level)
		require.Equal(t, float32(1), job.Scale)
		require.Equal(t, 32, job.Bounds.Width())
		require.Equal(t, mgl32.Vec3{float32(job.Bounds.X0), 0, float32(job.Bounds.Y0)}, job.Translate)
	}

	tr2, _ := newTestTree(t, testConfig())
	tr2.Traverse(&stubViewer{pos: far(tr2)})
	job, ok := tr2.Queue().Pop()
	require.True(t, ok)
	require.Equal(t, 3, job.Level)
	require.Equal(t, float32(8), job.Scale)
	require.Equal(t, tr2.Ref(tr2.Root()), job.Node)
}

func TestPendingNotReenqueued(t *testing.T) {
	tr, _ := newTestTree(t, testConfig())
	v := &stubViewer{pos: center(tr)}

	tr.Traverse(v)
	tr.Traverse(v)
	tr.Traverse(v)

	require.Equal(t, 64, tr.Queue().Len())
	require.NoError(t, tr.CheckInvariants())
}

func TestAppliedGeometryIsDrawn(t *testing.T) {
	tr, pool := newTestTree(t, testConfig())
	v := &stubViewer{pos: center(tr)}
	tr.Traverse(v)

	require.Equal(t, 64, drainAll(tr, pool))
	tr.Traverse(v)

	require.Len(t, tr.DrawNodes(), 64)
	for _, d := range tr.DrawNodes() {
		require.Equal(t, 0, d.Level)
		require.True(t, nodeRef(tr.Node(d.Node)).HasSurface())
	}
	require.Zero(t, tr.Queue().Len())
	require.Equal(t, 64, pool.Live())
	require.NoError(t, tr.CheckInvariants())
}

func TestEmptyNodeNeverDrawnNorRequeued(t *testing.T) {
	tr, pool := newTestTree(t, testConfig())
	v := &stubViewer{pos: far(tr)}
	tr.Traverse(v)

	job, ok := tr.Queue().Pop()
	require.True(t, ok)
	require.True(t, tr.ApplyGeoms(job.Node, nil))
	require.True(t, nodeRef(tr.Node(tr.Root())).IsEmpty())

	tr.Traverse(v)
	require.Empty(t, tr.DrawNodes())
	require.Zero(t, tr.Queue().Len())
	require.Zero(t, pool.Live())
}

func TestPlaceholderDrawnOnceWhileChildrenBuild(t *testing.T) {
	tr, pool := newTestTree(t, testConfig())
	v := &stubViewer{pos: far(tr)}
	tr.Traverse(v)
	require.Equal(t, 1, drainAll(tr, pool))

	tr.Traverse(v)
	require.Equal(t, []DrawNode{{Node: tr.Root(), Level: 3, Bounds: tr.RootBounds()}}, tr.DrawNodes())

	v.pos = center(tr)
	tr.Traverse(v)
	require.Equal(t, []DrawNode{{Node: tr.Root(), Level: 3, Bounds: tr.RootBounds()}}, tr.DrawNodes())
	require.True(t, nodeRef(tr.Node(tr.Root())).HasSurface())

	// Leaves ready: the root is no longer anybody's placeholder.
	require.Equal(t, 64, drainAll(tr, pool))
	tr.Traverse(v)
	require.Len(t, tr.DrawNodes(), 64)
	require.False(t, nodeRef(tr.Node(tr.Root())).HasGeometry())
	require.Equal(t, 64, pool.Live())
	require.NoError(t, tr.CheckInvariants())
}

func TestCoarsenDrawsSubtreeUntilParentReady(t *testing.T) {
	tr, pool := newTestTree(t, testConfig())
	v := &stubViewer{pos: center(tr)}
	tr.Traverse(v)
	drainAll(tr, pool)
	tr.Traverse(v)

	v.pos = far(tr)
	tr.Traverse(v)
	require.Len(t, tr.DrawNodes(), 64, "descendants stand in for the root")
	require.Equal(t, 1, tr.Queue().Len())
	require.Equal(t, 85, tr.Stats().LiveNodes)

	require.Equal(t, 1, drainAll(tr, pool))
	tr.Traverse(v)
	require.Len(t, tr.DrawNodes(), 1)
	require.Equal(t, 1, tr.Stats().LiveNodes)
	require.Equal(t, 1, pool.Live())
	require.NoError(t, tr.CheckInvariants())
}

func TestTraverseWithCameraSkipsNodesBehind(t *testing.T) {
	cfg := testConfig()
	tr, pool := newTestTree(t, cfg)

	half := float32(tr.RootBounds().X1) / 2
	cam := camera.New(cfg.DisplayWidth, cfg.DisplayWidth*9/16, float32(cfg.FOV), 0.5, 1000)
	cam.SetPosition(mgl32.Vec3{half, 80, half})
	// Yaw -90° looks down +X.
	cam.SetOrientation(mgl32.DegToRad(-90), mgl32.DegToRad(-15))

	tr.Traverse(cam)
	queued := tr.Queue().Len()
	require.Positive(t, queued)
	require.Less(t, queued, 64, "leaves behind the camera are not requested")
	for i := 0; i < 3; i++ {
		drainAll(tr, pool)
		tr.Traverse(cam)
		require.NoError(t, tr.CheckInvariants())
	}

	draw := tr.DrawNodes()
	require.NotEmpty(t, draw)
	require.Less(t, len(draw), 64)
	for _, d := range draw {
		require.Greater(t, float32(d.Bounds.X1), half, "node %v lies behind the viewer", d.Bounds)
		require.True(t, cam.BoxVisible(float32(d.Bounds.X0), float32(d.Bounds.X1), 0, float32(cfg.ChunkHeight),
			float32(d.Bounds.Y0), float32(d.Bounds.Y1)))
	}
	require.Zero(t, tr.Queue().Len())
}

func TestInvisibleRegionsMerge(t *testing.T) {
	tr, pool := newTestTree(t, testConfig())
	v := &stubViewer{pos: center(tr)}
	tr.Traverse(v)
	drainAll(tr, pool)
	tr.Traverse(v)

	v.pos, v.hidden = far(tr), true
	tr.Traverse(v)

	require.Empty(t, tr.DrawNodes())
	require.Zero(t, tr.Queue().Len())
	require.Equal(t, 1, tr.Stats().LiveNodes)
	require.Zero(t, pool.Live())
	require.NoError(t, tr.CheckInvariants())
}

// A job in flight for a node whose parent gets merged must give its slots back.
func TestMergeBeforeApplyReturnsSlots(t *testing.T) {
	tr, pool := newTestTree(t, testConfig())
	tr.Traverse(&stubViewer{pos: center(tr)})

	job, ok := tr.Queue().Pop()
	require.True(t, ok)
	require.True(t, tr.IsPending(job.Node))
	slots := []int32{int32(pool.Alloc()), int32(pool.Alloc())}

	tr.Merge(tr.Root())
	require.False(t, tr.IsPending(job.Node))

	freeBefore := pool.FreeCount()
	require.False(t, tr.ApplyGeoms(job.Node, slots))
	require.Equal(t, freeBefore+2, pool.FreeCount())
	require.Zero(t, pool.Live())
	require.NoError(t, tr.CheckInvariants())
}

func TestPruneQueueDropsOrphanedJobs(t *testing.T) {
	tr, _ := newTestTree(t, testConfig())
	v := &stubViewer{pos: center(tr)}
	tr.Traverse(v)
	require.Equal(t, 64, tr.Queue().Len())
	require.Zero(t, tr.PruneQueue(), "nothing freed yet")

	// One job is in flight elsewhere when the merge happens.
	inFlight, ok := tr.Queue().Pop()
	require.True(t, ok)
	tr.Merge(tr.Root())
	require.False(t, tr.IsPending(inFlight.Node))

	require.Equal(t, 63, tr.PruneQueue())
	require.Zero(t, tr.Queue().Len())

	tr.Traverse(v)
	require.Equal(t, 64, tr.Queue().Len())
	require.Zero(t, tr.PruneQueue())
	require.Equal(t, 64, tr.Queue().Len())
	require.NoError(t, tr.CheckInvariants())
}

func TestStaleRefAfterIndexReuse(t *testing.T) {
	tr, pool := newTestTree(t, testConfig())
	tr.Split(tr.Root())
	child := tr.Node(tr.Root()).Children[0]
	tr.nodes[child].Flags |= FlagPending
	stale := tr.Ref(child)

	tr.Merge(tr.Root())
	tr.Split(tr.Root())
	children := tr.Node(tr.Root()).Children
	require.Contains(t, children[:], child, "index reused")
	tr.nodes[child].Flags |= FlagPending

	slot := int32(pool.Alloc())
	require.False(t, tr.ApplyGeoms(stale, []int32{slot}))
	require.False(t, nodeRef(tr.Node(child)).HasGeometry())
	require.Zero(t, pool.Live())
}

func TestArenaExhaustionPanics(t *testing.T) {
	cfg := testConfig()
	cfg.MaxNodes = 5
	tr, _ := newTestTree(t, cfg)

	tr.Split(tr.Root())
	require.Zero(t, tr.Stats().FreeNodes)
	child := tr.Node(tr.Root()).Children[1]
	require.Panics(t, func() { tr.Split(child) })
	require.True(t, nodeRef(tr.Node(child)).IsLeaf(), "failed split leaves the node untouched")

	tr2, _ := newTestTree(t, cfg)
	require.Panics(t, func() { tr2.Traverse(&stubViewer{pos: center(tr2)}) })
}

func TestSplitInnerPanics(t *testing.T) {
	tr, _ := newTestTree(t, testConfig())
	tr.Split(tr.Root())
	require.Panics(t, func() { tr.Split(tr.Root()) })
}

func TestTooManyBatchesPanics(t *testing.T) {
	tr, _ := newTestTree(t, testConfig())
	tr.Traverse(&stubViewer{pos: far(tr)})
	job, _ := tr.Queue().Pop()
	require.Panics(t, func() { tr.ApplyGeoms(job.Node, []int32{0, 1, 2, 3}) })
}

func TestRandomWalkKeepsTreeConsistent(t *testing.T) {
	cfg := testConfig()
	tr, pool := newTestTree(t, cfg)
	rng := rand.New(rand.NewSource(7))
	v := &stubViewer{}
	dim := float32(tr.RootBounds().X1)

	for frame := 0; frame < 300; frame++ {
		v.pos = mgl32.Vec3{rng.Float32()*dim*3 - dim, 40, rng.Float32()*dim*3 - dim}
		v.hidden = rng.Intn(8) == 0
		tr.Traverse(v)

		for k := 0; k < cfg.MaxJobsPerFrame; k++ {
			job, ok := tr.Queue().Pop()
			if !ok {
				break
			}
			var slots []int32
			switch rng.Intn(4) {
			case 0:
			case 1:
				slots = []int32{int32(pool.Alloc()), int32(pool.Alloc())}
			default:
				slots = []int32{int32(pool.Alloc())}
			}
			tr.ApplyGeoms(job.Node, slots)
		}

		require.NoError(t, tr.CheckInvariants(), "frame %d", frame)
		require.Equal(t, referencedSlots(tr), pool.Live(), "frame %d", frame)
		st := tr.Stats()
		require.Equal(t, cfg.MaxNodes, st.LiveNodes+st.FreeNodes)
	}
}

// nodeRef returns an addressable copy of n so pointer-receiver methods can be called on it.
func nodeRef(n VisNode) *VisNode { return &n }
