package vistree

import (
	"fmt"
	"math"

	"voxlod/internal/config"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// GeomFreer takes back geometry slots released by the tree.
type GeomFreer interface {
	Free(slot int)
}

// Viewer is what the traversal needs from the camera.
type Viewer interface {
	Position() mgl32.Vec3
	BoxVisible(x0, x1, y0, y1, z0, z1 float32) bool
}

// Stats is a snapshot of tree occupancy and cumulative topology changes.
type Stats struct {
	LiveNodes int
	FreeNodes int
	Pending   int
	DrawNodes int
	Queued    int
	Splits    int
	Merges    int
}

// Tree is a sparse quadtree of visibility nodes backed by a fixed arena.
// The tree, its queue and the geometry it references have a single writer.
type Tree struct {
	nodes []VisNode
	free  []int32
	root  int32

	geoms GeomFreer
	queue JobQueue
	draw  []DrawNode

	numLevels   int
	chunkXY     int
	chunkHeight float32
	mapDim      int
	tau         float64
	k           float64

	splits int
	merges int
	// stale counts queued jobs orphaned by frees since the last PruneQueue; an upper
	// bound, as some of them may have been popped already.
	stale int

	// per-traversal viewer state
	viewer Viewer
	vx, vz float64
}

// New builds a tree with a fixed arena of cfg.MaxNodes and allocates the root.
// If queue is nil one is created from cfg.QueueOrder.
func New(cfg config.Terrain, geoms GeomFreer, queue JobQueue) *Tree {
	if queue == nil {
		queue = NewQueue(cfg.QueueOrder, cfg.MaxNodes)
	}
	t := &Tree{
		nodes:       make([]VisNode, cfg.MaxNodes),
		free:        make([]int32, 0, cfg.MaxNodes),
		geoms:       geoms,
		queue:       queue,
		draw:        make([]DrawNode, 0, cfg.MaxNodes),
		numLevels:   cfg.NumLevels,
		chunkXY:     cfg.ChunkSizeXY,
		chunkHeight: float32(cfg.ChunkHeight),
		mapDim:      cfg.MapDimVoxels(),
		tau:         cfg.Threshold,
		k:           Calibration(cfg.DisplayWidth, cfg.FOV),
	}
	for i := len(t.nodes) - 1; i >= 0; i-- {
		t.nodes[i].reset()
		t.free = append(t.free, int32(i))
	}
	t.root = t.allocNode()
	return t
}

// Calibration returns K = displayWidth / (2 tan(fov/2)), fov in degrees.
func Calibration(displayWidth int, fovDeg float64) float64 {
	return float64(displayWidth) / (2 * math.Tan(fovDeg*math.Pi/360))
}

// ScreenSpaceError is the projected error, in pixels, of drawing a node of the given level
// over b when the viewer stands at (vx, vz). The geometric error doubles per level and the
// distance is clamped to one voxel so a viewer inside b yields the maximum.
func (t *Tree) ScreenSpaceError(level int, b Bounds, vx, vz float64) float64 {
	return math.Ldexp(1, level) / math.Max(distance(b, vx, vz), 1) * t.k
}

// distance is the Euclidean distance from (x, z) to the rectangle, 0 inside it.
func distance(b Bounds, x, z float64) float64 {
	dx := math.Max(0, math.Max(float64(b.X0)-x, x-float64(b.X1)))
	dz := math.Max(0, math.Max(float64(b.Y0)-z, z-float64(b.Y1)))
	return math.Hypot(dx, dz)
}

// K is the screen-space error calibration constant.
func (t *Tree) K() float64 { return t.k }

// Root returns the root node index.
func (t *Tree) Root() int32 { return t.root }

// RootBounds is the footprint of the whole map.
func (t *Tree) RootBounds() Bounds {
	return Bounds{X0: 0, X1: t.mapDim, Y0: 0, Y1: t.mapDim}
}

// NumLevels is the level of the root.
func (t *Tree) NumLevels() int { return t.numLevels }

// Node returns a copy of node i.
func (t *Tree) Node(i int32) VisNode { return t.nodes[i] }

// Ref returns the current reference to node i.
func (t *Tree) Ref(i int32) NodeRef { return NodeRef{Index: i, Gen: t.nodes[i].Gen} }

// Queue exposes the job queue to the drain loop.
func (t *Tree) Queue() JobQueue { return t.queue }

// DrawNodes lists the nodes selected by the last traversal.
func (t *Tree) DrawNodes() []DrawNode { return t.draw }

// IsPending reports whether ref still names a node awaiting its job.
func (t *Tree) IsPending(ref NodeRef) bool {
	n := &t.nodes[ref.Index]
	return n.Gen == ref.Gen && n.Pending()
}

func (t *Tree) allocNode() int32 {
	n := len(t.free)
	if n == 0 {
		panic(fmt.Sprintf("vistree: node arena of %d exhausted", len(t.nodes)))
	}
	i := t.free[n-1]
	t.free = t.free[:n-1]
	node := &t.nodes[i]
	node.reset()
	node.Flags = flagAllocated
	return i
}

func (t *Tree) freeNode(i int32) {
	n := &t.nodes[i]
	if n.Pending() {
		t.stale++
	}
	n.reset()
	n.Flags = 0
	n.Gen++
	t.free = append(t.free, i)
}

// releaseGeoms returns node i's slots to the pool and marks it unassigned.
func (t *Tree) releaseGeoms(i int32) {
	n := &t.nodes[i]
	for _, s := range n.GeomSlots() {
		t.geoms.Free(int(s))
	}
	for k := range n.Geoms {
		n.Geoms[k] = InvalidGeom
	}
}

// Split gives leaf i four fresh children. The arena is checked before anything changes.
func (t *Tree) Split(i int32) {
	n := &t.nodes[i]
	if !n.IsLeaf() {
		panic(fmt.Sprintf("vistree: split of inner node %d", i))
	}
	if len(t.free) < 4 {
		panic(fmt.Sprintf("vistree: node arena of %d exhausted, cannot split node %d", len(t.nodes), i))
	}
	for q := range n.Children {
		n.Children[q] = t.allocNode()
	}
	t.splits++
}

// Merge frees every descendant of node i, geometry first, leaving i a leaf.
// Jobs still queued for the freed nodes go stale.
func (t *Tree) Merge(i int32) {
	n := &t.nodes[i]
	if n.IsLeaf() {
		return
	}
	for q, c := range n.Children {
		t.Merge(c)
		t.releaseGeoms(c)
		t.freeNode(c)
		n.Children[q] = NoChild
	}
	t.merges++
}

// ApplyGeoms attaches the slots a job produced to its node. If the node was freed or is no
// longer waiting, the slots go straight back to the pool and false is returned.
// An empty slot list marks the node as having no surface.
func (t *Tree) ApplyGeoms(ref NodeRef, slots []int32) bool {
	if len(slots) > MaxGeomsPerNode {
		panic(fmt.Sprintf("vistree: %d geometry batches exceed the per-node limit %d", len(slots), MaxGeomsPerNode))
	}
	if !t.IsPending(ref) {
		for _, s := range slots {
			t.geoms.Free(int(s))
		}
		return false
	}
	n := &t.nodes[ref.Index]
	n.Flags &^= FlagPending
	for k := range n.Geoms {
		n.Geoms[k] = InvalidGeom
	}
	if len(slots) == 0 {
		n.Geoms[0] = EmptyGeom
		return true
	}
	copy(n.Geoms[:], slots)
	return true
}

// PruneQueue drops queued jobs whose node is no longer pending and returns how many were
// dropped. It does nothing when no pending node was freed since the last call.
func (t *Tree) PruneQueue() int {
	if t.stale == 0 {
		return 0
	}
	t.stale = 0
	return t.queue.Prune(func(job GeomGenJob) bool { return t.IsPending(job.Node) })
}

// LeafAt walks from the root to the leaf whose footprint contains (x, z).
func (t *Tree) LeafAt(x, z float64) (int32, int) {
	i, level, b := t.root, t.numLevels, t.RootBounds()
	for !t.nodes[i].IsLeaf() {
		q := 0
		if x >= float64(b.X0+b.Width()/2) {
			q |= 1
		}
		if z >= float64(b.Y0+b.Height()/2) {
			q |= 2
		}
		i, level, b = t.nodes[i].Children[q], level-1, b.Quadrant(q)
	}
	return i, level
}

// Stats reports arena occupancy.
func (t *Tree) Stats() Stats {
	s := Stats{
		FreeNodes: len(t.free),
		LiveNodes: len(t.nodes) - len(t.free),
		DrawNodes: len(t.draw),
		Queued:    t.queue.Len(),
		Splits:    t.splits,
		Merges:    t.merges,
	}
	for i := range t.nodes {
		if t.nodes[i].Flags&(flagAllocated|FlagPending) == flagAllocated|FlagPending {
			s.Pending++
		}
	}
	return s
}

// CheckInvariants walks the tree and verifies its structural invariants: every reachable node
// is allocated, children come in fours, geometry lists have no gaps, pending nodes hold no
// geometry, no slot is referenced twice and no allocated node is unreachable.
func (t *Tree) CheckInvariants() error {
	seenSlots := make(map[int32]int32)
	reached := 0
	var walk func(i int32, level int) error
	walk = func(i int32, level int) error {
		n := &t.nodes[i]
		reached++
		if n.Flags&flagAllocated == 0 {
			return errors.Errorf("node %d reachable but free", i)
		}
		leafSlots := 0
		for _, c := range n.Children {
			if c == NoChild {
				leafSlots++
			}
		}
		if leafSlots != 0 && leafSlots != 4 {
			return errors.Errorf("node %d has %d of 4 children", i, 4-leafSlots)
		}
		if leafSlots == 0 && level == 0 {
			return errors.Errorf("node %d at level 0 has children", i)
		}
		ended := false
		for k, g := range n.Geoms {
			switch {
			case g == EmptyGeom && k != 0:
				return errors.Errorf("node %d: empty marker at position %d", i, k)
			case g == InvalidGeom || g == EmptyGeom:
				ended = true
			case ended:
				return errors.Errorf("node %d: gap in geometry list %v", i, n.Geoms)
			default:
				if owner, dup := seenSlots[g]; dup {
					return errors.Errorf("slot %d referenced by nodes %d and %d", g, owner, i)
				}
				seenSlots[g] = i
			}
		}
		if n.Pending() && n.HasGeometry() {
			return errors.Errorf("node %d pending while holding geometry", i)
		}
		if leafSlots == 4 {
			return nil
		}
		for _, c := range n.Children {
			if err := walk(c, level-1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(t.root, t.numLevels); err != nil {
		return err
	}
	if live := len(t.nodes) - len(t.free); reached != live {
		return errors.Errorf("%d nodes allocated but %d reachable", live, reached)
	}
	return nil
}
