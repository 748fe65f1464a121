package vistree

import (
	"voxlod/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// placeholder is the nearest ancestor holding geometry, drawn in place of descendants that
// are still waiting for their own. It is added to the draw list at most once per frame.
type placeholder struct {
	node  int32
	level int
	b     Bounds
	used  bool
}

// Traverse rebuilds the draw list for the viewer, splitting and merging nodes and queueing
// geometry jobs for visible nodes that lack it.
func (t *Tree) Traverse(v Viewer) {
	defer profiling.Track("vistree.Traverse")()

	t.draw = t.draw[:0]
	t.viewer = v
	p := v.Position()
	t.vx, t.vz = float64(p.X()), float64(p.Z())
	t.visit(t.root, t.numLevels, t.RootBounds(), nil)
	t.viewer = nil
}

// visit returns true when the node's footprint is fully served without help from an
// ancestor's geometry: drawn by itself or its descendants, empty, or out of view.
func (t *Tree) visit(i int32, level int, b Bounds, ph *placeholder) bool {
	rho := t.ScreenSpaceError(level, b, t.vx, t.vz)
	if rho <= t.tau || level == 0 {
		return t.gather(i, level, b, ph)
	}

	n := &t.nodes[i]
	if n.IsLeaf() {
		t.Split(i)
	}

	own := n.HasSurface()
	childPh := ph
	var self placeholder
	if n.HasGeometry() {
		self = placeholder{node: i, level: level, b: b}
		childPh = &self
	}

	covered := true
	for q := 0; q < 4; q++ {
		if !t.visit(n.Children[q], level-1, b.Quadrant(q), childPh) {
			covered = false
		}
	}
	// Once the children stand on their own this node's mesh is nobody's placeholder.
	if covered && own {
		t.releaseGeoms(i)
	}
	return covered
}

func (t *Tree) gather(i int32, level int, b Bounds, ph *placeholder) bool {
	n := &t.nodes[i]
	visible := t.boxVisible(b)

	if n.HasGeometry() {
		if !n.IsLeaf() {
			t.Merge(i)
		}
		if visible && !n.IsEmpty() {
			t.appendDraw(i, level, b)
		}
		return true
	}

	if !visible {
		if !n.IsLeaf() {
			t.Merge(i)
		}
		return true
	}

	if !n.Pending() {
		t.enqueue(i, level, b)
	}
	if !n.IsLeaf() && t.subtreeCovers(i) {
		t.drawSubtree(i, level, b)
		return true
	}
	if ph != nil && !ph.used {
		ph.used = true
		if t.nodes[ph.node].HasSurface() && t.boxVisible(ph.b) {
			t.appendDraw(ph.node, ph.level, ph.b)
		}
	}
	return false
}

func (t *Tree) enqueue(i int32, level int, b Bounds) {
	n := &t.nodes[i]
	n.Flags |= FlagPending
	scale := float32(b.Width()) / float32(t.chunkXY)
	t.queue.Push(GeomGenJob{
		Node:      NodeRef{Index: i, Gen: n.Gen},
		Level:     level,
		Bounds:    b,
		Scale:     scale,
		Translate: mgl32.Vec3{float32(b.X0), 0, float32(b.Y0)},
	})
}

// subtreeCovers reports whether the children of inner node i, or their descendants,
// hold geometry over the whole footprint.
func (t *Tree) subtreeCovers(i int32) bool {
	for _, c := range t.nodes[i].Children {
		cn := &t.nodes[c]
		if cn.HasGeometry() {
			continue
		}
		if cn.IsLeaf() || !t.subtreeCovers(c) {
			return false
		}
	}
	return true
}

// drawSubtree draws the shallowest ready descendants of node i.
func (t *Tree) drawSubtree(i int32, level int, b Bounds) {
	for q, c := range t.nodes[i].Children {
		cb := b.Quadrant(q)
		cn := &t.nodes[c]
		if !cn.HasGeometry() {
			t.drawSubtree(c, level-1, cb)
			continue
		}
		if cn.HasSurface() && t.boxVisible(cb) {
			t.appendDraw(c, level-1, cb)
		}
	}
}

func (t *Tree) boxVisible(b Bounds) bool {
	return t.viewer.BoxVisible(float32(b.X0), float32(b.X1), 0, t.chunkHeight, float32(b.Y0), float32(b.Y1))
}

func (t *Tree) appendDraw(i int32, level int, b Bounds) {
	t.draw = append(t.draw, DrawNode{Node: i, Level: level, Bounds: b})
}
