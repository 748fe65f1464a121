package vistree

import "voxlod/internal/voxel"

// Bounds is a node footprint in world voxel units. Y runs along world z.
type Bounds = voxel.Rect

const (
	// NoChild marks an unused child slot.
	NoChild int32 = -1
	// InvalidGeom terminates a node's geometry list; a list starting with it is unassigned.
	InvalidGeom int32 = -1
	// EmptyGeom marks a node whose volume has no surface. It is never drawn nor regenerated.
	EmptyGeom int32 = -2

	// MaxGeomsPerNode bounds the number of mesher batches one node can hold.
	MaxGeomsPerNode = 3
)

// Node flags
const (
	FlagPending uint8 = 1 << iota
	flagAllocated
)

// VisNode is one quadtree node in the arena. Level and bounds are not stored: they are
// derived from the node's position in the traversal.
type VisNode struct {
	Flags    uint8
	Geoms    [MaxGeomsPerNode]int32
	Children [4]int32
	Gen      uint32
}

// NodeRef names a node across frames. A ref goes stale once its node is freed.
type NodeRef struct {
	Index int32
	Gen   uint32
}

func (n *VisNode) reset() {
	n.Flags &= flagAllocated
	for i := range n.Geoms {
		n.Geoms[i] = InvalidGeom
	}
	for i := range n.Children {
		n.Children[i] = NoChild
	}
}

// IsLeaf reports whether the node has no children.
func (n *VisNode) IsLeaf() bool {
	return n.Children[0] == NoChild
}

// Pending reports whether a geometry job for this node is in flight.
func (n *VisNode) Pending() bool {
	return n.Flags&FlagPending != 0
}

// HasGeometry reports whether generation finished for this node, with or without a surface.
func (n *VisNode) HasGeometry() bool {
	return n.Geoms[0] != InvalidGeom
}

// IsEmpty reports whether the node was generated and found to hold no surface.
func (n *VisNode) IsEmpty() bool {
	return n.Geoms[0] == EmptyGeom
}

// HasSurface reports whether the node holds drawable geometry slots.
func (n *VisNode) HasSurface() bool {
	return n.Geoms[0] >= 0
}

// GeomSlots returns the node's valid geometry slot indices.
func (n *VisNode) GeomSlots() []int32 {
	k := 0
	for k < MaxGeomsPerNode && n.Geoms[k] >= 0 {
		k++
	}
	return n.Geoms[:k]
}

// DrawNode is one node selected for drawing this frame.
type DrawNode struct {
	Node   int32
	Level  int
	Bounds Bounds
}
