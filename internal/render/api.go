package render

import "github.com/go-gl/mathgl/mgl32"

// MeshHandle identifies a mesh buffer created by a Renderer.
type MeshHandle uint32

// AttribFormat describes how one vertex attribute is packed.
type AttribFormat int

const (
	// Unorm8x4 is four unsigned bytes mapped to [0,1].
	Unorm8x4 AttribFormat = iota
	// Snorm8x4 is four signed bytes mapped to [-1,1].
	Snorm8x4
)

// Attrib is one vertex attribute at a byte offset inside the vertex.
type Attrib struct {
	Location uint32
	Format   AttribFormat
	Offset   int
}

// VertexLayout describes an interleaved vertex.
type VertexLayout struct {
	Stride  int
	Attribs []Attrib
}

// TerrainLayout is the compact position + normal vertex written by the mesher:
// bytes 0-3 position (x, y, z, pad) as Unorm8, bytes 4-7 normal (x, y, z, pad) as Snorm8.
var TerrainLayout = VertexLayout{
	Stride: 8,
	Attribs: []Attrib{
		{Location: 0, Format: Unorm8x4, Offset: 0},
		{Location: 1, Format: Snorm8x4, Offset: 4},
	},
}

// DrawParams are the per-draw uniforms of a terrain mesh. A vertex's world position
// is Translate + Scale*p where p is its decoded Unorm8 position.
type DrawParams struct {
	ViewProj     mgl32.Mat4
	Scale        mgl32.Vec3
	Translate    mgl32.Vec3
	TexTranslate mgl32.Vec3
	LightDir     mgl32.Vec3
}

// Renderer is the rendering backend the terrain core draws through.
type Renderer interface {
	// CreateMesh allocates a vertex buffer able to hold maxVertices vertices.
	CreateMesh(maxVertices int, layout VertexLayout) (MeshHandle, error)
	// UpdateMesh replaces the leading bytes of the mesh's vertex data.
	UpdateMesh(h MeshHandle, data []byte) error
	// SetIndexBuffer binds the index sequence shared by every mesh.
	SetIndexBuffer(indices []uint32) error
	// Draw issues an indexed draw of count indices starting at first.
	Draw(h MeshHandle, first, count int, params DrawParams)
}

// Discard is a Renderer that drops everything. Handles are still unique.
type Discard struct {
	next MeshHandle
}

func (d *Discard) CreateMesh(int, VertexLayout) (MeshHandle, error) {
	d.next++
	return d.next, nil
}

func (*Discard) UpdateMesh(MeshHandle, []byte) error   { return nil }
func (*Discard) SetIndexBuffer([]uint32) error         { return nil }
func (*Discard) Draw(MeshHandle, int, int, DrawParams) {}
