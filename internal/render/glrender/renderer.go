// Package glrender implements render.Renderer on OpenGL 4.1 core. Every call must come
// from the goroutine that owns the current GL context.
package glrender

import (
	"voxlod/internal/render"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/pkg/errors"
)

type mesh struct {
	vao, vbo uint32
	capacity int // bytes
}

// Renderer draws terrain meshes with one VAO/VBO per mesh and a shared index buffer.
type Renderer struct {
	prog    *program
	meshes  []mesh
	ebo     uint32
	indices int
}

// New compiles the terrain program. The GL context must be current and gl.Init done.
func New() (*Renderer, error) {
	prog, err := newProgram(terrainVertexSrc, terrainFragmentSrc,
		"uViewProj", "uScale", "uTranslate", "uTexTranslate", "uLightDir")
	if err != nil {
		return nil, errors.Wrap(err, "glrender: terrain program")
	}
	r := &Renderer{prog: prog}
	gl.GenBuffers(1, &r.ebo)
	return r, nil
}

func attribFormat(f render.AttribFormat) (size int32, xtype uint32, err error) {
	switch f {
	case render.Unorm8x4:
		return 4, gl.UNSIGNED_BYTE, nil
	case render.Snorm8x4:
		return 4, gl.BYTE, nil
	}
	return 0, 0, errors.Errorf("glrender: unsupported attribute format %d", f)
}

// CreateMesh allocates a dynamic vertex buffer for maxVertices vertices.
func (r *Renderer) CreateMesh(maxVertices int, layout render.VertexLayout) (render.MeshHandle, error) {
	m := mesh{capacity: maxVertices * layout.Stride}
	gl.GenVertexArrays(1, &m.vao)
	gl.GenBuffers(1, &m.vbo)

	gl.BindVertexArray(m.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, m.capacity, nil, gl.DYNAMIC_DRAW)
	for _, a := range layout.Attribs {
		size, xtype, err := attribFormat(a.Format)
		if err != nil {
			gl.BindVertexArray(0)
			gl.DeleteBuffers(1, &m.vbo)
			gl.DeleteVertexArrays(1, &m.vao)
			return 0, err
		}
		gl.EnableVertexAttribArray(a.Location)
		gl.VertexAttribPointer(a.Location, size, xtype, true, int32(layout.Stride), gl.PtrOffset(a.Offset))
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.ebo)
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	r.meshes = append(r.meshes, m)
	// Handle 0 stays invalid.
	return render.MeshHandle(len(r.meshes)), nil
}

func (r *Renderer) lookup(h render.MeshHandle) (*mesh, error) {
	if h == 0 || int(h) > len(r.meshes) {
		return nil, errors.Errorf("glrender: unknown mesh %d", h)
	}
	return &r.meshes[h-1], nil
}

// UpdateMesh overwrites the leading bytes of the mesh's vertex buffer.
func (r *Renderer) UpdateMesh(h render.MeshHandle, data []byte) error {
	m, err := r.lookup(h)
	if err != nil {
		return err
	}
	if len(data) > m.capacity {
		return errors.Errorf("glrender: %d bytes exceed mesh %d capacity %d", len(data), h, m.capacity)
	}
	if len(data) == 0 {
		return nil
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

// SetIndexBuffer uploads the shared index buffer.
func (r *Renderer) SetIndexBuffer(indices []uint32) error {
	if len(indices) == 0 {
		return errors.New("glrender: empty index buffer")
	}
	// Uploaded through a copy target so no VAO needs to be bound.
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, r.ebo)
	gl.BufferData(gl.COPY_WRITE_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	r.indices = len(indices)
	return nil
}

// Draw issues one indexed draw with the mesh's shader parameters.
func (r *Renderer) Draw(h render.MeshHandle, first, count int, p render.DrawParams) {
	m, err := r.lookup(h)
	if err != nil || count == 0 || first+count > r.indices {
		return
	}
	r.prog.use()
	r.prog.setMatrix4("uViewProj", &p.ViewProj[0])
	r.prog.setVec3("uScale", p.Scale.X(), p.Scale.Y(), p.Scale.Z())
	r.prog.setVec3("uTranslate", p.Translate.X(), p.Translate.Y(), p.Translate.Z())
	r.prog.setVec3("uTexTranslate", p.TexTranslate.X(), p.TexTranslate.Y(), p.TexTranslate.Z())
	r.prog.setVec3("uLightDir", p.LightDir.X(), p.LightDir.Y(), p.LightDir.Z())

	gl.BindVertexArray(m.vao)
	gl.DrawElements(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT, gl.PtrOffset(first*4))
	gl.BindVertexArray(0)
}

// Delete releases every GL object owned by the renderer.
func (r *Renderer) Delete() {
	for i := range r.meshes {
		gl.DeleteBuffers(1, &r.meshes[i].vbo)
		gl.DeleteVertexArrays(1, &r.meshes[i].vao)
	}
	r.meshes = nil
	gl.DeleteBuffers(1, &r.ebo)
	r.prog.delete()
}
