package geompool

import (
	"fmt"

	"voxlod/internal/mesher"
	"voxlod/internal/render"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// DefaultLightDir is the directional light baked into new geometry.
var DefaultLightDir = mgl32.Vec3{0.4, 1.0, 0.3}.Normalize()

// Geom is one reusable mesh slot. Its shader parameters are set at bake time and reused
// by every draw until the next bake.
type Geom struct {
	Mesh         render.MeshHandle
	Quads        int
	Scale        mgl32.Vec3
	Translate    mgl32.Vec3
	TexTranslate mgl32.Vec3
	LightDir     mgl32.Vec3
}

// Pool owns a fixed number of mesh slots and hands them out as integer indices.
type Pool struct {
	r        render.Renderer
	geoms    []Geom
	free     []int
	live     []bool
	maxQuads int
	lightDir mgl32.Vec3
}

// New creates capacity mesh buffers of maxVertices vertices each and uploads the shared
// quad index buffer.
func New(r render.Renderer, capacity, maxVertices int) (*Pool, error) {
	if capacity <= 0 {
		return nil, errors.Errorf("geompool: capacity must be positive, got %d", capacity)
	}
	if maxVertices < mesher.VerticesPerQuad {
		return nil, errors.Errorf("geompool: max vertices %d below one quad", maxVertices)
	}
	p := &Pool{
		r:        r,
		geoms:    make([]Geom, capacity),
		free:     make([]int, 0, capacity),
		live:     make([]bool, capacity),
		maxQuads: maxVertices / mesher.VerticesPerQuad,
		lightDir: DefaultLightDir,
	}
	if err := r.SetIndexBuffer(mesher.QuadIndices(p.maxQuads)); err != nil {
		return nil, errors.Wrap(err, "geompool: uploading quad indices")
	}
	for i := range p.geoms {
		h, err := r.CreateMesh(maxVertices, render.TerrainLayout)
		if err != nil {
			return nil, errors.Wrapf(err, "geompool: creating mesh %d of %d", i, capacity)
		}
		p.geoms[i].Mesh = h
	}
	// Stack top is the last element, so push in reverse to hand out 0 first.
	for i := capacity - 1; i >= 0; i-- {
		p.free = append(p.free, i)
	}
	return p, nil
}

// Alloc pops a free slot. Running out is a configuration error and panics.
func (p *Pool) Alloc() int {
	n := len(p.free)
	if n == 0 {
		panic(fmt.Sprintf("geompool: all %d slots in use", len(p.geoms)))
	}
	i := p.free[n-1]
	p.free = p.free[:n-1]
	p.live[i] = true
	return i
}

// Free returns a slot to the pool. Its content is left stale until the next bake.
func (p *Pool) Free(i int) {
	if i < 0 || i >= len(p.geoms) {
		panic(fmt.Sprintf("geompool: free of out-of-range slot %d", i))
	}
	if !p.live[i] {
		panic(fmt.Sprintf("geompool: double free of slot %d", i))
	}
	p.live[i] = false
	p.free = append(p.free, i)
}

// Bake uploads a mesher batch into slot i and records its shader parameters, combining the
// mesher's volume-local transform with the job's world scale and translation.
func (p *Pool) Bake(i int, res mesher.Result, scale float32, translate mgl32.Vec3) error {
	if !p.live[i] {
		panic(fmt.Sprintf("geompool: bake into free slot %d", i))
	}
	if res.Quads > p.maxQuads {
		panic(fmt.Sprintf("geompool: batch of %d quads exceeds slot capacity %d", res.Quads, p.maxQuads))
	}
	g := &p.geoms[i]
	if err := p.r.UpdateMesh(g.Mesh, res.Data[:res.Bytes]); err != nil {
		return errors.Wrapf(err, "geompool: uploading slot %d", i)
	}
	g.Quads = res.Quads
	g.Scale = res.Scale.Mul(scale)
	g.Translate = translate.Add(res.Translate.Mul(scale))
	g.TexTranslate = translate.Add(res.TexTranslate.Mul(scale))
	g.LightDir = p.lightDir
	return nil
}

// Draw issues the draw for slot i with its baked parameters.
func (p *Pool) Draw(i int, viewProj mgl32.Mat4) {
	g := &p.geoms[i]
	if g.Quads == 0 {
		return
	}
	p.r.Draw(g.Mesh, 0, g.Quads*mesher.IndicesPerQuad, render.DrawParams{
		ViewProj:     viewProj,
		Scale:        g.Scale,
		Translate:    g.Translate,
		TexTranslate: g.TexTranslate,
		LightDir:     g.LightDir,
	})
}

// SetLightDir changes the light direction applied by subsequent bakes.
func (p *Pool) SetLightDir(d mgl32.Vec3) { p.lightDir = d.Normalize() }

func (p *Pool) Cap() int          { return len(p.geoms) }
func (p *Pool) FreeCount() int    { return len(p.free) }
func (p *Pool) Live() int         { return len(p.geoms) - len(p.free) }
func (p *Pool) MaxQuads() int     { return p.maxQuads }
func (p *Pool) IsLive(i int) bool { return p.live[i] }
func (p *Pool) Geom(i int) Geom   { return p.geoms[i] }
