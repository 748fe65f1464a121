package mesher

import (
	"fmt"

	"voxlod/internal/profiling"
	"voxlod/internal/voxel"

	"github.com/go-gl/mathgl/mgl32"
)

// Status tells the caller what to do with the batch a Meshify call produced.
type Status int

const (
	// BufferFull: bake this batch, then call Meshify again to continue the same volume.
	BufferFull Status = iota + 1
	// VolumeDone: bake this batch (if it has quads) and stop.
	VolumeDone
)

func (s Status) String() string {
	switch s {
	case BufferFull:
		return "BufferFull"
	case VolumeDone:
		return "VolumeDone"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result describes one batch of quads in the scratch buffer.
// Data aliases the mesher's scratch buffer and is overwritten by the next Meshify.
type Result struct {
	Status Status
	Quads  int
	Bytes  int
	Data   []byte

	// Decoded vertex position p in [0,1] maps to volume-local voxel space as Scale*p + Translate.
	Scale     mgl32.Vec3
	Translate mgl32.Vec3
	// TexTranslate is the texture-space origin of the batch in volume-local voxel space.
	TexTranslate mgl32.Vec3
}

// direction is one of the six face normals: axis a, sign s, in-plane axes u and v with u x v = +a.
type direction struct {
	a, u, v int
	sign    int
	normal  [4]byte
}

var directions = func() [6]direction {
	var ds [6]direction
	for i := range ds {
		a := i / 2
		sign := 1
		if i%2 == 1 {
			sign = -1
		}
		d := direction{a: a, u: (a + 1) % 3, v: (a + 2) % 3, sign: sign}
		d.normal[a] = snorm(sign)
		ds[i] = d
	}
	return ds
}()

func snorm(v int) byte {
	return byte(int8(v * 127))
}

// Mesher converts a voxel volume into quads, one fixed-size batch at a time.
// A batch never holds more than maxVertices vertices (four per quad).
type Mesher struct {
	buf      []byte
	maxQuads int
	quads    int
	reset    bool // the previous batch was handed out; start the next one empty

	vol  *voxel.Volume
	done bool

	// sweep cursor: direction, layer along its axis, position in the layer mask
	dir       int
	layer     int
	cursor    int
	maskReady bool
	mask      []bool
}

// New creates a mesher whose batches hold at most maxVertices vertices.
func New(maxVertices int) *Mesher {
	if maxVertices < VerticesPerQuad {
		panic(fmt.Sprintf("mesher: max vertices %d below one quad", maxVertices))
	}
	maxQuads := maxVertices / VerticesPerQuad
	return &Mesher{
		buf:      make([]byte, maxQuads*VerticesPerQuad*VertexSize),
		maxQuads: maxQuads,
	}
}

// MaxQuads is the batch capacity in quads.
func (m *Mesher) MaxQuads() int { return m.maxQuads }

// Start resets the writer to the beginning of the scratch buffer and unbinds any volume.
func (m *Mesher) Start() {
	m.quads = 0
	m.reset = false
	m.vol = nil
	m.done = false
}

// StartVolume binds a volume and rewinds the sweep. The volume must keep a one-voxel halo
// and its active extent must fit the 8-bit vertex encoding.
func (m *Mesher) StartVolume(v *voxel.Volume) {
	if err := v.Validate(); err != nil {
		panic(fmt.Sprintf("mesher: %v", err))
	}
	area := 0
	for a := 0; a < 3; a++ {
		if v.Size[a]+1 > MaxCoord {
			panic(fmt.Sprintf("mesher: volume axis %d size %d exceeds vertex range %d", a, v.Size[a], MaxCoord))
		}
		d := directions[a*2]
		if n := v.Size[d.u] * v.Size[d.v]; n > area {
			area = n
		}
	}
	if cap(m.mask) < area {
		m.mask = make([]bool, area)
	}
	m.vol = v
	m.done = false
	m.dir, m.layer, m.cursor = 0, 0, 0
	m.maskReady = false
}

// Meshify continues the sweep until the batch is full or the volume is exhausted.
func (m *Mesher) Meshify() Result {
	defer profiling.Track("mesher.Meshify")()

	if m.vol == nil {
		panic("mesher: Meshify without StartVolume")
	}
	if m.done {
		panic("mesher: Meshify after VolumeDone")
	}
	if m.reset {
		m.quads = 0
		m.reset = false
	}

	v := m.vol
	for m.dir < len(directions) {
		d := &directions[m.dir]
		su, sv := v.Size[d.u], v.Size[d.v]
		if !m.maskReady {
			m.buildMask(d, su, sv)
			m.maskReady = true
			m.cursor = 0
		}
		mask := m.mask[:su*sv]
		for ; m.cursor < len(mask); m.cursor++ {
			if !mask[m.cursor] {
				continue
			}
			if m.quads == m.maxQuads {
				return m.result(BufferFull)
			}
			m.emitGreedy(d, mask, su, sv)
		}
		m.maskReady = false
		m.layer++
		if m.layer == v.Size[d.a] {
			m.layer = 0
			m.dir++
		}
	}
	m.done = true
	return m.result(VolumeDone)
}

func (m *Mesher) result(s Status) Result {
	m.reset = true
	n := m.quads * VerticesPerQuad * VertexSize
	return Result{
		Status:    s,
		Quads:     m.quads,
		Bytes:     n,
		Data:      m.buf[:n],
		Scale:     mgl32.Vec3{MaxCoord, MaxCoord, MaxCoord},
		Translate: mgl32.Vec3{},
		// Texture space coincides with the volume's active origin.
		TexTranslate: mgl32.Vec3{},
	}
}

// buildMask marks every cell of the current layer whose voxel is solid and whose
// neighbour along the face normal is not. Halo voxels are consulted but never meshed.
func (m *Mesher) buildMask(d *direction, su, sv int) {
	var p, q [3]int
	p[d.a] = m.layer
	q[d.a] = m.layer + d.sign
	for iv := 0; iv < sv; iv++ {
		p[d.v], q[d.v] = iv, iv
		for iu := 0; iu < su; iu++ {
			p[d.u], q[d.u] = iu, iu
			m.mask[iu+su*iv] = m.vol.Solid(p[0], p[1], p[2]) && !m.vol.Solid(q[0], q[1], q[2])
		}
	}
}

// emitGreedy grows the rectangle starting at the cursor along u, then along v,
// clears it from the mask and writes it as one quad.
func (m *Mesher) emitGreedy(d *direction, mask []bool, su, sv int) {
	u0 := m.cursor % su
	v0 := m.cursor / su

	u1 := u0 + 1
	for u1 < su && mask[u1+su*v0] {
		u1++
	}
	v1 := v0 + 1
grow:
	for v1 < sv {
		for u := u0; u < u1; u++ {
			if !mask[u+su*v1] {
				break grow
			}
		}
		v1++
	}
	for vv := v0; vv < v1; vv++ {
		for u := u0; u < u1; u++ {
			mask[u+su*vv] = false
		}
	}

	plane := m.layer
	if d.sign > 0 {
		plane++
	}
	corner := func(u, v int) [3]int {
		var c [3]int
		c[d.a], c[d.u], c[d.v] = plane, u, v
		return c
	}
	// Counter-clockwise around the outward normal.
	if d.sign > 0 {
		m.writeQuad(d, corner(u0, v0), corner(u1, v0), corner(u1, v1), corner(u0, v1))
	} else {
		m.writeQuad(d, corner(u0, v0), corner(u0, v1), corner(u1, v1), corner(u1, v0))
	}
}

func (m *Mesher) writeQuad(d *direction, c0, c1, c2, c3 [3]int) {
	off := m.quads * VerticesPerQuad * VertexSize
	for _, c := range [4][3]int{c0, c1, c2, c3} {
		putVertex(m.buf[off:off+VertexSize], c, d.normal)
		off += VertexSize
	}
	m.quads++
}

// MeshAll runs the whole protocol on a volume and returns the total number of quads
// and the number of batches it took.
func (m *Mesher) MeshAll(v *voxel.Volume) (quads, batches int) {
	m.Start()
	m.StartVolume(v)
	for {
		res := m.Meshify()
		quads += res.Quads
		batches++
		if res.Status == VolumeDone {
			return quads, batches
		}
	}
}
