package mesher

const (
	// VertexSize is the byte size of one packed vertex (see render.TerrainLayout).
	VertexSize = 8
	// VerticesPerQuad is four: quads are expanded to triangles by the shared index buffer.
	VerticesPerQuad = 4
	// IndicesPerQuad is the number of indices QuadIndices emits per quad.
	IndicesPerQuad = 6
	// MaxCoord is the largest encodable position component.
	MaxCoord = 255
)

func putVertex(dst []byte, pos [3]int, normal [4]byte) {
	dst[0] = byte(pos[0])
	dst[1] = byte(pos[1])
	dst[2] = byte(pos[2])
	dst[3] = 0
	dst[4] = normal[0]
	dst[5] = normal[1]
	dst[6] = normal[2]
	dst[7] = 0
}

// DecodeVertex unpacks the i-th vertex of a batch into voxel-space position and normal.
func DecodeVertex(data []byte, i int) (pos [3]int, normal [3]int) {
	v := data[i*VertexSize : (i+1)*VertexSize]
	pos = [3]int{int(v[0]), int(v[1]), int(v[2])}
	for k := 0; k < 3; k++ {
		switch n := int8(v[4+k]); {
		case n > 0:
			normal[k] = 1
		case n < 0:
			normal[k] = -1
		}
	}
	return pos, normal
}

// QuadIndices returns the two-triangle index pattern for maxQuads quads:
// 0,1,2, 2,3,0 offset by 4 per quad.
func QuadIndices(maxQuads int) []uint32 {
	idx := make([]uint32, 0, maxQuads*IndicesPerQuad)
	for q := 0; q < maxQuads; q++ {
		b := uint32(q * VerticesPerQuad)
		idx = append(idx, b, b+1, b+2, b+2, b+3, b)
	}
	return idx
}
