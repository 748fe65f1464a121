package mesher

import (
	"bytes"
	"testing"

	"voxlod/internal/config"
	"voxlod/internal/voxel"
	"voxlod/internal/voxelgen"

	"github.com/go-gl/mathgl/mgl32"
)

func meshOnce(t *testing.T, m *Mesher, v *voxel.Volume) Result {
	t.Helper()
	m.Start()
	m.StartVolume(v)
	return m.Meshify()
}

func TestSingleVoxel(t *testing.T) {
	v := voxel.NewVolume(4, 4, 4, 1)
	v.Set(1, 1, 1, 1)
	res := meshOnce(t, New(1024), v)
	if res.Status != VolumeDone {
		t.Fatalf("single voxel: status %v, want VolumeDone", res.Status)
	}
	if res.Quads != 6 {
		t.Fatalf("single voxel: got %d quads, want 6", res.Quads)
	}
	if res.Bytes != 6*VerticesPerQuad*VertexSize || len(res.Data) != res.Bytes {
		t.Fatalf("single voxel: got %d bytes (%d data), want %d", res.Bytes, len(res.Data), 6*VerticesPerQuad*VertexSize)
	}
}

func TestTouchingVoxelsMerge(t *testing.T) {
	v := voxel.NewVolume(4, 4, 4, 1)
	v.Set(0, 0, 0, 1)
	v.Set(1, 0, 0, 1)
	res := meshOnce(t, New(1024), v)
	// 2x1x1 cuboid => 6 quads after greedy merging
	if res.Quads != 6 {
		t.Fatalf("two touching voxels: got %d quads, want 6", res.Quads)
	}
}

func TestHaloNeighbourCullsFace(t *testing.T) {
	v := voxel.NewVolume(4, 4, 4, 1)
	v.Set(3, 1, 1, 1)
	v.Set(4, 1, 1, 1) // halo voxel on +X
	res := meshOnce(t, New(1024), v)
	if res.Quads != 5 {
		t.Fatalf("halo culling: got %d quads, want 5", res.Quads)
	}
}

// A 32^3 chunk solid everywhere except a one-voxel air shell meshes to a single box.
func TestSolidChunkWithShell(t *testing.T) {
	const n = 32
	v := voxel.NewVolume(n, n, n, 1)
	for z := 1; z < n-1; z++ {
		for y := 1; y < n-1; y++ {
			for x := 1; x < n-1; x++ {
				v.Set(x, y, z, 1)
			}
		}
	}
	m := New(config.Default().MaxVertices)
	res := meshOnce(t, m, v)
	if res.Status != VolumeDone {
		t.Fatalf("shell chunk: status %v on first call", res.Status)
	}
	if res.Quads != 6 {
		t.Fatalf("shell chunk: got %d quads, want 6", res.Quads)
	}
	if res.Translate != (mgl32.Vec3{}) || res.TexTranslate != (mgl32.Vec3{}) {
		t.Fatalf("batches are relative to the active origin: translate %v tex %v", res.Translate, res.TexTranslate)
	}
}

func TestEmptyVolume(t *testing.T) {
	v := voxel.NewVolume(8, 8, 8, 1)
	res := meshOnce(t, New(64), v)
	if res.Status != VolumeDone || res.Quads != 0 || len(res.Data) != 0 {
		t.Fatalf("empty volume: %+v", res)
	}
}

func checkerboard(n int) *voxel.Volume {
	v := voxel.NewVolume(n, n, n, 1)
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				if (x+y+z)%2 == 0 {
					v.Set(x, y, z, 1)
				}
			}
		}
	}
	return v
}

func TestBufferFullContinues(t *testing.T) {
	v := checkerboard(4) // 32 isolated voxels, 192 quads
	m := New(40)         // 10 quads per batch
	m.Start()
	m.StartVolume(v)

	total, batches := 0, 0
	for {
		res := m.Meshify()
		batches++
		total += res.Quads
		if res.Status == VolumeDone {
			break
		}
		if res.Quads != 10 {
			t.Fatalf("batch %d: BufferFull with %d quads, want 10", batches, res.Quads)
		}
		if batches > 100 {
			t.Fatalf("mesher did not terminate")
		}
	}
	if total != 192 {
		t.Fatalf("checkerboard: got %d quads, want 192", total)
	}
	if batches != 20 {
		t.Fatalf("checkerboard: got %d batches, want 20", batches)
	}
}

func TestExactFillEndsWithVolumeDone(t *testing.T) {
	v := voxel.NewVolume(4, 4, 4, 1)
	v.Set(2, 2, 2, 1)
	res := meshOnce(t, New(24), v)
	if res.Status != VolumeDone || res.Quads != 6 {
		t.Fatalf("exact fill: %v with %d quads, want VolumeDone with 6", res.Status, res.Quads)
	}
}

func TestBatchingPreservesQuadCount(t *testing.T) {
	cfg := config.Default()
	g := voxelgen.New(cfg)
	v := g.GenSimplex(voxel.Rect{X0: 0, X1: 32, Y0: 0, Y1: 32})

	wide, _ := New(1 << 16).MeshAll(v)
	narrow, batches := New(64).MeshAll(v)
	if wide != narrow {
		t.Fatalf("quad count depends on batch size: %d vs %d", wide, narrow)
	}
	if wide == 0 {
		t.Fatalf("generated terrain produced no quads")
	}
	if want := (wide + 15) / 16; batches != want {
		t.Fatalf("got %d batches, want %d", batches, want)
	}
}

func TestDeterministicBatches(t *testing.T) {
	v := checkerboard(6)
	collect := func() [][]byte {
		m := New(32)
		m.Start()
		m.StartVolume(v)
		var out [][]byte
		for {
			res := m.Meshify()
			out = append(out, append([]byte(nil), res.Data...))
			if res.Status == VolumeDone {
				return out
			}
		}
	}
	a, b := collect(), collect()
	if len(a) != len(b) {
		t.Fatalf("batch counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			t.Fatalf("batch %d differs", i)
		}
	}
}

func TestTopFaceEncoding(t *testing.T) {
	v := voxel.NewVolume(2, 2, 2, 1)
	v.Set(0, 0, 0, 1)
	res := meshOnce(t, New(64), v)

	found := false
	for q := 0; q < res.Quads; q++ {
		_, n := DecodeVertex(res.Data, q*VerticesPerQuad)
		if n != [3]int{0, 1, 0} {
			continue
		}
		found = true
		for k := 0; k < VerticesPerQuad; k++ {
			p, nk := DecodeVertex(res.Data, q*VerticesPerQuad+k)
			if p[1] != 1 || nk != n {
				t.Fatalf("top face vertex %d: pos %v normal %v", k, p, nk)
			}
		}
	}
	if !found {
		t.Fatalf("no +Y face emitted")
	}
	if res.Scale.X() != MaxCoord {
		t.Fatalf("unexpected scale %v", res.Scale)
	}
}

func TestContractViolationsPanic(t *testing.T) {
	t.Run("meshify after done", func(t *testing.T) {
		defer expectPanic(t)
		m := New(64)
		m.Start()
		m.StartVolume(voxel.NewVolume(2, 2, 2, 1))
		m.Meshify()
		m.Meshify()
	})
	t.Run("meshify unbound", func(t *testing.T) {
		defer expectPanic(t)
		New(64).Meshify()
	})
	t.Run("oversized volume", func(t *testing.T) {
		defer expectPanic(t)
		New(64).StartVolume(voxel.NewVolume(300, 2, 2, 1))
	})
	t.Run("missing halo", func(t *testing.T) {
		defer expectPanic(t)
		New(64).StartVolume(voxel.NewVolume(4, 4, 4, 0))
	})
}

func expectPanic(t *testing.T) {
	t.Helper()
	if recover() == nil {
		t.Fatalf("expected panic")
	}
}

func TestQuadIndices(t *testing.T) {
	idx := QuadIndices(2)
	want := []uint32{0, 1, 2, 2, 3, 0, 4, 5, 6, 6, 7, 4}
	if len(idx) != len(want) {
		t.Fatalf("got %d indices, want %d", len(idx), len(want))
	}
	for i := range want {
		if idx[i] != want[i] {
			t.Fatalf("index %d = %d, want %d", i, idx[i], want[i])
		}
	}
}

func BenchmarkMeshifyGeneratedChunk(b *testing.B) {
	cfg := config.Default()
	v := voxelgen.New(cfg).GenSimplex(voxel.Rect{X0: 0, X1: 32, Y0: 0, Y1: 32})
	m := New(cfg.MaxVertices)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.MeshAll(v)
	}
}
