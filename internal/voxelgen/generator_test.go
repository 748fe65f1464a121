package voxelgen

import (
	"bytes"
	"testing"

	"voxlod/internal/config"
	"voxlod/internal/voxel"
)

func TestGenSimplexDeterministic(t *testing.T) {
	cfg := config.Default()
	g := New(cfg)
	b := voxel.Rect{X0: 64, X1: 96, Y0: 128, Y1: 160}

	first := append([]byte(nil), g.GenSimplex(b).Data...)
	// Generate something else in between to make sure nothing accumulates.
	g.GenSimplex(voxel.Rect{X0: 0, X1: 256, Y0: 0, Y1: 256})
	second := g.GenSimplex(b).Data

	if !bytes.Equal(first, second) {
		t.Fatalf("GenSimplex is not deterministic for identical bounds")
	}

	other := New(cfg).GenSimplex(b).Data
	if !bytes.Equal(first, other) {
		t.Fatalf("two generators with the same config disagree")
	}
}

func TestGenSimplexShape(t *testing.T) {
	cfg := config.Default()
	g := New(cfg)
	v := g.GenSimplex(voxel.Rect{X0: 0, X1: 32, Y0: 0, Y1: 32})

	if err := v.Validate(); err != nil {
		t.Fatalf("generated volume invalid: %v", err)
	}
	if v.Size != [3]int{cfg.ChunkSizeXY, cfg.ChunkHeight, cfg.ChunkSizeXY} {
		t.Fatalf("unexpected active size %v", v.Size)
	}

	for z := -1; z <= cfg.ChunkSizeXY; z++ {
		for x := -1; x <= cfg.ChunkSizeXY; x++ {
			if !v.Solid(x, -1, z) {
				t.Fatalf("bottom halo must be solid at (%d,%d)", x, z)
			}
			if !v.Solid(x, 0, z) {
				t.Fatalf("first layer must be solid at (%d,%d)", x, z)
			}
			if v.Solid(x, cfg.ChunkHeight, z) {
				t.Fatalf("top halo must be air at (%d,%d)", x, z)
			}
		}
	}
}

func TestGenSimplexMatchesHeight(t *testing.T) {
	cfg := config.Default()
	g := New(cfg)
	b := voxel.Rect{X0: 320, X1: 352, Y0: 96, Y1: 128}
	v := g.GenSimplex(b)

	for _, col := range [][2]int{{0, 0}, {5, 17}, {31, 31}} {
		x, z := col[0], col[1]
		h := g.HeightAt(float64(b.X0+x)+0.5, float64(b.Y0+z)+0.5)
		for y := 0; y < cfg.ChunkHeight; y++ {
			want := float64(y) < h
			if got := v.Solid(x, y, z); got != want {
				t.Fatalf("column (%d,%d) layer %d: solid=%v, height %.2f", x, z, y, got, h)
			}
		}
	}
}

func TestGenSimplexCoarseLevelScalesHeight(t *testing.T) {
	cfg := config.Default()
	g := New(cfg)
	fine := countSolid(g.GenSimplex(voxel.Rect{X0: 0, X1: 32, Y0: 0, Y1: 32}))
	coarse := countSolid(g.GenSimplex(voxel.Rect{X0: 0, X1: 32 * 8, Y0: 0, Y1: 32 * 8}))
	if coarse >= fine {
		t.Fatalf("coarse level should hold fewer solid voxels per column: fine=%d coarse=%d", fine, coarse)
	}
}

func countSolid(v *voxel.Volume) int {
	n := 0
	for z := 0; z < v.Size[2]; z++ {
		for y := 0; y < v.Size[1]; y++ {
			for x := 0; x < v.Size[0]; x++ {
				if v.Solid(x, y, z) {
					n++
				}
			}
		}
	}
	return n
}

func BenchmarkGenSimplex(b *testing.B) {
	g := New(config.Default())
	r := voxel.Rect{X0: 0, X1: 32, Y0: 0, Y1: 32}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.GenSimplex(r)
	}
}
