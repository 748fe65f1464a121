package voxelgen

import (
	"math"

	"voxlod/internal/config"
	"voxlod/internal/profiling"
	"voxlod/internal/voxel"
)

// Materials written by the generator.
const (
	Stone uint8 = 1
	Grass uint8 = 2
)

// Generator maps a footprint rectangle to a heightmap voxel volume.
// It owns a single output buffer that every call overwrites.
type Generator struct {
	seed          int64
	octaves       int
	persistence   float64
	lacunarity    float64
	baseFrequency float64
	baseHeight    float64
	amplitude     float64

	chunkXY     int
	chunkHeight int

	vol     *voxel.Volume
	heights []float64
}

// New creates a generator for the configured chunk shape and noise parameters.
func New(cfg config.Terrain) *Generator {
	g := &Generator{
		seed:          cfg.Seed,
		octaves:       cfg.Octaves,
		persistence:   cfg.Persistence,
		lacunarity:    cfg.Lacunarity,
		baseFrequency: cfg.BaseFrequency,
		baseHeight:    cfg.BaseHeight,
		amplitude:     cfg.Amplitude,
		chunkXY:       cfg.ChunkSizeXY,
		chunkHeight:   cfg.ChunkHeight,
		vol:           voxel.NewVolume(cfg.ChunkSizeXY, cfg.ChunkHeight, cfg.ChunkSizeXY, 1),
	}
	g.heights = make([]float64, g.vol.Dim[0]*g.vol.Dim[2])
	return g
}

// HeightAt returns the terrain surface height in world units at world (x, z).
// The result is kept strictly inside (0, ChunkHeight) so the finest level always has a surface.
func (g *Generator) HeightAt(wx, wz float64) float64 {
	n := fbm(wx*g.baseFrequency, wz*g.baseFrequency, g.seed, g.octaves, g.persistence, g.lacunarity)
	h := g.baseHeight + n*g.amplitude
	return math.Min(float64(g.chunkHeight)-0.5, math.Max(0.5, h))
}

// GenSimplex fills the generator's volume for the footprint b and returns it.
// Columns are sampled at a spacing of b.Width()/ChunkSizeXY world units, so every level
// produces the same volume shape. The returned volume is only valid until the next call.
func (g *Generator) GenSimplex(b voxel.Rect) *voxel.Volume {
	defer profiling.Track("voxelgen.GenSimplex")()

	v := g.vol
	step := float64(b.Width()) / float64(g.chunkXY)
	dx, dy, dz := v.Dim[0], v.Dim[1], v.Dim[2]

	// Column heights first, halo columns included.
	for k := 0; k < dz; k++ {
		wz := float64(b.Y0) + (float64(k-v.Offset[2])+0.5)*step
		for i := 0; i < dx; i++ {
			wx := float64(b.X0) + (float64(i-v.Offset[0])+0.5)*step
			g.heights[i+dx*k] = g.HeightAt(wx, wz)
		}
	}

	for k := 0; k < dz; k++ {
		for j := 0; j < dy; j++ {
			ly := j - v.Offset[1]
			row := dx * (j + dy*k)
			for i := 0; i < dx; i++ {
				h := g.heights[i+dx*k]
				v.Data[row+i] = material(ly, step, h)
			}
		}
	}
	return v
}

// material decides the voxel at layer ly: solid when its bottom lies below the surface,
// so the first layer is solid at every level. The layer under the volume is always solid
// so terrain bottoms are never meshed.
func material(ly int, step, height float64) uint8 {
	if ly < 0 {
		return Stone
	}
	bottom := float64(ly) * step
	if bottom >= height {
		return voxel.Air
	}
	if bottom+step >= height {
		return Grass
	}
	return Stone
}
