package voxelgen

import "math"

// Seeded 2D simplex noise. Lattice gradients are picked by an integer hash
// so no permutation table has to be built per seed.

var (
	skewF2   = 0.5 * (math.Sqrt(3) - 1)
	unskewG2 = (3 - math.Sqrt(3)) / 6
)

const diag = math.Sqrt2 / 2

// grad2 holds eight unit gradient directions.
var grad2 = [8][2]float64{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{diag, diag}, {-diag, diag}, {diag, -diag}, {-diag, -diag},
}

func hash2(x, z, seed int64) uint64 {
	// SplitMix64 finalizer over a mixed lattice coordinate
	v := uint64(x)*0x9E3779B97F4A7C15 + uint64(z)*0xC2B2AE3D27D4EB4F + uint64(seed)
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	return v ^ (v >> 31)
}

func corner(i, j, seed int64, x, y float64) float64 {
	t := 0.5 - x*x - y*y
	if t <= 0 {
		return 0
	}
	g := grad2[hash2(i, j, seed)&7]
	t *= t
	return t * t * (g[0]*x + g[1]*y)
}

// simplex2 returns gradient noise in roughly [-1,1].
func simplex2(x, y float64, seed int64) float64 {
	s := (x + y) * skewF2
	i := math.Floor(x + s)
	j := math.Floor(y + s)
	t := (i + j) * unskewG2
	x0 := x - (i - t)
	y0 := y - (j - t)

	// Which of the two triangles of the skewed cell we are in
	var i1, j1 float64
	if x0 > y0 {
		i1, j1 = 1, 0
	} else {
		i1, j1 = 0, 1
	}
	x1 := x0 - i1 + unskewG2
	y1 := y0 - j1 + unskewG2
	x2 := x0 - 1 + 2*unskewG2
	y2 := y0 - 1 + 2*unskewG2

	ii, jj := int64(i), int64(j)
	n := corner(ii, jj, seed, x0, y0) +
		corner(ii+int64(i1), jj+int64(j1), seed, x1, y1) +
		corner(ii+1, jj+1, seed, x2, y2)
	return 70 * n
}

// fbm sums octaves of simplex noise at increasing frequency and decreasing
// amplitude, normalized into [0,1].
func fbm(x, y float64, seed int64, octaves int, persistence, lacunarity float64) float64 {
	amplitude := 1.0
	frequency := 1.0
	sum := 0.0
	norm := 0.0
	for i := range octaves {
		sum += simplex2(x*frequency, y*frequency, seed+int64(i*131)) * amplitude
		norm += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	v := (sum/norm + 1) * 0.5
	return math.Min(1, math.Max(0, v))
}
