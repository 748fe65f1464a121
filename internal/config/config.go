package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Queue disciplines for pending geometry jobs.
const (
	QueueLIFO = "lifo"
	QueueFIFO = "fifo"
)

// maxPackedCoord is the largest voxel coordinate the mesher can encode in a vertex.
const maxPackedCoord = 255

// Terrain holds the fixed configuration of the LOD terrain core.
// It is read once at setup; nothing in the core mutates it afterwards.
type Terrain struct {
	// Volume shape (voxels per node, identical at every level)
	ChunkSizeXY int `json:"chunk_size_xy"`
	ChunkHeight int `json:"chunk_height"`

	// NumLevels is the level of the root node. Levels run from NumLevels
	// (coarsest, whole map) down to 0 (finest).
	NumLevels int `json:"num_levels"`

	// Capacities
	MaxNodes    int `json:"max_nodes"`
	MaxGeoms    int `json:"max_geoms"`
	MaxVertices int `json:"max_vertices"`

	// Screen-space error policy
	Threshold    float64 `json:"threshold"`
	DisplayWidth int     `json:"display_width"`
	FOV          float64 `json:"fov"` // degrees

	// Job scheduling
	MaxJobsPerFrame int    `json:"max_jobs_per_frame"`
	QueueOrder      string `json:"queue_order"`
	Workers         int    `json:"workers"`

	// Terrain shape
	Seed          int64   `json:"seed"`
	Octaves       int     `json:"octaves"`
	Persistence   float64 `json:"persistence"`
	Lacunarity    float64 `json:"lacunarity"`
	BaseFrequency float64 `json:"base_frequency"`
	BaseHeight    float64 `json:"base_height"`
	Amplitude     float64 `json:"amplitude"`

	Verbose bool `json:"verbose"`
}

// Default returns the built-in configuration.
func Default() Terrain {
	return Terrain{
		ChunkSizeXY:     32,
		ChunkHeight:     64,
		NumLevels:       6,
		MaxNodes:        4096,
		MaxGeoms:        1024,
		MaxVertices:     16384,
		Threshold:       32,
		DisplayWidth:    1280,
		FOV:             60,
		MaxJobsPerFrame: 4,
		QueueOrder:      QueueLIFO,
		Seed:            1337,
		Octaves:         5,
		Persistence:     0.5,
		Lacunarity:      2.0,
		BaseFrequency:   1.0 / 256.0,
		BaseHeight:      8,
		Amplitude:       48,
	}
}

// Load reads a JSON file over the defaults. Missing fields keep their default value.
func Load(path string) (Terrain, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading terrain config")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "decoding terrain config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid terrain config %s", path)
	}
	return cfg, nil
}

// MapDimVoxels is the side length of the whole map in level-0 voxels.
func (c Terrain) MapDimVoxels() int {
	return c.ChunkSizeXY << c.NumLevels
}

// MaxQuads is the number of quads a single geometry slot can hold.
func (c Terrain) MaxQuads() int {
	return c.MaxVertices / 4
}

// Validate checks that the configuration describes a closed, statically sized system.
func (c Terrain) Validate() error {
	switch {
	case c.ChunkSizeXY <= 0 || c.ChunkHeight <= 0:
		return errors.Errorf("chunk size must be positive, got %dx%d", c.ChunkSizeXY, c.ChunkHeight)
	case c.ChunkSizeXY+1 > maxPackedCoord || c.ChunkHeight+1 > maxPackedCoord:
		return errors.Errorf("chunk %dx%d exceeds packed vertex range %d", c.ChunkSizeXY, c.ChunkHeight, maxPackedCoord)
	case c.NumLevels < 0 || c.NumLevels > 20:
		return errors.Errorf("num_levels %d out of range [0,20]", c.NumLevels)
	case c.MaxNodes < 5:
		return errors.Errorf("max_nodes %d cannot hold a root and one split", c.MaxNodes)
	case c.MaxGeoms < 1:
		return errors.Errorf("max_geoms must be positive, got %d", c.MaxGeoms)
	case c.MaxVertices < 4 || c.MaxVertices%4 != 0:
		return errors.Errorf("max_vertices must be a positive multiple of 4, got %d", c.MaxVertices)
	case c.Threshold <= 0:
		return errors.Errorf("threshold must be positive, got %v", c.Threshold)
	case c.DisplayWidth <= 0:
		return errors.Errorf("display_width must be positive, got %d", c.DisplayWidth)
	case c.FOV <= 0 || c.FOV >= 180:
		return errors.Errorf("fov %v out of range (0,180)", c.FOV)
	case c.MaxJobsPerFrame < 1:
		return errors.Errorf("max_jobs_per_frame must be at least 1, got %d", c.MaxJobsPerFrame)
	case c.QueueOrder != QueueLIFO && c.QueueOrder != QueueFIFO:
		return errors.Errorf("unknown queue_order %q", c.QueueOrder)
	case c.Workers < 0:
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	case c.Octaves < 1:
		return errors.Errorf("octaves must be at least 1, got %d", c.Octaves)
	}
	return nil
}
