package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/pointgrid/internal/pointgrid"
)

// DefaultConfigPath is the path to the canonical grid defaults file.
const DefaultConfigPath = "config/grid.defaults.json"

// Defaults applied when a field is omitted from the JSON file.
const (
	DefaultVoxelSize          = 1.0
	DefaultShards             = 0
	DefaultPercentileAccuracy = pointgrid.DefaultPercentileAccuracy
)

// GridConfig represents the JSON configuration of a point grid and the
// optional query the gridquery tool runs against it. Every field is a
// pointer so partial files keep the defaults for anything they omit.
type GridConfig struct {
	// Grid geometry
	VoxelSize *float64    `json:"voxel_size,omitempty"`
	Offset    *[3]float64 `json:"offset,omitempty"`

	// Concurrency: 0 selects the single-lock grid, N > 0 a sharded grid.
	Shards *int `json:"shards,omitempty"`

	// Occupancy statistics
	PercentileAccuracy *float64 `json:"percentile_accuracy,omitempty"`

	// Query box in world coordinates. Both corners must be set together.
	QueryMin *[3]float64 `json:"query_min,omitempty"`
	QueryMax *[3]float64 `json:"query_max,omitempty"`
	// ExactFilter drops broad-phase results outside the real-valued box.
	ExactFilter *bool `json:"exact_filter,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }

// EmptyGridConfig returns a GridConfig with all fields unset.
func EmptyGridConfig() *GridConfig {
	return &GridConfig{}
}

// DefaultGridConfig returns a GridConfig with every field populated from
// the package defaults.
func DefaultGridConfig() *GridConfig {
	return &GridConfig{
		VoxelSize:          ptrFloat64(DefaultVoxelSize),
		Offset:             &[3]float64{},
		Shards:             ptrInt(DefaultShards),
		PercentileAccuracy: ptrFloat64(DefaultPercentileAccuracy),
		ExactFilter:        ptrBool(false),
	}
}

// LoadGridConfig loads a GridConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadGridConfig(path string) (*GridConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyGridConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *GridConfig) Validate() error {
	if c.VoxelSize != nil {
		if v := *c.VoxelSize; math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("voxel_size must be finite and > 0, got %v", v)
		}
	}
	if c.Offset != nil {
		if err := toPoint(*c.Offset).Validate(); err != nil {
			return fmt.Errorf("offset: %w", err)
		}
	}
	if c.Shards != nil && *c.Shards < 0 {
		return fmt.Errorf("shards must be >= 0, got %d", *c.Shards)
	}
	if c.PercentileAccuracy != nil {
		if a := *c.PercentileAccuracy; a <= 0 || a >= 1 {
			return fmt.Errorf("percentile_accuracy must be between 0 and 1 (exclusive), got %v", a)
		}
	}
	if (c.QueryMin == nil) != (c.QueryMax == nil) {
		return fmt.Errorf("query_min and query_max must be set together")
	}
	if c.QueryMin != nil {
		lo, hi := toPoint(*c.QueryMin), toPoint(*c.QueryMax)
		if err := lo.Validate(); err != nil {
			return fmt.Errorf("query_min: %w", err)
		}
		if err := hi.Validate(); err != nil {
			return fmt.Errorf("query_max: %w", err)
		}
		if lo.X > hi.X || lo.Y > hi.Y || lo.Z > hi.Z {
			return fmt.Errorf("query_min %v exceeds query_max %v", *c.QueryMin, *c.QueryMax)
		}
	}
	return nil
}

func toPoint(v [3]float64) pointgrid.Point {
	return pointgrid.Point{X: v[0], Y: v[1], Z: v[2]}
}

// GetVoxelSize returns the voxel edge length or the default.
func (c *GridConfig) GetVoxelSize() float64 {
	if c.VoxelSize == nil {
		return DefaultVoxelSize
	}
	return *c.VoxelSize
}

// GetOffset returns the grid origin or the world origin.
func (c *GridConfig) GetOffset() pointgrid.Point {
	if c.Offset == nil {
		return pointgrid.Point{}
	}
	return toPoint(*c.Offset)
}

// GetShards returns the shard count or the default.
func (c *GridConfig) GetShards() int {
	if c.Shards == nil {
		return DefaultShards
	}
	return *c.Shards
}

// GetPercentileAccuracy returns the occupancy percentile accuracy or the default.
func (c *GridConfig) GetPercentileAccuracy() float64 {
	if c.PercentileAccuracy == nil {
		return DefaultPercentileAccuracy
	}
	return *c.PercentileAccuracy
}

// GetQueryBox returns the configured query corners and whether one is set.
func (c *GridConfig) GetQueryBox() (lo, hi pointgrid.Point, ok bool) {
	if c.QueryMin == nil || c.QueryMax == nil {
		return pointgrid.Point{}, pointgrid.Point{}, false
	}
	return toPoint(*c.QueryMin), toPoint(*c.QueryMax), true
}

// GetExactFilter reports whether results are narrowed to the exact box.
func (c *GridConfig) GetExactFilter() bool {
	if c.ExactFilter == nil {
		return false
	}
	return *c.ExactFilter
}

// Params builds validated grid parameters from the configuration.
func (c *GridConfig) Params() (pointgrid.Params, error) {
	return pointgrid.NewParams(c.GetVoxelSize(), c.GetOffset())
}
