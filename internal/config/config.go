package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// BBox represents a geographic bounding box
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// String returns the bbox in "minlon,minlat,maxlon,maxlat" form
func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// Contains checks if a point is within the bounding box
func (b BBox) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// ParseBBox parses a bbox string in format "minlon,minlat,maxlon,maxlat"
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("bbox must have 4 values: minlon,minlat,maxlon,maxlat")
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("invalid bbox coordinate %q: %w", p, err)
		}
		coords[i] = v
	}

	bbox := BBox{
		MinLon: coords[0],
		MinLat: coords[1],
		MaxLon: coords[2],
		MaxLat: coords[3],
	}

	if bbox.MinLon >= bbox.MaxLon {
		return BBox{}, fmt.Errorf("minlon (%f) must be < maxlon (%f)", bbox.MinLon, bbox.MaxLon)
	}
	if bbox.MinLat >= bbox.MaxLat {
		return BBox{}, fmt.Errorf("minlat (%f) must be < maxlat (%f)", bbox.MinLat, bbox.MaxLat)
	}

	return bbox, nil
}

// Tie-break rules for picking among several candidate ways at a junction node
const (
	TieBreakFirst    = "first"     // first incident way in input order
	TieBreakLowestID = "lowest-id" // incident way with the smallest id
)

// Config holds the global configuration for a render run
type Config struct {
	// Input settings
	InputFile string `yaml:"input" toml:"input"`
	FromDB    bool   `yaml:"from_db" toml:"from_db"` // read entities from middle tables instead of a file

	// Output settings
	OutputFile  string `yaml:"output" toml:"output"`
	ParquetFile string `yaml:"parquet" toml:"parquet"`

	// Projection window
	Window      BBox    `yaml:"-" toml:"-"`
	WindowSpec  string  `yaml:"window" toml:"window"`
	PxPerLatDeg float64 `yaml:"px_per_lat_deg" toml:"px_per_lat_deg"`
	RefLat      float64 `yaml:"reference_lat" toml:"reference_lat"` // 0 = window centre

	// Geometry
	Threshold     float64 `yaml:"threshold" toml:"threshold"`           // decimation distance in pixels
	MinRingExtent float64 `yaml:"min_ring_extent" toml:"min_ring_extent"` // pixels
	TieBreak      string  `yaml:"tie_break" toml:"tie_break"`
	CullOutside   bool    `yaml:"cull_outside_window" toml:"cull_outside_window"`

	// SkipUnclosable turns an unclosable ring into a per-relation error.
	// Off by default: a ring that cannot be closed aborts the run.
	SkipUnclosable bool `yaml:"skip_unclosable" toml:"skip_unclosable"`

	// Relation selection and styling
	Relations   []int64 `yaml:"relations" toml:"relations"`
	StyleFile   string  `yaml:"style" toml:"style"`         // YAML style policy
	StyleScript string  `yaml:"style_script" toml:"style_script"` // Lua style policy

	// Database settings
	DBHost     string `yaml:"db_host" toml:"db_host"`
	DBPort     int    `yaml:"db_port" toml:"db_port"`
	DBName     string `yaml:"db_name" toml:"db_name"`
	DBUser     string `yaml:"db_user" toml:"db_user"`
	DBPassword string `yaml:"db_password" toml:"db_password"`
	DBSchema   string `yaml:"db_schema" toml:"db_schema"`

	// Processing settings
	Workers       int    `yaml:"workers" toml:"workers"`
	BatchSize     int    `yaml:"batch_size" toml:"batch_size"`
	FlatNodesFile string `yaml:"flat_nodes" toml:"flat_nodes"`

	// Logging and metrics
	Verbose         bool          `yaml:"verbose" toml:"verbose"`
	LogFile         string        `yaml:"log_file" toml:"log_file"`
	MetricsInterval time.Duration `yaml:"-" toml:"-"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		OutputFile:      "borders.svg",
		Window:          BBox{MinLon: 0, MinLat: 46, MaxLon: 24, MaxLat: 68},
		PxPerLatDeg:     100,
		Threshold:       1.0,
		MinRingExtent:   1.0,
		TieBreak:        TieBreakFirst,
		DBHost:          "localhost",
		DBPort:          5432,
		DBName:          "osm",
		DBUser:          "postgres",
		DBSchema:        "public",
		Workers:         runtime.NumCPU(),
		BatchSize:       10000,
		MetricsInterval: 0,
	}
}

// LoadFile merges a YAML or TOML config file into c. The format is picked by extension.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to parse config TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (use .yaml, .yml or .toml)", filepath.Ext(path))
	}

	if c.WindowSpec != "" {
		bbox, err := ParseBBox(c.WindowSpec)
		if err != nil {
			return fmt.Errorf("invalid window in %s: %w", path, err)
		}
		c.Window = bbox
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string
func (c *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBName, c.DBUser,
	)
	if c.DBPassword != "" {
		connStr += fmt.Sprintf(" password=%s", c.DBPassword)
	}
	return connStr
}

// IsRelevant reports whether a relation is on the allow-list.
// An empty allow-list accepts every relation.
func (c *Config) IsRelevant() func(id int64) bool {
	if len(c.Relations) == 0 {
		return func(int64) bool { return true }
	}
	allowed := make(map[int64]struct{}, len(c.Relations))
	for _, id := range c.Relations {
		allowed[id] = struct{}{}
	}
	return func(id int64) bool {
		_, ok := allowed[id]
		return ok
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.InputFile == "" && !c.FromDB {
		return fmt.Errorf("input file is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.PxPerLatDeg <= 0 {
		return fmt.Errorf("px_per_lat_deg must be positive")
	}
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative")
	}
	if c.MinRingExtent < 0 {
		return fmt.Errorf("min_ring_extent must not be negative")
	}
	if c.RefLat <= -90 || c.RefLat >= 90 {
		return fmt.Errorf("reference_lat must be within (-90, 90)")
	}
	switch c.TieBreak {
	case TieBreakFirst, TieBreakLowestID:
	default:
		return fmt.Errorf("unknown tie_break %q (use %q or %q)", c.TieBreak, TieBreakFirst, TieBreakLowestID)
	}
	if c.StyleFile != "" && c.StyleScript != "" {
		return fmt.Errorf("style and style_script are mutually exclusive")
	}
	return nil
}
