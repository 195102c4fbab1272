package pipeline

import (
	"context"
	"time"

	"github.com/wegman-software/osm2svg-go/internal/membership"
	"github.com/wegman-software/osm2svg-go/internal/render"
)

// Source streams OSM entities into a handler
type Source interface {
	Stream(ctx context.Context, h membership.Handler) error
}

// Outputs selects what a run produces
type Outputs struct {
	SVG     bool
	Parquet bool
}

// Stats holds the counters of one run
type Stats struct {
	Ingest membership.Stats

	Relations    int     // relevant relations reconstructed
	Rings        int     // rings kept
	Degenerate   int     // rings dropped as sub-pixel
	Culled       int     // rings dropped outside the window
	Dangling     int     // member references to missing ways
	MissingNodes int     // ring nodes without a location
	Skipped      []int64 // relations skipped as unclosable

	Render        render.EmitStats
	RingsExported int

	IngestDuration      time.Duration
	ReconstructDuration time.Duration
	OutputDuration      time.Duration
}
