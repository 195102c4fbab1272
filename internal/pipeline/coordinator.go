package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/osm2svg-go/internal/config"
	"github.com/wegman-software/osm2svg-go/internal/cull"
	"github.com/wegman-software/osm2svg-go/internal/flex"
	"github.com/wegman-software/osm2svg-go/internal/logger"
	"github.com/wegman-software/osm2svg-go/internal/membership"
	"github.com/wegman-software/osm2svg-go/internal/metrics"
	"github.com/wegman-software/osm2svg-go/internal/middle"
	"github.com/wegman-software/osm2svg-go/internal/nodeindex"
	"github.com/wegman-software/osm2svg-go/internal/osmfile"
	"github.com/wegman-software/osm2svg-go/internal/proj"
	"github.com/wegman-software/osm2svg-go/internal/render"
	"github.com/wegman-software/osm2svg-go/internal/rings"
	"github.com/wegman-software/osm2svg-go/internal/style"
)

// Coordinator runs ingest, reconstruction, culling and output for one configuration
type Coordinator struct {
	cfg      *config.Config
	src      Source
	policy   style.Policy
	styleCfg *style.Config
	log      *zap.Logger

	closers []func()

	// progress counters read by the metrics collector
	stage    atomic.Value
	progress atomic.Pointer[relationProgress]
}

// NewCoordinator prepares a run. The style policy is loaded first since a style
// file may carry the relation allow-list. A nil src opens the configured input.
func NewCoordinator(ctx context.Context, cfg *config.Config, src Source) (*Coordinator, error) {
	c := &Coordinator{cfg: cfg, src: src, log: logger.Named("pipeline")}
	c.stage.Store("init")

	if err := c.loadStyle(); err != nil {
		c.Close()
		return nil, err
	}

	if c.src == nil {
		if err := c.openSource(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}

	return c, nil
}

// Close releases the source and the style runtime
func (c *Coordinator) Close() error {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
	return nil
}

func (c *Coordinator) loadStyle() error {
	styleCfg := style.DefaultConfig()
	if c.cfg.StyleFile != "" {
		loaded, err := style.LoadConfig(c.cfg.StyleFile)
		if err != nil {
			return err
		}
		styleCfg = loaded
		c.log.Info("Loaded style policy", zap.String("file", c.cfg.StyleFile),
			zap.Int("fill", len(styleCfg.Fill)), zap.Int("stroke", len(styleCfg.Stroke)),
			zap.Int("rules", len(styleCfg.Rules)))
	}
	c.styleCfg = styleCfg

	if len(c.cfg.Relations) == 0 && len(styleCfg.Relations) > 0 {
		c.cfg.Relations = styleCfg.Relations
	}

	table, err := styleCfg.Compile()
	if err != nil {
		return fmt.Errorf("style policy: %w", err)
	}
	c.policy = table

	if c.cfg.StyleScript != "" {
		def, _ := render.ParseStyle(styleCfg.Default)
		rt := flex.NewRuntime(def)
		if err := rt.LoadFile(c.cfg.StyleScript); err != nil {
			rt.Close()
			return err
		}
		c.closers = append(c.closers, rt.Close)
		c.policy = rt
		c.log.Info("Loaded style script", zap.String("file", c.cfg.StyleScript))
	}

	return nil
}

func (c *Coordinator) openSource(ctx context.Context) error {
	if c.cfg.FromDB {
		pool, err := middle.Connect(ctx, c.cfg)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, pool.Close)
		c.src = middle.NewSource(pool, c.cfg)
		return nil
	}

	reader, err := osmfile.NewFileReader(c.cfg.InputFile, c.cfg.Workers, c.cfg.IsRelevant())
	if err != nil {
		return err
	}
	c.src = reader
	return nil
}

// Window returns the configured projection window
func (c *Coordinator) Window() (*proj.Window, error) {
	b := c.cfg.Window
	return proj.NewWindow(proj.BBox{MinLon: b.MinLon, MinLat: b.MinLat, MaxLon: b.MaxLon, MaxLat: b.MaxLat},
		c.cfg.PxPerLatDeg, c.cfg.RefLat)
}

// Run executes the whole pipeline
func (c *Coordinator) Run(ctx context.Context, out Outputs) (*Stats, error) {
	stats := &Stats{}

	if c.cfg.MetricsInterval > 0 {
		metricsCtx, cancelMetrics := context.WithCancel(ctx)
		defer cancelMetrics()

		collector := metrics.NewCollector(c.cfg.MetricsInterval, logger.Named("metrics"))
		collector.SetProgress(c.progressFields)
		go collector.Start(metricsCtx)
		c.log.Info("System metrics collection started",
			zap.Duration("interval", c.cfg.MetricsInterval))
	}

	window, err := c.Window()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	idx, err := c.Index(ctx)
	if err != nil {
		return nil, err
	}
	defer idx.Close()
	stats.Ingest = idx.Stats()
	stats.IngestDuration = time.Since(start)
	c.log.Info("Membership index built",
		zap.Int("nodes", stats.Ingest.Nodes),
		zap.Int("ways", stats.Ingest.Ways),
		zap.Int("relations", stats.Ingest.Relations),
		zap.Int("discarded_relations", stats.Ingest.DiscardedRelations),
		zap.Duration("duration", stats.IngestDuration.Round(time.Millisecond)))

	start = time.Now()
	results, err := c.Reconstruct(ctx, idx, window)
	if err != nil {
		return nil, err
	}
	summarize(stats, idx, results)

	if c.cfg.CullOutside {
		stats.Culled = cull.Apply(results, window.Bounds)
		stats.Rings -= stats.Culled
		c.log.Info("Culled rings outside the window", zap.Int("rings", stats.Culled))
	}
	stats.ReconstructDuration = time.Since(start)
	c.log.Info("Rings reconstructed",
		zap.Int("relations", stats.Relations),
		zap.Int("rings", stats.Rings),
		zap.Int("degenerate", stats.Degenerate),
		zap.Int("dangling", stats.Dangling),
		zap.Int("skipped", len(stats.Skipped)),
		zap.Duration("duration", stats.ReconstructDuration.Round(time.Millisecond)))

	start = time.Now()
	if out.SVG {
		c.stage.Store("render")
		if err := c.renderSVG(idx, window, results, stats); err != nil {
			return nil, err
		}
	}
	if out.Parquet {
		c.stage.Store("export")
		if err := c.exportRings(idx, results, stats); err != nil {
			return nil, err
		}
	}
	stats.OutputDuration = time.Since(start)
	c.stage.Store("done")

	return stats, nil
}

// Index streams the source into a new membership index
func (c *Coordinator) Index(ctx context.Context) (*membership.Index, error) {
	c.stage.Store("ingest")

	store, err := c.nodeStore()
	if err != nil {
		return nil, err
	}

	b := membership.NewBuilder(c.cfg.IsRelevant(), store)
	if err := c.src.Stream(ctx, b); err != nil {
		store.Close()
		return nil, err
	}

	idx, err := b.Build()
	if err != nil {
		store.Close()
		return nil, err
	}
	return idx, nil
}

func (c *Coordinator) nodeStore() (nodeindex.Store, error) {
	if c.cfg.FlatNodesFile == "" {
		return nodeindex.NewMemoryIndex(), nil
	}
	c.log.Info("Using flat node file", zap.String("path", c.cfg.FlatNodesFile))
	return nodeindex.NewMmapIndex(c.cfg.FlatNodesFile, nodeindex.DefaultMaxNodeID)
}

// Reconstruct builds the rings of every relevant relation with up to Workers
// relations in flight. Results are parallel to idx.Relations(); a nil entry
// marks a relation skipped as unclosable.
func (c *Coordinator) Reconstruct(ctx context.Context, idx *membership.Index, window *proj.Window) ([]*rings.Result, error) {
	c.stage.Store("reconstruct")

	tieBreak, err := rings.ParseTieBreak(c.cfg.TieBreak)
	if err != nil {
		return nil, err
	}
	rc := rings.New(idx, window, rings.Options{TieBreak: tieBreak, MinExtent: c.cfg.MinRingExtent}, logger.Named("rings"))

	relations := idx.Relations()
	results := make([]*rings.Result, len(relations))
	progress := newRelationProgress(len(relations))
	c.progress.Store(progress)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.cfg.Workers, 1))

	for i := range relations {
		i := i
		id := relations[i].ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer progress.finish()

			res, err := rc.Reconstruct(id)
			if err == nil {
				results[i] = res
				return nil
			}

			var unclosable *rings.UnclosableRingError
			if c.cfg.SkipUnclosable && errors.As(err, &unclosable) {
				c.log.Error("Skipping relation with unclosable ring",
					zap.Int64("relation", id),
					zap.Stringer("ring", unclosable.Ring),
					zap.Int64("node", unclosable.Node))
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func summarize(stats *Stats, idx *membership.Index, results []*rings.Result) {
	relations := idx.Relations()
	for i, res := range results {
		if res == nil {
			stats.Skipped = append(stats.Skipped, relations[i].ID)
			continue
		}
		stats.Relations++
		stats.Rings += len(res.Rings)
		stats.Degenerate += res.Degenerate
		stats.Dangling += len(res.Dangling)
		stats.MissingNodes += res.MissingNodes
	}
}

// progressFields reports the current stage to the metrics collector
func (c *Coordinator) progressFields() []zap.Field {
	stage, _ := c.stage.Load().(string)
	fields := []zap.Field{zap.String("stage", stage)}
	if p := c.progress.Load(); p != nil && stage == "reconstruct" {
		fields = append(fields, p.fields()...)
	}
	return fields
}
