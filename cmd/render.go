package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2svg-go/internal/logger"
	"github.com/wegman-software/osm2svg-go/internal/pipeline"
)

var renderCmd = &cobra.Command{
	Use:   "render [input.osm.pbf|input.osm]",
	Short: "Reconstruct boundary rings and render them to SVG",
	Long: `Render the closed rings of the selected relations to an SVG file:

  1. Pass 1: Read relations and keep the relevant ones
  2. Pass 2: Read the member ways and build the endpoint index
  3. Pass 3: Read the node locations of those ways
  4. Reconstruct rings in parallel, drop sub-pixel rings
  5. Project, decimate and write one SVG group per relation

The input may be omitted when --from-db reads the middle tables.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "SVG output file")
	renderCmd.Flags().StringVar(&cfg.ParquetFile, "parquet", "", "Also export the kept rings to this Parquet file")
	renderCmd.Flags().Float64VarP(&cfg.Threshold, "threshold", "t", cfg.Threshold, "Decimation distance in pixels")
	renderCmd.Flags().BoolVar(&cfg.CullOutside, "cull", cfg.CullOutside, "Drop rings entirely outside the window")
	renderCmd.Flags().StringVarP(&cfg.StyleFile, "style", "S", "", "Style YAML file (stroke/fill per relation)")
	renderCmd.Flags().StringVar(&cfg.StyleScript, "style-script", "", "Lua style script defining style(relation)")
}

func runRender(cmd *cobra.Command, args []string) {
	log := logger.Get()
	if err := applyInput(args); err != nil {
		exitWithError("invalid configuration", err)
	}

	log.Info("Starting osm2svg-go render",
		zap.String("input", inputName()),
		zap.String("output", cfg.OutputFile),
		zap.String("window", cfg.Window.String()),
		zap.Float64("px_per_lat_deg", cfg.PxPerLatDeg),
		zap.Float64("threshold", cfg.Threshold),
		zap.Int("relations", len(cfg.Relations)),
		zap.Int("workers", cfg.Workers))

	stats := run(pipeline.Outputs{SVG: true, Parquet: cfg.ParquetFile != ""})

	log.Info("Render complete",
		zap.String("output", cfg.OutputFile),
		zap.Int("groups", stats.Render.Groups),
		zap.Int("paths", stats.Render.Paths),
		zap.Int("points_in", stats.Render.PointsIn),
		zap.Int("points_out", stats.Render.PointsOut),
		zap.Int("rings_exported", stats.RingsExported))
}

// run executes the pipeline and logs the shared summary
func run(out pipeline.Outputs) *pipeline.Stats {
	log := logger.Get()
	totalStart := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coordinator, err := pipeline.NewCoordinator(ctx, cfg, nil)
	if err != nil {
		exitWithError("failed to create pipeline", err)
	}
	defer coordinator.Close()

	stats, err := coordinator.Run(ctx, out)
	if err != nil {
		coordinator.Close()
		exitWithError("pipeline failed", err)
	}

	log.Info("Summary",
		zap.Duration("total_time", time.Since(totalStart).Round(time.Millisecond)),
		zap.Duration("ingest", stats.IngestDuration.Round(time.Millisecond)),
		zap.Duration("reconstruct", stats.ReconstructDuration.Round(time.Millisecond)),
		zap.Duration("output", stats.OutputDuration.Round(time.Millisecond)),
		zap.Int("relations", stats.Relations),
		zap.Int("rings", stats.Rings),
		zap.Int("degenerate", stats.Degenerate),
		zap.Int("culled", stats.Culled),
		zap.Int("dangling", stats.Dangling),
		zap.Int("missing_nodes", stats.MissingNodes),
		zap.Int64s("skipped", stats.Skipped))
	return stats
}

func inputName() string {
	if cfg.FromDB {
		return "postgres://" + cfg.DBHost + "/" + cfg.DBName
	}
	return cfg.InputFile
}
