package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/wegman-software/osm2svg-go/internal/config"
	"github.com/wegman-software/osm2svg-go/internal/logger"
)

var (
	cfg             = config.DefaultConfig()
	configFile      string
	verbose         bool
	logFile         string
	metricsInterval time.Duration
	windowStr       string
	relationsStr    string
)

var rootCmd = &cobra.Command{
	Use:   "osm2svg-go",
	Short: "Render OSM administrative borders to SVG",
	Long: `osm2svg-go reconstructs the closed boundary rings of OSM relations and
renders them as a decimated SVG map.

Features:
  - Multi-pass PBF/XML ingestion that keeps only relevant ways and nodes
  - Endpoint adjacency index for ring reconstruction
  - Memory-mapped node index for planet-sized inputs
  - YAML or Lua style policies per relation
  - Ring export to GeoParquet-style WKB files`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := loadConfigFile(cmd.Flags(), configFile); err != nil {
				return err
			}
		}
		cfg.Verbose = cfg.Verbose || verbose
		if logFile != "" {
			cfg.LogFile = logFile
		}
		if cmd.Flags().Changed("metrics-interval") {
			cfg.MetricsInterval = metricsInterval
		}

		if cfg.LogFile != "" {
			logger.InitWithFile(cfg.Verbose, cfg.LogFile)
		} else {
			logger.Init(cfg.Verbose)
		}
		return nil
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML or TOML configuration file (flags override it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Number of parallel reconstruction workers")

	// Logging and metrics flags
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "metrics-interval", 0, "Interval for system metrics logging, 0 disables (e.g., 10s, 1m)")

	// Input flags
	rootCmd.PersistentFlags().BoolVar(&cfg.FromDB, "from-db", cfg.FromDB, "Read nodes, ways and relations from the middle tables")
	rootCmd.PersistentFlags().StringVar(&cfg.FlatNodesFile, "flat-nodes", "", "Path to flat nodes file (memory-mapped node locations)")
	rootCmd.PersistentFlags().StringVarP(&relationsStr, "relations", "r", "", "Comma separated relation ids to render (default: all)")

	// Geometry flags
	rootCmd.PersistentFlags().StringVarP(&windowStr, "window", "w", "", "Projection window: minlon,minlat,maxlon,maxlat")
	rootCmd.PersistentFlags().Float64Var(&cfg.PxPerLatDeg, "px-per-lat", cfg.PxPerLatDeg, "Pixels per degree of latitude")
	rootCmd.PersistentFlags().Float64Var(&cfg.RefLat, "reference-lat", cfg.RefLat, "Latitude for longitude scaling (0 = window centre)")
	rootCmd.PersistentFlags().Float64Var(&cfg.MinRingExtent, "min-ring-extent", cfg.MinRingExtent, "Drop rings smaller than this many pixels on both axes")
	rootCmd.PersistentFlags().StringVar(&cfg.TieBreak, "tie-break", cfg.TieBreak, "Junction rule: first or lowest-id")
	rootCmd.PersistentFlags().BoolVar(&cfg.SkipUnclosable, "skip-unclosable", cfg.SkipUnclosable, "Skip relations whose rings cannot be closed instead of failing")

	// Database flags (persistent so they're available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "PostgreSQL host")
	rootCmd.PersistentFlags().IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "PostgreSQL port")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBName, "db-name", "d", cfg.DBName, "PostgreSQL database name")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBUser, "db-user", "U", cfg.DBUser, "PostgreSQL user")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBPassword, "db-password", "W", cfg.DBPassword, "PostgreSQL password")
	rootCmd.PersistentFlags().StringVar(&cfg.DBSchema, "db-schema", cfg.DBSchema, "Schema holding the middle tables")
	rootCmd.PersistentFlags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Ids per middle table query")
}

// loadConfigFile merges a config file into cfg and re-applies every flag
// given on the command line so that flags win over the file.
func loadConfigFile(flags *pflag.FlagSet, path string) error {
	if err := cfg.LoadFile(path); err != nil {
		return err
	}
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if setErr := f.Value.Set(f.Value.String()); setErr != nil {
			err = fmt.Errorf("flag --%s: %w", f.Name, setErr)
		}
	})
	return err
}

// applyInput resolves the positional input and the string-valued flags into cfg
func applyInput(args []string) error {
	if len(args) > 0 {
		cfg.InputFile = args[0]
	}
	if windowStr != "" {
		bbox, err := config.ParseBBox(windowStr)
		if err != nil {
			return fmt.Errorf("invalid window: %w", err)
		}
		cfg.Window = bbox
	}
	if relationsStr != "" {
		ids, err := parseIDs(relationsStr)
		if err != nil {
			return err
		}
		cfg.Relations = ids
	}
	return cfg.Validate()
}

// parseIDs parses a comma separated list of relation ids
func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid relation id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	os.Exit(1)
}
