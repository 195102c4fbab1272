package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2svg-go/internal/loader"
	"github.com/wegman-software/osm2svg-go/internal/middle"
)

var (
	loadTable     string
	dropExisting  bool
	createIndexes bool
)

var loadCmd = &cobra.Command{
	Use:   "load <rings.parquet>",
	Short: "Load an exported ring file into PostGIS",
	Long: `Copy the rows of a ring export (see "rings") into a PostGIS table.
The table is created if needed and its contents are replaced.`,
	Args: cobra.ExactArgs(1),
	Run:  runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().StringVar(&loadTable, "table", loader.DefaultTable, "Target table")
	loadCmd.Flags().BoolVar(&dropExisting, "drop-existing", false, "Drop the table before loading")
	loadCmd.Flags().BoolVar(&createIndexes, "create-indexes", true, "Create GIST and relation id indexes after loading")
}

func runLoad(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := middle.Connect(ctx, cfg)
	if err != nil {
		exitWithError("failed to connect", err)
	}
	defer pool.Close()

	l := loader.NewLoader(pool, loader.Options{
		Schema:        cfg.DBSchema,
		Table:         loadTable,
		DropExisting:  dropExisting,
		CreateIndexes: createIndexes,
	})
	if _, err := l.Load(ctx, args[0]); err != nil {
		pool.Close()
		exitWithError("load failed", err)
	}
}
