package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2svg-go/internal/logger"
	"github.com/wegman-software/osm2svg-go/internal/parquet"
)

// DefaultTable receives loaded rings unless another table is configured
const DefaultTable = "osm2svg_rings"

// Options controls a ring load
type Options struct {
	Schema        string
	Table         string
	DropExisting  bool
	CreateIndexes bool
}

// Stats holds loader statistics
type Stats struct {
	RowsLoaded int64
	Duration   time.Duration
}

// Loader copies exported ring files into a PostGIS table
type Loader struct {
	pool *pgxpool.Pool
	opts Options
	log  *zap.Logger
}

// NewLoader creates a loader on an open pool
func NewLoader(pool *pgxpool.Pool, opts Options) *Loader {
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	return &Loader{pool: pool, opts: opts, log: logger.Named("loader")}
}

// TableName returns the quoted, schema-qualified target table
func (l *Loader) TableName() string {
	return pgx.Identifier{l.opts.Schema, l.opts.Table}.Sanitize()
}

// Load reads a ring export file and replaces the table contents with it
func (l *Loader) Load(ctx context.Context, parquetPath string) (*Stats, error) {
	start := time.Now()

	rows, err := parquet.ReadRings(ctx, parquetPath)
	if err != nil {
		return nil, err
	}
	l.log.Info("Loading rings",
		zap.String("table", l.TableName()),
		zap.Int("rows", len(rows)))

	if _, err := l.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS postgis"); err != nil {
		return nil, fmt.Errorf("failed to create PostGIS extension: %w", err)
	}
	if l.opts.Schema != "public" {
		if _, err := l.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{l.opts.Schema}.Sanitize()); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	count, err := l.copyRings(ctx, rows)
	if err != nil {
		return nil, err
	}

	if l.opts.CreateIndexes {
		if err := l.createIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	stats := &Stats{RowsLoaded: count, Duration: time.Since(start)}
	l.log.Info("Rings loaded",
		zap.String("table", l.TableName()),
		zap.Int64("rows", stats.RowsLoaded),
		zap.Duration("duration", stats.Duration.Round(time.Millisecond)))
	return stats, nil
}

// copyRings loads rows through a temp table in one transaction
func (l *Loader) copyRings(ctx context.Context, rows []parquet.RingRow) (int64, error) {
	table := l.TableName()

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if l.opts.DropExisting {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
			return 0, fmt.Errorf("failed to drop table: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, createTableSQL(table)); err != nil {
		return 0, fmt.Errorf("failed to create table: %w", err)
	}
	if _, err := tx.Exec(ctx, "TRUNCATE "+table); err != nil {
		return 0, fmt.Errorf("failed to truncate table: %w", err)
	}

	const tempTable = "osm2svg_load_tmp"
	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		CREATE TEMP TABLE %s (
			relation_id BIGINT,
			ring INTEGER,
			way_refs BIGINT[],
			num_points INTEGER,
			geom_wkb BYTEA
		) ON COMMIT DROP
	`, tempTable)); err != nil {
		return 0, fmt.Errorf("failed to create temp table: %w", err)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{tempTable},
		[]string{"relation_id", "ring", "way_refs", "num_points", "geom_wkb"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.RelationID, int32(r.Ring), r.WayRefs, int32(r.NumPoints), r.GeomWKB}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("COPY failed: %w", err)
	}

	// EWKB carries the SRID
	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (relation_id, ring, way_refs, num_points, geom)
		SELECT relation_id, ring, way_refs, num_points, ST_GeomFromEWKB(geom_wkb)
		FROM %s
	`, table, tempTable)); err != nil {
		return 0, fmt.Errorf("failed to insert from temp table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return copied, nil
}

func (l *Loader) createIndexes(ctx context.Context) error {
	table := l.TableName()
	stmts := []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING GIST (geom)",
			pgx.Identifier{l.opts.Table + "_geom_idx"}.Sanitize(), table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (relation_id)",
			pgx.Identifier{l.opts.Table + "_relation_id_idx"}.Sanitize(), table),
		"ANALYZE " + table,
	}
	for _, stmt := range stmts {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			relation_id BIGINT NOT NULL,
			ring INTEGER NOT NULL,
			way_refs BIGINT[] NOT NULL,
			num_points INTEGER NOT NULL,
			geom GEOMETRY(Geometry, 4326),
			PRIMARY KEY (relation_id, ring)
		)
	`, table)
}
