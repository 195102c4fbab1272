package middle

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2svg-go/internal/config"
	"github.com/wegman-software/osm2svg-go/internal/logger"
	"github.com/wegman-software/osm2svg-go/internal/membership"
)

// Source streams relation members out of osm2pgsql-style middle tables
// (planet_osm_rels, planet_osm_ways, planet_osm_nodes).
type Source struct {
	pool      *pgxpool.Pool
	schema    string
	batchSize int
	relations []int64
	relevant  func(int64) bool

	RelationsRead atomic.Int64
	WaysRead      atomic.Int64
	NodesRead     atomic.Int64
}

// Connect opens a connection pool sized for the configured workers
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(max(cfg.Workers, 2))

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach PostgreSQL: %w", err)
	}
	return pool, nil
}

// NewSource creates a source. A non-empty relation list is fetched by id,
// otherwise every row of planet_osm_rels is read.
func NewSource(pool *pgxpool.Pool, cfg *config.Config) *Source {
	return &Source{
		pool:      pool,
		schema:    cfg.DBSchema,
		batchSize: cfg.BatchSize,
		relations: cfg.Relations,
		relevant:  cfg.IsRelevant(),
	}
}

// Stream delivers relations, their member ways and way nodes to h
func (s *Source) Stream(ctx context.Context, h membership.Handler) error {
	log := logger.Named("middle")

	start := time.Now()
	wayIDs, err := s.streamRelations(ctx, h)
	if err != nil {
		return err
	}
	log.Info("Read relations",
		zap.Int64("relations", s.RelationsRead.Load()),
		zap.Int("member_ways", len(wayIDs)),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))

	start = time.Now()
	nodeIDs, err := s.streamWays(ctx, h, wayIDs)
	if err != nil {
		return err
	}
	log.Info("Read ways",
		zap.Int64("ways", s.WaysRead.Load()),
		zap.Int("way_nodes", len(nodeIDs)),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))

	start = time.Now()
	if err := s.streamNodes(ctx, h, nodeIDs); err != nil {
		return err
	}
	log.Info("Read nodes",
		zap.Int64("nodes", s.NodesRead.Load()),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))

	return nil
}

// streamRelations returns the sorted ids of every way member of a relevant relation
func (s *Source) streamRelations(ctx context.Context, h membership.Handler) ([]int64, error) {
	query := fmt.Sprintf("SELECT id, members, tags FROM %s.planet_osm_rels", s.schema)
	var args []any
	if len(s.relations) > 0 {
		query += " WHERE id = ANY($1)"
		args = append(args, s.relations)
	}
	query += " ORDER BY id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query planet_osm_rels: %w", err)
	}
	defer rows.Close()

	wanted := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		var membersJSON, tagsJSON []byte
		if err := rows.Scan(&id, &membersJSON, &tagsJSON); err != nil {
			return nil, err
		}
		raw, err := decodeRelation(id, membersJSON, tagsJSON)
		if err != nil {
			return nil, err
		}
		members, err := raw.ToMembers()
		if err != nil {
			return nil, err
		}
		s.RelationsRead.Add(1)

		if s.relevant(id) {
			for _, m := range members {
				if m.Type == membership.MemberWay {
					wanted[m.Ref] = struct{}{}
				}
			}
		}
		if err := h.Relation(id, members, raw.Tags); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sortedKeys(wanted), nil
}

func (s *Source) streamWays(ctx context.Context, h membership.Handler, wayIDs []int64) ([]int64, error) {
	query := fmt.Sprintf("SELECT id, nodes FROM %s.planet_osm_ways WHERE id = ANY($1) ORDER BY id", s.schema)
	wanted := make(map[int64]struct{})

	for _, batch := range chunk(wayIDs, s.batchSize) {
		rows, err := s.pool.Query(ctx, query, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to query planet_osm_ways: %w", err)
		}
		for rows.Next() {
			var w RawWay
			if err := rows.Scan(&w.ID, &w.Nodes); err != nil {
				rows.Close()
				return nil, err
			}
			s.WaysRead.Add(1)
			for _, n := range w.Nodes {
				wanted[n] = struct{}{}
			}
			if err := h.Way(w.ID, w.Nodes); err != nil {
				rows.Close()
				return nil, err
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	return sortedKeys(wanted), nil
}

func (s *Source) streamNodes(ctx context.Context, h membership.Handler, nodeIDs []int64) error {
	query := fmt.Sprintf("SELECT id, lat, lon FROM %s.planet_osm_nodes WHERE id = ANY($1) ORDER BY id", s.schema)

	for _, batch := range chunk(nodeIDs, s.batchSize) {
		rows, err := s.pool.Query(ctx, query, batch)
		if err != nil {
			return fmt.Errorf("failed to query planet_osm_nodes: %w", err)
		}
		for rows.Next() {
			var n RawNode
			if err := rows.Scan(&n.ID, &n.Lat, &n.Lon); err != nil {
				rows.Close()
				return err
			}
			s.NodesRead.Add(1)
			if err := h.Node(n.ID, UnscaleCoord(n.Lon), UnscaleCoord(n.Lat)); err != nil {
				rows.Close()
				return err
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
