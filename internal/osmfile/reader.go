package osmfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2svg-go/internal/logger"
	"github.com/wegman-software/osm2svg-go/internal/membership"
)

// Format is the encoding of an OSM file
type Format int

const (
	FormatPBF Format = iota
	FormatXML
)

func (f Format) String() string {
	if f == FormatXML {
		return "xml"
	}
	return "pbf"
}

// DetectFormat picks the decoder from the file name
func DetectFormat(path string) (Format, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".pbf"):
		return FormatPBF, nil
	case strings.HasSuffix(lower, ".osm"), strings.HasSuffix(lower, ".xml"):
		return FormatXML, nil
	default:
		return 0, fmt.Errorf("unsupported OSM file %q (use .osm.pbf, .osm or .xml)", path)
	}
}

// Stats counts entities handed to the handler
type Stats struct {
	Relations int64
	Ways      int64
	Nodes     int64
}

// Reader streams the entities relevant to a set of relations from an OSM file.
// It reads the input three times: relations, then their member ways, then the
// nodes of those ways, so that only the needed entities are kept in memory.
type Reader struct {
	open     func() (io.ReadCloser, error)
	format   Format
	procs    int
	relevant func(int64) bool

	relations atomic.Int64
	ways      atomic.Int64
	nodes     atomic.Int64
}

// NewFileReader creates a reader for a .osm.pbf or .osm file
func NewFileReader(path string, procs int, relevant func(int64) bool) (*Reader, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("input file: %w", err)
	}
	open := func() (io.ReadCloser, error) { return os.Open(path) }
	return NewReader(open, format, procs, relevant), nil
}

// NewReader creates a reader over a source that can be opened once per pass
func NewReader(open func() (io.ReadCloser, error), format Format, procs int, relevant func(int64) bool) *Reader {
	if procs < 1 {
		procs = 1
	}
	if relevant == nil {
		relevant = func(int64) bool { return true }
	}
	return &Reader{open: open, format: format, procs: procs, relevant: relevant}
}

// Stats returns the counters so far; safe to call while streaming
func (r *Reader) Stats() Stats {
	return Stats{
		Relations: r.relations.Load(),
		Ways:      r.ways.Load(),
		Nodes:     r.nodes.Load(),
	}
}

// Stream delivers relations, member ways and way nodes to h
func (r *Reader) Stream(ctx context.Context, h membership.Handler) error {
	log := logger.Named("osmfile")

	start := time.Now()
	log.Info("Pass 1: Reading relations", zap.Stringer("format", r.format))
	wantWays := make(map[osm.WayID]struct{})
	err := r.scan(ctx, passRelations, nil, func(obj osm.Object) error {
		rel, ok := obj.(*osm.Relation)
		if !ok {
			return nil
		}
		r.relations.Add(1)
		members := make([]membership.Member, len(rel.Members))
		for i, m := range rel.Members {
			members[i] = membership.Member{Type: string(m.Type), Ref: m.Ref, Role: m.Role}
			if r.relevant(int64(rel.ID)) && m.Type == osm.TypeWay {
				wantWays[osm.WayID(m.Ref)] = struct{}{}
			}
		}
		return h.Relation(int64(rel.ID), members, rel.Tags.Map())
	})
	if err != nil {
		return fmt.Errorf("pass 1 (relations): %w", err)
	}
	log.Info("Pass 1 complete",
		zap.Int64("relations", r.relations.Load()),
		zap.Int("member_ways", len(wantWays)),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))

	start = time.Now()
	log.Info("Pass 2: Reading member ways")
	wantNodes := make(map[osm.NodeID]struct{})
	filter := &filters{way: func(w *osm.Way) bool {
		_, ok := wantWays[w.ID]
		return ok
	}}
	err = r.scan(ctx, passWays, filter, func(obj osm.Object) error {
		w, ok := obj.(*osm.Way)
		if !ok || !filter.way(w) {
			return nil
		}
		r.ways.Add(1)
		nodes := make([]int64, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodes[i] = int64(wn.ID)
			wantNodes[wn.ID] = struct{}{}
		}
		return h.Way(int64(w.ID), nodes)
	})
	if err != nil {
		return fmt.Errorf("pass 2 (ways): %w", err)
	}
	log.Info("Pass 2 complete",
		zap.Int64("ways", r.ways.Load()),
		zap.Int("way_nodes", len(wantNodes)),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))

	start = time.Now()
	log.Info("Pass 3: Reading way nodes")
	filter = &filters{node: func(n *osm.Node) bool {
		_, ok := wantNodes[n.ID]
		return ok
	}}
	err = r.scan(ctx, passNodes, filter, func(obj osm.Object) error {
		n, ok := obj.(*osm.Node)
		if !ok || !filter.node(n) {
			return nil
		}
		r.nodes.Add(1)
		return h.Node(int64(n.ID), n.Lon, n.Lat)
	})
	if err != nil {
		return fmt.Errorf("pass 3 (nodes): %w", err)
	}
	log.Info("Pass 3 complete",
		zap.Int64("nodes", r.nodes.Load()),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))

	return nil
}

type pass int

const (
	passRelations pass = iota
	passWays
	passNodes
)

type filters struct {
	way  func(*osm.Way) bool
	node func(*osm.Node) bool
}

// scan runs one pass over the input, handing every decoded object to fn
func (r *Reader) scan(ctx context.Context, p pass, f *filters, fn func(osm.Object) error) error {
	rc, err := r.open()
	if err != nil {
		return err
	}
	defer rc.Close()

	scanner := r.newScanner(ctx, rc, p, f)
	defer scanner.Close()

	for scanner.Scan() {
		if err := fn(scanner.Object()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return err
	}
	return ctx.Err()
}

func (r *Reader) newScanner(ctx context.Context, rc io.Reader, p pass, f *filters) osm.Scanner {
	if r.format == FormatXML {
		return osmxml.New(ctx, rc)
	}

	s := osmpbf.New(ctx, rc, r.procs)
	s.SkipNodes = p != passNodes
	s.SkipWays = p != passWays
	s.SkipRelations = p != passRelations
	if f != nil && f.way != nil {
		s.FilterWay = f.way
	}
	if f != nil && f.node != nil {
		s.FilterNode = f.node
	}
	return s
}
