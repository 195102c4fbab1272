package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wegman-software/osm2svg-go/internal/membership"
	"github.com/wegman-software/osm2svg-go/internal/parquet"
	"github.com/wegman-software/osm2svg-go/internal/proj"
	"github.com/wegman-software/osm2svg-go/internal/render"
	"github.com/wegman-software/osm2svg-go/internal/rings"
	"github.com/wegman-software/osm2svg-go/internal/svg"
	"github.com/wegman-software/osm2svg-go/internal/wkb"
)

// SVGOptions returns the document options for a window and the loaded style
func (c *Coordinator) SVGOptions(window *proj.Window) svg.Options {
	width, height := window.Size()
	opts := svg.DefaultOptions(width, height)
	if c.styleCfg.StrokeWidth > 0 {
		opts.StrokeWidth = c.styleCfg.StrokeWidth
	}
	if c.styleCfg.StrokeColor != "" {
		opts.StrokeColor = c.styleCfg.StrokeColor
	}
	if c.styleCfg.FillColor != "" {
		opts.FillColor = c.styleCfg.FillColor
	}
	return opts
}

func (c *Coordinator) renderSVG(idx *membership.Index, window *proj.Window, results []*rings.Result, stats *Stats) error {
	doc, err := svg.Create(c.cfg.OutputFile, c.SVGOptions(window))
	if err != nil {
		return err
	}

	if err := c.Render(doc, idx, window, results, stats); err != nil {
		doc.Close()
		return err
	}
	if err := doc.Close(); err != nil {
		return fmt.Errorf("failed to finish %s: %w", c.cfg.OutputFile, err)
	}

	c.log.Info("SVG written",
		zap.String("file", c.cfg.OutputFile),
		zap.Int("groups", stats.Render.Groups),
		zap.Int("points_in", stats.Render.PointsIn),
		zap.Int("points_out", stats.Render.PointsOut))
	return nil
}

// Render emits every reconstructed relation to sink in relation input order
func (c *Coordinator) Render(sink render.Sink, idx *membership.Index, window *proj.Window, results []*rings.Result, stats *Stats) error {
	em := render.NewEmitter(idx, window, c.cfg.Threshold, sink)
	relations := idx.Relations()
	for i, res := range results {
		if res == nil {
			continue
		}
		rel := &relations[i]
		if err := em.Relation(rel, res.Rings, c.policy.StyleFor(rel)); err != nil {
			return fmt.Errorf("relation %d: %w", rel.ID, err)
		}
	}
	stats.Render = em.Stats()
	return nil
}

func (c *Coordinator) exportRings(idx *membership.Index, results []*rings.Result, stats *Stats) error {
	w, err := parquet.NewRingWriter(c.cfg.ParquetFile, c.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.cfg.ParquetFile, err)
	}

	enc := wkb.NewEncoder(4096)
	var coords []float64
	for _, res := range results {
		if res == nil {
			continue
		}
		for n, ring := range res.Rings {
			coords = RingCoords(idx, ring, coords[:0])
			row := parquet.RingRow{
				RelationID: res.RelationID,
				Ring:       n,
				WayRefs:    make([]int64, len(ring)),
				NumPoints:  len(coords) / 2,
				GeomWKB:    enc.EncodeRing(coords),
			}
			for k, ref := range ring {
				row.WayRefs[k] = int64(ref)
			}
			if err := w.Write(row); err != nil {
				w.Close()
				return err
			}
		}
	}

	stats.RingsExported = w.Rows()
	if err := w.Close(); err != nil {
		return err
	}
	c.log.Info("Rings exported", zap.String("file", c.cfg.ParquetFile), zap.Int("rings", stats.RingsExported))
	return nil
}

// RingCoords appends the ring's located lon/lat pairs to dst. The node shared by
// consecutive ways is written once; a closed ring ends on its first node.
func RingCoords(idx *membership.Index, ring rings.Ring, dst []float64) []float64 {
	var prev int64
	first := true
	rings.Walk(idx, ring, func(nodeID int64) {
		if !first && nodeID == prev {
			return
		}
		first = false
		prev = nodeID
		if lon, lat, ok := idx.Location(nodeID); ok {
			dst = append(dst, lon, lat)
		}
	})
	return dst
}
