package render

import (
	"github.com/wegman-software/osm2svg-go/internal/membership"
	"github.com/wegman-software/osm2svg-go/internal/proj"
	"github.com/wegman-software/osm2svg-go/internal/rings"
)

// EmitStats counts points flowing through an Emitter
type EmitStats struct {
	Groups       int
	Paths        int
	PointsIn     int
	PointsOut    int
	MissingNodes int
}

// Emitter projects and decimates a relation's rings and writes them to a Sink.
// Each relation becomes one group holding one path with a sub-path per ring.
// The command slice handed to the sink is reused after EmitPath returns.
type Emitter struct {
	idx    *membership.Index
	window *proj.Window
	sink   Sink
	dec    *Decimator
	stats  EmitStats
}

// NewEmitter creates an emitter; threshold is the decimation distance in pixels
func NewEmitter(idx *membership.Index, window *proj.Window, threshold float64, sink Sink) *Emitter {
	return &Emitter{
		idx:    idx,
		window: window,
		sink:   sink,
		dec:    NewDecimator(threshold),
	}
}

// Relation renders one relation
func (e *Emitter) Relation(rel *membership.Relation, rs []rings.Ring, style Style) error {
	if err := e.sink.BeginGroup(Group{RelationID: rel.ID, Name: rel.Name()}); err != nil {
		return err
	}
	e.stats.Groups++

	e.dec.Reset()
	for _, ring := range rs {
		e.dec.Begin()
		rings.Walk(e.idx, ring, func(nodeID int64) {
			lon, lat, ok := e.idx.Location(nodeID)
			if !ok {
				e.stats.MissingNodes++
				return
			}
			x, y := e.window.Project(lon, lat)
			e.stats.PointsIn++
			e.dec.Offer(Point{X: x, Y: y})
		})
		e.dec.End()
	}

	if cmds := e.dec.Commands(); len(cmds) > 0 {
		if err := e.sink.EmitPath(cmds, style); err != nil {
			return err
		}
		e.stats.Paths++
		e.stats.PointsOut += len(cmds)
	}

	return e.sink.EndGroup()
}

// Stats returns the counters accumulated so far
func (e *Emitter) Stats() EmitStats {
	return e.stats
}
