package membership

import (
	"fmt"

	"github.com/wegman-software/osm2svg-go/internal/nodeindex"
)

// ArenaRef is a signed reference to a way by arena position.
// Position p is stored as p+1 so that the sign survives position 0.
type ArenaRef int32

// Pos returns the arena position of the way
func (a ArenaRef) Pos() int32 {
	if a < 0 {
		return int32(-a) - 1
	}
	return int32(a) - 1
}

// Reversed reports whether the reference enters the way at its back node
func (a ArenaRef) Reversed() bool { return a < 0 }

// NewArenaRef creates a reference to the way at pos
func NewArenaRef(pos int32, reversed bool) ArenaRef {
	if reversed {
		return ArenaRef(-(pos + 1))
	}
	return ArenaRef(pos + 1)
}

// Index is the read-only membership index: node locations, a way arena,
// relevant relations and the endpoint adjacency.
// It is safe for concurrent readers once Build has returned it.
type Index struct {
	nodes  nodeindex.Store
	ways   []Way
	wayPos map[int64]int32

	relations []Relation
	relPos    map[int64]int32

	// endpoint node id -> slot in adjacency
	junctions map[int64]int32
	// slot -> ways that start (+) or end (-) at the node
	adjacency [][]ArenaRef

	stats Stats
}

// Location returns the coordinates of a node
func (x *Index) Location(nodeID int64) (lon, lat float64, ok bool) {
	return x.nodes.Get(nodeID)
}

// Way returns a way by id
func (x *Index) Way(id int64) (*Way, bool) {
	pos, ok := x.wayPos[id]
	if !ok {
		return nil, false
	}
	return &x.ways[pos], true
}

// Pos returns the arena position of a way
func (x *Index) Pos(wayID int64) (int32, bool) {
	pos, ok := x.wayPos[wayID]
	return pos, ok
}

// WayAt returns the way stored at an arena position
func (x *Index) WayAt(pos int32) *Way {
	return &x.ways[pos]
}

// Relation returns a relevant relation by id
func (x *Index) Relation(id int64) (*Relation, bool) {
	pos, ok := x.relPos[id]
	if !ok {
		return nil, false
	}
	return &x.relations[pos], true
}

// Relations returns the relevant relations in input order
func (x *Index) Relations() []Relation {
	return x.relations
}

// Incident returns the arena references of ways that start or end at a node.
// A way starting at the node is returned forward, a way ending there reversed.
func (x *Index) Incident(nodeID int64) []ArenaRef {
	slot, ok := x.junctions[nodeID]
	if !ok {
		return nil
	}
	return x.adjacency[slot]
}

// EndpointRefs returns Incident translated to signed way ids
func (x *Index) EndpointRefs(nodeID int64) []WayRef {
	incident := x.Incident(nodeID)
	refs := make([]WayRef, len(incident))
	for i, a := range incident {
		refs[i] = x.Ref(a)
	}
	return refs
}

// Ref translates an arena reference to a signed way id
func (x *Index) Ref(a ArenaRef) WayRef {
	id := x.ways[a.Pos()].ID
	if a.Reversed() {
		return Backward(id)
	}
	return Forward(id)
}

// Ends returns the entry and exit node of a way under the given orientation
func (x *Index) Ends(a ArenaRef) (entry, exit int64) {
	w := &x.ways[a.Pos()]
	if a.Reversed() {
		return w.Back(), w.Front()
	}
	return w.Front(), w.Back()
}

// Stats returns ingestion counters
func (x *Index) Stats() Stats {
	return x.stats
}

// Close releases the node store
func (x *Index) Close() error {
	return x.nodes.Close()
}

// checkEndpoints verifies that every adjacency entry points at a way whose
// front (forward entries) or back (reversed entries) is the indexed node.
func (x *Index) checkEndpoints() error {
	for node, slot := range x.junctions {
		for _, a := range x.adjacency[slot] {
			w := &x.ways[a.Pos()]
			if !a.Reversed() && w.Front() != node {
				return &MalformedWayError{WayID: w.ID, Reason: fmt.Sprintf("indexed as starting at node %d but starts at %d", node, w.Front())}
			}
			if a.Reversed() && w.Back() != node {
				return &MalformedWayError{WayID: w.ID, Reason: fmt.Sprintf("indexed as ending at node %d but ends at %d", node, w.Back())}
			}
		}
	}
	return nil
}
