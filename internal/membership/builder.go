package membership

import (
	"errors"
	"fmt"

	"github.com/wegman-software/osm2svg-go/internal/nodeindex"
)

// Builder collects entities from a single ingestion pass and builds an Index.
// It implements Handler; every method fails fatally on duplicate ids.
type Builder struct {
	relevant func(int64) bool

	nodes  nodeindex.Store
	ways   []Way
	wayPos map[int64]int32

	relations    []Relation
	relPos       map[int64]int32
	seenRelation map[int64]struct{}

	stats Stats
	built bool
}

// NewBuilder creates a builder. relevant selects the relations to keep;
// a nil predicate keeps every relation. nodes defaults to an in-memory store.
func NewBuilder(relevant func(int64) bool, nodes nodeindex.Store) *Builder {
	if relevant == nil {
		relevant = func(int64) bool { return true }
	}
	if nodes == nil {
		nodes = nodeindex.NewMemoryIndex()
	}
	return &Builder{
		relevant:     relevant,
		nodes:        nodes,
		wayPos:       make(map[int64]int32),
		relPos:       make(map[int64]int32),
		seenRelation: make(map[int64]struct{}),
	}
}

var errBuilt = errors.New("membership builder already built")

// Node records a node location
func (b *Builder) Node(id int64, lon, lat float64) error {
	if b.built {
		return errBuilt
	}
	if _, _, ok := b.nodes.Get(id); ok {
		return &DuplicateIDError{Kind: "node", ID: id}
	}
	if err := b.nodes.Put(id, lon, lat); err != nil {
		return fmt.Errorf("failed to store node %d: %w", id, err)
	}
	b.stats.Nodes++
	return nil
}

// Way records a way's node sequence
func (b *Builder) Way(id int64, nodes []int64) error {
	if b.built {
		return errBuilt
	}
	// The sign of a way reference encodes direction, so ids must be positive.
	if id <= 0 {
		return &MalformedWayError{WayID: id, Reason: "way id must be positive"}
	}
	if _, ok := b.wayPos[id]; ok {
		return &DuplicateIDError{Kind: "way", ID: id}
	}
	if len(nodes) < 2 {
		return &MalformedWayError{WayID: id, Reason: fmt.Sprintf("has %d nodes, need at least 2", len(nodes))}
	}
	if zeroLength(nodes) {
		return &MalformedWayError{WayID: id, Reason: "zero-length way (all nodes identical)"}
	}

	b.wayPos[id] = int32(len(b.ways))
	b.ways = append(b.ways, Way{ID: id, Nodes: append([]int64(nil), nodes...)})
	b.stats.Ways++
	return nil
}

// Relation records a relation if it is relevant, otherwise counts it as discarded
func (b *Builder) Relation(id int64, members []Member, tags map[string]string) error {
	if b.built {
		return errBuilt
	}
	if _, ok := b.seenRelation[id]; ok {
		return &DuplicateIDError{Kind: "relation", ID: id}
	}
	b.seenRelation[id] = struct{}{}

	if !b.relevant(id) {
		b.stats.DiscardedRelations++
		return nil
	}

	rel := Relation{ID: id, Tags: tags}
	for _, m := range members {
		if m.Type != MemberWay || m.Ref == 0 {
			b.stats.NonWayMembers++
			continue
		}
		rel.Ways = append(rel.Ways, m.Ref)
	}

	b.relPos[id] = int32(len(b.relations))
	b.relations = append(b.relations, rel)
	b.stats.Relations++
	return nil
}

// Build constructs the endpoint adjacency and verifies it.
// The builder must not be used afterwards.
func (b *Builder) Build() (*Index, error) {
	if b.built {
		return nil, errBuilt
	}
	b.built = true

	idx := &Index{
		nodes:     b.nodes,
		ways:      b.ways,
		wayPos:    b.wayPos,
		relations: b.relations,
		relPos:    b.relPos,
		junctions: make(map[int64]int32),
		stats:     b.stats,
	}

	for pos := range idx.ways {
		w := &idx.ways[pos]
		idx.link(w.Front(), NewArenaRef(int32(pos), false))
		idx.link(w.Back(), NewArenaRef(int32(pos), true))
	}

	if err := idx.checkEndpoints(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (x *Index) link(node int64, a ArenaRef) {
	slot, ok := x.junctions[node]
	if !ok {
		slot = int32(len(x.adjacency))
		x.junctions[node] = slot
		x.adjacency = append(x.adjacency, nil)
	}
	x.adjacency[slot] = append(x.adjacency[slot], a)
}

func zeroLength(nodes []int64) bool {
	for _, n := range nodes[1:] {
		if n != nodes[0] {
			return false
		}
	}
	return true
}
