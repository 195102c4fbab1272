package membership

import "strconv"

// WayRef is a way id combined with a traversal direction.
// Positive values traverse the way front to back, negative values back to front.
type WayRef int64

// Forward returns the forward reference for a way
func Forward(wayID int64) WayRef { return WayRef(wayID) }

// Backward returns the reversed reference for a way
func Backward(wayID int64) WayRef { return WayRef(-wayID) }

// WayID returns the referenced way id without direction
func (r WayRef) WayID() int64 {
	if r < 0 {
		return int64(-r)
	}
	return int64(r)
}

// Reversed reports whether the way is traversed back to front
func (r WayRef) Reversed() bool { return r < 0 }

// Flip returns the same way traversed in the opposite direction
func (r WayRef) Flip() WayRef { return -r }

func (r WayRef) String() string {
	if r < 0 {
		return "-" + strconv.FormatInt(r.WayID(), 10)
	}
	return "+" + strconv.FormatInt(int64(r), 10)
}

// Member types as used by OSM relation member lists
const (
	MemberNode     = "node"
	MemberWay      = "way"
	MemberRelation = "relation"
)

// Member is one entry of a relation's member list
type Member struct {
	Type string
	Ref  int64
	Role string
}

// Way is an ordered node id sequence with at least two entries
type Way struct {
	ID    int64
	Nodes []int64
}

// Front returns the first node of the way
func (w *Way) Front() int64 { return w.Nodes[0] }

// Back returns the last node of the way
func (w *Way) Back() int64 { return w.Nodes[len(w.Nodes)-1] }

// Relation is a relevant relation reduced to its way members
type Relation struct {
	ID   int64
	Ways []int64 // member ways in input order, may contain duplicates
	Tags map[string]string
}

// Name returns the relation's name tag, if any
func (r *Relation) Name() string {
	return r.Tags["name"]
}

// Handler receives entities from an ingestion source.
// Sources call Relation for every relation they see so that discards can be counted.
type Handler interface {
	Node(id int64, lon, lat float64) error
	Way(id int64, nodes []int64) error
	Relation(id int64, members []Member, tags map[string]string) error
}

// Stats counts what the builder accepted and discarded
type Stats struct {
	Nodes              int
	Ways               int
	Relations          int
	DiscardedRelations int
	NonWayMembers      int
}
