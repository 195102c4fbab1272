package rings

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wegman-software/osm2svg-go/internal/membership"
	"github.com/wegman-software/osm2svg-go/internal/proj"
)

// Options controls ring reconstruction
type Options struct {
	TieBreak TieBreak
	// MinExtent is the pixel size a ring's bounding box must reach on at least
	// one axis to be kept. Smaller rings are counted as degenerate and dropped.
	MinExtent float64
}

// Result holds the kept rings of one relation
type Result struct {
	RelationID int64
	Rings      []Ring
	Bounds     []proj.BBox // geographic bounds, parallel to Rings

	Degenerate   int     // closed rings dropped as sub-pixel
	Dangling     []int64 // member way ids absent from the index
	MissingNodes int     // ring nodes without a location
}

// Reconstructor partitions a relation's member ways into closed rings.
// It only reads the index and is safe for concurrent use.
type Reconstructor struct {
	idx    *membership.Index
	window *proj.Window
	opts   Options
	log    *zap.Logger
}

// New creates a reconstructor
func New(idx *membership.Index, window *proj.Window, opts Options, log *zap.Logger) *Reconstructor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconstructor{idx: idx, window: window, opts: opts, log: log}
}

// Reconstruct builds the rings of one relation.
// An UnclosableRingError or DuplicateMemberError means the relation's way set
// does not decompose into closed rings.
func (r *Reconstructor) Reconstruct(relationID int64) (*Result, error) {
	rel, ok := r.idx.Relation(relationID)
	if !ok {
		return nil, fmt.Errorf("relation %d is not in the index", relationID)
	}

	res := &Result{RelationID: relationID}

	// Member order drives seed selection; the set tracks what is still unused.
	order := make([]int32, 0, len(rel.Ways))
	remaining := make(map[int32]struct{}, len(rel.Ways))
	for _, wayID := range rel.Ways {
		pos, ok := r.idx.Pos(wayID)
		if !ok {
			res.Dangling = append(res.Dangling, wayID)
			r.log.Warn("Relation references missing way",
				zap.Int64("relation", relationID),
				zap.Int64("way", wayID))
			continue
		}
		if _, dup := remaining[pos]; dup {
			return nil, &DuplicateMemberError{RelationID: relationID, WayID: wayID}
		}
		remaining[pos] = struct{}{}
		order = append(order, pos)
	}

	for _, seed := range order {
		if _, ok := remaining[seed]; !ok {
			continue
		}
		delete(remaining, seed)

		ring, err := r.extend(relationID, seed, remaining)
		if err != nil {
			return nil, err
		}

		bounds, missing := r.bounds(ring)
		res.MissingNodes += missing
		width, height := r.window.Extent(bounds)
		if width < r.opts.MinExtent && height < r.opts.MinExtent {
			res.Degenerate++
			r.log.Debug("Dropping sub-pixel ring",
				zap.Int64("relation", relationID),
				zap.Stringer("ring", ring),
				zap.Float64("width_px", width),
				zap.Float64("height_px", height))
			continue
		}

		res.Rings = append(res.Rings, ring)
		res.Bounds = append(res.Bounds, bounds)
	}

	return res, nil
}

// extend grows a ring from a seed way until its back node meets its front node
func (r *Reconstructor) extend(relationID int64, seed int32, remaining map[int32]struct{}) (Ring, error) {
	start := membership.NewArenaRef(seed, false)
	front, back := r.idx.Ends(start)
	ring := Ring{r.idx.Ref(start)}

	for front != back {
		next, ok := r.opts.TieBreak.choose(r.idx, r.idx.Incident(back), remaining)
		if !ok {
			return nil, &UnclosableRingError{RelationID: relationID, Ring: ring, Node: back}
		}

		// Incident entries are oriented to enter their way at back.
		_, back = r.idx.Ends(next)
		delete(remaining, next.Pos())
		ring = append(ring, r.idx.Ref(next))
	}

	return ring, nil
}

// bounds computes the geographic bounding box of every node touched by a ring
func (r *Reconstructor) bounds(ring Ring) (proj.BBox, int) {
	bbox := proj.EmptyBBox()
	missing := 0
	Walk(r.idx, ring, func(nodeID int64) {
		lon, lat, ok := r.idx.Location(nodeID)
		if !ok {
			missing++
			return
		}
		bbox.ExpandPoint(lon, lat)
	})
	return bbox, missing
}

// Walk visits the ring's nodes in traversal order, reversing ways with a negative sign.
// The shared node between consecutive ways is visited twice.
func Walk(idx *membership.Index, ring Ring, fn func(nodeID int64)) {
	for _, ref := range ring {
		w, ok := idx.Way(ref.WayID())
		if !ok {
			continue
		}
		if ref.Reversed() {
			for i := len(w.Nodes) - 1; i >= 0; i-- {
				fn(w.Nodes[i])
			}
		} else {
			for _, n := range w.Nodes {
				fn(n)
			}
		}
	}
}

// Closed reports whether consecutive ways share endpoints and the last way returns to the first
func Closed(idx *membership.Index, ring Ring) bool {
	if len(ring) == 0 {
		return false
	}
	ends := func(ref membership.WayRef) (int64, int64, bool) {
		w, ok := idx.Way(ref.WayID())
		if !ok {
			return 0, 0, false
		}
		if ref.Reversed() {
			return w.Back(), w.Front(), true
		}
		return w.Front(), w.Back(), true
	}

	first, prevExit, ok := ends(ring[0])
	if !ok {
		return false
	}
	for _, ref := range ring[1:] {
		entry, exit, ok := ends(ref)
		if !ok || entry != prevExit {
			return false
		}
		prevExit = exit
	}
	return prevExit == first
}
