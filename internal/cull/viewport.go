package cull

import (
	"github.com/dhconnelly/rtreego"

	"github.com/wegman-software/osm2svg-go/internal/proj"
	"github.com/wegman-software/osm2svg-go/internal/rings"
)

// minLength keeps R-tree rectangles non-degenerate (about 11 m)
const minLength = 0.0001

// Hit identifies one ring in a result set
type Hit struct {
	Result int // position in the result slice
	Ring   int // position in Result.Rings
}

// indexedRing wraps a ring's bounds for R-tree storage
type indexedRing struct {
	hit    Hit
	bounds proj.BBox
}

// Bounds implements rtreego.Spatial
func (r *indexedRing) Bounds() rtreego.Rect {
	return toRect(r.bounds)
}

func toRect(b proj.BBox) rtreego.Rect {
	point := rtreego.Point{b.MinLon, b.MinLat}
	lonLength := b.MaxLon - b.MinLon
	latLength := b.MaxLat - b.MinLat
	if lonLength < minLength {
		lonLength = minLength
	}
	if latLength < minLength {
		latLength = minLength
	}
	rect, _ := rtreego.NewRect(point, []float64{lonLength, latLength})
	return rect
}

// Index is a spatial index over ring bounding boxes
type Index struct {
	tree *rtreego.Rtree
	size int
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{tree: rtreego.NewTree(2, 25, 50)}
}

// Insert adds a ring; rings without located nodes are not indexed
func (x *Index) Insert(hit Hit, bounds proj.BBox) {
	if bounds.IsEmpty() {
		return
	}
	x.tree.Insert(&indexedRing{hit: hit, bounds: bounds})
	x.size++
}

// Len returns the number of indexed rings
func (x *Index) Len() int {
	return x.size
}

// Search returns the rings whose bounds intersect b
func (x *Index) Search(b proj.BBox) []Hit {
	spatials := x.tree.SearchIntersect(toRect(b))
	hits := make([]Hit, 0, len(spatials))
	for _, s := range spatials {
		hits = append(hits, s.(*indexedRing).hit)
	}
	return hits
}

// Apply drops rings whose bounding box misses the window.
// Results are modified in place and ring order is kept. It returns the number of rings dropped.
func Apply(results []*rings.Result, window proj.BBox) int {
	idx := NewIndex()
	total := 0
	for i, res := range results {
		if res == nil {
			continue
		}
		for j, b := range res.Bounds {
			idx.Insert(Hit{Result: i, Ring: j}, b)
			total++
		}
	}

	visible := make(map[Hit]struct{}, idx.Len())
	for _, h := range idx.Search(window) {
		// The R-tree pads degenerate boxes; confirm against the real bounds
		if results[h.Result].Bounds[h.Ring].Intersects(window) {
			visible[h] = struct{}{}
		}
	}

	for i, res := range results {
		if res == nil {
			continue
		}
		kept := res.Rings[:0]
		keptBounds := res.Bounds[:0]
		for j := range res.Rings {
			if _, ok := visible[Hit{Result: i, Ring: j}]; ok {
				kept = append(kept, res.Rings[j])
				keptBounds = append(keptBounds, res.Bounds[j])
			}
		}
		res.Rings = kept
		res.Bounds = keptBounds
	}

	return total - len(visible)
}
