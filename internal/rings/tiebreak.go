package rings

import (
	"fmt"

	"github.com/wegman-software/osm2svg-go/internal/membership"
)

// TieBreak picks the next way when several remaining ways meet at a junction node
type TieBreak int

const (
	// TieBreakFirst takes the first incident way in input order
	TieBreakFirst TieBreak = iota
	// TieBreakLowestID takes the incident way with the smallest way id
	TieBreakLowestID
)

// ParseTieBreak parses the configuration names "first" and "lowest-id"
func ParseTieBreak(s string) (TieBreak, error) {
	switch s {
	case "", "first":
		return TieBreakFirst, nil
	case "lowest-id":
		return TieBreakLowestID, nil
	default:
		return 0, fmt.Errorf("unknown tie-break %q", s)
	}
}

func (t TieBreak) String() string {
	if t == TieBreakLowestID {
		return "lowest-id"
	}
	return "first"
}

// choose returns the candidate selected by the tie-break among those still remaining
func (t TieBreak) choose(idx *membership.Index, candidates []membership.ArenaRef, remaining map[int32]struct{}) (membership.ArenaRef, bool) {
	var (
		best  membership.ArenaRef
		found bool
	)
	for _, c := range candidates {
		if _, ok := remaining[c.Pos()]; !ok {
			continue
		}
		if t == TieBreakFirst {
			return c, true
		}
		if !found || idx.WayAt(c.Pos()).ID < idx.WayAt(best.Pos()).ID {
			best, found = c, true
		}
	}
	return best, found
}
