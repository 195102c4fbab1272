package rings

import (
	"fmt"
	"strings"

	"github.com/wegman-software/osm2svg-go/internal/membership"
)

// UnclosableRingError reports a ring that reached a node with no remaining adjacent way
type UnclosableRingError struct {
	RelationID int64
	Ring       Ring  // ways chained so far
	Node       int64 // endpoint where the search got stuck
}

func (e *UnclosableRingError) Error() string {
	return fmt.Sprintf("relation %d: cannot close ring %s, no remaining way continues at node %d",
		e.RelationID, e.Ring, e.Node)
}

// DuplicateMemberError reports a way listed twice in one relation
type DuplicateMemberError struct {
	RelationID int64
	WayID      int64
}

func (e *DuplicateMemberError) Error() string {
	return fmt.Sprintf("relation %d lists way %d more than once", e.RelationID, e.WayID)
}

// Ring is a closed chain of signed way references
type Ring []membership.WayRef

func (r Ring) String() string {
	parts := make([]string, len(r))
	for i, ref := range r {
		parts[i] = ref.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
