package membership

import "fmt"

// DuplicateIDError reports a node, way or relation id that appeared twice in the input
type DuplicateIDError struct {
	Kind string // "node", "way" or "relation"
	ID   int64
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate %s id %d", e.Kind, e.ID)
}

// MalformedWayError reports a way that cannot take part in ring reconstruction
type MalformedWayError struct {
	WayID  int64
	Reason string
}

func (e *MalformedWayError) Error() string {
	return fmt.Sprintf("malformed way %d: %s", e.WayID, e.Reason)
}
