package render

import "fmt"

// Point is a plane coordinate in pixels
type Point struct {
	X, Y float64
}

// Op is a path drawing operation
type Op uint8

const (
	MoveTo Op = iota
	LineTo
)

// Command is one drawing step of a path
type Command struct {
	Op Op
	Point
}

// Style selects how a relation's rings are drawn
type Style int

const (
	// StyleStroke draws rings as thick open strokes
	StyleStroke Style = iota
	// StyleFill draws rings as closed filled areas
	StyleFill
)

func (s Style) String() string {
	switch s {
	case StyleStroke:
		return "stroke"
	case StyleFill:
		return "fill"
	default:
		return fmt.Sprintf("Style(%d)", int(s))
	}
}

// ParseStyle parses "stroke" or "fill"
func ParseStyle(s string) (Style, error) {
	switch s {
	case "stroke":
		return StyleStroke, nil
	case "fill":
		return StyleFill, nil
	default:
		return 0, fmt.Errorf("unknown style %q (use stroke or fill)", s)
	}
}

// Group identifies the relation a group of paths belongs to
type Group struct {
	RelationID int64
	Name       string
}

// Sink receives rendered relations.
// Calls are strictly nested: BeginGroup, any number of EmitPath, EndGroup.
type Sink interface {
	BeginGroup(g Group) error
	EmitPath(cmds []Command, style Style) error
	EndGroup() error
}
