package render

import "errors"

// Recorder is an in-memory Sink that keeps copies of everything it receives
type Recorder struct {
	Groups []RecordedGroup
	open   bool
}

// RecordedGroup is one group captured by a Recorder
type RecordedGroup struct {
	Group
	Paths  [][]Command
	Styles []Style
}

// BeginGroup implements Sink
func (r *Recorder) BeginGroup(g Group) error {
	if r.open {
		return errors.New("recorder: group already open")
	}
	r.open = true
	r.Groups = append(r.Groups, RecordedGroup{Group: g})
	return nil
}

// EmitPath implements Sink
func (r *Recorder) EmitPath(cmds []Command, style Style) error {
	if !r.open {
		return errors.New("recorder: path outside group")
	}
	g := &r.Groups[len(r.Groups)-1]
	g.Paths = append(g.Paths, append([]Command(nil), cmds...))
	g.Styles = append(g.Styles, style)
	return nil
}

// EndGroup implements Sink
func (r *Recorder) EndGroup() error {
	if !r.open {
		return errors.New("recorder: no open group")
	}
	r.open = false
	return nil
}
