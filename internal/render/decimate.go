package render

// Decimator drops points closer than a threshold to the last emitted point.
// The last point offered before End is always emitted so that rings close visually.
type Decimator struct {
	threshold2 float64

	last       Point
	hasLast    bool
	pending    Point
	hasPending bool

	cmds []Command
}

// NewDecimator creates a decimator; threshold is a plane distance in pixels
func NewDecimator(threshold float64) *Decimator {
	return &Decimator{threshold2: threshold * threshold}
}

// Begin starts a new ring; its first point becomes a move command
func (d *Decimator) Begin() {
	d.hasLast = false
	d.hasPending = false
}

// Offer feeds the next point of the current ring
func (d *Decimator) Offer(p Point) {
	if !d.hasLast {
		d.emit(MoveTo, p)
		return
	}

	dx, dy := p.X-d.last.X, p.Y-d.last.Y
	if dx*dx+dy*dy >= d.threshold2 {
		d.emit(LineTo, p)
		return
	}

	d.pending = p
	d.hasPending = true
}

// End finishes the current ring, forcing out a pending point
func (d *Decimator) End() {
	if d.hasPending {
		d.emit(LineTo, d.pending)
	}
	d.hasLast = false
}

// Commands returns everything emitted since the last Reset
func (d *Decimator) Commands() []Command {
	return d.cmds
}

// Reset clears the emitted commands so the decimator can serve the next path
func (d *Decimator) Reset() {
	d.cmds = d.cmds[:0]
	d.hasLast = false
	d.hasPending = false
}

func (d *Decimator) emit(op Op, p Point) {
	d.cmds = append(d.cmds, Command{Op: op, Point: p})
	d.last = p
	d.hasLast = true
	d.hasPending = false
}
