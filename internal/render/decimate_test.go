package render

import "testing"

func feed(d *Decimator, pts ...Point) {
	d.Begin()
	for _, p := range pts {
		d.Offer(p)
	}
	d.End()
}

func TestDecimatorDropsClosePoints(t *testing.T) {
	d := NewDecimator(1.0)
	feed(d,
		Point{0, 0},
		Point{0.2, 0},
		Point{0.4, 0},
		Point{0.6, 0},
		Point{0.8, 0},
	)

	got := d.Commands()
	want := []Command{
		{Op: MoveTo, Point: Point{0, 0}},
		{Op: LineTo, Point: Point{0.8, 0}},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cmd %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecimatorThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		points    []Point
		want      int
	}{
		{name: "zero keeps everything", threshold: 0, points: []Point{{0, 0}, {0, 0}, {0.1, 0}}, want: 3},
		{name: "exact distance kept", threshold: 1, points: []Point{{0, 0}, {1, 0}, {2, 0}}, want: 3},
		{name: "diagonal below threshold", threshold: 1, points: []Point{{0, 0}, {0.5, 0.5}, {1, 1}}, want: 2},
		{name: "single point", threshold: 1, points: []Point{{3, 3}}, want: 1},
		{name: "far apart", threshold: 5, points: []Point{{0, 0}, {10, 0}, {10, 10}, {0, 0}}, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecimator(tt.threshold)
			feed(d, tt.points...)
			if got := len(d.Commands()); got != tt.want {
				t.Errorf("emitted %d commands, want %d: %v", got, tt.want, d.Commands())
			}
		})
	}
}

func TestDecimatorForcesLastPoint(t *testing.T) {
	d := NewDecimator(10)
	feed(d, Point{0, 0}, Point{20, 0}, Point{21, 0}, Point{22, 0})

	cmds := d.Commands()
	last := cmds[len(cmds)-1]
	if last.Point != (Point{22, 0}) || last.Op != LineTo {
		t.Errorf("last command = %v, want LineTo (22,0)", last)
	}
	if len(cmds) != 3 {
		t.Errorf("emitted %v, want 3 commands", cmds)
	}
}

func TestDecimatorIdempotent(t *testing.T) {
	pts := []Point{{0, 0}, {0.3, 0.1}, {2, 0}, {2.5, 0.2}, {4, 4}, {4.2, 4.1}, {0, 0}}
	d := NewDecimator(1.5)
	feed(d, pts...)

	first := make([]Point, 0, len(d.Commands()))
	for _, c := range d.Commands() {
		first = append(first, c.Point)
	}

	d.Reset()
	feed(d, first...)
	second := d.Commands()
	if len(second) != len(first) {
		t.Fatalf("second pass emitted %d points, first %d", len(second), len(first))
	}
	for i := range first {
		if second[i].Point != first[i] {
			t.Errorf("point %d changed: %v -> %v", i, first[i], second[i].Point)
		}
	}
}

func TestDecimatorRingsAreIndependent(t *testing.T) {
	d := NewDecimator(5)
	feed(d, Point{0, 0}, Point{10, 0}, Point{0, 0})
	// Second ring starts near the first ring's end but still gets its own move
	feed(d, Point{1, 1}, Point{11, 1}, Point{1, 1})

	cmds := d.Commands()
	if len(cmds) != 6 {
		t.Fatalf("got %d commands, want 6: %v", len(cmds), cmds)
	}
	if cmds[0].Op != MoveTo || cmds[3].Op != MoveTo {
		t.Errorf("each ring should start with a move: %v", cmds)
	}

	d.Reset()
	if len(d.Commands()) != 0 {
		t.Errorf("Reset left %v", d.Commands())
	}
}
