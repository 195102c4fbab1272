package proj

import (
	"fmt"
	"math"
)

// Window maps geographic coordinates inside a bounding window to plane pixels.
// The longitude scale is the latitude scale corrected by the cosine of a reference
// latitude, so that a pixel covers a roughly square ground area around it.
type Window struct {
	Bounds BBox
	ScaleX float64 // pixels per degree of longitude
	ScaleY float64 // pixels per degree of latitude
}

// NewWindow creates a projection window. refLat of 0 selects the window's central latitude.
func NewWindow(bounds BBox, pxPerLatDeg, refLat float64) (*Window, error) {
	if bounds.IsEmpty() || bounds.MinLon == bounds.MaxLon || bounds.MinLat == bounds.MaxLat {
		return nil, fmt.Errorf("projection window %+v has no area", bounds)
	}
	if pxPerLatDeg <= 0 {
		return nil, fmt.Errorf("pixels per latitude degree must be positive, got %f", pxPerLatDeg)
	}
	if refLat == 0 {
		refLat = (bounds.MinLat + bounds.MaxLat) / 2
	}

	return &Window{
		Bounds: bounds,
		ScaleX: pxPerLatDeg * math.Cos(refLat*math.Pi/180.0),
		ScaleY: pxPerLatDeg,
	}, nil
}

// Project converts lon/lat to plane coordinates; y grows downward
func (w *Window) Project(lon, lat float64) (x, y float64) {
	x = (lon - w.Bounds.MinLon) * w.ScaleX
	y = (w.Bounds.MaxLat - lat) * w.ScaleY
	return x, y
}

// Extent converts the degree spans of a bounding box to pixel spans
func (w *Window) Extent(b BBox) (width, height float64) {
	if b.IsEmpty() {
		return 0, 0
	}
	return (b.MaxLon - b.MinLon) * w.ScaleX, (b.MaxLat - b.MinLat) * w.ScaleY
}

// Size returns the pixel dimensions of the whole window
func (w *Window) Size() (width, height float64) {
	return w.Extent(w.Bounds)
}
