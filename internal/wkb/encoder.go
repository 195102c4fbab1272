package wkb

import (
	"encoding/binary"
	"math"
)

// WKB type constants (ISO SQL/MM specification)
const (
	wkbLineString = 2
	wkbPolygon    = 3

	// SRID flag for EWKB (PostGIS extended WKB)
	wkbSRIDFlag = 0x20000000
)

// SRID4326 is WGS84 lon/lat
const SRID4326 = 4326

// Encoder encodes rings to little-endian EWKB.
// The returned slices alias an internal buffer that is reused by the next call.
type Encoder struct {
	buf  []byte
	srid uint32
}

// NewEncoder creates an encoder with a pre-allocated buffer and SRID 4326
func NewEncoder(initialSize int) *Encoder {
	return &Encoder{
		buf:  make([]byte, 0, initialSize),
		srid: SRID4326,
	}
}

// SRID returns the encoder's SRID
func (e *Encoder) SRID() int {
	return int(e.srid)
}

// Reset clears the buffer for reuse
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Bytes returns the last encoded geometry
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// EncodeRing encodes a closed ring as a one-ring polygon.
// coords is a flat array of [lon1, lat1, lon2, lat2, ...]. A polygon ring needs
// four positions, so shorter input (a ring with unlocated nodes) becomes a linestring.
func (e *Encoder) EncodeRing(coords []float64) []byte {
	if len(coords)/2 < 4 {
		return e.EncodeLineString(coords)
	}
	return e.EncodePolygon(coords)
}

// EncodeLineString encodes a linestring as EWKB with SRID
func (e *Encoder) EncodeLineString(coords []float64) []byte {
	numPoints := len(coords) / 2
	e.header(wkbLineString, 13+numPoints*16)
	e.appendPoints(coords)
	return e.buf
}

// EncodePolygon encodes a polygon with a single outer ring as EWKB with SRID
func (e *Encoder) EncodePolygon(coords []float64) []byte {
	numPoints := len(coords) / 2
	e.header(wkbPolygon, 17+numPoints*16)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, 1)
	e.appendPoints(coords)
	return e.buf
}

// header writes byte order, type with SRID flag and the SRID
func (e *Encoder) header(geomType uint32, size int) {
	if cap(e.buf) < size {
		e.buf = make([]byte, 0, size)
	}
	e.buf = e.buf[:0]
	e.buf = append(e.buf, 0x01)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, geomType|wkbSRIDFlag)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, e.srid)
}

// appendPoints writes the point count followed by X=lon, Y=lat pairs
func (e *Encoder) appendPoints(coords []float64) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(coords)/2))
	for i := 0; i+1 < len(coords); i += 2 {
		e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(coords[i]))
		e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(coords[i+1]))
	}
}
