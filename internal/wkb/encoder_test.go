package wkb

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestEncodePolygon(t *testing.T) {
	e := NewEncoder(16)
	ring := []float64{8, 52, 9, 52, 8.5, 53, 8, 52}
	got := e.EncodeRing(ring)

	if len(got) != 17+4*16 {
		t.Fatalf("len = %d, want %d", len(got), 17+4*16)
	}
	if got[0] != 0x01 {
		t.Errorf("byte order = %x, want little endian", got[0])
	}
	if typ := binary.LittleEndian.Uint32(got[1:5]); typ != wkbPolygon|wkbSRIDFlag {
		t.Errorf("type = %#x", typ)
	}
	if srid := binary.LittleEndian.Uint32(got[5:9]); srid != SRID4326 {
		t.Errorf("srid = %d", srid)
	}
	if rings := binary.LittleEndian.Uint32(got[9:13]); rings != 1 {
		t.Errorf("rings = %d, want 1", rings)
	}
	if points := binary.LittleEndian.Uint32(got[13:17]); points != 4 {
		t.Errorf("points = %d, want 4", points)
	}
	lat := math.Float64frombits(binary.LittleEndian.Uint64(got[17+5*8 : 17+6*8]))
	if lat != 53 {
		t.Errorf("third point lat = %v, want 53", lat)
	}
}

func TestEncodeRingShortFallsBackToLineString(t *testing.T) {
	e := NewEncoder(0)
	got := e.EncodeRing([]float64{8, 52, 9, 52})
	if typ := binary.LittleEndian.Uint32(got[1:5]); typ != wkbLineString|wkbSRIDFlag {
		t.Errorf("type = %#x, want linestring", typ)
	}
	if points := binary.LittleEndian.Uint32(got[9:13]); points != 2 {
		t.Errorf("points = %d, want 2", points)
	}
	if len(got) != 13+2*16 {
		t.Errorf("len = %d", len(got))
	}
}

func TestEncoderReuse(t *testing.T) {
	e := NewEncoder(128)
	e.EncodePolygon([]float64{0, 0, 1, 0, 1, 1, 0, 0})
	second := e.EncodeLineString([]float64{5, 5, 6, 6})
	if len(second) != 13+2*16 {
		t.Errorf("buffer not reset: len = %d", len(second))
	}
	if &e.Bytes()[0] != &second[0] {
		t.Error("Bytes should return the last encoding")
	}
	e.Reset()
	if len(e.Bytes()) != 0 || e.SRID() != SRID4326 {
		t.Errorf("after Reset: len %d srid %d", len(e.Bytes()), e.SRID())
	}
}
