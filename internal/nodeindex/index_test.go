package nodeindex

import (
	"math"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T, s Store) {
	t.Helper()

	if err := s.Put(1, 8.8017, 51.9348); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(1000, -0.1278, 51.5074); err != nil {
		t.Fatalf("Put: %v", err)
	}

	lon, lat, ok := s.Get(1)
	if !ok {
		t.Fatal("node 1 should exist")
	}
	if math.Abs(lon-8.8017) > 1e-7 || math.Abs(lat-51.9348) > 1e-7 {
		t.Errorf("Get(1) = (%f, %f), want (8.8017, 51.9348)", lon, lat)
	}

	lon, _, ok = s.Get(1000)
	if !ok || math.Abs(lon+0.1278) > 1e-7 {
		t.Errorf("Get(1000) lon = %f ok=%v, want -0.1278", lon, ok)
	}

	if _, _, ok := s.Get(2); ok {
		t.Error("node 2 should not exist")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestMemoryIndex(t *testing.T) {
	idx := NewMemoryIndex()
	defer idx.Close()
	testStore(t, idx)

	if err := idx.Put(0, 1, 1); err == nil {
		t.Error("expected error for node id 0")
	}
}

func TestMmapIndex(t *testing.T) {
	idx, err := NewMmapIndex(filepath.Join(t.TempDir(), "flat.nodes"), 4096)
	if err != nil {
		t.Fatalf("NewMmapIndex: %v", err)
	}
	defer idx.Close()
	testStore(t, idx)

	if err := idx.Put(4097, 1, 1); err == nil {
		t.Error("expected error for id above range")
	}
	if err := idx.Put(-5, 1, 1); err == nil {
		t.Error("expected error for negative id")
	}
	if _, _, ok := idx.Get(99999); ok {
		t.Error("out of range id should not be found")
	}
}
