package parquet

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestReadRings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rings.parquet")
	w, err := NewRingWriter(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []RingRow{
		{RelationID: 51477, Ring: 0, WayRefs: []int64{1, -2}, NumPoints: 7, GeomWKB: []byte{1, 3, 0, 0, 32}},
		{RelationID: 51477, Ring: 1, WayRefs: []int64{3}, NumPoints: 4, GeomWKB: []byte{1, 2, 0, 0, 32}},
		{RelationID: 16239, Ring: 0, WayRefs: []int64{-4, 5, 6}, NumPoints: 11, GeomWKB: []byte{1, 3, 0, 0, 32}},
	}
	for _, r := range want {
		if err := w.Write(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := ReadRings(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadRings: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.RelationID != w.RelationID || g.Ring != w.Ring || g.NumPoints != w.NumPoints {
			t.Errorf("row %d = %+v, want %+v", i, g, w)
		}
		if !slices.Equal(g.WayRefs, w.WayRefs) {
			t.Errorf("row %d way_refs = %v, want %v", i, g.WayRefs, w.WayRefs)
		}
		if !slices.Equal(g.GeomWKB, w.GeomWKB) {
			t.Errorf("row %d geom = %v, want %v", i, g.GeomWKB, w.GeomWKB)
		}
	}
}

func TestReadRingsErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadRings(context.Background(), filepath.Join(dir, "missing.parquet")); err == nil {
		t.Error("expected error for missing file")
	}

	junk := filepath.Join(dir, "junk.parquet")
	if err := os.WriteFile(junk, []byte("not parquet"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadRings(context.Background(), junk); err == nil {
		t.Error("expected error for non-parquet file")
	}
}
