package membership

import (
	"errors"
	"testing"
)

func buildTriangle(t *testing.T) *Index {
	t.Helper()
	b := NewBuilder(nil, nil)
	for i, loc := range [][2]float64{{8.0, 52.0}, {9.0, 52.0}, {8.5, 53.0}} {
		if err := b.Node(int64(i+1), loc[0], loc[1]); err != nil {
			t.Fatal(err)
		}
	}
	ways := map[int64][]int64{10: {1, 2}, 11: {2, 3}, 12: {3, 1}}
	for _, id := range []int64{10, 11, 12} {
		if err := b.Way(id, ways[id]); err != nil {
			t.Fatal(err)
		}
	}
	members := []Member{
		{Type: MemberWay, Ref: 10, Role: "outer"},
		{Type: MemberNode, Ref: 1, Role: "admin_centre"},
		{Type: MemberWay, Ref: 11, Role: "outer"},
		{Type: MemberWay, Ref: 12, Role: "outer"},
	}
	if err := b.Relation(100, members, map[string]string{"name": "Dreieck"}); err != nil {
		t.Fatal(err)
	}
	idx, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func TestBuildEndpointIndex(t *testing.T) {
	idx := buildTriangle(t)

	tests := []struct {
		node int64
		want []WayRef
	}{
		{node: 1, want: []WayRef{Forward(10), Backward(12)}},
		{node: 2, want: []WayRef{Backward(10), Forward(11)}},
		{node: 3, want: []WayRef{Backward(11), Forward(12)}},
		{node: 4, want: []WayRef{}},
	}

	for _, tt := range tests {
		got := idx.EndpointRefs(tt.node)
		if len(got) != len(tt.want) {
			t.Errorf("EndpointRefs(%d) = %v, want %v", tt.node, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("EndpointRefs(%d) = %v, want %v", tt.node, got, tt.want)
				break
			}
		}
	}

	// Every entry satisfies the front/back invariant
	for _, node := range []int64{1, 2, 3} {
		for _, ref := range idx.EndpointRefs(node) {
			w, ok := idx.Way(ref.WayID())
			if !ok {
				t.Fatalf("way %d missing", ref.WayID())
			}
			if !ref.Reversed() && w.Front() != node {
				t.Errorf("%v indexed at %d but front is %d", ref, node, w.Front())
			}
			if ref.Reversed() && w.Back() != node {
				t.Errorf("%v indexed at %d but back is %d", ref, node, w.Back())
			}
		}
	}

	rel, ok := idx.Relation(100)
	if !ok {
		t.Fatal("relation 100 should be indexed")
	}
	if len(rel.Ways) != 3 {
		t.Errorf("relation ways = %v, want 3 way members", rel.Ways)
	}
	if rel.Name() != "Dreieck" {
		t.Errorf("Name() = %q", rel.Name())
	}

	stats := idx.Stats()
	if stats.Nodes != 3 || stats.Ways != 3 || stats.Relations != 1 || stats.NonWayMembers != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestBuildEnds(t *testing.T) {
	idx := buildTriangle(t)
	pos, ok := idx.Pos(11)
	if !ok {
		t.Fatal("way 11 not in arena")
	}

	entry, exit := idx.Ends(NewArenaRef(pos, false))
	if entry != 2 || exit != 3 {
		t.Errorf("forward ends = (%d, %d), want (2, 3)", entry, exit)
	}
	entry, exit = idx.Ends(NewArenaRef(pos, true))
	if entry != 3 || exit != 2 {
		t.Errorf("reversed ends = (%d, %d), want (3, 2)", entry, exit)
	}
	if idx.Ref(NewArenaRef(pos, true)) != Backward(11) {
		t.Errorf("Ref = %v, want -11", idx.Ref(NewArenaRef(pos, true)))
	}
}

func TestBuilderDuplicateIDs(t *testing.T) {
	b := NewBuilder(nil, nil)
	if err := b.Node(1, 0, 0); err != nil {
		t.Fatal(err)
	}
	var dup *DuplicateIDError

	err := b.Node(1, 1, 1)
	if !errors.As(err, &dup) || dup.Kind != "node" || dup.ID != 1 {
		t.Errorf("duplicate node: got %v", err)
	}

	if err := b.Way(5, []int64{1, 2}); err != nil {
		t.Fatal(err)
	}
	err = b.Way(5, []int64{2, 3})
	if !errors.As(err, &dup) || dup.Kind != "way" {
		t.Errorf("duplicate way: got %v", err)
	}

	if err := b.Relation(7, nil, nil); err != nil {
		t.Fatal(err)
	}
	err = b.Relation(7, nil, nil)
	if !errors.As(err, &dup) || dup.Kind != "relation" {
		t.Errorf("duplicate relation: got %v", err)
	}
}

func TestBuilderDuplicateDiscardedRelation(t *testing.T) {
	b := NewBuilder(func(id int64) bool { return id == 1 }, nil)
	if err := b.Relation(2, nil, nil); err != nil {
		t.Fatal(err)
	}
	var dup *DuplicateIDError
	if err := b.Relation(2, nil, nil); !errors.As(err, &dup) {
		t.Errorf("duplicate discarded relation: got %v, want DuplicateIDError", err)
	}
}

func TestBuilderMalformedWays(t *testing.T) {
	tests := []struct {
		name  string
		id    int64
		nodes []int64
	}{
		{name: "single node", id: 1, nodes: []int64{4}},
		{name: "no nodes", id: 2, nodes: nil},
		{name: "zero length", id: 3, nodes: []int64{4, 4}},
		{name: "zero length long", id: 4, nodes: []int64{4, 4, 4}},
		{name: "negative id", id: -5, nodes: []int64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(nil, nil)
			err := b.Way(tt.id, tt.nodes)
			var malformed *MalformedWayError
			if !errors.As(err, &malformed) {
				t.Fatalf("Way(%d, %v) = %v, want MalformedWayError", tt.id, tt.nodes, err)
			}
			if malformed.WayID != tt.id {
				t.Errorf("WayID = %d, want %d", malformed.WayID, tt.id)
			}
		})
	}

	// A closed way with interior nodes is a valid single-way ring
	b := NewBuilder(nil, nil)
	if err := b.Way(9, []int64{1, 2, 3, 1}); err != nil {
		t.Errorf("closed way rejected: %v", err)
	}
	idx, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	refs := idx.EndpointRefs(1)
	if len(refs) != 2 || refs[0] != Forward(9) || refs[1] != Backward(9) {
		t.Errorf("closed way endpoints = %v, want [+9 -9]", refs)
	}
}

func TestBuilderRelevance(t *testing.T) {
	b := NewBuilder(func(id int64) bool { return id == 62781 }, nil)
	for _, id := range []int64{1, 62781, 2, 3} {
		if err := b.Relation(id, []Member{{Type: MemberWay, Ref: 1}}, nil); err != nil {
			t.Fatal(err)
		}
	}
	idx, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	if len(idx.Relations()) != 1 || idx.Relations()[0].ID != 62781 {
		t.Errorf("relations = %+v, want only 62781", idx.Relations())
	}
	if idx.Stats().DiscardedRelations != 3 {
		t.Errorf("discarded = %d, want 3", idx.Stats().DiscardedRelations)
	}
	if _, ok := idx.Relation(1); ok {
		t.Error("discarded relation should not be indexed")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := NewBuilder(nil, nil)
	if _, err := b.Build(); err != nil {
		t.Fatal(err)
	}
	if err := b.Node(1, 0, 0); err == nil {
		t.Error("expected error after Build")
	}
	if _, err := b.Build(); err == nil {
		t.Error("expected error on second Build")
	}
}

func TestWayRef(t *testing.T) {
	r := Backward(42)
	if r.WayID() != 42 || !r.Reversed() {
		t.Errorf("Backward(42) = %v", r)
	}
	if r.Flip() != Forward(42) {
		t.Errorf("Flip = %v, want +42", r.Flip())
	}
	if r.String() != "-42" || Forward(7).String() != "+7" {
		t.Errorf("String() = %q / %q", r.String(), Forward(7).String())
	}
}
