package middle

import (
	"encoding/json"
	"fmt"

	"github.com/wegman-software/osm2svg-go/internal/membership"
)

// RawNode represents an OSM node as stored in middle tables
// Coordinates are stored as scaled integers (lat/lon × 10^7) for compact storage
type RawNode struct {
	ID  int64
	Lat int32 // scaled: lat * 10^7
	Lon int32 // scaled: lon * 10^7
}

// RawWay represents an OSM way as stored in middle tables
type RawWay struct {
	ID    int64
	Nodes []int64 // ordered node ID array
}

// RelationMember represents a member of an OSM relation
type RelationMember struct {
	Type string // "n" = node, "w" = way, "r" = relation
	Ref  int64
	Role string
}

// RawRelation represents an OSM relation as stored in middle tables
type RawRelation struct {
	ID      int64
	Members []RelationMember
	Tags    map[string]string
}

// ScaleCoord converts a float64 lat/lon to scaled integer (× 10^7)
func ScaleCoord(coord float64) int32 {
	return int32(coord * 1e7)
}

// UnscaleCoord converts a scaled integer back to float64
func UnscaleCoord(scaled int32) float64 {
	return float64(scaled) / 1e7
}

// memberType maps the single letter member types to OSM type names
func memberType(t string) (string, error) {
	switch t {
	case "n", "N", membership.MemberNode:
		return membership.MemberNode, nil
	case "w", "W", membership.MemberWay:
		return membership.MemberWay, nil
	case "r", "R", membership.MemberRelation:
		return membership.MemberRelation, nil
	default:
		return "", fmt.Errorf("unknown member type %q", t)
	}
}

// decodeRelation parses the JSONB members and tags of a planet_osm_rels row
func decodeRelation(id int64, membersJSON, tagsJSON []byte) (*RawRelation, error) {
	rel := &RawRelation{ID: id}
	if err := json.Unmarshal(membersJSON, &rel.Members); err != nil {
		return nil, fmt.Errorf("relation %d: bad members: %w", id, err)
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &rel.Tags); err != nil {
			return nil, fmt.Errorf("relation %d: bad tags: %w", id, err)
		}
	}
	return rel, nil
}

// ToMembers converts the stored member list
func (r *RawRelation) ToMembers() ([]membership.Member, error) {
	members := make([]membership.Member, len(r.Members))
	for i, m := range r.Members {
		t, err := memberType(m.Type)
		if err != nil {
			return nil, fmt.Errorf("relation %d member %d: %w", r.ID, i, err)
		}
		members[i] = membership.Member{Type: t, Ref: m.Ref, Role: m.Role}
	}
	return members, nil
}

// chunk splits ids into batches of at most size
func chunk(ids []int64, size int) [][]int64 {
	if size < 1 {
		size = len(ids)
	}
	var out [][]int64
	for len(ids) > 0 {
		n := min(size, len(ids))
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}
