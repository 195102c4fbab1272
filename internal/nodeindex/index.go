package nodeindex

import "fmt"

// Store maps node IDs to their coordinates.
// Implementations are written once during ingestion and read-only afterwards.
type Store interface {
	Put(nodeID int64, lon, lat float64) error
	Get(nodeID int64) (lon, lat float64, ok bool)
	Len() int
	Close() error
}

type location struct {
	lon, lat float64
}

// MemoryIndex keeps node coordinates in a Go map
type MemoryIndex struct {
	nodes map[int64]location
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{nodes: make(map[int64]location)}
}

// Put stores a node's coordinates
func (m *MemoryIndex) Put(nodeID int64, lon, lat float64) error {
	if nodeID == 0 {
		return fmt.Errorf("node id 0 is not a valid id")
	}
	m.nodes[nodeID] = location{lon: lon, lat: lat}
	return nil
}

// Get retrieves a node's coordinates
func (m *MemoryIndex) Get(nodeID int64) (lon, lat float64, ok bool) {
	loc, ok := m.nodes[nodeID]
	return loc.lon, loc.lat, ok
}

// Len returns the number of stored nodes
func (m *MemoryIndex) Len() int {
	return len(m.nodes)
}

// Close is a no-op for the in-memory index
func (m *MemoryIndex) Close() error {
	return nil
}
