package nodeindex

import (
	"encoding/binary"
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

const (
	// Each node entry: lon (int32) + lat (int32) = 8 bytes
	// Using fixed-point: value * 1e7 to store as int32
	entrySize = 8
	// DefaultMaxNodeID covers the current planet with headroom
	DefaultMaxNodeID = 16_000_000_000
)

// MmapIndex is a flat-nodes file mapped into memory.
// Node coordinates are stored at offset = nodeID * 8, so lookups are O(1)
// and disk usage stays proportional to the nodes actually written (sparse file).
type MmapIndex struct {
	file  *os.File
	data  mmap.MMap
	maxID int64
	count int
}

// NewMmapIndex creates (or truncates) a flat-nodes file able to hold ids in [1, maxID]
func NewMmapIndex(path string, maxID int64) (*MmapIndex, error) {
	if maxID <= 0 {
		maxID = DefaultMaxNodeID
	}
	size := (maxID + 1) * entrySize

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create flat nodes file: %w", err)
	}

	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to size flat nodes file: %w", err)
	}

	data, err := mmap.MapRegion(f, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap flat nodes file: %w", err)
	}

	return &MmapIndex{file: f, data: data, maxID: maxID}, nil
}

// Put stores a node's coordinates
func (m *MmapIndex) Put(nodeID int64, lon, lat float64) error {
	if nodeID <= 0 || nodeID > m.maxID {
		return fmt.Errorf("node id %d outside flat nodes range [1, %d]", nodeID, m.maxID)
	}

	offset := nodeID * entrySize
	binary.LittleEndian.PutUint32(m.data[offset:], uint32(int32(lon*1e7)))
	binary.LittleEndian.PutUint32(m.data[offset+4:], uint32(int32(lat*1e7)))
	m.count++
	return nil
}

// Get retrieves a node's coordinates.
// A node stored exactly at (0, 0) reads back as missing; we accept that edge case.
func (m *MmapIndex) Get(nodeID int64) (lon, lat float64, ok bool) {
	if nodeID <= 0 || nodeID > m.maxID {
		return 0, 0, false
	}

	offset := nodeID * entrySize
	lonInt := int32(binary.LittleEndian.Uint32(m.data[offset:]))
	latInt := int32(binary.LittleEndian.Uint32(m.data[offset+4:]))
	if lonInt == 0 && latInt == 0 {
		return 0, 0, false
	}

	return float64(lonInt) / 1e7, float64(latInt) / 1e7, true
}

// Len returns the number of Put calls
func (m *MmapIndex) Len() int {
	return m.count
}

// Close unmaps and closes the file. The file itself is left on disk.
func (m *MmapIndex) Close() error {
	if m.data == nil {
		return nil
	}
	if err := m.data.Unmap(); err != nil {
		m.file.Close()
		return err
	}
	m.data = nil
	return m.file.Close()
}
