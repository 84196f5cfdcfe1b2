package model

// Map is a named rectangular region of the world grid. Tiles of all maps
// share one contiguous global index space; a map owns
// [TileStart, TileStart + SizeX*SizeZ).
type Map struct {
	Name      string
	SizeX     uint16
	SizeZ     uint16
	TileStart uint16
	Finalized bool
}

// TileCount returns how many tiles the map spans.
func (m *Map) TileCount() uint32 {
	return uint32(m.SizeX) * uint32(m.SizeZ)
}

// Contains reports whether the global tile index belongs to this map.
func (m *Map) Contains(idx uint16) bool {
	off := uint32(idx) - uint32(m.TileStart)
	return idx >= m.TileStart && off < m.TileCount()
}
