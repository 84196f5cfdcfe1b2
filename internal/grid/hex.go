package grid

// The grid is an offset hex layout ("odd-r"): rows are shifted by half a
// tile on odd z. Within a map, row z = (idx - tileStart) / sizeX and
// column x = (idx - tileStart) % sizeX. Each tile has six candidate
// neighbors; which diagonals apply depends on row parity.
//
// Row/column are always derived from the map-relative offset, never the
// raw global index, so adjacency is well defined on every map regardless
// of its starting index.

// evenRowDeltas / oddRowDeltas list the six (dx, dz) neighbor offsets.
var (
	evenRowDeltas = [6][2]int{{-1, 0}, {1, 0}, {-1, -1}, {0, -1}, {-1, 1}, {0, 1}}
	oddRowDeltas  = [6][2]int{{-1, 0}, {1, 0}, {0, -1}, {1, -1}, {0, 1}, {1, 1}}
)

// Adjacent reports whether two tiles are hex-grid neighbors. Tiles of
// different maps are never adjacent, and a tile is never adjacent to
// itself.
func (s *Store) Adjacent(a, b uint16) bool {
	if a == b {
		return false
	}
	m, ok := s.MapOf(a)
	if !ok || !m.Contains(b) {
		return false
	}

	ax := int(a-m.TileStart) % int(m.SizeX)
	az := int(a-m.TileStart) / int(m.SizeX)
	bx := int(b-m.TileStart) % int(m.SizeX)
	bz := int(b-m.TileStart) / int(m.SizeX)

	deltas := &evenRowDeltas
	if az%2 == 1 {
		deltas = &oddRowDeltas
	}
	for _, d := range deltas {
		if bx-ax == d[0] && bz-az == d[1] {
			return true
		}
	}
	return false
}

// Neighbors appends the valid neighbor indices of idx to buf and returns
// the filled slice. At most six.
func (s *Store) Neighbors(idx uint16, buf []uint16) []uint16 {
	m, ok := s.MapOf(idx)
	if !ok {
		return buf
	}
	x := int(idx-m.TileStart) % int(m.SizeX)
	z := int(idx-m.TileStart) / int(m.SizeX)

	deltas := &evenRowDeltas
	if z%2 == 1 {
		deltas = &oddRowDeltas
	}
	for _, d := range deltas {
		nx, nz := x+d[0], z+d[1]
		if nx < 0 || nx >= int(m.SizeX) || nz < 0 || nz >= int(m.SizeZ) {
			continue
		}
		buf = append(buf, m.TileStart+uint16(nz*int(m.SizeX)+nx))
	}
	return buf
}
