package grid

// CostCache memoizes segment costs keyed by the unordered tile pair. The
// world is static after finalization, so entries are never invalidated.
//
// The key intentionally ignores direction: the first direction computed
// wins, and the reverse direction reuses its cost even though the real
// cost function is not symmetric (destination-side terrain penalties,
// directional embark checks). Downstream systems depend on these numeric
// outcomes; do not "fix" this by keying on direction.
type CostCache struct {
	entries map[uint32]uint32
}

// NewCostCache returns an empty cache.
func NewCostCache() *CostCache {
	return &CostCache{entries: make(map[uint32]uint32)}
}

// pairKey packs the unordered tile pair, smaller index first.
func pairKey(a, b uint16) uint32 {
	if a > b {
		a, b = b, a
	}
	return uint32(a)<<16 | uint32(b)
}

// SegmentCost returns the memoized cost of from → to, computing and
// storing it on first traversal. Costs are never zero, so zero doubles as
// the absence marker.
func (c *CostCache) SegmentCost(s *Store, from, to uint16) (uint32, error) {
	key := pairKey(from, to)
	if v := c.entries[key]; v != 0 {
		return v, nil
	}
	v, err := s.SegmentCost(from, to)
	if err != nil {
		return 0, err
	}
	c.entries[key] = v
	return v, nil
}

// Len returns how many segment costs are cached.
func (c *CostCache) Len() int {
	return len(c.entries)
}
