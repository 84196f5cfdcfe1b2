package grid

import (
	"errors"
	"fmt"
)

// EdgeClass classifies the elevation step between two tiles.
type EdgeClass uint8

const (
	EdgeFlat EdgeClass = iota
	EdgeSlope
	EdgeCliff
)

// Movement cost bases. Land costs also charge the destination tile's
// vegetation and rock levels on top of the base.
const (
	CostFlat   = 11
	CostSlope  = 19
	CostWater  = 5
	CostEmbark = 27 // embark and disembark share one base
)

var (
	ErrNotAdjacent = errors.New("tiles not adjacent")
	ErrCliff       = errors.New("cliff edge is impassable")
)

// classifyEdge compares two heights: equal is Flat, a difference of
// exactly one is Slope, anything steeper is Cliff.
func classifyEdge(a, b uint8) EdgeClass {
	switch {
	case a == b:
		return EdgeFlat
	case a == b+1 || b == a+1:
		return EdgeSlope
	default:
		return EdgeCliff
	}
}

// SegmentCost computes the cost of moving one segment from → to. The
// segment must be grid-adjacent. Cliff edges are impassable on land, and
// embark/disembark segments are rejected when the governing
// elevation/water-level pairing classifies as Cliff.
//
// The cost is direction-dependent: land destinations charge their own
// vegetation and rock, and embark vs. disembark compare different levels.
func (s *Store) SegmentCost(from, to uint16) (uint32, error) {
	if !s.Adjacent(from, to) {
		return 0, fmt.Errorf("%w: %d -> %d", ErrNotAdjacent, from, to)
	}
	f, err := s.Static(from)
	if err != nil {
		return 0, err
	}
	t, err := s.Static(to)
	if err != nil {
		return 0, err
	}

	switch {
	case !f.Underwater() && !t.Underwater():
		class := classifyEdge(f.Elevation, t.Elevation)
		if class == EdgeCliff {
			return 0, fmt.Errorf("%w: %d -> %d", ErrCliff, from, to)
		}
		base := uint32(CostFlat)
		if class == EdgeSlope {
			base = CostSlope
		}
		return base + uint32(t.Vegetation) + uint32(t.Rock), nil

	case f.Underwater() && t.Underwater():
		return CostWater, nil

	case f.Underwater():
		// Disembark: the water surface must meet the shore.
		if classifyEdge(f.WaterLevel, t.Elevation) == EdgeCliff {
			return 0, fmt.Errorf("%w: disembark %d -> %d", ErrCliff, from, to)
		}
		return CostEmbark, nil

	default:
		// Embark: the shore must meet the water surface.
		if classifyEdge(f.Elevation, t.WaterLevel) == EdgeCliff {
			return 0, fmt.Errorf("%w: embark %d -> %d", ErrCliff, from, to)
		}
		return CostEmbark, nil
	}
}
