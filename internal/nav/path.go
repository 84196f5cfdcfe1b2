// Package nav validates caller-supplied travel paths and tracks every
// player's location, travel state, and per-tile presence chain.
package nav

import (
	"errors"

	"github.com/orvandal/gridworld/internal/grid"
	"github.com/orvandal/gridworld/internal/route"
)

// ErrInvalidPath is the single outcome of every path defect: too short or
// long, wrong starting tile, cross-map segment, non-adjacent segment, or
// cliff. The caller resubmits a corrected path; the distinction carries no
// contract weight.
var ErrInvalidPath = errors.New("invalid path")

// Validator walks a caller-supplied tile sequence, prices it through the
// cost cache, quantizes the total into turns, and packs the route word.
type Validator struct {
	store *grid.Store
	cache *grid.CostCache
}

// NewValidator returns a validator over the given grid.
func NewValidator(store *grid.Store, cache *grid.CostCache) *Validator {
	return &Validator{store: store, cache: cache}
}

// Validate checks a path for a traveler standing on current with the
// given per-turn movement budget, and returns the 1-based turn count plus
// the packed route. turnDuration is stamped into the route for later
// progress queries.
func (v *Validator) Validate(path []uint16, current uint16, budget uint32, turnDuration uint8) (uint8, route.Route, error) {
	if len(path) < 2 || len(path) > route.MaxPathTiles {
		return 0, route.Route{}, ErrInvalidPath
	}
	if path[0] != current {
		return 0, route.Route{}, ErrInvalidPath
	}

	// Turn quantization: a new turn is charged as soon as the running
	// total exceeds the budget of the turns taken so far, and the
	// straddling segment is charged entirely to the new turn.
	var (
		turns uint32
		total uint32
	)
	for i := 1; i < len(path); i++ {
		if !v.store.SameMap(path[i-1], path[i]) {
			return 0, route.Route{}, ErrInvalidPath
		}
		cost, err := v.cache.SegmentCost(v.store, path[i-1], path[i])
		if err != nil {
			return 0, route.Route{}, ErrInvalidPath
		}
		total += cost
		if total > (turns+1)*budget {
			turns++
			total = turns*budget + cost
		}
	}
	turns++ // 1-based
	if turns > 255 {
		return 0, route.Route{}, ErrInvalidPath
	}

	samples := make([]uint16, 0, route.SampleCount(len(path)))
	samples = append(samples, path[0])
	for i := route.SampleStride; i < len(path)-1; i += route.SampleStride {
		samples = append(samples, path[i])
	}

	r, err := route.Encode(turnDuration, uint8(turns), len(path), samples)
	if err != nil {
		return 0, route.Route{}, ErrInvalidPath
	}
	return uint8(turns), r, nil
}
