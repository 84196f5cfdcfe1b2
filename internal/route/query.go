package route

import (
	"errors"
	"fmt"
)

// Position selects how a tile's location is matched against the
// traveler's progress along a route.
type Position uint8

const (
	// Any matches regardless of elapsed travel time.
	Any Position = iota
	// Current matches when the traveler is near the sampled tile now.
	Current
	// Upcoming matches when the traveler has not reached the sampled tile.
	Upcoming
	// Passed matches when the traveler is already beyond the sampled tile.
	Passed
)

var (
	ErrBadPosition    = errors.New("unknown route position")
	ErrBadSampleIndex = errors.New("sample index out of range")
)

// basisPoints is the progress denominator: positions along a route and
// elapsed-time progress are both expressed in 1/10000ths.
const basisPoints = 10000

// AlongRoute reports whether tile lies along the journey described by r,
// near the sampleIndex-th sampled tile, relative to the traveler's
// progress at time now.
//
// sampleIndex addresses the stored samples; passing the sampled count
// itself addresses the journey's destination (which is never stored in the
// word). adjacent supplies the grid's neighbor relation.
func AlongRoute(tile uint16, r Route, sampleIndex uint8, destination uint16, arrival, now int64, pos Position, adjacent func(a, b uint16) bool) (bool, error) {
	count := r.SampledCount()
	if count == 0 {
		return false, ErrNoSamples
	}
	if sampleIndex > count {
		return false, fmt.Errorf("%w: %d of %d", ErrBadSampleIndex, sampleIndex, count)
	}

	closest := destination
	if sampleIndex < count {
		closest = r.Sample(int(sampleIndex))
	}
	if tile != closest && !adjacent(tile, closest) {
		return false, nil
	}
	if pos == Any {
		return true, nil
	}

	samplePos := int64(sampleIndex) * basisPoints / int64(count)
	progress := travelProgress(r, arrival, now)
	margin := int64(basisPoints) / int64(count) / 2

	switch pos {
	case Current:
		return progress >= samplePos-margin && progress <= samplePos+margin, nil
	case Upcoming:
		return progress < samplePos-margin, nil
	case Passed:
		return progress > samplePos+margin, nil
	default:
		return false, fmt.Errorf("%w: %d", ErrBadPosition, pos)
	}
}

// travelProgress returns elapsed-time progress in basis points, saturated
// to [0, 10000]: 0 before departure, 10000 once arrived.
func travelProgress(r Route, arrival, now int64) int64 {
	total := r.TotalTravelTime()
	if total <= 0 {
		return basisPoints
	}
	remaining := arrival - now
	if remaining <= 0 {
		return basisPoints
	}
	if remaining >= total {
		return 0
	}
	return (total - remaining) * basisPoints / total
}
