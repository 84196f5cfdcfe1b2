// Package route implements the packed journey encoding. A validated path
// is compressed into a single 256-bit word that other subsystems can query
// without re-walking the tiles: the word carries the turn duration, the
// total turn count, the real path length, and a sparse sampling of the
// path's tiles (the origin plus every third tile).
//
// The byte layout is a wire contract. Collaborators decode routes with the
// exact offsets below, so the layout must never change:
//
//	byte 0        turn duration (seconds)
//	byte 1        total turns
//	byte 2        total tiles in the real path
//	byte 3        sampled tile count
//	bytes 4..5    origin tile index (little-endian)
//	bytes 6..     further sampled tile indices, contiguous 16-bit LE slots
package route

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Size is the packed route width in bytes (256 bits).
	Size = 32

	// MaxPathTiles is the longest path a route can describe.
	MaxPathTiles = 43

	// SampleStride: every third tile after the origin is sampled.
	SampleStride = 3

	// MaxSamples is the origin plus every sampled tile of a maximal path:
	// 1 + (43-2)/3 = 14, which fills the word exactly (4 + 14*2 = 32 bytes).
	MaxSamples = 14

	headerBytes = 4
)

var (
	ErrPathTooLong    = errors.New("path exceeds maximum route length")
	ErrTooManySamples = errors.New("too many sampled tiles for route word")
	ErrNoSamples      = errors.New("route requires at least the origin sample")
)

// Route is the packed 256-bit journey word. The zero value means
// "no route".
type Route [Size]byte

// IsZero reports whether the route is unset.
func (r Route) IsZero() bool {
	return r == Route{}
}

// TurnDuration returns the turn duration in seconds.
func (r Route) TurnDuration() uint8 { return r[0] }

// Turns returns the total turn count of the journey.
func (r Route) Turns() uint8 { return r[1] }

// PathLen returns the number of tiles in the real, unsampled path.
func (r Route) PathLen() uint8 { return r[2] }

// SampledCount returns how many tile indices are stored in the word,
// the origin included.
func (r Route) SampledCount() uint8 { return r[3] }

// Sample returns the i-th stored tile index; Sample(0) is the origin.
// i must be below SampledCount.
func (r Route) Sample(i int) uint16 {
	return binary.LittleEndian.Uint16(r[headerBytes+2*i:])
}

// TotalTravelTime returns the journey's full duration in seconds.
func (r Route) TotalTravelTime() int64 {
	return int64(r.Turns()) * int64(r.TurnDuration())
}

// SampleCount returns how many tiles of a path of the given length get
// stored in a route: the origin plus every SampleStride-th tile, the final
// tile excluded.
func SampleCount(pathLen int) int {
	if pathLen < 2 {
		return 0
	}
	return 1 + (pathLen-2)/SampleStride
}

// Encode packs a journey into a route word. samples must start with the
// origin tile.
func Encode(turnDuration, turns uint8, pathLen int, samples []uint16) (Route, error) {
	var r Route
	if pathLen > MaxPathTiles {
		return r, fmt.Errorf("%w: %d tiles", ErrPathTooLong, pathLen)
	}
	if len(samples) == 0 {
		return r, ErrNoSamples
	}
	if len(samples) > MaxSamples {
		return r, fmt.Errorf("%w: %d", ErrTooManySamples, len(samples))
	}
	r[0] = turnDuration
	r[1] = turns
	r[2] = uint8(pathLen)
	r[3] = uint8(len(samples))
	for i, tile := range samples {
		binary.LittleEndian.PutUint16(r[headerBytes+2*i:], tile)
	}
	return r, nil
}
