package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// neverAdjacent and alwaysAdjacent stand in for the grid relation.
func neverAdjacent(a, b uint16) bool  { return false }
func alwaysAdjacent(a, b uint16) bool { return true }

// mkRoute packs a route with the given travel shape.
func mkRoute(t *testing.T, turnDuration, turns uint8, pathLen int, samples []uint16) Route {
	t.Helper()
	r, err := Encode(turnDuration, turns, pathLen, samples)
	require.NoError(t, err)
	return r
}

func TestAlongRouteSampleResolution(t *testing.T) {
	r := mkRoute(t, 60, 2, 8, []uint16{10, 13, 16})

	t.Run("sample index resolves stored tile", func(t *testing.T) {
		ok, err := AlongRoute(13, r, 1, 99, 0, 0, Any, neverAdjacent)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("sampled count resolves destination", func(t *testing.T) {
		ok, err := AlongRoute(99, r, 3, 99, 0, 0, Any, neverAdjacent)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("index past destination is an argument error", func(t *testing.T) {
		_, err := AlongRoute(99, r, 4, 99, 0, 0, Any, neverAdjacent)
		assert.ErrorIs(t, err, ErrBadSampleIndex)
	})

	t.Run("non-adjacent tile is not along the route", func(t *testing.T) {
		ok, err := AlongRoute(55, r, 1, 99, 0, 0, Any, neverAdjacent)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("adjacent tile counts", func(t *testing.T) {
		ok, err := AlongRoute(55, r, 1, 99, 0, 0, Any, alwaysAdjacent)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unknown position is an argument error", func(t *testing.T) {
		_, err := AlongRoute(13, r, 1, 99, 0, 0, Position(9), neverAdjacent)
		assert.ErrorIs(t, err, ErrBadPosition)
	})
}

// Single-sample route: the origin sits at position 0 with a ±50% margin,
// so Current matches through the first half of the journey.
func TestAlongRouteSingleSampleMargin(t *testing.T) {
	// 2 turns x 60s = 120s total travel.
	r := mkRoute(t, 60, 2, 2, []uint16{10})

	const arrival = int64(1000)

	tests := []struct {
		name string
		now  int64 // progress = (120 - (arrival-now)) / 120
		pos  Position
		want bool
	}{
		{"current at departure", arrival - 120, Current, true},
		{"current at 50 percent", arrival - 60, Current, true},
		{"passed just beyond half", arrival - 59, Passed, true},
		{"current gone beyond half", arrival - 59, Current, false},
		{"passed after arrival", arrival + 5, Passed, true},
		{"upcoming never matches sample zero", arrival - 120, Upcoming, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AlongRoute(10, r, 0, 11, arrival, tt.now, tt.pos, neverAdjacent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlongRouteTwoSamples(t *testing.T) {
	// sampledCount=2: margin 2500bp, sample 1 sits at 5000bp.
	// 100s total travel makes basis points easy: 1s = 100bp.
	r := mkRoute(t, 50, 2, 5, []uint16{10, 13})

	const arrival = int64(2000)

	tests := []struct {
		name string
		now  int64
		pos  Position
		want bool
	}{
		{"upcoming early", arrival - 100 + 10, Upcoming, true},
		{"current at boundary", arrival - 100 + 25, Current, true},
		{"current at midpoint", arrival - 100 + 50, Current, true},
		{"current at far boundary", arrival - 100 + 75, Current, true},
		{"passed beyond margin", arrival - 100 + 76, Passed, true},
		{"upcoming late is false", arrival - 100 + 80, Upcoming, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AlongRoute(13, r, 1, 99, arrival, tt.now, tt.pos, neverAdjacent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTravelProgressSaturates(t *testing.T) {
	r := mkRoute(t, 60, 2, 2, []uint16{10})

	assert.Equal(t, int64(0), travelProgress(r, 1000, 1000-120))
	assert.Equal(t, int64(0), travelProgress(r, 1000, 1000-500))
	assert.Equal(t, int64(basisPoints), travelProgress(r, 1000, 1000))
	assert.Equal(t, int64(basisPoints), travelProgress(r, 1000, 2000))
	assert.Equal(t, int64(basisPoints/2), travelProgress(r, 1000, 1000-60))
}
