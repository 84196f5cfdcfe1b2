package route

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeByteLayout(t *testing.T) {
	r, err := Encode(180, 2, 8, []uint16{10, 13, 0x0102})
	require.NoError(t, err)

	// The layout is a wire contract: assert raw bytes, not accessors.
	assert.Equal(t, byte(180), r[0], "turn duration at byte 0")
	assert.Equal(t, byte(2), r[1], "turns at byte 1")
	assert.Equal(t, byte(8), r[2], "path length at byte 2")
	assert.Equal(t, byte(3), r[3], "sampled count at byte 3")
	assert.Equal(t, uint16(10), binary.LittleEndian.Uint16(r[4:6]), "origin at bytes 4-5")
	assert.Equal(t, uint16(13), binary.LittleEndian.Uint16(r[6:8]), "sample 1 at bytes 6-7")
	assert.Equal(t, byte(0x02), r[8], "sample 2 low byte")
	assert.Equal(t, byte(0x01), r[9], "sample 2 high byte")
	for i := 10; i < Size; i++ {
		assert.Zero(t, r[i], "byte %d must stay zero", i)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	samples := []uint16{100, 103, 106, 109}
	r, err := Encode(60, 5, 12, samples)
	require.NoError(t, err)

	assert.Equal(t, uint8(60), r.TurnDuration())
	assert.Equal(t, uint8(5), r.Turns())
	assert.Equal(t, uint8(12), r.PathLen())
	assert.Equal(t, uint8(4), r.SampledCount())
	for i, want := range samples {
		assert.Equal(t, want, r.Sample(i))
	}
	assert.Equal(t, int64(300), r.TotalTravelTime())
	assert.False(t, r.IsZero())
	assert.True(t, Route{}.IsZero())
}

func TestEncodeLimits(t *testing.T) {
	_, err := Encode(60, 1, MaxPathTiles+1, []uint16{0})
	assert.ErrorIs(t, err, ErrPathTooLong)

	_, err = Encode(60, 1, 2, nil)
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = Encode(60, 1, 43, make([]uint16, MaxSamples+1))
	assert.ErrorIs(t, err, ErrTooManySamples)

	// A maximal route fills the word exactly.
	r, err := Encode(255, 255, MaxPathTiles, make([]uint16, MaxSamples))
	require.NoError(t, err)
	assert.Equal(t, uint8(MaxSamples), r.SampledCount())
}

func TestSampleCount(t *testing.T) {
	tests := []struct {
		pathLen int
		want    int
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{3, 1},
		{4, 1},
		{5, 2},
		{7, 2},
		{8, 3},
		{43, 14},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SampleCount(tt.pathLen), "pathLen=%d", tt.pathLen)
	}
}
