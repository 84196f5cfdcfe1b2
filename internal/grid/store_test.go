package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orvandal/gridworld/internal/model"
)

// fillMap initializes every tile of the map under construction with flat
// land at the given elevation.
func fillMap(t *testing.T, s *Store, m *model.Map, elevation uint8) {
	t.Helper()
	for i := uint32(0); i < m.TileCount(); i++ {
		err := s.SetTile(m.TileStart+uint16(i), model.TileStatic{Elevation: elevation})
		require.NoError(t, err)
	}
}

func TestCreateMapLifecycle(t *testing.T) {
	s := NewStore()

	m1, err := s.CreateMap("genesis", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), m1.TileStart)
	assert.False(t, m1.Finalized)

	t.Run("second map blocked while under construction", func(t *testing.T) {
		_, err := s.CreateMap("frontier", 2, 2)
		assert.ErrorIs(t, err, ErrMapUnderConstruction)
	})

	t.Run("finalize requires every tile", func(t *testing.T) {
		require.NoError(t, s.SetTile(0, model.TileStatic{}))
		err := s.FinalizeMap(nil)
		assert.ErrorIs(t, err, ErrMapIncomplete)
	})

	require.NoError(t, s.SetTile(1, model.TileStatic{}))
	require.NoError(t, s.FinalizeMap(nil))
	assert.True(t, m1.Finalized)

	t.Run("duplicate name rejected", func(t *testing.T) {
		_, err := s.CreateMap("genesis", 2, 2)
		assert.ErrorIs(t, err, ErrMapNameTaken)
	})

	t.Run("next map starts contiguously", func(t *testing.T) {
		m2, err := s.CreateMap("frontier", 3, 3)
		require.NoError(t, err)
		assert.Equal(t, uint16(2), m2.TileStart)
	})
}

func TestCreateMapSizeCap(t *testing.T) {
	s := NewStore()

	_, err := s.CreateMap("huge", 65, 65) // 4225 > MaxMapTiles
	assert.ErrorIs(t, err, ErrMapTooLarge)

	_, err = s.CreateMap("empty", 0, 4)
	assert.ErrorIs(t, err, ErrMapTooLarge)

	_, err = s.CreateMap("max", 64, 64)
	assert.NoError(t, err)
}

func TestSetTileErrors(t *testing.T) {
	s := NewStore()

	t.Run("no map under construction", func(t *testing.T) {
		err := s.SetTile(0, model.TileStatic{})
		assert.ErrorIs(t, err, ErrNoMapUnderConstruction)
	})

	m, err := s.CreateMap("genesis", 2, 2)
	require.NoError(t, err)

	t.Run("out of range", func(t *testing.T) {
		err := s.SetTile(m.TileStart+4, model.TileStatic{})
		assert.ErrorIs(t, err, ErrTileOutOfRange)
	})

	t.Run("rewrite before finalize counts once", func(t *testing.T) {
		require.NoError(t, s.SetTile(0, model.TileStatic{Elevation: 1}))
		require.NoError(t, s.SetTile(0, model.TileStatic{Elevation: 2}))

		tile, err := s.Static(0)
		require.NoError(t, err)
		assert.Equal(t, uint8(2), tile.Elevation)

		// Three more tiles complete the map despite the rewrite.
		for idx := uint16(1); idx < 4; idx++ {
			require.NoError(t, s.SetTile(idx, model.TileStatic{}))
		}
		require.NoError(t, s.FinalizeMap(nil))
	})
}

func TestFinalizeNotifiesClaimableSupply(t *testing.T) {
	s := NewStore()
	m, err := s.CreateMap("genesis", 3, 2)
	require.NoError(t, err)
	fillMap(t, s, m, 0)

	var notified uint32
	require.NoError(t, s.FinalizeMap(func(count uint32) error {
		notified = count
		return nil
	}))
	assert.Equal(t, uint32(6), notified)
}

func TestFinalizeAbortsOnNotifierFailure(t *testing.T) {
	s := NewStore()
	m, err := s.CreateMap("genesis", 2, 1)
	require.NoError(t, err)
	fillMap(t, s, m, 0)

	err = s.FinalizeMap(func(uint32) error { return assert.AnError })
	require.Error(t, err)
	assert.False(t, m.Finalized)

	// The map stays under construction: a retry with a healthy
	// collaborator succeeds.
	require.NoError(t, s.FinalizeMap(nil))
	assert.True(t, m.Finalized)
}

func TestStaticImmutableAfterFinalize(t *testing.T) {
	s := NewStore()
	m, err := s.CreateMap("genesis", 2, 1)
	require.NoError(t, err)
	require.NoError(t, s.SetTile(0, model.TileStatic{Elevation: 3, Vegetation: 2}))
	require.NoError(t, s.SetTile(1, model.TileStatic{Elevation: 3}))
	require.NoError(t, s.FinalizeMap(nil))

	first, err := s.Static(0)
	require.NoError(t, err)
	snapshot := *first

	err = s.SetTile(0, model.TileStatic{Elevation: 9})
	assert.ErrorIs(t, err, ErrNoMapUnderConstruction)

	second, err := s.Static(0)
	require.NoError(t, err)
	assert.Equal(t, snapshot, *second)
	assert.Equal(t, m.Name, "genesis")
}

func TestSameMap(t *testing.T) {
	s := NewStore()
	m1, err := s.CreateMap("a", 2, 1)
	require.NoError(t, err)
	fillMap(t, s, m1, 0)
	require.NoError(t, s.FinalizeMap(nil))

	m2, err := s.CreateMap("b", 2, 1)
	require.NoError(t, err)
	fillMap(t, s, m2, 0)
	require.NoError(t, s.FinalizeMap(nil))

	assert.True(t, s.SameMap(0, 1))
	assert.True(t, s.SameMap(2, 3))
	assert.False(t, s.SameMap(1, 2))
	assert.False(t, s.SameMap(0, 9))
}

func TestDynamicSeedsResourceAmounts(t *testing.T) {
	s := NewStore()
	m, err := s.CreateMap("genesis", 1, 1)
	require.NoError(t, err)
	require.NoError(t, s.SetTile(m.TileStart, model.TileStatic{
		Resources: []model.Resource{
			{Kind: model.ResourceWood, Amount: 120},
			{Kind: model.ResourceStone, Amount: 40},
		},
	}))
	require.NoError(t, s.FinalizeMap(nil))

	dyn, err := s.Dynamic(m.TileStart)
	require.NoError(t, err)
	assert.Equal(t, []uint32{120, 40}, dyn.Remaining)
}
