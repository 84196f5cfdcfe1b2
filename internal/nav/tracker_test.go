package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orvandal/gridworld/internal/grid"
	"github.com/orvandal/gridworld/internal/model"
)

const (
	testBudget  = 25
	testTurnDur = 60
	testNow     = int64(1_000_000)
)

// newTrackerFixture builds a 5x1 flat strip with a tracker starting
// players on tile 0.
func newTrackerFixture(t *testing.T) (*grid.Store, *Tracker) {
	t.Helper()
	s, v := newStrip(t, 5)
	return s, NewTracker(s, v, 0, testBudget, testTurnDur)
}

func TestEnterWorld(t *testing.T) {
	s, tr := newTrackerFixture(t)

	require.NoError(t, tr.EnterWorld("ada", testNow))

	p := tr.Player("ada")
	require.NotNil(t, p)
	assert.Equal(t, uint16(0), p.CurrentTile)
	assert.Equal(t, testNow, p.ArrivalAt)
	assert.Equal(t, uint32(testBudget), p.MoveBudget)
	assert.True(t, tr.HasEntered("ada"))

	dyn, err := s.Dynamic(0)
	require.NoError(t, err)
	assert.Same(t, p, dyn.ChainHead)

	t.Run("re-entry rejected", func(t *testing.T) {
		assert.ErrorIs(t, tr.EnterWorld("ada", testNow+10), ErrAlreadyEntered)
	})
}

func TestChainNewestFirst(t *testing.T) {
	_, tr := newTrackerFixture(t)

	for _, id := range []string{"ada", "brin", "cleo"} {
		require.NoError(t, tr.EnterWorld(id, testNow))
	}

	players, err := tr.PlayersOnTile(0, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"cleo", "brin", "ada"}, players)

	t.Run("max truncates", func(t *testing.T) {
		players, err := tr.PlayersOnTile(0, "", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"cleo", "brin"}, players)
	})

	t.Run("cursor resumes after start player", func(t *testing.T) {
		players, err := tr.PlayersOnTile(0, "cleo", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"brin", "ada"}, players)
	})

	t.Run("unknown cursor yields nothing", func(t *testing.T) {
		players, err := tr.PlayersOnTile(0, "nobody", 10)
		require.NoError(t, err)
		assert.Empty(t, players)
	})
}

func TestMoveRelinksChains(t *testing.T) {
	s, tr := newTrackerFixture(t)

	for _, id := range []string{"ada", "brin", "cleo"} {
		require.NoError(t, tr.EnterWorld(id, testNow))
	}
	// Chain on tile 0: cleo -> brin -> ada.

	t.Run("mid-chain removal splices", func(t *testing.T) {
		turns, r, err := tr.Move("brin", []uint16{0, 1}, testNow)
		require.NoError(t, err)
		assert.Equal(t, uint8(1), turns)
		assert.False(t, r.IsZero())

		onZero, err := tr.PlayersOnTile(0, "", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"cleo", "ada"}, onZero)

		onOne, err := tr.PlayersOnTile(1, "", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"brin"}, onOne)
	})

	t.Run("head removal promotes next", func(t *testing.T) {
		_, _, err := tr.Move("cleo", []uint16{0, 1}, testNow)
		require.NoError(t, err)

		dyn, err := s.Dynamic(0)
		require.NoError(t, err)
		require.NotNil(t, dyn.ChainHead)
		assert.Equal(t, "ada", dyn.ChainHead.PlayerID)
		assert.Nil(t, dyn.ChainHead.ChainPrev)

		onOne, err := tr.PlayersOnTile(1, "", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"cleo", "brin"}, onOne)
	})

	t.Run("last removal empties the chain", func(t *testing.T) {
		_, _, err := tr.Move("ada", []uint16{0, 1}, testNow)
		require.NoError(t, err)

		dyn, err := s.Dynamic(0)
		require.NoError(t, err)
		assert.Nil(t, dyn.ChainHead)
	})
}

func TestMovePreconditions(t *testing.T) {
	_, tr := newTrackerFixture(t)
	require.NoError(t, tr.EnterWorld("ada", testNow))

	t.Run("not entered", func(t *testing.T) {
		_, _, err := tr.Move("ghost", []uint16{0, 1}, testNow)
		assert.ErrorIs(t, err, ErrNotEntered)
	})

	t.Run("frozen blocks regardless of path validity", func(t *testing.T) {
		require.NoError(t, tr.Freeze("ada", testNow+1000))
		_, _, err := tr.Move("ada", []uint16{0, 1}, testNow)
		assert.ErrorIs(t, err, ErrFrozenPlayer)

		// Even a garbage path reports the freeze, not the path.
		_, _, err = tr.Move("ada", []uint16{7, 3}, testNow)
		assert.ErrorIs(t, err, ErrFrozenPlayer)

		require.NoError(t, tr.Unfreeze("ada"))
	})

	t.Run("traveling blocks the next move", func(t *testing.T) {
		turns, _, err := tr.Move("ada", []uint16{0, 1}, testNow)
		require.NoError(t, err)

		_, _, err = tr.Move("ada", []uint16{1, 2}, testNow+1)
		assert.ErrorIs(t, err, ErrTraveling)

		// After arrival the player moves again.
		arrival := testNow + int64(turns)*testTurnDur
		_, _, err = tr.Move("ada", []uint16{1, 2}, arrival)
		assert.NoError(t, err)
	})

	t.Run("freeze of unknown player", func(t *testing.T) {
		assert.ErrorIs(t, tr.Freeze("ghost", testNow), ErrUnknownPlayer)
		assert.ErrorIs(t, tr.Unfreeze("ghost"), ErrUnknownPlayer)
	})
}

func TestLocationAndTravel(t *testing.T) {
	_, tr := newTrackerFixture(t)

	t.Run("unknown player", func(t *testing.T) {
		_, _, err := tr.Location("ada", testNow)
		assert.ErrorIs(t, err, ErrNotEntered)
		_, err = tr.Travel("ada", testNow)
		assert.ErrorIs(t, err, ErrNotEntered)
	})

	require.NoError(t, tr.EnterWorld("ada", testNow))

	tile, canInteract, err := tr.Location("ada", testNow)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), tile)
	assert.True(t, canInteract)

	turns, r, err := tr.Move("ada", []uint16{0, 1, 2, 3}, testNow)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), turns)

	t.Run("while traveling", func(t *testing.T) {
		tile, canInteract, err := tr.Location("ada", testNow+1)
		require.NoError(t, err)
		assert.Equal(t, uint16(3), tile)
		assert.False(t, canInteract)

		data, err := tr.Travel("ada", testNow+1)
		require.NoError(t, err)
		assert.True(t, data.IsTraveling)
		assert.False(t, data.IsIdle)
		assert.False(t, data.IsEmbarked)
		assert.Equal(t, uint16(3), data.Tile)
		assert.Equal(t, r, data.Route)
		assert.Equal(t, testNow+2*testTurnDur, data.Arrival)
	})

	t.Run("after arrival", func(t *testing.T) {
		data, err := tr.Travel("ada", testNow+2*testTurnDur)
		require.NoError(t, err)
		assert.True(t, data.IsIdle)
		assert.False(t, data.IsTraveling)
	})
}

func TestTravelEmbarked(t *testing.T) {
	s := grid.NewStore()
	m, err := s.CreateMap("coast", 2, 1)
	require.NoError(t, err)
	require.NoError(t, s.SetTile(0, model.TileStatic{Elevation: 0}))
	require.NoError(t, s.SetTile(1, model.TileStatic{Elevation: 0, WaterLevel: 1}))
	require.NoError(t, s.FinalizeMap(nil))
	_ = m

	tr := NewTracker(s, NewValidator(s, grid.NewCostCache()), 0, 100, testTurnDur)
	require.NoError(t, tr.EnterWorld("sailor", testNow))

	_, _, err = tr.Move("sailor", []uint16{0, 1}, testNow)
	require.NoError(t, err)

	data, err := tr.Travel("sailor", testNow+testTurnDur)
	require.NoError(t, err)
	assert.True(t, data.IsEmbarked)
}

func TestRestoreRebuildsChains(t *testing.T) {
	_, tr := newTrackerFixture(t)

	require.NoError(t, tr.Restore(model.PlayerNavigation{
		PlayerID:    "ada",
		MoveBudget:  testBudget,
		CurrentTile: 2,
		ArrivalAt:   testNow - 100,
	}))
	require.NoError(t, tr.Restore(model.PlayerNavigation{
		PlayerID:    "brin",
		MoveBudget:  testBudget,
		CurrentTile: 2,
		ArrivalAt:   testNow - 50,
	}))

	players, err := tr.PlayersOnTile(2, "", 10)
	require.NoError(t, err)
	assert.Len(t, players, 2)

	// Restored players move normally.
	_, _, err = tr.Move("ada", []uint16{2, 3}, testNow)
	assert.NoError(t, err)

	t.Run("record without arrival rejected", func(t *testing.T) {
		err := tr.Restore(model.PlayerNavigation{PlayerID: "ghost"})
		assert.ErrorIs(t, err, ErrNotEntered)
	})
}
