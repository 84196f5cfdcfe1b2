package nav

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/orvandal/gridworld/internal/grid"
	"github.com/orvandal/gridworld/internal/model"
	"github.com/orvandal/gridworld/internal/route"
)

var (
	ErrAlreadyEntered = errors.New("player already entered the world")
	ErrNotEntered     = errors.New("player has not entered the world")
	ErrFrozenPlayer   = errors.New("player is frozen")
	ErrTraveling      = errors.New("player is still traveling")
	ErrUnknownPlayer  = errors.New("unknown player")
)

// TravelData is the read view of a player's movement state.
type TravelData struct {
	IsIdle      bool
	IsTraveling bool
	IsEmbarked  bool
	Tile        uint16
	Route       route.Route
	Arrival     int64
}

// Tracker owns the arena of player navigation records and the intrusive
// per-tile chains. All mutation goes through EnterWorld / Move / Freeze;
// the engine serializes calls.
type Tracker struct {
	store     *grid.Store
	validator *Validator
	players   map[string]*model.PlayerNavigation

	startTile    uint16
	startBudget  uint32
	turnDuration uint8
}

// NewTracker returns a tracker placing new players on startTile with the
// given per-turn movement budget.
func NewTracker(store *grid.Store, validator *Validator, startTile uint16, startBudget uint32, turnDuration uint8) *Tracker {
	return &Tracker{
		store:        store,
		validator:    validator,
		players:      make(map[string]*model.PlayerNavigation),
		startTile:    startTile,
		startBudget:  startBudget,
		turnDuration: turnDuration,
	}
}

// TurnDuration returns the configured turn length in seconds.
func (t *Tracker) TurnDuration() uint8 { return t.turnDuration }

// Player returns the navigation record, nil if the player never entered.
func (t *Tracker) Player(id string) *model.PlayerNavigation {
	return t.players[id]
}

// EnterWorld places a first-time player on the starting tile at time now
// and prepends it to the tile's chain. Identity is the engine's concern;
// the tracker only rejects re-entry.
func (t *Tracker) EnterWorld(id string, now int64) error {
	if p := t.players[id]; p != nil && p.HasEntered() {
		return ErrAlreadyEntered
	}
	dyn, err := t.store.Dynamic(t.startTile)
	if err != nil {
		return fmt.Errorf("starting tile: %w", err)
	}

	p := &model.PlayerNavigation{
		PlayerID:    id,
		MoveBudget:  t.startBudget,
		CurrentTile: t.startTile,
		ArrivalAt:   now,
	}
	t.players[id] = p
	chainPrepend(dyn, p)

	slog.Info("player entered", "player", id, "tile", t.startTile)
	return nil
}

// Move validates the path and relocates the player: exit the current
// tile's chain, enter the destination's, record the new arrival time and
// route. Fails when the player has not entered, is frozen, or is still
// traveling.
func (t *Tracker) Move(id string, path []uint16, now int64) (uint8, route.Route, error) {
	p := t.players[id]
	if p == nil || !p.HasEntered() {
		return 0, route.Route{}, ErrNotEntered
	}
	if p.Frozen(now) {
		return 0, route.Route{}, ErrFrozenPlayer
	}
	if p.Traveling(now) {
		return 0, route.Route{}, ErrTraveling
	}

	turns, r, err := t.validator.Validate(path, p.CurrentTile, p.MoveBudget, t.turnDuration)
	if err != nil {
		return 0, route.Route{}, err
	}
	dest := path[len(path)-1]

	from, err := t.store.Dynamic(p.CurrentTile)
	if err != nil {
		return 0, route.Route{}, err
	}
	to, err := t.store.Dynamic(dest)
	if err != nil {
		return 0, route.Route{}, err
	}

	chainRemove(from, p)
	chainPrepend(to, p)
	p.CurrentTile = dest
	p.ArrivalAt = now + int64(turns)*int64(t.turnDuration)
	p.Route = r

	slog.Info("player moved", "player", id, "to", dest, "turns", turns, "arrival", p.ArrivalAt)
	return turns, r, nil
}

// Freeze blocks the player's future moves until the given unix time. It
// does not unwind a journey already in flight.
func (t *Tracker) Freeze(id string, until int64) error {
	p := t.players[id]
	if p == nil {
		return ErrUnknownPlayer
	}
	p.FrozenUntil = until
	slog.Info("player frozen", "player", id, "until", until)
	return nil
}

// Unfreeze clears the freeze.
func (t *Tracker) Unfreeze(id string) error {
	p := t.players[id]
	if p == nil {
		return ErrUnknownPlayer
	}
	p.FrozenUntil = 0
	return nil
}

// HasEntered reports whether the player ever entered the world.
func (t *Tracker) HasEntered(id string) bool {
	p := t.players[id]
	return p != nil && p.HasEntered()
}

// Location returns the player's tile and whether it can interact
// (entered and not traveling).
func (t *Tracker) Location(id string, now int64) (uint16, bool, error) {
	p := t.players[id]
	if p == nil || !p.HasEntered() {
		return 0, false, ErrNotEntered
	}
	return p.CurrentTile, !p.Traveling(now), nil
}

// Travel returns the player's full travel view.
func (t *Tracker) Travel(id string, now int64) (TravelData, error) {
	p := t.players[id]
	if p == nil || !p.HasEntered() {
		return TravelData{}, ErrNotEntered
	}
	embarked := false
	if tile, err := t.store.Static(p.CurrentTile); err == nil {
		embarked = tile.Underwater()
	}
	traveling := p.Traveling(now)
	return TravelData{
		IsIdle:      !traveling,
		IsTraveling: traveling,
		IsEmbarked:  embarked,
		Tile:        p.CurrentTile,
		Route:       p.Route,
		Arrival:     p.ArrivalAt,
	}, nil
}

// PlayersOnTile walks the tile's chain newest-first and returns up to max
// player IDs. A non-empty start cursor resumes the walk after that player.
func (t *Tracker) PlayersOnTile(tile uint16, start string, max int) ([]string, error) {
	dyn, err := t.store.Dynamic(tile)
	if err != nil {
		return nil, err
	}
	cur := dyn.ChainHead
	if start != "" {
		for cur != nil && cur.PlayerID != start {
			cur = cur.ChainNext
		}
		if cur != nil {
			cur = cur.ChainNext
		}
	}
	var out []string
	for cur != nil && len(out) < max {
		out = append(out, cur.PlayerID)
		cur = cur.ChainNext
	}
	return out, nil
}

// Restore reinstalls a persisted navigation record and links it into its
// tile's chain. Chain order after a restore reflects load order, not the
// original arrival order.
func (t *Tracker) Restore(rec model.PlayerNavigation) error {
	if rec.PlayerID == "" || !rec.HasEntered() {
		return ErrNotEntered
	}
	dyn, err := t.store.Dynamic(rec.CurrentTile)
	if err != nil {
		return err
	}
	p := rec
	p.ChainNext, p.ChainPrev = nil, nil
	t.players[p.PlayerID] = &p
	chainPrepend(dyn, &p)
	return nil
}

// chainPrepend pushes p onto the tile's intrusive chain head.
func chainPrepend(dyn *model.TileDynamic, p *model.PlayerNavigation) {
	p.ChainPrev = nil
	p.ChainNext = dyn.ChainHead
	if dyn.ChainHead != nil {
		dyn.ChainHead.ChainPrev = p
	}
	dyn.ChainHead = p
}

// chainRemove unlinks p from the tile's chain: head removal promotes the
// next record, mid-chain removal splices prev and next together.
func chainRemove(dyn *model.TileDynamic, p *model.PlayerNavigation) {
	if dyn.ChainHead == p {
		dyn.ChainHead = p.ChainNext
		if dyn.ChainHead != nil {
			dyn.ChainHead.ChainPrev = nil
		}
	} else {
		if p.ChainPrev != nil {
			p.ChainPrev.ChainNext = p.ChainNext
		}
		if p.ChainNext != nil {
			p.ChainNext.ChainPrev = p.ChainPrev
		}
	}
	p.ChainNext, p.ChainPrev = nil, nil
}

// Navigations returns a copy of every navigation record, for snapshots
// and persistence. Chain links are stripped.
func (t *Tracker) Navigations() []model.PlayerNavigation {
	out := make([]model.PlayerNavigation, 0, len(t.players))
	for _, p := range t.players {
		rec := *p
		rec.ChainNext, rec.ChainPrev = nil, nil
		out = append(out, rec)
	}
	return out
}
