// Package engine is the authoritative world-state facade. It serializes
// every externally triggered operation behind one mutex, reads time once
// per operation, and either fully applies or fully discards an
// operation's effects. External collaborators (identity, land claims,
// deeds) are reached only through the narrow interfaces below; a
// collaborator failure aborts the whole operation.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/orvandal/gridworld/internal/auth"
	"github.com/orvandal/gridworld/internal/grid"
	"github.com/orvandal/gridworld/internal/model"
	"github.com/orvandal/gridworld/internal/nav"
	"github.com/orvandal/gridworld/internal/route"
)

var ErrNotRegistered = errors.New("player not registered")

// IdentityService is the external registration collaborator.
type IdentityService interface {
	IsRegistered(player string) bool
}

// ClaimNotifier is the external land-ownership collaborator, told once
// per finalized map how many tiles became claimable.
type ClaimNotifier interface {
	IncreaseClaimableSupply(count uint32) error
}

// DeedRegistry resolves tile ownership for dynamic tile views. Optional.
type DeedRegistry interface {
	OwnerOf(tile uint16) (string, bool)
}

// EventKind tags engine events.
type EventKind uint8

const (
	EventEntered EventKind = iota
	EventMoved
	EventMapFinalized
)

// Event describes a completed state change, emitted after the operation
// commits.
type Event struct {
	Kind    EventKind
	Player  string
	From    uint16
	To      uint16
	Turns   uint8
	Arrival int64
	MapName string
	Tiles   uint32
}

// TileUpdate is one entry of a SetTiles batch.
type TileUpdate struct {
	Index uint16
	Data  model.TileStatic
}

// DynamicTileView is the read view of a tile's mutable state. Ownership
// comes from the deed collaborator when one is wired.
type DynamicTileView struct {
	Owner     string
	Players   []string
	Remaining []uint32
}

// Config carries the engine's movement parameters.
type Config struct {
	StartTile    uint16
	StartBudget  uint32
	TurnDuration uint8
}

// Engine ties the grid store, cost cache, path validator, and player
// tracker together and gates the privileged surface with capabilities.
type Engine struct {
	mu sync.Mutex

	store     *grid.Store
	cache     *grid.CostCache
	validator *nav.Validator
	tracker   *nav.Tracker

	identity IdentityService
	claims   ClaimNotifier
	deeds    DeedRegistry

	observer func(Event)
	clock    func() time.Time
}

// New assembles an engine. identity and claims are required
// collaborators; deeds may be nil.
func New(cfg Config, identity IdentityService, claims ClaimNotifier, deeds DeedRegistry) *Engine {
	store := grid.NewStore()
	cache := grid.NewCostCache()
	validator := nav.NewValidator(store, cache)
	return &Engine{
		store:     store,
		cache:     cache,
		validator: validator,
		tracker:   nav.NewTracker(store, validator, cfg.StartTile, cfg.StartBudget, cfg.TurnDuration),
		identity:  identity,
		claims:    claims,
		deeds:     deeds,
		clock:     time.Now,
	}
}

// SetObserver registers the single event observer. Events fire after the
// operation commits and outside the engine lock, so observers may call
// back into the read surface.
func (e *Engine) SetObserver(fn func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = fn
}

// SetClock overrides the time source, for tests.
func (e *Engine) SetClock(fn func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = fn
}

func (e *Engine) emit(ev Event) {
	if e.observer != nil {
		e.observer(ev)
	}
}

func (e *Engine) now() int64 {
	return e.clock().Unix()
}

// --- admin surface ---

// CreateMap opens a new map for construction. Admin only.
func (e *Engine) CreateMap(cap auth.Capability, name string, sizeX, sizeZ uint16) error {
	if err := cap.Require(auth.RoleAdmin); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.store.CreateMap(name, sizeX, sizeZ)
	return err
}

// SetTiles writes a batch of tiles into the map under construction.
// Admin only. The batch is applied atomically: the first failing entry
// aborts and reverts the whole batch.
func (e *Engine) SetTiles(cap auth.Capability, batch []TileUpdate) error {
	if err := cap.Require(auth.RoleAdmin); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	// Validate the whole batch before touching state, so a bad entry
	// cannot leave a half-applied batch behind.
	for _, u := range batch {
		if err := e.store.CheckTile(u.Index); err != nil {
			return fmt.Errorf("tile %d: %w", u.Index, err)
		}
	}
	for _, u := range batch {
		if err := e.store.SetTile(u.Index, u.Data); err != nil {
			return fmt.Errorf("tile %d: %w", u.Index, err)
		}
	}
	return nil
}

// FinalizeMap seals the map under construction and notifies the claim
// collaborator of the newly claimable tile count. Admin only.
func (e *Engine) FinalizeMap(cap auth.Capability) error {
	if err := cap.Require(auth.RoleAdmin); err != nil {
		return err
	}
	e.mu.Lock()
	var finalized *model.Map
	err := e.store.FinalizeMap(func(count uint32) error {
		return e.claims.IncreaseClaimableSupply(count)
	})
	if err == nil {
		maps := e.store.Maps()
		finalized = maps[len(maps)-1]
	}
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.emit(Event{Kind: EventMapFinalized, MapName: finalized.Name, Tiles: finalized.TileCount()})
	return nil
}

// RestoreMap rebuilds a previously finalized map from persistence. The
// claim collaborator is not re-notified; it already learned about these
// tiles when the map was first finalized.
func (e *Engine) RestoreMap(name string, sizeX, sizeZ uint16, tiles []model.TileStatic) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.store.CreateMap(name, sizeX, sizeZ)
	if err != nil {
		return err
	}
	for i, t := range tiles {
		if err := e.store.SetTile(m.TileStart+uint16(i), t); err != nil {
			return err
		}
	}
	return e.store.FinalizeMap(nil)
}

// --- player surface ---

// EnterWorld places a registered first-time player at the starting tile.
func (e *Engine) EnterWorld(player string) error {
	e.mu.Lock()
	if !e.identity.IsRegistered(player) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRegistered, player)
	}
	now := e.now()
	err := e.tracker.EnterWorld(player, now)
	var tile uint16
	if err == nil {
		tile = e.tracker.Player(player).CurrentTile
	}
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.emit(Event{Kind: EventEntered, Player: player, To: tile, Arrival: now})
	return nil
}

// Move validates the path and relocates the player.
func (e *Engine) Move(player string, path []uint16) (uint8, route.Route, error) {
	e.mu.Lock()
	now := e.now()
	var from uint16
	if p := e.tracker.Player(player); p != nil {
		from = p.CurrentTile
	}
	turns, r, err := e.tracker.Move(player, path, now)
	e.mu.Unlock()

	if err != nil {
		return 0, route.Route{}, err
	}
	e.emit(Event{
		Kind:    EventMoved,
		Player:  player,
		From:    from,
		To:      path[len(path)-1],
		Turns:   turns,
		Arrival: now + int64(turns)*int64(e.tracker.TurnDuration()),
	})
	return turns, r, nil
}

// Freeze blocks a player's future moves until the given unix time.
// System only.
func (e *Engine) Freeze(cap auth.Capability, player string, until int64) error {
	if err := cap.Require(auth.RoleSystem); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Freeze(player, until)
}

// Unfreeze clears a player's freeze. System only.
func (e *Engine) Unfreeze(cap auth.Capability, player string) error {
	if err := cap.Require(auth.RoleSystem); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Unfreeze(player)
}

// --- read surface ---

// Tile returns a copy of an initialized tile's static data.
func (e *Engine) Tile(idx uint16) (model.TileStatic, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.store.Static(idx)
	if err != nil {
		return model.TileStatic{}, err
	}
	return *t, nil
}

// TileRange returns copies of up to take tiles starting at skip.
func (e *Engine) TileRange(skip, take int) []model.TileStatic {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.StaticRange(skip, take)
}

// TileDynamic returns the tile's mutable view. Ownership is delegated to
// the deed collaborator when one is wired.
func (e *Engine) TileDynamic(idx uint16) (DynamicTileView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	dyn, err := e.store.Dynamic(idx)
	if err != nil {
		return DynamicTileView{}, err
	}
	view := DynamicTileView{Remaining: append([]uint32(nil), dyn.Remaining...)}
	for p := dyn.ChainHead; p != nil; p = p.ChainNext {
		view.Players = append(view.Players, p.PlayerID)
	}
	if e.deeds != nil {
		if owner, ok := e.deeds.OwnerOf(idx); ok {
			view.Owner = owner
		}
	}
	return view, nil
}

// PlayersOnTile walks the tile's chain newest-first.
func (e *Engine) PlayersOnTile(tile uint16, start string, max int) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.PlayersOnTile(tile, start, max)
}

// PlayerLocation returns the player's tile and whether it can interact.
func (e *Engine) PlayerLocation(player string) (uint16, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Location(player, e.now())
}

// PlayerTravelData returns the player's full travel view.
func (e *Engine) PlayerTravelData(player string) (nav.TravelData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Travel(player, e.now())
}

// PlayerHasEntered reports whether the player ever entered the world.
func (e *Engine) PlayerHasEntered(player string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.HasEntered(player)
}

// TileAdjacentTo reports hex-grid adjacency.
func (e *Engine) TileAdjacentTo(a, b uint16) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Adjacent(a, b)
}

// TileAlongRoute answers whether tile lies along the route near the given
// sample, relative to elapsed travel time.
func (e *Engine) TileAlongRoute(tile uint16, r route.Route, sampleIndex uint8, destination uint16, arrival int64, pos route.Position) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return route.AlongRoute(tile, r, sampleIndex, destination, arrival, e.now(), pos, e.store.Adjacent)
}

// Maps returns copies of all map records.
func (e *Engine) Maps() []model.Map {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Map, 0, len(e.store.Maps()))
	for _, m := range e.store.Maps() {
		out = append(out, *m)
	}
	return out
}

// Navigations returns copies of every navigation record, for persistence
// and snapshots.
func (e *Engine) Navigations() []model.PlayerNavigation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Navigations()
}

// RestoreNavigation reinstalls a persisted navigation record.
func (e *Engine) RestoreNavigation(rec model.PlayerNavigation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Restore(rec)
}
