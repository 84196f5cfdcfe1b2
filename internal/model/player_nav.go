package model

import "github.com/orvandal/gridworld/internal/route"

// PlayerNavigation is one player's movement record: current tile, travel
// state, and the intrusive links of the per-tile player chain. Records
// live in an arena keyed by player ID; ChainNext/ChainPrev thread the
// players standing on (or traveling toward) the same tile, newest first.
type PlayerNavigation struct {
	PlayerID string

	ChainNext *PlayerNavigation
	ChainPrev *PlayerNavigation

	MoveBudget  uint32
	CurrentTile uint16

	// ArrivalAt is the unix time the player arrives (or arrived) at
	// CurrentTile. Zero means the player has never entered the world.
	ArrivalAt int64

	Route route.Route

	FrozenUntil int64
}

// HasEntered reports whether the player ever entered the world.
func (p *PlayerNavigation) HasEntered() bool {
	return p.ArrivalAt != 0
}

// Traveling reports whether the player is still on the way to CurrentTile.
func (p *PlayerNavigation) Traveling(now int64) bool {
	return p.ArrivalAt > now
}

// Frozen reports whether a privileged freeze currently blocks movement.
func (p *PlayerNavigation) Frozen(now int64) bool {
	return p.FrozenUntil > now
}
