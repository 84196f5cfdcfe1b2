package main

import (
	"log/slog"
	"sync/atomic"

	"github.com/orvandal/gridworld/internal/config"
)

// identityAllowlist is the single-binary stand-in for the external
// player-identity collaborator: players named in the config are
// registered, everyone else is not.
type identityAllowlist struct {
	allowAll bool
	players  map[string]struct{}
}

func newIdentityAllowlist(cfg config.WorldServer) *identityAllowlist {
	a := &identityAllowlist{
		allowAll: cfg.AllowAllPlayers,
		players:  make(map[string]struct{}, len(cfg.RegisteredPlayers)),
	}
	for _, p := range cfg.RegisteredPlayers {
		a.players[p] = struct{}{}
	}
	return a
}

func (a *identityAllowlist) IsRegistered(player string) bool {
	if a.allowAll {
		return player != ""
	}
	_, ok := a.players[player]
	return ok
}

// loggingClaimNotifier stands in for the external land-ownership
// collaborator. It tracks the running claimable supply and logs each
// increase; a real deployment replaces it with the land-deed system's
// client.
type loggingClaimNotifier struct {
	supply atomic.Uint64
}

func (n *loggingClaimNotifier) IncreaseClaimableSupply(count uint32) error {
	total := n.supply.Add(uint64(count))
	slog.Info("claimable supply increased", "count", count, "total", total)
	return nil
}
