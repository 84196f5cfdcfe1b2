package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/orvandal/gridworld/internal/engine"
	"github.com/orvandal/gridworld/internal/model"
)

// Persister mirrors engine state changes into PostgreSQL. It consumes
// engine events: finalized maps are saved with their tiles, and player
// enter/move updates upsert the navigation record.
//
// Writes are best-effort relative to the in-memory world: the engine has
// already committed when an event fires, so a failed write is logged and
// retried at the next snapshot rather than unwinding the operation.
type Persister struct {
	eng  *engine.Engine
	maps *MapRepository
	navs *NavRepository
}

// NewPersister wires a persister over the given repositories.
func NewPersister(eng *engine.Engine, maps *MapRepository, navs *NavRepository) *Persister {
	return &Persister{eng: eng, maps: maps, navs: navs}
}

// HandleEvent is the engine observer entry point.
func (p *Persister) HandleEvent(ev engine.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch ev.Kind {
	case engine.EventMapFinalized:
		p.saveMap(ctx, ev)
	case engine.EventEntered, engine.EventMoved:
		p.saveNavigation(ctx, ev.Player)
	}
}

func (p *Persister) saveMap(ctx context.Context, ev engine.Event) {
	var m model.Map
	found := false
	for _, cand := range p.eng.Maps() {
		if cand.Name == ev.MapName {
			m, found = cand, true
			break
		}
	}
	if !found {
		slog.Error("finalized map missing from engine", "map", ev.MapName)
		return
	}
	tiles := p.eng.TileRange(int(m.TileStart), int(m.TileCount()))
	if err := p.maps.SaveMap(ctx, m, tiles); err != nil {
		slog.Error("persisting map failed", "map", m.Name, "err", err)
		return
	}
	slog.Info("map persisted", "map", m.Name, "tiles", len(tiles))
}

func (p *Persister) saveNavigation(ctx context.Context, player string) {
	for _, rec := range p.eng.Navigations() {
		if rec.PlayerID != player {
			continue
		}
		if err := p.navs.Upsert(ctx, rec); err != nil {
			slog.Error("persisting navigation failed", "player", player, "err", err)
		}
		return
	}
}

// SyncAll flushes every navigation record, used by the periodic snapshot
// loop to catch up after transient write failures.
func (p *Persister) SyncAll(ctx context.Context) error {
	for _, rec := range p.eng.Navigations() {
		if err := p.navs.Upsert(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// RestoreWorld rebuilds the engine from persisted maps and navigation.
func RestoreWorld(ctx context.Context, eng *engine.Engine, maps *MapRepository, navs *NavRepository) error {
	stored, err := maps.LoadMaps(ctx)
	if err != nil {
		return err
	}
	for _, sm := range stored {
		if err := eng.RestoreMap(sm.Map.Name, sm.Map.SizeX, sm.Map.SizeZ, sm.Tiles); err != nil {
			return err
		}
	}
	recs, err := navs.LoadAll(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := eng.RestoreNavigation(rec); err != nil {
			slog.Warn("skipping bad navigation record", "player", rec.PlayerID, "err", err)
		}
	}
	slog.Info("world restored from database", "maps", len(stored), "players", len(recs))
	return nil
}
