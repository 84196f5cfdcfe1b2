// Package snapshot writes and reads zstd-compressed world snapshots: the
// full grid plus every player navigation record, as versioned JSON. Used
// for fast boot without a database and for offline inspection.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/orvandal/gridworld/internal/engine"
	"github.com/orvandal/gridworld/internal/model"
	"github.com/orvandal/gridworld/internal/route"
)

// Version is bumped on incompatible snapshot layout changes.
const Version = 1

// Header identifies a snapshot file.
type Header struct {
	Version int   `json:"version"`
	TakenAt int64 `json:"taken_at"`
}

// MapV1 is one map with its tiles, in index order.
type MapV1 struct {
	Name  string             `json:"name"`
	SizeX uint16             `json:"size_x"`
	SizeZ uint16             `json:"size_z"`
	Tiles []model.TileStatic `json:"tiles"`
}

// PlayerV1 is one navigation record.
type PlayerV1 struct {
	PlayerID    string `json:"player_id"`
	MoveBudget  uint32 `json:"move_budget"`
	CurrentTile uint16 `json:"current_tile"`
	ArrivalAt   int64  `json:"arrival_at"`
	Route       []byte `json:"route,omitempty"`
	FrozenUntil int64  `json:"frozen_until,omitempty"`
}

// SnapshotV1 is the complete world state.
type SnapshotV1 struct {
	Header  Header     `json:"header"`
	Maps    []MapV1    `json:"maps"`
	Players []PlayerV1 `json:"players"`
}

// Capture builds a snapshot of the engine's current state.
func Capture(eng *engine.Engine) *SnapshotV1 {
	snap := &SnapshotV1{
		Header: Header{Version: Version, TakenAt: time.Now().Unix()},
	}
	for _, m := range eng.Maps() {
		if !m.Finalized {
			continue
		}
		snap.Maps = append(snap.Maps, MapV1{
			Name:  m.Name,
			SizeX: m.SizeX,
			SizeZ: m.SizeZ,
			Tiles: eng.TileRange(int(m.TileStart), int(m.TileCount())),
		})
	}
	for _, rec := range eng.Navigations() {
		p := PlayerV1{
			PlayerID:    rec.PlayerID,
			MoveBudget:  rec.MoveBudget,
			CurrentTile: rec.CurrentTile,
			ArrivalAt:   rec.ArrivalAt,
			FrozenUntil: rec.FrozenUntil,
		}
		if !rec.Route.IsZero() {
			p.Route = append([]byte(nil), rec.Route[:]...)
		}
		snap.Players = append(snap.Players, p)
	}
	return snap
}

// Restore replays a snapshot into a fresh engine.
func Restore(eng *engine.Engine, snap *SnapshotV1) error {
	if snap.Header.Version != Version {
		return fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	for _, m := range snap.Maps {
		if err := eng.RestoreMap(m.Name, m.SizeX, m.SizeZ, m.Tiles); err != nil {
			return fmt.Errorf("restoring map %q: %w", m.Name, err)
		}
	}
	for _, p := range snap.Players {
		rec := model.PlayerNavigation{
			PlayerID:    p.PlayerID,
			MoveBudget:  p.MoveBudget,
			CurrentTile: p.CurrentTile,
			ArrivalAt:   p.ArrivalAt,
			FrozenUntil: p.FrozenUntil,
		}
		if len(p.Route) == route.Size {
			copy(rec.Route[:], p.Route)
		}
		if err := eng.RestoreNavigation(rec); err != nil {
			return fmt.Errorf("restoring player %q: %w", p.PlayerID, err)
		}
	}
	return nil
}

// Write atomically writes a snapshot to path as zstd-compressed JSON.
func Write(path string, snap *SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}

	bw := bufio.NewWriter(f)
	zw, err := zstd.NewWriter(bw)
	if err != nil {
		f.Close()
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		zw.Close()
		f.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("flushing zstd: %w", err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming snapshot: %w", err)
	}
	return nil
}

// Read loads a snapshot from path.
func Read(path string) (*SnapshotV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()

	var snap SnapshotV1
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}
