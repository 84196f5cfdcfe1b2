// Package grid owns the world's tile grid: map construction and
// finalization, the dense tile arenas, offset-hex adjacency, and the
// movement cost model with its memo cache.
package grid

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/orvandal/gridworld/internal/model"
)

var (
	ErrMapNameTaken           = errors.New("map name already used")
	ErrMapTooLarge            = errors.New("map size exceeds hard cap")
	ErrMapUnderConstruction   = errors.New("previous map not finalized")
	ErrNoMapUnderConstruction = errors.New("no map under construction")
	ErrMapIncomplete          = errors.New("not every tile initialized")
	ErrTileOutOfRange         = errors.New("tile index outside current map")
	ErrTileSpaceExhausted     = errors.New("global tile index space exhausted")
	ErrNoSuchTile             = errors.New("no such tile")
)

const (
	// MaxMapTiles caps a single map's area.
	MaxMapTiles = 4096

	// worldTileCap is the global index space: tile indices must fit the
	// 16-bit slots of the packed route word.
	worldTileCap = 1 << 16
)

// construction tracks the one map that may be under construction.
type construction struct {
	mapIdx      int
	initialized uint32
}

// Store holds every map and the dense global tile arenas. Tile indices are
// contiguous across maps; the total ordering of map construction is what
// keeps them dense without a secondary allocator.
//
// Store is not safe for concurrent use on its own; the engine serializes
// all access.
type Store struct {
	maps    []*model.Map
	byName  map[string]int
	static  []model.TileStatic
	dynamic []model.TileDynamic
	under   *construction
}

// NewStore returns an empty world grid.
func NewStore() *Store {
	return &Store{byName: make(map[string]int)}
}

// CreateMap opens a new map for construction. It fails if the name is
// taken, the area exceeds MaxMapTiles, the previous map is still under
// construction, or the global 16-bit tile space would overflow.
func (s *Store) CreateMap(name string, sizeX, sizeZ uint16) (*model.Map, error) {
	if s.under != nil {
		return nil, ErrMapUnderConstruction
	}
	if _, ok := s.byName[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrMapNameTaken, name)
	}
	count := uint32(sizeX) * uint32(sizeZ)
	if count == 0 || count > MaxMapTiles {
		return nil, fmt.Errorf("%w: %dx%d", ErrMapTooLarge, sizeX, sizeZ)
	}
	start := uint32(len(s.static))
	if start+count > worldTileCap {
		return nil, ErrTileSpaceExhausted
	}

	m := &model.Map{
		Name:      name,
		SizeX:     sizeX,
		SizeZ:     sizeZ,
		TileStart: uint16(start),
	}
	s.maps = append(s.maps, m)
	s.byName[name] = len(s.maps) - 1
	s.static = append(s.static, make([]model.TileStatic, count)...)
	s.dynamic = append(s.dynamic, make([]model.TileDynamic, count)...)
	s.under = &construction{mapIdx: len(s.maps) - 1}

	slog.Info("map created", "name", name, "sizeX", sizeX, "sizeZ", sizeZ, "tileStart", start)
	return m, nil
}

// SetTile writes one tile's static data into the map under construction.
// Re-writing an already initialized tile is allowed until finalization;
// only the first write counts toward the completeness counter.
func (s *Store) SetTile(idx uint16, data model.TileStatic) error {
	if s.under == nil {
		return ErrNoMapUnderConstruction
	}
	m := s.maps[s.under.mapIdx]
	if !m.Contains(idx) {
		return fmt.Errorf("%w: %d not in [%d, %d)", ErrTileOutOfRange, idx, m.TileStart, uint32(m.TileStart)+m.TileCount())
	}
	if !s.static[idx].Initialized {
		s.under.initialized++
	}
	data.Initialized = true
	data.MapIndex = uint8(s.under.mapIdx)
	s.static[idx] = data

	remaining := make([]uint32, len(data.Resources))
	for i, res := range data.Resources {
		remaining[i] = res.Amount
	}
	s.dynamic[idx] = model.TileDynamic{Remaining: remaining}
	return nil
}

// CheckTile verifies that idx can be written: a map is under construction
// and the index is inside its range. No state changes.
func (s *Store) CheckTile(idx uint16) error {
	if s.under == nil {
		return ErrNoMapUnderConstruction
	}
	m := s.maps[s.under.mapIdx]
	if !m.Contains(idx) {
		return fmt.Errorf("%w: %d not in [%d, %d)", ErrTileOutOfRange, idx, m.TileStart, uint32(m.TileStart)+m.TileCount())
	}
	return nil
}

// FinalizeMap seals the map under construction. Every tile in the map's
// range must be initialized. notify is called with the newly claimable
// tile count before the map is committed: if it fails, the map stays
// under construction and no state changes.
func (s *Store) FinalizeMap(notify func(count uint32) error) error {
	if s.under == nil {
		return ErrNoMapUnderConstruction
	}
	m := s.maps[s.under.mapIdx]
	if s.under.initialized != m.TileCount() {
		return fmt.Errorf("%w: %d of %d tiles set", ErrMapIncomplete, s.under.initialized, m.TileCount())
	}
	if notify != nil {
		if err := notify(m.TileCount()); err != nil {
			return fmt.Errorf("notifying claimable supply: %w", err)
		}
	}
	m.Finalized = true
	s.under = nil
	slog.Info("map finalized", "name", m.Name, "tiles", m.TileCount())
	return nil
}

// Maps returns all maps, in creation order.
func (s *Store) Maps() []*model.Map {
	return s.maps
}

// MapByName returns the named map.
func (s *Store) MapByName(name string) (*model.Map, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.maps[i], true
}

// MapOf returns the map owning the global tile index.
func (s *Store) MapOf(idx uint16) (*model.Map, bool) {
	if int(idx) >= len(s.static) {
		return nil, false
	}
	t := &s.static[idx]
	if !t.Initialized {
		// Tiles under construction know their map too.
		for _, m := range s.maps {
			if m.Contains(idx) {
				return m, true
			}
		}
		return nil, false
	}
	return s.maps[t.MapIndex], true
}

// SameMap reports whether two tile indices belong to the same map.
func (s *Store) SameMap(a, b uint16) bool {
	m, ok := s.MapOf(a)
	return ok && m.Contains(b)
}

// Static returns the static data of an initialized tile.
func (s *Store) Static(idx uint16) (*model.TileStatic, error) {
	if int(idx) >= len(s.static) || !s.static[idx].Initialized {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchTile, idx)
	}
	return &s.static[idx], nil
}

// StaticRange returns up to take initialized-or-not tiles starting at skip.
func (s *Store) StaticRange(skip, take int) []model.TileStatic {
	if skip < 0 || skip >= len(s.static) || take <= 0 {
		return nil
	}
	end := min(skip+take, len(s.static))
	out := make([]model.TileStatic, end-skip)
	copy(out, s.static[skip:end])
	return out
}

// Dynamic returns the mutable data of a tile.
func (s *Store) Dynamic(idx uint16) (*model.TileDynamic, error) {
	if int(idx) >= len(s.dynamic) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchTile, idx)
	}
	return &s.dynamic[idx], nil
}

// TileCount returns the total allocated tile space, maps under
// construction included.
func (s *Store) TileCount() int {
	return len(s.static)
}
