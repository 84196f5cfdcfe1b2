package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orvandal/gridworld/internal/model"
)

// MapRepository persists finalized maps and their tile statics.
type MapRepository struct {
	pool *pgxpool.Pool
}

// NewMapRepository returns a repository over the given pool.
func NewMapRepository(pool *pgxpool.Pool) *MapRepository {
	return &MapRepository{pool: pool}
}

// SaveMap stores a finalized map and bulk-inserts its tiles in one
// transaction. Tiles are copied with pgx's CopyFrom.
func (r *MapRepository) SaveMap(ctx context.Context, m model.Map, tiles []model.TileStatic) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning map save: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO maps (name, size_x, size_z, tile_start, finalized)
		 VALUES ($1, $2, $3, $4, TRUE)
		 ON CONFLICT (name) DO NOTHING`,
		m.Name, int32(m.SizeX), int32(m.SizeZ), int32(m.TileStart),
	)
	if err != nil {
		return fmt.Errorf("inserting map %q: %w", m.Name, err)
	}

	rows := make([][]any, 0, len(tiles))
	for i, t := range tiles {
		resources, err := json.Marshal(t.Resources)
		if err != nil {
			return fmt.Errorf("encoding resources of tile %d: %w", i, err)
		}
		rows = append(rows, []any{
			int32(m.TileStart) + int32(i), m.Name,
			int16(t.Landmass), int16(t.Biome), int16(t.Terrain),
			int16(t.Elevation), int16(t.WaterLevel), int16(t.Vegetation),
			int16(t.Rock), int16(t.Wildlife), int16(t.RiverEdges),
			t.HasRoad, t.HasLake, int16(t.Safety), resources,
		})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"tiles"},
		[]string{"idx", "map_name", "landmass", "biome", "terrain", "elevation",
			"water_level", "vegetation", "rock", "wildlife", "river_edges",
			"has_road", "has_lake", "safety", "resources"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copying tiles of %q: %w", m.Name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing map %q: %w", m.Name, err)
	}
	return nil
}

// StoredMap is one persisted map with its tiles, in index order.
type StoredMap struct {
	Map   model.Map
	Tiles []model.TileStatic
}

// LoadMaps returns every persisted map with its tiles, ordered by tile
// start so the world can be rebuilt contiguously.
func (r *MapRepository) LoadMaps(ctx context.Context) ([]StoredMap, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name, size_x, size_z, tile_start, finalized
		 FROM maps ORDER BY tile_start`)
	if err != nil {
		return nil, fmt.Errorf("querying maps: %w", err)
	}
	defer rows.Close()

	var out []StoredMap
	for rows.Next() {
		var (
			m                   model.Map
			sizeX, sizeZ, start int32
		)
		if err := rows.Scan(&m.Name, &sizeX, &sizeZ, &start, &m.Finalized); err != nil {
			return nil, fmt.Errorf("scanning map: %w", err)
		}
		m.SizeX, m.SizeZ, m.TileStart = uint16(sizeX), uint16(sizeZ), uint16(start)
		out = append(out, StoredMap{Map: m})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating maps: %w", err)
	}

	for i := range out {
		tiles, err := r.loadTiles(ctx, out[i].Map)
		if err != nil {
			return nil, err
		}
		out[i].Tiles = tiles
	}
	return out, nil
}

func (r *MapRepository) loadTiles(ctx context.Context, m model.Map) ([]model.TileStatic, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT landmass, biome, terrain, elevation, water_level, vegetation,
		        rock, wildlife, river_edges, has_road, has_lake, safety, resources
		 FROM tiles WHERE map_name = $1 ORDER BY idx`, m.Name)
	if err != nil {
		return nil, fmt.Errorf("querying tiles of %q: %w", m.Name, err)
	}
	defer rows.Close()

	tiles := make([]model.TileStatic, 0, m.TileCount())
	for rows.Next() {
		var (
			t                                  model.TileStatic
			landmass, biome, terrain           int16
			elevation, waterLevel, vegetation  int16
			rock, wildlife, riverEdges, safety int16
			resources                          []byte
		)
		err := rows.Scan(&landmass, &biome, &terrain, &elevation, &waterLevel,
			&vegetation, &rock, &wildlife, &riverEdges, &t.HasRoad, &t.HasLake,
			&safety, &resources)
		if err != nil {
			return nil, fmt.Errorf("scanning tile of %q: %w", m.Name, err)
		}
		t.Landmass = uint8(landmass)
		t.Biome = model.Biome(biome)
		t.Terrain = model.Terrain(terrain)
		t.Elevation = uint8(elevation)
		t.WaterLevel = uint8(waterLevel)
		t.Vegetation = uint8(vegetation)
		t.Rock = uint8(rock)
		t.Wildlife = uint8(wildlife)
		t.RiverEdges = uint8(riverEdges)
		t.Safety = uint8(safety)
		if err := json.Unmarshal(resources, &t.Resources); err != nil {
			return nil, fmt.Errorf("decoding resources of %q: %w", m.Name, err)
		}
		tiles = append(tiles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tiles of %q: %w", m.Name, err)
	}
	return tiles, nil
}
