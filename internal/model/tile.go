package model

// Biome classifies a tile's climate zone.
type Biome uint8

const (
	BiomeNone Biome = iota
	BiomeTundra
	BiomeTaiga
	BiomeTemperateForest
	BiomeGrassland
	BiomeSavanna
	BiomeDesert
	BiomeRainforest
	BiomeSwamp
	BiomeOcean
)

// Terrain classifies a tile's surface shape.
type Terrain uint8

const (
	TerrainNone Terrain = iota
	TerrainPlains
	TerrainHills
	TerrainMountains
	TerrainValley
	TerrainCoast
	TerrainSea
)

// ResourceKind identifies a harvestable resource on a tile.
type ResourceKind uint8

const (
	ResourceNone ResourceKind = iota
	ResourceWood
	ResourceStone
	ResourceIron
	ResourceGold
	ResourceFish
	ResourceGame
)

// Resource is one deposit on a tile: what it is and how much the tile
// starts with.
type Resource struct {
	Kind   ResourceKind
	Amount uint32
}

// River edge flags, one bit per hex edge.
const (
	RiverEdgeW uint8 = 1 << iota
	RiverEdgeE
	RiverEdgeNW
	RiverEdgeNE
	RiverEdgeSW
	RiverEdgeSE
)

// TileStatic holds the terrain data of one grid cell. Static fields are
// immutable once the owning map is finalized.
type TileStatic struct {
	Initialized bool
	MapIndex    uint8
	Landmass    uint8
	Biome       Biome
	Terrain     Terrain
	Elevation   uint8
	WaterLevel  uint8
	Vegetation  uint8
	Rock        uint8
	Wildlife    uint8
	RiverEdges  uint8
	HasRoad     bool
	HasLake     bool
	Safety      uint8 // 0-100
	Resources   []Resource
}

// Underwater reports whether the tile is submerged.
func (t *TileStatic) Underwater() bool {
	return t.WaterLevel > t.Elevation
}

// TileDynamic holds the mutable per-tile state: the head of the intrusive
// player chain and the remaining amount of each resource deposit
// (parallel to TileStatic.Resources).
type TileDynamic struct {
	ChainHead *PlayerNavigation
	Remaining []uint32
}
