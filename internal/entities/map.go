package entities

import "time"

// TerrainType names the ground of a tile
type TerrainType string

// Terrain types
const (
	TerrainGrass     TerrainType = "grass"
	TerrainDirt      TerrainType = "dirt"
	TerrainSand      TerrainType = "sand"
	TerrainStone     TerrainType = "stone"
	TerrainFloor     TerrainType = "floor"
	TerrainWall      TerrainType = "wall"
	TerrainWater     TerrainType = "water"
	TerrainDeepWater TerrainType = "deep_water"
	TerrainMud       TerrainType = "mud"
	TerrainMarsh     TerrainType = "marsh"
	TerrainForest    TerrainType = "forest"
	TerrainRock      TerrainType = "rock"
)

// TerrainTypes lists every terrain type accepted by terrain edits
var TerrainTypes = []TerrainType{
	TerrainGrass, TerrainDirt, TerrainSand, TerrainStone, TerrainFloor, TerrainWall,
	TerrainWater, TerrainDeepWater, TerrainMud, TerrainMarsh, TerrainForest, TerrainRock,
}

// IsValid reports whether t is a known terrain type
func (t TerrainType) IsValid() bool {
	for _, known := range TerrainTypes {
		if t == known {
			return true
		}
	}
	return false
}

// FeatureType is an optional decoration on a tile
type FeatureType string

// Features placed by the generator
const (
	FeatureTree     FeatureType = "tree"
	FeatureBush     FeatureType = "bush"
	FeatureBoulder  FeatureType = "boulder"
	FeatureRubble   FeatureType = "rubble"
	FeatureReeds    FeatureType = "reeds"
	FeatureDeadTree FeatureType = "dead_tree"
	FeatureFlowers  FeatureType = "flowers"
	FeatureCrystal  FeatureType = "crystal"
	FeatureStalag   FeatureType = "stalagmite"
	FeatureChest    FeatureType = "chest"
	FeatureTorch    FeatureType = "torch"
	FeaturePillar   FeatureType = "pillar"
)

// Map is a tactical grid attached to a session
type Map struct {
	ID              string       `json:"id"`
	GameID          string       `json:"gameId,omitempty"`
	Name            string       `json:"name,omitempty"`
	Width           int          `json:"width"`
	Height          int          `json:"height"`
	DefaultTerrain  TerrainType  `json:"defaultTerrain"`
	GeneratorPreset string       `json:"generatorPreset,omitempty"`
	Seed            *string      `json:"seed"`
	IsGenerated     bool         `json:"isGenerated"`
	Metadata        *MapMetadata `json:"metadata,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// InBounds reports whether (x, y) lies on the map
func (m *Map) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// MapTile is one cell of a map; (MapID, X, Y) is unique
type MapTile struct {
	MapID       string      `json:"mapId,omitempty"`
	X           int         `json:"x"`
	Y           int         `json:"y"`
	TerrainType TerrainType `json:"terrainType"`
	Elevation   int         `json:"elevation"`
	IsBlocked   bool        `json:"isBlocked"`
	HasFog      bool        `json:"hasFog"`
	FeatureType FeatureType `json:"featureType,omitempty"`
}

// Point is a grid coordinate
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// MapMetadata summarizes a generated map
type MapMetadata struct {
	Preset        string              `json:"preset"`
	Width         int                 `json:"width"`
	Height        int                 `json:"height"`
	Seed          string              `json:"seed"`
	TerrainCounts map[TerrainType]int `json:"terrainCounts"`
	BlockedCount  int                 `json:"blockedCount"`
	Features      []PlacedFeature     `json:"features"`
	SpawnPoints   []Point             `json:"spawnPoints"`
	Rooms         int                 `json:"rooms,omitempty"`
}

// PlacedFeature records where the generator put a feature
type PlacedFeature struct {
	Type FeatureType `json:"type"`
	X    int         `json:"x"`
	Y    int         `json:"y"`
}

// BlocksByDefault reports whether a tile of this terrain is impassable
// unless an edit says otherwise
func (t TerrainType) BlocksByDefault() bool {
	switch t {
	case TerrainWall, TerrainRock, TerrainDeepWater:
		return true
	}
	return false
}

// FeatureTypes lists every feature accepted by terrain edits
var FeatureTypes = []FeatureType{
	FeatureTree, FeatureBush, FeatureBoulder, FeatureRubble, FeatureReeds, FeatureDeadTree,
	FeatureFlowers, FeatureCrystal, FeatureStalag, FeatureChest, FeatureTorch, FeaturePillar,
}

// IsValid reports whether f is a known feature
func (f FeatureType) IsValid() bool {
	for _, known := range FeatureTypes {
		if f == known {
			return true
		}
	}
	return false
}
