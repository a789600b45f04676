package mapgen

import "github.com/KirkDiggler/tabletop-api/internal/entities"

// Preset names a terrain-distribution rule set
type Preset string

// Presets
const (
	PresetPlains  Preset = "plains"
	PresetForest  Preset = "forest"
	PresetSwamp   Preset = "swamp"
	PresetCave    Preset = "cave"
	PresetDungeon Preset = "dungeon"
)

// Presets lists every preset in a stable order
func Presets() []Preset {
	return []Preset{PresetPlains, PresetForest, PresetSwamp, PresetCave, PresetDungeon}
}

// band assigns terrain to noise values below upTo (0-256)
type band struct {
	upTo      int
	terrain   entities.TerrainType
	blocked   bool
	fixedElev bool
	elevation int
}

// featureRule scatters a feature on matching terrain with chance per mille
type featureRule struct {
	feature entities.FeatureType
	on      []entities.TerrainType
	chance  int
	blocks  bool
}

type presetRules struct {
	defaultTerrain entities.TerrainType
	clearTerrain   entities.TerrainType
	cell           int
	bands          []band
	features       []featureRule
	minElevation   int
	maxElevation   int
	fog            bool
	carveRooms     bool
}

var presetTable = map[Preset]presetRules{
	PresetPlains: {
		defaultTerrain: entities.TerrainGrass,
		clearTerrain:   entities.TerrainGrass,
		cell:           8,
		bands: []band{
			{upTo: 14, terrain: entities.TerrainWater, fixedElev: true, elevation: -1},
			{upTo: 40, terrain: entities.TerrainDirt},
			{upTo: 236, terrain: entities.TerrainGrass},
			{upTo: 256, terrain: entities.TerrainRock, blocked: true},
		},
		features: []featureRule{
			{feature: entities.FeatureBoulder, on: []entities.TerrainType{entities.TerrainGrass, entities.TerrainDirt}, chance: 8, blocks: true},
			{feature: entities.FeatureBush, on: []entities.TerrainType{entities.TerrainGrass}, chance: 25},
			{feature: entities.FeatureFlowers, on: []entities.TerrainType{entities.TerrainGrass}, chance: 40},
		},
		minElevation: 0,
		maxElevation: 2,
	},
	PresetForest: {
		defaultTerrain: entities.TerrainGrass,
		clearTerrain:   entities.TerrainGrass,
		cell:           4,
		bands: []band{
			{upTo: 16, terrain: entities.TerrainWater, fixedElev: true, elevation: -1},
			{upTo: 50, terrain: entities.TerrainDirt},
			{upTo: 150, terrain: entities.TerrainGrass},
			{upTo: 256, terrain: entities.TerrainForest},
		},
		features: []featureRule{
			{feature: entities.FeatureTree, on: []entities.TerrainType{entities.TerrainForest}, chance: 350, blocks: true},
			{feature: entities.FeatureTree, on: []entities.TerrainType{entities.TerrainGrass}, chance: 60, blocks: true},
			{feature: entities.FeatureBoulder, on: []entities.TerrainType{entities.TerrainGrass, entities.TerrainDirt}, chance: 10, blocks: true},
			{feature: entities.FeatureBush, on: []entities.TerrainType{entities.TerrainGrass, entities.TerrainForest}, chance: 40},
		},
		minElevation: 0,
		maxElevation: 3,
	},
	PresetSwamp: {
		defaultTerrain: entities.TerrainMarsh,
		clearTerrain:   entities.TerrainGrass,
		cell:           5,
		bands: []band{
			{upTo: 40, terrain: entities.TerrainDeepWater, blocked: true, fixedElev: true, elevation: -2},
			{upTo: 90, terrain: entities.TerrainWater, fixedElev: true, elevation: -1},
			{upTo: 170, terrain: entities.TerrainMarsh},
			{upTo: 220, terrain: entities.TerrainMud},
			{upTo: 256, terrain: entities.TerrainGrass},
		},
		features: []featureRule{
			{feature: entities.FeatureReeds, on: []entities.TerrainType{entities.TerrainWater, entities.TerrainMarsh}, chance: 120},
			{feature: entities.FeatureDeadTree, on: []entities.TerrainType{entities.TerrainMud, entities.TerrainGrass}, chance: 60, blocks: true},
		},
		minElevation: 0,
		maxElevation: 1,
	},
	PresetCave: {
		defaultTerrain: entities.TerrainStone,
		clearTerrain:   entities.TerrainStone,
		cell:           3,
		bands: []band{
			{upTo: 80, terrain: entities.TerrainRock, blocked: true},
			{upTo: 210, terrain: entities.TerrainStone},
			{upTo: 235, terrain: entities.TerrainDirt},
			{upTo: 256, terrain: entities.TerrainWater, fixedElev: true, elevation: -1},
		},
		features: []featureRule{
			{feature: entities.FeatureStalag, on: []entities.TerrainType{entities.TerrainStone}, chance: 40, blocks: true},
			{feature: entities.FeatureCrystal, on: []entities.TerrainType{entities.TerrainStone}, chance: 15},
			{feature: entities.FeatureRubble, on: []entities.TerrainType{entities.TerrainDirt}, chance: 30},
		},
		minElevation: -1,
		maxElevation: 2,
		fog:          true,
	},
	PresetDungeon: {
		defaultTerrain: entities.TerrainWall,
		clearTerrain:   entities.TerrainFloor,
		cell:           4,
		features: []featureRule{
			{feature: entities.FeaturePillar, on: []entities.TerrainType{entities.TerrainFloor}, chance: 20, blocks: true},
			{feature: entities.FeatureChest, on: []entities.TerrainType{entities.TerrainFloor}, chance: 12},
			{feature: entities.FeatureRubble, on: []entities.TerrainType{entities.TerrainFloor}, chance: 25},
		},
		fog:        true,
		carveRooms: true,
	},
}
