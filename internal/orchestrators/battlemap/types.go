package battlemap

import (
	"github.com/KirkDiggler/tabletop-api/internal/engine/mapgen"
	"github.com/KirkDiggler/tabletop-api/internal/entities"
)

// GenerateMapInput defines the request for generating a session map
type GenerateMapInput struct {
	InviteCode string
	UserID     string
	Name       string
	Preset     mapgen.Preset
	Width      int
	Height     int
	Seed       string
}

// GenerateMapOutput defines the response for generating a session map
type GenerateMapOutput struct {
	Map     *entities.Map
	Tiles   int
	Tokens  []*entities.MapToken
	Version int64
}

// TerrainEdit changes one tile. IsBlocked defaults from the terrain type.
type TerrainEdit struct {
	X           int
	Y           int
	TerrainType entities.TerrainType
	Elevation   int
	IsBlocked   *bool
	HasFog      bool
	FeatureType entities.FeatureType
}

// EditTerrainInput defines the request for editing tiles
type EditTerrainInput struct {
	InviteCode string
	UserID     string
	Edits      []TerrainEdit
}

// EditTerrainOutput defines the response for editing tiles
type EditTerrainOutput struct {
	Tiles   []*entities.MapTile
	Version int64
}

// GetMapInput defines the request for reading the current map
type GetMapInput struct {
	InviteCode string
	UserID     string
}

// GetMapOutput defines the response for reading the current map
type GetMapOutput struct {
	Map    *entities.Map
	Tiles  []*entities.MapTile
	Tokens []*entities.MapToken
}

// MoveTokenInput defines the request for moving a token outside combat
type MoveTokenInput struct {
	InviteCode string
	UserID     string
	TokenID    string
	X          int
	Y          int
	Facing     entities.Facing
}

// MoveTokenOutput defines the response for moving a token outside combat
type MoveTokenOutput struct {
	Token   *entities.MapToken
	Version int64
}

// ListNPCsInput defines the request for listing NPCs
type ListNPCsInput struct {
	InviteCode string
	UserID     string
}

// ListNPCsOutput defines the response for listing NPCs. Instances are those
// on the current map.
type ListNPCsOutput struct {
	Definitions []*entities.NPCDefinition
	Instances   []*entities.NPCInstance
}

// PlaceNPCInput defines the request for placing an NPC on the current map
type PlaceNPCInput struct {
	InviteCode  string
	UserID      string
	Slug        string
	X           int
	Y           int
	Label       string
	Disposition entities.Disposition
}

// PlaceNPCOutput defines the response for placing an NPC
type PlaceNPCOutput struct {
	Instance *entities.NPCInstance
	Token    *entities.MapToken
	Version  int64
}
