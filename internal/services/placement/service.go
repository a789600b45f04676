// Package placement enforces map legality for tokens: positions must be on
// the map and on a walkable tile. Game-rule limits such as remaining movement
// belong to the action processor.
package placement

import (
	"context"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
)

//go:generate mockgen -destination=mock/mock_service.go -package=placementmock github.com/KirkDiggler/tabletop-api/internal/services/placement Service

// Service defines token and NPC placement
type Service interface {
	// Position checks
	ValidatePosition(ctx context.Context, input *ValidatePositionInput) (*ValidatePositionOutput, error)

	// Tokens
	PlaceToken(ctx context.Context, input *PlaceTokenInput) (*PlaceTokenOutput, error)
	SpawnToken(ctx context.Context, input *SpawnTokenInput) (*SpawnTokenOutput, error)
	MoveToken(ctx context.Context, input *MoveTokenInput) (*MoveTokenOutput, error)
	UpdateTokenStatus(ctx context.Context, input *UpdateTokenStatusInput) (*UpdateTokenStatusOutput, error)
	ListTokensForMap(ctx context.Context, input *ListTokensForMapInput) (*ListTokensForMapOutput, error)
	RemoveTokensForMap(ctx context.Context, input *RemoveTokensForMapInput) (*RemoveTokensForMapOutput, error)

	// NPCs
	PlaceNPC(ctx context.Context, input *PlaceNPCInput) (*PlaceNPCOutput, error)
	ListNPCDefinitions(ctx context.Context, input *ListNPCDefinitionsInput) (*ListNPCDefinitionsOutput, error)
}

// ValidatePositionInput defines the request for a position check
type ValidatePositionInput struct {
	MapID string
	X     int
	Y     int
}

// ValidatePositionOutput defines the response for a position check
type ValidatePositionOutput struct {
	Map *entities.Map
	// Tile is nil for cells the map has no row for; those count as walkable
	Tile *entities.MapTile
}

// PlaceTokenInput defines the request for placing a token
type PlaceTokenInput struct {
	MapID         string
	TokenType     entities.TokenType
	CharacterID   string
	NPCInstanceID string
	X             int
	Y             int
	Label         string
	Facing        entities.Facing
	HitPoints     *int
	MaxHitPoints  *int
}

// PlaceTokenOutput defines the response for placing a token
type PlaceTokenOutput struct {
	Token *entities.MapToken
}

// SpawnTokenInput defines the request for placing a token on the first free
// spawn point of a map
type SpawnTokenInput struct {
	MapID         string
	TokenType     entities.TokenType
	CharacterID   string
	NPCInstanceID string
	Label         string
	HitPoints     *int
	MaxHitPoints  *int
}

// SpawnTokenOutput defines the response for spawning a token.
// Existing is true when the entity already had a token on the map.
type SpawnTokenOutput struct {
	Token    *entities.MapToken
	Existing bool
}

// MoveTokenInput defines the request for moving a token.
// An empty Facing turns the token toward its destination.
type MoveTokenInput struct {
	TokenID string
	X       int
	Y       int
	Facing  entities.Facing
}

// MoveTokenOutput defines the response for moving a token
type MoveTokenOutput struct {
	Token *entities.MapToken
	From  entities.Point
}

// UpdateTokenStatusInput defines the request for changing token status.
// Nil pointers leave the field unchanged.
type UpdateTokenStatusInput struct {
	TokenID   string
	Status    entities.TokenStatus
	HitPoints *int
	IsVisible *bool
}

// UpdateTokenStatusOutput defines the response for changing token status
type UpdateTokenStatusOutput struct {
	Token *entities.MapToken
}

// ListTokensForMapInput defines the request for listing tokens
type ListTokensForMapInput struct {
	MapID string
}

// ListTokensForMapOutput defines the response for listing tokens
type ListTokensForMapOutput struct {
	Tokens []*entities.MapToken
}

// RemoveTokensForMapInput defines the request for clearing a map's tokens
type RemoveTokensForMapInput struct {
	MapID string
}

// RemoveTokensForMapOutput defines the response for clearing a map's tokens
type RemoveTokensForMapOutput struct {
	Removed int64
}

// PlaceNPCInput defines the request for placing an NPC.
// Label names the instance; the definition name is used when empty.
type PlaceNPCInput struct {
	GameID      string
	MapID       string
	Slug        string
	X           int
	Y           int
	Label       string
	Disposition entities.Disposition
}

// PlaceNPCOutput defines the response for placing an NPC
type PlaceNPCOutput struct {
	Definition *entities.NPCDefinition
	Instance   *entities.NPCInstance
	Token      *entities.MapToken
}

// ListNPCDefinitionsInput defines the request for listing NPC templates
type ListNPCDefinitionsInput struct{}

// ListNPCDefinitionsOutput defines the response for listing NPC templates
type ListNPCDefinitionsOutput struct {
	Definitions []*entities.NPCDefinition
}
