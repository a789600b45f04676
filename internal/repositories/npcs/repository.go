// Package npcs persists NPC definitions and their per-session instances
package npcs

import (
	"context"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=npcsmock github.com/KirkDiggler/tabletop-api/internal/repositories/npcs Repository

// Repository defines the interface for NPC persistence
type Repository interface {
	// GetDefinition loads a template by slug
	// Returns errors.NotFound for unknown slugs
	GetDefinition(ctx context.Context, input GetDefinitionInput) (*GetDefinitionOutput, error)

	// ListDefinitions returns every template ordered by slug
	ListDefinitions(ctx context.Context, input ListDefinitionsInput) (*ListDefinitionsOutput, error)

	// CreateInstance inserts a placed NPC
	// Returns errors.NotFound if the slug or game doesn't exist
	CreateInstance(ctx context.Context, input CreateInstanceInput) (*CreateInstanceOutput, error)

	// GetInstance loads an instance by id
	// Returns errors.NotFound if the instance doesn't exist
	GetInstance(ctx context.Context, input GetInstanceInput) (*GetInstanceOutput, error)

	// UpdateInstance writes health, status effects and disposition
	// Returns errors.NotFound if the instance doesn't exist
	UpdateInstance(ctx context.Context, input UpdateInstanceInput) (*UpdateInstanceOutput, error)

	// ListInstancesForGame returns a session's instances in placement order,
	// optionally limited to one map
	ListInstancesForGame(ctx context.Context, input ListInstancesForGameInput) (*ListInstancesForGameOutput, error)
}

// GetDefinitionInput defines the input for loading a template
type GetDefinitionInput struct {
	Slug string
}

// GetDefinitionOutput defines the output for loading a template
type GetDefinitionOutput struct {
	Definition *entities.NPCDefinition
}

// ListDefinitionsInput defines the input for listing templates
type ListDefinitionsInput struct{}

// ListDefinitionsOutput defines the output for listing templates
type ListDefinitionsOutput struct {
	Definitions []*entities.NPCDefinition
}

// CreateInstanceInput defines the input for creating an instance
type CreateInstanceInput struct {
	Instance *entities.NPCInstance
}

// CreateInstanceOutput defines the output for creating an instance
type CreateInstanceOutput struct {
	Instance *entities.NPCInstance
}

// GetInstanceInput defines the input for loading an instance
type GetInstanceInput struct {
	ID string
}

// GetInstanceOutput defines the output for loading an instance
type GetInstanceOutput struct {
	Instance *entities.NPCInstance
}

// UpdateInstanceInput defines the input for updating an instance
type UpdateInstanceInput struct {
	Instance *entities.NPCInstance
}

// UpdateInstanceOutput defines the output for updating an instance
type UpdateInstanceOutput struct {
	Instance *entities.NPCInstance
}

// ListInstancesForGameInput defines the input for listing instances
type ListInstancesForGameInput struct {
	GameID string
	MapID  string
}

// ListInstancesForGameOutput defines the output for listing instances
type ListInstancesForGameOutput struct {
	Instances []*entities.NPCInstance
}
