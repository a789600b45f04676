// Package tokens persists positioned map tokens
package tokens

import (
	"context"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=tokensmock github.com/KirkDiggler/tabletop-api/internal/repositories/tokens Repository

// Repository defines the interface for token persistence. Map legality is
// checked by the placement service, not here.
type Repository interface {
	// Create inserts a token
	// Returns errors.NotFound if the map doesn't exist
	Create(ctx context.Context, input CreateInput) (*CreateOutput, error)

	// Get loads a token by id
	// Returns errors.NotFound if the token doesn't exist
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// Update writes position, facing, status, visibility and hit points
	// Returns errors.NotFound if the token doesn't exist
	Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error)

	// ListForMap returns a map's tokens in placement order
	ListForMap(ctx context.Context, input ListForMapInput) (*ListForMapOutput, error)

	// FindByEntity returns the token standing for a character or NPC instance;
	// Token is nil when there is none
	FindByEntity(ctx context.Context, input FindByEntityInput) (*FindByEntityOutput, error)

	// Delete removes one token
	// Returns errors.NotFound if the token doesn't exist
	Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error)

	// DeleteForMap removes every token on a map
	DeleteForMap(ctx context.Context, input DeleteForMapInput) (*DeleteForMapOutput, error)
}

// CreateInput defines the input for creating a token
type CreateInput struct {
	Token *entities.MapToken
}

// CreateOutput defines the output for creating a token
type CreateOutput struct {
	Token *entities.MapToken
}

// GetInput defines the input for getting a token
type GetInput struct {
	ID string
}

// GetOutput defines the output for getting a token
type GetOutput struct {
	Token *entities.MapToken
}

// UpdateInput defines the input for updating a token
type UpdateInput struct {
	Token *entities.MapToken
}

// UpdateOutput defines the output for updating a token
type UpdateOutput struct {
	Token *entities.MapToken
}

// ListForMapInput defines the input for listing a map's tokens
type ListForMapInput struct {
	MapID string
}

// ListForMapOutput defines the output for listing a map's tokens
type ListForMapOutput struct {
	Tokens []*entities.MapToken
}

// FindByEntityInput defines the input for finding an entity's token
type FindByEntityInput struct {
	MapID     string
	TokenType entities.TokenType
	EntityID  string
}

// FindByEntityOutput defines the output for finding an entity's token
type FindByEntityOutput struct {
	Token *entities.MapToken
}

// DeleteInput defines the input for deleting a token
type DeleteInput struct {
	ID string
}

// DeleteOutput defines the output for deleting a token
type DeleteOutput struct{}

// DeleteForMapInput defines the input for clearing a map
type DeleteForMapInput struct {
	MapID string
}

// DeleteForMapOutput defines the output for clearing a map
type DeleteForMapOutput struct {
	Deleted int64
}
