// Package games persists game sessions, their roster and their versioned state
package games

import (
	"context"
	"time"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=gamesmock github.com/KirkDiggler/tabletop-api/internal/repositories/games Repository

// Repository defines the interface for session persistence
type Repository interface {
	// Create inserts a session and its state row at version 0
	// Returns errors.AlreadyExists if the id or invite code is taken
	Create(ctx context.Context, input CreateInput) (*CreateOutput, error)

	// Get loads a session by id
	// Returns errors.NotFound if the session doesn't exist
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// GetByInviteCode loads a session by its public code
	// Returns errors.NotFound if the code is unknown
	GetByInviteCode(ctx context.Context, input GetByInviteCodeInput) (*GetByInviteCodeOutput, error)

	// InviteCodeExists reports whether code is already used
	InviteCodeExists(ctx context.Context, code string) (bool, error)

	// ListForUser returns sessions the user hosts or has joined, newest first
	ListForUser(ctx context.Context, input ListForUserInput) (*ListForUserOutput, error)

	// Update writes status and current map
	// Returns errors.NotFound if the session doesn't exist
	Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error)

	// GetState loads the versioned state of a session
	// Returns errors.NotFound if the session doesn't exist
	GetState(ctx context.Context, input GetStateInput) (*GetStateOutput, error)

	// CommitState increments the version by one if it still equals ExpectedVersion
	// Returns errors.Aborted if another writer got there first
	// Returns errors.NotFound if the session doesn't exist
	CommitState(ctx context.Context, input CommitStateInput) (*CommitStateOutput, error)

	// UpsertPlayer adds a roster entry or replaces the character of an existing one
	UpsertPlayer(ctx context.Context, input UpsertPlayerInput) (*UpsertPlayerOutput, error)

	// GetPlayer returns a player's roster entry
	// Returns errors.NotFound if the player hasn't joined
	GetPlayer(ctx context.Context, input GetPlayerInput) (*GetPlayerOutput, error)

	// ListPlayers returns the roster in join order
	ListPlayers(ctx context.Context, input ListPlayersInput) (*ListPlayersOutput, error)

	// ListActiveForCharacter returns ids of active sessions a character is rostered in
	ListActiveForCharacter(ctx context.Context, input ListActiveForCharacterInput) (*ListActiveForCharacterOutput, error)
}

// CreateInput defines the input for creating a session
type CreateInput struct {
	Session *entities.GameSession
}

// CreateOutput defines the output for creating a session
type CreateOutput struct {
	Session *entities.GameSession
}

// GetInput defines the input for getting a session
type GetInput struct {
	ID string
}

// GetOutput defines the output for getting a session
type GetOutput struct {
	Session *entities.GameSession
}

// GetByInviteCodeInput defines the input for looking up a session by code
type GetByInviteCodeInput struct {
	InviteCode string
}

// GetByInviteCodeOutput defines the output for looking up a session by code
type GetByInviteCodeOutput struct {
	Session *entities.GameSession
}

// ListForUserInput defines the input for listing a user's sessions
type ListForUserInput struct {
	UserID string
}

// ListForUserOutput defines the output for listing a user's sessions
type ListForUserOutput struct {
	Sessions []*entities.GameSession
}

// UpdateInput defines the input for updating a session
type UpdateInput struct {
	Session *entities.GameSession
}

// UpdateOutput defines the output for updating a session
type UpdateOutput struct{}

// GetStateInput defines the input for loading state
type GetStateInput struct {
	GameID string
}

// GetStateOutput defines the output for loading state
type GetStateOutput struct {
	State *entities.GameState
}

// CommitStateInput defines the input for a compare-and-swap state write.
// A nil Turn keeps the stored turn state.
type CommitStateInput struct {
	GameID          string
	ExpectedVersion int64
	Turn            *entities.TurnState
	UpdatedAt       time.Time
}

// CommitStateOutput defines the output for a compare-and-swap state write
type CommitStateOutput struct {
	Version int64
}

// UpsertPlayerInput defines the input for adding to the roster
type UpsertPlayerInput struct {
	Entry *entities.RosterEntry
}

// UpsertPlayerOutput defines the output for adding to the roster
type UpsertPlayerOutput struct {
	Entry *entities.RosterEntry
}

// GetPlayerInput defines the input for a roster lookup
type GetPlayerInput struct {
	GameID   string
	PlayerID string
}

// GetPlayerOutput defines the output for a roster lookup
type GetPlayerOutput struct {
	Entry *entities.RosterEntry
}

// ListPlayersInput defines the input for listing the roster
type ListPlayersInput struct {
	GameID string
}

// ListPlayersOutput defines the output for listing the roster
type ListPlayersOutput struct {
	Entries []*entities.RosterEntry
}

// ListActiveForCharacterInput defines the input for finding a character's sessions
type ListActiveForCharacterInput struct {
	CharacterID string
}

// ListActiveForCharacterOutput defines the output for finding a character's sessions
type ListActiveForCharacterOutput struct {
	GameIDs []string
}
