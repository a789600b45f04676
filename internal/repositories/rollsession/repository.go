// Package rollsession stores the last resolved roll of each actor so a
// critical failure can be replayed once with fresh dice
package rollsession

import (
	"context"
	"encoding/json"
	"time"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=rollsessionmock github.com/KirkDiggler/tabletop-api/internal/repositories/rollsession Repository

// RollSession is the most recent roll-based action of one entity in one game
type RollSession struct {
	GameID   string `json:"gameId"`
	EntityID string `json:"entityId"`

	// User who submitted the action; the host for NPC turns
	ActorID string `json:"actorId"`

	// Turn the roll happened in; a reroll is only allowed during the same turn
	TurnNumber int `json:"turnNumber"`

	// State version the action committed at; identifies the roll
	Version int64 `json:"version"`

	// Encoded action request, replayed verbatim on reroll
	Action json.RawMessage `json:"action"`

	Rolls []Roll `json:"rolls"`

	// Set when the deciding d20 came up as the ruleset's critical failure
	CriticalFailure bool `json:"criticalFailure"`

	// Set once the roll has been replayed
	Rerolled bool `json:"rerolled"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Roll is a single dice roll result
type Roll struct {
	// What the roll decided, e.g. "attack" or "damage"
	Purpose string `json:"purpose"`

	// Dice notation that was rolled (e.g., "1d20+5")
	Notation string `json:"notation"`

	// Individual dice values
	Dice []int `json:"dice"`

	DiceTotal int `json:"diceTotal"`
	Modifier  int `json:"modifier"`
	Total     int `json:"total"`

	// Human-readable description of the roll
	Description string `json:"description"`
}

// CreateInput contains parameters for storing a roll session
type CreateInput struct {
	GameID          string
	EntityID        string
	ActorID         string
	TurnNumber      int
	Version         int64
	Action          json.RawMessage
	Rolls           []Roll
	CriticalFailure bool
	Rerolled        bool
	TTL             time.Duration
}

// CreateOutput contains the stored roll session
type CreateOutput struct {
	Session *RollSession
}

// GetInput contains parameters for retrieving a roll session
type GetInput struct {
	GameID   string
	EntityID string
}

// GetOutput contains the retrieved roll session
type GetOutput struct {
	Session *RollSession
}

// DeleteInput contains parameters for deleting a roll session
type DeleteInput struct {
	GameID   string
	EntityID string
}

// DeleteOutput contains the result of deleting a roll session
type DeleteOutput struct {
	Deleted bool
}

// Repository defines the interface for roll session storage operations
type Repository interface {
	// Create stores a roll session, replacing any previous one for the entity
	Create(ctx context.Context, input CreateInput) (*CreateOutput, error)

	// Get retrieves a roll session
	// Returns errors.NotFound when there is none or it has expired
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// Update replaces an existing roll session, keeping its expiry
	Update(ctx context.Context, session *RollSession) error

	// Delete removes a roll session
	Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error)
}
