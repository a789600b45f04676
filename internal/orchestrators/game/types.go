package game

import (
	"github.com/KirkDiggler/tabletop-api/internal/entities"
)

// CreateGameInput defines the request for hosting a new session
type CreateGameInput struct {
	HostID       string
	HostEmail    string
	Quest        entities.Quest
	World        string
	StartingArea string
}

// CreateGameOutput defines the response for hosting a new session
type CreateGameOutput struct {
	Session *entities.GameSession
}

// GetGameInput defines the request for fetching a session
type GetGameInput struct {
	InviteCode string
	UserID     string
}

// GetGameOutput defines the response for fetching a session
type GetGameOutput struct {
	Session *entities.GameSession
	IsHost  bool
	Roster  []*entities.RosterEntry
}

// ListGamesInput defines the request for listing a user's sessions
type ListGamesInput struct {
	UserID string
}

// ListGamesOutput defines the response for listing a user's sessions
type ListGamesOutput struct {
	Sessions []*entities.GameSession
}

// JoinGameInput defines the request for joining with a character
type JoinGameInput struct {
	InviteCode  string
	PlayerID    string
	PlayerEmail string
	CharacterID string
}

// JoinGameOutput defines the response for joining with a character.
// Changed is false when the player was already on the roster with that character.
type JoinGameOutput struct {
	Entry   *entities.RosterEntry
	Session *entities.GameSession
	Changed bool
}

// UpdateStatusInput defines the request for ending a session
type UpdateStatusInput struct {
	InviteCode string
	UserID     string
	Status     entities.GameStatus
}

// UpdateStatusOutput defines the response for ending a session
type UpdateStatusOutput struct {
	Session *entities.GameSession
}

// StartEncounterInput defines the request for rolling initiative
type StartEncounterInput struct {
	InviteCode string
	UserID     string
}

// InitiativeRoll records how an initiative value was reached
type InitiativeRoll struct {
	EntityID    string            `json:"entityId"`
	Type        entities.TurnType `json:"type"`
	Name        string            `json:"name"`
	Roll        int               `json:"roll"`
	Modifier    int               `json:"modifier"`
	Initiative  int               `json:"initiative"`
	Description string            `json:"description"`
}

// StartEncounterOutput defines the response for rolling initiative
type StartEncounterOutput struct {
	Turn    entities.TurnState
	Rolls   []InitiativeRoll
	Version int64
}

// EndEncounterInput defines the request for ending combat
type EndEncounterInput struct {
	InviteCode string
	UserID     string
}

// EndEncounterOutput defines the response for ending combat
type EndEncounterOutput struct {
	Version int64
}

// GetStateInput defines the request for a polling snapshot
type GetStateInput struct {
	InviteCode string
	UserID     string
}

// GetStateOutput defines the response for a polling snapshot
type GetStateOutput struct {
	Snapshot *entities.GameStateSnapshot
	// Data is Snapshot already encoded as JSON
	Data    []byte
	Version int64
}

// GetLogInput defines the request for reading the activity log
type GetLogInput struct {
	InviteCode string
	UserID     string
	Limit      int
}

// GetLogOutput defines the response for reading the activity log
type GetLogOutput struct {
	Entries []*entities.ActivityLogEntry
}

// ClearLogInput defines the request for clearing the activity log
type ClearLogInput struct {
	InviteCode string
	UserID     string
}

// ClearLogOutput defines the response for clearing the activity log
type ClearLogOutput struct {
	Cleared int64
	Version int64
}
