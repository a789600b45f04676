package entities

import "time"

// GameStatus is the lifecycle state of a session
type GameStatus string

// Game statuses; sessions are never hard-deleted
const (
	GameStatusActive    GameStatus = "active"
	GameStatusCompleted GameStatus = "completed"
	GameStatusAbandoned GameStatus = "abandoned"
)

// IsValid reports whether s is a known status
func (s GameStatus) IsValid() bool {
	switch s {
	case GameStatusActive, GameStatusCompleted, GameStatusAbandoned:
		return true
	}
	return false
}

// Quest is set at creation and never changes
type Quest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Objectives  []string `json:"objectives,omitempty"`
}

// GameSession is one hosted game, located by its invite code
type GameSession struct {
	ID           string     `json:"id"`
	InviteCode   string     `json:"inviteCode"`
	HostID       string     `json:"hostId"`
	HostEmail    string     `json:"hostEmail,omitempty"`
	Quest        Quest      `json:"quest"`
	World        string     `json:"world,omitempty"`
	StartingArea string     `json:"startingArea,omitempty"`
	Status       GameStatus `json:"status"`
	CurrentMapID string     `json:"currentMapId,omitempty"`
	StateVersion int64      `json:"stateVersion"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsHost reports whether userID hosts the session
func (g *GameSession) IsHost(userID string) bool {
	return g != nil && userID != "" && g.HostID == userID
}

// RosterEntry pairs a player with the character they brought to a session
type RosterEntry struct {
	GameID      string    `json:"gameId"`
	PlayerID    string    `json:"playerId"`
	PlayerEmail string    `json:"playerEmail,omitempty"`
	CharacterID string    `json:"characterId"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// GameState is the versioned, mutable part of a session
type GameState struct {
	GameID    string    `json:"gameId"`
	Version   int64     `json:"version"`
	Turn      TurnState `json:"turn"`
	UpdatedAt time.Time `json:"updatedAt"`
}
