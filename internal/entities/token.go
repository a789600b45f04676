package entities

import "time"

// TokenType classifies what a token represents
type TokenType string

// Token types
const (
	TokenTypePlayer TokenType = "player"
	TokenTypeNPC    TokenType = "npc"
	TokenTypeProp   TokenType = "prop"
)

// IsValid reports whether t is a known token type
func (t TokenType) IsValid() bool {
	switch t {
	case TokenTypePlayer, TokenTypeNPC, TokenTypeProp:
		return true
	}
	return false
}

// Facing is one of the eight compass directions
type Facing string

// Facings
const (
	FacingNorth     Facing = "n"
	FacingNorthEast Facing = "ne"
	FacingEast      Facing = "e"
	FacingSouthEast Facing = "se"
	FacingSouth     Facing = "s"
	FacingSouthWest Facing = "sw"
	FacingWest      Facing = "w"
	FacingNorthWest Facing = "nw"
)

// IsValid reports whether f is a known facing
func (f Facing) IsValid() bool {
	switch f {
	case FacingNorth, FacingNorthEast, FacingEast, FacingSouthEast,
		FacingSouth, FacingSouthWest, FacingWest, FacingNorthWest:
		return true
	}
	return false
}

// FacingToward returns the facing from one point toward another,
// keeping current when the points are equal
func FacingToward(from, to Point, current Facing) Facing {
	dx, dy := sign(to.X-from.X), sign(to.Y-from.Y)
	switch {
	case dx == 0 && dy < 0:
		return FacingNorth
	case dx > 0 && dy < 0:
		return FacingNorthEast
	case dx > 0 && dy == 0:
		return FacingEast
	case dx > 0 && dy > 0:
		return FacingSouthEast
	case dx == 0 && dy > 0:
		return FacingSouth
	case dx < 0 && dy > 0:
		return FacingSouthWest
	case dx < 0 && dy == 0:
		return FacingWest
	case dx < 0 && dy < 0:
		return FacingNorthWest
	}
	return current
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// TokenStatus is the display state of a token
type TokenStatus string

// Token statuses
const (
	TokenStatusActive   TokenStatus = "active"
	TokenStatusDefeated TokenStatus = "defeated"
	TokenStatusHidden   TokenStatus = "hidden"
)

// MapToken positions an entity on a map. CharacterID and NPCInstanceID are
// weak references resolved on read.
type MapToken struct {
	ID            string      `json:"id"`
	MapID         string      `json:"mapId"`
	TokenType     TokenType   `json:"tokenType"`
	CharacterID   string      `json:"characterId,omitempty"`
	NPCInstanceID string      `json:"npcInstanceId,omitempty"`
	Label         string      `json:"label,omitempty"`
	X             int         `json:"x"`
	Y             int         `json:"y"`
	Facing        Facing      `json:"facing"`
	Status        TokenStatus `json:"status"`
	IsVisible     bool        `json:"isVisible"`
	HitPoints     *int        `json:"hitPoints,omitempty"`
	MaxHitPoints  *int        `json:"maxHitPoints,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// EntityID returns the id of whatever the token stands for
func (t *MapToken) EntityID() string {
	switch t.TokenType {
	case TokenTypePlayer:
		return t.CharacterID
	case TokenTypeNPC:
		return t.NPCInstanceID
	}
	return ""
}

// Position returns the token's coordinate
func (t *MapToken) Position() Point {
	return Point{X: t.X, Y: t.Y}
}
