package entities

// TurnType says whether a player or the host (for an NPC) acts
type TurnType string

// Turn types
const (
	TurnTypePlayer TurnType = "player"
	TurnTypeNPC    TurnType = "npc"
)

// InitiativeEntry is one slot in the initiative order
type InitiativeEntry struct {
	EntityID   string   `json:"entityId"`
	Type       TurnType `json:"type"`
	Initiative int      `json:"initiative"`
	Name       string   `json:"name,omitempty"`
}

// ActiveTurn is the single current turn holder and what they have spent
type ActiveTurn struct {
	Type            TurnType `json:"type"`
	EntityID        string   `json:"entityId"`
	TurnNumber      int      `json:"turnNumber"`
	MovementUsed    int      `json:"movementUsed"`
	MajorActionUsed bool     `json:"majorActionUsed"`
	MinorActionUsed bool     `json:"minorActionUsed"`
	Speed           int      `json:"speed"`

	// State version of the roll replayed this turn, if any
	RerolledVersion int64 `json:"rerolledVersion,omitempty"`
}

// RemainingMovement is speed minus movement used, never negative
func (a *ActiveTurn) RemainingMovement() int {
	if a == nil || a.MovementUsed >= a.Speed {
		return 0
	}
	return a.Speed - a.MovementUsed
}

// TurnState is the encounter part of a session's state. ActiveTurn is nil
// outside an encounter.
type TurnState struct {
	ActiveTurn      *ActiveTurn       `json:"activeTurn"`
	InitiativeOrder []InitiativeEntry `json:"initiativeOrder"`
}

// InEncounter reports whether there is an active turn holder
func (t *TurnState) InEncounter() bool {
	return t.ActiveTurn != nil && len(t.InitiativeOrder) > 0
}

// IsHolder reports whether (entityID, typ) holds the active turn
func (t *TurnState) IsHolder(entityID string, typ TurnType) bool {
	return t.InEncounter() && t.ActiveTurn.EntityID == entityID && t.ActiveTurn.Type == typ
}

// Clone returns a deep copy
func (t TurnState) Clone() TurnState {
	out := TurnState{}
	if t.ActiveTurn != nil {
		active := *t.ActiveTurn
		out.ActiveTurn = &active
	}
	if t.InitiativeOrder != nil {
		out.InitiativeOrder = append([]InitiativeEntry(nil), t.InitiativeOrder...)
	}
	return out
}
