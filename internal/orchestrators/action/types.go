package action

import (
	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/dice"
)

// SubmitInput defines the request for submitting a turn action.
// ExpectedVersion, when set, must match the current state version.
type SubmitInput struct {
	InviteCode      string
	UserID          string
	Action          entities.Action
	ExpectedVersion *int64
}

// SubmitOutput defines the response for a resolved action
type SubmitOutput struct {
	Result  *Result
	Turn    entities.TurnState
	Version int64
}

// RerollInput defines the request for replaying the last critical failure
type RerollInput struct {
	InviteCode string
	UserID     string
}

// Result describes what an action did
type Result struct {
	Type            entities.ActionType `json:"type"`
	ActorID         string              `json:"actorId"`
	ActorName       string              `json:"actorName"`
	TargetID        string              `json:"targetId,omitempty"`
	TargetName      string              `json:"targetName,omitempty"`
	Hit             bool                `json:"hit"`
	Critical        bool                `json:"critical"`
	CriticalFailure bool                `json:"criticalFailure"`
	Damage          int                 `json:"damage"`
	Healing         int                 `json:"healing"`
	TargetDefeated  bool                `json:"targetDefeated"`
	Moved           int                 `json:"moved,omitempty"`
	Rolls           []*dice.Result      `json:"rolls,omitempty"`
	CanReroll       bool                `json:"canReroll"`
	Rerolled        bool                `json:"rerolled"`
	Description     string              `json:"description"`
}
