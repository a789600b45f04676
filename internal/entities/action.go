package entities

import (
	"encoding/json"

	"github.com/KirkDiggler/tabletop-api/internal/errors"
)

// ActionType discriminates the Action union on the wire
type ActionType string

// Action types
const (
	ActionTypeMove        ActionType = "move"
	ActionTypeBasicAttack ActionType = "basic_attack"
	ActionTypeCastSpell   ActionType = "cast_spell"
	ActionTypeUseItem     ActionType = "use_item"
	ActionTypeEndTurn     ActionType = "end_turn"
)

// Action is the closed set of things a turn holder can do. Implementations
// live in this package only.
type Action interface {
	ActionType() ActionType
	isAction()
}

// MoveAction moves the actor's token to (X, Y) along the shortest walkable path
type MoveAction struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Facing Facing `json:"facing,omitempty"`
}

// BasicAttackAction attacks a character or NPC instance with the equipped
// weapon (or the NPC's natural attack)
type BasicAttackAction struct {
	TargetID string `json:"targetId"`
}

// CastSpellAction casts a ruleset spell, optionally at a target
type CastSpellAction struct {
	Spell    string `json:"spell"`
	TargetID string `json:"targetId,omitempty"`
}

// UseItemAction uses an inventory item, on the actor when TargetID is empty
type UseItemAction struct {
	ItemID   string `json:"itemId"`
	TargetID string `json:"targetId,omitempty"`
}

// EndTurnAction passes the turn
type EndTurnAction struct{}

// ActionType implements Action
func (MoveAction) ActionType() ActionType { return ActionTypeMove }

// ActionType implements Action
func (BasicAttackAction) ActionType() ActionType { return ActionTypeBasicAttack }

// ActionType implements Action
func (CastSpellAction) ActionType() ActionType { return ActionTypeCastSpell }

// ActionType implements Action
func (UseItemAction) ActionType() ActionType { return ActionTypeUseItem }

// ActionType implements Action
func (EndTurnAction) ActionType() ActionType { return ActionTypeEndTurn }

func (MoveAction) isAction()        {}
func (BasicAttackAction) isAction() {}
func (CastSpellAction) isAction()   {}
func (UseItemAction) isAction()     {}
func (EndTurnAction) isAction()     {}

type actionEnvelope struct {
	Type ActionType `json:"type"`
}

// DecodeAction reads a {"type": ...} tagged action
func DecodeAction(data []byte) (Action, error) {
	var env actionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.InvalidArgumentf("malformed action: %v", err)
	}

	var action Action
	var err error
	switch env.Type {
	case ActionTypeMove:
		var a MoveAction
		err = json.Unmarshal(data, &a)
		action = a
	case ActionTypeBasicAttack:
		var a BasicAttackAction
		err = json.Unmarshal(data, &a)
		action = a
	case ActionTypeCastSpell:
		var a CastSpellAction
		err = json.Unmarshal(data, &a)
		action = a
	case ActionTypeUseItem:
		var a UseItemAction
		err = json.Unmarshal(data, &a)
		action = a
	case ActionTypeEndTurn:
		action = EndTurnAction{}
	case "":
		return nil, errors.InvalidArgument("action type is required")
	default:
		return nil, errors.InvalidArgumentf("unknown action type %q", env.Type)
	}
	if err != nil {
		return nil, errors.InvalidArgumentf("malformed %s action: %v", env.Type, err)
	}

	return action, nil
}

// EncodeAction writes an action with its type tag
func EncodeAction(action Action) ([]byte, error) {
	if action == nil {
		return nil, errors.InvalidArgument("action is required")
	}

	body, err := json.Marshal(action)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode action")
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, errors.Wrap(err, "failed to encode action")
	}
	tag, _ := json.Marshal(action.ActionType())
	fields["type"] = tag

	out, err := json.Marshal(fields)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode action")
	}
	return out, nil
}
