// Package initiative orders combatants and passes the turn between them
// with the rpg-toolkit initiative tracker
package initiative

import (
	"sort"

	"github.com/KirkDiggler/rpg-toolkit/core"
	toolkitinitiative "github.com/KirkDiggler/rpg-toolkit/rulebooks/dnd5e/initiative"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
)

// slot adapts an initiative entry to a toolkit entity
type slot struct {
	entry entities.InitiativeEntry
}

func (s *slot) GetID() string {
	return s.entry.EntityID
}

func (s *slot) GetType() string {
	return string(s.entry.Type)
}

// Order sorts rolled entries highest first. Ties keep the order the entries
// were rolled in.
func Order(rolled []entities.InitiativeEntry) []entities.InitiativeEntry {
	order := append([]entities.InitiativeEntry(nil), rolled...)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Initiative > order[j].Initiative
	})
	return order
}

// Start returns the turn state for a fresh encounter: the top of the order
// holds turn 1
func Start(order []entities.InitiativeEntry) entities.TurnState {
	turn := entities.TurnState{InitiativeOrder: order}
	if len(order) == 0 {
		return turn
	}

	first := newTracker(order).Current().(*slot).entry
	turn.ActiveTurn = &entities.ActiveTurn{
		Type:       first.Type,
		EntityID:   first.EntityID,
		TurnNumber: 1,
	}
	return turn
}

// Advance hands the turn to the next entry that skip does not reject. A new
// round of the tracker bumps TurnNumber. Per-turn counters are reset and the
// caller sets Speed for the new holder. When every entry is skipped the
// immediate next entry is used.
func Advance(turn *entities.TurnState, skip func(entities.InitiativeEntry) bool) entities.InitiativeEntry {
	n := len(turn.InitiativeOrder)
	if n == 0 {
		turn.ActiveTurn = nil
		return entities.InitiativeEntry{}
	}

	turnNumber := 1
	if turn.ActiveTurn != nil {
		turnNumber = turn.ActiveTurn.TurnNumber
	}

	tracker := newTracker(turn.InitiativeOrder)
	current := activeIndex(turn)
	for i := 0; i < current; i++ {
		tracker.Next()
	}

	candidate := func(step int) *slot {
		if current < 0 && step == 0 {
			return tracker.Current().(*slot)
		}
		return tracker.Next().(*slot)
	}

	var chosen, fallback *slot
	chosenRound, fallbackRound := 1, 1
	for step := 0; step < n; step++ {
		s := candidate(step)
		if fallback == nil {
			fallback, fallbackRound = s, tracker.Round()
		}
		if skip == nil || !skip(s.entry) {
			chosen, chosenRound = s, tracker.Round()
			break
		}
	}
	if chosen == nil {
		chosen, chosenRound = fallback, fallbackRound
	}

	turn.ActiveTurn = &entities.ActiveTurn{
		Type:       chosen.entry.Type,
		EntityID:   chosen.entry.EntityID,
		TurnNumber: turnNumber + chosenRound - 1,
	}
	return chosen.entry
}

func newTracker(order []entities.InitiativeEntry) *toolkitinitiative.Tracker {
	list := make([]core.Entity, len(order))
	for i, e := range order {
		list[i] = &slot{entry: e}
	}
	return toolkitinitiative.New(list)
}

func activeIndex(turn *entities.TurnState) int {
	if turn.ActiveTurn == nil {
		return -1
	}
	for i, e := range turn.InitiativeOrder {
		if e.EntityID == turn.ActiveTurn.EntityID && e.Type == turn.ActiveTurn.Type {
			return i
		}
	}
	return -1
}
