package initiative_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tabletop-api/internal/engine/initiative"
	"github.com/KirkDiggler/tabletop-api/internal/entities"
)

type InitiativeTestSuite struct {
	suite.Suite
	state entities.TurnState
}

func TestInitiativeSuite(t *testing.T) {
	suite.Run(t, new(InitiativeTestSuite))
}

func (s *InitiativeTestSuite) SetupTest() {
	s.state = entities.TurnState{
		InitiativeOrder: []entities.InitiativeEntry{
			{EntityID: "char-1", Type: entities.TurnTypePlayer, Initiative: 18},
			{EntityID: "npc-1", Type: entities.TurnTypeNPC, Initiative: 12},
			{EntityID: "char-2", Type: entities.TurnTypePlayer, Initiative: 7},
		},
		ActiveTurn: &entities.ActiveTurn{
			Type:            entities.TurnTypePlayer,
			EntityID:        "char-1",
			TurnNumber:      1,
			MovementUsed:    3,
			MajorActionUsed: true,
			Speed:           6,
		},
	}
}

func (s *InitiativeTestSuite) TestOrderIsDescendingAndStable() {
	order := initiative.Order([]entities.InitiativeEntry{
		{EntityID: "char-1", Type: entities.TurnTypePlayer, Initiative: 9},
		{EntityID: "char-2", Type: entities.TurnTypePlayer, Initiative: 15},
		{EntityID: "npc-1", Type: entities.TurnTypeNPC, Initiative: 9},
		{EntityID: "npc-2", Type: entities.TurnTypeNPC, Initiative: 20},
	})

	ids := make([]string, len(order))
	for i, e := range order {
		ids[i] = e.EntityID
	}
	s.Equal([]string{"npc-2", "char-2", "char-1", "npc-1"}, ids)
}

func (s *InitiativeTestSuite) TestStart() {
	s.Run("first entry holds turn one", func() {
		turn := initiative.Start(s.state.InitiativeOrder)

		s.Require().NotNil(turn.ActiveTurn)
		s.True(turn.IsHolder("char-1", entities.TurnTypePlayer))
		s.Equal(1, turn.ActiveTurn.TurnNumber)
	})

	s.Run("empty order has no holder", func() {
		turn := initiative.Start(nil)

		s.Nil(turn.ActiveTurn)
		s.False(turn.InEncounter())
	})
}

func (s *InitiativeTestSuite) TestAdvanceResetsCounters() {
	next := initiative.Advance(&s.state, nil)

	s.Equal("npc-1", next.EntityID)
	s.True(s.state.IsHolder("npc-1", entities.TurnTypeNPC))
	s.Equal(1, s.state.ActiveTurn.TurnNumber)
	s.Equal(0, s.state.ActiveTurn.MovementUsed)
	s.False(s.state.ActiveTurn.MajorActionUsed)
	s.False(s.state.ActiveTurn.MinorActionUsed)
}

func (s *InitiativeTestSuite) TestAdvanceWrapsAndIncrementsTurnNumber() {
	initiative.Advance(&s.state, nil)
	initiative.Advance(&s.state, nil)
	next := initiative.Advance(&s.state, nil)

	s.Equal("char-1", next.EntityID)
	s.Equal(2, s.state.ActiveTurn.TurnNumber)
}

func (s *InitiativeTestSuite) TestAdvanceSkipsDefeated() {
	skip := func(e entities.InitiativeEntry) bool { return e.EntityID == "npc-1" }

	next := initiative.Advance(&s.state, skip)
	s.Equal("char-2", next.EntityID)
	s.Equal(1, s.state.ActiveTurn.TurnNumber)

	next = initiative.Advance(&s.state, skip)
	s.Equal("char-1", next.EntityID)
	s.Equal(2, s.state.ActiveTurn.TurnNumber)
}

func (s *InitiativeTestSuite) TestSkippingAcrossTheEndStillWraps() {
	s.state.ActiveTurn.EntityID = "npc-1"
	s.state.ActiveTurn.Type = entities.TurnTypeNPC

	next := initiative.Advance(&s.state, func(e entities.InitiativeEntry) bool { return e.EntityID == "char-2" })
	s.Equal("char-1", next.EntityID)
	s.Equal(2, s.state.ActiveTurn.TurnNumber)
}

func (s *InitiativeTestSuite) TestEverythingSkippedFallsBackToNext() {
	next := initiative.Advance(&s.state, func(entities.InitiativeEntry) bool { return true })

	s.Equal("npc-1", next.EntityID)
	s.Equal(1, s.state.ActiveTurn.TurnNumber)
}

func (s *InitiativeTestSuite) TestExactlyOneHolder() {
	for i := 0; i < 7; i++ {
		holders := 0
		for _, e := range s.state.InitiativeOrder {
			if s.state.IsHolder(e.EntityID, e.Type) {
				holders++
			}
		}
		s.Equal(1, holders)
		initiative.Advance(&s.state, nil)
	}
	s.Equal(3, s.state.ActiveTurn.TurnNumber)
}
