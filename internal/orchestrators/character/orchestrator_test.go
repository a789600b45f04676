package character_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/tabletop-api/internal/engine/rules"
	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/character"
	mockclock "github.com/KirkDiggler/tabletop-api/internal/pkg/clock/mock"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/idgen"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/characters"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/gamelog"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/games"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/tokens"
	"github.com/KirkDiggler/tabletop-api/internal/services/gamestate"
	"github.com/KirkDiggler/tabletop-api/internal/testutils"
	"github.com/KirkDiggler/tabletop-api/internal/testutils/mocks"
)

type OrchestratorTestSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	stores *testutils.Stores
	orch   character.Service
	ctx    context.Context
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

func (s *OrchestratorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	clk := mockclock.NewMockClock(s.ctrl)
	mocks.ExpectNow(clk, testutils.FixtureTime)

	s.stores = testutils.NewStores(s.T(), clk)
	state, err := gamestate.NewService(&gamestate.Config{
		DB:         s.stores.DB,
		Games:      s.stores.Games,
		Log:        s.stores.Log,
		Characters: s.stores.Characters,
		Maps:       s.stores.Maps,
		Tokens:     s.stores.Tokens,
		NPCs:       s.stores.NPCs,
		Cache:      s.stores.Snapshots,
		Clock:      clk,
	})
	s.Require().NoError(err)

	s.orch, err = character.NewOrchestrator(&character.Config{
		DB:          s.stores.DB,
		Characters:  s.stores.Characters,
		Games:       s.stores.Games,
		GameState:   state,
		Rules:       rules.Default(),
		IDGenerator: idgen.NewSequential("char"),
		Clock:       clk,
	})
	s.Require().NoError(err)
}

func (s *OrchestratorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func validSheet() character.Sheet {
	return character.Sheet{
		Name:   "Brannoc",
		Level:  2,
		Race:   "dwarf",
		Class:  "fighter",
		Stats:  entities.Stats{Strength: 16, Dexterity: 12, Constitution: 14, Intelligence: 8, Wisdom: 10, Charisma: 10},
		Skills: []string{"athletics", "lucky"},
		Inventory: []entities.Item{
			{ID: "item-axe", Name: "Battleaxe", Quantity: 1, Damage: "1d8"},
			{ID: "item-mail", Name: "Chain mail", Quantity: 1, ArmorBonus: 6},
		},
		Equipped: map[entities.EquipmentSlot]string{
			entities.SlotMainHand: "item-axe",
			entities.SlotArmor:    "item-mail",
		},
	}
}

func (s *OrchestratorTestSuite) create(playerID string) *entities.Character {
	out, err := s.orch.CreateCharacter(s.ctx, &character.CreateCharacterInput{
		PlayerID:    playerID,
		PlayerEmail: playerID + "@example.com",
		Sheet:       validSheet(),
	})
	s.Require().NoError(err)
	return out.Character
}

func (s *OrchestratorTestSuite) TestNewOrchestratorRequiresDependencies() {
	_, err := character.NewOrchestrator(nil)
	s.Assert().True(errors.IsInvalidArgument(err))

	_, err = character.NewOrchestrator(&character.Config{})
	s.Assert().True(errors.IsInvalidArgument(err))
}

func (s *OrchestratorTestSuite) TestCreateCharacterDerivesStats() {
	c := s.create("player-1")

	s.Assert().Equal("char_1", c.ID)
	s.Assert().Equal(24, c.MaxHealth, "(d10 + CON 2) x level 2")
	s.Assert().Equal(24, c.Health)
	s.Assert().Equal(4, c.MaxActionPoints)
	s.Assert().Equal(4, c.ActionPoints)
	s.Assert().Equal(5, c.Speed, "dwarf speed")

	stored, err := s.stores.Characters.Get(s.ctx, characters.GetInput{ID: c.ID})
	s.Require().NoError(err)
	s.Assert().Equal("item-axe", stored.Character.Equipped[entities.SlotMainHand])
}

func (s *OrchestratorTestSuite) TestCreateCharacterDefaultsLevel() {
	sheet := validSheet()
	sheet.Level = 0
	out, err := s.orch.CreateCharacter(s.ctx, &character.CreateCharacterInput{PlayerID: "player-1", Sheet: sheet})
	s.Require().NoError(err)
	s.Assert().Equal(1, out.Character.Level)
	s.Assert().Equal(12, out.Character.MaxHealth)
}

func (s *OrchestratorTestSuite) TestCreateCharacterValidation() {
	testCases := []struct {
		name   string
		mutate func(*character.Sheet)
	}{
		{name: "missing name", mutate: func(c *character.Sheet) { c.Name = "  " }},
		{name: "level too high", mutate: func(c *character.Sheet) { c.Level = 21 }},
		{name: "unknown class", mutate: func(c *character.Sheet) { c.Class = "necromancer" }},
		{name: "unknown race", mutate: func(c *character.Sheet) { c.Race = "dragon" }},
		{name: "stat out of range", mutate: func(c *character.Sheet) { c.Stats.Wisdom = 0 }},
		{name: "too many skills", mutate: func(c *character.Sheet) {
			c.Skills = []string{"arcana", "history", "insight", "stealth", "survival"}
		}},
		{name: "unknown skill", mutate: func(c *character.Sheet) { c.Skills = []string{"juggling"} }},
		{name: "duplicate skill", mutate: func(c *character.Sheet) { c.Skills = []string{"arcana", "arcana"} }},
		{name: "unknown slot", mutate: func(c *character.Sheet) { c.Equipped["tail"] = "item-axe" }},
		{name: "equipped item not carried", mutate: func(c *character.Sheet) { c.Equipped[entities.SlotOffHand] = "item-shield" }},
		{name: "duplicate item id", mutate: func(c *character.Sheet) { c.Inventory[1].ID = "item-axe" }},
		{name: "zero quantity", mutate: func(c *character.Sheet) { c.Inventory[0].Quantity = 0 }},
		{name: "bad damage notation", mutate: func(c *character.Sheet) { c.Inventory[0].Damage = "lots" }},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			sheet := validSheet()
			tc.mutate(&sheet)
			_, err := s.orch.CreateCharacter(s.ctx, &character.CreateCharacterInput{PlayerID: "player-1", Sheet: sheet})
			s.Require().Error(err)
			s.Assert().True(errors.IsInvalidArgument(err), "got %v", err)
		})
	}

	_, err := s.orch.CreateCharacter(s.ctx, &character.CreateCharacterInput{Sheet: validSheet()})
	s.Assert().True(errors.IsInvalidArgument(err), "player required")
}

func (s *OrchestratorTestSuite) TestGetAndListAreScopedToTheOwner() {
	mine := s.create("player-1")
	s.create("player-2")

	got, err := s.orch.GetCharacter(s.ctx, &character.GetCharacterInput{PlayerID: "player-1", CharacterID: mine.ID})
	s.Require().NoError(err)
	s.Assert().Equal("Brannoc", got.Character.Name)

	_, err = s.orch.GetCharacter(s.ctx, &character.GetCharacterInput{PlayerID: "player-2", CharacterID: mine.ID})
	s.Assert().True(errors.IsNotFound(err))

	list, err := s.orch.ListCharacters(s.ctx, &character.ListCharactersInput{PlayerID: "player-1"})
	s.Require().NoError(err)
	s.Assert().Len(list.Characters, 1)
}

func (s *OrchestratorTestSuite) TestUpdateBumpsActiveSessions() {
	c := s.create("player-1")
	active := s.stores.SeedSession(s.T(), "game-1", "ABC234", "host-1")
	done := s.stores.SeedSession(s.T(), "game-2", "DEF567", "host-1")
	done.Status = entities.GameStatusCompleted
	_, err := s.stores.Games.Update(s.ctx, games.UpdateInput{Session: done})
	s.Require().NoError(err)
	s.stores.Join(s.T(), active.ID, "player-1", c.ID)
	s.stores.Join(s.T(), done.ID, "player-1", c.ID)

	level := 3
	health := 99
	name := "Brannoc the Bold"
	out, err := s.orch.UpdateCharacter(s.ctx, &character.UpdateCharacterInput{
		PlayerID:    "player-1",
		CharacterID: c.ID,
		Name:        &name,
		Level:       &level,
		Health:      &health,
	})
	s.Require().NoError(err)

	s.Assert().Equal([]string{"game-1"}, out.Games)
	s.Assert().Equal(36, out.Character.MaxHealth)
	s.Assert().Equal(36, out.Character.Health, "health is clamped to max")
	s.Assert().Equal(5, out.Character.MaxActionPoints)
	s.Assert().Equal(int64(1), s.stores.StateVersion(s.T(), active.ID))
	s.Assert().Equal(int64(0), s.stores.StateVersion(s.T(), done.ID))

	logOut, err := s.stores.Log.List(s.ctx, gamelog.ListInput{GameID: active.ID})
	s.Require().NoError(err)
	s.Require().Len(logOut.Entries, 1)
	s.Assert().Equal(entities.LogTypeCharacterEdit, logOut.Entries[0].Type)
	s.Assert().Equal("Brannoc the Bold was updated", logOut.Entries[0].Description)
}

func (s *OrchestratorTestSuite) TestUpdateRejections() {
	c := s.create("player-1")
	active := s.stores.SeedSession(s.T(), "game-1", "ABC234", "host-1")
	s.stores.Join(s.T(), active.ID, "player-1", c.ID)

	badLevel := 0
	unknownSkills := []string{"juggling"}
	testCases := []struct {
		name  string
		input *character.UpdateCharacterInput
		check func(error) bool
	}{
		{name: "nil input", input: nil, check: errors.IsInvalidArgument},
		{name: "not the owner", input: &character.UpdateCharacterInput{PlayerID: "player-2", CharacterID: c.ID}, check: errors.IsNotFound},
		{name: "missing", input: &character.UpdateCharacterInput{PlayerID: "player-1", CharacterID: "char_404"}, check: errors.IsNotFound},
		{name: "bad level", input: &character.UpdateCharacterInput{PlayerID: "player-1", CharacterID: c.ID, Level: &badLevel}, check: errors.IsInvalidArgument},
		{name: "unknown skill", input: &character.UpdateCharacterInput{PlayerID: "player-1", CharacterID: c.ID, Skills: &unknownSkills}, check: errors.IsInvalidArgument},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.orch.UpdateCharacter(s.ctx, tc.input)
			s.Require().Error(err)
			s.Assert().True(tc.check(err), "got %v", err)
		})
	}
	s.Assert().Equal(int64(0), s.stores.StateVersion(s.T(), active.ID))
}

func (s *OrchestratorTestSuite) TestUnequipByDroppingItem() {
	c := s.create("player-1")
	inventory := []entities.Item{{ID: "item-mail", Name: "Chain mail", Quantity: 1, ArmorBonus: 6}}
	equipped := map[entities.EquipmentSlot]string{entities.SlotArmor: "item-mail"}

	out, err := s.orch.UpdateCharacter(s.ctx, &character.UpdateCharacterInput{
		PlayerID:    "player-1",
		CharacterID: c.ID,
		Inventory:   &inventory,
		Equipped:    &equipped,
	})
	s.Require().NoError(err)
	s.Assert().Nil(out.Character.EquippedItem(entities.SlotMainHand))
	s.Assert().Empty(out.Games)
}

func (s *OrchestratorTestSuite) TestDeleteKeepsTokens() {
	c := s.create("player-1")
	session := s.stores.SeedSession(s.T(), "game-1", "ABC234", "host-1")
	s.stores.Join(s.T(), session.ID, "player-1", c.ID)
	s.stores.SeedMap(s.T(), session, "map-1", 4, 4)
	s.stores.SeedToken(s.T(), &entities.MapToken{ID: "tok-1", MapID: "map-1", TokenType: entities.TokenTypePlayer, CharacterID: c.ID, X: 1, Y: 1})

	_, err := s.orch.DeleteCharacter(s.ctx, &character.DeleteCharacterInput{PlayerID: "player-2", CharacterID: c.ID})
	s.Assert().True(errors.IsNotFound(err))

	out, err := s.orch.DeleteCharacter(s.ctx, &character.DeleteCharacterInput{PlayerID: "player-1", CharacterID: c.ID})
	s.Require().NoError(err)
	s.Assert().Equal([]string{"game-1"}, out.Games)
	s.Assert().Equal(int64(1), s.stores.StateVersion(s.T(), session.ID))

	_, err = s.stores.Characters.Get(s.ctx, characters.GetInput{ID: c.ID})
	s.Assert().True(errors.IsNotFound(err))

	tok, err := s.stores.Tokens.Get(s.ctx, tokens.GetInput{ID: "tok-1"})
	s.Require().NoError(err)
	s.Assert().Equal(c.ID, tok.Token.CharacterID)
}
