package game_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/game"
	mockclock "github.com/KirkDiggler/tabletop-api/internal/pkg/clock/mock"
	dicemock "github.com/KirkDiggler/tabletop-api/internal/pkg/dice/mock"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/idgen"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/gamelog"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/games"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/tokens"
	"github.com/KirkDiggler/tabletop-api/internal/services/gamestate"
	"github.com/KirkDiggler/tabletop-api/internal/services/placement"
	"github.com/KirkDiggler/tabletop-api/internal/testutils"
	"github.com/KirkDiggler/tabletop-api/internal/testutils/mocks"
)

type OrchestratorTestSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	mockRoller *dicemock.MockRoller
	stores     *testutils.Stores
	placement  placement.Service
	cfg        *game.Config
	orch       game.Service
	ctx        context.Context

	session *entities.GameSession
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

func (s *OrchestratorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.mockRoller = dicemock.NewMockRoller(s.ctrl)
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
	s.placement, err = placement.NewService(&placement.Config{
		DB:          s.stores.DB,
		Maps:        s.stores.Maps,
		Tokens:      s.stores.Tokens,
		NPCs:        s.stores.NPCs,
		IDGenerator: idgen.NewSequential("tok"),
		Clock:       clk,
	})
	s.Require().NoError(err)

	s.cfg = &game.Config{
		DB:          s.stores.DB,
		Games:       s.stores.Games,
		Log:         s.stores.Log,
		Characters:  s.stores.Characters,
		Tokens:      s.stores.Tokens,
		NPCs:        s.stores.NPCs,
		GameState:   state,
		Placement:   s.placement,
		Roller:      s.mockRoller,
		IDGenerator: idgen.NewSequential("game"),
		InviteCodes: idgen.NewStatic("NEWGAME2"),
		Clock:       clk,
	}
	s.orch, err = game.NewOrchestrator(s.cfg)
	s.Require().NoError(err)

	s.session = s.stores.SeedSession(s.T(), "game-1", "ABC234", "host-1")
	s.seedCharacter("char-1", "player-1", "Brannoc", 14)
}

func (s *OrchestratorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *OrchestratorTestSuite) seedCharacter(id, playerID, name string, dexterity int) *entities.Character {
	return s.stores.SeedCharacter(s.T(), &entities.Character{
		ID:              id,
		PlayerID:        playerID,
		Name:            name,
		Level:           1,
		Race:            "human",
		Class:           "fighter",
		Stats:           entities.Stats{Strength: 14, Dexterity: dexterity, Constitution: 12, Intelligence: 10, Wisdom: 10, Charisma: 10},
		Health:          12,
		MaxHealth:       12,
		ActionPoints:    3,
		MaxActionPoints: 3,
		Speed:           6,
		Equipped:        map[entities.EquipmentSlot]string{},
		CreatedAt:       testutils.FixtureTime,
		UpdatedAt:       testutils.FixtureTime,
	})
}

func (s *OrchestratorTestSuite) logTypes(gameID string) []entities.LogType {
	out, err := s.stores.Log.List(s.ctx, gamelog.ListInput{GameID: gameID})
	s.Require().NoError(err)
	types := make([]entities.LogType, len(out.Entries))
	for i, e := range out.Entries {
		types[i] = e.Type
	}
	return types
}

func (s *OrchestratorTestSuite) TestNewOrchestratorRequiresDependencies() {
	_, err := game.NewOrchestrator(nil)
	s.Assert().True(errors.IsInvalidArgument(err))

	_, err = game.NewOrchestrator(&game.Config{})
	s.Assert().True(errors.IsInvalidArgument(err))
}

func (s *OrchestratorTestSuite) TestCreateGame() {
	out, err := s.orch.CreateGame(s.ctx, &game.CreateGameInput{
		HostID:    "host-2",
		HostEmail: "dm@example.com",
		Quest:     entities.Quest{Title: "Ashes of Vell", Objectives: []string{"Reach the tower"}},
		World:     "Vell",
	})
	s.Require().NoError(err)

	s.Assert().Equal("NEWGAME2", out.Session.InviteCode)
	s.Assert().Equal("game_1", out.Session.ID)
	s.Assert().Equal(entities.GameStatusActive, out.Session.Status)
	s.Assert().Equal(int64(0), s.stores.StateVersion(s.T(), out.Session.ID))
	s.Assert().Equal([]entities.LogType{entities.LogTypeSessionCreated}, s.logTypes(out.Session.ID))
}

func (s *OrchestratorTestSuite) TestCreateGameRetriesInviteCodeCollisions() {
	s.cfg.InviteCodes = idgen.NewStatic("ABC234", "ABC234", "FRESH567")
	orch, err := game.NewOrchestrator(s.cfg)
	s.Require().NoError(err)

	out, err := orch.CreateGame(s.ctx, &game.CreateGameInput{HostID: "host-2", Quest: entities.Quest{Title: "Second"}})
	s.Require().NoError(err)
	s.Assert().Equal("FRESH567", out.Session.InviteCode)
}

func (s *OrchestratorTestSuite) TestCreateGameGivesUpAfterRepeatedCollisions() {
	s.cfg.InviteCodes = idgen.NewStatic("ABC234")
	orch, err := game.NewOrchestrator(s.cfg)
	s.Require().NoError(err)

	_, err = orch.CreateGame(s.ctx, &game.CreateGameInput{HostID: "host-2", Quest: entities.Quest{Title: "Second"}})
	s.Assert().Equal(errors.CodeUnavailable, errors.GetCode(err))
}

func (s *OrchestratorTestSuite) TestCreateGameValidation() {
	testCases := []struct {
		name  string
		input *game.CreateGameInput
	}{
		{name: "nil input", input: nil},
		{name: "missing host", input: &game.CreateGameInput{Quest: entities.Quest{Title: "x"}}},
		{name: "missing title", input: &game.CreateGameInput{HostID: "host-2"}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.orch.CreateGame(s.ctx, tc.input)
			s.Assert().True(errors.IsInvalidArgument(err))
		})
	}
}

func (s *OrchestratorTestSuite) TestListGames() {
	s.stores.SeedSession(s.T(), "game-2", "XYZ789", "host-2")
	s.stores.Join(s.T(), "game-2", "host-1", "char-9")

	out, err := s.orch.ListGames(s.ctx, &game.ListGamesInput{UserID: "host-1"})
	s.Require().NoError(err)
	s.Assert().Len(out.Sessions, 2)

	_, err = s.orch.ListGames(s.ctx, &game.ListGamesInput{})
	s.Assert().True(errors.IsInvalidArgument(err))
}

func (s *OrchestratorTestSuite) TestJoinGame() {
	out, err := s.orch.JoinGame(s.ctx, &game.JoinGameInput{
		InviteCode:  "ABC234",
		PlayerID:    "player-1",
		PlayerEmail: "player-1@example.com",
		CharacterID: "char-1",
	})
	s.Require().NoError(err)
	s.Assert().True(out.Changed)
	s.Assert().Equal("char-1", out.Entry.CharacterID)
	s.Assert().Equal(int64(1), s.stores.StateVersion(s.T(), "game-1"))
	s.Assert().Equal([]entities.LogType{entities.LogTypePlayerJoined}, s.logTypes("game-1"))

	s.Run("same character again is a no-op", func() {
		out, err := s.orch.JoinGame(s.ctx, &game.JoinGameInput{InviteCode: "ABC234", PlayerID: "player-1", CharacterID: "char-1"})
		s.Require().NoError(err)
		s.Assert().False(out.Changed)
		s.Assert().Equal(int64(1), s.stores.StateVersion(s.T(), "game-1"))
	})

	s.Run("switching characters bumps the version", func() {
		s.seedCharacter("char-2", "player-1", "Ysolde", 12)
		out, err := s.orch.JoinGame(s.ctx, &game.JoinGameInput{InviteCode: "ABC234", PlayerID: "player-1", CharacterID: "char-2"})
		s.Require().NoError(err)
		s.Assert().True(out.Changed)
		s.Assert().Equal(int64(2), s.stores.StateVersion(s.T(), "game-1"))

		roster, err := s.stores.Games.ListPlayers(s.ctx, games.ListPlayersInput{GameID: "game-1"})
		s.Require().NoError(err)
		s.Require().Len(roster.Entries, 1)
		s.Assert().Equal("char-2", roster.Entries[0].CharacterID)
	})
}

func (s *OrchestratorTestSuite) TestJoinGameRejections() {
	s.seedCharacter("char-3", "player-3", "Other", 10)
	s.stores.SeedSession(s.T(), "game-2", "DONE234", "host-2")
	_, err := s.orch.UpdateStatus(s.ctx, &game.UpdateStatusInput{InviteCode: "DONE234", UserID: "host-2", Status: entities.GameStatusCompleted})
	s.Require().NoError(err)

	testCases := []struct {
		name     string
		input    *game.JoinGameInput
		wantCode errors.Code
	}{
		{
			name:     "someone else's character",
			input:    &game.JoinGameInput{InviteCode: "ABC234", PlayerID: "player-1", CharacterID: "char-3"},
			wantCode: errors.CodePermissionDenied,
		},
		{
			name:     "unknown character",
			input:    &game.JoinGameInput{InviteCode: "ABC234", PlayerID: "player-1", CharacterID: "char-404"},
			wantCode: errors.CodeNotFound,
		},
		{
			name:     "unknown invite code",
			input:    &game.JoinGameInput{InviteCode: "NOPE234", PlayerID: "player-1", CharacterID: "char-1"},
			wantCode: errors.CodeNotFound,
		},
		{
			name:     "completed game",
			input:    &game.JoinGameInput{InviteCode: "DONE234", PlayerID: "player-1", CharacterID: "char-1"},
			wantCode: errors.CodeFailedPrecondition,
		},
		{
			name:     "missing character",
			input:    &game.JoinGameInput{InviteCode: "ABC234", PlayerID: "player-1"},
			wantCode: errors.CodeInvalidArgument,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.orch.JoinGame(s.ctx, tc.input)
			s.Assert().Equal(tc.wantCode, errors.GetCode(err))
		})
	}
	s.Assert().Equal(int64(0), s.stores.StateVersion(s.T(), "game-1"))
}

func (s *OrchestratorTestSuite) TestJoinGameSpawnsTokenOnCurrentMap() {
	s.stores.SeedMap(s.T(), s.session, "map-1", 10, 10)

	_, err := s.orch.JoinGame(s.ctx, &game.JoinGameInput{InviteCode: "ABC234", PlayerID: "player-1", CharacterID: "char-1"})
	s.Require().NoError(err)

	found, err := s.stores.Tokens.FindByEntity(s.ctx, tokens.FindByEntityInput{
		MapID:     "map-1",
		TokenType: entities.TokenTypePlayer,
		EntityID:  "char-1",
	})
	s.Require().NoError(err)
	s.Assert().Equal("Brannoc", found.Token.Label)
	s.Assert().Equal(entities.Point{X: 5, Y: 5}, found.Token.Position())
}

func (s *OrchestratorTestSuite) TestJoinGameSwitchRetiresOldToken() {
	s.stores.SeedMap(s.T(), s.session, "map-1", 10, 10)
	s.seedCharacter("char-2", "player-1", "Ysolde", 12)

	_, err := s.orch.JoinGame(s.ctx, &game.JoinGameInput{InviteCode: "ABC234", PlayerID: "player-1", CharacterID: "char-1"})
	s.Require().NoError(err)
	_, err = s.orch.JoinGame(s.ctx, &game.JoinGameInput{InviteCode: "ABC234", PlayerID: "player-1", CharacterID: "char-2"})
	s.Require().NoError(err)

	list, err := s.stores.Tokens.ListForMap(s.ctx, tokens.ListForMapInput{MapID: "map-1"})
	s.Require().NoError(err)
	s.Require().Len(list.Tokens, 1)
	s.Assert().Equal("char-2", list.Tokens[0].CharacterID)
	s.Assert().Equal("Ysolde", list.Tokens[0].Label)
	s.Assert().Equal(entities.Point{X: 5, Y: 5}, list.Tokens[0].Position(), "the freed square is reused")
}

func (s *OrchestratorTestSuite) TestUpdateStatus() {
	_, err := s.orch.UpdateStatus(s.ctx, &game.UpdateStatusInput{InviteCode: "ABC234", UserID: "player-1", Status: entities.GameStatusCompleted})
	s.Assert().True(errors.IsPermissionDenied(err))
	s.Assert().Equal("only the host can change the game status", errors.GetMessage(err))

	_, err = s.orch.UpdateStatus(s.ctx, &game.UpdateStatusInput{InviteCode: "ABC234", UserID: "host-1", Status: entities.GameStatusActive})
	s.Assert().True(errors.IsInvalidArgument(err))

	out, err := s.orch.UpdateStatus(s.ctx, &game.UpdateStatusInput{InviteCode: "ABC234", UserID: "host-1", Status: entities.GameStatusAbandoned})
	s.Require().NoError(err)
	s.Assert().Equal(entities.GameStatusAbandoned, out.Session.Status)
	s.Assert().Equal(int64(1), s.stores.StateVersion(s.T(), "game-1"))

	_, err = s.orch.UpdateStatus(s.ctx, &game.UpdateStatusInput{InviteCode: "ABC234", UserID: "host-1", Status: entities.GameStatusCompleted})
	s.Assert().True(errors.IsFailedPrecondition(err))
}

func (s *OrchestratorTestSuite) TestUpdateStatusEndsRunningEncounter() {
	s.setupBattle()
	mocks.ExpectRolls(s.mockRoller, 5, 15)
	started, err := s.orch.StartEncounter(s.ctx, &game.StartEncounterInput{InviteCode: "ABC234", UserID: "host-1"})
	s.Require().NoError(err)

	_, err = s.orch.UpdateStatus(s.ctx, &game.UpdateStatusInput{InviteCode: "ABC234", UserID: "host-1", Status: entities.GameStatusCompleted})
	s.Require().NoError(err)

	state, err := s.orch.GetState(s.ctx, &game.GetStateInput{InviteCode: "ABC234", UserID: "host-1"})
	s.Require().NoError(err)
	s.Assert().Equal(started.Version+1, state.Version)
	s.Assert().Nil(state.Snapshot.Turn.ActiveTurn)
	s.Assert().Empty(state.Snapshot.Turn.InitiativeOrder)
	s.Assert().Equal(entities.GameStatusCompleted, state.Snapshot.Session.Status)
}

// setupBattle puts Brannoc (DEX 14) at (1,1) and a goblin (DEX 14) at (3,3)
func (s *OrchestratorTestSuite) setupBattle() *placement.PlaceNPCOutput {
	s.stores.SeedMap(s.T(), s.session, "map-1", 10, 10)
	s.stores.Join(s.T(), "game-1", "player-1", "char-1")
	s.stores.SeedToken(s.T(), &entities.MapToken{
		ID:          "tok-brannoc",
		MapID:       "map-1",
		TokenType:   entities.TokenTypePlayer,
		CharacterID: "char-1",
		X:           1,
		Y:           1,
	})
	npc, err := s.placement.PlaceNPC(s.ctx, &placement.PlaceNPCInput{GameID: "game-1", MapID: "map-1", Slug: "goblin", X: 3, Y: 3})
	s.Require().NoError(err)
	return npc
}

func (s *OrchestratorTestSuite) TestStartEncounter() {
	npc := s.setupBattle()
	// Brannoc rolls 5 (+2), the goblin 15 (+2)
	mocks.ExpectRolls(s.mockRoller, 5, 15)

	out, err := s.orch.StartEncounter(s.ctx, &game.StartEncounterInput{InviteCode: "ABC234", UserID: "host-1"})
	s.Require().NoError(err)

	s.Require().Len(out.Turn.InitiativeOrder, 2)
	s.Assert().Equal(npc.Instance.ID, out.Turn.InitiativeOrder[0].EntityID)
	s.Assert().Equal(17, out.Turn.InitiativeOrder[0].Initiative)
	s.Assert().Equal("char-1", out.Turn.InitiativeOrder[1].EntityID)
	s.Assert().Equal(7, out.Turn.InitiativeOrder[1].Initiative)

	s.Require().NotNil(out.Turn.ActiveTurn)
	s.Assert().Equal(entities.TurnTypeNPC, out.Turn.ActiveTurn.Type)
	s.Assert().Equal(1, out.Turn.ActiveTurn.TurnNumber)
	s.Assert().Equal(6, out.Turn.ActiveTurn.Speed)

	s.Require().Len(out.Rolls, 2)
	s.Assert().Equal(5, out.Rolls[0].Roll)
	s.Assert().Equal(2, out.Rolls[0].Modifier)
	s.Assert().Equal(int64(1), out.Version)

	_, err = s.orch.StartEncounter(s.ctx, &game.StartEncounterInput{InviteCode: "ABC234", UserID: "host-1"})
	s.Assert().True(errors.IsFailedPrecondition(err))
}

func (s *OrchestratorTestSuite) TestStartEncounterTiesKeepPlayersFirst() {
	s.setupBattle()
	mocks.ExpectRolls(s.mockRoller, 10, 10)

	out, err := s.orch.StartEncounter(s.ctx, &game.StartEncounterInput{InviteCode: "ABC234", UserID: "host-1"})
	s.Require().NoError(err)
	s.Assert().Equal("char-1", out.Turn.ActiveTurn.EntityID)
	s.Assert().Equal(entities.TurnTypePlayer, out.Turn.ActiveTurn.Type)
}

func (s *OrchestratorTestSuite) TestStartEncounterSkipsCharactersOffTheMap() {
	s.setupBattle()
	s.seedCharacter("char-2", "player-2", "Absent", 10)
	s.stores.Join(s.T(), "game-1", "player-2", "char-2")
	mocks.ExpectRolls(s.mockRoller, 10, 10)

	out, err := s.orch.StartEncounter(s.ctx, &game.StartEncounterInput{InviteCode: "ABC234", UserID: "host-1"})
	s.Require().NoError(err)
	for _, e := range out.Turn.InitiativeOrder {
		s.Assert().NotEqual("char-2", e.EntityID)
	}
}

func (s *OrchestratorTestSuite) TestStartEncounterRejections() {
	s.Run("needs a map", func() {
		_, err := s.orch.StartEncounter(s.ctx, &game.StartEncounterInput{InviteCode: "ABC234", UserID: "host-1"})
		s.Assert().True(errors.IsFailedPrecondition(err))
	})

	s.Run("host only", func() {
		_, err := s.orch.StartEncounter(s.ctx, &game.StartEncounterInput{InviteCode: "ABC234", UserID: "player-1"})
		s.Assert().True(errors.IsPermissionDenied(err))
		s.Assert().Equal("only the host can start combat", errors.GetMessage(err))
	})

	s.Run("empty map", func() {
		s.stores.SeedMap(s.T(), s.session, "map-1", 5, 5)
		_, err := s.orch.StartEncounter(s.ctx, &game.StartEncounterInput{InviteCode: "ABC234", UserID: "host-1"})
		s.Assert().True(errors.IsFailedPrecondition(err))
	})
}

func (s *OrchestratorTestSuite) TestEndEncounter() {
	_, err := s.orch.EndEncounter(s.ctx, &game.EndEncounterInput{InviteCode: "ABC234", UserID: "host-1"})
	s.Assert().True(errors.IsFailedPrecondition(err))

	s.setupBattle()
	mocks.ExpectRolls(s.mockRoller, 5, 15)
	_, err = s.orch.StartEncounter(s.ctx, &game.StartEncounterInput{InviteCode: "ABC234", UserID: "host-1"})
	s.Require().NoError(err)

	out, err := s.orch.EndEncounter(s.ctx, &game.EndEncounterInput{InviteCode: "ABC234", UserID: "host-1"})
	s.Require().NoError(err)
	s.Assert().Equal(int64(2), out.Version)

	state, err := s.stores.Games.GetState(s.ctx, games.GetStateInput{GameID: "game-1"})
	s.Require().NoError(err)
	s.Assert().False(state.State.Turn.InEncounter())
	s.Assert().Equal(
		[]entities.LogType{entities.LogTypeCombatStarted, entities.LogTypeCombatEnded},
		s.logTypes("game-1"),
	)
}

func (s *OrchestratorTestSuite) TestGetState() {
	s.stores.Join(s.T(), "game-1", "player-1", "char-1")

	out, err := s.orch.GetState(s.ctx, &game.GetStateInput{InviteCode: "ABC234", UserID: "player-1"})
	s.Require().NoError(err)
	s.Assert().Equal(int64(0), out.Version)
	s.Assert().NotEmpty(out.Data)
	s.Require().Len(out.Snapshot.Roster, 1)

	_, err = s.orch.GetState(s.ctx, &game.GetStateInput{InviteCode: "ABC234", UserID: "stranger"})
	s.Assert().True(errors.IsPermissionDenied(err))
}

func (s *OrchestratorTestSuite) TestGetGame() {
	s.stores.Join(s.T(), "game-1", "player-1", "char-1")

	out, err := s.orch.GetGame(s.ctx, &game.GetGameInput{InviteCode: "ABC234", UserID: "host-1"})
	s.Require().NoError(err)
	s.Assert().True(out.IsHost)
	s.Assert().Len(out.Roster, 1)

	out, err = s.orch.GetGame(s.ctx, &game.GetGameInput{InviteCode: "ABC234", UserID: "player-1"})
	s.Require().NoError(err)
	s.Assert().False(out.IsHost)
}

func (s *OrchestratorTestSuite) TestClearLog() {
	_, err := s.orch.JoinGame(s.ctx, &game.JoinGameInput{InviteCode: "ABC234", PlayerID: "player-1", CharacterID: "char-1"})
	s.Require().NoError(err)

	_, err = s.orch.ClearLog(s.ctx, &game.ClearLogInput{InviteCode: "ABC234", UserID: "player-1"})
	s.Assert().True(errors.IsPermissionDenied(err))

	out, err := s.orch.ClearLog(s.ctx, &game.ClearLogInput{InviteCode: "ABC234", UserID: "host-1"})
	s.Require().NoError(err)
	s.Assert().Equal(int64(1), out.Cleared)
	s.Assert().Equal(int64(2), out.Version)

	logOut, err := s.orch.GetLog(s.ctx, &game.GetLogInput{InviteCode: "ABC234", UserID: "player-1"})
	s.Require().NoError(err)
	s.Assert().Empty(logOut.Entries)
}
