package games_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/games"
	"github.com/KirkDiggler/tabletop-api/internal/testutils"
)

type SQLiteRepositoryTestSuite struct {
	suite.Suite
	repo games.Repository
	ctx  context.Context
	now  time.Time
}

func TestSQLiteRepositorySuite(t *testing.T) {
	suite.Run(t, new(SQLiteRepositoryTestSuite))
}

func (s *SQLiteRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

	repo, err := games.NewSQLiteRepository(&games.Config{DB: testutils.CreateTestDB(s.T())})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *SQLiteRepositoryTestSuite) createSession(id, code, hostID string) *entities.GameSession {
	out, err := s.repo.Create(s.ctx, games.CreateInput{Session: &entities.GameSession{
		ID:         id,
		InviteCode: code,
		HostID:     hostID,
		HostEmail:  hostID + "@example.com",
		Quest: entities.Quest{
			Title:      "The Lost Mine",
			Objectives: []string{"Find the mine"},
		},
		World:     "Faerun",
		Status:    entities.GameStatusActive,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}})
	s.Require().NoError(err)
	return out.Session
}

func (s *SQLiteRepositoryTestSuite) TestCreateAndGet() {
	s.createSession("game-1", "ABC234", "host-1")

	out, err := s.repo.GetByInviteCode(s.ctx, games.GetByInviteCodeInput{InviteCode: "ABC234"})
	s.Require().NoError(err)
	s.Assert().Equal("game-1", out.Session.ID)
	s.Assert().Equal("The Lost Mine", out.Session.Quest.Title)
	s.Assert().Equal([]string{"Find the mine"}, out.Session.Quest.Objectives)
	s.Assert().Equal(entities.GameStatusActive, out.Session.Status)
	s.Assert().Equal(int64(0), out.Session.StateVersion)
	s.Assert().True(s.now.Equal(out.Session.CreatedAt))

	state, err := s.repo.GetState(s.ctx, games.GetStateInput{GameID: "game-1"})
	s.Require().NoError(err)
	s.Assert().Equal(int64(0), state.State.Version)
	s.Assert().False(state.State.Turn.InEncounter())
}

func (s *SQLiteRepositoryTestSuite) TestCreateDuplicateInviteCode() {
	s.createSession("game-1", "ABC234", "host-1")

	_, err := s.repo.Create(s.ctx, games.CreateInput{Session: &entities.GameSession{
		ID:         "game-2",
		InviteCode: "ABC234",
		HostID:     "host-2",
		Status:     entities.GameStatusActive,
	}})
	s.Require().Error(err)
	s.Assert().True(errors.IsAlreadyExists(err))

	exists, err := s.repo.InviteCodeExists(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.Assert().True(exists)
}

func (s *SQLiteRepositoryTestSuite) TestGetUnknown() {
	_, err := s.repo.GetByInviteCode(s.ctx, games.GetByInviteCodeInput{InviteCode: "NOPE22"})
	s.Assert().True(errors.IsNotFound(err))

	_, err = s.repo.Get(s.ctx, games.GetInput{ID: "missing"})
	s.Assert().True(errors.IsNotFound(err))

	_, err = s.repo.GetState(s.ctx, games.GetStateInput{GameID: "missing"})
	s.Assert().True(errors.IsNotFound(err))
}

func (s *SQLiteRepositoryTestSuite) TestCommitState() {
	s.createSession("game-1", "ABC234", "host-1")

	turn := &entities.TurnState{
		ActiveTurn: &entities.ActiveTurn{Type: entities.TurnTypePlayer, EntityID: "char-1", TurnNumber: 1, Speed: 6},
		InitiativeOrder: []entities.InitiativeEntry{
			{EntityID: "char-1", Type: entities.TurnTypePlayer, Initiative: 15},
		},
	}

	s.Run("advances the version by one", func() {
		out, err := s.repo.CommitState(s.ctx, games.CommitStateInput{GameID: "game-1", ExpectedVersion: 0, Turn: turn, UpdatedAt: s.now})
		s.Require().NoError(err)
		s.Assert().Equal(int64(1), out.Version)
	})

	s.Run("keeps the turn when none is given", func() {
		out, err := s.repo.CommitState(s.ctx, games.CommitStateInput{GameID: "game-1", ExpectedVersion: 1, UpdatedAt: s.now})
		s.Require().NoError(err)
		s.Assert().Equal(int64(2), out.Version)

		state, err := s.repo.GetState(s.ctx, games.GetStateInput{GameID: "game-1"})
		s.Require().NoError(err)
		s.Assert().True(state.State.Turn.IsHolder("char-1", entities.TurnTypePlayer))
	})

	s.Run("rejects a stale version", func() {
		_, err := s.repo.CommitState(s.ctx, games.CommitStateInput{GameID: "game-1", ExpectedVersion: 1, UpdatedAt: s.now})
		s.Require().Error(err)
		s.Assert().True(errors.IsAborted(err))
		s.Assert().Equal(int64(2), errors.GetMeta(err)["current_version"])

		session, err := s.repo.Get(s.ctx, games.GetInput{ID: "game-1"})
		s.Require().NoError(err)
		s.Assert().Equal(int64(2), session.Session.StateVersion)
	})

	s.Run("unknown game", func() {
		_, err := s.repo.CommitState(s.ctx, games.CommitStateInput{GameID: "missing", ExpectedVersion: 0, UpdatedAt: s.now})
		s.Assert().True(errors.IsNotFound(err))
	})
}

func (s *SQLiteRepositoryTestSuite) TestUpdate() {
	session := s.createSession("game-1", "ABC234", "host-1")
	session.Status = entities.GameStatusCompleted
	session.CurrentMapID = "map-1"
	session.UpdatedAt = s.now.Add(time.Hour)

	_, err := s.repo.Update(s.ctx, games.UpdateInput{Session: session})
	s.Require().NoError(err)

	out, err := s.repo.Get(s.ctx, games.GetInput{ID: "game-1"})
	s.Require().NoError(err)
	s.Assert().Equal(entities.GameStatusCompleted, out.Session.Status)
	s.Assert().Equal("map-1", out.Session.CurrentMapID)

	_, err = s.repo.Update(s.ctx, games.UpdateInput{Session: &entities.GameSession{ID: "missing"}})
	s.Assert().True(errors.IsNotFound(err))
}

func (s *SQLiteRepositoryTestSuite) TestRoster() {
	s.createSession("game-1", "ABC234", "host-1")
	s.createSession("game-2", "XYZ789", "host-2")

	_, err := s.repo.UpsertPlayer(s.ctx, games.UpsertPlayerInput{Entry: &entities.RosterEntry{
		GameID: "game-1", PlayerID: "player-1", CharacterID: "char-1", JoinedAt: s.now,
	}})
	s.Require().NoError(err)
	_, err = s.repo.UpsertPlayer(s.ctx, games.UpsertPlayerInput{Entry: &entities.RosterEntry{
		GameID: "game-1", PlayerID: "player-2", CharacterID: "char-2", JoinedAt: s.now,
	}})
	s.Require().NoError(err)

	s.Run("switching characters replaces the entry", func() {
		out, err := s.repo.UpsertPlayer(s.ctx, games.UpsertPlayerInput{Entry: &entities.RosterEntry{
			GameID: "game-1", PlayerID: "player-1", CharacterID: "char-3", JoinedAt: s.now.Add(time.Minute),
		}})
		s.Require().NoError(err)
		s.Assert().Equal("char-3", out.Entry.CharacterID)
		s.Assert().True(s.now.Equal(out.Entry.JoinedAt))

		list, err := s.repo.ListPlayers(s.ctx, games.ListPlayersInput{GameID: "game-1"})
		s.Require().NoError(err)
		s.Require().Len(list.Entries, 2)
		s.Assert().Equal("player-1", list.Entries[0].PlayerID)
	})

	s.Run("unknown player", func() {
		_, err := s.repo.GetPlayer(s.ctx, games.GetPlayerInput{GameID: "game-1", PlayerID: "stranger"})
		s.Assert().True(errors.IsNotFound(err))
	})

	s.Run("unknown game", func() {
		_, err := s.repo.UpsertPlayer(s.ctx, games.UpsertPlayerInput{Entry: &entities.RosterEntry{
			GameID: "missing", PlayerID: "player-1", CharacterID: "char-1", JoinedAt: s.now,
		}})
		s.Assert().True(errors.IsNotFound(err))
	})

	s.Run("lists hosted and joined sessions", func() {
		out, err := s.repo.ListForUser(s.ctx, games.ListForUserInput{UserID: "player-2"})
		s.Require().NoError(err)
		s.Require().Len(out.Sessions, 1)
		s.Assert().Equal("game-1", out.Sessions[0].ID)

		out, err = s.repo.ListForUser(s.ctx, games.ListForUserInput{UserID: "host-2"})
		s.Require().NoError(err)
		s.Require().Len(out.Sessions, 1)
		s.Assert().Equal("game-2", out.Sessions[0].ID)
	})

	s.Run("active sessions for a character", func() {
		out, err := s.repo.ListActiveForCharacter(s.ctx, games.ListActiveForCharacterInput{CharacterID: "char-2"})
		s.Require().NoError(err)
		s.Assert().Equal([]string{"game-1"}, out.GameIDs)
	})
}
