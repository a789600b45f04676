package gamelog_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/gamelog"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/games"
	"github.com/KirkDiggler/tabletop-api/internal/testutils"
)

type SQLiteRepositoryTestSuite struct {
	suite.Suite
	repo gamelog.Repository
	ctx  context.Context
	now  time.Time
}

func TestSQLiteRepositorySuite(t *testing.T) {
	suite.Run(t, new(SQLiteRepositoryTestSuite))
}

func (s *SQLiteRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	db := testutils.CreateTestDB(s.T())

	gameRepo, err := games.NewSQLiteRepository(&games.Config{DB: db})
	s.Require().NoError(err)
	for _, id := range []string{"game-1", "game-2"} {
		_, err = gameRepo.Create(s.ctx, games.CreateInput{Session: &entities.GameSession{
			ID: id, InviteCode: "CODE-" + id, HostID: "host", Status: entities.GameStatusActive,
			CreatedAt: s.now, UpdatedAt: s.now,
		}})
		s.Require().NoError(err)
	}

	s.repo, err = gamelog.NewSQLiteRepository(&gamelog.Config{DB: db})
	s.Require().NoError(err)
}

func (s *SQLiteRepositoryTestSuite) entry(gameID string, n int) *entities.ActivityLogEntry {
	return &entities.ActivityLogEntry{
		GameID:      gameID,
		ActorID:     "host",
		Type:        entities.LogTypeNarration,
		Description: fmt.Sprintf("event %d", n),
		Data:        map[string]any{"n": n},
		CreatedAt:   s.now.Add(time.Duration(n) * time.Second),
	}
}

func (s *SQLiteRepositoryTestSuite) TestAppendAssignsIncreasingIDs() {
	out, err := s.repo.Append(s.ctx, gamelog.AppendInput{Entries: []*entities.ActivityLogEntry{
		s.entry("game-1", 1), s.entry("game-1", 2),
	}})
	s.Require().NoError(err)
	s.Require().Len(out.Entries, 2)
	s.Assert().Positive(out.Entries[0].ID)
	s.Assert().Greater(out.Entries[1].ID, out.Entries[0].ID)
}

func (s *SQLiteRepositoryTestSuite) TestAppendUnknownGame() {
	_, err := s.repo.Append(s.ctx, gamelog.AppendInput{Entries: []*entities.ActivityLogEntry{s.entry("missing", 1)}})
	s.Assert().True(errors.IsNotFound(err))
}

func (s *SQLiteRepositoryTestSuite) TestListReturnsMostRecentInOrder() {
	for i := 1; i <= 5; i++ {
		_, err := s.repo.Append(s.ctx, gamelog.AppendInput{Entries: []*entities.ActivityLogEntry{s.entry("game-1", i)}})
		s.Require().NoError(err)
	}
	_, err := s.repo.Append(s.ctx, gamelog.AppendInput{Entries: []*entities.ActivityLogEntry{s.entry("game-2", 9)}})
	s.Require().NoError(err)

	out, err := s.repo.List(s.ctx, gamelog.ListInput{GameID: "game-1", Limit: 3})
	s.Require().NoError(err)
	s.Require().Len(out.Entries, 3)
	s.Assert().Equal("event 3", out.Entries[0].Description)
	s.Assert().Equal("event 5", out.Entries[2].Description)
	s.Assert().Equal(float64(5), out.Entries[2].Data["n"])
	s.Assert().Equal(entities.LogTypeNarration, out.Entries[2].Type)
}

func (s *SQLiteRepositoryTestSuite) TestClearOnlyTouchesOneGame() {
	_, err := s.repo.Append(s.ctx, gamelog.AppendInput{Entries: []*entities.ActivityLogEntry{
		s.entry("game-1", 1), s.entry("game-1", 2), s.entry("game-2", 3),
	}})
	s.Require().NoError(err)

	cleared, err := s.repo.Clear(s.ctx, gamelog.ClearInput{GameID: "game-1"})
	s.Require().NoError(err)
	s.Assert().Equal(int64(2), cleared.Deleted)

	out, err := s.repo.List(s.ctx, gamelog.ListInput{GameID: "game-1"})
	s.Require().NoError(err)
	s.Assert().Empty(out.Entries)

	out, err = s.repo.List(s.ctx, gamelog.ListInput{GameID: "game-2"})
	s.Require().NoError(err)
	s.Assert().Len(out.Entries, 1)
}
