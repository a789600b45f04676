package rollsession_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/tabletop-api/internal/errors"
	mockclock "github.com/KirkDiggler/tabletop-api/internal/pkg/clock/mock"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/rollsession"
	"github.com/KirkDiggler/tabletop-api/internal/testutils"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockClock *mockclock.MockClock
	mr        *miniredis.Miniredis
	repo      rollsession.Repository
	ctx       context.Context
	now       time.Time
}

func TestRedisRepositorySuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.mockClock = mockclock.NewMockClock(s.ctrl)
	s.now = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	s.mockClock.EXPECT().Now().DoAndReturn(func() time.Time { return s.now }).AnyTimes()

	client, mr := testutils.CreateTestRedisClient(s.T())
	s.mr = mr

	repo, err := rollsession.NewRedisRepository(&rollsession.Config{
		Client: client,
		Clock:  s.mockClock,
		TTL:    10 * time.Minute,
	})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RedisRepositoryTestSuite) create() *rollsession.RollSession {
	out, err := s.repo.Create(s.ctx, rollsession.CreateInput{
		GameID:     "game-1",
		EntityID:   "char-1",
		ActorID:    "player-1",
		TurnNumber: 2,
		Action:     json.RawMessage(`{"type":"basic_attack","targetId":"npc-1"}`),
		Rolls: []rollsession.Roll{
			{Purpose: "attack", Notation: "1d20+2", Dice: []int{1}, DiceTotal: 1, Modifier: 2, Total: 3},
		},
		CriticalFailure: true,
	})
	s.Require().NoError(err)
	return out.Session
}

func (s *RedisRepositoryTestSuite) TestCreateAndGet() {
	created := s.create()
	s.Assert().Equal(s.now.Add(10*time.Minute), created.ExpiresAt)
	s.Assert().True(s.mr.Exists("roll_session:game-1:char-1"))

	out, err := s.repo.Get(s.ctx, rollsession.GetInput{GameID: "game-1", EntityID: "char-1"})
	s.Require().NoError(err)
	s.Assert().Equal("player-1", out.Session.ActorID)
	s.Assert().Equal(2, out.Session.TurnNumber)
	s.Assert().True(out.Session.CriticalFailure)
	s.Assert().JSONEq(`{"type":"basic_attack","targetId":"npc-1"}`, string(out.Session.Action))
	s.Require().Len(out.Session.Rolls, 1)
	s.Assert().Equal([]int{1}, out.Session.Rolls[0].Dice)
}

func (s *RedisRepositoryTestSuite) TestGetMissing() {
	_, err := s.repo.Get(s.ctx, rollsession.GetInput{GameID: "game-1", EntityID: "char-1"})
	s.Assert().True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestExpiry() {
	s.create()

	s.Run("clock past expiry", func() {
		s.now = s.now.Add(11 * time.Minute)
		_, err := s.repo.Get(s.ctx, rollsession.GetInput{GameID: "game-1", EntityID: "char-1"})
		s.Assert().True(errors.IsNotFound(err))
		s.Assert().False(s.mr.Exists("roll_session:game-1:char-1"))
	})
}

func (s *RedisRepositoryTestSuite) TestRedisTTL() {
	s.create()
	s.mr.FastForward(11 * time.Minute)

	_, err := s.repo.Get(s.ctx, rollsession.GetInput{GameID: "game-1", EntityID: "char-1"})
	s.Assert().True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestUpdateKeepsExpiry() {
	session := s.create()

	s.now = s.now.Add(4 * time.Minute)
	session.Rerolled = true
	s.Require().NoError(s.repo.Update(s.ctx, session))

	s.Assert().Equal(6*time.Minute, s.mr.TTL("roll_session:game-1:char-1"))

	out, err := s.repo.Get(s.ctx, rollsession.GetInput{GameID: "game-1", EntityID: "char-1"})
	s.Require().NoError(err)
	s.Assert().True(out.Session.Rerolled)
}

func (s *RedisRepositoryTestSuite) TestUpdateExpired() {
	session := s.create()
	s.now = s.now.Add(time.Hour)

	err := s.repo.Update(s.ctx, session)
	s.Assert().True(errors.IsFailedPrecondition(err))
}

func (s *RedisRepositoryTestSuite) TestDelete() {
	s.create()

	out, err := s.repo.Delete(s.ctx, rollsession.DeleteInput{GameID: "game-1", EntityID: "char-1"})
	s.Require().NoError(err)
	s.Assert().True(out.Deleted)

	out, err = s.repo.Delete(s.ctx, rollsession.DeleteInput{GameID: "game-1", EntityID: "char-1"})
	s.Require().NoError(err)
	s.Assert().False(out.Deleted)
}

func (s *RedisRepositoryTestSuite) TestValidation() {
	_, err := s.repo.Create(s.ctx, rollsession.CreateInput{EntityID: "char-1"})
	s.Assert().True(errors.IsInvalidArgument(err))

	_, err = s.repo.Get(s.ctx, rollsession.GetInput{GameID: "game-1"})
	s.Assert().True(errors.IsInvalidArgument(err))

	s.Assert().True(errors.IsInvalidArgument(s.repo.Update(s.ctx, nil)))
}
