package snapshot_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/snapshot"
	"github.com/KirkDiggler/tabletop-api/internal/testutils"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	mr   *miniredis.Miniredis
	repo snapshot.Repository
	ctx  context.Context
}

func TestRedisRepositorySuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	client, mr := testutils.CreateTestRedisClient(s.T())
	s.mr = mr

	repo, err := snapshot.NewRedisRepository(&snapshot.Config{Client: client, TTL: time.Minute})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RedisRepositoryTestSuite) TestMissIsNotAnError() {
	out, err := s.repo.Get(s.ctx, snapshot.GetInput{InviteCode: "ABC234", Version: 0})
	s.Require().NoError(err)
	s.Assert().False(out.Hit)
}

func (s *RedisRepositoryTestSuite) TestServesOnlyMatchingVersion() {
	_, err := s.repo.Put(s.ctx, snapshot.PutInput{InviteCode: "ABC234", Version: 3, Data: []byte(`{"stateVersion":3}`)})
	s.Require().NoError(err)
	s.Assert().Equal(time.Minute, s.mr.TTL("game_state_snapshot:ABC234"))

	testCases := []struct {
		name    string
		version int64
		hit     bool
	}{
		{name: "same version", version: 3, hit: true},
		{name: "newer version", version: 4, hit: false},
		{name: "older version", version: 2, hit: false},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			out, err := s.repo.Get(s.ctx, snapshot.GetInput{InviteCode: "ABC234", Version: tc.version})
			s.Require().NoError(err)
			s.Assert().Equal(tc.hit, out.Hit)
			if tc.hit {
				s.Assert().JSONEq(`{"stateVersion":3}`, string(out.Data))
			}
		})
	}
}

func (s *RedisRepositoryTestSuite) TestPutReplacesOlderVersion() {
	_, err := s.repo.Put(s.ctx, snapshot.PutInput{InviteCode: "ABC234", Version: 1, Data: []byte(`"one"`)})
	s.Require().NoError(err)
	_, err = s.repo.Put(s.ctx, snapshot.PutInput{InviteCode: "ABC234", Version: 2, Data: []byte(`"two"`)})
	s.Require().NoError(err)

	out, err := s.repo.Get(s.ctx, snapshot.GetInput{InviteCode: "ABC234", Version: 2})
	s.Require().NoError(err)
	s.Assert().True(out.Hit)
	s.Assert().Equal(`"two"`, string(out.Data))
}

func (s *RedisRepositoryTestSuite) TestInvalidateAndExpiry() {
	_, err := s.repo.Put(s.ctx, snapshot.PutInput{InviteCode: "ABC234", Version: 1, Data: []byte(`{}`)})
	s.Require().NoError(err)
	_, err = s.repo.Invalidate(s.ctx, snapshot.InvalidateInput{InviteCode: "ABC234"})
	s.Require().NoError(err)
	s.Assert().False(s.mr.Exists("game_state_snapshot:ABC234"))

	_, err = s.repo.Put(s.ctx, snapshot.PutInput{InviteCode: "ABC234", Version: 1, Data: []byte(`{}`)})
	s.Require().NoError(err)
	s.mr.FastForward(2 * time.Minute)

	out, err := s.repo.Get(s.ctx, snapshot.GetInput{InviteCode: "ABC234", Version: 1})
	s.Require().NoError(err)
	s.Assert().False(out.Hit)
}

func (s *RedisRepositoryTestSuite) TestRequiresInviteCode() {
	_, err := s.repo.Get(s.ctx, snapshot.GetInput{})
	s.Assert().True(errors.IsInvalidArgument(err))
}
