package gamestate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	mockclock "github.com/KirkDiggler/tabletop-api/internal/pkg/clock/mock"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/characters"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/gamelog"
	"github.com/KirkDiggler/tabletop-api/internal/services/gamestate"
	"github.com/KirkDiggler/tabletop-api/internal/testutils"
	"github.com/KirkDiggler/tabletop-api/internal/testutils/builders"
	"github.com/KirkDiggler/tabletop-api/internal/testutils/mocks"
)

type ServiceTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	stores  *testutils.Stores
	svc     gamestate.Service
	ctx     context.Context
	session *entities.GameSession
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	clk := mockclock.NewMockClock(s.ctrl)
	mocks.ExpectNow(clk, testutils.FixtureTime)

	s.stores = testutils.NewStores(s.T(), clk)
	svc, err := gamestate.NewService(&gamestate.Config{
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
	s.svc = svc

	s.session = s.stores.SeedSession(s.T(), "game-1", "ABC234", "host-1")
	s.stores.SeedCharacter(s.T(), builders.NewCharacterBuilder().
		WithID("char-1").WithPlayer("player-1", "player-1@example.com").WithName("Brenna").Build())
	s.stores.Join(s.T(), "game-1", "player-1", "char-1")
}

func (s *ServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceTestSuite) TestNewServiceRequiresDependencies() {
	_, err := gamestate.NewService(&gamestate.Config{})
	s.Require().Error(err)
	s.Assert().True(errors.IsInvalidArgument(err))
}

func (s *ServiceTestSuite) TestResolveAccess() {
	testCases := []struct {
		name      string
		userID    string
		access    gamestate.Access
		wantCode  errors.Code
		wantHost  bool
		wantEntry bool
	}{
		{name: "host as host", userID: "host-1", access: gamestate.AccessHost, wantCode: errors.CodeOK, wantHost: true},
		{name: "member as host", userID: "player-1", access: gamestate.AccessHost, wantCode: errors.CodePermissionDenied},
		{name: "member as member", userID: "player-1", access: gamestate.AccessMember, wantCode: errors.CodeOK, wantEntry: true},
		{name: "host as member", userID: "host-1", access: gamestate.AccessMember, wantCode: errors.CodeOK, wantHost: true},
		{name: "stranger as member", userID: "stranger", access: gamestate.AccessMember, wantCode: errors.CodePermissionDenied},
		{name: "stranger authenticated", userID: "stranger", access: gamestate.AccessAuthenticated, wantCode: errors.CodeOK},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			out, err := s.svc.Resolve(s.ctx, &gamestate.ResolveInput{
				InviteCode: "ABC234",
				UserID:     tc.userID,
				Access:     tc.access,
			})
			s.Assert().Equal(tc.wantCode, errors.GetCode(err))
			if err != nil {
				return
			}
			s.Assert().Equal("game-1", out.Session.ID)
			s.Assert().Equal(tc.wantHost, out.IsHost)
			s.Assert().Equal(tc.wantEntry, out.Entry != nil)
		})
	}
}

func (s *ServiceTestSuite) TestResolveHostOnlyMessage() {
	_, err := s.svc.Resolve(s.ctx, &gamestate.ResolveInput{
		InviteCode:      "ABC234",
		UserID:          "player-1",
		Access:          gamestate.AccessHost,
		HostOnlyMessage: "only the host can generate the map",
	})
	s.Assert().True(errors.IsPermissionDenied(err))
	s.Assert().Equal("only the host can generate the map", errors.GetMessage(err))
}

func (s *ServiceTestSuite) TestResolveUnknownCode() {
	_, err := s.svc.Resolve(s.ctx, &gamestate.ResolveInput{InviteCode: "ZZZZZZ", UserID: "host-1"})
	s.Assert().True(errors.IsNotFound(err))
}

func (s *ServiceTestSuite) TestCommitBumpsVersionOnceAndLogs() {
	out, err := s.svc.Commit(s.ctx, &gamestate.CommitInput{
		Session:         s.session,
		ExpectedVersion: 0,
		Entries: []*entities.ActivityLogEntry{
			{ActorID: "host-1", Type: entities.LogTypeNarration, Description: "The rain begins"},
		},
	})
	s.Require().NoError(err)
	s.Assert().Equal(int64(1), out.Version)
	s.Assert().Equal(int64(1), s.session.StateVersion)
	s.Require().Len(out.Entries, 1)
	s.Assert().Equal("game-1", out.Entries[0].GameID)
	s.Assert().True(testutils.FixtureTime.Equal(out.Entries[0].CreatedAt))
	s.Assert().Equal(int64(1), s.stores.StateVersion(s.T(), "game-1"))
}

func (s *ServiceTestSuite) TestCommitStaleVersionChangesNothing() {
	_, err := s.svc.Commit(s.ctx, &gamestate.CommitInput{Session: s.session, ExpectedVersion: 0})
	s.Require().NoError(err)

	_, err = s.svc.Commit(s.ctx, &gamestate.CommitInput{
		Session:         s.session,
		ExpectedVersion: 0,
		Entries:         []*entities.ActivityLogEntry{{Type: entities.LogTypeNarration, Description: "lost"}},
	})
	s.Require().Error(err)
	s.Assert().True(errors.IsAborted(err))
	s.Assert().Equal(int64(1), s.stores.StateVersion(s.T(), "game-1"))

	logOut, err := s.stores.Log.List(s.ctx, gamelog.ListInput{GameID: "game-1"})
	s.Require().NoError(err)
	s.Assert().Empty(logOut.Entries)
}

func (s *ServiceTestSuite) TestSnapshotIsCachedPerVersion() {
	resolved, err := s.svc.Resolve(s.ctx, &gamestate.ResolveInput{InviteCode: "ABC234", UserID: "player-1", Access: gamestate.AccessMember})
	s.Require().NoError(err)

	first, err := s.svc.Snapshot(s.ctx, &gamestate.SnapshotInput{Session: resolved.Session, State: resolved.State})
	s.Require().NoError(err)
	s.Assert().False(first.Cached)
	s.Require().Len(first.Snapshot.Roster, 1)
	s.Assert().Equal("Brenna", first.Snapshot.Roster[0].Character.Name)
	s.Assert().Equal(int64(0), first.Snapshot.Version)

	second, err := s.svc.Snapshot(s.ctx, &gamestate.SnapshotInput{Session: resolved.Session, State: resolved.State})
	s.Require().NoError(err)
	s.Assert().True(second.Cached)
	s.Assert().JSONEq(string(first.Data), string(second.Data))

	_, err = s.svc.Commit(s.ctx, &gamestate.CommitInput{Session: resolved.Session, ExpectedVersion: 0})
	s.Require().NoError(err)

	resolved, err = s.svc.Resolve(s.ctx, &gamestate.ResolveInput{InviteCode: "ABC234", UserID: "player-1", Access: gamestate.AccessMember})
	s.Require().NoError(err)
	third, err := s.svc.Snapshot(s.ctx, &gamestate.SnapshotInput{Session: resolved.Session, State: resolved.State})
	s.Require().NoError(err)
	s.Assert().False(third.Cached)
	s.Assert().Equal(int64(1), third.Snapshot.Version)
}

func (s *ServiceTestSuite) TestSnapshotShowsRemovedCharacter() {
	_, err := s.stores.Characters.Delete(s.ctx, characters.DeleteInput{ID: "char-1"})
	s.Require().NoError(err)

	resolved, err := s.svc.Resolve(s.ctx, &gamestate.ResolveInput{InviteCode: "ABC234", UserID: "host-1", Access: gamestate.AccessMember})
	s.Require().NoError(err)
	out, err := s.svc.Snapshot(s.ctx, &gamestate.SnapshotInput{Session: resolved.Session, State: resolved.State})
	s.Require().NoError(err)

	s.Require().Len(out.Snapshot.Roster, 1)
	s.Assert().True(out.Snapshot.Roster[0].Character.Removed)
	s.Assert().Equal("char-1", out.Snapshot.Roster[0].Character.ID)
}

func (s *ServiceTestSuite) TestSnapshotIncludesMapTokensAndLog() {
	s.stores.SeedMap(s.T(), s.session, "map-1", 6, 6)
	s.stores.SeedToken(s.T(), &entities.MapToken{
		ID: "tok-1", MapID: "map-1", TokenType: entities.TokenTypePlayer, CharacterID: "char-1", X: 2, Y: 3,
	})
	_, err := s.svc.Commit(s.ctx, &gamestate.CommitInput{
		Session: s.session,
		Entries: []*entities.ActivityLogEntry{{Type: entities.LogTypeMapGenerated, Description: "map ready"}},
	})
	s.Require().NoError(err)

	resolved, err := s.svc.Resolve(s.ctx, &gamestate.ResolveInput{InviteCode: "ABC234", UserID: "host-1", Access: gamestate.AccessHost})
	s.Require().NoError(err)
	out, err := s.svc.Snapshot(s.ctx, &gamestate.SnapshotInput{Session: resolved.Session, State: resolved.State})
	s.Require().NoError(err)

	s.Require().NotNil(out.Snapshot.Map)
	s.Assert().Equal("map-1", out.Snapshot.Map.ID)
	s.Require().Len(out.Snapshot.Tokens, 1)
	s.Assert().Equal("tok-1", out.Snapshot.Tokens[0].ID)
	s.Require().Len(out.Snapshot.RecentLog, 1)
	s.Assert().Equal(entities.LogTypeMapGenerated, out.Snapshot.RecentLog[0].Type)
	s.Assert().Empty(out.Snapshot.NPCs)
}

func (s *ServiceTestSuite) TestSnapshotInReadTxIgnoresConcurrentCommit() {
	var out *gamestate.SnapshotOutput
	err := s.stores.DB.ReadTx(s.ctx, func(ctx context.Context) error {
		resolved, err := s.svc.Resolve(ctx, &gamestate.ResolveInput{InviteCode: "ABC234", UserID: "host-1", Access: gamestate.AccessMember})
		s.Require().NoError(err)

		// A writer lands between the state read and the render
		_, err = s.svc.Commit(s.ctx, &gamestate.CommitInput{
			Session:         s.session,
			ExpectedVersion: 0,
			Entries:         []*entities.ActivityLogEntry{{Type: entities.LogTypeNarration, Description: "thunder"}},
		})
		s.Require().NoError(err)

		out, err = s.svc.Snapshot(ctx, &gamestate.SnapshotInput{Session: resolved.Session, State: resolved.State})
		return err
	})
	s.Require().NoError(err)

	s.Assert().Equal(int64(0), out.Snapshot.Version)
	s.Assert().Empty(out.Snapshot.RecentLog)
	s.Assert().Equal(int64(1), s.stores.StateVersion(s.T(), "game-1"))
}

func (s *ServiceTestSuite) TestSnapshotOfStaleStateIsRejected() {
	resolved, err := s.svc.Resolve(s.ctx, &gamestate.ResolveInput{InviteCode: "ABC234", UserID: "host-1", Access: gamestate.AccessMember})
	s.Require().NoError(err)
	_, err = s.svc.Commit(s.ctx, &gamestate.CommitInput{Session: s.session, ExpectedVersion: 0})
	s.Require().NoError(err)

	_, err = s.svc.Snapshot(s.ctx, &gamestate.SnapshotInput{Session: resolved.Session, State: resolved.State})
	s.Require().Error(err)
	s.Assert().True(errors.IsAborted(err))
}
