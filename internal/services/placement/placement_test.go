package placement_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	mockclock "github.com/KirkDiggler/tabletop-api/internal/pkg/clock/mock"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/idgen"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/npcs"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/tokens"
	"github.com/KirkDiggler/tabletop-api/internal/services/placement"
	"github.com/KirkDiggler/tabletop-api/internal/testutils"
	"github.com/KirkDiggler/tabletop-api/internal/testutils/mocks"
)

type PlacementTestSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	stores *testutils.Stores
	svc    placement.Service
	ctx    context.Context
}

func TestPlacementSuite(t *testing.T) {
	suite.Run(t, new(PlacementTestSuite))
}

func (s *PlacementTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	clk := mockclock.NewMockClock(s.ctrl)
	mocks.ExpectNow(clk, testutils.FixtureTime)

	s.stores = testutils.NewStores(s.T(), clk)
	svc, err := placement.NewService(&placement.Config{
		DB:          s.stores.DB,
		Maps:        s.stores.Maps,
		Tokens:      s.stores.Tokens,
		NPCs:        s.stores.NPCs,
		IDGenerator: idgen.NewSequential("id"),
		Clock:       clk,
	})
	s.Require().NoError(err)
	s.svc = svc

	session := s.stores.SeedSession(s.T(), "game-1", "ABC234", "host-1")
	s.stores.SeedMap(s.T(), session, "map-1", 10, 10, entities.Point{X: 4, Y: 4}, entities.Point{X: 6, Y: 6})
}

func (s *PlacementTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *PlacementTestSuite) TestPlaceToken() {
	testCases := []struct {
		name     string
		input    *placement.PlaceTokenInput
		wantCode errors.Code
	}{
		{
			name:     "walkable tile",
			input:    &placement.PlaceTokenInput{MapID: "map-1", TokenType: entities.TokenTypePlayer, CharacterID: "char-1", X: 2, Y: 3},
			wantCode: errors.CodeOK,
		},
		{
			name:     "prop needs no entity",
			input:    &placement.PlaceTokenInput{MapID: "map-1", TokenType: entities.TokenTypeProp, Label: "Barrel", X: 0, Y: 0},
			wantCode: errors.CodeOK,
		},
		{
			name:     "outside the map",
			input:    &placement.PlaceTokenInput{MapID: "map-1", TokenType: entities.TokenTypePlayer, CharacterID: "char-1", X: 10, Y: 3},
			wantCode: errors.CodeInvalidArgument,
		},
		{
			name:     "negative coordinate",
			input:    &placement.PlaceTokenInput{MapID: "map-1", TokenType: entities.TokenTypeProp, X: -1, Y: 0},
			wantCode: errors.CodeInvalidArgument,
		},
		{
			name:     "blocked tile",
			input:    &placement.PlaceTokenInput{MapID: "map-1", TokenType: entities.TokenTypePlayer, CharacterID: "char-1", X: 4, Y: 4},
			wantCode: errors.CodeFailedPrecondition,
		},
		{
			name:     "player without character",
			input:    &placement.PlaceTokenInput{MapID: "map-1", TokenType: entities.TokenTypePlayer, X: 1, Y: 1},
			wantCode: errors.CodeInvalidArgument,
		},
		{
			name:     "unknown token type",
			input:    &placement.PlaceTokenInput{MapID: "map-1", TokenType: "dragon", X: 1, Y: 1},
			wantCode: errors.CodeInvalidArgument,
		},
		{
			name:     "unknown map",
			input:    &placement.PlaceTokenInput{MapID: "map-404", TokenType: entities.TokenTypeProp, X: 1, Y: 1},
			wantCode: errors.CodeNotFound,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			out, err := s.svc.PlaceToken(s.ctx, tc.input)
			s.Assert().Equal(tc.wantCode, errors.GetCode(err))
			if err != nil {
				return
			}
			s.Assert().NotEmpty(out.Token.ID)
			s.Assert().Equal(entities.FacingSouth, out.Token.Facing)
			s.Assert().Equal(entities.TokenStatusActive, out.Token.Status)
			s.Assert().True(out.Token.IsVisible)
		})
	}

	list, err := s.svc.ListTokensForMap(s.ctx, &placement.ListTokensForMapInput{MapID: "map-1"})
	s.Require().NoError(err)
	s.Assert().Len(list.Tokens, 2)
}

func (s *PlacementTestSuite) TestMoveTokenFacesDestination() {
	placed, err := s.svc.PlaceToken(s.ctx, &placement.PlaceTokenInput{
		MapID: "map-1", TokenType: entities.TokenTypePlayer, CharacterID: "char-1", X: 1, Y: 1,
	})
	s.Require().NoError(err)

	out, err := s.svc.MoveToken(s.ctx, &placement.MoveTokenInput{TokenID: placed.Token.ID, X: 3, Y: 1})
	s.Require().NoError(err)
	s.Assert().Equal(entities.Point{X: 1, Y: 1}, out.From)
	s.Assert().Equal(entities.FacingEast, out.Token.Facing)

	out, err = s.svc.MoveToken(s.ctx, &placement.MoveTokenInput{TokenID: placed.Token.ID, X: 3, Y: 2, Facing: entities.FacingNorthWest})
	s.Require().NoError(err)
	s.Assert().Equal(entities.FacingNorthWest, out.Token.Facing)

	stored, err := s.stores.Tokens.Get(s.ctx, tokens.GetInput{ID: placed.Token.ID})
	s.Require().NoError(err)
	s.Assert().Equal(3, stored.Token.X)
	s.Assert().Equal(2, stored.Token.Y)
}

func (s *PlacementTestSuite) TestMoveTokenRejectsIllegalPositions() {
	placed, err := s.svc.PlaceToken(s.ctx, &placement.PlaceTokenInput{
		MapID: "map-1", TokenType: entities.TokenTypePlayer, CharacterID: "char-1", X: 5, Y: 5,
	})
	s.Require().NoError(err)

	_, err = s.svc.MoveToken(s.ctx, &placement.MoveTokenInput{TokenID: placed.Token.ID, X: 6, Y: 6})
	s.Assert().True(errors.IsFailedPrecondition(err))

	_, err = s.svc.MoveToken(s.ctx, &placement.MoveTokenInput{TokenID: placed.Token.ID, X: 5, Y: 12})
	s.Assert().True(errors.IsInvalidArgument(err))

	_, err = s.svc.MoveToken(s.ctx, &placement.MoveTokenInput{TokenID: "tok-404", X: 1, Y: 1})
	s.Assert().True(errors.IsNotFound(err))

	stored, err := s.stores.Tokens.Get(s.ctx, tokens.GetInput{ID: placed.Token.ID})
	s.Require().NoError(err)
	s.Assert().Equal(entities.Point{X: 5, Y: 5}, stored.Token.Position())
}

func (s *PlacementTestSuite) TestPlaceNPCCreatesInstanceAndToken() {
	out, err := s.svc.PlaceNPC(s.ctx, &placement.PlaceNPCInput{GameID: "game-1", MapID: "map-1", Slug: "guard", X: 5, Y: 5})
	s.Require().NoError(err)

	s.Assert().Equal("Town Guard", out.Instance.Name)
	s.Assert().Equal(16, out.Instance.CurrentHealth)
	s.Assert().Equal(16, out.Instance.MaxHealth)
	s.Assert().Equal(entities.DispositionNeutral, out.Instance.Disposition)

	s.Assert().Equal(entities.TokenTypeNPC, out.Token.TokenType)
	s.Assert().Equal(out.Instance.ID, out.Token.NPCInstanceID)
	s.Require().NotNil(out.Token.HitPoints)
	s.Assert().Equal(16, *out.Token.HitPoints)

	stored, err := s.stores.NPCs.GetInstance(s.ctx, npcs.GetInstanceInput{ID: out.Instance.ID})
	s.Require().NoError(err)
	s.Assert().Equal("map-1", stored.Instance.MapID)
}

func (s *PlacementTestSuite) TestPlaceNPCWithLabelAndDisposition() {
	out, err := s.svc.PlaceNPC(s.ctx, &placement.PlaceNPCInput{
		GameID: "game-1", MapID: "map-1", Slug: "merchant", X: 1, Y: 1,
		Label: "Old Tam", Disposition: entities.DispositionFriendly,
	})
	s.Require().NoError(err)
	s.Assert().Equal("Old Tam", out.Instance.Name)
	s.Assert().Equal("Old Tam", out.Token.Label)
	s.Assert().Equal(entities.DispositionFriendly, out.Instance.Disposition)
}

func (s *PlacementTestSuite) TestPlaceNPCFailureLeavesNoInstance() {
	testCases := []struct {
		name     string
		input    *placement.PlaceNPCInput
		wantCode errors.Code
	}{
		{name: "blocked tile", input: &placement.PlaceNPCInput{GameID: "game-1", MapID: "map-1", Slug: "goblin", X: 4, Y: 4}, wantCode: errors.CodeFailedPrecondition},
		{name: "unknown slug", input: &placement.PlaceNPCInput{GameID: "game-1", MapID: "map-1", Slug: "dragon", X: 1, Y: 1}, wantCode: errors.CodeNotFound},
		{name: "bad disposition", input: &placement.PlaceNPCInput{GameID: "game-1", MapID: "map-1", Slug: "goblin", Disposition: "smug"}, wantCode: errors.CodeInvalidArgument},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.svc.PlaceNPC(s.ctx, tc.input)
			s.Assert().Equal(tc.wantCode, errors.GetCode(err))
		})
	}

	instances, err := s.stores.NPCs.ListInstancesForGame(s.ctx, npcs.ListInstancesForGameInput{GameID: "game-1"})
	s.Require().NoError(err)
	s.Assert().Empty(instances.Instances)
}

func (s *PlacementTestSuite) TestUpdateTokenStatusClampsHitPoints() {
	placed, err := s.svc.PlaceNPC(s.ctx, &placement.PlaceNPCInput{GameID: "game-1", MapID: "map-1", Slug: "goblin", X: 2, Y: 2})
	s.Require().NoError(err)

	over := 50
	out, err := s.svc.UpdateTokenStatus(s.ctx, &placement.UpdateTokenStatusInput{TokenID: placed.Token.ID, HitPoints: &over})
	s.Require().NoError(err)
	s.Assert().Equal(7, *out.Token.HitPoints)

	under := -3
	out, err = s.svc.UpdateTokenStatus(s.ctx, &placement.UpdateTokenStatusInput{
		TokenID: placed.Token.ID, HitPoints: &under, Status: entities.TokenStatusDefeated,
	})
	s.Require().NoError(err)
	s.Assert().Equal(0, *out.Token.HitPoints)
	s.Assert().Equal(entities.TokenStatusDefeated, out.Token.Status)

	_, err = s.svc.UpdateTokenStatus(s.ctx, &placement.UpdateTokenStatusInput{TokenID: placed.Token.ID, Status: "sleeping"})
	s.Assert().True(errors.IsInvalidArgument(err))
}

func (s *PlacementTestSuite) TestRemoveTokensForMap() {
	for _, x := range []int{1, 2, 3} {
		_, err := s.svc.PlaceToken(s.ctx, &placement.PlaceTokenInput{MapID: "map-1", TokenType: entities.TokenTypeProp, X: x, Y: 0})
		s.Require().NoError(err)
	}

	out, err := s.svc.RemoveTokensForMap(s.ctx, &placement.RemoveTokensForMapInput{MapID: "map-1"})
	s.Require().NoError(err)
	s.Assert().Equal(int64(3), out.Removed)

	list, err := s.svc.ListTokensForMap(s.ctx, &placement.ListTokensForMapInput{MapID: "map-1"})
	s.Require().NoError(err)
	s.Assert().Empty(list.Tokens)
}

func (s *PlacementTestSuite) TestListNPCDefinitions() {
	out, err := s.svc.ListNPCDefinitions(s.ctx, &placement.ListNPCDefinitionsInput{})
	s.Require().NoError(err)
	s.Assert().Len(out.Definitions, 6)
}

func (s *PlacementTestSuite) TestSpawnTokenFindsFreeTiles() {
	first, err := s.svc.SpawnToken(s.ctx, &placement.SpawnTokenInput{
		MapID: "map-1", TokenType: entities.TokenTypePlayer, CharacterID: "char-1", Label: "Brenna",
	})
	s.Require().NoError(err)
	s.Assert().False(first.Existing)
	s.Assert().Equal(entities.Point{X: 5, Y: 5}, first.Token.Position())

	second, err := s.svc.SpawnToken(s.ctx, &placement.SpawnTokenInput{
		MapID: "map-1", TokenType: entities.TokenTypePlayer, CharacterID: "char-2",
	})
	s.Require().NoError(err)
	// (4,4) is a wall, so the first free cell of the inner ring is (5,4)
	s.Assert().Equal(entities.Point{X: 5, Y: 4}, second.Token.Position())

	again, err := s.svc.SpawnToken(s.ctx, &placement.SpawnTokenInput{
		MapID: "map-1", TokenType: entities.TokenTypePlayer, CharacterID: "char-1",
	})
	s.Require().NoError(err)
	s.Assert().True(again.Existing)
	s.Assert().Equal(first.Token.ID, again.Token.ID)
}
