package grid_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tabletop-api/internal/engine/grid"
	"github.com/KirkDiggler/tabletop-api/internal/entities"
)

type GridTestSuite struct {
	suite.Suite
}

func TestGridSuite(t *testing.T) {
	suite.Run(t, new(GridTestSuite))
}

// wall builds a 5x5 grid with a vertical wall at x=2 except a gap at y=4
func (s *GridTestSuite) wall() *grid.Grid {
	var tiles []*entities.MapTile
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			tiles = append(tiles, &entities.MapTile{X: x, Y: y, IsBlocked: x == 2 && y < 4})
		}
	}
	return grid.New(5, 5, tiles)
}

func (s *GridTestSuite) TestDistance() {
	g := grid.New(5, 5, nil)

	s.Assert().Equal(0, g.Distance(entities.Point{X: 1, Y: 1}, entities.Point{X: 1, Y: 1}))
	s.Assert().Equal(3, g.Distance(entities.Point{X: 0, Y: 0}, entities.Point{X: 3, Y: 2}))
	s.Assert().Equal(4, g.Distance(entities.Point{X: 4, Y: 0}, entities.Point{X: 0, Y: 1}))

	s.Assert().True(g.InRange(entities.Point{X: 0, Y: 0}, entities.Point{X: 1, Y: 1}, 1))
	s.Assert().False(g.InRange(entities.Point{X: 0, Y: 0}, entities.Point{X: 2, Y: 1}, 1))
}

func (s *GridTestSuite) TestPathLengthOpen() {
	g := grid.New(5, 5, nil)

	steps, ok := g.PathLength(entities.Point{X: 0, Y: 0}, entities.Point{X: 4, Y: 4}, 10)
	s.Require().True(ok)
	s.Assert().Equal(4, steps)
}

func (s *GridTestSuite) TestPathLengthAroundWall() {
	g := s.wall()

	steps, ok := g.PathLength(entities.Point{X: 0, Y: 0}, entities.Point{X: 4, Y: 0}, 20)
	s.Require().True(ok)
	s.Assert().Equal(8, steps)

	_, ok = g.PathLength(entities.Point{X: 0, Y: 0}, entities.Point{X: 4, Y: 0}, 6)
	s.Assert().False(ok)
}

func (s *GridTestSuite) TestBlockedAndOutOfBounds() {
	g := s.wall()

	_, ok := g.PathLength(entities.Point{X: 0, Y: 0}, entities.Point{X: 2, Y: 1}, 10)
	s.Assert().False(ok)
	_, ok = g.PathLength(entities.Point{X: 0, Y: 0}, entities.Point{X: 5, Y: 0}, 10)
	s.Assert().False(ok)

	s.Assert().False(g.Walkable(2, 0))
	s.Assert().True(g.Walkable(2, 4))
	s.Assert().False(g.InBounds(-1, 0))
}

func (s *GridTestSuite) TestOccupancy() {
	g := s.wall()

	s.Require().NoError(g.Occupy("tok-1", "player", entities.Point{X: 1, Y: 1}))

	id, ok := g.Occupant(entities.Point{X: 1, Y: 1})
	s.Assert().True(ok)
	s.Assert().Equal("tok-1", id)
	s.Assert().False(g.Free(entities.Point{X: 1, Y: 1}))
	s.Assert().False(g.Free(entities.Point{X: 2, Y: 0}))
	s.Assert().True(g.Free(entities.Point{X: 0, Y: 0}))

	s.Assert().Error(g.Occupy("tok-2", "npc", entities.Point{X: 9, Y: 9}))
	_, ok = g.Occupant(entities.Point{X: 9, Y: 9})
	s.Assert().False(ok)
}
