package dice_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/dice"
)

type DiceTestSuite struct {
	suite.Suite
}

func TestDiceSuite(t *testing.T) {
	suite.Run(t, new(DiceTestSuite))
}

func (s *DiceTestSuite) TestParse() {
	testCases := []struct {
		input    string
		expected dice.Notation
	}{
		{"d20", dice.Notation{Count: 1, Size: 20}},
		{"2d6", dice.Notation{Count: 2, Size: 6}},
		{"3d6+2", dice.Notation{Count: 3, Size: 6, Modifier: 2}},
		{"1D8 - 1", dice.Notation{Count: 1, Size: 8, Modifier: -1}},
	}

	for _, tc := range testCases {
		s.Run(tc.input, func() {
			n, err := dice.Parse(tc.input)
			s.Require().NoError(err)
			s.Assert().Equal(tc.expected, n)
		})
	}
}

func (s *DiceTestSuite) TestParseInvalid() {
	for _, input := range []string{"", "abc", "0d6", "2d0", "d", "2d6+", "500d6", "1d5000"} {
		s.Run(input, func() {
			_, err := dice.Parse(input)
			s.Assert().True(errors.IsInvalidArgument(err))
		})
	}
}

func (s *DiceTestSuite) TestNotationString() {
	s.Assert().Equal("3d6+2", dice.Notation{Count: 3, Size: 6, Modifier: 2}.String())
	s.Assert().Equal("1d8-1", dice.Notation{Count: 1, Size: 8, Modifier: -1}.String())
	s.Assert().Equal("4d6", dice.Notation{Count: 2, Size: 6}.Doubled().String())
	s.Assert().Equal("1d20+3", dice.Notation{Count: 1, Size: 20}.WithModifier(3).String())
}

func (s *DiceTestSuite) TestToolkitRollerBounds() {
	roller := dice.NewRoller()
	for i := 0; i < 50; i++ {
		result, err := dice.RollString(roller, "2d6+1")
		s.Require().NoError(err)
		s.Assert().GreaterOrEqual(result.Total, 3)
		s.Assert().LessOrEqual(result.Total, 13)
		s.Assert().Equal(result.DiceTotal+1, result.Total)
	}
}

func (s *DiceTestSuite) TestDescribeAndNatural() {
	r := &dice.Result{Notation: "1d20+2", Count: 1, Dice: []int{20}, DiceTotal: 20, Modifier: 2, Total: 22}
	s.Assert().Equal("1d20+2: [20] +2 = 22", dice.Describe(r))
	s.Assert().Equal(20, r.Natural())

	multi := &dice.Result{Notation: "2d6", Count: 2, Dice: []int{1, 1}, DiceTotal: 2, Total: 2}
	s.Assert().Equal(0, multi.Natural())
}
