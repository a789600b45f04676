package narration_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/narration"
)

type ParseTestSuite struct {
	suite.Suite
}

func TestParseSuite(t *testing.T) {
	suite.Run(t, new(ParseTestSuite))
}

func (s *ParseTestSuite) TestParse() {
	testCases := []struct {
		name     string
		text     string
		expected []narration.Command
	}{
		{
			name:     "no commands",
			text:     "The rain keeps falling.",
			expected: []narration.Command{},
		},
		{
			name: "single command",
			text: "Roll for it. [roll: 1d20+3, perception]",
			expected: []narration.Command{
				{Tool: "roll", Args: []string{"1d20+3", "perception"}, Raw: "[roll: 1d20+3, perception]"},
			},
		},
		{
			name: "several commands keep their order",
			text: "The trap snaps [health:Brannoc,-4] and he drops a coin [INVENTORY : Brannoc , remove Gold coin x2]",
			expected: []narration.Command{
				{Tool: "health", Args: []string{"Brannoc", "-4"}, Raw: "[health:Brannoc,-4]"},
				{Tool: "inventory", Args: []string{"Brannoc", "remove Gold coin x2"}, Raw: "[INVENTORY : Brannoc , remove Gold coin x2]"},
			},
		},
		{
			name:     "invalid tool names are prose",
			text:     "[1roll: 1d6] and [: nothing]",
			expected: []narration.Command{},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Assert().Equal(tc.expected, narration.Parse(tc.text))
		})
	}
}

func (s *ParseTestSuite) TestStrip() {
	s.Assert().Equal("The trap snaps and the door opens.",
		narration.Strip("The trap snaps [health: Brannoc, -4] and the door opens. [check: Ilsa, dex, 12]"))
}
