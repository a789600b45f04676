package idgen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tabletop-api/internal/pkg/idgen"
)

type IDGenTestSuite struct {
	suite.Suite
}

func TestIDGenSuite(t *testing.T) {
	suite.Run(t, new(IDGenTestSuite))
}

func (s *IDGenTestSuite) TestInviteCode() {
	gen := idgen.NewInviteCode()
	seen := make(map[string]bool)

	for i := 0; i < 200; i++ {
		code := gen.Generate()
		s.Require().Len(code, idgen.InviteCodeLength)
		for _, r := range code {
			s.Assert().True(strings.ContainsRune(idgen.InviteCodeAlphabet, r), "unexpected rune %q", r)
		}
		seen[code] = true
	}

	s.Assert().Greater(len(seen), 190)
}

func (s *IDGenTestSuite) TestSequential() {
	gen := idgen.NewSequential("tok")
	s.Assert().Equal("tok_1", gen.Generate())
	s.Assert().Equal("tok_2", gen.Generate())
}

func (s *IDGenTestSuite) TestStatic() {
	gen := idgen.NewStatic("AAAAAA", "BBBBBB")
	s.Assert().Equal("AAAAAA", gen.Generate())
	s.Assert().Equal("BBBBBB", gen.Generate())
	s.Assert().Equal("BBBBBB", gen.Generate())
}

func (s *IDGenTestSuite) TestUUIDPrefix() {
	s.Assert().True(strings.HasPrefix(idgen.NewUUID("game").Generate(), "game_"))
}
