package otel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tabletop-api/internal/platform/otel"
)

type ProviderTestSuite struct {
	suite.Suite
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderTestSuite))
}

func (s *ProviderTestSuite) TestDisabledIsNoop() {
	testCases := []struct {
		name     string
		endpoint string
		enabled  bool
	}{
		{name: "no endpoint", endpoint: "", enabled: true},
		{name: "disabled", endpoint: "http://localhost:4318", enabled: false},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			shutdown, err := otel.Setup(context.Background(), "tabletop-api", tc.endpoint, tc.enabled)
			s.Require().NoError(err)
			s.Assert().NoError(shutdown(context.Background()))
		})
	}
}
