package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tabletop-api/internal/auth"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/clock"
)

type ClientTestSuite struct {
	suite.Suite
	calls atomic.Int32
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.calls.Store(0)
}

func (s *ClientTestSuite) newClient(h http.HandlerFunc) *apiClient {
	server := httptest.NewServer(h)
	s.T().Cleanup(server.Close)

	return &apiClient{
		baseURL:    server.URL,
		token:      "test-token",
		httpClient: server.Client(),
		retryWait:  time.Millisecond,
	}
}

func writeBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *ClientTestSuite) TestFetchStateRetriesUnavailable() {
	api := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("Bearer test-token", r.Header.Get("Authorization"))
		s.Equal("/games/QRST23/state", r.URL.Path)
		if s.calls.Add(1) < 3 {
			writeBody(w, http.StatusServiceUnavailable, errors.Response{Code: errors.CodeUnavailable, Message: "store is down"})
			return
		}
		writeBody(w, http.StatusOK, map[string]any{
			"gameState":      map[string]any{"session": map[string]string{"status": "active"}},
			"stateVersion":   7,
			"pollIntervalMs": 3000,
		})
	})

	state, err := fetchState(context.Background(), api, "QRST23")
	s.Require().NoError(err)
	s.Equal(int64(7), state.StateVersion)
	s.Equal(int64(3000), state.PollIntervalMs)
	s.Equal("active", state.GameState.Session.Status)
	s.Equal(int32(3), s.calls.Load())
}

func (s *ClientTestSuite) TestFetchStateDoesNotRetryClientErrors() {
	api := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		writeBody(w, http.StatusNotFound, errors.Response{Code: errors.CodeNotFound, Message: "game not found"})
	})

	_, err := fetchState(context.Background(), api, "NOPE23")
	s.Require().Error(err)
	s.True(errors.IsNotFound(err))
	s.Equal("game not found", errors.GetMessage(err))
	s.Equal(int32(1), s.calls.Load())
}

func (s *ClientTestSuite) TestDoSendsJSONAndKeepsErrorMeta() {
	api := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&body))
		s.EqualValues(4, body["expectedVersion"])

		writeBody(w, http.StatusConflict, errors.Response{
			Code:    errors.CodeAborted,
			Message: "state changed",
			Meta:    map[string]any{"current_version": 5},
		})
	})

	_, err := api.do(context.Background(), http.MethodPost, "/games/QRST23/actions",
		map[string]any{"action": json.RawMessage(`{"type":"end_turn"}`), "expectedVersion": 4}, nil)
	s.Require().Error(err)
	s.True(errors.IsAborted(err))
	s.EqualValues(5, errors.GetMeta(err)["current_version"])
}

func (s *ClientTestSuite) TestNewAPIClientSignsDevelopmentToken() {
	serverURL, token, signSecret, userID = "http://localhost:8080/", "", "dev-secret", "host-1"
	s.T().Cleanup(func() { token, signSecret, userID = "", "", "dev-user" })

	api, err := newAPIClient()
	s.Require().NoError(err)
	s.Equal("http://localhost:8080", api.baseURL)
	s.False(strings.HasPrefix(api.token, "Bearer"))

	verifier, err := auth.NewVerifier(&auth.Config{Secret: []byte("dev-secret"), Clock: clock.New()})
	s.Require().NoError(err)
	identity, err := verifier.Verify(api.token)
	s.Require().NoError(err)
	s.Equal("host-1", identity.UserID)
}

func (s *ClientTestSuite) TestNewAPIClientNeedsToken() {
	token, signSecret = "", ""

	_, err := newAPIClient()
	s.Error(err)
}
