package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tabletop-api/internal/errors"
)

type ErrorsTestSuite struct {
	suite.Suite
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}

func (s *ErrorsTestSuite) TestNewError() {
	testCases := []struct {
		name     string
		code     errors.Code
		message  string
		expected string
	}{
		{
			name:     "not found error",
			code:     errors.CodeNotFound,
			message:  "game not found",
			expected: "NOT_FOUND: game not found",
		},
		{
			name:     "conflict error",
			code:     errors.CodeAborted,
			message:  "state version changed",
			expected: "ABORTED: state version changed",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			err := errors.New(tc.code, tc.message)
			s.Assert().Equal(tc.expected, err.Error())
			s.Assert().Equal(tc.code, err.Code)
			s.Assert().Equal(tc.message, err.Message)
		})
	}
}

func (s *ErrorsTestSuite) TestErrorWithMeta() {
	err := errors.Aborted("stale version").
		WithMeta("expected_version", 3).
		WithMeta("current_version", 4)

	s.Assert().Equal(3, err.Meta["expected_version"])
	s.Assert().Equal(4, err.Meta["current_version"])
}

func (s *ErrorsTestSuite) TestWrap() {
	baseErr := fmt.Errorf("database is locked")
	wrapped := errors.Wrap(baseErr, "failed to commit state")

	s.Assert().Equal(errors.CodeInternal, wrapped.Code)
	s.Assert().Equal("failed to commit state", wrapped.Message)
	s.Assert().Equal(baseErr, wrapped.Unwrap())
}

func (s *ErrorsTestSuite) TestWrapPreservesCode() {
	baseErr := errors.NotFound("map not found")
	wrapped := errors.Wrap(baseErr, "failed to load map")

	s.Assert().Equal(errors.CodeNotFound, wrapped.Code)
	s.Assert().Equal("failed to load map", wrapped.Message)
	s.Assert().Equal(baseErr, wrapped.Unwrap())
}

func (s *ErrorsTestSuite) TestWrapWithCodeCopiesMeta() {
	baseErr := errors.Internal("redis timeout").WithMeta("key", "snapshot")
	wrapped := errors.WrapWithCode(baseErr, errors.CodeUnavailable, "cache unavailable")

	s.Assert().Equal(errors.CodeUnavailable, wrapped.Code)
	s.Assert().Equal("snapshot", wrapped.Meta["key"])
}

func (s *ErrorsTestSuite) TestWrapNil() {
	s.Assert().Nil(errors.Wrap(nil, "should be nil"))
	s.Assert().Nil(errors.WrapWithCode(nil, errors.CodeNotFound, "should be nil"))
}

func (s *ErrorsTestSuite) TestErrorIs() {
	err1 := errors.NotFound("test")
	err2 := errors.NotFound("other")
	err3 := errors.InvalidArgument("test")

	s.Assert().True(err1.Is(err2))
	s.Assert().False(err1.Is(err3))
	s.Assert().True(errors.Is(errors.Wrap(err1, "wrapped"), err2))
}

func (s *ErrorsTestSuite) TestHelperFunctions() {
	s.Assert().True(errors.IsNotFound(errors.Wrap(errors.NotFound("x"), "wrapped")))
	s.Assert().True(errors.IsPermissionDenied(errors.PermissionDenied("only the host can generate the map")))
	s.Assert().True(errors.IsAborted(errors.Abortedf("version %d is stale", 2)))
	s.Assert().True(errors.IsFailedPrecondition(errors.FailedPrecondition("not enough movement")))
	s.Assert().True(errors.IsUnauthenticated(errors.Unauthenticated("missing token")))
	s.Assert().False(errors.IsNotFound(errors.InvalidArgument("x")))
}

func (s *ErrorsTestSuite) TestGetCode() {
	s.Assert().Equal(errors.CodeNotFound, errors.GetCode(errors.Wrap(errors.NotFound("x"), "y")))
	s.Assert().Equal(errors.CodeInternal, errors.GetCode(fmt.Errorf("standard error")))
	s.Assert().Equal(errors.CodeOK, errors.GetCode(nil))
}

func (s *ErrorsTestSuite) TestGetMessage() {
	s.Assert().Equal("wrapped message", errors.GetMessage(errors.Wrap(errors.NotFound("inner"), "wrapped message")))
	s.Assert().Equal("standard error", errors.GetMessage(fmt.Errorf("standard error")))
	s.Assert().Equal("", errors.GetMessage(nil))
}

func (s *ErrorsTestSuite) TestHTTPStatus() {
	testCases := []struct {
		code     errors.Code
		expected int
	}{
		{errors.CodeOK, http.StatusOK},
		{errors.CodeNotFound, http.StatusNotFound},
		{errors.CodeInvalidArgument, http.StatusBadRequest},
		{errors.CodeAlreadyExists, http.StatusConflict},
		{errors.CodeAborted, http.StatusConflict},
		{errors.CodePermissionDenied, http.StatusForbidden},
		{errors.CodeFailedPrecondition, http.StatusUnprocessableEntity},
		{errors.CodeUnauthenticated, http.StatusUnauthorized},
		{errors.CodeInternal, http.StatusInternalServerError},
		{errors.CodeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tc := range testCases {
		s.Run(string(tc.code), func() {
			s.Assert().Equal(tc.expected, tc.code.HTTPStatus())
		})
	}
}

func (s *ErrorsTestSuite) TestToResponse() {
	status, body := errors.ToResponse(errors.PermissionDenied("only the host can generate the map"))
	s.Assert().Equal(http.StatusForbidden, status)
	s.Assert().Equal(errors.CodePermissionDenied, body.Code)
	s.Assert().Equal("only the host can generate the map", body.Message)

	status, body = errors.ToResponse(fmt.Errorf("sql: connection refused"))
	s.Assert().Equal(http.StatusInternalServerError, status)
	s.Assert().Equal("internal error", body.Message)
}

func (s *ErrorsTestSuite) TestFromResponse() {
	err := errors.FromResponse(http.StatusNotFound, []byte(`{"code":"NOT_FOUND","message":"game not found"}`))
	s.Assert().True(errors.IsNotFound(err))
	s.Assert().Equal("game not found", err.Message)

	err = errors.FromResponse(http.StatusForbidden, []byte("forbidden"))
	s.Assert().True(errors.IsPermissionDenied(err))
	s.Assert().Equal("forbidden", err.Message)
}
