// Package errors provides the structured error type used across tabletop-api.
//
// Every layer returns *Error values carrying a Code, a user-facing Message and
// optional metadata. The HTTP layer turns the Code into a status with
// Code.HTTPStatus and writes the body produced by ToResponse, so clients can
// tell validation, authorization, not-found and conflict failures apart.
//
// # Basic Usage
//
// Creating errors:
//
//	err := errors.NotFound("game not found")
//	err := errors.InvalidArgumentf("x must be between 0 and %d", width-1)
//
// Adding metadata:
//
//	err := errors.Aborted("state version changed").
//	    WithMeta("expected_version", expected).
//	    WithMeta("current_version", current)
//
// Wrapping keeps the original code:
//
//	if err := repo.GetMap(ctx, input); err != nil {
//	    return errors.Wrap(err, "failed to load map")
//	}
//
// # Layer-Specific Guidelines
//
// Repository layer:
//   - Return NotFound / AlreadyExists / Aborted for row-level outcomes
//   - Wrap driver errors; they surface as Internal
//
// Orchestrator layer:
//   - Validate input with ValidationBuilder (InvalidArgument)
//   - Reject rule violations with FailedPrecondition
//   - Reject callers without rights with PermissionDenied
//
// Handler layer:
//   - Render with ToResponse and Code.HTTPStatus
//   - Log Internal and Unavailable errors
package errors
