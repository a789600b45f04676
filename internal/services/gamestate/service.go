// Package gamestate resolves sessions for a caller, commits versioned state
// changes together with their log entries, and renders polling snapshots.
package gamestate

import (
	"context"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
)

//go:generate mockgen -destination=mock/mock_service.go -package=gamestatemock github.com/KirkDiggler/tabletop-api/internal/services/gamestate Service

// Access is the privilege a caller needs on a session
type Access int

// Access levels
const (
	// AccessAuthenticated only requires the session to exist
	AccessAuthenticated Access = iota
	// AccessMember requires the host or a roster member
	AccessMember
	// AccessHost requires the host
	AccessHost
)

// Service defines the shared session plumbing used by the orchestrators
type Service interface {
	// Resolve loads a session and its state and checks the caller's access.
	// Run it inside the write transaction when the result feeds a Commit.
	Resolve(ctx context.Context, input *ResolveInput) (*ResolveOutput, error)

	// Commit bumps the state version by exactly one and appends log entries
	Commit(ctx context.Context, input *CommitInput) (*CommitOutput, error)

	// Snapshot renders the full polling snapshot for a session
	Snapshot(ctx context.Context, input *SnapshotInput) (*SnapshotOutput, error)
}

// ResolveInput defines the request for resolving a session
type ResolveInput struct {
	InviteCode string
	UserID     string
	Access     Access
	// HostOnlyMessage overrides the PermissionDenied message for AccessHost
	HostOnlyMessage string
}

// ResolveOutput defines the response for resolving a session
type ResolveOutput struct {
	Session *entities.GameSession
	State   *entities.GameState
	IsHost  bool
	// Entry is nil when the caller is not on the roster
	Entry *entities.RosterEntry
}

// CommitInput defines the request for committing a state change
type CommitInput struct {
	Session         *entities.GameSession
	ExpectedVersion int64
	// Turn replaces the turn state; nil keeps it
	Turn    *entities.TurnState
	Entries []*entities.ActivityLogEntry
}

// CommitOutput defines the response for committing a state change
type CommitOutput struct {
	Version int64
	Entries []*entities.ActivityLogEntry
}

// SnapshotInput defines the request for a snapshot
type SnapshotInput struct {
	Session *entities.GameSession
	State   *entities.GameState
}

// SnapshotOutput defines the response for a snapshot
type SnapshotOutput struct {
	Snapshot *entities.GameStateSnapshot
	// Data is the JSON encoding of Snapshot
	Data   []byte
	Cached bool
}
