// Package snapshot caches rendered game-state snapshots per session version.
// Entries are keyed by invite code and only served when their version matches,
// so a stale entry can never be returned after a mutation.
package snapshot

import (
	"context"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=snapshotmock github.com/KirkDiggler/tabletop-api/internal/repositories/snapshot Repository

// Repository defines the interface for the snapshot cache
type Repository interface {
	// Get returns the cached snapshot for exactly Version; Hit is false otherwise
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// Put stores a rendered snapshot, replacing any older version
	Put(ctx context.Context, input PutInput) (*PutOutput, error)

	// Invalidate drops the cached snapshot for a session
	Invalidate(ctx context.Context, input InvalidateInput) (*InvalidateOutput, error)
}

// GetInput defines the input for a cache lookup
type GetInput struct {
	InviteCode string
	Version    int64
}

// GetOutput defines the output for a cache lookup
type GetOutput struct {
	Hit  bool
	Data []byte
}

// PutInput defines the input for storing a snapshot
type PutInput struct {
	InviteCode string
	Version    int64
	Data       []byte
}

// PutOutput defines the output for storing a snapshot
type PutOutput struct{}

// InvalidateInput defines the input for dropping a snapshot
type InvalidateInput struct {
	InviteCode string
}

// InvalidateOutput defines the output for dropping a snapshot
type InvalidateOutput struct{}
