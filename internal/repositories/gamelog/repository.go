// Package gamelog persists the append-only activity log of each session
package gamelog

import (
	"context"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=gamelogmock github.com/KirkDiggler/tabletop-api/internal/repositories/gamelog Repository

// DefaultLimit is used when a list request gives no limit
const DefaultLimit = 50

// MaxLimit caps a single list request
const MaxLimit = 500

// Repository defines the interface for the activity log
type Repository interface {
	// Append stores entries in order and fills in their ids
	Append(ctx context.Context, input AppendInput) (*AppendOutput, error)

	// List returns the most recent entries, oldest first
	List(ctx context.Context, input ListInput) (*ListOutput, error)

	// Clear deletes every entry for a session
	Clear(ctx context.Context, input ClearInput) (*ClearOutput, error)
}

// AppendInput defines the input for appending entries
type AppendInput struct {
	Entries []*entities.ActivityLogEntry
}

// AppendOutput defines the output for appending entries
type AppendOutput struct {
	Entries []*entities.ActivityLogEntry
}

// ListInput defines the input for reading the log
type ListInput struct {
	GameID string
	Limit  int
}

// ListOutput defines the output for reading the log
type ListOutput struct {
	Entries []*entities.ActivityLogEntry
}

// ClearInput defines the input for clearing the log
type ClearInput struct {
	GameID string
}

// ClearOutput defines the output for clearing the log
type ClearOutput struct {
	Deleted int64
}
