package narration

import (
	"github.com/KirkDiggler/tabletop-api/internal/pkg/dice"
)

// ApplyInput defines the request for applying narrator output
type ApplyInput struct {
	InviteCode string
	UserID     string
	Text       string
}

// ApplyOutput defines the response for applying narrator output
type ApplyOutput struct {
	Narration string
	Commands  []*CommandResult
	Version   int64
}

// CommandResult reports what one command did. Skipped holds the reason a
// command was not applied.
type CommandResult struct {
	Tool        string       `json:"tool"`
	Raw         string       `json:"raw"`
	Applied     bool         `json:"applied"`
	Skipped     string       `json:"skipped,omitempty"`
	Target      string       `json:"target,omitempty"`
	Roll        *dice.Result `json:"roll,omitempty"`
	Success     *bool        `json:"success,omitempty"`
	Description string       `json:"description"`
}
