// Package narration applies the tool commands a narrative generator embeds in
// its text. The generator itself lives outside this service; the host posts
// its output here so health, inventory and dice results land in game state.
package narration

//go:generate mockgen -destination=mock/mock_service.go -package=narrationmock github.com/KirkDiggler/tabletop-api/internal/orchestrators/narration Service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/KirkDiggler/tabletop-api/internal/engine/rules"
	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/clock"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/dice"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/idgen"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/characters"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/games"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/npcs"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/tokens"
	"github.com/KirkDiggler/tabletop-api/internal/services/gamestate"
	"github.com/KirkDiggler/tabletop-api/internal/services/placement"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

const (
	// MaxTextLength bounds one narration post
	MaxTextLength = 10000
	// MaxCommands bounds the commands applied from one post
	MaxCommands = 50

	narratorName = "Narrator"
)

// Service defines the narration tool command processor
type Service interface {
	// Apply logs the narration and applies its commands in one state change.
	// Commands that cannot be applied are reported as skipped.
	Apply(ctx context.Context, input *ApplyInput) (*ApplyOutput, error)
}

// Config holds the dependencies for the narration orchestrator
type Config struct {
	DB          *sqlite.DB
	Games       games.Repository
	Characters  characters.Repository
	Tokens      tokens.Repository
	NPCs        npcs.Repository
	GameState   gamestate.Service
	Placement   placement.Service
	Rules       *rules.Ruleset
	Roller      dice.Roller
	IDGenerator idgen.Generator
	Clock       clock.Clock
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.DB == nil {
		vb.RequiredField("DB")
	}
	if c.Games == nil {
		vb.RequiredField("Games")
	}
	if c.Characters == nil {
		vb.RequiredField("Characters")
	}
	if c.Tokens == nil {
		vb.RequiredField("Tokens")
	}
	if c.NPCs == nil {
		vb.RequiredField("NPCs")
	}
	if c.GameState == nil {
		vb.RequiredField("GameState")
	}
	if c.Placement == nil {
		vb.RequiredField("Placement")
	}
	if c.Rules == nil {
		vb.RequiredField("Rules")
	}
	if c.Roller == nil {
		vb.RequiredField("Roller")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}

	return vb.Build()
}

type orchestrator struct {
	db         *sqlite.DB
	games      games.Repository
	characters characters.Repository
	tokens     tokens.Repository
	npcs       npcs.Repository
	state      gamestate.Service
	placement  placement.Service
	rules      *rules.Ruleset
	roller     dice.Roller
	ids        idgen.Generator
	clock      clock.Clock
}

// NewOrchestrator creates a new narration orchestrator
func NewOrchestrator(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &orchestrator{
		db:         cfg.DB,
		games:      cfg.Games,
		characters: cfg.Characters,
		tokens:     cfg.Tokens,
		npcs:       cfg.NPCs,
		state:      cfg.GameState,
		placement:  cfg.Placement,
		rules:      cfg.Rules,
		roller:     cfg.Roller,
		ids:        cfg.IDGenerator,
		clock:      cfg.Clock,
	}, nil
}

func (o *orchestrator) Apply(ctx context.Context, input *ApplyInput) (*ApplyOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, errors.InvalidArgument("text is required")
	}
	if len(text) > MaxTextLength {
		return nil, errors.InvalidArgumentf("text must be no more than %d characters", MaxTextLength)
	}
	commands := Parse(text)
	if len(commands) > MaxCommands {
		return nil, errors.InvalidArgumentf("at most %d commands can be applied at once", MaxCommands)
	}

	out := &ApplyOutput{Narration: Strip(text), Commands: make([]*CommandResult, 0, len(commands))}
	err := o.db.InTx(ctx, func(ctx context.Context) error {
		resolved, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
			InviteCode:      input.InviteCode,
			UserID:          input.UserID,
			Access:          gamestate.AccessHost,
			HostOnlyMessage: "only the host can post narration",
		})
		if err != nil {
			return err
		}
		if resolved.Session.Status != entities.GameStatusActive {
			return errors.FailedPreconditionf("game is %s", resolved.Session.Status)
		}

		sc, err := o.loadScene(ctx, resolved.Session)
		if err != nil {
			return err
		}

		entries := []*entities.ActivityLogEntry{{
			ActorID:     input.UserID,
			ActorName:   narratorName,
			Type:        entities.LogTypeNarration,
			Description: out.Narration,
			Data:        map[string]any{"commands": len(commands)},
		}}
		for _, cmd := range commands {
			result, err := o.run(sc, cmd)
			if err != nil {
				return err
			}
			out.Commands = append(out.Commands, result)
			entries = append(entries, &entities.ActivityLogEntry{
				ActorID:     input.UserID,
				ActorName:   narratorName,
				Type:        entities.LogTypeToolCommand,
				Description: result.Description,
				Data: map[string]any{
					"tool":    result.Tool,
					"raw":     result.Raw,
					"applied": result.Applied,
					"target":  result.Target,
					"roll":    result.Roll,
				},
			})
		}

		if err := o.flush(ctx, sc); err != nil {
			return err
		}
		commitOut, err := o.state.Commit(ctx, &gamestate.CommitInput{
			Session:         resolved.Session,
			ExpectedVersion: resolved.State.Version,
			Entries:         entries,
		})
		if err != nil {
			return err
		}
		out.Version = commitOut.Version
		return nil
	})
	if err != nil {
		return nil, err
	}

	applied := 0
	for _, c := range out.Commands {
		if c.Applied {
			applied++
		}
	}
	slog.InfoContext(ctx, "Narration applied",
		"invite_code", input.InviteCode,
		"commands", len(out.Commands),
		"applied", applied,
		"version", out.Version,
	)
	return out, nil
}
