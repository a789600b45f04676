// Package action is the turn processor. It checks that the submitter holds
// the active turn, validates and resolves actions against fresh state, and
// commits the result with a compare-and-swap on the state version.
package action

//go:generate mockgen -destination=mock/mock_service.go -package=actionmock github.com/KirkDiggler/tabletop-api/internal/orchestrators/action Service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KirkDiggler/tabletop-api/internal/engine/rules"
	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/clock"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/dice"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/characters"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/games"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/maps"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/npcs"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/rollsession"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/tokens"
	"github.com/KirkDiggler/tabletop-api/internal/services/gamestate"
	"github.com/KirkDiggler/tabletop-api/internal/services/placement"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

const (
	// maxAttempts bounds how often a version conflict is retried
	maxAttempts          = 3
	defaultRetryInterval = 25 * time.Millisecond
	msgNotYourTurn       = "not your turn"
	msgAlreadyRerolled   = "that roll was already rerolled"
	msgGameNotActive     = "game is %s"
)

var tracer = otel.Tracer("github.com/KirkDiggler/tabletop-api/internal/orchestrators/action")

// Service defines the turn processor
type Service interface {
	// Submit validates and applies one action of the active turn holder
	Submit(ctx context.Context, input *SubmitInput) (*SubmitOutput, error)

	// Reroll replays the holder's last critically failed roll with fresh dice
	Reroll(ctx context.Context, input *RerollInput) (*SubmitOutput, error)
}

// Config holds the dependencies for the action orchestrator
type Config struct {
	DB           *sqlite.DB
	Games        games.Repository
	Characters   characters.Repository
	Maps         maps.Repository
	Tokens       tokens.Repository
	NPCs         npcs.Repository
	RollSessions rollsession.Repository
	GameState    gamestate.Service
	Placement    placement.Service
	Rules        *rules.Ruleset
	Roller       dice.Roller
	Clock        clock.Clock

	// RollSessionTTL overrides the roll session store's default expiry
	RollSessionTTL time.Duration
	// RetryInterval is the first wait after a version conflict
	RetryInterval time.Duration
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
	if c.Maps == nil {
		vb.RequiredField("Maps")
	}
	if c.Tokens == nil {
		vb.RequiredField("Tokens")
	}
	if c.NPCs == nil {
		vb.RequiredField("NPCs")
	}
	if c.RollSessions == nil {
		vb.RequiredField("RollSessions")
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
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}

	return vb.Build()
}

type orchestrator struct {
	db            *sqlite.DB
	games         games.Repository
	characters    characters.Repository
	maps          maps.Repository
	tokens        tokens.Repository
	npcs          npcs.Repository
	rollSessions  rollsession.Repository
	state         gamestate.Service
	placement     placement.Service
	rules         *rules.Ruleset
	roller        dice.Roller
	clock         clock.Clock
	rollTTL       time.Duration
	retryInterval time.Duration
}

// NewOrchestrator creates a new action orchestrator
func NewOrchestrator(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}

	return &orchestrator{
		db:            cfg.DB,
		games:         cfg.Games,
		characters:    cfg.Characters,
		maps:          cfg.Maps,
		tokens:        cfg.Tokens,
		npcs:          cfg.NPCs,
		rollSessions:  cfg.RollSessions,
		state:         cfg.GameState,
		placement:     cfg.Placement,
		rules:         cfg.Rules,
		roller:        cfg.Roller,
		clock:         cfg.Clock,
		rollTTL:       cfg.RollSessionTTL,
		retryInterval: retryInterval,
	}, nil
}

// Submit resolves one action. Version conflicts with concurrent writers are
// retried against fresh state unless the caller pinned ExpectedVersion.
func (o *orchestrator) Submit(ctx context.Context, input *SubmitInput) (*SubmitOutput, error) {
	if input == nil || input.Action == nil {
		return nil, errors.InvalidArgument("action is required")
	}

	ctx, span := tracer.Start(ctx, "action.Submit", trace.WithAttributes(
		attribute.String("game.invite_code", input.InviteCode),
		attribute.String("action.type", string(input.Action.ActionType())),
	))
	defer span.End()

	out, err := o.withRetry(ctx, input.ExpectedVersion != nil, func(ctx context.Context) (*SubmitOutput, error) {
		return o.submitOnce(ctx, input, nil)
	})
	if err != nil {
		o.reject(ctx, span, input, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("game.state_version", out.Version))
	slog.InfoContext(ctx, "Action resolved",
		"invite_code", input.InviteCode,
		"type", input.Action.ActionType(),
		"actor_id", out.Result.ActorID,
		"version", out.Version,
	)
	return out, nil
}

// Reroll replays the stored action of the active turn holder once, when its
// deciding roll was a critical failure and the holder has a reroll skill
func (o *orchestrator) Reroll(ctx context.Context, input *RerollInput) (*SubmitOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := tracer.Start(ctx, "action.Reroll", trace.WithAttributes(
		attribute.String("game.invite_code", input.InviteCode),
	))
	defer span.End()

	stored, err := o.rerollable(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.GetMessage(err))
		return nil, err
	}
	action, err := entities.DecodeAction(stored.Action)
	if err != nil {
		return nil, errors.Wrap(err, "stored action is unreadable")
	}

	submit := &SubmitInput{InviteCode: input.InviteCode, UserID: input.UserID, Action: action}
	out, err := o.withRetry(ctx, false, func(ctx context.Context) (*SubmitOutput, error) {
		return o.submitOnce(ctx, submit, stored)
	})
	if err != nil {
		o.reject(ctx, span, submit, err)
		return nil, err
	}

	slog.InfoContext(ctx, "Roll replayed",
		"invite_code", input.InviteCode,
		"actor_id", out.Result.ActorID,
		"type", action.ActionType(),
	)
	return out, nil
}

func (o *orchestrator) rerollable(ctx context.Context, input *RerollInput) (*rollsession.RollSession, error) {
	resolved, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
		InviteCode: input.InviteCode,
		UserID:     input.UserID,
		Access:     gamestate.AccessMember,
	})
	if err != nil {
		return nil, err
	}
	if resolved.Session.Status != entities.GameStatusActive {
		return nil, errors.FailedPreconditionf(msgGameNotActive, resolved.Session.Status)
	}
	turn := resolved.State.Turn
	if !turn.InEncounter() {
		return nil, errors.FailedPrecondition("no encounter is running")
	}
	if err := authorizeTurn(resolved); err != nil {
		return nil, err
	}
	if turn.ActiveTurn.Type != entities.TurnTypePlayer {
		return nil, errors.FailedPrecondition("NPCs cannot reroll")
	}

	charOut, err := o.characters.Get(ctx, characters.GetInput{ID: turn.ActiveTurn.EntityID})
	if err != nil {
		return nil, err
	}
	if !o.rules.CanReroll(charOut.Character.Skills) {
		return nil, errors.FailedPreconditionf("%s has no skill that allows a reroll", charOut.Character.Name)
	}

	got, err := o.rollSessions.Get(ctx, rollsession.GetInput{
		GameID:   resolved.Session.ID,
		EntityID: turn.ActiveTurn.EntityID,
	})
	if errors.IsNotFound(err) {
		return nil, errors.FailedPrecondition("there is no roll to reroll")
	}
	if err != nil {
		return nil, err
	}

	stored := got.Session
	switch {
	case stored.Rerolled, stored.Version == turn.ActiveTurn.RerolledVersion:
		return nil, errors.FailedPrecondition(msgAlreadyRerolled)
	case !stored.CriticalFailure:
		return nil, errors.FailedPrecondition("only a critical failure can be rerolled")
	case stored.TurnNumber != turn.ActiveTurn.TurnNumber:
		return nil, errors.FailedPrecondition("the turn that rolled has ended")
	}
	return stored, nil
}

func (o *orchestrator) withRetry(ctx context.Context, pinned bool, op func(context.Context) (*SubmitOutput, error)) (*SubmitOutput, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.retryInterval

	attempt := 0
	return backoff.Retry(ctx, func() (*SubmitOutput, error) {
		attempt++
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if errors.IsAborted(err) && !pinned {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			slog.DebugContext(ctx, "Retrying action after state conflict",
				"attempt", attempt,
				"wait", wait,
				"error", err,
			)
		}),
	)
}

func (o *orchestrator) reject(ctx context.Context, span trace.Span, input *SubmitInput, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, errors.GetMessage(err))

	switch errors.GetCode(err) {
	case errors.CodeInternal, errors.CodeUnavailable:
		slog.ErrorContext(ctx, "Action failed",
			"invite_code", input.InviteCode,
			"type", input.Action.ActionType(),
			"error", err,
		)
	default:
		slog.WarnContext(ctx, "Action rejected",
			"invite_code", input.InviteCode,
			"user_id", input.UserID,
			"type", input.Action.ActionType(),
			"reason", errors.GetMessage(err),
		)
	}
}

// authorizeTurn allows the owning player on a character's turn and the host
// on an NPC's turn
func authorizeTurn(resolved *gamestate.ResolveOutput) error {
	active := resolved.State.Turn.ActiveTurn
	switch active.Type {
	case entities.TurnTypePlayer:
		if resolved.Entry != nil && resolved.Entry.CharacterID == active.EntityID {
			return nil
		}
	case entities.TurnTypeNPC:
		if resolved.IsHost {
			return nil
		}
	}
	return errors.PermissionDenied(msgNotYourTurn)
}

func (o *orchestrator) submitOnce(ctx context.Context, input *SubmitInput, replay *rollsession.RollSession) (*SubmitOutput, error) {
	var (
		out   *SubmitOutput
		b     *battle
		actor *combatant
	)
	err := o.db.InTx(ctx, func(ctx context.Context) error {
		resolved, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
			InviteCode: input.InviteCode,
			UserID:     input.UserID,
			Access:     gamestate.AccessMember,
		})
		if err != nil {
			return err
		}
		current := resolved.State.Version
		if input.ExpectedVersion != nil && *input.ExpectedVersion != current {
			return errors.Abortedf("state version %d is stale, current is %d", *input.ExpectedVersion, current).
				WithMeta("expected_version", *input.ExpectedVersion).
				WithMeta("current_version", current)
		}

		if resolved.Session.Status != entities.GameStatusActive {
			return errors.FailedPreconditionf(msgGameNotActive, resolved.Session.Status)
		}
		turn := resolved.State.Turn
		if !turn.InEncounter() {
			return errors.FailedPrecondition("no encounter is running")
		}
		if err := authorizeTurn(resolved); err != nil {
			return err
		}
		if replay != nil {
			if replay.EntityID != turn.ActiveTurn.EntityID || replay.TurnNumber != turn.ActiveTurn.TurnNumber {
				return errors.FailedPrecondition("the turn that rolled has ended")
			}
			if replay.Version == turn.ActiveTurn.RerolledVersion {
				return errors.FailedPrecondition(msgAlreadyRerolled)
			}
		}

		b, err = o.loadBattle(ctx, resolved)
		if err != nil {
			return err
		}
		actor = b.active()
		if actor == nil {
			return errors.FailedPrecondition("the active combatant is no longer on the map")
		}
		if _, ending := input.Action.(entities.EndTurnAction); !ending && actor.defeated() {
			return errors.FailedPreconditionf("%s is defeated and can only end the turn", actor.name())
		}

		result, err := o.resolve(ctx, b, actor, input.Action, replay != nil)
		if err != nil {
			return err
		}
		result.Rolls = b.rolls
		result.Rerolled = replay != nil
		if replay != nil {
			b.turn.ActiveTurn.RerolledVersion = replay.Version
		}
		if err := o.flush(ctx, b); err != nil {
			return err
		}

		for _, e := range b.entries {
			if e.Data == nil {
				e.Data = map[string]any{}
			}
			e.Data["userId"] = input.UserID
			if replay != nil {
				e.Data["rerollOf"] = e.Type
				e.Type = entities.LogTypeReroll
			}
		}
		commitOut, err := o.state.Commit(ctx, &gamestate.CommitInput{
			Session:         resolved.Session,
			ExpectedVersion: current,
			Turn:            &b.turn,
			Entries:         b.entries,
		})
		if err != nil {
			return err
		}

		out = &SubmitOutput{Result: result, Turn: b.turn, Version: commitOut.Version}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.storeRolls(ctx, input, b, actor, out, replay != nil)
	return out, nil
}

// storeRolls keeps the rolls of a resolved attack or spell for a possible
// reroll. A failure here loses the reroll, not the action.
func (o *orchestrator) storeRolls(ctx context.Context, input *SubmitInput, b *battle, actor *combatant, out *SubmitOutput, replayed bool) {
	if len(b.rolls) == 0 {
		return
	}
	switch input.Action.(type) {
	case entities.BasicAttackAction, entities.CastSpellAction:
	default:
		return
	}

	encoded, err := entities.EncodeAction(input.Action)
	if err != nil {
		slog.WarnContext(ctx, "Failed to encode action for roll session", "error", err)
		return
	}
	rolls := make([]rollsession.Roll, len(b.rolls))
	for i, r := range b.rolls {
		rolls[i] = rollsession.Roll{
			Purpose:     b.purpose[i],
			Notation:    r.Notation,
			Dice:        r.Dice,
			DiceTotal:   r.DiceTotal,
			Modifier:    r.Modifier,
			Total:       r.Total,
			Description: r.Description,
		}
	}

	_, err = o.rollSessions.Create(ctx, rollsession.CreateInput{
		GameID:          b.session().ID,
		EntityID:        actor.id,
		ActorID:         input.UserID,
		TurnNumber:      out.Turn.ActiveTurn.TurnNumber,
		Version:         out.Version,
		Action:          encoded,
		Rolls:           rolls,
		CriticalFailure: out.Result.CriticalFailure,
		Rerolled:        replayed,
		TTL:             o.rollTTL,
	})
	if err != nil {
		slog.WarnContext(ctx, "Failed to store roll session", "actor_id", actor.id, "error", err)
		return
	}
	if replayed {
		return
	}

	out.Result.CanReroll = out.Result.CriticalFailure &&
		actor.character != nil &&
		o.rules.CanReroll(actor.character.Skills)
}
