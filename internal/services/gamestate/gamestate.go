package gamestate

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/clock"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/characters"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/gamelog"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/games"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/maps"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/npcs"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/snapshot"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/tokens"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

// RecentLogLimit is how many log entries a snapshot carries
const RecentLogLimit = 20

const defaultHostOnlyMessage = "only the host can do that"

// Config holds the dependencies for the game state service
type Config struct {
	DB         *sqlite.DB
	Games      games.Repository
	Log        gamelog.Repository
	Characters characters.Repository
	Maps       maps.Repository
	Tokens     tokens.Repository
	NPCs       npcs.Repository
	Cache      snapshot.Repository
	Clock      clock.Clock
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
	if c.Log == nil {
		vb.RequiredField("Log")
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
	if c.Cache == nil {
		vb.RequiredField("Cache")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}

	return vb.Build()
}

type service struct {
	db         *sqlite.DB
	games      games.Repository
	log        gamelog.Repository
	characters characters.Repository
	maps       maps.Repository
	tokens     tokens.Repository
	npcs       npcs.Repository
	cache      snapshot.Repository
	clock      clock.Clock
}

// NewService creates the game state service
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &service{
		db:         cfg.DB,
		games:      cfg.Games,
		log:        cfg.Log,
		characters: cfg.Characters,
		maps:       cfg.Maps,
		tokens:     cfg.Tokens,
		npcs:       cfg.NPCs,
		cache:      cfg.Cache,
		clock:      cfg.Clock,
	}, nil
}

var _ Service = (*service)(nil)

func (s *service) Resolve(ctx context.Context, input *ResolveInput) (*ResolveOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.InviteCode == "" {
		return nil, errors.InvalidArgument("invite code is required")
	}

	sessionOut, err := s.games.GetByInviteCode(ctx, games.GetByInviteCodeInput{InviteCode: input.InviteCode})
	if err != nil {
		return nil, err
	}
	session := sessionOut.Session

	stateOut, err := s.games.GetState(ctx, games.GetStateInput{GameID: session.ID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load game state")
	}
	session.StateVersion = stateOut.State.Version

	out := &ResolveOutput{
		Session: session,
		State:   stateOut.State,
		IsHost:  session.IsHost(input.UserID),
	}

	if input.UserID != "" {
		playerOut, err := s.games.GetPlayer(ctx, games.GetPlayerInput{GameID: session.ID, PlayerID: input.UserID})
		switch {
		case err == nil:
			out.Entry = playerOut.Entry
		case !errors.IsNotFound(err):
			return nil, errors.Wrap(err, "failed to load roster entry")
		}
	}

	switch input.Access {
	case AccessHost:
		if !out.IsHost {
			msg := input.HostOnlyMessage
			if msg == "" {
				msg = defaultHostOnlyMessage
			}
			return nil, errors.PermissionDenied(msg)
		}
	case AccessMember:
		if !out.IsHost && out.Entry == nil {
			return nil, errors.PermissionDenied("you are not part of this game")
		}
	}

	return out, nil
}

func (s *service) Commit(ctx context.Context, input *CommitInput) (*CommitOutput, error) {
	if input == nil || input.Session == nil {
		return nil, errors.InvalidArgument("session is required")
	}

	now := s.clock.Now()
	out := &CommitOutput{}
	err := s.db.InTx(ctx, func(ctx context.Context) error {
		commitOut, err := s.games.CommitState(ctx, games.CommitStateInput{
			GameID:          input.Session.ID,
			ExpectedVersion: input.ExpectedVersion,
			Turn:            input.Turn,
			UpdatedAt:       now,
		})
		if err != nil {
			return err
		}
		out.Version = commitOut.Version

		if len(input.Entries) == 0 {
			return nil
		}
		for _, entry := range input.Entries {
			entry.GameID = input.Session.ID
			if entry.CreatedAt.IsZero() {
				entry.CreatedAt = now
			}
		}
		appendOut, err := s.log.Append(ctx, gamelog.AppendInput{Entries: input.Entries})
		if err != nil {
			return errors.Wrap(err, "failed to append log entries")
		}
		out.Entries = appendOut.Entries
		return nil
	})
	if err != nil {
		return nil, err
	}

	input.Session.StateVersion = out.Version
	slog.DebugContext(ctx, "Committed game state",
		"game_id", input.Session.ID,
		"version", out.Version,
		"log_entries", len(out.Entries),
	)
	return out, nil
}

func (s *service) Snapshot(ctx context.Context, input *SnapshotInput) (*SnapshotOutput, error) {
	if input == nil || input.Session == nil || input.State == nil {
		return nil, errors.InvalidArgument("session and state are required")
	}
	session, state := input.Session, input.State

	cached, err := s.cache.Get(ctx, snapshot.GetInput{InviteCode: session.InviteCode, Version: state.Version})
	if err != nil {
		slog.WarnContext(ctx, "Snapshot cache read failed", "invite_code", session.InviteCode, "error", err)
	} else if cached.Hit {
		var snap entities.GameStateSnapshot
		if err := json.Unmarshal(cached.Data, &snap); err == nil {
			return &SnapshotOutput{Snapshot: &snap, Data: cached.Data, Cached: true}, nil
		}
		slog.WarnContext(ctx, "Discarding unreadable cached snapshot", "invite_code", session.InviteCode)
	}

	// Renders only the current state; callers resolve it in the same read tx
	var snap *entities.GameStateSnapshot
	err = s.db.ReadTx(ctx, func(ctx context.Context) error {
		current, err := s.games.GetState(ctx, games.GetStateInput{GameID: session.ID})
		if err != nil {
			return errors.Wrap(err, "failed to load game state")
		}
		if current.State.Version != state.Version {
			return errors.Abortedf("game state moved from version %d to %d", state.Version, current.State.Version)
		}
		snap, err = s.build(ctx, session, state)
		return err
	})
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode snapshot")
	}

	if _, err := s.cache.Put(ctx, snapshot.PutInput{
		InviteCode: session.InviteCode,
		Version:    state.Version,
		Data:       data,
	}); err != nil {
		slog.WarnContext(ctx, "Snapshot cache write failed", "invite_code", session.InviteCode, "error", err)
	}

	return &SnapshotOutput{Snapshot: snap, Data: data}, nil
}

func (s *service) build(ctx context.Context, session *entities.GameSession, state *entities.GameState) (*entities.GameStateSnapshot, error) {
	session.StateVersion = state.Version
	snap := &entities.GameStateSnapshot{
		Session:   session,
		Roster:    []entities.RosterView{},
		Tokens:    []*entities.MapToken{},
		NPCs:      []entities.NPCView{},
		Turn:      state.Turn.Clone(),
		RecentLog: []*entities.ActivityLogEntry{},
		Version:   state.Version,
	}

	playersOut, err := s.games.ListPlayers(ctx, games.ListPlayersInput{GameID: session.ID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load roster")
	}
	ids := make([]string, 0, len(playersOut.Entries))
	for _, entry := range playersOut.Entries {
		ids = append(ids, entry.CharacterID)
	}
	charsOut, err := s.characters.GetMany(ctx, characters.GetManyInput{IDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load roster characters")
	}
	for _, entry := range playersOut.Entries {
		character, ok := charsOut.Characters[entry.CharacterID]
		if !ok {
			character = entities.RemovedCharacter(entry.CharacterID)
		}
		snap.Roster = append(snap.Roster, entities.RosterView{
			PlayerID:    entry.PlayerID,
			PlayerEmail: entry.PlayerEmail,
			IsHost:      session.IsHost(entry.PlayerID),
			Character:   character,
		})
	}

	if session.CurrentMapID != "" {
		mapOut, err := s.maps.GetMap(ctx, maps.GetMapInput{ID: session.CurrentMapID})
		switch {
		case err == nil:
			snap.Map = mapOut.Map
		case errors.IsNotFound(err):
			slog.WarnContext(ctx, "Session points at a missing map", "game_id", session.ID, "map_id", session.CurrentMapID)
		default:
			return nil, errors.Wrap(err, "failed to load map")
		}
	}
	if snap.Map != nil {
		tokensOut, err := s.tokens.ListForMap(ctx, tokens.ListForMapInput{MapID: snap.Map.ID})
		if err != nil {
			return nil, errors.Wrap(err, "failed to load tokens")
		}
		snap.Tokens = append(snap.Tokens, tokensOut.Tokens...)
	}

	instancesOut, err := s.npcs.ListInstancesForGame(ctx, npcs.ListInstancesForGameInput{
		GameID: session.ID,
		MapID:  session.CurrentMapID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load npc instances")
	}
	if len(instancesOut.Instances) > 0 {
		defsOut, err := s.npcs.ListDefinitions(ctx, npcs.ListDefinitionsInput{})
		if err != nil {
			return nil, errors.Wrap(err, "failed to load npc definitions")
		}
		bySlug := make(map[string]*entities.NPCDefinition, len(defsOut.Definitions))
		for _, def := range defsOut.Definitions {
			bySlug[def.Slug] = def
		}
		for _, instance := range instancesOut.Instances {
			view := entities.NPCView{Instance: instance}
			if def, ok := bySlug[instance.Slug]; ok {
				view.ArmorClass = def.ArmorClass
				view.Speed = def.Speed
			}
			snap.NPCs = append(snap.NPCs, view)
		}
	}

	logOut, err := s.log.List(ctx, gamelog.ListInput{GameID: session.ID, Limit: RecentLogLimit})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load activity log")
	}
	snap.RecentLog = append(snap.RecentLog, logOut.Entries...)

	return snap, nil
}
