// Package game implements the session manager: hosting, joining, lifecycle,
// initiative and the polling snapshot
package game

//go:generate mockgen -destination=mock/mock_service.go -package=gamemock github.com/KirkDiggler/tabletop-api/internal/orchestrators/game Service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KirkDiggler/tabletop-api/internal/engine/initiative"
	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/clock"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/dice"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/idgen"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/characters"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/gamelog"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/games"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/npcs"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/tokens"
	"github.com/KirkDiggler/tabletop-api/internal/services/gamestate"
	"github.com/KirkDiggler/tabletop-api/internal/services/placement"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

const (
	maxInviteCodeAttempts = 10

	maxTitleLength      = 200
	maxTextLength       = 2000
	maxObjectives       = 20
	initiativeDie       = 20
	msgHostStatus       = "only the host can change the game status"
	msgHostStartCombat  = "only the host can start combat"
	msgHostEndCombat    = "only the host can end combat"
	msgHostClearLog     = "only the host can clear the activity log"
	msgGameNotActive    = "game is %s"
	msgNotOwnCharacter  = "you can only join with your own character"
	msgEncounterRunning = "an encounter is already running"
)

// Service defines the session manager operations
type Service interface {
	// Session lifecycle
	CreateGame(ctx context.Context, input *CreateGameInput) (*CreateGameOutput, error)
	GetGame(ctx context.Context, input *GetGameInput) (*GetGameOutput, error)
	ListGames(ctx context.Context, input *ListGamesInput) (*ListGamesOutput, error)
	JoinGame(ctx context.Context, input *JoinGameInput) (*JoinGameOutput, error)
	UpdateStatus(ctx context.Context, input *UpdateStatusInput) (*UpdateStatusOutput, error)

	// Encounters
	StartEncounter(ctx context.Context, input *StartEncounterInput) (*StartEncounterOutput, error)
	EndEncounter(ctx context.Context, input *EndEncounterInput) (*EndEncounterOutput, error)

	// Polling and history
	GetState(ctx context.Context, input *GetStateInput) (*GetStateOutput, error)
	GetLog(ctx context.Context, input *GetLogInput) (*GetLogOutput, error)
	ClearLog(ctx context.Context, input *ClearLogInput) (*ClearLogOutput, error)
}

// Config holds the dependencies for the game orchestrator
type Config struct {
	DB          *sqlite.DB
	Games       games.Repository
	Log         gamelog.Repository
	Characters  characters.Repository
	Tokens      tokens.Repository
	NPCs        npcs.Repository
	GameState   gamestate.Service
	Placement   placement.Service
	Roller      dice.Roller
	IDGenerator idgen.Generator
	InviteCodes idgen.Generator
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
	if c.Log == nil {
		vb.RequiredField("Log")
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
	if c.Roller == nil {
		vb.RequiredField("Roller")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.InviteCodes == nil {
		vb.RequiredField("InviteCodes")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}

	return vb.Build()
}

type orchestrator struct {
	db          *sqlite.DB
	games       games.Repository
	log         gamelog.Repository
	characters  characters.Repository
	tokens      tokens.Repository
	npcs        npcs.Repository
	state       gamestate.Service
	placement   placement.Service
	roller      dice.Roller
	idGen       idgen.Generator
	inviteCodes idgen.Generator
	clock       clock.Clock
}

// NewOrchestrator creates a new game orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &orchestrator{
		db:          cfg.DB,
		games:       cfg.Games,
		log:         cfg.Log,
		characters:  cfg.Characters,
		tokens:      cfg.Tokens,
		npcs:        cfg.NPCs,
		state:       cfg.GameState,
		placement:   cfg.Placement,
		roller:      cfg.Roller,
		idGen:       cfg.IDGenerator,
		inviteCodes: cfg.InviteCodes,
		clock:       cfg.Clock,
	}, nil
}

// CreateGame hosts a new session under a fresh invite code
func (o *orchestrator) CreateGame(ctx context.Context, input *CreateGameInput) (*CreateGameOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("hostId", input.HostID, vb)
	errors.ValidateRequired("quest.title", input.Quest.Title, vb)
	errors.ValidateMaxLength("quest.title", input.Quest.Title, maxTitleLength, vb)
	errors.ValidateMaxLength("quest.description", input.Quest.Description, maxTextLength, vb)
	errors.ValidateMaxLength("world", input.World, maxTitleLength, vb)
	errors.ValidateMaxLength("startingArea", input.StartingArea, maxTitleLength, vb)
	if len(input.Quest.Objectives) > maxObjectives {
		vb.Fieldf("quest.objectives", "must be no more than %d objectives", maxObjectives)
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	now := o.clock.Now()
	for attempt := 1; attempt <= maxInviteCodeAttempts; attempt++ {
		code := o.inviteCodes.Generate()
		exists, err := o.games.InviteCodeExists(ctx, code)
		if err != nil {
			return nil, errors.Wrap(err, "failed to check invite code")
		}
		if exists {
			slog.DebugContext(ctx, "Invite code collision", "attempt", attempt)
			continue
		}

		session := &entities.GameSession{
			ID:           o.idGen.Generate(),
			InviteCode:   code,
			HostID:       input.HostID,
			HostEmail:    input.HostEmail,
			Quest:        input.Quest,
			World:        input.World,
			StartingArea: input.StartingArea,
			Status:       entities.GameStatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err = o.db.InTx(ctx, func(ctx context.Context) error {
			if _, err := o.games.Create(ctx, games.CreateInput{Session: session}); err != nil {
				return err
			}
			// Creation is not a mutation of the state, so the version stays at 0
			_, err := o.log.Append(ctx, gamelog.AppendInput{Entries: []*entities.ActivityLogEntry{{
				GameID:      session.ID,
				ActorID:     input.HostID,
				ActorName:   input.HostEmail,
				Type:        entities.LogTypeSessionCreated,
				Description: fmt.Sprintf("Quest %q begins", input.Quest.Title),
				Data:        map[string]any{"inviteCode": code},
				CreatedAt:   now,
			}}})
			return err
		})
		if errors.IsAlreadyExists(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		slog.InfoContext(ctx, "Created game",
			"game_id", session.ID,
			"invite_code", code,
			"host_id", input.HostID,
		)
		return &CreateGameOutput{Session: session}, nil
	}

	return nil, errors.Unavailable("could not allocate a unique invite code")
}

// GetGame returns a session and its roster to the host or a member
func (o *orchestrator) GetGame(ctx context.Context, input *GetGameInput) (*GetGameOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	resolved, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
		InviteCode: input.InviteCode,
		UserID:     input.UserID,
		Access:     gamestate.AccessMember,
	})
	if err != nil {
		return nil, err
	}

	rosterOut, err := o.games.ListPlayers(ctx, games.ListPlayersInput{GameID: resolved.Session.ID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load roster")
	}

	return &GetGameOutput{
		Session: resolved.Session,
		IsHost:  resolved.IsHost,
		Roster:  rosterOut.Entries,
	}, nil
}

// ListGames returns sessions the user hosts or plays in
func (o *orchestrator) ListGames(ctx context.Context, input *ListGamesInput) (*ListGamesOutput, error) {
	if input == nil || input.UserID == "" {
		return nil, errors.InvalidArgument("user id is required")
	}

	out, err := o.games.ListForUser(ctx, games.ListForUserInput{UserID: input.UserID})
	if err != nil {
		return nil, err
	}
	return &ListGamesOutput{Sessions: out.Sessions}, nil
}

// JoinGame puts the player's character on the roster. Joining again with the
// same character changes nothing.
func (o *orchestrator) JoinGame(ctx context.Context, input *JoinGameInput) (*JoinGameOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("inviteCode", input.InviteCode, vb)
	errors.ValidateRequired("playerId", input.PlayerID, vb)
	errors.ValidateRequired("characterId", input.CharacterID, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	var out *JoinGameOutput
	err := o.db.InTx(ctx, func(ctx context.Context) error {
		resolved, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
			InviteCode: input.InviteCode,
			UserID:     input.PlayerID,
			Access:     gamestate.AccessAuthenticated,
		})
		if err != nil {
			return err
		}
		session := resolved.Session
		if session.Status != entities.GameStatusActive {
			return errors.FailedPreconditionf(msgGameNotActive, session.Status)
		}

		charOut, err := o.characters.Get(ctx, characters.GetInput{ID: input.CharacterID})
		if err != nil {
			return err
		}
		character := charOut.Character
		if character.PlayerID != input.PlayerID {
			return errors.PermissionDenied(msgNotOwnCharacter)
		}

		if resolved.Entry != nil && resolved.Entry.CharacterID == input.CharacterID {
			out = &JoinGameOutput{Entry: resolved.Entry, Session: session}
			return nil
		}

		upsertOut, err := o.games.UpsertPlayer(ctx, games.UpsertPlayerInput{Entry: &entities.RosterEntry{
			GameID:      session.ID,
			PlayerID:    input.PlayerID,
			PlayerEmail: input.PlayerEmail,
			CharacterID: input.CharacterID,
			JoinedAt:    o.clock.Now(),
		}})
		if err != nil {
			return err
		}

		if session.CurrentMapID != "" && resolved.Entry != nil {
			if err := o.retireToken(ctx, session.CurrentMapID, resolved.Entry.CharacterID); err != nil {
				return err
			}
		}

		if session.CurrentMapID != "" {
			_, err := o.placement.SpawnToken(ctx, &placement.SpawnTokenInput{
				MapID:       session.CurrentMapID,
				TokenType:   entities.TokenTypePlayer,
				CharacterID: character.ID,
				Label:       character.Name,
			})
			switch {
			case errors.IsFailedPrecondition(err):
				slog.WarnContext(ctx, "No room on the map for joining character",
					"game_id", session.ID,
					"character_id", character.ID,
				)
			case err != nil:
				return err
			}
		}

		description := fmt.Sprintf("%s joined the party", character.Name)
		if resolved.Entry != nil {
			description = fmt.Sprintf("%s now plays %s", input.PlayerEmail, character.Name)
		}
		if _, err := o.state.Commit(ctx, &gamestate.CommitInput{
			Session:         session,
			ExpectedVersion: resolved.State.Version,
			Entries: []*entities.ActivityLogEntry{{
				ActorID:     input.PlayerID,
				ActorName:   character.Name,
				Type:        entities.LogTypePlayerJoined,
				Description: description,
				Data:        map[string]any{"characterId": character.ID},
			}},
		}); err != nil {
			return err
		}

		out = &JoinGameOutput{Entry: upsertOut.Entry, Session: session, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Changed {
		slog.InfoContext(ctx, "Player joined game",
			"game_id", out.Session.ID,
			"player_id", input.PlayerID,
			"character_id", input.CharacterID,
		)
	}
	return out, nil
}

// retireToken removes the token of a character its player no longer plays
func (o *orchestrator) retireToken(ctx context.Context, mapID, characterID string) error {
	found, err := o.tokens.FindByEntity(ctx, tokens.FindByEntityInput{
		MapID:     mapID,
		TokenType: entities.TokenTypePlayer,
		EntityID:  characterID,
	})
	if err != nil {
		return err
	}
	if found.Token == nil {
		return nil
	}
	if _, err := o.tokens.Delete(ctx, tokens.DeleteInput{ID: found.Token.ID}); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Retired token of switched character", "map_id", mapID, "character_id", characterID, "token_id", found.Token.ID)
	return nil
}

// UpdateStatus moves an active session to completed or abandoned
func (o *orchestrator) UpdateStatus(ctx context.Context, input *UpdateStatusInput) (*UpdateStatusOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.Status != entities.GameStatusCompleted && input.Status != entities.GameStatusAbandoned {
		return nil, errors.InvalidArgumentf("status must be %s or %s", entities.GameStatusCompleted, entities.GameStatusAbandoned)
	}

	var session *entities.GameSession
	err := o.db.InTx(ctx, func(ctx context.Context) error {
		resolved, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
			InviteCode:      input.InviteCode,
			UserID:          input.UserID,
			Access:          gamestate.AccessHost,
			HostOnlyMessage: msgHostStatus,
		})
		if err != nil {
			return err
		}
		session = resolved.Session
		if session.Status != entities.GameStatusActive {
			return errors.FailedPreconditionf(msgGameNotActive, session.Status)
		}

		previous := session.Status
		session.Status = input.Status
		session.UpdatedAt = o.clock.Now()
		if _, err := o.games.Update(ctx, games.UpdateInput{Session: session}); err != nil {
			return err
		}

		// A finished game has no turn to take
		var turn *entities.TurnState
		if resolved.State.Turn.InEncounter() {
			turn = &entities.TurnState{}
		}

		_, err = o.state.Commit(ctx, &gamestate.CommitInput{
			Session:         session,
			ExpectedVersion: resolved.State.Version,
			Turn:            turn,
			Entries: []*entities.ActivityLogEntry{{
				ActorID:     input.UserID,
				ActorName:   session.HostEmail,
				Type:        entities.LogTypeStatusChanged,
				Description: fmt.Sprintf("The game was marked %s", input.Status),
				Data:        map[string]any{"from": previous, "to": input.Status},
			}},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Game status changed", "game_id", session.ID, "status", session.Status)
	return &UpdateStatusOutput{Session: session}, nil
}

type combatant struct {
	entityID string
	typ      entities.TurnType
	name     string
	dexMod   int
	speed    int
}

// StartEncounter rolls initiative for everyone on the current map
func (o *orchestrator) StartEncounter(ctx context.Context, input *StartEncounterInput) (*StartEncounterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	out := &StartEncounterOutput{}
	err := o.db.InTx(ctx, func(ctx context.Context) error {
		resolved, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
			InviteCode:      input.InviteCode,
			UserID:          input.UserID,
			Access:          gamestate.AccessHost,
			HostOnlyMessage: msgHostStartCombat,
		})
		if err != nil {
			return err
		}
		session := resolved.Session
		switch {
		case session.Status != entities.GameStatusActive:
			return errors.FailedPreconditionf(msgGameNotActive, session.Status)
		case resolved.State.Turn.InEncounter():
			return errors.FailedPrecondition(msgEncounterRunning)
		case session.CurrentMapID == "":
			return errors.FailedPrecondition("generate a map before starting combat")
		}

		fighters, err := o.combatants(ctx, session)
		if err != nil {
			return err
		}
		if len(fighters) == 0 {
			return errors.FailedPrecondition("there is nobody on the map to fight")
		}

		speeds := make(map[string]int, len(fighters))
		for _, f := range fighters {
			result, err := o.roller.Roll(dice.Notation{Count: 1, Size: initiativeDie, Modifier: f.dexMod})
			if err != nil {
				return errors.Wrap(err, "failed to roll initiative")
			}
			out.Rolls = append(out.Rolls, InitiativeRoll{
				EntityID:    f.entityID,
				Type:        f.typ,
				Name:        f.name,
				Roll:        result.DiceTotal,
				Modifier:    result.Modifier,
				Initiative:  result.Total,
				Description: result.Description,
			})
			speeds[f.entityID] = f.speed
		}

		rolled := make([]entities.InitiativeEntry, len(out.Rolls))
		for i, r := range out.Rolls {
			rolled[i] = entities.InitiativeEntry{EntityID: r.EntityID, Type: r.Type, Initiative: r.Initiative, Name: r.Name}
		}
		// Ties keep roster order, players before NPCs
		order := initiative.Order(rolled)
		turn := initiative.Start(order)
		turn.ActiveTurn.Speed = speeds[turn.ActiveTurn.EntityID]
		first := order[0]

		names := make([]string, len(order))
		for i, e := range order {
			names[i] = fmt.Sprintf("%s (%d)", e.Name, e.Initiative)
		}
		commitOut, err := o.state.Commit(ctx, &gamestate.CommitInput{
			Session:         session,
			ExpectedVersion: resolved.State.Version,
			Turn:            &turn,
			Entries: []*entities.ActivityLogEntry{{
				ActorID:     input.UserID,
				ActorName:   session.HostEmail,
				Type:        entities.LogTypeCombatStarted,
				Description: fmt.Sprintf("Combat begins. %s acts first", first.Name),
				Data:        map[string]any{"order": names},
			}},
		})
		if err != nil {
			return err
		}

		out.Turn = turn
		out.Version = commitOut.Version
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Encounter started",
		"invite_code", input.InviteCode,
		"combatants", len(out.Turn.InitiativeOrder),
		"first", out.Turn.ActiveTurn.EntityID,
	)
	return out, nil
}

// combatants lists roster characters with a token on the current map, in
// join order, followed by undefeated NPCs on that map in placement order
func (o *orchestrator) combatants(ctx context.Context, session *entities.GameSession) ([]combatant, error) {
	tokensOut, err := o.tokens.ListForMap(ctx, tokens.ListForMapInput{MapID: session.CurrentMapID})
	if err != nil {
		return nil, err
	}
	onMap := make(map[string]bool, len(tokensOut.Tokens))
	for _, t := range tokensOut.Tokens {
		if t.TokenType == entities.TokenTypePlayer && t.Status != entities.TokenStatusDefeated {
			onMap[t.CharacterID] = true
		}
	}

	rosterOut, err := o.games.ListPlayers(ctx, games.ListPlayersInput{GameID: session.ID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rosterOut.Entries))
	for _, entry := range rosterOut.Entries {
		ids = append(ids, entry.CharacterID)
	}
	charsOut, err := o.characters.GetMany(ctx, characters.GetManyInput{IDs: ids})
	if err != nil {
		return nil, err
	}

	var list []combatant
	for _, id := range ids {
		c, ok := charsOut.Characters[id]
		if !ok || !onMap[id] || c.IsDefeated() {
			continue
		}
		list = append(list, combatant{
			entityID: c.ID,
			typ:      entities.TurnTypePlayer,
			name:     c.Name,
			dexMod:   c.Stats.Modifier(entities.AbilityDexterity),
			speed:    c.Speed,
		})
	}

	instancesOut, err := o.npcs.ListInstancesForGame(ctx, npcs.ListInstancesForGameInput{
		GameID: session.ID,
		MapID:  session.CurrentMapID,
	})
	if err != nil {
		return nil, err
	}
	if len(instancesOut.Instances) == 0 {
		return list, nil
	}
	defsOut, err := o.npcs.ListDefinitions(ctx, npcs.ListDefinitionsInput{})
	if err != nil {
		return nil, err
	}
	defs := make(map[string]*entities.NPCDefinition, len(defsOut.Definitions))
	for _, def := range defsOut.Definitions {
		defs[def.Slug] = def
	}
	for _, inst := range instancesOut.Instances {
		def, ok := defs[inst.Slug]
		if !ok || inst.IsDefeated() {
			continue
		}
		list = append(list, combatant{
			entityID: inst.ID,
			typ:      entities.TurnTypeNPC,
			name:     inst.Name,
			dexMod:   def.Stats.Modifier(entities.AbilityDexterity),
			speed:    def.Speed,
		})
	}
	return list, nil
}

// EndEncounter clears the turn state
func (o *orchestrator) EndEncounter(ctx context.Context, input *EndEncounterInput) (*EndEncounterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	out := &EndEncounterOutput{}
	err := o.db.InTx(ctx, func(ctx context.Context) error {
		resolved, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
			InviteCode:      input.InviteCode,
			UserID:          input.UserID,
			Access:          gamestate.AccessHost,
			HostOnlyMessage: msgHostEndCombat,
		})
		if err != nil {
			return err
		}
		if !resolved.State.Turn.InEncounter() {
			return errors.FailedPrecondition("no encounter is running")
		}

		rounds := resolved.State.Turn.ActiveTurn.TurnNumber
		commitOut, err := o.state.Commit(ctx, &gamestate.CommitInput{
			Session:         resolved.Session,
			ExpectedVersion: resolved.State.Version,
			Turn:            &entities.TurnState{},
			Entries: []*entities.ActivityLogEntry{{
				ActorID:     input.UserID,
				ActorName:   resolved.Session.HostEmail,
				Type:        entities.LogTypeCombatEnded,
				Description: fmt.Sprintf("Combat ends after %d rounds", rounds),
				Data:        map[string]any{"rounds": rounds},
			}},
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

	slog.InfoContext(ctx, "Encounter ended", "invite_code", input.InviteCode)
	return out, nil
}

// GetState returns the full snapshot a polling client renders
func (o *orchestrator) GetState(ctx context.Context, input *GetStateInput) (*GetStateOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	// Resolve and render against one committed state so a concurrent write
	// cannot tear the snapshot
	var resolved *gamestate.ResolveOutput
	var snapOut *gamestate.SnapshotOutput
	err := o.db.ReadTx(ctx, func(ctx context.Context) error {
		var err error
		resolved, err = o.state.Resolve(ctx, &gamestate.ResolveInput{
			InviteCode: input.InviteCode,
			UserID:     input.UserID,
			Access:     gamestate.AccessMember,
		})
		if err != nil {
			return err
		}

		snapOut, err = o.state.Snapshot(ctx, &gamestate.SnapshotInput{Session: resolved.Session, State: resolved.State})
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Served game state",
		"invite_code", input.InviteCode,
		"version", resolved.State.Version,
		"cached", snapOut.Cached,
	)
	return &GetStateOutput{
		Snapshot: snapOut.Snapshot,
		Data:     snapOut.Data,
		Version:  resolved.State.Version,
	}, nil
}

// GetLog returns the most recent log entries, oldest first
func (o *orchestrator) GetLog(ctx context.Context, input *GetLogInput) (*GetLogOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	resolved, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
		InviteCode: input.InviteCode,
		UserID:     input.UserID,
		Access:     gamestate.AccessMember,
	})
	if err != nil {
		return nil, err
	}

	out, err := o.log.List(ctx, gamelog.ListInput{GameID: resolved.Session.ID, Limit: input.Limit})
	if err != nil {
		return nil, err
	}
	return &GetLogOutput{Entries: out.Entries}, nil
}

// ClearLog deletes every log entry of a session
func (o *orchestrator) ClearLog(ctx context.Context, input *ClearLogInput) (*ClearLogOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	out := &ClearLogOutput{}
	err := o.db.InTx(ctx, func(ctx context.Context) error {
		resolved, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
			InviteCode:      input.InviteCode,
			UserID:          input.UserID,
			Access:          gamestate.AccessHost,
			HostOnlyMessage: msgHostClearLog,
		})
		if err != nil {
			return err
		}

		clearOut, err := o.log.Clear(ctx, gamelog.ClearInput{GameID: resolved.Session.ID})
		if err != nil {
			return err
		}
		out.Cleared = clearOut.Deleted

		commitOut, err := o.state.Commit(ctx, &gamestate.CommitInput{
			Session:         resolved.Session,
			ExpectedVersion: resolved.State.Version,
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

	slog.InfoContext(ctx, "Activity log cleared", "invite_code", input.InviteCode, "entries", out.Cleared)
	return out, nil
}
