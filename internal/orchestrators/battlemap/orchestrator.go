// Package battlemap orchestrates the tactical map of a session: generation,
// terrain edits, free token movement and NPC placement.
package battlemap

//go:generate mockgen -destination=mock/mock_service.go -package=battlemapmock github.com/KirkDiggler/tabletop-api/internal/orchestrators/battlemap Service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KirkDiggler/tabletop-api/internal/engine/mapgen"
	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/clock"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/idgen"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/characters"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/games"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/maps"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/npcs"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/tokens"
	"github.com/KirkDiggler/tabletop-api/internal/services/gamestate"
	"github.com/KirkDiggler/tabletop-api/internal/services/placement"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

// MaxTerrainEdits bounds a single terrain request
const MaxTerrainEdits = 1024

const (
	msgHostGenerate = "only the host can generate the map"
	msgHostTerrain  = "only the host can edit terrain"
	msgHostPlaceNPC = "only the host can place NPCs"
	msgNoMap        = "no map has been generated for this game"
)

// Service defines the map operations of a session
type Service interface {
	GenerateMap(ctx context.Context, input *GenerateMapInput) (*GenerateMapOutput, error)
	EditTerrain(ctx context.Context, input *EditTerrainInput) (*EditTerrainOutput, error)
	GetMap(ctx context.Context, input *GetMapInput) (*GetMapOutput, error)
	MoveToken(ctx context.Context, input *MoveTokenInput) (*MoveTokenOutput, error)
	ListNPCs(ctx context.Context, input *ListNPCsInput) (*ListNPCsOutput, error)
	PlaceNPC(ctx context.Context, input *PlaceNPCInput) (*PlaceNPCOutput, error)
}

// Config holds the dependencies for the map orchestrator
type Config struct {
	DB          *sqlite.DB
	Games       games.Repository
	Maps        maps.Repository
	Tokens      tokens.Repository
	NPCs        npcs.Repository
	Characters  characters.Repository
	GameState   gamestate.Service
	Placement   placement.Service
	Generator   *mapgen.Generator
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
	if c.Maps == nil {
		vb.RequiredField("Maps")
	}
	if c.Tokens == nil {
		vb.RequiredField("Tokens")
	}
	if c.NPCs == nil {
		vb.RequiredField("NPCs")
	}
	if c.Characters == nil {
		vb.RequiredField("Characters")
	}
	if c.GameState == nil {
		vb.RequiredField("GameState")
	}
	if c.Placement == nil {
		vb.RequiredField("Placement")
	}
	if c.Generator == nil {
		vb.RequiredField("Generator")
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
	maps       maps.Repository
	tokens     tokens.Repository
	npcs       npcs.Repository
	characters characters.Repository
	state      gamestate.Service
	placement  placement.Service
	generator  *mapgen.Generator
	idGen      idgen.Generator
	clock      clock.Clock
}

// NewOrchestrator creates a new map orchestrator
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
		maps:       cfg.Maps,
		tokens:     cfg.Tokens,
		npcs:       cfg.NPCs,
		characters: cfg.Characters,
		state:      cfg.GameState,
		placement:  cfg.Placement,
		generator:  cfg.Generator,
		idGen:      cfg.IDGenerator,
		clock:      cfg.Clock,
	}, nil
}

// GenerateMap replaces the session's current map with a generated one and
// spawns every roster character near the centre
func (o *orchestrator) GenerateMap(ctx context.Context, input *GenerateMapInput) (*GenerateMapOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	// Check access before spending time on generation
	if _, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
		InviteCode:      input.InviteCode,
		UserID:          input.UserID,
		Access:          gamestate.AccessHost,
		HostOnlyMessage: msgHostGenerate,
	}); err != nil {
		return nil, err
	}

	generated, err := o.generator.Generate(&mapgen.Input{
		Preset: input.Preset,
		Width:  input.Width,
		Height: input.Height,
		Seed:   input.Seed,
	})
	if err != nil {
		return nil, err
	}

	out := &GenerateMapOutput{Tiles: len(generated.Tiles)}
	err = o.db.InTx(ctx, func(ctx context.Context) error {
		resolved, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
			InviteCode:      input.InviteCode,
			UserID:          input.UserID,
			Access:          gamestate.AccessHost,
			HostOnlyMessage: msgHostGenerate,
		})
		if err != nil {
			return err
		}
		session := resolved.Session
		if session.Status != entities.GameStatusActive {
			return errors.FailedPreconditionf("game is %s", session.Status)
		}
		if resolved.State.Turn.InEncounter() {
			return errors.FailedPrecondition("end combat before generating a new map")
		}

		if session.CurrentMapID != "" {
			removed, err := o.placement.RemoveTokensForMap(ctx, &placement.RemoveTokensForMapInput{MapID: session.CurrentMapID})
			if err != nil {
				return err
			}
			slog.DebugContext(ctx, "Removed tokens of previous map",
				"map_id", session.CurrentMapID,
				"removed", removed.Removed,
			)
		}

		name := input.Name
		if name == "" {
			name = fmt.Sprintf("%s %dx%d", input.Preset, input.Width, input.Height)
		}
		seed := generated.Seed
		m := &entities.Map{
			ID:              o.idGen.Generate(),
			GameID:          session.ID,
			Name:            name,
			Width:           input.Width,
			Height:          input.Height,
			DefaultTerrain:  generated.DefaultTerrain,
			GeneratorPreset: string(input.Preset),
			Seed:            &seed,
			IsGenerated:     true,
			Metadata:        generated.Metadata,
			CreatedAt:       o.clock.Now(),
		}
		if _, err := o.maps.CreateMap(ctx, maps.CreateMapInput{Map: m}); err != nil {
			return err
		}
		if _, err := o.maps.BulkCreateTiles(ctx, maps.BulkCreateTilesInput{MapID: m.ID, Tiles: generated.Tiles}); err != nil {
			return err
		}

		session.CurrentMapID = m.ID
		session.UpdatedAt = o.clock.Now()
		if _, err := o.games.Update(ctx, games.UpdateInput{Session: session}); err != nil {
			return err
		}

		spawned, err := o.spawnRoster(ctx, session)
		if err != nil {
			return err
		}

		commitOut, err := o.state.Commit(ctx, &gamestate.CommitInput{
			Session:         session,
			ExpectedVersion: resolved.State.Version,
			Entries: []*entities.ActivityLogEntry{{
				ActorID:     input.UserID,
				ActorName:   session.HostEmail,
				Type:        entities.LogTypeMapGenerated,
				Description: fmt.Sprintf("A new %s map was generated", input.Preset),
				Data: map[string]any{
					"mapId":  m.ID,
					"preset": string(input.Preset),
					"seed":   seed,
					"width":  m.Width,
					"height": m.Height,
				},
			}},
		})
		if err != nil {
			return err
		}

		out.Map = m
		out.Tokens = spawned
		out.Version = commitOut.Version
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Generated map",
		"invite_code", input.InviteCode,
		"map_id", out.Map.ID,
		"preset", input.Preset,
		"seed", generated.Seed,
		"tiles", out.Tiles,
	)
	return out, nil
}

// spawnRoster places a token for every roster character that still exists.
// Characters that do not fit are skipped.
func (o *orchestrator) spawnRoster(ctx context.Context, session *entities.GameSession) ([]*entities.MapToken, error) {
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

	var spawned []*entities.MapToken
	for _, id := range ids {
		c, ok := charsOut.Characters[id]
		if !ok {
			continue
		}
		out, err := o.placement.SpawnToken(ctx, &placement.SpawnTokenInput{
			MapID:       session.CurrentMapID,
			TokenType:   entities.TokenTypePlayer,
			CharacterID: c.ID,
			Label:       c.Name,
		})
		if errors.IsFailedPrecondition(err) {
			slog.WarnContext(ctx, "No room to spawn character", "character_id", c.ID, "map_id", session.CurrentMapID)
			continue
		}
		if err != nil {
			return nil, err
		}
		spawned = append(spawned, out.Token)
	}
	return spawned, nil
}

// EditTerrain upserts tiles on the current map
func (o *orchestrator) EditTerrain(ctx context.Context, input *EditTerrainInput) (*EditTerrainOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	switch {
	case len(input.Edits) == 0:
		return nil, errors.InvalidArgument("at least one edit is required")
	case len(input.Edits) > MaxTerrainEdits:
		return nil, errors.InvalidArgumentf("at most %d edits per request", MaxTerrainEdits)
	}

	out := &EditTerrainOutput{}
	err := o.db.InTx(ctx, func(ctx context.Context) error {
		resolved, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
			InviteCode:      input.InviteCode,
			UserID:          input.UserID,
			Access:          gamestate.AccessHost,
			HostOnlyMessage: msgHostTerrain,
		})
		if err != nil {
			return err
		}
		session := resolved.Session
		if session.CurrentMapID == "" {
			return errors.FailedPrecondition(msgNoMap)
		}
		mapOut, err := o.maps.GetMap(ctx, maps.GetMapInput{ID: session.CurrentMapID})
		if err != nil {
			return err
		}

		tiles, err := o.buildTiles(ctx, mapOut.Map, input.Edits)
		if err != nil {
			return err
		}
		upsertOut, err := o.maps.UpsertTiles(ctx, maps.UpsertTilesInput{MapID: mapOut.Map.ID, Tiles: tiles})
		if err != nil {
			return err
		}

		commitOut, err := o.state.Commit(ctx, &gamestate.CommitInput{
			Session:         session,
			ExpectedVersion: resolved.State.Version,
			Entries: []*entities.ActivityLogEntry{{
				ActorID:     input.UserID,
				ActorName:   session.HostEmail,
				Type:        entities.LogTypeTerrainEdited,
				Description: fmt.Sprintf("%d tiles were reshaped", len(tiles)),
				Data:        map[string]any{"mapId": mapOut.Map.ID, "tiles": len(tiles)},
			}},
		})
		if err != nil {
			return err
		}

		out.Tiles = upsertOut.Tiles
		out.Version = commitOut.Version
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Edited terrain", "invite_code", input.InviteCode, "tiles", len(out.Tiles))
	return out, nil
}

// buildTiles validates edits against the map and refuses to block a tile a
// visible token stands on
func (o *orchestrator) buildTiles(ctx context.Context, m *entities.Map, edits []TerrainEdit) ([]*entities.MapTile, error) {
	vb := errors.NewValidationBuilder()
	for i, edit := range edits {
		field := fmt.Sprintf("edits[%d]", i)
		errors.ValidateCoordinate(field, edit.X, edit.Y, m.Width, m.Height, vb)
		if !edit.TerrainType.IsValid() {
			vb.Fieldf(field+".terrainType", "unknown terrain %q", edit.TerrainType)
		}
		if edit.FeatureType != "" && !edit.FeatureType.IsValid() {
			vb.Fieldf(field+".featureType", "unknown feature %q", edit.FeatureType)
		}
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	tokensOut, err := o.tokens.ListForMap(ctx, tokens.ListForMapInput{MapID: m.ID})
	if err != nil {
		return nil, err
	}
	occupied := make(map[entities.Point]*entities.MapToken, len(tokensOut.Tokens))
	for _, t := range tokensOut.Tokens {
		occupied[t.Position()] = t
	}

	tiles := make([]*entities.MapTile, 0, len(edits))
	for _, edit := range edits {
		blocked := edit.TerrainType.BlocksByDefault()
		if edit.IsBlocked != nil {
			blocked = *edit.IsBlocked
		}
		if t, ok := occupied[entities.Point{X: edit.X, Y: edit.Y}]; ok && blocked {
			return nil, errors.FailedPreconditionf("tile (%d, %d) is occupied by %s", edit.X, edit.Y, t.Label).
				WithMeta("token_id", t.ID)
		}
		tiles = append(tiles, &entities.MapTile{
			MapID:       m.ID,
			X:           edit.X,
			Y:           edit.Y,
			TerrainType: edit.TerrainType,
			Elevation:   edit.Elevation,
			IsBlocked:   blocked,
			HasFog:      edit.HasFog,
			FeatureType: edit.FeatureType,
		})
	}
	return tiles, nil
}

// GetMap returns the current map with its tiles and tokens
func (o *orchestrator) GetMap(ctx context.Context, input *GetMapInput) (*GetMapOutput, error) {
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
	mapID := resolved.Session.CurrentMapID
	if mapID == "" {
		return nil, errors.NotFound(msgNoMap)
	}

	mapOut, err := o.maps.GetMap(ctx, maps.GetMapInput{ID: mapID})
	if err != nil {
		return nil, err
	}
	tilesOut, err := o.maps.GetTilesForMap(ctx, maps.GetTilesForMapInput{MapID: mapID})
	if err != nil {
		return nil, err
	}
	tokensOut, err := o.placement.ListTokensForMap(ctx, &placement.ListTokensForMapInput{MapID: mapID})
	if err != nil {
		return nil, err
	}

	return &GetMapOutput{
		Map:    mapOut.Map,
		Tiles:  tilesOut.Tiles,
		Tokens: tokensOut.Tokens,
	}, nil
}

// MoveToken repositions a token outside combat. The host may move any
// token; a player only the token of their own character.
func (o *orchestrator) MoveToken(ctx context.Context, input *MoveTokenInput) (*MoveTokenOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.TokenID == "" {
		return nil, errors.InvalidArgument("token id is required")
	}

	out := &MoveTokenOutput{}
	err := o.db.InTx(ctx, func(ctx context.Context) error {
		resolved, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
			InviteCode: input.InviteCode,
			UserID:     input.UserID,
			Access:     gamestate.AccessMember,
		})
		if err != nil {
			return err
		}
		session := resolved.Session
		if resolved.State.Turn.InEncounter() {
			return errors.FailedPrecondition("tokens move through actions during combat")
		}

		tokenOut, err := o.tokens.Get(ctx, tokens.GetInput{ID: input.TokenID})
		if err != nil {
			return err
		}
		token := tokenOut.Token
		if token.MapID != session.CurrentMapID {
			return errors.NotFoundf("token %s is not on the current map", input.TokenID)
		}
		if !resolved.IsHost {
			own := resolved.Entry != nil &&
				token.TokenType == entities.TokenTypePlayer &&
				token.CharacterID == resolved.Entry.CharacterID
			if !own {
				return errors.PermissionDenied("you can only move your own token")
			}
		}

		moveOut, err := o.placement.MoveToken(ctx, &placement.MoveTokenInput{
			TokenID: token.ID,
			X:       input.X,
			Y:       input.Y,
			Facing:  input.Facing,
		})
		if err != nil {
			return err
		}

		actor := session.HostEmail
		if !resolved.IsHost {
			actor = token.Label
		}
		commitOut, err := o.state.Commit(ctx, &gamestate.CommitInput{
			Session:         session,
			ExpectedVersion: resolved.State.Version,
			Entries: []*entities.ActivityLogEntry{{
				ActorID:     input.UserID,
				ActorName:   actor,
				Type:        entities.LogTypeTokenMoved,
				Description: fmt.Sprintf("%s moved to (%d, %d)", token.Label, input.X, input.Y),
				Data: map[string]any{
					"tokenId": token.ID,
					"from":    moveOut.From,
					"to":      moveOut.Token.Position(),
				},
			}},
		})
		if err != nil {
			return err
		}

		out.Token = moveOut.Token
		out.Version = commitOut.Version
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListNPCs returns every NPC definition and the instances on the current map
func (o *orchestrator) ListNPCs(ctx context.Context, input *ListNPCsInput) (*ListNPCsOutput, error) {
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

	defsOut, err := o.placement.ListNPCDefinitions(ctx, &placement.ListNPCDefinitionsInput{})
	if err != nil {
		return nil, err
	}
	out := &ListNPCsOutput{Definitions: defsOut.Definitions}
	if resolved.Session.CurrentMapID == "" {
		return out, nil
	}

	instancesOut, err := o.npcs.ListInstancesForGame(ctx, npcs.ListInstancesForGameInput{
		GameID: resolved.Session.ID,
		MapID:  resolved.Session.CurrentMapID,
	})
	if err != nil {
		return nil, err
	}
	out.Instances = instancesOut.Instances
	return out, nil
}

// PlaceNPC creates an NPC instance with its token on the current map
func (o *orchestrator) PlaceNPC(ctx context.Context, input *PlaceNPCInput) (*PlaceNPCOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	out := &PlaceNPCOutput{}
	err := o.db.InTx(ctx, func(ctx context.Context) error {
		resolved, err := o.state.Resolve(ctx, &gamestate.ResolveInput{
			InviteCode:      input.InviteCode,
			UserID:          input.UserID,
			Access:          gamestate.AccessHost,
			HostOnlyMessage: msgHostPlaceNPC,
		})
		if err != nil {
			return err
		}
		session := resolved.Session
		if session.CurrentMapID == "" {
			return errors.FailedPrecondition(msgNoMap)
		}

		placed, err := o.placement.PlaceNPC(ctx, &placement.PlaceNPCInput{
			GameID:      session.ID,
			MapID:       session.CurrentMapID,
			Slug:        input.Slug,
			X:           input.X,
			Y:           input.Y,
			Label:       input.Label,
			Disposition: input.Disposition,
		})
		if err != nil {
			return err
		}

		commitOut, err := o.state.Commit(ctx, &gamestate.CommitInput{
			Session:         session,
			ExpectedVersion: resolved.State.Version,
			Entries: []*entities.ActivityLogEntry{{
				ActorID:     input.UserID,
				ActorName:   session.HostEmail,
				Type:        entities.LogTypeNPCPlaced,
				Description: fmt.Sprintf("%s appears at (%d, %d)", placed.Instance.Name, input.X, input.Y),
				Data: map[string]any{
					"slug":        placed.Definition.Slug,
					"instanceId":  placed.Instance.ID,
					"disposition": placed.Instance.Disposition,
				},
			}},
		})
		if err != nil {
			return err
		}

		out.Instance = placed.Instance
		out.Token = placed.Token
		out.Version = commitOut.Version
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Placed NPC",
		"invite_code", input.InviteCode,
		"slug", input.Slug,
		"instance_id", out.Instance.ID,
	)
	return out, nil
}
