package placement

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/tabletop-api/internal/engine/grid"
	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/clock"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/idgen"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/maps"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/npcs"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/tokens"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

// Config holds the dependencies for the placement service
type Config struct {
	DB          *sqlite.DB
	Maps        maps.Repository
	Tokens      tokens.Repository
	NPCs        npcs.Repository
	IDGenerator idgen.Generator
	Clock       clock.Clock
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.DB == nil {
		vb.RequiredField("DB")
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
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}

	return vb.Build()
}

type service struct {
	db     *sqlite.DB
	maps   maps.Repository
	tokens tokens.Repository
	npcs   npcs.Repository
	idGen  idgen.Generator
	clock  clock.Clock
}

// NewService creates a placement service
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &service{
		db:     cfg.DB,
		maps:   cfg.Maps,
		tokens: cfg.Tokens,
		npcs:   cfg.NPCs,
		idGen:  cfg.IDGenerator,
		clock:  cfg.Clock,
	}, nil
}

var _ Service = (*service)(nil)

func (s *service) ValidatePosition(ctx context.Context, input *ValidatePositionInput) (*ValidatePositionOutput, error) {
	if input == nil || input.MapID == "" {
		return nil, errors.InvalidArgument("map id is required")
	}

	mapOut, err := s.maps.GetMap(ctx, maps.GetMapInput{ID: input.MapID})
	if err != nil {
		return nil, err
	}
	m := mapOut.Map
	if !m.InBounds(input.X, input.Y) {
		return nil, errors.InvalidArgumentf("position (%d, %d) is outside the %dx%d map",
			input.X, input.Y, m.Width, m.Height).
			WithMeta("x", input.X).
			WithMeta("y", input.Y)
	}

	tileOut, err := s.maps.GetTile(ctx, maps.GetTileInput{MapID: m.ID, X: input.X, Y: input.Y})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tile")
	}
	if tileOut.Tile != nil && tileOut.Tile.IsBlocked {
		return nil, errors.FailedPreconditionf("tile (%d, %d) is blocked by %s",
			input.X, input.Y, tileOut.Tile.TerrainType)
	}

	return &ValidatePositionOutput{Map: m, Tile: tileOut.Tile}, nil
}

func (s *service) PlaceToken(ctx context.Context, input *PlaceTokenInput) (*PlaceTokenOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	if !input.TokenType.IsValid() {
		vb.Fieldf("tokenType", "unknown token type %q", input.TokenType)
	}
	switch input.TokenType {
	case entities.TokenTypePlayer:
		if input.CharacterID == "" {
			vb.RequiredField("characterId")
		}
	case entities.TokenTypeNPC:
		if input.NPCInstanceID == "" {
			vb.RequiredField("npcInstanceId")
		}
	}
	facing := input.Facing
	if facing == "" {
		facing = entities.FacingSouth
	}
	if !facing.IsValid() {
		vb.Fieldf("facing", "unknown facing %q", input.Facing)
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	if _, err := s.ValidatePosition(ctx, &ValidatePositionInput{MapID: input.MapID, X: input.X, Y: input.Y}); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	token := &entities.MapToken{
		ID:            s.idGen.Generate(),
		MapID:         input.MapID,
		TokenType:     input.TokenType,
		CharacterID:   input.CharacterID,
		NPCInstanceID: input.NPCInstanceID,
		Label:         input.Label,
		X:             input.X,
		Y:             input.Y,
		Facing:        facing,
		Status:        entities.TokenStatusActive,
		IsVisible:     true,
		HitPoints:     input.HitPoints,
		MaxHitPoints:  input.MaxHitPoints,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	out, err := s.tokens.Create(ctx, tokens.CreateInput{Token: token})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Placed token",
		"map_id", token.MapID,
		"token_id", token.ID,
		"token_type", token.TokenType,
		"x", token.X,
		"y", token.Y,
	)
	return &PlaceTokenOutput{Token: out.Token}, nil
}

func (s *service) SpawnToken(ctx context.Context, input *SpawnTokenInput) (*SpawnTokenOutput, error) {
	if input == nil || input.MapID == "" {
		return nil, errors.InvalidArgument("map id is required")
	}

	entityID := input.CharacterID
	if input.TokenType == entities.TokenTypeNPC {
		entityID = input.NPCInstanceID
	}
	if entityID != "" {
		existing, err := s.tokens.FindByEntity(ctx, tokens.FindByEntityInput{
			MapID:     input.MapID,
			TokenType: input.TokenType,
			EntityID:  entityID,
		})
		if err != nil {
			return nil, err
		}
		if existing.Token != nil {
			return &SpawnTokenOutput{Token: existing.Token, Existing: true}, nil
		}
	}

	mapOut, err := s.maps.GetMap(ctx, maps.GetMapInput{ID: input.MapID})
	if err != nil {
		return nil, err
	}
	m := mapOut.Map

	tilesOut, err := s.maps.GetTilesForMap(ctx, maps.GetTilesForMapInput{MapID: m.ID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tiles")
	}
	tokensOut, err := s.tokens.ListForMap(ctx, tokens.ListForMapInput{MapID: m.ID})
	if err != nil {
		return nil, err
	}

	g := grid.New(m.Width, m.Height, tilesOut.Tiles)
	for _, t := range tokensOut.Tokens {
		if err := g.Occupy(t.ID, string(t.TokenType), t.Position()); err != nil {
			slog.WarnContext(ctx, "Token is off the map", "token_id", t.ID, "map_id", m.ID, "error", err)
		}
	}

	spot, ok := freeSpawnPoint(m, g)
	if !ok {
		return nil, errors.FailedPrecondition("no free walkable tile to place the token")
	}

	out, err := s.PlaceToken(ctx, &PlaceTokenInput{
		MapID:         m.ID,
		TokenType:     input.TokenType,
		CharacterID:   input.CharacterID,
		NPCInstanceID: input.NPCInstanceID,
		X:             spot.X,
		Y:             spot.Y,
		Label:         input.Label,
		HitPoints:     input.HitPoints,
		MaxHitPoints:  input.MaxHitPoints,
	})
	if err != nil {
		return nil, err
	}
	return &SpawnTokenOutput{Token: out.Token}, nil
}

// freeSpawnPoint prefers the generator's spawn points, then searches outward
// from the centre in rings
func freeSpawnPoint(m *entities.Map, g *grid.Grid) (entities.Point, bool) {
	if m.Metadata != nil {
		for _, p := range m.Metadata.SpawnPoints {
			if g.Free(p) {
				return p, true
			}
		}
	}

	centre := entities.Point{X: m.Width / 2, Y: m.Height / 2}
	radius := m.Width
	if m.Height > radius {
		radius = m.Height
	}
	for r := 0; r <= radius; r++ {
		for y := centre.Y - r; y <= centre.Y+r; y++ {
			for x := centre.X - r; x <= centre.X+r; x++ {
				p := entities.Point{X: x, Y: y}
				if g.Distance(centre, p) == r && g.Free(p) {
					return p, true
				}
			}
		}
	}
	return entities.Point{}, false
}

func (s *service) MoveToken(ctx context.Context, input *MoveTokenInput) (*MoveTokenOutput, error) {
	if input == nil || input.TokenID == "" {
		return nil, errors.InvalidArgument("token id is required")
	}
	if input.Facing != "" && !input.Facing.IsValid() {
		return nil, errors.InvalidArgumentf("unknown facing %q", input.Facing)
	}

	tokenOut, err := s.tokens.Get(ctx, tokens.GetInput{ID: input.TokenID})
	if err != nil {
		return nil, err
	}
	token := tokenOut.Token

	if _, err := s.ValidatePosition(ctx, &ValidatePositionInput{MapID: token.MapID, X: input.X, Y: input.Y}); err != nil {
		return nil, err
	}

	from := token.Position()
	to := entities.Point{X: input.X, Y: input.Y}
	facing := input.Facing
	if facing == "" {
		facing = entities.FacingToward(from, to, token.Facing)
	}
	token.Facing = facing
	token.X, token.Y = to.X, to.Y
	token.UpdatedAt = s.clock.Now()

	if _, err := s.tokens.Update(ctx, tokens.UpdateInput{Token: token}); err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Moved token",
		"token_id", token.ID,
		"from", from,
		"to", to,
	)
	return &MoveTokenOutput{Token: token, From: from}, nil
}

func (s *service) UpdateTokenStatus(ctx context.Context, input *UpdateTokenStatusInput) (*UpdateTokenStatusOutput, error) {
	if input == nil || input.TokenID == "" {
		return nil, errors.InvalidArgument("token id is required")
	}

	tokenOut, err := s.tokens.Get(ctx, tokens.GetInput{ID: input.TokenID})
	if err != nil {
		return nil, err
	}
	token := tokenOut.Token

	if input.Status != "" {
		switch input.Status {
		case entities.TokenStatusActive, entities.TokenStatusDefeated, entities.TokenStatusHidden:
			token.Status = input.Status
		default:
			return nil, errors.InvalidArgumentf("unknown token status %q", input.Status)
		}
	}
	if input.HitPoints != nil {
		hp := *input.HitPoints
		if hp < 0 {
			hp = 0
		}
		if token.MaxHitPoints != nil && hp > *token.MaxHitPoints {
			hp = *token.MaxHitPoints
		}
		token.HitPoints = &hp
	}
	if input.IsVisible != nil {
		token.IsVisible = *input.IsVisible
	}
	token.UpdatedAt = s.clock.Now()

	if _, err := s.tokens.Update(ctx, tokens.UpdateInput{Token: token}); err != nil {
		return nil, err
	}
	return &UpdateTokenStatusOutput{Token: token}, nil
}

func (s *service) ListTokensForMap(ctx context.Context, input *ListTokensForMapInput) (*ListTokensForMapOutput, error) {
	if input == nil || input.MapID == "" {
		return nil, errors.InvalidArgument("map id is required")
	}

	out, err := s.tokens.ListForMap(ctx, tokens.ListForMapInput{MapID: input.MapID})
	if err != nil {
		return nil, err
	}
	return &ListTokensForMapOutput{Tokens: out.Tokens}, nil
}

func (s *service) RemoveTokensForMap(ctx context.Context, input *RemoveTokensForMapInput) (*RemoveTokensForMapOutput, error) {
	if input == nil || input.MapID == "" {
		return nil, errors.InvalidArgument("map id is required")
	}

	out, err := s.tokens.DeleteForMap(ctx, tokens.DeleteForMapInput{MapID: input.MapID})
	if err != nil {
		return nil, err
	}
	if out.Deleted > 0 {
		slog.InfoContext(ctx, "Removed tokens from map", "map_id", input.MapID, "count", out.Deleted)
	}
	return &RemoveTokensForMapOutput{Removed: out.Deleted}, nil
}

func (s *service) PlaceNPC(ctx context.Context, input *PlaceNPCInput) (*PlaceNPCOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("gameId", input.GameID, vb)
	errors.ValidateRequired("mapId", input.MapID, vb)
	errors.ValidateRequired("slug", input.Slug, vb)
	if input.Disposition != "" && !input.Disposition.IsValid() {
		vb.Fieldf("disposition", "unknown disposition %q", input.Disposition)
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	defOut, err := s.npcs.GetDefinition(ctx, npcs.GetDefinitionInput{Slug: input.Slug})
	if err != nil {
		return nil, err
	}
	def := defOut.Definition

	disposition := input.Disposition
	if disposition == "" {
		disposition = def.DefaultDisposition
	}
	name := input.Label
	if name == "" {
		name = def.Name
	}

	out := &PlaceNPCOutput{Definition: def}
	err = s.db.InTx(ctx, func(ctx context.Context) error {
		now := s.clock.Now()
		instOut, err := s.npcs.CreateInstance(ctx, npcs.CreateInstanceInput{Instance: &entities.NPCInstance{
			ID:            s.idGen.Generate(),
			GameID:        input.GameID,
			MapID:         input.MapID,
			Slug:          def.Slug,
			Name:          name,
			CurrentHealth: def.MaxHealth,
			MaxHealth:     def.MaxHealth,
			StatusEffects: []string{},
			Disposition:   disposition,
			CreatedAt:     now,
			UpdatedAt:     now,
		}})
		if err != nil {
			return err
		}
		out.Instance = instOut.Instance

		hp, maxHP := def.MaxHealth, def.MaxHealth
		tokenOut, err := s.PlaceToken(ctx, &PlaceTokenInput{
			MapID:         input.MapID,
			TokenType:     entities.TokenTypeNPC,
			NPCInstanceID: out.Instance.ID,
			X:             input.X,
			Y:             input.Y,
			Label:         name,
			HitPoints:     &hp,
			MaxHitPoints:  &maxHP,
		})
		if err != nil {
			return err
		}
		out.Token = tokenOut.Token
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Placed NPC",
		"game_id", input.GameID,
		"slug", def.Slug,
		"instance_id", out.Instance.ID,
		"token_id", out.Token.ID,
	)
	return out, nil
}

func (s *service) ListNPCDefinitions(ctx context.Context, _ *ListNPCDefinitionsInput) (*ListNPCDefinitionsOutput, error) {
	out, err := s.npcs.ListDefinitions(ctx, npcs.ListDefinitionsInput{})
	if err != nil {
		return nil, err
	}
	return &ListNPCDefinitionsOutput{Definitions: out.Definitions}, nil
}
