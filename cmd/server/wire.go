package main

import (
	"fmt"
	"log/slog"

	"github.com/KirkDiggler/tabletop-api/internal/auth"
	"github.com/KirkDiggler/tabletop-api/internal/config"
	"github.com/KirkDiggler/tabletop-api/internal/engine/mapgen"
	"github.com/KirkDiggler/tabletop-api/internal/engine/rules"
	v1 "github.com/KirkDiggler/tabletop-api/internal/handlers/http/v1"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/action"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/battlemap"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/character"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/game"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/narration"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/clock"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/dice"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/idgen"
	"github.com/KirkDiggler/tabletop-api/internal/redis"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/characters"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/gamelog"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/games"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/maps"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/npcs"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/rollsession"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/snapshot"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/tokens"
	"github.com/KirkDiggler/tabletop-api/internal/services/gamestate"
	"github.com/KirkDiggler/tabletop-api/internal/services/placement"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

// loadRuleset reads the configured ruleset file, falling back to the
// built-in rules
func loadRuleset(cfg *config.Config) (*rules.Ruleset, error) {
	if cfg.RulesetPath == "" {
		return rules.Default(), nil
	}
	rs, err := rules.Load(cfg.RulesetPath)
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded ruleset", "path", cfg.RulesetPath, "classes", len(rs.Classes), "races", len(rs.Races))
	return rs, nil
}

// buildHandler wires repositories, services and orchestrators into the HTTP
// handler
func buildHandler(cfg *config.Config, db *sqlite.DB, redisClient redis.Client, ruleset *rules.Ruleset) (*v1.Handler, error) {
	clk := clock.New()
	roller := dice.NewRoller()

	// Repositories
	gameRepo, err := games.NewSQLiteRepository(&games.Config{DB: db})
	if err != nil {
		return nil, fmt.Errorf("failed to create game repository: %w", err)
	}
	logRepo, err := gamelog.NewSQLiteRepository(&gamelog.Config{DB: db})
	if err != nil {
		return nil, fmt.Errorf("failed to create log repository: %w", err)
	}
	characterRepo, err := characters.NewSQLiteRepository(&characters.Config{DB: db})
	if err != nil {
		return nil, fmt.Errorf("failed to create character repository: %w", err)
	}
	mapRepo, err := maps.NewSQLiteRepository(&maps.Config{DB: db})
	if err != nil {
		return nil, fmt.Errorf("failed to create map repository: %w", err)
	}
	tokenRepo, err := tokens.NewSQLiteRepository(&tokens.Config{DB: db})
	if err != nil {
		return nil, fmt.Errorf("failed to create token repository: %w", err)
	}
	npcRepo, err := npcs.NewSQLiteRepository(&npcs.Config{DB: db})
	if err != nil {
		return nil, fmt.Errorf("failed to create npc repository: %w", err)
	}
	rollRepo, err := rollsession.NewRedisRepository(&rollsession.Config{
		Client: redisClient,
		Clock:  clk,
		TTL:    cfg.RollSessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create roll session repository: %w", err)
	}
	snapshotRepo, err := snapshot.NewRedisRepository(&snapshot.Config{
		Client: redisClient,
		TTL:    cfg.SnapshotTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot repository: %w", err)
	}

	// Services
	state, err := gamestate.NewService(&gamestate.Config{
		DB:         db,
		Games:      gameRepo,
		Log:        logRepo,
		Characters: characterRepo,
		Maps:       mapRepo,
		Tokens:     tokenRepo,
		NPCs:       npcRepo,
		Cache:      snapshotRepo,
		Clock:      clk,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create game state service: %w", err)
	}
	place, err := placement.NewService(&placement.Config{
		DB:          db,
		Maps:        mapRepo,
		Tokens:      tokenRepo,
		NPCs:        npcRepo,
		IDGenerator: idgen.NewUUID("tok"),
		Clock:       clk,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create placement service: %w", err)
	}
	generator, err := mapgen.New(&mapgen.Config{Clock: clk})
	if err != nil {
		return nil, fmt.Errorf("failed to create map generator: %w", err)
	}

	// Orchestrators
	gameOrch, err := game.NewOrchestrator(&game.Config{
		DB:          db,
		Games:       gameRepo,
		Log:         logRepo,
		Characters:  characterRepo,
		Tokens:      tokenRepo,
		NPCs:        npcRepo,
		GameState:   state,
		Placement:   place,
		Roller:      roller,
		IDGenerator: idgen.NewUUID("game"),
		InviteCodes: idgen.NewInviteCode(),
		Clock:       clk,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create game orchestrator: %w", err)
	}
	mapOrch, err := battlemap.NewOrchestrator(&battlemap.Config{
		DB:          db,
		Games:       gameRepo,
		Maps:        mapRepo,
		Tokens:      tokenRepo,
		NPCs:        npcRepo,
		Characters:  characterRepo,
		GameState:   state,
		Placement:   place,
		Generator:   generator,
		IDGenerator: idgen.NewUUID("map"),
		Clock:       clk,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create map orchestrator: %w", err)
	}
	actionOrch, err := action.NewOrchestrator(&action.Config{
		DB:             db,
		Games:          gameRepo,
		Characters:     characterRepo,
		Maps:           mapRepo,
		Tokens:         tokenRepo,
		NPCs:           npcRepo,
		RollSessions:   rollRepo,
		GameState:      state,
		Placement:      place,
		Rules:          ruleset,
		Roller:         roller,
		Clock:          clk,
		RollSessionTTL: cfg.RollSessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create action orchestrator: %w", err)
	}
	characterOrch, err := character.NewOrchestrator(&character.Config{
		DB:          db,
		Characters:  characterRepo,
		Games:       gameRepo,
		GameState:   state,
		Rules:       ruleset,
		IDGenerator: idgen.NewUUID("char"),
		Clock:       clk,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create character orchestrator: %w", err)
	}
	narrationOrch, err := narration.NewOrchestrator(&narration.Config{
		DB:          db,
		Games:       gameRepo,
		Characters:  characterRepo,
		Tokens:      tokenRepo,
		NPCs:        npcRepo,
		GameState:   state,
		Placement:   place,
		Rules:       ruleset,
		Roller:      roller,
		IDGenerator: idgen.NewUUID("item"),
		Clock:       clk,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create narration orchestrator: %w", err)
	}

	verifier, err := auth.NewVerifier(&auth.Config{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Clock:    clk,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	handler, err := v1.NewHandler(&v1.HandlerConfig{
		Games:        gameOrch,
		Maps:         mapOrch,
		Actions:      actionOrch,
		Characters:   characterOrch,
		Narration:    narrationOrch,
		Verifier:     verifier,
		PollInterval: cfg.PollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create http handler: %w", err)
	}
	return handler, nil
}
