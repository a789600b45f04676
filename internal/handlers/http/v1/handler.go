// Package v1 serves the tabletop JSON API over HTTP
package v1

import (
	"net/http"
	"time"

	"github.com/KirkDiggler/tabletop-api/internal/auth"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/action"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/battlemap"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/character"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/game"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/narration"
)

// StateVersionHeader carries the snapshot version on state responses
const StateVersionHeader = "X-State-Version"

const defaultPollInterval = 3 * time.Second

// HandlerConfig holds dependencies for the HTTP handler
type HandlerConfig struct {
	Games      game.Service
	Maps       battlemap.Service
	Actions    action.Service
	Characters character.Service
	Narration  narration.Service
	Verifier   *auth.Verifier

	// PollInterval is the refresh hint returned with every snapshot
	PollInterval time.Duration
}

// Validate ensures all required dependencies are present
func (c *HandlerConfig) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Games == nil {
		vb.RequiredField("Games")
	}
	if c.Maps == nil {
		vb.RequiredField("Maps")
	}
	if c.Actions == nil {
		vb.RequiredField("Actions")
	}
	if c.Characters == nil {
		vb.RequiredField("Characters")
	}
	if c.Narration == nil {
		vb.RequiredField("Narration")
	}
	if c.Verifier == nil {
		vb.RequiredField("Verifier")
	}

	return vb.Build()
}

// Handler implements the HTTP API
type Handler struct {
	games        game.Service
	maps         battlemap.Service
	actions      action.Service
	characters   character.Service
	narration    narration.Service
	verifier     *auth.Verifier
	pollInterval time.Duration
}

// NewHandler creates a new handler with the given configuration
func NewHandler(cfg *HandlerConfig) (*Handler, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	return &Handler{
		games:        cfg.Games,
		maps:         cfg.Maps,
		actions:      cfg.Actions,
		characters:   cfg.Characters,
		narration:    cfg.Narration,
		verifier:     cfg.Verifier,
		pollInterval: pollInterval,
	}, nil
}

// Routes returns the full API with middleware applied
func (h *Handler) Routes() http.Handler {
	api := http.NewServeMux()

	// Sessions
	api.HandleFunc("POST /games", h.createGame)
	api.HandleFunc("GET /games", h.listGames)
	api.HandleFunc("GET /games/{code}", h.getGame)
	api.HandleFunc("POST /games/{code}/join", h.joinGame)
	api.HandleFunc("PUT /games/{code}/status", h.updateStatus)
	api.HandleFunc("GET /games/{code}/state", h.getState)
	api.HandleFunc("POST /games/{code}/combat/start", h.startCombat)
	api.HandleFunc("POST /games/{code}/combat/end", h.endCombat)
	api.HandleFunc("GET /games/{code}/log", h.getLog)
	api.HandleFunc("DELETE /games/{code}/log", h.clearLog)

	// Maps, tokens and NPCs
	api.HandleFunc("POST /games/{code}/map/generate", h.generateMap)
	api.HandleFunc("POST /games/{code}/map/terrain", h.editTerrain)
	api.HandleFunc("GET /games/{code}/map", h.getMap)
	api.HandleFunc("PUT /games/{code}/tokens/{tokenId}", h.moveToken)
	api.HandleFunc("GET /games/{code}/npcs", h.listNPCs)
	api.HandleFunc("POST /games/{code}/npcs", h.placeNPC)

	// Turns
	api.HandleFunc("POST /games/{code}/actions", h.submitAction)
	api.HandleFunc("POST /games/{code}/actions/reroll", h.reroll)
	api.HandleFunc("POST /games/{code}/narration", h.applyNarration)

	// Characters
	api.HandleFunc("GET /games/me/characters", h.listCharacters)
	api.HandleFunc("POST /games/me/characters", h.createCharacter)
	api.HandleFunc("GET /games/me/characters/{id}", h.getCharacter)
	api.HandleFunc("PUT /games/me/characters/{id}", h.updateCharacter)
	api.HandleFunc("DELETE /games/me/characters/{id}", h.deleteCharacter)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", healthz)
	root.Handle("/", h.authenticate(api))

	return chain(root, recoverPanics, logRequests, traceRequests)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
