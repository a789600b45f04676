package v1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/game"
)

type createGameRequest struct {
	Quest        entities.Quest `json:"quest"`
	World        string         `json:"world"`
	StartingArea string         `json:"startingArea"`
}

type gameResponse struct {
	Session *entities.GameSession   `json:"session"`
	IsHost  bool                    `json:"isHost"`
	Roster  []*entities.RosterEntry `json:"roster,omitempty"`
}

type listGamesResponse struct {
	Sessions []*entities.GameSession `json:"sessions"`
}

type joinGameRequest struct {
	CharacterID string `json:"characterId"`
}

type joinGameResponse struct {
	Entry   *entities.RosterEntry `json:"entry"`
	Session *entities.GameSession `json:"session"`
	Changed bool                  `json:"changed"`
}

type updateStatusRequest struct {
	Status entities.GameStatus `json:"status"`
}

// stateResponse is the polling payload
type stateResponse struct {
	GameState      json.RawMessage `json:"gameState"`
	StateVersion   int64           `json:"stateVersion"`
	PollIntervalMs int64           `json:"pollIntervalMs"`
}

type startCombatResponse struct {
	Turn         entities.TurnState    `json:"turn"`
	Rolls        []game.InitiativeRoll `json:"rolls"`
	StateVersion int64                 `json:"stateVersion"`
}

type versionResponse struct {
	StateVersion int64 `json:"stateVersion"`
}

type logResponse struct {
	Entries []*entities.ActivityLogEntry `json:"entries"`
}

type clearLogResponse struct {
	Cleared      int64 `json:"cleared"`
	StateVersion int64 `json:"stateVersion"`
}

func (h *Handler) createGame(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req createGameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.games.CreateGame(r.Context(), &game.CreateGameInput{
		HostID:       id.UserID,
		HostEmail:    id.Email,
		Quest:        req.Quest,
		World:        req.World,
		StartingArea: req.StartingArea,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, gameResponse{Session: out.Session, IsHost: true})
}

func (h *Handler) listGames(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	out, err := h.games.ListGames(r.Context(), &game.ListGamesInput{UserID: id.UserID})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listGamesResponse{Sessions: nonNil(out.Sessions)})
}

func (h *Handler) getGame(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	out, err := h.games.GetGame(r.Context(), &game.GetGameInput{
		InviteCode: r.PathValue("code"),
		UserID:     id.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, gameResponse{Session: out.Session, IsHost: out.IsHost, Roster: out.Roster})
}

func (h *Handler) joinGame(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req joinGameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.games.JoinGame(r.Context(), &game.JoinGameInput{
		InviteCode:  r.PathValue("code"),
		PlayerID:    id.UserID,
		PlayerEmail: id.Email,
		CharacterID: req.CharacterID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, joinGameResponse{Entry: out.Entry, Session: out.Session, Changed: out.Changed})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.games.UpdateStatus(r.Context(), &game.UpdateStatusInput{
		InviteCode: r.PathValue("code"),
		UserID:     id.UserID,
		Status:     req.Status,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, gameResponse{Session: out.Session, IsHost: true})
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	out, err := h.games.GetState(r.Context(), &game.GetStateInput{
		InviteCode: r.PathValue("code"),
		UserID:     id.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set(StateVersionHeader, strconv.FormatInt(out.Version, 10))
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, stateResponse{
		GameState:      json.RawMessage(out.Data),
		StateVersion:   out.Version,
		PollIntervalMs: h.pollInterval.Milliseconds(),
	})
}

func (h *Handler) startCombat(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	out, err := h.games.StartEncounter(r.Context(), &game.StartEncounterInput{
		InviteCode: r.PathValue("code"),
		UserID:     id.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, startCombatResponse{Turn: out.Turn, Rolls: out.Rolls, StateVersion: out.Version})
}

func (h *Handler) endCombat(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	out, err := h.games.EndEncounter(r.Context(), &game.EndEncounterInput{
		InviteCode: r.PathValue("code"),
		UserID:     id.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, versionResponse{StateVersion: out.Version})
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.games.GetLog(r.Context(), &game.GetLogInput{
		InviteCode: r.PathValue("code"),
		UserID:     id.UserID,
		Limit:      limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, logResponse{Entries: nonNil(out.Entries)})
}

func (h *Handler) clearLog(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	out, err := h.games.ClearLog(r.Context(), &game.ClearLogInput{
		InviteCode: r.PathValue("code"),
		UserID:     id.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, clearLogResponse{Cleared: out.Cleared, StateVersion: out.Version})
}
