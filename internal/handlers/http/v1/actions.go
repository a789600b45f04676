package v1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/action"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/narration"
)

// submitActionRequest carries a {"type": ...} tagged action. ExpectedVersion
// pins the request to the snapshot the client acted on.
type submitActionRequest struct {
	Action          json.RawMessage `json:"action"`
	ExpectedVersion *int64          `json:"expectedVersion,omitempty"`
}

type actionResponse struct {
	Result       *action.Result     `json:"result"`
	Turn         entities.TurnState `json:"turn"`
	StateVersion int64              `json:"stateVersion"`
}

type narrationRequest struct {
	Text string `json:"text"`
}

type narrationResponse struct {
	Narration    string                     `json:"narration"`
	Commands     []*narration.CommandResult `json:"commands"`
	StateVersion int64                      `json:"stateVersion"`
}

func (h *Handler) submitAction(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req submitActionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Action) == 0 {
		writeError(w, r, errors.InvalidArgument("action is required"))
		return
	}
	act, err := entities.DecodeAction(req.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.actions.Submit(r.Context(), &action.SubmitInput{
		InviteCode:      r.PathValue("code"),
		UserID:          id.UserID,
		Action:          act,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeActionResult(w, out)
}

func (h *Handler) reroll(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	out, err := h.actions.Reroll(r.Context(), &action.RerollInput{
		InviteCode: r.PathValue("code"),
		UserID:     id.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeActionResult(w, out)
}

func writeActionResult(w http.ResponseWriter, out *action.SubmitOutput) {
	w.Header().Set(StateVersionHeader, strconv.FormatInt(out.Version, 10))
	writeJSON(w, http.StatusOK, actionResponse{
		Result:       out.Result,
		Turn:         out.Turn,
		StateVersion: out.Version,
	})
}

func (h *Handler) applyNarration(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req narrationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.narration.Apply(r.Context(), &narration.ApplyInput{
		InviteCode: r.PathValue("code"),
		UserID:     id.UserID,
		Text:       req.Text,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, narrationResponse{
		Narration:    out.Narration,
		Commands:     nonNil(out.Commands),
		StateVersion: out.Version,
	})
}
