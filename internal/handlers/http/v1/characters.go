package v1

import (
	"net/http"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/character"
)

type characterSheet struct {
	Name      string                            `json:"name"`
	Level     int                               `json:"level"`
	Race      string                            `json:"race"`
	Class     string                            `json:"class"`
	Stats     entities.Stats                    `json:"stats"`
	Skills    []string                          `json:"skills"`
	Inventory []entities.Item                   `json:"inventory"`
	Equipped  map[entities.EquipmentSlot]string `json:"equipped"`
}

// updateCharacterRequest is a partial update; absent fields are unchanged
type updateCharacterRequest struct {
	Name         *string                            `json:"name"`
	Level        *int                               `json:"level"`
	Race         *string                            `json:"race"`
	Class        *string                            `json:"class"`
	Stats        *entities.Stats                    `json:"stats"`
	Skills       *[]string                          `json:"skills"`
	Health       *int                               `json:"health"`
	ActionPoints *int                               `json:"actionPoints"`
	Inventory    *[]entities.Item                   `json:"inventory"`
	Equipped     *map[entities.EquipmentSlot]string `json:"equipped"`
}

type characterResponse struct {
	Character *entities.Character `json:"character"`
	// Games lists the sessions whose state changed with this edit
	Games []string `json:"games,omitempty"`
}

type listCharactersResponse struct {
	Characters []*entities.Character `json:"characters"`
}

type deleteCharacterResponse struct {
	Games []string `json:"games"`
}

func (h *Handler) listCharacters(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	out, err := h.characters.ListCharacters(r.Context(), &character.ListCharactersInput{PlayerID: id.UserID})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listCharactersResponse{Characters: nonNil(out.Characters)})
}

func (h *Handler) createCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req characterSheet
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.characters.CreateCharacter(r.Context(), &character.CreateCharacterInput{
		PlayerID:    id.UserID,
		PlayerEmail: id.Email,
		Sheet: character.Sheet{
			Name:      req.Name,
			Level:     req.Level,
			Race:      req.Race,
			Class:     req.Class,
			Stats:     req.Stats,
			Skills:    req.Skills,
			Inventory: req.Inventory,
			Equipped:  req.Equipped,
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, characterResponse{Character: out.Character})
}

func (h *Handler) getCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	out, err := h.characters.GetCharacter(r.Context(), &character.GetCharacterInput{
		PlayerID:    id.UserID,
		CharacterID: r.PathValue("id"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, characterResponse{Character: out.Character})
}

func (h *Handler) updateCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req updateCharacterRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.characters.UpdateCharacter(r.Context(), &character.UpdateCharacterInput{
		PlayerID:     id.UserID,
		CharacterID:  r.PathValue("id"),
		Name:         req.Name,
		Level:        req.Level,
		Race:         req.Race,
		Class:        req.Class,
		Stats:        req.Stats,
		Skills:       req.Skills,
		Health:       req.Health,
		ActionPoints: req.ActionPoints,
		Inventory:    req.Inventory,
		Equipped:     req.Equipped,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, characterResponse{Character: out.Character, Games: out.Games})
}

func (h *Handler) deleteCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	out, err := h.characters.DeleteCharacter(r.Context(), &character.DeleteCharacterInput{
		PlayerID:    id.UserID,
		CharacterID: r.PathValue("id"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteCharacterResponse{Games: nonNil(out.Games)})
}
