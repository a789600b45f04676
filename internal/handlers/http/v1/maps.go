package v1

import (
	"net/http"

	"github.com/KirkDiggler/tabletop-api/internal/engine/mapgen"
	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/orchestrators/battlemap"
)

type generateMapRequest struct {
	Name   string        `json:"name"`
	Preset mapgen.Preset `json:"preset"`
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Seed   string        `json:"seed"`
}

type generateMapResponse struct {
	Map          *entities.Map        `json:"map"`
	TileCount    int                  `json:"tileCount"`
	Tokens       []*entities.MapToken `json:"tokens"`
	StateVersion int64                `json:"stateVersion"`
}

type terrainEdit struct {
	X           int                  `json:"x"`
	Y           int                  `json:"y"`
	TerrainType entities.TerrainType `json:"terrainType"`
	Elevation   int                  `json:"elevation"`
	IsBlocked   *bool                `json:"isBlocked"`
	HasFog      bool                 `json:"hasFog"`
	FeatureType entities.FeatureType `json:"featureType"`
}

type editTerrainRequest struct {
	Edits []terrainEdit `json:"edits"`
}

type editTerrainResponse struct {
	Tiles        []*entities.MapTile `json:"tiles"`
	StateVersion int64               `json:"stateVersion"`
}

type mapResponse struct {
	Map    *entities.Map        `json:"map"`
	Tiles  []*entities.MapTile  `json:"tiles"`
	Tokens []*entities.MapToken `json:"tokens"`
}

type moveTokenRequest struct {
	X      int             `json:"x"`
	Y      int             `json:"y"`
	Facing entities.Facing `json:"facing"`
}

type moveTokenResponse struct {
	Token        *entities.MapToken `json:"token"`
	StateVersion int64              `json:"stateVersion"`
}

type npcsResponse struct {
	Definitions []*entities.NPCDefinition `json:"definitions"`
	Instances   []*entities.NPCInstance   `json:"instances"`
}

type placeNPCRequest struct {
	Slug        string               `json:"slug"`
	X           int                  `json:"x"`
	Y           int                  `json:"y"`
	Label       string               `json:"label"`
	Disposition entities.Disposition `json:"disposition"`
}

type placeNPCResponse struct {
	Instance     *entities.NPCInstance `json:"instance"`
	Token        *entities.MapToken    `json:"token"`
	StateVersion int64                 `json:"stateVersion"`
}

func (h *Handler) generateMap(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req generateMapRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.maps.GenerateMap(r.Context(), &battlemap.GenerateMapInput{
		InviteCode: r.PathValue("code"),
		UserID:     id.UserID,
		Name:       req.Name,
		Preset:     req.Preset,
		Width:      req.Width,
		Height:     req.Height,
		Seed:       req.Seed,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, generateMapResponse{
		Map:          out.Map,
		TileCount:    out.Tiles,
		Tokens:       nonNil(out.Tokens),
		StateVersion: out.Version,
	})
}

func (h *Handler) editTerrain(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req editTerrainRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	edits := make([]battlemap.TerrainEdit, len(req.Edits))
	for i, e := range req.Edits {
		edits[i] = battlemap.TerrainEdit{
			X:           e.X,
			Y:           e.Y,
			TerrainType: e.TerrainType,
			Elevation:   e.Elevation,
			IsBlocked:   e.IsBlocked,
			HasFog:      e.HasFog,
			FeatureType: e.FeatureType,
		}
	}

	out, err := h.maps.EditTerrain(r.Context(), &battlemap.EditTerrainInput{
		InviteCode: r.PathValue("code"),
		UserID:     id.UserID,
		Edits:      edits,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, editTerrainResponse{Tiles: nonNil(out.Tiles), StateVersion: out.Version})
}

func (h *Handler) getMap(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	out, err := h.maps.GetMap(r.Context(), &battlemap.GetMapInput{
		InviteCode: r.PathValue("code"),
		UserID:     id.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapResponse{
		Map:    out.Map,
		Tiles:  nonNil(out.Tiles),
		Tokens: nonNil(out.Tokens),
	})
}

func (h *Handler) moveToken(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req moveTokenRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.maps.MoveToken(r.Context(), &battlemap.MoveTokenInput{
		InviteCode: r.PathValue("code"),
		UserID:     id.UserID,
		TokenID:    r.PathValue("tokenId"),
		X:          req.X,
		Y:          req.Y,
		Facing:     req.Facing,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, moveTokenResponse{Token: out.Token, StateVersion: out.Version})
}

func (h *Handler) listNPCs(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	out, err := h.maps.ListNPCs(r.Context(), &battlemap.ListNPCsInput{
		InviteCode: r.PathValue("code"),
		UserID:     id.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, npcsResponse{
		Definitions: nonNil(out.Definitions),
		Instances:   nonNil(out.Instances),
	})
}

func (h *Handler) placeNPC(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req placeNPCRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.maps.PlaceNPC(r.Context(), &battlemap.PlaceNPCInput{
		InviteCode:  r.PathValue("code"),
		UserID:      id.UserID,
		Slug:        req.Slug,
		X:           req.X,
		Y:           req.Y,
		Label:       req.Label,
		Disposition: req.Disposition,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, placeNPCResponse{
		Instance:     out.Instance,
		Token:        out.Token,
		StateVersion: out.Version,
	})
}

// nonNil makes empty lists encode as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
