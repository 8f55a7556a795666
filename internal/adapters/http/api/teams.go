package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/types"
)

// teamRequest mirrors the OpenAPI schema for POST /teams.
type teamRequest struct {
	Name  string `json:"name"`
	IsBot bool   `json:"is_bot"`
	Color string `json:"color"`
}

// playerRequest mirrors the OpenAPI schema for POST /teams/{id}/players.
type playerRequest struct {
	Name     string `json:"name"`
	Number   int    `json:"number"`
	Position string `json:"position"`
}

func (p playerRequest) validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: missing name", ErrBadRequest)
	case !model.Position(p.Position).Valid():
		return fmt.Errorf("%w: position must be tekong, feeder or striker", ErrBadRequest)
	}
	return nil
}

// TeamsHandler handles the team and player registry.
type TeamsHandler struct {
	deps Registry
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps Registry) *TeamsHandler {
	return &TeamsHandler{deps: deps}
}

// HandleCreateTeam handles POST /teams.
func (h *TeamsHandler) HandleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decode(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	t, err := h.deps.CreateTeam(r.Context(), req.Name, req.IsBot, req.Color)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.FromTeam(t))
}

// HandleListTeams handles GET /teams.
func (h *TeamsHandler) HandleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.deps.ListTeams(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	out := make([]types.Team, 0, len(teams))
	for _, t := range teams {
		out = append(out, types.FromTeam(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleAddPlayer handles POST /teams/{id}/players.
func (h *TeamsHandler) HandleAddPlayer(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decode(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	req.Position = strings.ToLower(strings.TrimSpace(req.Position))
	if err := req.validate(); err != nil {
		writeFailure(w, err)
		return
	}
	p, err := h.deps.AddPlayer(r.Context(), r.PathValue("id"), req.Name, req.Number, model.Position(req.Position))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.FromPlayer(p))
}

// HandleListPlayers handles GET /teams/{id}/players.
func (h *TeamsHandler) HandleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.deps.TeamPlayers(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	out := make([]types.Player, 0, len(players))
	for _, p := range players {
		out = append(out, types.FromPlayer(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetPlayer handles GET /players/{id}.
func (h *TeamsHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.GetPlayer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromPlayer(p))
}
