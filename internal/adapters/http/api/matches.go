package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/takraw/internal/app"
	"github.com/okian/takraw/internal/domain/rally"
	"github.com/okian/takraw/internal/domain/types"
)

// matchRequest mirrors the OpenAPI schema for POST /matches.
type matchRequest struct {
	TeamAID          string `json:"team_a_id"`
	TeamBID          string `json:"team_b_id"`
	TeamAServesFirst bool   `json:"team_a_serves_first"`
	TeamASuffix      string `json:"team_a_suffix"`
	TeamBSuffix      string `json:"team_b_suffix"`
}

func (m matchRequest) validate() error {
	switch {
	case strings.TrimSpace(m.TeamAID) == "":
		return fmt.Errorf("%w: missing team_a_id", ErrBadRequest)
	case strings.TrimSpace(m.TeamBID) == "":
		return fmt.Errorf("%w: missing team_b_id", ErrBadRequest)
	}
	return nil
}

// playRequest mirrors the OpenAPI schema shared by the rally command routes.
// Endpoints ignore the fields they do not use.
type playRequest struct {
	CommandID string `json:"command_id"`
	PlayerID  string `json:"player_id"`
	PlayType  string `json:"play_type"`
	Success   bool   `json:"success"`
	Reason    string `json:"reason"`
}

func (p playRequest) toService() (service.PlayRequest, error) {
	out := service.PlayRequest{
		CommandID: strings.TrimSpace(p.CommandID),
		PlayerID:  strings.TrimSpace(p.PlayerID),
		Success:   p.Success,
	}
	if strings.TrimSpace(p.PlayType) != "" {
		pt, err := rally.ParsePlayType(p.PlayType)
		if err != nil {
			return out, err
		}
		out.PlayType = pt
	}
	reason, err := rally.ParseFailureReason(p.Reason)
	if err != nil {
		return out, err
	}
	out.Reason = reason
	return out, nil
}

// controlRequest is the body of switch-flow, undo and reset.
type controlRequest struct {
	CommandID string `json:"command_id"`
}

type (
	playFunc    func(ctx context.Context, matchID string, req service.PlayRequest) (service.Result, error)
	controlFunc func(ctx context.Context, matchID, commandID string) (service.Result, error)
)

// MatchesHandler handles match lifecycle and rally commands.
type MatchesHandler struct {
	deps Matches
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps Matches) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// HandleCreateMatch handles POST /matches.
func (h *MatchesHandler) HandleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decode(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(w, err)
		return
	}
	m, st, err := h.deps.CreateMatch(r.Context(), service.MatchRequest{
		TeamAID:          req.TeamAID,
		TeamBID:          req.TeamBID,
		TeamAServesFirst: req.TeamAServesFirst,
		TeamASuffix:      req.TeamASuffix,
		TeamBSuffix:      req.TeamBSuffix,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.MatchView{Match: types.FromMatch(m), State: types.FromState(st)})
}

// HandleGetMatch handles GET /matches/{id}.
func (h *MatchesHandler) HandleGetMatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := h.deps.GetMatch(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	st, err := h.deps.State(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.MatchView{Match: types.FromMatch(m), State: types.FromState(st)})
}

// HandleEvents handles GET /matches/{id}/events.
func (h *MatchesHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.deps.Events(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromEvents(events))
}

// play adapts a rally command that carries a play body.
func (h *MatchesHandler) play(fn playFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body playRequest
		if err := decode(w, r, &body); err != nil {
			writeFailure(w, err)
			return
		}
		req, err := body.toService()
		if err != nil {
			writeFailure(w, err)
			return
		}
		res, err := fn(r.Context(), r.PathValue("id"), req)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeResult(w, res)
	}
}

// control adapts switch-flow, undo and reset.
func (h *MatchesHandler) control(fn controlFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body controlRequest
		if err := decode(w, r, &body); err != nil {
			writeFailure(w, err)
			return
		}
		res, err := fn(r.Context(), r.PathValue("id"), strings.TrimSpace(body.CommandID))
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeResult(w, res)
	}
}

func writeResult(w http.ResponseWriter, res service.Result) { //nolint:gocritic // hugeParam
	writeJSON(w, http.StatusOK, types.CommandResponse{State: types.FromState(res.State), Duplicate: res.Duplicate})
}
