// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/takraw/internal/app"
	"github.com/okian/takraw/internal/domain/model"
)

// maxBodyBytes bounds request bodies; commands are a few hundred bytes.
const maxBodyBytes = 1 << 16

// Registry covers team and player management.
type Registry interface {
	CreateTeam(ctx context.Context, name string, isBot bool, color string) (model.Team, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
	TeamPlayers(ctx context.Context, teamID string) ([]*model.Player, error)
	AddPlayer(ctx context.Context, teamID, name string, number int, pos model.Position) (*model.Player, error)
	GetPlayer(ctx context.Context, id string) (*model.Player, error)
}

// Matches covers match creation, reads and rally commands.
type Matches interface {
	CreateMatch(ctx context.Context, req service.MatchRequest) (model.Match, model.MatchScoreState, error)
	GetMatch(ctx context.Context, id string) (model.Match, error)
	State(ctx context.Context, matchID string) (model.MatchScoreState, error)
	Events(ctx context.Context, matchID string) ([]model.ScoreEvent, error)

	RecordPlay(ctx context.Context, matchID string, req service.PlayRequest) (service.Result, error)
	AttackIntercepted(ctx context.Context, matchID string, req service.PlayRequest) (service.Result, error)
	SetKeptAlive(ctx context.Context, matchID string, req service.PlayRequest) (service.Result, error)
	BlockContained(ctx context.Context, matchID string, req service.PlayRequest) (service.Result, error)
	BlockReturned(ctx context.Context, matchID string, req service.PlayRequest) (service.Result, error)
	SwitchFlow(ctx context.Context, matchID, commandID string) (service.Result, error)
	Undo(ctx context.Context, matchID, commandID string) (service.Result, error)
	Reset(ctx context.Context, matchID, commandID string) (service.Result, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Registry
	Matches
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	teamsHandler   *TeamsHandler
	matchesHandler *MatchesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		teamsHandler:   NewTeamsHandler(deps),
		matchesHandler: NewMatchesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /teams", MetricsMiddleware(s.teamsHandler.HandleCreateTeam, "teams"))
	mux.HandleFunc("GET /teams", MetricsMiddleware(s.teamsHandler.HandleListTeams, "teams"))
	mux.HandleFunc("GET /teams/{id}/players", MetricsMiddleware(s.teamsHandler.HandleListPlayers, "team_players"))
	mux.HandleFunc("POST /teams/{id}/players", MetricsMiddleware(s.teamsHandler.HandleAddPlayer, "team_players"))
	mux.HandleFunc("GET /players/{id}", MetricsMiddleware(s.teamsHandler.HandleGetPlayer, "player"))

	m := s.matchesHandler
	mux.HandleFunc("POST /matches", MetricsMiddleware(m.HandleCreateMatch, "matches"))
	mux.HandleFunc("GET /matches/{id}", MetricsMiddleware(m.HandleGetMatch, "match"))
	mux.HandleFunc("GET /matches/{id}/events", MetricsMiddleware(m.HandleEvents, "match_events"))
	mux.HandleFunc("POST /matches/{id}/plays", MetricsMiddleware(m.play(m.deps.RecordPlay), "plays"))
	mux.HandleFunc("POST /matches/{id}/attack-intercepted", MetricsMiddleware(m.play(m.deps.AttackIntercepted), "attack_intercepted"))
	mux.HandleFunc("POST /matches/{id}/set-kept-alive", MetricsMiddleware(m.play(m.deps.SetKeptAlive), "set_kept_alive"))
	mux.HandleFunc("POST /matches/{id}/block-contained", MetricsMiddleware(m.play(m.deps.BlockContained), "block_contained"))
	mux.HandleFunc("POST /matches/{id}/block-returned", MetricsMiddleware(m.play(m.deps.BlockReturned), "block_returned"))
	mux.HandleFunc("POST /matches/{id}/switch-flow", MetricsMiddleware(m.control(m.deps.SwitchFlow), "switch_flow"))
	mux.HandleFunc("POST /matches/{id}/undo", MetricsMiddleware(m.control(m.deps.Undo), "undo"))
	mux.HandleFunc("POST /matches/{id}/reset", MetricsMiddleware(m.control(m.deps.Reset), "reset"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err onto its HTTP status and error code.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if rec, ok := w.(*statusRecorder); ok {
		rec.code = code
	}
	writeError(w, status, code, err)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
