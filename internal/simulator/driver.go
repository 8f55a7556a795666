package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/takraw/internal/adapters/http/api"
	service "github.com/okian/takraw/internal/app"
	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
	"github.com/okian/takraw/internal/domain/types"
)

// Op names a rally command.
type Op string

// Rally command ops.
const (
	OpPlay           Op = "play"
	OpIntercept      Op = "intercept"
	OpKeepAlive      Op = "keep_alive"
	OpBlockContained Op = "block_contained"
	OpBlockReturned  Op = "block_returned"
	OpSwitch         Op = "switch"
	OpUndo           Op = "undo"
	OpReset          Op = "reset"
)

// opRoutes maps each op to its route under /matches/{id}.
var opRoutes = map[Op]string{
	OpPlay:           "plays",
	OpIntercept:      "attack-intercepted",
	OpKeepAlive:      "set-kept-alive",
	OpBlockContained: "block-contained",
	OpBlockReturned:  "block-returned",
	OpSwitch:         "switch-flow",
	OpUndo:           "undo",
	OpReset:          "reset",
}

// Valid reports whether o is a known op.
func (o Op) Valid() bool {
	_, ok := opRoutes[o]
	return ok
}

func (o Op) control() bool {
	return o == OpSwitch || o == OpUndo || o == OpReset
}

// Command is one rally command sent through a Driver.
type Command struct {
	Op        Op
	CommandID string
	PlayerID  string
	PlayType  rally.PlayType
	Success   bool
	Reason    rally.FailureReason
}

// Driver is the scoring surface the simulator plays against.
type Driver interface {
	CreateTeam(ctx context.Context, name string, isBot bool, color string) (types.Team, error)
	AddPlayer(ctx context.Context, teamID, name string, number int, pos model.Position) (types.Player, error)
	CreateMatch(ctx context.Context, req service.MatchRequest) (types.MatchView, error)
	Apply(ctx context.Context, matchID string, cmd Command) (types.CommandResponse, error)
	Events(ctx context.Context, matchID string) ([]types.Event, error)
}

// ErrorCode returns the API error code of err, whichever driver produced it.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return api.ErrorCode(err)
}

// LocalDriver calls an in-process service.
type LocalDriver struct {
	svc *service.Service
}

// NewLocalDriver wraps a started service.
func NewLocalDriver(svc *service.Service) *LocalDriver {
	return &LocalDriver{svc: svc}
}

// CreateTeam registers a team.
func (d *LocalDriver) CreateTeam(ctx context.Context, name string, isBot bool, color string) (types.Team, error) {
	t, err := d.svc.CreateTeam(ctx, name, isBot, color)
	if err != nil {
		return types.Team{}, err
	}
	return types.FromTeam(t), nil
}

// AddPlayer adds a player to a team.
func (d *LocalDriver) AddPlayer(ctx context.Context, teamID, name string, number int, pos model.Position) (types.Player, error) {
	p, err := d.svc.AddPlayer(ctx, teamID, name, number, pos)
	if err != nil {
		return types.Player{}, err
	}
	return types.FromPlayer(p), nil
}

// CreateMatch creates a match.
func (d *LocalDriver) CreateMatch(ctx context.Context, req service.MatchRequest) (types.MatchView, error) {
	m, st, err := d.svc.CreateMatch(ctx, req)
	if err != nil {
		return types.MatchView{}, err
	}
	return types.MatchView{Match: types.FromMatch(m), State: types.FromState(st)}, nil
}

// Apply runs cmd against matchID.
func (d *LocalDriver) Apply(ctx context.Context, matchID string, cmd Command) (types.CommandResponse, error) { //nolint:gocritic // hugeParam
	req := service.PlayRequest{
		CommandID: cmd.CommandID,
		PlayerID:  cmd.PlayerID,
		PlayType:  cmd.PlayType,
		Success:   cmd.Success,
		Reason:    cmd.Reason,
	}
	var (
		res service.Result
		err error
	)
	switch cmd.Op {
	case OpPlay:
		res, err = d.svc.RecordPlay(ctx, matchID, req)
	case OpIntercept:
		res, err = d.svc.AttackIntercepted(ctx, matchID, req)
	case OpKeepAlive:
		res, err = d.svc.SetKeptAlive(ctx, matchID, req)
	case OpBlockContained:
		res, err = d.svc.BlockContained(ctx, matchID, req)
	case OpBlockReturned:
		res, err = d.svc.BlockReturned(ctx, matchID, req)
	case OpSwitch:
		res, err = d.svc.SwitchFlow(ctx, matchID, cmd.CommandID)
	case OpUndo:
		res, err = d.svc.Undo(ctx, matchID, cmd.CommandID)
	case OpReset:
		res, err = d.svc.Reset(ctx, matchID, cmd.CommandID)
	default:
		return types.CommandResponse{}, fmt.Errorf("%w: %q", ErrUnknownOp, cmd.Op)
	}
	if err != nil {
		return types.CommandResponse{}, err
	}
	return types.CommandResponse{State: types.FromState(res.State), Duplicate: res.Duplicate}, nil
}

// Events returns the match timeline.
func (d *LocalDriver) Events(ctx context.Context, matchID string) ([]types.Event, error) {
	events, err := d.svc.Events(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return types.FromEvents(events), nil
}

// HTTPDriver calls a running server's JSON API.
type HTTPDriver struct {
	client  *http.Client
	baseURL string
}

// NewHTTPDriver creates a driver for baseURL with a per-request timeout.
func NewHTTPDriver(baseURL string, timeout time.Duration) *HTTPDriver {
	return &HTTPDriver{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type teamBody struct {
	Name  string `json:"name"`
	IsBot bool   `json:"is_bot"`
	Color string `json:"color,omitempty"`
}

type playerBody struct {
	Name     string         `json:"name"`
	Number   int            `json:"number"`
	Position model.Position `json:"position"`
}

type matchBody struct {
	TeamAID          string `json:"team_a_id"`
	TeamBID          string `json:"team_b_id"`
	TeamAServesFirst bool   `json:"team_a_serves_first"`
	TeamASuffix      string `json:"team_a_suffix,omitempty"`
	TeamBSuffix      string `json:"team_b_suffix,omitempty"`
}

type playBody struct {
	CommandID string              `json:"command_id,omitempty"`
	PlayerID  string              `json:"player_id,omitempty"`
	PlayType  rally.PlayType      `json:"play_type,omitempty"`
	Success   bool                `json:"success"`
	Reason    rally.FailureReason `json:"reason,omitempty"`
}

type controlBody struct {
	CommandID string `json:"command_id,omitempty"`
}

// CreateTeam registers a team.
func (d *HTTPDriver) CreateTeam(ctx context.Context, name string, isBot bool, color string) (types.Team, error) {
	var out types.Team
	err := d.do(ctx, http.MethodPost, "/teams", teamBody{Name: name, IsBot: isBot, Color: color}, &out)
	return out, err
}

// AddPlayer adds a player to a team.
func (d *HTTPDriver) AddPlayer(ctx context.Context, teamID, name string, number int, pos model.Position) (types.Player, error) {
	var out types.Player
	err := d.do(ctx, http.MethodPost, "/teams/"+teamID+"/players", playerBody{Name: name, Number: number, Position: pos}, &out)
	return out, err
}

// CreateMatch creates a match.
func (d *HTTPDriver) CreateMatch(ctx context.Context, req service.MatchRequest) (types.MatchView, error) {
	var out types.MatchView
	err := d.do(ctx, http.MethodPost, "/matches", matchBody(req), &out)
	return out, err
}

// Apply posts cmd to its route.
func (d *HTTPDriver) Apply(ctx context.Context, matchID string, cmd Command) (types.CommandResponse, error) { //nolint:gocritic // hugeParam
	route, ok := opRoutes[cmd.Op]
	if !ok {
		return types.CommandResponse{}, fmt.Errorf("%w: %q", ErrUnknownOp, cmd.Op)
	}
	var body any = playBody{
		CommandID: cmd.CommandID,
		PlayerID:  cmd.PlayerID,
		PlayType:  cmd.PlayType,
		Success:   cmd.Success,
		Reason:    cmd.Reason,
	}
	if cmd.Op.control() {
		body = controlBody{CommandID: cmd.CommandID}
	}
	var out types.CommandResponse
	err := d.do(ctx, http.MethodPost, "/matches/"+matchID+"/"+route, body, &out)
	return out, err
}

// Events returns the match timeline.
func (d *HTTPDriver) Events(ctx context.Context, matchID string) ([]types.Event, error) {
	var out []types.Event
	err := d.do(ctx, http.MethodGet, "/matches/"+matchID+"/events", nil, &out)
	return out, err
}

// do sends a JSON request and decodes a 2xx body into out. Error bodies
// become an *APIError.
func (d *HTTPDriver) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Code, apiErr.Message = payload.Code, payload.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}
