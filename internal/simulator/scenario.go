package simulator

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	service "github.com/okian/takraw/internal/app"
	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
	"github.com/okian/takraw/internal/domain/types"
)

// Scenario is a scripted match loaded from YAML.
type Scenario struct {
	Name             string `yaml:"name"`
	TeamA            string `yaml:"team_a"`
	TeamB            string `yaml:"team_b"`
	TeamAServesFirst bool   `yaml:"team_a_serves_first"`
	Steps            []Step `yaml:"steps"`
}

// Step is one scripted command. Player is "A.<position>" or "B.<position>";
// Expect, when set, is the error code the command must be rejected with.
type Step struct {
	Op      Op     `yaml:"op"`
	ID      string `yaml:"id,omitempty"`
	Player  string `yaml:"player,omitempty"`
	Play    string `yaml:"play,omitempty"`
	Success bool   `yaml:"success,omitempty"`
	Reason  string `yaml:"reason,omitempty"`
	Expect  string `yaml:"expect,omitempty"`
}

// StepResult is what the service made of one step.
type StepResult struct {
	Op        Op
	Code      string // error code of a rejected step
	Duplicate bool
	State     types.State
}

// ReplayResult is a replayed scenario with the resulting timeline.
type ReplayResult struct {
	Name    string
	MatchID string
	Steps   []StepResult
	Events  []types.Event
	State   types.State
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks names, ops and player references.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidScenario)
	}
	if strings.TrimSpace(s.TeamA) == "" || strings.TrimSpace(s.TeamB) == "" {
		return fmt.Errorf("%w: both teams must be named", ErrInvalidScenario)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}
	for i, st := range s.Steps {
		if !st.Op.Valid() {
			return fmt.Errorf("%w: step %d: %w: %q", ErrInvalidScenario, i+1, ErrUnknownOp, st.Op)
		}
		if st.Player != "" {
			if _, _, err := parsePlayerRef(st.Player); err != nil {
				return fmt.Errorf("%w: step %d: %w", ErrInvalidScenario, i+1, err)
			}
		}
	}
	return nil
}

// parsePlayerRef splits "A.tekong" into a side and a position.
func parsePlayerRef(ref string) (bool, model.Position, error) {
	side, pos, ok := strings.Cut(ref, ".")
	p := model.Position(strings.ToLower(pos))
	if !ok || !p.Valid() {
		return false, "", fmt.Errorf("bad player %q", ref)
	}
	switch strings.ToUpper(side) {
	case "A":
		return true, p, nil
	case "B":
		return false, p, nil
	}
	return false, "", fmt.Errorf("bad player side %q", ref)
}

// Replay registers the scenario's teams, creates its match and runs every
// step through d. A rejected step fails the replay unless its Expect code
// matches, and an expected rejection that does not happen fails it too.
func Replay(ctx context.Context, d Driver, sc *Scenario) (*ReplayResult, error) {
	roster := Roster{A: map[model.Position]string{}, B: map[model.Position]string{}}
	var teamIDs [2]string
	for i, name := range []string{sc.TeamA, sc.TeamB} {
		team, err := d.CreateTeam(ctx, name, false, "")
		if err != nil {
			return nil, fmt.Errorf("create team %s: %w", name, err)
		}
		teamIDs[i] = team.ID
		slots := roster.A
		if i == 1 {
			slots = roster.B
		}
		for n, pos := range botPositions {
			p, err := d.AddPlayer(ctx, team.ID, name+" "+string(pos), n+1, pos)
			if err != nil {
				return nil, fmt.Errorf("add player: %w", err)
			}
			slots[pos] = p.ID
		}
	}

	view, err := d.CreateMatch(ctx, service.MatchRequest{
		TeamAID:          teamIDs[0],
		TeamBID:          teamIDs[1],
		TeamAServesFirst: sc.TeamAServesFirst,
	})
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	res := &ReplayResult{Name: sc.Name, MatchID: view.Match.ID, State: view.State}
	for i, step := range sc.Steps {
		cmd, err := step.command(roster)
		if err != nil {
			return res, fmt.Errorf("step %d: %w", i+1, err)
		}
		out, err := d.Apply(ctx, res.MatchID, cmd)
		code := ErrorCode(err)
		switch {
		case err != nil && code != step.Expect:
			return res, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		case err == nil && step.Expect != "":
			return res, fmt.Errorf("%w: step %d (%s) accepted, want %s", ErrUnexpectedResult, i+1, step.Op, step.Expect)
		}
		if err == nil {
			res.State = out.State
		}
		res.Steps = append(res.Steps, StepResult{Op: step.Op, Code: code, Duplicate: out.Duplicate, State: res.State})
	}

	res.Events, err = d.Events(ctx, res.MatchID)
	if err != nil {
		return res, fmt.Errorf("events: %w", err)
	}
	return res, nil
}

func (s Step) command(roster Roster) (Command, error) {
	cmd := Command{Op: s.Op, CommandID: s.ID, Success: s.Success}
	if s.Player != "" {
		sideA, pos, err := parsePlayerRef(s.Player)
		if err != nil {
			return cmd, err
		}
		cmd.PlayerID = roster.Player(sideA, pos)
	}
	if s.Play != "" {
		pt, err := rally.ParsePlayType(s.Play)
		if err != nil {
			return cmd, err
		}
		cmd.PlayType = pt
	}
	reason, err := rally.ParseFailureReason(s.Reason)
	if err != nil {
		return cmd, err
	}
	cmd.Reason = reason
	return cmd, nil
}
