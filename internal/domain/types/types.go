// Package types contains the JSON shapes shared by the HTTP API and its clients.
package types

import (
	"time"

	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
)

// Team is the wire form of a registered team.
type Team struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	IsBot bool   `json:"is_bot"`
	Color string `json:"color,omitempty"`
}

// Stat is one recorded play.
type Stat struct {
	ID            string              `json:"id"`
	PlayType      rally.PlayType      `json:"play_type"`
	MatchID       string              `json:"match_id"`
	Success       bool                `json:"success"`
	FailureReason rally.FailureReason `json:"failure_reason,omitempty"`
}

// Player is a player with its stats and success rate per attempted play type.
type Player struct {
	ID           string                     `json:"id"`
	Name         string                     `json:"name"`
	Number       int                        `json:"number"`
	Position     model.Position             `json:"position"`
	TeamID       string                     `json:"team_id"`
	Stats        []Stat                     `json:"stats"`
	SuccessRates map[rally.PlayType]float64 `json:"success_rates"`
}

// Match is the stored match record.
type Match struct {
	ID               string    `json:"id"`
	TeamAID          string    `json:"team_a_id"`
	TeamBID          string    `json:"team_b_id"`
	TeamAServesFirst bool      `json:"team_a_serves_first"`
	ScoreA           int       `json:"score_a"`
	ScoreB           int       `json:"score_b"`
	Date             time.Time `json:"date"`
	TeamASuffix      string    `json:"team_a_suffix,omitempty"`
	TeamBSuffix      string    `json:"team_b_suffix,omitempty"`
}

// State is the derived score state of a match.
type State struct {
	ScoreA            int         `json:"score_a"`
	ScoreB            int         `json:"score_b"`
	ServeHeldByA      bool        `json:"serve_held_by_a"`
	RallyStage        rally.Stage `json:"rally_stage"`
	RallyFlowReversed bool        `json:"rally_flow_reversed"`
	OutcomeMessage    string      `json:"outcome_message"`
	IsSetFinished     bool        `json:"is_set_finished"`
	CanUndo           bool        `json:"can_undo"`
}

// Event is one entry of a match timeline.
type Event struct {
	ID          string         `json:"id"`
	ScoreA      int            `json:"score_a"`
	ScoreB      int            `json:"score_b"`
	ScoringTeam model.Side     `json:"scoring_team"`
	Timestamp   time.Time      `json:"timestamp"`
	PlayerName  string         `json:"player_name"`
	PlayType    rally.PlayType `json:"play_type"`
	Success     bool           `json:"success"`
	ServeHolder model.Side     `json:"serve_holder"`
}

// MatchView pairs a match record with its live state.
type MatchView struct {
	Match Match `json:"match"`
	State State `json:"state"`
}

// CommandResponse acknowledges a rally command.
type CommandResponse struct {
	State     State `json:"state"`
	Duplicate bool  `json:"duplicate"`
}

// FromTeam converts a team.
func FromTeam(t model.Team) Team {
	return Team{ID: t.ID, Name: t.Name, IsBot: t.IsBot, Color: t.Color}
}

// FromPlayer converts a player, snapshotting its stats.
func FromPlayer(p *model.Player) Player {
	stats := p.Stats()
	out := Player{
		ID:           p.ID,
		Name:         p.Name,
		Number:       p.Number,
		Position:     p.Position,
		TeamID:       p.TeamID,
		Stats:        make([]Stat, 0, len(stats)),
		SuccessRates: make(map[rally.PlayType]float64),
	}
	for _, s := range stats {
		out.Stats = append(out.Stats, Stat{
			ID:            s.ID,
			PlayType:      s.PlayType,
			MatchID:       s.MatchID,
			Success:       s.Success,
			FailureReason: s.FailureReason,
		})
		if _, ok := out.SuccessRates[s.PlayType]; !ok {
			out.SuccessRates[s.PlayType] = p.SuccessRate(s.PlayType)
		}
	}
	return out
}

// FromMatch converts a match record.
func FromMatch(m model.Match) Match { //nolint:gocritic // hugeParam
	return Match{
		ID:               m.ID,
		TeamAID:          m.TeamAID,
		TeamBID:          m.TeamBID,
		TeamAServesFirst: m.TeamAServesFirst,
		ScoreA:           m.ScoreA,
		ScoreB:           m.ScoreB,
		Date:             m.Date,
		TeamASuffix:      m.TeamASuffix,
		TeamBSuffix:      m.TeamBSuffix,
	}
}

// FromState converts a derived score state.
func FromState(s model.MatchScoreState) State { //nolint:gocritic // hugeParam
	return State(s)
}

// FromEvents converts a ledger, oldest first.
func FromEvents(events []model.ScoreEvent) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		out = append(out, Event(e))
	}
	return out
}
