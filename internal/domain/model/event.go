// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/takraw/internal/domain/rally"
)

// Side names a team on the scoreboard.
type Side string

// Sides. SideNone is used for events that award no point.
const (
	SideNone Side = "None"
	SideA    Side = "A"
	SideB    Side = "B"
)

// SideOf maps the serve/winner flag used by the rally machine to a Side.
func SideOf(isA bool) Side {
	if isA {
		return SideA
	}
	return SideB
}

// Player names used for ledger events that no player produced.
const (
	GameStartName   = "Game Start"
	RallySwitchName = "Rally Switch"
)

// StatRecord is one recorded play. It is immutable once created.
type StatRecord struct {
	ID            string              // unique id, addressable for undo
	PlayType      rally.PlayType      // kind of play
	MatchID       string              // owning match
	Success       bool                // outcome of the play
	FailureReason rally.FailureReason // optional, failed plays only
}

// ScoreEvent is a snapshot of the score after a notable rally action.
type ScoreEvent struct {
	ID          string
	ScoreA      int
	ScoreB      int
	ScoringTeam Side // SideNone unless the event awarded a point
	Timestamp   time.Time
	PlayerName  string
	PlayType    rally.PlayType
	Success     bool
	ServeHolder Side
}

// IsPoint reports whether the event awarded a point.
func (e ScoreEvent) IsPoint() bool {
	return e.ScoringTeam == SideA || e.ScoringTeam == SideB
}
