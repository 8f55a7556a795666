package model

import (
	"time"

	"github.com/okian/takraw/internal/domain/rally"
)

// Match is a single-set fixture between two teams.
type Match struct {
	ID               string
	TeamAID          string
	TeamBID          string
	TeamAServesFirst bool
	ScoreA           int
	ScoreB           int
	Date             time.Time
	// Suffixes tell the sides apart when a team plays itself.
	TeamASuffix string
	TeamBSuffix string
}

// MatchScoreState is the observable snapshot of a set in progress.
// It is derived on every read and never stored.
type MatchScoreState struct {
	ScoreA            int
	ScoreB            int
	ServeHeldByA      bool
	RallyStage        rally.Stage
	RallyFlowReversed bool
	OutcomeMessage    string
	IsSetFinished     bool
	CanUndo           bool
}
