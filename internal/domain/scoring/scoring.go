// Package scoring decides when a set is over and which status message the
// scoreboard shows for a given score.
package scoring

import "fmt"

// Default scoring configuration constants.
const (
	DefaultWinPoints = 15
	DefaultCapPoints = 17
)

// Team identifies a side of the net in an Outcome.
type Team string

// Teams.
const (
	TeamNone Team = ""
	TeamA    Team = "A"
	TeamB    Team = "B"
)

// Option applies a configuration option to Rules.
type Option func(*Rules)

// WithWinPoints sets the score that wins the set with a two point lead.
func WithWinPoints(n int) Option {
	return func(r *Rules) {
		if n > 1 {
			r.win = n
		}
	}
}

// WithCapPoints sets the hard cap that wins the set unconditionally.
func WithCapPoints(n int) Option {
	return func(r *Rules) {
		if n > 1 {
			r.cap = n
		}
	}
}

// Outcome is the evaluation of one score.
type Outcome struct {
	Message  string
	Finished bool
	Winner   Team
}

// Rules evaluates scores. It is immutable once built and safe for concurrent use.
type Rules struct {
	win int
	cap int
}

// New creates Rules with the standard 15 point set and 17 point cap.
func New(opts ...Option) Rules {
	r := Rules{win: DefaultWinPoints, cap: DefaultCapPoints}
	for _, opt := range opts {
		opt(&r)
	}
	// a cap below the win line would make the win line unreachable
	if r.cap <= r.win {
		r.cap = r.win + 2
	}
	return r
}

// WinPoints returns the configured win line.
func (r Rules) WinPoints() int { return r.win }

// CapPoints returns the configured hard cap.
func (r Rules) CapPoints() int { return r.cap }

// Evaluate returns the outcome for a score. It is a pure function of its inputs.
//
// Both sides at or past the deuce line with unequal scores and neither at
// set point reports Deuce as well (e.g. 15-14). Existing scoreboards depend
// on that message, so it is kept as is.
func (r Rules) Evaluate(scoreA, scoreB int) Outcome {
	deuce := r.win - 1
	switch {
	case (scoreA == r.win && scoreB < deuce) || scoreA == r.cap:
		return Outcome{Message: "Team A WINS!", Finished: true, Winner: TeamA}
	case (scoreB == r.win && scoreA < deuce) || scoreB == r.cap:
		return Outcome{Message: "Team B WINS!", Finished: true, Winner: TeamB}
	}

	if scoreA >= deuce && scoreB >= deuce {
		switch {
		case scoreA == scoreB:
			return Outcome{Message: r.deuceMessage()}
		case scoreA == r.cap-1:
			return Outcome{Message: "Team A Set Point!"}
		case scoreB == r.cap-1:
			return Outcome{Message: "Team B Set Point!"}
		default:
			return Outcome{Message: r.deuceMessage()}
		}
	}
	switch deuce {
	case scoreA:
		return Outcome{Message: "Team A Set Point!"}
	case scoreB:
		return Outcome{Message: "Team B Set Point!"}
	}
	return Outcome{}
}

func (r Rules) deuceMessage() string {
	return fmt.Sprintf("Deuce! First to %d wins!", r.cap)
}
