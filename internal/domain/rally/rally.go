// Package rally encodes the sepak takraw rally protocol: the stages a rally
// moves through, the plays each stage accepts, and the failure reasons a
// failed play may carry.
package rally

import (
	"fmt"
	"strings"
)

// Stage is the current step of a rally. Exactly one stage is current at any time.
type Stage int

// Rally stages in protocol order. GameEnd is terminal for the set.
const (
	Serving Stage = iota
	Receiving
	Setting
	Attacking
	Blocking
	GameEnd
)

var stageNames = [...]string{
	Serving:   "serving",
	Receiving: "receiving",
	Setting:   "setting",
	Attacking: "attacking",
	Blocking:  "blocking",
	GameEnd:   "game_end",
}

func (s Stage) String() string {
	if s < Serving || s > GameEnd {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(b []byte) error {
	for i, name := range stageNames {
		if name == string(b) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownStage, string(b))
}

// PlayType is the kind of play a player recorded.
type PlayType string

// Play types.
const (
	Serve        PlayType = "serve"
	ServeFeint   PlayType = "serve_feint"
	Receive      PlayType = "receive"
	Set          PlayType = "setting"
	Attack       PlayType = "attack"
	AttackFeint  PlayType = "attack_feint"
	Heading      PlayType = "heading"
	RollSpike    PlayType = "rollspike"
	SunbackSpike PlayType = "sunbackspike"
	Block        PlayType = "block"
)

// PlayTypes lists every play type in display order.
var PlayTypes = []PlayType{Serve, ServeFeint, Receive, Set, Attack, AttackFeint, Heading, RollSpike, SunbackSpike, Block}

// Stage returns the rally stage that legally produces the play.
func (p PlayType) Stage() (Stage, bool) {
	switch p {
	case Serve, ServeFeint:
		return Serving, true
	case Receive:
		return Receiving, true
	case Set:
		return Setting, true
	case Attack, AttackFeint, Heading, RollSpike, SunbackSpike:
		return Attacking, true
	case Block:
		return Blocking, true
	default:
		return 0, false
	}
}

// IsAttack reports whether p is one of the attacking plays.
func (p PlayType) IsAttack() bool {
	st, ok := p.Stage()
	return ok && st == Attacking
}

// ParsePlayType validates a wire value.
func ParsePlayType(s string) (PlayType, error) {
	p := PlayType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := p.Stage(); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlayType, s)
	}
	return p, nil
}

// FailureReason optionally explains a failed play. The zero value means none.
type FailureReason string

// Failure reasons.
const (
	NoReason   FailureReason = ""
	Out        FailureReason = "out"
	Blocked    FailureReason = "blocked"
	Net        FailureReason = "net"
	Fault      FailureReason = "fault"
	Received   FailureReason = "received"
	OverSet    FailureReason = "over_set"
	ChanceBall FailureReason = "chance_ball"
	BlockCover FailureReason = "block_cover"
	Over       FailureReason = "over"
)

// ParseFailureReason validates a wire value. Empty input yields NoReason.
func ParseFailureReason(s string) (FailureReason, error) {
	r := FailureReason(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case NoReason, Out, Blocked, Net, Fault, Received, OverSet, ChanceBall, BlockCover, Over:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFailureReason, s)
}

// KeepsRallyAlive reports whether a failed set with this reason hands the
// ball to the opponent instead of ending the rally.
func (r FailureReason) KeepsRallyAlive() bool {
	return r == OverSet || r == ChanceBall
}

// allowedReasons lists the failure reasons each stage accepts.
var allowedReasons = map[Stage][]FailureReason{
	Serving:   {NoReason, Fault, Out, Net},
	Receiving: {NoReason, Fault, Out, Net},
	Setting:   {NoReason, Fault, Out, Net, OverSet, ChanceBall},
	Attacking: {NoReason, Fault, Out, Net, Blocked, Received},
	Blocking:  {NoReason, Fault, Out, Net, Over, ChanceBall, BlockCover},
}

// ReasonAllowed reports whether a failed play at stage may carry r.
func ReasonAllowed(stage Stage, r FailureReason) bool {
	for _, ok := range allowedReasons[stage] {
		if ok == r {
			return true
		}
	}
	return false
}
