package rally

import "fmt"

// Position is the rally state the machine transitions over.
type Position struct {
	Stage        Stage
	ServeHeldByA bool
	// FlowReversed swaps attacker and defender roles relative to the serve
	// holder without changing who holds serve.
	FlowReversed bool
}

// Start returns the opening position of a rally.
func Start(serveHeldByA bool) Position {
	return Position{Stage: Serving, ServeHeldByA: serveHeldByA}
}

// ActingSideIsA reports which team makes the next play at pos. At Serving it
// is the serve holder, at Blocking the serve holder's side unless the flow is
// reversed, and at the other stages the opposite side.
func (p Position) ActingSideIsA() bool {
	switch p.Stage {
	case Serving:
		return p.ServeHeldByA
	case Blocking:
		return p.ServeHeldByA != p.FlowReversed
	default:
		return p.ServeHeldByA == p.FlowReversed
	}
}

// Transition is the result of applying one play to a Position.
// When Point is set the rally is over and WinnerIsA names the scorer.
type Transition struct {
	Next      Position
	Point     bool
	WinnerIsA bool
}

// Advance applies a play to pos. Invalid input is rejected and pos is never
// modified; the caller decides whether to commit Next.
func Advance(pos Position, play PlayType, success bool, reason FailureReason) (Transition, error) {
	st, ok := play.Stage()
	if !ok {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownPlayType, play)
	}
	if pos.Stage == GameEnd || st != pos.Stage {
		return Transition{}, fmt.Errorf("%w: %s during %s", ErrStageMismatch, play, pos.Stage)
	}
	if success && reason != NoReason {
		return Transition{}, fmt.Errorf("%w: successful %s with reason %s", ErrInvalidFailureReason, play, reason)
	}
	if !success && !ReasonAllowed(pos.Stage, reason) {
		return Transition{}, fmt.Errorf("%w: %s during %s", ErrInvalidFailureReason, reason, pos.Stage)
	}

	if success {
		switch pos.Stage {
		case Serving:
			// a fresh serve always starts with the default flow
			return moveTo(pos, Receiving, false), nil
		case Receiving:
			return moveTo(pos, Setting, pos.FlowReversed), nil
		case Setting:
			return moveTo(pos, Attacking, pos.FlowReversed), nil
		case Attacking, Blocking:
			return award(pos, successWinner(pos)), nil
		}
	}

	switch {
	case pos.Stage == Setting && reason.KeepsRallyAlive():
		return KeepSetAlive(pos)
	case pos.Stage == Attacking && reason == Blocked:
		return moveTo(pos, Blocking, pos.FlowReversed), nil
	case pos.Stage == Attacking && reason == Received:
		return Intercept(pos)
	case pos.Stage == Blocking && reason == BlockCover:
		return ContainBlock(pos)
	}
	return award(pos, failureWinner(pos)), nil
}

// Intercept handles an attack returned by the opponent: possession flips and
// the rally continues at Receiving.
func Intercept(pos Position) (Transition, error) {
	if pos.Stage != Attacking {
		return Transition{}, fmt.Errorf("%w: intercept during %s", ErrStageMismatch, pos.Stage)
	}
	return flip(pos, Receiving), nil
}

// KeepSetAlive handles an over-set or chance ball: possession flips and the
// new offensive side attacks the mishit set.
func KeepSetAlive(pos Position) (Transition, error) {
	if pos.Stage != Setting {
		return Transition{}, fmt.Errorf("%w: kept-alive set during %s", ErrStageMismatch, pos.Stage)
	}
	return flip(pos, Attacking), nil
}

// ContainBlock handles a block covered by the attacking side, which receives again.
func ContainBlock(pos Position) (Transition, error) {
	if pos.Stage != Blocking {
		return Transition{}, fmt.Errorf("%w: block cover during %s", ErrStageMismatch, pos.Stage)
	}
	return moveTo(pos, Receiving, false), nil
}

// ReturnBlock handles a block that lands with the opponent, who counter-attacks.
func ReturnBlock(pos Position) (Transition, error) {
	if pos.Stage != Blocking {
		return Transition{}, fmt.Errorf("%w: block return during %s", ErrStageMismatch, pos.Stage)
	}
	return flip(pos, Attacking), nil
}

// SwitchFlow is the operator override that swaps attacker and defender roles
// without touching the serve holder.
func SwitchFlow(pos Position) (Transition, error) {
	if pos.Stage == GameEnd {
		return Transition{}, fmt.Errorf("%w: switch flow during %s", ErrStageMismatch, pos.Stage)
	}
	return moveTo(pos, Receiving, !pos.FlowReversed), nil
}

func moveTo(pos Position, stage Stage, reversed bool) Transition {
	return Transition{Next: Position{Stage: stage, ServeHeldByA: pos.ServeHeldByA, FlowReversed: reversed}}
}

func flip(pos Position, stage Stage) Transition {
	return Transition{Next: Position{Stage: stage, ServeHeldByA: !pos.ServeHeldByA}}
}

// award ends the rally; serve passes to the other side for the next rally.
func award(pos Position, winnerIsA bool) Transition {
	return Transition{
		Next:      Position{Stage: Serving, ServeHeldByA: !pos.ServeHeldByA},
		Point:     true,
		WinnerIsA: winnerIsA,
	}
}

func successWinner(pos Position) bool {
	if pos.Stage == Blocking {
		if pos.FlowReversed {
			return !pos.ServeHeldByA
		}
		return pos.ServeHeldByA
	}
	if pos.FlowReversed {
		return pos.ServeHeldByA
	}
	return !pos.ServeHeldByA
}

func failureWinner(pos Position) bool {
	switch pos.Stage {
	case Serving:
		// flow reversal cannot have happened before the serve lands
		return !pos.ServeHeldByA
	case Attacking, Blocking:
		return !successWinner(pos)
	default:
		if pos.FlowReversed {
			return !pos.ServeHeldByA
		}
		return pos.ServeHeldByA
	}
}
