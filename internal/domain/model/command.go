package model

import (
	"context"

	"github.com/okian/takraw/internal/domain/rally"
)

// CommandKind selects the engine operation a Command invokes.
type CommandKind string

// Command kinds.
const (
	CmdRecordPlay        CommandKind = "record_play"
	CmdAttackIntercepted CommandKind = "attack_intercepted"
	CmdSetKeptAlive      CommandKind = "set_kept_alive"
	CmdBlockContained    CommandKind = "block_contained"
	CmdBlockReturned     CommandKind = "block_returned"
	CmdSwitchFlow        CommandKind = "switch_flow"
	CmdUndo              CommandKind = "undo"
	CmdReset             CommandKind = "reset"

	// Read-only kinds. They go through the executor so reads never race writes.
	CmdState  CommandKind = "state"
	CmdEvents CommandKind = "events"
)

// Mutates reports whether the command changes match state.
func (k CommandKind) Mutates() bool {
	return k != CmdState && k != CmdEvents
}

// Command is a mutation addressed to one match. Commands for the same match
// are applied in submission order by a single goroutine.
type Command struct {
	ID       string // optional client key for idempotency
	MatchID  string
	Kind     CommandKind
	PlayerID string // empty lets the engine pick a default actor where allowed
	PlayType rally.PlayType
	Success  bool
	Reason   rally.FailureReason

	// Ctx is the submitter's context; the executor skips commands whose
	// submitter has already given up.
	Ctx   context.Context //nolint:containedctx // travels with the command across the queue
	Reply chan<- CommandResult
}

// CommandResult is the executor's answer to a Command.
type CommandResult struct {
	State     MatchScoreState
	Events    []ScoreEvent // set for CmdEvents
	Duplicate bool
	Err       error
}
