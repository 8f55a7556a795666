// Package undo reverses the most recent rally action or, when the rally has
// none, the most recent completed point.
package undo

import (
	"github.com/okian/takraw/internal/domain/ledger"
	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
)

// StatOwner is the player collaborator that can forget a recorded stat.
type StatOwner interface {
	RemoveStat(id string) bool
}

// Action is one reversible step of the current rally.
type Action struct {
	Player          StatOwner // nil when the action recorded no stat
	StatID          string
	StageBefore     rally.Stage
	LedgerLenBefore int
}

// Tier reports what an Undo call reverted.
type Tier int

// Undo tiers.
const (
	TierNone Tier = iota
	TierAction
	TierPoint
)

func (t Tier) String() string {
	switch t {
	case TierAction:
		return "action"
	case TierPoint:
		return "point"
	default:
		return "none"
	}
}

// Result describes a completed undo. Stage is the stage the engine restores.
type Result struct {
	Tier   Tier
	Stage  rally.Stage
	Action Action
	Event  model.ScoreEvent // the ledger event removed by a point undo
}

// Coordinator owns the rally action stack and reverts against a ledger.
type Coordinator struct {
	ledger  *ledger.Ledger
	actions []Action
}

// New creates a coordinator bound to l.
func New(l *ledger.Ledger) *Coordinator {
	return &Coordinator{ledger: l}
}

// Push records an undoable action.
func (c *Coordinator) Push(a Action) {
	c.actions = append(c.actions, a)
}

// Clear drops the rally action stack; called when a point ends the rally.
func (c *Coordinator) Clear() {
	c.actions = c.actions[:0]
}

// Depth returns the number of undoable rally actions.
func (c *Coordinator) Depth() int {
	return len(c.actions)
}

// CanUndo reports whether Undo would revert anything.
func (c *Coordinator) CanUndo() bool {
	return len(c.actions) > 0 || c.ledger.Len() > 1
}

// Undo reverts one step. A rally action is preferred over a completed point.
func (c *Coordinator) Undo() Result {
	if n := len(c.actions); n > 0 {
		a := c.actions[n-1]
		c.actions = c.actions[:n-1]
		if a.Player != nil && a.StatID != "" {
			a.Player.RemoveStat(a.StatID)
		}
		c.ledger.TruncateTo(a.LedgerLenBefore)
		stage := a.StageBefore
		if c.ledger.Len() == 1 {
			stage = rally.Serving
		}
		return Result{Tier: TierAction, Stage: stage, Action: a}
	}
	if e, ok := c.ledger.Pop(); ok {
		return Result{Tier: TierPoint, Stage: rally.Serving, Event: e}
	}
	return Result{Tier: TierNone, Stage: rally.Serving}
}
