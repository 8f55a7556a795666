package engine

import (
	"context"
	"time"

	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
	"github.com/okian/takraw/internal/domain/scoring"
	"github.com/okian/takraw/internal/domain/undo"
	"github.com/okian/takraw/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// ServerSelector picks the default server when a serve is recorded without a player.
type ServerSelector interface {
	// Server returns the tekong of the serving side, or nil if none is known.
	Server(ctx context.Context, teamA bool) *model.Player
}

// Observer is notified after state changes commit. Calls happen on the
// goroutine that drives the engine.
type Observer interface {
	PlayRecorded(pt rally.PlayType, success bool)
	PointAwarded(side model.Side)
	SetFinished(winner model.Side)
	Undone(tier undo.Tier)
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock sets the time source used to stamp ledger events.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator sets the generator for stat and event ids.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// WithRules sets the scoring rules.
func WithRules(r scoring.Rules) Option {
	return func(e *Engine) {
		e.rules = r
	}
}

// WithServerSelector sets the fallback used when a serve has no player.
func WithServerSelector(s ServerSelector) Option {
	return func(e *Engine) {
		e.selector = s
	}
}

// WithObserver registers an observer for committed state changes.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

type nopObserver struct{}

func (nopObserver) PlayRecorded(rally.PlayType, bool) {}
func (nopObserver) PointAwarded(model.Side)           {}
func (nopObserver) SetFinished(model.Side)            {}
func (nopObserver) Undone(undo.Tier)                  {}
