// Package ledger keeps the append-only score history of a set.
package ledger

import "github.com/okian/takraw/internal/domain/model"

// Ledger is an ordered sequence of score events. It always holds at least the
// start-of-set event, so Current never has an empty case. A Ledger is not
// safe for concurrent use.
type Ledger struct {
	events []model.ScoreEvent
}

// New creates a ledger seeded with the start-of-set event.
func New(start model.ScoreEvent) *Ledger {
	return &Ledger{events: []model.ScoreEvent{start}}
}

// Append adds an event at the tail.
func (l *Ledger) Append(e model.ScoreEvent) {
	l.events = append(l.events, e)
}

// Current returns the tail event, the authoritative score and serve holder.
func (l *Ledger) Current() model.ScoreEvent {
	return l.events[len(l.events)-1]
}

// Len returns the number of events including the start event.
func (l *Ledger) Len() int {
	return len(l.events)
}

// TruncateTo drops every event past n. n is clamped so the start event is
// always kept; retained events are never modified.
func (l *Ledger) TruncateTo(n int) {
	if n < 1 {
		n = 1
	}
	if n >= len(l.events) {
		return
	}
	clear(l.events[n:])
	l.events = l.events[:n]
}

// Pop removes the tail event. The start event is never removed.
func (l *Ledger) Pop() (model.ScoreEvent, bool) {
	if len(l.events) <= 1 {
		return model.ScoreEvent{}, false
	}
	e := l.Current()
	l.TruncateTo(len(l.events) - 1)
	return e, true
}

// Events returns a copy of the history in order.
func (l *Ledger) Events() []model.ScoreEvent {
	out := make([]model.ScoreEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Reset discards the history and reseeds it with start.
func (l *Ledger) Reset(start model.ScoreEvent) {
	l.events = []model.ScoreEvent{start}
}
