// Package engine is the live scoring facade for one set. It composes the
// rally machine, the score ledger, the scoring rules and the undo
// coordinator behind a single-writer API.
//
// An Engine is not safe for concurrent use; callers serialize access.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/takraw/internal/domain/ledger"
	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
	"github.com/okian/takraw/internal/domain/scoring"
	"github.com/okian/takraw/internal/domain/undo"
	"github.com/okian/takraw/pkg/logger"
)

// Engine tracks the rally and score of a single set.
type Engine struct {
	match    model.Match
	rules    scoring.Rules
	log      logger.Logger
	now      func() time.Time
	newID    func() string
	selector ServerSelector
	observer Observer

	ledger *ledger.Ledger
	undo   *undo.Coordinator

	// serve holder lives in the ledger tail; only stage and flow are kept here
	stage    rally.Stage
	reversed bool
}

// New starts a set for match. Team A serves first when match.TeamAServesFirst is set.
func New(match model.Match, opts ...Option) *Engine {
	e := &Engine{
		match:    match,
		rules:    scoring.New(),
		log:      logger.Nop(),
		now:      time.Now,
		newID:    uuid.NewString,
		observer: nopObserver{},
		stage:    rally.Serving,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ledger = ledger.New(e.startEvent())
	e.undo = undo.New(e.ledger)
	return e
}

// MatchID returns the id of the match the engine scores.
func (e *Engine) MatchID() string { return e.match.ID }

// Match returns the match record with the current score applied.
func (e *Engine) Match() model.Match {
	m := e.match
	cur := e.ledger.Current()
	m.ScoreA, m.ScoreB = cur.ScoreA, cur.ScoreB
	return m
}

// State derives the observable snapshot from the ledger tail and rally position.
func (e *Engine) State() model.MatchScoreState {
	cur := e.ledger.Current()
	out := e.rules.Evaluate(cur.ScoreA, cur.ScoreB)
	return model.MatchScoreState{
		ScoreA:            cur.ScoreA,
		ScoreB:            cur.ScoreB,
		ServeHeldByA:      cur.ServeHolder == model.SideA,
		RallyStage:        e.stage,
		RallyFlowReversed: e.reversed,
		OutcomeMessage:    out.Message,
		IsSetFinished:     out.Finished,
		CanUndo:           e.undo.CanUndo(),
	}
}

// Events returns the score timeline in order, starting with the Game Start event.
func (e *Engine) Events() []model.ScoreEvent {
	return e.ledger.Events()
}

// CanUndo reports whether Undo would revert anything.
func (e *Engine) CanUndo() bool {
	return e.undo.CanUndo()
}

// RecordPlay records a play by player. A nil player is only accepted for a
// serve, in which case the configured ServerSelector supplies the tekong.
func (e *Engine) RecordPlay(ctx context.Context, player *model.Player, pt rally.PlayType, success bool, reason rally.FailureReason) (model.MatchScoreState, error) {
	if err := e.checkOpen(); err != nil {
		return e.State(), err
	}
	pos := e.position()
	tr, err := rally.Advance(pos, pt, success, reason)
	if err != nil {
		return e.State(), fmt.Errorf("record play: %w", err)
	}
	player, err = e.actor(ctx, player, pos)
	if err != nil {
		return e.State(), err
	}
	stat := model.StatRecord{ID: e.newID(), PlayType: pt, MatchID: e.match.ID, Success: success, FailureReason: reason}
	e.commit(ctx, player, stat, pos, tr)
	return e.State(), nil
}

// RecordAttackIntercepted records an attack that the opponent returned.
// Possession flips and the rally continues at Receiving.
func (e *Engine) RecordAttackIntercepted(ctx context.Context, player *model.Player, attack rally.PlayType) (model.MatchScoreState, error) {
	if !attack.IsAttack() {
		return e.State(), fmt.Errorf("attack intercepted: %w: %s is not an attack", ErrStageMismatch, attack)
	}
	return e.RecordPlay(ctx, player, attack, false, rally.Received)
}

// RecordSetFailureKeptAlive records an over-set or chance ball. Possession
// flips and the opponent attacks the mishit set.
func (e *Engine) RecordSetFailureKeptAlive(ctx context.Context, player *model.Player, reason rally.FailureReason) (model.MatchScoreState, error) {
	if !reason.KeepsRallyAlive() {
		return e.State(), fmt.Errorf("set kept alive: %w: %q", ErrInvalidFailureReason, reason)
	}
	return e.RecordPlay(ctx, player, rally.Set, false, reason)
}

// RecordBlockContainedByDefense records a block that the attacking side
// covered. The rally returns to Receiving without a possession change.
func (e *Engine) RecordBlockContainedByDefense(ctx context.Context, player *model.Player, pt rally.PlayType) (model.MatchScoreState, error) {
	if pt == "" {
		pt = rally.Block
	}
	return e.RecordPlay(ctx, player, pt, false, rally.BlockCover)
}

// RecordBlockLeadsToOpponentPlay records a block that landed with the
// opponent, who now counter-attacks.
func (e *Engine) RecordBlockLeadsToOpponentPlay(ctx context.Context, player *model.Player, pt rally.PlayType) (model.MatchScoreState, error) {
	if err := e.checkOpen(); err != nil {
		return e.State(), err
	}
	if pt == "" {
		pt = rally.Block
	}
	if st, ok := pt.Stage(); !ok || st != rally.Blocking {
		return e.State(), fmt.Errorf("block returned: %w: %s", ErrStageMismatch, pt)
	}
	pos := e.position()
	tr, err := rally.ReturnBlock(pos)
	if err != nil {
		return e.State(), fmt.Errorf("block returned: %w", err)
	}
	player, err = e.actor(ctx, player, pos)
	if err != nil {
		return e.State(), err
	}
	stat := model.StatRecord{ID: e.newID(), PlayType: pt, MatchID: e.match.ID, Success: false, FailureReason: rally.Blocked}
	e.commit(ctx, player, stat, pos, tr)
	return e.State(), nil
}

// SwitchRallyFlow swaps attacker and defender roles for the rest of the rally
// and moves the rally to Receiving. The switch is itself undoable.
func (e *Engine) SwitchRallyFlow(ctx context.Context) (model.MatchScoreState, error) {
	if err := e.checkOpen(); err != nil {
		return e.State(), err
	}
	pos := e.position()
	tr, err := rally.SwitchFlow(pos)
	if err != nil {
		return e.State(), fmt.Errorf("switch flow: %w", err)
	}
	cur := e.ledger.Current()
	e.undo.Push(undo.Action{StageBefore: pos.Stage, LedgerLenBefore: e.ledger.Len()})
	e.ledger.Append(model.ScoreEvent{
		ID:          e.newID(),
		ScoreA:      cur.ScoreA,
		ScoreB:      cur.ScoreB,
		ScoringTeam: model.SideNone,
		Timestamp:   e.now(),
		PlayerName:  model.RallySwitchName,
		PlayType:    rally.Receive,
		Success:     true,
		ServeHolder: cur.ServeHolder,
	})
	e.stage, e.reversed = tr.Next.Stage, tr.Next.FlowReversed
	e.log.Debug(ctx, "rally flow switched", logger.String("match_id", e.match.ID), logger.Bool("reversed", e.reversed))
	return e.State(), nil
}

// Undo reverts the latest rally action, or the latest point when the rally
// has none. It is a no-op when only the Game Start event remains.
func (e *Engine) Undo(ctx context.Context) (model.MatchScoreState, error) {
	res := e.undo.Undo()
	if res.Tier == undo.TierNone {
		return e.State(), nil
	}
	e.stage, e.reversed = res.Stage, false
	if e.State().IsSetFinished {
		e.stage = rally.GameEnd
	}
	e.observer.Undone(res.Tier)
	e.log.Info(ctx, "undo applied",
		logger.String("match_id", e.match.ID),
		logger.String("tier", res.Tier.String()),
		logger.String("stage", e.stage.String()))
	return e.State(), nil
}

// Reset returns the set to its initial configuration. Stats already handed
// to players are left with them.
func (e *Engine) Reset(ctx context.Context) (model.MatchScoreState, error) {
	e.ledger.Reset(e.startEvent())
	e.undo.Clear()
	e.stage, e.reversed = rally.Serving, false
	e.log.Info(ctx, "set reset", logger.String("match_id", e.match.ID))
	return e.State(), nil
}

func (e *Engine) checkOpen() error {
	if e.stage == rally.GameEnd || e.State().IsSetFinished {
		return ErrSetAlreadyFinished
	}
	return nil
}

func (e *Engine) position() rally.Position {
	return rally.Position{
		Stage:        e.stage,
		ServeHeldByA: e.ledger.Current().ServeHolder == model.SideA,
		FlowReversed: e.reversed,
	}
}

func (e *Engine) actor(ctx context.Context, p *model.Player, pos rally.Position) (*model.Player, error) {
	if p != nil {
		return p, nil
	}
	if pos.Stage == rally.Serving && e.selector != nil {
		if s := e.selector.Server(ctx, pos.ServeHeldByA); s != nil {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: stage %s", ErrNoPlayerSelected, pos.Stage)
}

// commit applies a validated transition: the stat goes to the player, the
// action event goes to the ledger and, when the rally ends, the point event
// follows it.
func (e *Engine) commit(ctx context.Context, player *model.Player, stat model.StatRecord, pos rally.Position, tr rally.Transition) {
	lenBefore := e.ledger.Len()
	cur := e.ledger.Current()
	player.AddStat(stat)

	holderAfterAction := tr.Next.ServeHeldByA
	if tr.Point {
		holderAfterAction = pos.ServeHeldByA
	}
	e.ledger.Append(model.ScoreEvent{
		ID:          e.newID(),
		ScoreA:      cur.ScoreA,
		ScoreB:      cur.ScoreB,
		ScoringTeam: model.SideNone,
		Timestamp:   e.now(),
		PlayerName:  player.Name,
		PlayType:    stat.PlayType,
		Success:     stat.Success,
		ServeHolder: model.SideOf(holderAfterAction),
	})
	e.undo.Push(undo.Action{Player: player, StatID: stat.ID, StageBefore: pos.Stage, LedgerLenBefore: lenBefore})
	e.stage, e.reversed = tr.Next.Stage, tr.Next.FlowReversed
	e.observer.PlayRecorded(stat.PlayType, stat.Success)
	e.log.Debug(ctx, "play recorded",
		logger.String("match_id", e.match.ID),
		logger.String("player", player.Name),
		logger.String("play_type", string(stat.PlayType)),
		logger.Bool("success", stat.Success),
		logger.String("stage", e.stage.String()))

	if tr.Point {
		e.awardPoint(ctx, player, stat, tr)
	}
}

func (e *Engine) awardPoint(ctx context.Context, player *model.Player, stat model.StatRecord, tr rally.Transition) {
	cur := e.ledger.Current()
	scoreA, scoreB := cur.ScoreA, cur.ScoreB
	if tr.WinnerIsA {
		scoreA++
	} else {
		scoreB++
	}
	side := model.SideOf(tr.WinnerIsA)
	e.ledger.Append(model.ScoreEvent{
		ID:          e.newID(),
		ScoreA:      scoreA,
		ScoreB:      scoreB,
		ScoringTeam: side,
		Timestamp:   e.now(),
		PlayerName:  player.Name,
		PlayType:    stat.PlayType,
		Success:     stat.Success,
		ServeHolder: model.SideOf(tr.Next.ServeHeldByA),
	})
	e.undo.Clear()
	e.observer.PointAwarded(side)

	out := e.rules.Evaluate(scoreA, scoreB)
	e.log.Info(ctx, "point awarded",
		logger.String("match_id", e.match.ID),
		logger.String("team", string(side)),
		logger.Int("score_a", scoreA),
		logger.Int("score_b", scoreB),
		logger.String("message", out.Message))
	if out.Finished {
		e.stage = rally.GameEnd
		e.observer.SetFinished(side)
		e.log.Info(ctx, "set finished", logger.String("match_id", e.match.ID), logger.String("winner", string(out.Winner)))
	}
}

func (e *Engine) startEvent() model.ScoreEvent {
	return model.ScoreEvent{
		ID:          e.newID(),
		ScoringTeam: model.SideNone,
		Timestamp:   e.now(),
		PlayerName:  model.GameStartName,
		PlayType:    rally.Serve,
		Success:     true,
		ServeHolder: model.SideOf(e.match.TeamAServesFirst),
	}
}
