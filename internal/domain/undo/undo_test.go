package undo_test

import (
	"testing"

	"github.com/okian/takraw/internal/domain/ledger"
	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
	"github.com/okian/takraw/internal/domain/undo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCoordinator(t *testing.T) {
	Convey("Given a coordinator over a fresh ledger", t, func() {
		l := ledger.New(model.ScoreEvent{ID: "start", PlayerName: model.GameStartName, ScoringTeam: model.SideNone})
		c := undo.New(l)
		p := model.NewPlayer("p1", "Tekong A", 1, model.Tekong, "a")

		Convey("Then there is nothing to undo", func() {
			So(c.CanUndo(), ShouldBeFalse)
			So(c.Undo().Tier, ShouldEqual, undo.TierNone)
		})

		Convey("When a serve is recorded", func() {
			p.AddStat(model.StatRecord{ID: "s1", PlayType: rally.Serve, Success: true})
			c.Push(undo.Action{Player: p, StatID: "s1", StageBefore: rally.Serving, LedgerLenBefore: l.Len()})
			l.Append(model.ScoreEvent{ID: "e1"})

			Convey("Then it can be undone", func() {
				So(c.CanUndo(), ShouldBeTrue)
				So(c.Depth(), ShouldEqual, 1)
			})

			Convey("And undo removes the stat and the event", func() {
				res := c.Undo()
				So(res.Tier, ShouldEqual, undo.TierAction)
				So(res.Stage, ShouldEqual, rally.Serving)
				So(p.Stats(), ShouldBeEmpty)
				So(l.Len(), ShouldEqual, 1)
				So(c.CanUndo(), ShouldBeFalse)
			})
		})

		Convey("When a rally reached setting and a point was scored before it", func() {
			l.Append(model.ScoreEvent{ID: "act"})
			l.Append(model.ScoreEvent{ID: "pt", ScoreA: 1, ScoringTeam: model.SideA})
			p.AddStat(model.StatRecord{ID: "s2", PlayType: rally.Receive, Success: true})
			c.Push(undo.Action{Player: p, StatID: "s2", StageBefore: rally.Receiving, LedgerLenBefore: l.Len()})
			l.Append(model.ScoreEvent{ID: "e2", ScoreA: 1})

			Convey("Then the first undo reverts the rally action", func() {
				res := c.Undo()
				So(res.Tier, ShouldEqual, undo.TierAction)
				So(res.Stage, ShouldEqual, rally.Receiving)
				So(l.Current().ID, ShouldEqual, "pt")

				Convey("And the next undo reverts the point", func() {
					res := c.Undo()
					So(res.Tier, ShouldEqual, undo.TierPoint)
					So(res.Event.ID, ShouldEqual, "pt")
					So(res.Stage, ShouldEqual, rally.Serving)
					So(l.Current().ID, ShouldEqual, "act")
				})
			})

			Convey("And clearing the stack leaves only point undo", func() {
				c.Clear()
				So(c.Depth(), ShouldEqual, 0)
				So(c.CanUndo(), ShouldBeTrue)
				So(c.Undo().Tier, ShouldEqual, undo.TierPoint)
			})
		})

		Convey("When an action without a stat is pushed", func() {
			c.Push(undo.Action{StageBefore: rally.Attacking, LedgerLenBefore: l.Len()})
			l.Append(model.ScoreEvent{ID: "switch", PlayerName: model.RallySwitchName})

			Convey("Then undo reverts to the start and reports serving", func() {
				res := c.Undo()
				So(res.Tier, ShouldEqual, undo.TierAction)
				So(res.Stage, ShouldEqual, rally.Serving)
			})
		})
	})
}
