package ledger_test

import (
	"testing"

	"github.com/okian/takraw/internal/domain/ledger"
	"github.com/okian/takraw/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func start() model.ScoreEvent {
	return model.ScoreEvent{ID: "start", ScoringTeam: model.SideNone, PlayerName: model.GameStartName, ServeHolder: model.SideA}
}

func TestLedger(t *testing.T) {
	Convey("Given a fresh ledger", t, func() {
		l := ledger.New(start())

		Convey("Then it holds only the start event", func() {
			So(l.Len(), ShouldEqual, 1)
			So(l.Current().PlayerName, ShouldEqual, model.GameStartName)
		})

		Convey("When popping the start event", func() {
			_, ok := l.Pop()

			Convey("Then nothing is removed", func() {
				So(ok, ShouldBeFalse)
				So(l.Len(), ShouldEqual, 1)
			})
		})

		Convey("When events are appended", func() {
			l.Append(model.ScoreEvent{ID: "e1", ScoreA: 0})
			l.Append(model.ScoreEvent{ID: "e2", ScoreA: 1, ScoringTeam: model.SideA})
			l.Append(model.ScoreEvent{ID: "e3", ScoreA: 1})

			Convey("Then the tail is current", func() {
				So(l.Len(), ShouldEqual, 4)
				So(l.Current().ID, ShouldEqual, "e3")
			})

			Convey("And truncation keeps the retained prefix intact", func() {
				before := l.Events()
				l.TruncateTo(2)
				So(l.Events(), ShouldResemble, before[:2])
				So(l.Current().ID, ShouldEqual, "e1")
			})

			Convey("And truncation past the end is a no-op", func() {
				l.TruncateTo(10)
				So(l.Len(), ShouldEqual, 4)
			})

			Convey("And truncation never drops the start event", func() {
				l.TruncateTo(0)
				So(l.Len(), ShouldEqual, 1)
				So(l.Current().ID, ShouldEqual, "start")
			})

			Convey("And pop returns the tail", func() {
				e, ok := l.Pop()
				So(ok, ShouldBeTrue)
				So(e.ID, ShouldEqual, "e3")
				So(l.Current().ID, ShouldEqual, "e2")
			})

			Convey("And Events returns a copy", func() {
				evs := l.Events()
				evs[1].ScoreA = 99
				So(l.Events()[1].ScoreA, ShouldEqual, 0)
			})

			Convey("And reset reseeds the ledger", func() {
				s := start()
				s.ServeHolder = model.SideB
				l.Reset(s)
				So(l.Len(), ShouldEqual, 1)
				So(l.Current().ServeHolder, ShouldEqual, model.SideB)
			})
		})
	})
}
