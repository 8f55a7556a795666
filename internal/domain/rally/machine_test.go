package rally_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/takraw/internal/domain/rally"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAdvance_SuccessPath(t *testing.T) {
	Convey("Given a rally that starts with team A serving", t, func() {
		pos := rally.Start(true)

		Convey("When the serve lands", func() {
			tr, err := rally.Advance(pos, rally.Serve, true, rally.NoReason)

			Convey("Then the rally moves to receiving without a point", func() {
				So(err, ShouldBeNil)
				So(tr.Point, ShouldBeFalse)
				So(tr.Next.Stage, ShouldEqual, rally.Receiving)
				So(tr.Next.ServeHeldByA, ShouldBeTrue)
			})
		})

		Convey("When a reversed flow meets a fresh serve", func() {
			pos.FlowReversed = true
			tr, err := rally.Advance(pos, rally.ServeFeint, true, rally.NoReason)

			Convey("Then the flow flag is reset", func() {
				So(err, ShouldBeNil)
				So(tr.Next.FlowReversed, ShouldBeFalse)
			})
		})

		Convey("When receive and set both succeed", func() {
			tr, _ := rally.Advance(pos, rally.Serve, true, rally.NoReason)
			tr, _ = rally.Advance(tr.Next, rally.Receive, true, rally.NoReason)
			So(tr.Next.Stage, ShouldEqual, rally.Setting)
			tr, err := rally.Advance(tr.Next, rally.Set, true, rally.NoReason)

			Convey("Then the rally reaches attacking", func() {
				So(err, ShouldBeNil)
				So(tr.Next.Stage, ShouldEqual, rally.Attacking)
			})
		})
	})
}

func TestAdvance_Points(t *testing.T) {
	Convey("Given a rally at attacking with A holding serve", t, func() {
		pos := rally.Position{Stage: rally.Attacking, ServeHeldByA: true}

		Convey("When the attack scores", func() {
			tr, err := rally.Advance(pos, rally.Attack, true, rally.NoReason)

			Convey("Then the receiving side B wins and serve passes to B", func() {
				So(err, ShouldBeNil)
				So(tr.Point, ShouldBeTrue)
				So(tr.WinnerIsA, ShouldBeFalse)
				So(tr.Next, ShouldResemble, rally.Position{Stage: rally.Serving, ServeHeldByA: false})
			})
		})

		Convey("When the flow is reversed and the attack scores", func() {
			pos.FlowReversed = true
			tr, _ := rally.Advance(pos, rally.RollSpike, true, rally.NoReason)

			Convey("Then the serve holder wins", func() {
				So(tr.WinnerIsA, ShouldBeTrue)
				So(tr.Next.FlowReversed, ShouldBeFalse)
			})
		})

		Convey("When the attack goes out", func() {
			tr, err := rally.Advance(pos, rally.Heading, false, rally.Out)

			Convey("Then the defending side wins", func() {
				So(err, ShouldBeNil)
				So(tr.Point, ShouldBeTrue)
				So(tr.WinnerIsA, ShouldBeTrue)
			})
		})
	})

	Convey("Given a rally at blocking with A holding serve", t, func() {
		pos := rally.Position{Stage: rally.Blocking, ServeHeldByA: true}

		Convey("When the block wins the ball", func() {
			tr, _ := rally.Advance(pos, rally.Block, true, rally.NoReason)
			So(tr.Point, ShouldBeTrue)
			So(tr.WinnerIsA, ShouldBeTrue)
		})

		Convey("When the block fails", func() {
			tr, _ := rally.Advance(pos, rally.Block, false, rally.Over)
			So(tr.Point, ShouldBeTrue)
			So(tr.WinnerIsA, ShouldBeFalse)
		})

		Convey("When the flow is reversed and the block wins", func() {
			pos.FlowReversed = true
			tr, _ := rally.Advance(pos, rally.Block, true, rally.NoReason)
			So(tr.WinnerIsA, ShouldBeFalse)
		})
	})

	Convey("Given a serve fault", t, func() {
		Convey("When the flow flag is set", func() {
			pos := rally.Position{Stage: rally.Serving, ServeHeldByA: true, FlowReversed: true}
			tr, err := rally.Advance(pos, rally.Serve, false, rally.Fault)

			Convey("Then the receiving side still wins", func() {
				So(err, ShouldBeNil)
				So(tr.WinnerIsA, ShouldBeFalse)
			})
		})
	})

	Convey("Given a receive error", t, func() {
		pos := rally.Position{Stage: rally.Receiving, ServeHeldByA: false}
		tr, _ := rally.Advance(pos, rally.Receive, false, rally.Fault)

		Convey("Then the serving side wins", func() {
			So(tr.Point, ShouldBeTrue)
			So(tr.WinnerIsA, ShouldBeFalse)
			So(tr.Next.ServeHeldByA, ShouldBeTrue)
		})
	})
}

func TestAdvance_RallyContinues(t *testing.T) {
	Convey("Given a failed set", t, func() {
		pos := rally.Position{Stage: rally.Setting, ServeHeldByA: true}

		Convey("When the reason is over_set", func() {
			tr, err := rally.Advance(pos, rally.Set, false, rally.OverSet)

			Convey("Then possession flips and the opponent attacks", func() {
				So(err, ShouldBeNil)
				So(tr.Point, ShouldBeFalse)
				So(tr.Next, ShouldResemble, rally.Position{Stage: rally.Attacking, ServeHeldByA: false})
			})
		})

		Convey("When the reason is a fault", func() {
			tr, _ := rally.Advance(pos, rally.Set, false, rally.Fault)

			Convey("Then the rally ends for the non-faulting side", func() {
				So(tr.Point, ShouldBeTrue)
				So(tr.WinnerIsA, ShouldBeTrue)
			})
		})
	})

	Convey("Given an attack", t, func() {
		pos := rally.Position{Stage: rally.Attacking, ServeHeldByA: true, FlowReversed: true}

		Convey("When it is blocked", func() {
			tr, _ := rally.Advance(pos, rally.Attack, false, rally.Blocked)
			So(tr.Point, ShouldBeFalse)
			So(tr.Next, ShouldResemble, rally.Position{Stage: rally.Blocking, ServeHeldByA: true, FlowReversed: true})
		})

		Convey("When it is received", func() {
			tr, _ := rally.Advance(pos, rally.Attack, false, rally.Received)
			So(tr.Point, ShouldBeFalse)
			So(tr.Next, ShouldResemble, rally.Position{Stage: rally.Receiving, ServeHeldByA: false})
		})
	})

	Convey("Given a block", t, func() {
		pos := rally.Position{Stage: rally.Blocking, ServeHeldByA: true}

		Convey("When the defense covers it", func() {
			tr, _ := rally.Advance(pos, rally.Block, false, rally.BlockCover)
			So(tr.Next, ShouldResemble, rally.Position{Stage: rally.Receiving, ServeHeldByA: true})
		})

		Convey("When it is returned to the opponent", func() {
			tr, err := rally.ReturnBlock(pos)
			So(err, ShouldBeNil)
			So(tr.Next, ShouldResemble, rally.Position{Stage: rally.Attacking, ServeHeldByA: false})
		})
	})
}

func TestAdvance_Rejections(t *testing.T) {
	Convey("Given a rally at serving", t, func() {
		pos := rally.Start(true)

		Convey("When an attack is recorded", func() {
			_, err := rally.Advance(pos, rally.Attack, true, rally.NoReason)
			So(errors.Is(err, rally.ErrStageMismatch), ShouldBeTrue)
		})

		Convey("When a success carries a reason", func() {
			_, err := rally.Advance(pos, rally.Serve, true, rally.Net)
			So(errors.Is(err, rally.ErrInvalidFailureReason), ShouldBeTrue)
		})

		Convey("When a serve fails with a set-only reason", func() {
			_, err := rally.Advance(pos, rally.Serve, false, rally.OverSet)
			So(errors.Is(err, rally.ErrInvalidFailureReason), ShouldBeTrue)
		})

		Convey("When the play type is unknown", func() {
			_, err := rally.Advance(pos, rally.PlayType("bicycle"), true, rally.NoReason)
			So(errors.Is(err, rally.ErrUnknownPlayType), ShouldBeTrue)
		})

		Convey("When an explicit operation targets the wrong stage", func() {
			_, err1 := rally.Intercept(pos)
			_, err2 := rally.KeepSetAlive(pos)
			_, err3 := rally.ContainBlock(pos)
			_, err4 := rally.ReturnBlock(pos)
			So(errors.Is(err1, rally.ErrStageMismatch), ShouldBeTrue)
			So(errors.Is(err2, rally.ErrStageMismatch), ShouldBeTrue)
			So(errors.Is(err3, rally.ErrStageMismatch), ShouldBeTrue)
			So(errors.Is(err4, rally.ErrStageMismatch), ShouldBeTrue)
		})
	})

	Convey("Given a finished set", t, func() {
		pos := rally.Position{Stage: rally.GameEnd}

		Convey("Then nothing is accepted", func() {
			_, err := rally.Advance(pos, rally.Serve, true, rally.NoReason)
			So(errors.Is(err, rally.ErrStageMismatch), ShouldBeTrue)
			_, err = rally.SwitchFlow(pos)
			So(errors.Is(err, rally.ErrStageMismatch), ShouldBeTrue)
		})
	})
}

func TestSwitchFlow(t *testing.T) {
	Convey("Given a rally at setting", t, func() {
		pos := rally.Position{Stage: rally.Setting, ServeHeldByA: true}

		Convey("When the operator switches the flow twice", func() {
			tr, err := rally.SwitchFlow(pos)
			So(err, ShouldBeNil)
			So(tr.Next, ShouldResemble, rally.Position{Stage: rally.Receiving, ServeHeldByA: true, FlowReversed: true})
			tr, _ = rally.SwitchFlow(tr.Next)

			Convey("Then the flag returns to default and serve never moves", func() {
				So(tr.Next.FlowReversed, ShouldBeFalse)
				So(tr.Next.ServeHeldByA, ShouldBeTrue)
			})
		})
	})
}

func TestParsing(t *testing.T) {
	Convey("Given wire values", t, func() {
		Convey("Then known play types parse case-insensitively", func() {
			p, err := rally.ParsePlayType(" SunbackSpike ")
			So(err, ShouldBeNil)
			So(p, ShouldEqual, rally.SunbackSpike)
			So(p.IsAttack(), ShouldBeTrue)
		})

		Convey("Then an empty reason means none", func() {
			r, err := rally.ParseFailureReason("")
			So(err, ShouldBeNil)
			So(r, ShouldEqual, rally.NoReason)
		})

		Convey("Then unknown reasons are rejected", func() {
			_, err := rally.ParseFailureReason("lucky")
			So(errors.Is(err, rally.ErrUnknownFailureReason), ShouldBeTrue)
		})

		Convey("Then stages round-trip through text", func() {
			var st rally.Stage
			So(st.UnmarshalText([]byte("blocking")), ShouldBeNil)
			So(st, ShouldEqual, rally.Blocking)
			b, _ := rally.GameEnd.MarshalText()
			So(string(b), ShouldEqual, "game_end")
		})
	})
}

func TestActingSide(t *testing.T) {
	Convey("Given every serve holder and flow direction", t, func() {
		for _, serveA := range []bool{true, false} {
			for _, reversed := range []bool{true, false} {
				Convey(fmt.Sprintf("serveA=%v reversed=%v", serveA, reversed), func() {
					So(rally.Position{Stage: rally.Serving, ServeHeldByA: serveA}.ActingSideIsA(), ShouldEqual, serveA)

					Convey("Then a successful attack scores for the attacking side", func() {
						pos := rally.Position{Stage: rally.Attacking, ServeHeldByA: serveA, FlowReversed: reversed}
						tr, err := rally.Advance(pos, rally.Attack, true, rally.NoReason)
						So(err, ShouldBeNil)
						So(tr.WinnerIsA, ShouldEqual, pos.ActingSideIsA())
					})

					Convey("Then a successful block scores for the blocking side", func() {
						pos := rally.Position{Stage: rally.Blocking, ServeHeldByA: serveA, FlowReversed: reversed}
						tr, err := rally.Advance(pos, rally.Block, true, rally.NoReason)
						So(err, ShouldBeNil)
						So(tr.WinnerIsA, ShouldEqual, pos.ActingSideIsA())
					})

					Convey("Then a failed receive or set scores for the other side", func() {
						for _, st := range []rally.Stage{rally.Receiving, rally.Setting} {
							pos := rally.Position{Stage: st, ServeHeldByA: serveA, FlowReversed: reversed}
							pt := rally.Receive
							if st == rally.Setting {
								pt = rally.Set
							}
							tr, err := rally.Advance(pos, pt, false, rally.Out)
							So(err, ShouldBeNil)
							So(tr.WinnerIsA, ShouldEqual, !pos.ActingSideIsA())
						}
					})
				})
			}
		}
	})
}
