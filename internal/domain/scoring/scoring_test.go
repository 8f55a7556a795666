package scoring_test

import (
	"testing"

	scoring "github.com/okian/takraw/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRules_Evaluate(t *testing.T) {
	Convey("Given the standard rules", t, func() {
		rules := scoring.New()

		Convey("When the score is early in the set", func() {
			out := rules.Evaluate(3, 7)

			Convey("Then there is no message", func() {
				So(out, ShouldResemble, scoring.Outcome{})
			})
		})

		Convey("When A reaches 15 with B under 14", func() {
			out := rules.Evaluate(15, 13)

			Convey("Then A wins the set", func() {
				So(out.Message, ShouldEqual, "Team A WINS!")
				So(out.Finished, ShouldBeTrue)
				So(out.Winner, ShouldEqual, scoring.TeamA)
			})
		})

		Convey("When B reaches 15 with A under 14", func() {
			out := rules.Evaluate(2, 15)
			So(out.Message, ShouldEqual, "Team B WINS!")
			So(out.Winner, ShouldEqual, scoring.TeamB)
		})

		Convey("When A reaches the cap", func() {
			Convey("Then A wins regardless of B", func() {
				So(rules.Evaluate(17, 16).Message, ShouldEqual, "Team A WINS!")
				So(rules.Evaluate(17, 16).Finished, ShouldBeTrue)
			})
		})

		Convey("When B reaches the cap", func() {
			So(rules.Evaluate(16, 17).Message, ShouldEqual, "Team B WINS!")
		})

		Convey("When one side is at 14 and the other is under", func() {
			So(rules.Evaluate(14, 10).Message, ShouldEqual, "Team A Set Point!")
			So(rules.Evaluate(13, 14).Message, ShouldEqual, "Team B Set Point!")
			So(rules.Evaluate(14, 10).Finished, ShouldBeFalse)
		})

		Convey("When both sides are level past 14", func() {
			Convey("Then it is deuce", func() {
				So(rules.Evaluate(14, 14).Message, ShouldEqual, "Deuce! First to 17 wins!")
				So(rules.Evaluate(15, 15).Message, ShouldEqual, "Deuce! First to 17 wins!")
				So(rules.Evaluate(16, 16).Message, ShouldEqual, "Deuce! First to 17 wins!")
			})
		})

		Convey("When one side reaches 16 in extended play", func() {
			So(rules.Evaluate(16, 15).Message, ShouldEqual, "Team A Set Point!")
			So(rules.Evaluate(15, 16).Message, ShouldEqual, "Team B Set Point!")
		})

		Convey("When the score is 15-14", func() {
			out := rules.Evaluate(15, 14)

			Convey("Then it still reports deuce and the set continues", func() {
				So(out.Message, ShouldEqual, "Deuce! First to 17 wins!")
				So(out.Finished, ShouldBeFalse)
			})
		})

		Convey("When the same score is evaluated twice", func() {
			Convey("Then the results are identical for every score", func() {
				for a := 0; a <= 17; a++ {
					for b := 0; b <= 17; b++ {
						So(rules.Evaluate(a, b), ShouldResemble, rules.Evaluate(a, b))
					}
				}
			})
		})
	})

	Convey("Given custom rules", t, func() {
		rules := scoring.New(scoring.WithWinPoints(21), scoring.WithCapPoints(25))

		Convey("Then the thresholds move with the configuration", func() {
			So(rules.WinPoints(), ShouldEqual, 21)
			So(rules.CapPoints(), ShouldEqual, 25)
			So(rules.Evaluate(21, 19).Finished, ShouldBeTrue)
			So(rules.Evaluate(20, 3).Message, ShouldEqual, "Team A Set Point!")
			So(rules.Evaluate(20, 20).Message, ShouldEqual, "Deuce! First to 25 wins!")
			So(rules.Evaluate(24, 22).Message, ShouldEqual, "Team A Set Point!")
		})
	})

	Convey("Given a cap below the win line", t, func() {
		rules := scoring.New(scoring.WithCapPoints(10))

		Convey("Then the cap is raised above the win line", func() {
			So(rules.CapPoints(), ShouldEqual, 17)
		})
	})
}
