package types_test

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
	"github.com/okian/takraw/internal/domain/types"
)

func TestFromPlayer(t *testing.T) {
	Convey("Given a player with mixed serve results", t, func() {
		p := model.NewPlayer("p1", "Aziz", 7, model.Tekong, "t1",
			model.StatRecord{ID: "s1", PlayType: rally.Serve, MatchID: "m1", Success: true},
			model.StatRecord{ID: "s2", PlayType: rally.Serve, MatchID: "m1", FailureReason: rally.Net},
			model.StatRecord{ID: "s3", PlayType: rally.Receive, MatchID: "m1", Success: true},
		)

		v := types.FromPlayer(p)

		Convey("Then stats keep their order and rates cover attempted play types only", func() {
			So(len(v.Stats), ShouldEqual, 3)
			So(v.Stats[1].FailureReason, ShouldEqual, rally.Net)
			So(v.SuccessRates, ShouldResemble, map[rally.PlayType]float64{rally.Serve: 50, rally.Receive: 100})
		})

		Convey("Then a player without stats encodes an empty list", func() {
			b, err := json.Marshal(types.FromPlayer(model.NewPlayer("p2", "New", 1, model.Feeder, "t1")))
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"stats":[]`)
		})
	})
}

func TestStateJSON(t *testing.T) {
	Convey("Given a finished set state", t, func() {
		st := types.FromState(model.MatchScoreState{ScoreA: 15, ScoreB: 10, RallyStage: rally.GameEnd, IsSetFinished: true})

		Convey("Then the stage encodes by name and decodes back", func() {
			b, err := json.Marshal(st)
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"rally_stage":"game_end"`)

			var back types.State
			So(json.Unmarshal(b, &back), ShouldBeNil)
			So(back, ShouldResemble, st)
		})
	})
}
