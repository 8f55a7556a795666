package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
)

func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"sqlite": func() Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "takraw.db"))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	for name, factory := range storeFactories(t) {
		Convey("Given a "+name+" store", t, func() {
			ctx := context.Background()
			s := factory()
			Reset(func() { _ = s.Close() })

			So(s.SaveTeam(ctx, model.Team{ID: "t1", Name: "Harimau", Color: "#ff0000"}), ShouldBeNil)
			So(s.SaveTeam(ctx, model.Team{ID: "t2", Name: "Bots", IsBot: true}), ShouldBeNil)

			Convey("Teams round-trip and list in insertion order", func() {
				got, err := s.GetTeam(ctx, "t2")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, model.Team{ID: "t2", Name: "Bots", IsBot: true})

				So(s.SaveTeam(ctx, model.Team{ID: "t1", Name: "Harimau Muda"}), ShouldBeNil)
				teams, err := s.ListTeams(ctx)
				So(err, ShouldBeNil)
				So(len(teams), ShouldEqual, 2)
				So(teams[0].Name, ShouldEqual, "Harimau Muda")
				So(teams[1].ID, ShouldEqual, "t2")
			})

			Convey("Unknown ids report ErrNotFound", func() {
				_, err := s.GetTeam(ctx, "nope")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				_, err = s.GetPlayer(ctx, "nope")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				_, err = s.GetMatch(ctx, "nope")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})

			Convey("Players keep their stats in order and updates replace them", func() {
				p := model.NewPlayer("p1", "Aziz", 7, model.Tekong, "t1")
				p.AddStat(model.StatRecord{ID: "s1", PlayType: rally.Serve, MatchID: "m1", Success: true})
				p.AddStat(model.StatRecord{ID: "s2", PlayType: rally.Serve, MatchID: "m1", FailureReason: rally.Net})
				So(s.SavePlayer(ctx, p), ShouldBeNil)

				got, err := s.GetPlayer(ctx, "p1")
				So(err, ShouldBeNil)
				So(got.Name, ShouldEqual, "Aziz")
				So(got.Position, ShouldEqual, model.Tekong)
				So(got.Stats(), ShouldResemble, p.Stats())
				So(got.SuccessRate(rally.Serve), ShouldEqual, 50)

				So(p.RemoveStat("s2"), ShouldBeTrue)
				So(s.SavePlayer(ctx, p), ShouldBeNil)
				got, err = s.GetPlayer(ctx, "p1")
				So(err, ShouldBeNil)
				So(len(got.Stats()), ShouldEqual, 1)

				Convey("The returned player is detached from the store", func() {
					got.AddStat(model.StatRecord{ID: "s9", PlayType: rally.Receive})
					again, err := s.GetPlayer(ctx, "p1")
					So(err, ShouldBeNil)
					So(len(again.Stats()), ShouldEqual, 1)
				})
			})

			Convey("Players list by team ordered by number", func() {
				So(s.SavePlayer(ctx, model.NewPlayer("p3", "Striker", 10, model.Striker, "t1")), ShouldBeNil)
				So(s.SavePlayer(ctx, model.NewPlayer("p2", "Feeder", 4, model.Feeder, "t1")), ShouldBeNil)
				So(s.SavePlayer(ctx, model.NewPlayer("b1", "Bot", 1, model.Tekong, "t2")), ShouldBeNil)

				players, err := s.ListPlayers(ctx, "t1")
				So(err, ShouldBeNil)
				So(len(players), ShouldEqual, 2)
				So(players[0].ID, ShouldEqual, "p2")
				So(players[1].ID, ShouldEqual, "p3")
			})

			Convey("A player on an unknown team is rejected", func() {
				err := s.SavePlayer(ctx, model.NewPlayer("px", "Ghost", 1, model.Feeder, "missing"))
				So(errors.Is(err, ErrInvalidEntity), ShouldBeTrue)
			})

			Convey("Matches round-trip and score updates persist", func() {
				date := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
				m := model.Match{ID: "m1", TeamAID: "t1", TeamBID: "t1", TeamAServesFirst: true,
					Date: date, TeamASuffix: "(1)", TeamBSuffix: "(2)"}
				So(s.SaveMatch(ctx, m), ShouldBeNil)

				m.ScoreA, m.ScoreB = 15, 12
				So(s.SaveMatch(ctx, m), ShouldBeNil)

				got, err := s.GetMatch(ctx, "m1")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, m)
			})

			Convey("Empty ids and nil players are invalid", func() {
				So(errors.Is(s.SaveTeam(ctx, model.Team{Name: "x"}), ErrInvalidEntity), ShouldBeTrue)
				So(errors.Is(s.SaveMatch(ctx, model.Match{}), ErrInvalidEntity), ShouldBeTrue)
				So(errors.Is(s.SavePlayer(ctx, nil), ErrInvalidEntity), ShouldBeTrue)
			})

			Convey("A cancelled context is refused", func() {
				cctx, cancel := context.WithCancel(ctx)
				cancel()
				So(errors.Is(s.SaveTeam(cctx, model.Team{ID: "t3"}), context.Canceled), ShouldBeTrue)
				_, err := s.ListTeams(cctx)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	}
}

func TestOpenSQLite(t *testing.T) {
	Convey("Given a database path", t, func() {
		path := filepath.Join(t.TempDir(), "reopen.db")

		Convey("Reopening keeps data and does not reapply migrations", func() {
			s, err := OpenSQLite(path, WithBusyTimeout(time.Second), WithMaxOpenConns(2))
			So(err, ShouldBeNil)
			So(s.SaveTeam(context.Background(), model.Team{ID: "t1", Name: "Kept"}), ShouldBeNil)
			So(s.Close(), ShouldBeNil)

			s, err = OpenSQLite(path)
			So(err, ShouldBeNil)
			defer s.Close()
			team, err := s.GetTeam(context.Background(), "t1")
			So(err, ShouldBeNil)
			So(team.Name, ShouldEqual, "Kept")
		})

		Convey("An empty path is rejected", func() {
			_, err := OpenSQLite("  ")
			So(errors.Is(err, ErrNotConfigured), ShouldBeTrue)
		})
	})
}
