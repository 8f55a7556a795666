package simulator_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/takraw/internal/adapters/http/api"
	service "github.com/okian/takraw/internal/app"
	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
	"github.com/okian/takraw/internal/domain/types"
	"github.com/okian/takraw/internal/simulator"
)

const scenarioPath = "testdata/scenarios/full_rally.yaml"

func startService(t *testing.T) *service.Service {
	t.Helper()
	ctx := context.Background()
	svc := service.New(service.WithWorkerCount(2))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop(ctx) })
	return svc
}

func TestReplayGolden(t *testing.T) {
	sc, err := simulator.LoadScenario(scenarioPath)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	res, err := simulator.Replay(context.Background(), simulator.NewLocalDriver(startService(t)), sc)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	var buf bytes.Buffer
	if err := simulator.RenderReplay(&buf, res); err != nil {
		t.Fatalf("render: %v", err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, buf.Bytes())
}

func TestReplayOverHTTP(t *testing.T) {
	Convey("Given the API served over HTTP", t, func() {
		svc := startService(t)
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		Reset(srv.Close)
		driver := simulator.NewHTTPDriver(srv.URL+"/", simulator.DefaultTimeout)
		ctx := context.Background()

		Convey("Then a replay renders the same timeline as in process", func() {
			sc, err := simulator.LoadScenario(scenarioPath)
			So(err, ShouldBeNil)
			res, err := simulator.Replay(ctx, driver, sc)
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			So(simulator.RenderReplay(&buf, res), ShouldBeNil)
			want, err := os.ReadFile(filepath.Join("testdata", "golden", sc.Name+".golden"))
			So(err, ShouldBeNil)
			So(buf.String(), ShouldEqual, string(want))
		})

		Convey("Then API errors carry their code", func() {
			_, err := driver.Apply(ctx, "ghost", simulator.Command{Op: simulator.OpUndo})
			var apiErr *simulator.APIError
			So(errors.As(err, &apiErr), ShouldBeTrue)
			So(apiErr.Status, ShouldEqual, http.StatusNotFound)
			So(simulator.ErrorCode(err), ShouldEqual, "not_found")
		})

		Convey("Then a bot match plays to the end of the set", func() {
			cfg := simulator.DefaultConfig()
			cfg.Seed = 7
			sums, err := simulator.NewRunner(driver, cfg, nil).Run(ctx)
			So(err, ShouldBeNil)
			So(sums, ShouldHaveLength, 1)
			So(sums[0].Finished, ShouldBeTrue)
		})
	})
}

func TestRunner(t *testing.T) {
	Convey("Given an in-process service", t, func() {
		svc := startService(t)
		driver := simulator.NewLocalDriver(svc)
		ctx := context.Background()

		Convey("When several bot matches run concurrently", func() {
			cfg := simulator.DefaultConfig()
			cfg.Matches, cfg.Workers = 4, 2
			sums, err := simulator.NewRunner(driver, cfg, nil).Run(ctx)
			So(err, ShouldBeNil)
			So(sums, ShouldHaveLength, 4)

			Convey("Then every set finishes with a winner", func() {
				for i, s := range sums {
					So(s.Seed, ShouldEqual, cfg.Seed+uint64(i))
					So(s.Finished, ShouldBeTrue)
					So(s.Winner, ShouldNotEqual, model.SideNone)
					So(max(s.ScoreA, s.ScoreB), ShouldBeGreaterThanOrEqualTo, 15)
					So(s.Events, ShouldBeGreaterThan, s.ScoreA+s.ScoreB)
				}
			})

			Convey("Then the summaries render one line per match", func() {
				var buf bytes.Buffer
				So(simulator.RenderSummaries(&buf, sums), ShouldBeNil)
				So(bytes.Count(buf.Bytes(), []byte("\n")), ShouldEqual, 5)
			})
		})

		Convey("Then the same seed replays the same match", func() {
			cfg := simulator.DefaultConfig()
			first, err := simulator.NewRunner(driver, cfg, nil).Simulate(ctx, 42)
			So(err, ShouldBeNil)
			second, err := simulator.NewRunner(simulator.NewLocalDriver(startService(t)), cfg, nil).Simulate(ctx, 42)
			So(err, ShouldBeNil)
			So(second.Steps, ShouldEqual, first.Steps)
			So(second.ScoreA, ShouldEqual, first.ScoreA)
			So(second.ScoreB, ShouldEqual, first.ScoreB)
		})

		Convey("Then a step limit stops an unfinished match", func() {
			cfg := simulator.DefaultConfig()
			cfg.MaxSteps = 3
			sum, err := simulator.NewRunner(driver, cfg, nil).Simulate(ctx, 3)
			So(err, ShouldBeNil)
			So(sum.Steps, ShouldEqual, 3)
			So(sum.Finished, ShouldBeFalse)
			So(sum.Winner, ShouldEqual, model.SideNone)
		})

		Convey("Then invalid limits are rejected", func() {
			cfg := simulator.DefaultConfig()
			cfg.Workers = 0
			_, err := simulator.NewRunner(driver, cfg, nil).Run(ctx)
			So(errors.Is(err, simulator.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestGenerator(t *testing.T) {
	Convey("Given a generator with a full roster", t, func() {
		roster := simulator.Roster{
			A: map[model.Position]string{model.Tekong: "a1", model.Feeder: "a2", model.Striker: "a3"},
			B: map[model.Position]string{model.Tekong: "b1", model.Feeder: "b2", model.Striker: "b3"},
		}
		gen := simulator.NewGenerator(1, roster)

		Convey("Then the serving side's tekong always serves", func() {
			for i := 0; i < 50; i++ {
				cmd, ok := gen.Next(types.State{RallyStage: rally.Serving, ServeHeldByA: false})
				So(ok, ShouldBeTrue)
				So(cmd.Op, ShouldEqual, simulator.OpPlay)
				So(cmd.PlayerID, ShouldEqual, "b1")
				st, _ := cmd.PlayType.Stage()
				So(st, ShouldEqual, rally.Serving)
			}
		})

		Convey("Then every generated play is legal for its stage", func() {
			stages := []rally.Stage{rally.Receiving, rally.Setting, rally.Attacking, rally.Blocking}
			for i := 0; i < 400; i++ {
				stage := stages[i%len(stages)]
				cmd, ok := gen.Next(types.State{RallyStage: stage, ServeHeldByA: i%2 == 0})
				So(ok, ShouldBeTrue)
				if cmd.Op == simulator.OpSwitch {
					continue
				}
				So(cmd.PlayerID, ShouldNotBeEmpty)
				st, known := cmd.PlayType.Stage()
				So(known, ShouldBeTrue)
				So(st, ShouldEqual, stage)
				if cmd.Op == simulator.OpPlay && !cmd.Success {
					So(rally.ReasonAllowed(stage, cmd.Reason), ShouldBeTrue)
				}
			}
		})

		Convey("Then a finished set yields nothing", func() {
			_, ok := gen.Next(types.State{RallyStage: rally.GameEnd, IsSetFinished: true})
			So(ok, ShouldBeFalse)
		})
	})
}

func TestScenarioValidation(t *testing.T) {
	Convey("Given scenario documents", t, func() {
		Convey("Then a missing name is rejected", func() {
			_, err := simulator.ParseScenario([]byte("team_a: X\nteam_b: Y\nsteps: [{op: undo}]\n"))
			So(errors.Is(err, simulator.ErrInvalidScenario), ShouldBeTrue)
		})

		Convey("Then unknown ops are rejected", func() {
			_, err := simulator.ParseScenario([]byte("name: n\nteam_a: X\nteam_b: Y\nsteps: [{op: dance}]\n"))
			So(errors.Is(err, simulator.ErrUnknownOp), ShouldBeTrue)
		})

		Convey("Then bad player references are rejected", func() {
			_, err := simulator.ParseScenario([]byte("name: n\nteam_a: X\nteam_b: Y\nsteps: [{op: play, player: C.tekong}]\n"))
			So(errors.Is(err, simulator.ErrInvalidScenario), ShouldBeTrue)
			_, err = simulator.ParseScenario([]byte("name: n\nteam_a: X\nteam_b: Y\nsteps: [{op: play, player: A.libero}]\n"))
			So(errors.Is(err, simulator.ErrInvalidScenario), ShouldBeTrue)
		})

		Convey("Then malformed YAML is rejected", func() {
			_, err := simulator.ParseScenario([]byte("name: [unclosed"))
			So(errors.Is(err, simulator.ErrInvalidScenario), ShouldBeTrue)
		})

		Convey("When a step is accepted but expected to fail", func() {
			sc, err := simulator.ParseScenario([]byte(
				"name: n\nteam_a: X\nteam_b: Y\nteam_a_serves_first: true\n" +
					"steps:\n  - {op: play, player: A.tekong, play: serve, success: true, expect: stage_mismatch}\n"))
			So(err, ShouldBeNil)
			svc := service.New(service.WithWorkerCount(1))
			So(svc.Start(context.Background()), ShouldBeNil)
			Reset(func() { _ = svc.Stop(context.Background()) })

			_, err = simulator.Replay(context.Background(), simulator.NewLocalDriver(svc), sc)
			Convey("Then the replay fails", func() {
				So(errors.Is(err, simulator.ErrUnexpectedResult), ShouldBeTrue)
			})
		})
	})
}
