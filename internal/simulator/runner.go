package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	service "github.com/okian/takraw/internal/app"
	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/types"
	"github.com/okian/takraw/pkg/logger"
)

// botSides names the two bot teams and their colours.
var botSides = [2]struct{ name, color string }{
	{"Harimau", "red"},
	{"Garuda", "blue"},
}

// botPositions is the shirt order of a bot roster.
var botPositions = []model.Position{model.Tekong, model.Feeder, model.Striker}

// Summary describes one simulated match.
type Summary struct {
	Seed     uint64
	MatchID  string
	Steps    int
	ScoreA   int
	ScoreB   int
	Winner   model.Side
	Message  string
	Finished bool
	Events   int
}

// Runner plays bot matches through a Driver.
type Runner struct {
	driver Driver
	cfg    Config
	log    logger.Logger
}

// NewRunner creates a runner. A nil log is replaced with a no-op logger.
func NewRunner(driver Driver, cfg Config, log logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{driver: driver, cfg: cfg, log: log}
}

// Run plays cfg.Matches matches on cfg.Workers goroutines and returns their
// summaries in seed order. The first failure cancels the remaining matches.
func (r *Runner) Run(ctx context.Context) ([]Summary, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	r.log.Info(ctx, "starting simulation",
		logger.Int("matches", r.cfg.Matches),
		logger.Int("workers", r.cfg.Workers),
		logger.Any("seed", r.cfg.Seed))

	var (
		finished int64
		steps    int64
		wg       sync.WaitGroup
		errMu    sync.Mutex
		errs     []error
	)
	summaries := make([]Summary, r.cfg.Matches)
	jobs := make(chan int, r.cfg.Workers*2)

	for w := 0; w < r.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				sum, err := r.Simulate(ctx, r.cfg.Seed+uint64(i)) //nolint:gosec // i is non-negative
				if err != nil {
					errMu.Lock()
					errs = append(errs, err)
					errMu.Unlock()
					cancel()
					continue
				}
				summaries[i] = sum
				atomic.AddInt64(&steps, int64(sum.Steps))
				if sum.Finished {
					atomic.AddInt64(&finished, 1)
				}
			}
		}()
	}

	for i := 0; i < r.cfg.Matches; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	r.log.Info(ctx, "simulation complete",
		logger.Int("matches", r.cfg.Matches),
		logger.Int("finished", int(atomic.LoadInt64(&finished))),
		logger.Int("steps", int(atomic.LoadInt64(&steps))),
		logger.String("duration", time.Since(start).String()))
	return summaries, nil
}

// Simulate plays one bot match to the end of the set or to cfg.MaxSteps.
func (r *Runner) Simulate(ctx context.Context, seed uint64) (Summary, error) {
	roster, teamIDs, err := r.setup(ctx, seed)
	if err != nil {
		return Summary{}, err
	}
	view, err := r.driver.CreateMatch(ctx, service.MatchRequest{
		TeamAID:          teamIDs[0],
		TeamBID:          teamIDs[1],
		TeamAServesFirst: seed%2 == 0,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("create match: %w", err)
	}

	matchID := view.Match.ID
	gen := NewGenerator(seed, roster)
	st := view.State
	sum := Summary{Seed: seed, MatchID: matchID}
	for sum.Steps < r.cfg.MaxSteps {
		cmd, ok := gen.Next(st)
		if !ok {
			break
		}
		cmd.CommandID = fmt.Sprintf("sim-%d-%d", seed, sum.Steps)
		res, err := r.driver.Apply(ctx, matchID, cmd)
		if err != nil {
			return sum, fmt.Errorf("match %s step %d (%s %s): %w", matchID, sum.Steps, cmd.Op, cmd.PlayType, err)
		}
		st = res.State
		sum.Steps++
	}

	events, err := r.driver.Events(ctx, matchID)
	if err != nil {
		return sum, fmt.Errorf("events: %w", err)
	}
	sum.ScoreA, sum.ScoreB = st.ScoreA, st.ScoreB
	sum.Message = st.OutcomeMessage
	sum.Finished = st.IsSetFinished
	sum.Events = len(events)
	sum.Winner = winner(st)

	r.log.Debug(ctx, "match simulated",
		logger.String("match_id", matchID),
		logger.Int("steps", sum.Steps),
		logger.Int("score_a", sum.ScoreA),
		logger.Int("score_b", sum.ScoreB),
		logger.String("message", sum.Message))
	return sum, nil
}

// setup registers the two bot teams of a match.
func (r *Runner) setup(ctx context.Context, seed uint64) (Roster, [2]string, error) {
	roster := Roster{A: map[model.Position]string{}, B: map[model.Position]string{}}
	var ids [2]string
	for i, side := range botSides {
		team, err := r.driver.CreateTeam(ctx, fmt.Sprintf("%s %d", side.name, seed), true, side.color)
		if err != nil {
			return roster, ids, fmt.Errorf("create team: %w", err)
		}
		ids[i] = team.ID
		slots := roster.A
		if i == 1 {
			slots = roster.B
		}
		for n, pos := range botPositions {
			p, err := r.driver.AddPlayer(ctx, team.ID, fmt.Sprintf("%s %s", side.name, pos), n+1, pos)
			if err != nil {
				return roster, ids, fmt.Errorf("add player: %w", err)
			}
			slots[pos] = p.ID
		}
	}
	return roster, ids, nil
}

func winner(st types.State) model.Side { //nolint:gocritic // hugeParam
	switch {
	case !st.IsSetFinished:
		return model.SideNone
	case st.ScoreA > st.ScoreB:
		return model.SideA
	default:
		return model.SideB
	}
}
