package simulator

import (
	"fmt"
	"io"

	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/types"
)

// errWriter keeps the first write error so rendering reads top to bottom.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	var n int
	n, e.err = e.w.Write(p)
	return n, e.err
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// RenderReplay writes the step log and the timeline of a replayed scenario.
// Ids and timestamps are left out so the output is stable across runs.
func RenderReplay(w io.Writer, res *ReplayResult) error {
	out := &errWriter{w: w}
	out.printf("scenario %s\n", res.Name)

	out.printf("\nsteps\n")
	for i, s := range res.Steps {
		switch {
		case s.Code != "":
			out.printf("%3d  %-15s  rejected %s\n", i+1, s.Op, s.Code)
		case s.Duplicate:
			out.printf("%3d  %-15s  duplicate\n", i+1, s.Op)
		default:
			out.printf("%3d  %-15s  %-9s  %d-%d\n", i+1, s.Op, s.State.RallyStage, s.State.ScoreA, s.State.ScoreB)
		}
	}

	out.printf("\n")
	if err := RenderTimeline(out, res.Events, res.State); err != nil {
		return err
	}
	return out.err
}

// RenderTimeline writes one line per ledger event, oldest first, followed by
// the final state.
func RenderTimeline(w io.Writer, events []types.Event, st types.State) error { //nolint:gocritic // hugeParam
	out, ok := w.(*errWriter)
	if !ok {
		out = &errWriter{w: w}
	}
	out.printf("timeline\n")
	for i, e := range events {
		result := "miss"
		if e.Success {
			result = "ok"
		}
		mark := ""
		if e.ScoringTeam == model.SideA || e.ScoringTeam == model.SideB {
			mark = "  point " + string(e.ScoringTeam)
		}
		score := fmt.Sprintf("%d-%d", e.ScoreA, e.ScoreB)
		out.printf("%3d  %5s  serve=%s  %-20s  %-13s  %s%s\n", i, score, e.ServeHolder, e.PlayerName, e.PlayType, result, mark)
	}

	holder := "B"
	if st.ServeHeldByA {
		holder = "A"
	}
	out.printf("\nfinal %d-%d stage=%s serve=%s reversed=%t\n", st.ScoreA, st.ScoreB, st.RallyStage, holder, st.RallyFlowReversed)
	if st.OutcomeMessage != "" {
		out.printf("%s\n", st.OutcomeMessage)
	}
	return out.err
}

// RenderSummaries writes one line per simulated match.
func RenderSummaries(w io.Writer, sums []Summary) error {
	out := &errWriter{w: w}
	out.printf("%-6s  %-7s  %-5s  %-6s  %s\n", "seed", "score", "steps", "winner", "message")
	for _, s := range sums {
		out.printf("%-6d  %-7s  %-5d  %-6s  %s\n", s.Seed, fmt.Sprintf("%d-%d", s.ScoreA, s.ScoreB), s.Steps, s.Winner, s.Message)
	}
	return out.err
}
