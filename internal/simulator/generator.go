package simulator

import (
	"math/rand/v2"

	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
	"github.com/okian/takraw/internal/domain/types"
)

// Outcome weights of the bot players. Each stage draws one number in [0,1)
// and walks its thresholds in order.
const (
	switchChance = 0.02

	serveFeintChance = 0.15
	serveSuccess     = 0.88

	receiveSuccess = 0.80

	setSuccess   = 0.80
	setKeptAlive = 0.88

	attackSuccess     = 0.45
	attackBlocked     = 0.60
	attackIntercepted = 0.72

	blockSuccess   = 0.30
	blockContained = 0.50
	blockReturned  = 0.65
)

var (
	attackPlays   = []rally.PlayType{rally.Attack, rally.AttackFeint, rally.Heading, rally.RollSpike, rally.SunbackSpike}
	commonFaults  = []rally.FailureReason{rally.Fault, rally.Out, rally.Net}
	keepAlive     = []rally.FailureReason{rally.OverSet, rally.ChanceBall}
	blockFailures = []rally.FailureReason{rally.Over, rally.ChanceBall, rally.Fault, rally.Out, rally.Net}
	receivers     = []model.Position{model.Tekong, model.Striker}
)

// Roster holds the player ids of both sides by position.
type Roster struct {
	A map[model.Position]string
	B map[model.Position]string
}

// Player returns the id of the player at pos on side A or B.
func (r Roster) Player(sideA bool, pos model.Position) string {
	if sideA {
		return r.A[pos]
	}
	return r.B[pos]
}

// Generator picks a legal command for the current rally stage.
type Generator struct {
	rng    *rand.Rand
	roster Roster
}

// NewGenerator creates a generator; the same seed yields the same commands
// for the same sequence of states.
func NewGenerator(seed uint64, roster Roster) *Generator {
	return &Generator{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // simulation only
		roster: roster,
	}
}

// Next returns the command the acting side makes in st. It reports false
// once the set is finished.
func (g *Generator) Next(st types.State) (Command, bool) { //nolint:gocritic // hugeParam
	if st.IsSetFinished || st.RallyStage == rally.GameEnd {
		return Command{}, false
	}
	pos := rally.Position{Stage: st.RallyStage, ServeHeldByA: st.ServeHeldByA, FlowReversed: st.RallyFlowReversed}
	sideA := pos.ActingSideIsA()

	if pos.Stage != rally.Serving && g.rng.Float64() < switchChance {
		return Command{Op: OpSwitch}, true
	}

	roll := g.rng.Float64()
	switch pos.Stage {
	case rally.Serving:
		pt := rally.Serve
		if g.rng.Float64() < serveFeintChance {
			pt = rally.ServeFeint
		}
		return g.play(sideA, model.Tekong, pt, roll < serveSuccess, commonFaults), true

	case rally.Receiving:
		who := receivers[g.rng.IntN(len(receivers))]
		return g.play(sideA, who, rally.Receive, roll < receiveSuccess, commonFaults), true

	case rally.Setting:
		feeder := g.roster.Player(sideA, model.Feeder)
		switch {
		case roll < setSuccess:
			return Command{Op: OpPlay, PlayerID: feeder, PlayType: rally.Set, Success: true}, true
		case roll < setKeptAlive:
			return Command{Op: OpKeepAlive, PlayerID: feeder, PlayType: rally.Set, Reason: g.pick(keepAlive)}, true
		default:
			return g.play(sideA, model.Feeder, rally.Set, false, commonFaults), true
		}

	case rally.Attacking:
		striker := g.roster.Player(sideA, model.Striker)
		pt := attackPlays[g.rng.IntN(len(attackPlays))]
		switch {
		case roll < attackSuccess:
			return Command{Op: OpPlay, PlayerID: striker, PlayType: pt, Success: true}, true
		case roll < attackBlocked:
			return Command{Op: OpPlay, PlayerID: striker, PlayType: pt, Reason: rally.Blocked}, true
		case roll < attackIntercepted:
			return Command{Op: OpIntercept, PlayerID: striker, PlayType: pt}, true
		default:
			return g.play(sideA, model.Striker, pt, false, commonFaults), true
		}

	default: // rally.Blocking
		blocker := g.roster.Player(sideA, model.Striker)
		switch {
		case roll < blockSuccess:
			return Command{Op: OpPlay, PlayerID: blocker, PlayType: rally.Block, Success: true}, true
		case roll < blockContained:
			return Command{Op: OpBlockContained, PlayerID: blocker, PlayType: rally.Block}, true
		case roll < blockReturned:
			return Command{Op: OpBlockReturned, PlayerID: blocker, PlayType: rally.Block}, true
		default:
			return g.play(sideA, model.Striker, rally.Block, false, blockFailures), true
		}
	}
}

// play builds a RecordPlay command; failed plays draw a reason from reasons.
func (g *Generator) play(sideA bool, pos model.Position, pt rally.PlayType, success bool, reasons []rally.FailureReason) Command {
	cmd := Command{Op: OpPlay, PlayerID: g.roster.Player(sideA, pos), PlayType: pt, Success: success}
	if !success {
		cmd.Reason = g.pick(reasons)
	}
	return cmd
}

func (g *Generator) pick(reasons []rally.FailureReason) rally.FailureReason {
	return reasons[g.rng.IntN(len(reasons))]
}
