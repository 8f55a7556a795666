package service

import (
	"context"
	"fmt"

	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
)

// matchRoster answers the engine's default-server question for one match.
type matchRoster struct {
	svc          *Service
	teamA, teamB string
}

// Server returns the serving side's tekong.
func (r matchRoster) Server(_ context.Context, teamA bool) *model.Player {
	return r.svc.pick(r.team(teamA), model.Tekong)
}

func (r matchRoster) team(isA bool) string {
	if isA {
		return r.teamA
	}
	return r.teamB
}

// pick returns the lowest-numbered player of teamID at pos, or nil.
func (s *Service) pick(teamID string, pos model.Position) *model.Player {
	s.mu.RLock()
	var best *model.Player
	for _, p := range s.players {
		if p.TeamID != teamID || p.Position != pos {
			continue
		}
		if best == nil || p.Number < best.Number || (p.Number == best.Number && p.ID < best.ID) {
			best = p
		}
	}
	s.mu.RUnlock()
	return best
}

// matchPlayers returns every player of both sides, once each.
func (s *Service) matchPlayers(rt *matchRuntime) []*model.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Player, 0)
	for _, p := range s.players {
		if p.TeamID == rt.match.TeamAID || p.TeamID == rt.match.TeamBID {
			out = append(out, p)
		}
	}
	return out
}

// autoPosition is the role that makes the next play at stage, if one can be
// chosen without the caller.
func autoPosition(kind model.CommandKind, stage rally.Stage) (model.Position, bool) {
	switch kind {
	case model.CmdAttackIntercepted:
		return model.Striker, true
	case model.CmdSetKeptAlive:
		return model.Feeder, true
	case model.CmdRecordPlay:
		switch stage {
		case rally.Setting:
			return model.Feeder, true
		case rally.Attacking:
			return model.Striker, true
		}
	}
	return "", false
}

// actor resolves the player named by cmd, or auto-selects one. A nil player
// with a nil error leaves the choice to the engine, which only accepts that
// at Serving.
func (s *Service) actor(rt *matchRuntime, cmd model.Command) (*model.Player, error) { //nolint:gocritic // hugeParam
	if cmd.PlayerID != "" {
		s.mu.RLock()
		p, ok := s.players[cmd.PlayerID]
		s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, cmd.PlayerID)
		}
		if p.TeamID != rt.match.TeamAID && p.TeamID != rt.match.TeamBID {
			return nil, fmt.Errorf("%w: %s", ErrPlayerNotInMatch, cmd.PlayerID)
		}
		return p, nil
	}

	st := rt.engine.State()
	role, ok := autoPosition(cmd.Kind, st.RallyStage)
	if !ok {
		return nil, nil //nolint:nilnil // engine decides
	}
	pos := rally.Position{Stage: st.RallyStage, ServeHeldByA: st.ServeHeldByA, FlowReversed: st.RallyFlowReversed}
	teamID := rt.match.TeamBID
	if pos.ActingSideIsA() {
		teamID = rt.match.TeamAID
	}
	return s.pick(teamID, role), nil
}
