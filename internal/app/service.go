// Package service wires the scoring engine to the team and player registry,
// persistence and the per-match executors. It implements the dependencies
// required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	workerpool "github.com/okian/takraw/internal/adapters/mq/worker"
	"github.com/okian/takraw/internal/adapters/repository"
	"github.com/okian/takraw/internal/domain/dedupe"
	"github.com/okian/takraw/internal/domain/engine"
	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
	"github.com/okian/takraw/internal/domain/scoring"
	"github.com/okian/takraw/pkg/logger"
	"github.com/okian/takraw/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize      = 1024
	defaultDedupeSize     = 50000
	defaultCommandTimeout = 5 * time.Second
)

// Suffixes distinguish the two sides of a match where a team plays itself.
var validSuffixes = map[string]bool{"A": true, "B": true, "C": true, "D": true}

// MatchRequest describes a match to create.
type MatchRequest struct {
	TeamAID          string
	TeamBID          string
	TeamAServesFirst bool
	TeamASuffix      string
	TeamBSuffix      string
}

// PlayRequest carries the arguments of a rally command. Fields that an
// operation does not use are ignored.
type PlayRequest struct {
	CommandID string
	PlayerID  string
	PlayType  rally.PlayType
	Success   bool
	Reason    rally.FailureReason
}

// Result is the outcome of an accepted command.
type Result struct {
	State     model.MatchScoreState
	Duplicate bool
}

// matchRuntime is owned by the executor shard of its match; only that
// goroutine touches the engine or the persisted-state bookkeeping.
type matchRuntime struct {
	match  model.Match
	engine *engine.Engine

	scoreA, scoreB int
	finished       bool
}

// Service implements the API dependencies for the scoring system.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	deduper dedupe.Deduper
	pool    *workerpool.Pool

	teams   map[string]model.Team
	players map[string]*model.Player
	matches map[string]*matchRuntime
	live    atomic.Int64

	// saveMu serialises player writes across executors; savedVersions holds
	// the stat version last written per player.
	saveMu        sync.Mutex
	savedVersions map[string]uint64

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	commandTimeout time.Duration
	rules          scoring.Rules
	now            func() time.Time
	newID          func() string

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		teams:          make(map[string]model.Team),
		players:        make(map[string]*model.Player),
		matches:        make(map[string]*matchRuntime),
		savedVersions:  make(map[string]uint64),
		workerCount:    runtime.NumCPU(),
		queueSize:      defaultQueueSize,
		dedupeSize:     defaultDedupeSize,
		commandTimeout: defaultCommandTimeout,
		rules:          scoring.New(),
		now:            time.Now,
		newID:          uuid.NewString,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	return s
}

// Start loads the registry from the store and starts the match executors.
// The executors outlive ctx; they stop on Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting scoring service...")

	if err := s.loadRegistry(ctx); err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool = workerpool.NewPool(s.workerCount, s,
		workerpool.WithQueueCapacity(s.queueSize),
		workerpool.WithPoolLogger(s.logger),
	)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("teams", len(s.teams)),
		logger.Int("players", len(s.players)),
	)
	return nil
}

func (s *Service) loadRegistry(ctx context.Context) error {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return err
	}
	for _, t := range teams {
		s.teams[t.ID] = t
		players, err := s.store.ListPlayers(ctx, t.ID)
		if err != nil {
			return err
		}
		for _, p := range players {
			if _, ok := s.players[p.ID]; !ok {
				s.players[p.ID] = p
			}
		}
	}
	return nil
}

// Stop drains the executors and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	pool, store, cancel := s.pool, s.store, s.cancel
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping scoring service...")
	var errs []error
	if err := pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	cancel()
	if err := store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.logger.Info(ctx, "scoring service stopped")
	return errors.Join(errs...)
}

// CreateTeam registers a team.
func (s *Service) CreateTeam(ctx context.Context, name string, isBot bool, color string) (model.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Team{}, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}
	t := model.Team{ID: s.newID(), Name: name, IsBot: isBot, Color: strings.TrimSpace(color)}
	if err := s.store.SaveTeam(ctx, t); err != nil {
		return model.Team{}, fmt.Errorf("save team: %w", err)
	}

	s.mu.Lock()
	s.teams[t.ID] = t
	s.mu.Unlock()
	s.logger.Info(ctx, "team created", logger.String("team_id", t.ID), logger.String("name", t.Name), logger.Bool("bot", isBot))
	return t, nil
}

// ListTeams returns teams in creation order.
func (s *Service) ListTeams(ctx context.Context) ([]model.Team, error) {
	return s.store.ListTeams(ctx)
}

// GetTeam returns a registered team.
func (s *Service) GetTeam(_ context.Context, id string) (model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return model.Team{}, fmt.Errorf("%w: %s", ErrTeamNotFound, id)
	}
	return t, nil
}

// AddPlayer registers a player on a team.
func (s *Service) AddPlayer(ctx context.Context, teamID, name string, number int, pos model.Position) (*model.Player, error) {
	if _, err := s.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	case !pos.Valid():
		return nil, fmt.Errorf("%w: unknown position %q", ErrInvalidInput, pos)
	case number < 0:
		return nil, fmt.Errorf("%w: negative shirt number", ErrInvalidInput)
	}

	p := model.NewPlayer(s.newID(), name, number, pos, teamID)
	if err := s.store.SavePlayer(ctx, p); err != nil {
		return nil, fmt.Errorf("save player: %w", err)
	}
	s.mu.Lock()
	s.players[p.ID] = p
	s.mu.Unlock()
	return p, nil
}

// GetPlayer returns the live player, including stats recorded so far.
func (s *Service) GetPlayer(_ context.Context, id string) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	return p, nil
}

// TeamPlayers returns a team's players ordered by shirt number.
func (s *Service) TeamPlayers(ctx context.Context, teamID string) ([]*model.Player, error) {
	if _, err := s.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*model.Player, 0)
	for _, p := range s.players {
		if p.TeamID == teamID {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()
	sortPlayers(out)
	return out, nil
}

func sortPlayers(ps []*model.Player) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Number != ps[j].Number {
			return ps[i].Number < ps[j].Number
		}
		return ps[i].ID < ps[j].ID
	})
}

// CreateMatch creates a match and starts its engine.
func (s *Service) CreateMatch(ctx context.Context, req MatchRequest) (model.Match, model.MatchScoreState, error) {
	if !s.isStarted() {
		return model.Match{}, model.MatchScoreState{}, ErrNotStarted
	}
	for _, id := range []string{req.TeamAID, req.TeamBID} {
		if _, err := s.GetTeam(ctx, id); err != nil {
			return model.Match{}, model.MatchScoreState{}, err
		}
	}
	suffixA, suffixB, err := matchSuffixes(req)
	if err != nil {
		return model.Match{}, model.MatchScoreState{}, err
	}

	m := model.Match{
		ID:               s.newID(),
		TeamAID:          req.TeamAID,
		TeamBID:          req.TeamBID,
		TeamAServesFirst: req.TeamAServesFirst,
		Date:             s.now(),
		TeamASuffix:      suffixA,
		TeamBSuffix:      suffixB,
	}
	if err := s.store.SaveMatch(ctx, m); err != nil {
		return model.Match{}, model.MatchScoreState{}, fmt.Errorf("save match: %w", err)
	}

	eng := engine.New(m,
		engine.WithLogger(s.logger.Named("engine")),
		engine.WithClock(s.now),
		engine.WithIDGenerator(s.newID),
		engine.WithRules(s.rules),
		engine.WithServerSelector(matchRoster{svc: s, teamA: m.TeamAID, teamB: m.TeamBID}),
		engine.WithObserver(metricsObserver{}),
	)
	rt := &matchRuntime{match: m, engine: eng}
	st := eng.State()

	s.mu.Lock()
	s.matches[m.ID] = rt
	s.mu.Unlock()

	metrics.UpdateActiveMatches(int(s.live.Add(1)))
	s.logger.Info(ctx, "match created",
		logger.String("match_id", m.ID),
		logger.String("team_a", m.TeamAID),
		logger.String("team_b", m.TeamBID),
		logger.Bool("team_a_serves", m.TeamAServesFirst))
	return m, st, nil
}

func matchSuffixes(req MatchRequest) (string, string, error) {
	if req.TeamAID != req.TeamBID {
		return "", "", nil
	}
	a, b := strings.ToUpper(strings.TrimSpace(req.TeamASuffix)), strings.ToUpper(strings.TrimSpace(req.TeamBSuffix))
	if a == "" {
		a = "A"
	}
	if b == "" {
		b = "B"
	}
	if !validSuffixes[a] || !validSuffixes[b] || a == b {
		return "", "", fmt.Errorf("%w: suffixes must be distinct values of A-D, got %q and %q", ErrInvalidInput, a, b)
	}
	return a, b, nil
}

// GetMatch returns the match record with its current score.
func (s *Service) GetMatch(ctx context.Context, id string) (model.Match, error) {
	rt, err := s.runtime(id)
	if err != nil {
		return model.Match{}, err
	}
	st, err := s.State(ctx, id)
	if err != nil {
		return model.Match{}, err
	}
	m := rt.match
	m.ScoreA, m.ScoreB = st.ScoreA, st.ScoreB
	return m, nil
}

// State returns the derived score state of a match.
func (s *Service) State(ctx context.Context, matchID string) (model.MatchScoreState, error) {
	res, err := s.submit(ctx, model.Command{MatchID: matchID, Kind: model.CmdState})
	return res.State, err
}

// Events returns the ledger of a match, oldest first.
func (s *Service) Events(ctx context.Context, matchID string) ([]model.ScoreEvent, error) {
	res, err := s.submit(ctx, model.Command{MatchID: matchID, Kind: model.CmdEvents})
	return res.Events, err
}

// RecordPlay records a play. An empty PlayerID auto-selects the tekong when
// serving, the feeder when setting, and the striker when attacking.
func (s *Service) RecordPlay(ctx context.Context, matchID string, req PlayRequest) (Result, error) { //nolint:gocritic // hugeParam
	return s.mutate(ctx, matchID, model.CmdRecordPlay, req)
}

// AttackIntercepted records an attack of req.PlayType returned by the opponent.
func (s *Service) AttackIntercepted(ctx context.Context, matchID string, req PlayRequest) (Result, error) { //nolint:gocritic // hugeParam
	return s.mutate(ctx, matchID, model.CmdAttackIntercepted, req)
}

// SetKeptAlive records an over-set or chance ball given in req.Reason.
func (s *Service) SetKeptAlive(ctx context.Context, matchID string, req PlayRequest) (Result, error) { //nolint:gocritic // hugeParam
	return s.mutate(ctx, matchID, model.CmdSetKeptAlive, req)
}

// BlockContained records a block covered by the attacking side.
func (s *Service) BlockContained(ctx context.Context, matchID string, req PlayRequest) (Result, error) { //nolint:gocritic // hugeParam
	return s.mutate(ctx, matchID, model.CmdBlockContained, req)
}

// BlockReturned records a block that the opponent counter-attacks.
func (s *Service) BlockReturned(ctx context.Context, matchID string, req PlayRequest) (Result, error) { //nolint:gocritic // hugeParam
	return s.mutate(ctx, matchID, model.CmdBlockReturned, req)
}

// SwitchFlow swaps attacker and defender roles for the current rally.
func (s *Service) SwitchFlow(ctx context.Context, matchID, commandID string) (Result, error) {
	return s.mutate(ctx, matchID, model.CmdSwitchFlow, PlayRequest{CommandID: commandID})
}

// Undo reverts the latest rally action or point.
func (s *Service) Undo(ctx context.Context, matchID, commandID string) (Result, error) {
	return s.mutate(ctx, matchID, model.CmdUndo, PlayRequest{CommandID: commandID})
}

// Reset restarts the set at 0-0.
func (s *Service) Reset(ctx context.Context, matchID, commandID string) (Result, error) {
	return s.mutate(ctx, matchID, model.CmdReset, PlayRequest{CommandID: commandID})
}

func (s *Service) mutate(ctx context.Context, matchID string, kind model.CommandKind, req PlayRequest) (Result, error) { //nolint:gocritic // hugeParam
	res, err := s.submit(ctx, model.Command{
		ID:       req.CommandID,
		MatchID:  matchID,
		Kind:     kind,
		PlayerID: req.PlayerID,
		PlayType: req.PlayType,
		Success:  req.Success,
		Reason:   req.Reason,
	})
	return Result{State: res.State, Duplicate: res.Duplicate}, err
}

// submit routes cmd to its match executor and waits for the result.
func (s *Service) submit(ctx context.Context, cmd model.Command) (model.CommandResult, error) { //nolint:gocritic // hugeParam
	s.mu.RLock()
	started, pool := s.started, s.pool
	_, known := s.matches[cmd.MatchID]
	s.mu.RUnlock()

	if !started {
		return model.CommandResult{}, ErrNotStarted
	}
	if !known {
		return model.CommandResult{}, fmt.Errorf("%w: %s", ErrMatchNotFound, cmd.MatchID)
	}

	ctx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	res, err := pool.Do(ctx, cmd)
	switch {
	case errors.Is(err, workerpool.ErrQueueFull):
		metrics.RecordRejected("backpressure")
		return model.CommandResult{}, fmt.Errorf("%w: match %s", ErrBackpressure, cmd.MatchID)
	case errors.Is(err, workerpool.ErrPoolClosed):
		return model.CommandResult{}, ErrNotStarted
	case err != nil:
		return model.CommandResult{}, err
	}
	return res, res.Err
}

// Handle applies a command on the executor goroutine that owns its match.
func (s *Service) Handle(ctx context.Context, cmd model.Command) model.CommandResult { //nolint:gocritic // hugeParam
	rt, err := s.runtime(cmd.MatchID)
	if err != nil {
		return model.CommandResult{Err: err}
	}
	switch cmd.Kind {
	case model.CmdState:
		return model.CommandResult{State: rt.engine.State()}
	case model.CmdEvents:
		return model.CommandResult{State: rt.engine.State(), Events: rt.engine.Events()}
	}

	var key string
	if cmd.ID != "" {
		key = dedupe.Key(cmd.MatchID, cmd.ID)
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordCommandDuplicate()
			s.logger.Debug(ctx, "duplicate command skipped",
				logger.String("match_id", cmd.MatchID),
				logger.String("command_id", cmd.ID))
			return model.CommandResult{State: rt.engine.State(), Duplicate: true}
		}
	}

	st, err := s.apply(ctx, rt, cmd)
	if err != nil {
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		metrics.RecordRejected(rejectReason(err))
		s.logger.Debug(ctx, "command rejected",
			logger.String("match_id", cmd.MatchID),
			logger.String("kind", string(cmd.Kind)),
			logger.Error(err))
		return model.CommandResult{State: st, Err: err}
	}

	s.trackFinished(rt, st)
	s.persist(ctx, rt)
	return model.CommandResult{State: st}
}

func (s *Service) apply(ctx context.Context, rt *matchRuntime, cmd model.Command) (model.MatchScoreState, error) { //nolint:gocritic // hugeParam
	eng := rt.engine
	switch cmd.Kind {
	case model.CmdSwitchFlow:
		return eng.SwitchRallyFlow(ctx)
	case model.CmdUndo:
		return eng.Undo(ctx)
	case model.CmdReset:
		return eng.Reset(ctx)
	}

	player, err := s.actor(rt, cmd)
	if err != nil {
		return eng.State(), err
	}
	switch cmd.Kind {
	case model.CmdRecordPlay:
		return eng.RecordPlay(ctx, player, cmd.PlayType, cmd.Success, cmd.Reason)
	case model.CmdAttackIntercepted:
		return eng.RecordAttackIntercepted(ctx, player, cmd.PlayType)
	case model.CmdSetKeptAlive:
		return eng.RecordSetFailureKeptAlive(ctx, player, cmd.Reason)
	case model.CmdBlockContained:
		return eng.RecordBlockContainedByDefense(ctx, player, cmd.PlayType)
	case model.CmdBlockReturned:
		return eng.RecordBlockLeadsToOpponentPlay(ctx, player, cmd.PlayType)
	default:
		return eng.State(), fmt.Errorf("%w: unknown command kind %q", ErrInvalidInput, cmd.Kind)
	}
}

// trackFinished keeps the live match count in step with the set state. Undo
// and Reset can reopen a finished set.
func (s *Service) trackFinished(rt *matchRuntime, st model.MatchScoreState) { //nolint:gocritic // hugeParam
	if st.IsSetFinished == rt.finished {
		return
	}
	rt.finished = st.IsSetFinished
	delta := int64(1)
	if rt.finished {
		delta = -1
	}
	metrics.UpdateActiveMatches(int(s.live.Add(delta)))
}

// persist writes players whose stats changed and the match when its score
// changed. Failures are logged and counted; engine state is never rolled back.
func (s *Service) persist(ctx context.Context, rt *matchRuntime) {
	for _, p := range s.matchPlayers(rt) {
		s.persistPlayer(ctx, p, rt.match.ID)
	}

	m := rt.engine.Match()
	if m.ScoreA == rt.scoreA && m.ScoreB == rt.scoreB {
		return
	}
	if err := s.store.SaveMatch(ctx, m); err != nil {
		metrics.RecordPersistenceFailure("match")
		s.logger.Error(ctx, "failed to persist match score",
			logger.String("match_id", m.ID),
			logger.Error(err))
		return
	}
	rt.scoreA, rt.scoreB = m.ScoreA, m.ScoreB
}

// persistPlayer saves p when its stats changed since the last write from any
// match. A player is shared by every match its team plays.
func (s *Service) persistPlayer(ctx context.Context, p *model.Player, matchID string) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	v := p.Version()
	if v == s.savedVersions[p.ID] {
		return
	}
	if err := s.store.SavePlayer(ctx, p); err != nil {
		metrics.RecordPersistenceFailure("player")
		s.logger.Error(ctx, "failed to persist player",
			logger.String("player_id", p.ID),
			logger.String("match_id", matchID),
			logger.Error(err))
		return
	}
	s.savedVersions[p.ID] = v
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, engine.ErrSetAlreadyFinished):
		return "set_finished"
	case errors.Is(err, engine.ErrStageMismatch):
		return "stage_mismatch"
	case errors.Is(err, engine.ErrInvalidFailureReason):
		return "invalid_failure_reason"
	case errors.Is(err, engine.ErrUnknownPlayType):
		return "unknown_play_type"
	case errors.Is(err, engine.ErrNoPlayerSelected):
		return "no_player_selected"
	case errors.Is(err, ErrPlayerNotFound):
		return "player_not_found"
	case errors.Is(err, ErrPlayerNotInMatch):
		return "player_not_in_match"
	default:
		return "other"
	}
}

func (s *Service) runtime(matchID string) (*matchRuntime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return rt, nil
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"teams":          len(s.teams),
		"players":        len(s.players),
		"matches":        len(s.matches),
		"liveMatches":    int(s.live.Load()),
		"winPoints":      s.rules.WinPoints(),
		"capPoints":      s.rules.CapPoints(),
		"commandTimeout": s.commandTimeout.String(),
	}
	if s.deduper != nil {
		stats["dedupeEntries"] = s.deduper.Size()
	}
	return stats
}
