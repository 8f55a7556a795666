package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/takraw/internal/domain/model"
)

type playerRow struct {
	id, name, teamID string
	number           int
	position         model.Position
	stats            []model.StatRecord
}

func (r playerRow) player() *model.Player {
	return model.NewPlayer(r.id, r.name, r.number, r.position, r.teamID, r.stats...)
}

// MemoryStore is a map-backed Store. Stored players are snapshots, so
// callers never share mutable state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	teams   map[string]model.Team
	order   []string
	players map[string]playerRow
	matches map[string]model.Match
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teams:   make(map[string]model.Team),
		players: make(map[string]playerRow),
		matches: make(map[string]model.Match),
	}
}

// SaveTeam inserts or replaces a team.
func (s *MemoryStore) SaveTeam(ctx context.Context, t model.Team) error {
	defer observe("save_team", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateID("team", t.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.teams[t.ID] = t
	return nil
}

// GetTeam returns a team by id.
func (s *MemoryStore) GetTeam(ctx context.Context, id string) (model.Team, error) {
	if err := ctx.Err(); err != nil {
		return model.Team{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return model.Team{}, fmt.Errorf("team %q: %w", id, ErrNotFound)
	}
	return t, nil
}

// ListTeams returns teams in creation order.
func (s *MemoryStore) ListTeams(ctx context.Context) ([]model.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Team, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.teams[id])
	}
	return out, nil
}

// SavePlayer snapshots the player and its stats.
func (s *MemoryStore) SavePlayer(ctx context.Context, p *model.Player) error {
	defer observe("save_player", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("nil player: %w", ErrInvalidEntity)
	}
	if err := validateID("player", p.ID); err != nil {
		return err
	}

	row := playerRow{
		id: p.ID, name: p.Name, teamID: p.TeamID,
		number: p.Number, position: p.Position,
		stats: p.Stats(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[p.TeamID]; !ok {
		return fmt.Errorf("player %q references unknown team %q: %w", p.ID, p.TeamID, ErrInvalidEntity)
	}
	s.players[p.ID] = row
	return nil
}

// GetPlayer returns a copy of the stored player.
func (s *MemoryStore) GetPlayer(ctx context.Context, id string) (*model.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	row, ok := s.players[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("player %q: %w", id, ErrNotFound)
	}
	return row.player(), nil
}

// ListPlayers returns a team's players ordered by number, then id.
func (s *MemoryStore) ListPlayers(ctx context.Context, teamID string) ([]*model.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rows := make([]playerRow, 0)
	for _, r := range s.players {
		if r.teamID == teamID {
			rows = append(rows, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].number != rows[j].number {
			return rows[i].number < rows[j].number
		}
		return rows[i].id < rows[j].id
	})
	out := make([]*model.Player, len(rows))
	for i, r := range rows {
		out[i] = r.player()
	}
	return out, nil
}

// SaveMatch inserts or replaces a match.
func (s *MemoryStore) SaveMatch(ctx context.Context, m model.Match) error {
	defer observe("save_match", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateID("match", m.ID); err != nil {
		return err
	}
	s.mu.Lock()
	s.matches[m.ID] = m
	s.mu.Unlock()
	return nil
}

// GetMatch returns a match by id.
func (s *MemoryStore) GetMatch(ctx context.Context, id string) (model.Match, error) {
	if err := ctx.Err(); err != nil {
		return model.Match{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return model.Match{}, fmt.Errorf("match %q: %w", id, ErrNotFound)
	}
	return m, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
