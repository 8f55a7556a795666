// Package repository persists teams, players with their stats, and matches.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/pkg/metrics"
)

// Store provides read/write access to registry and match records.
type Store interface {
	SaveTeam(ctx context.Context, t model.Team) error
	// GetTeam returns ErrNotFound if the team is unknown.
	GetTeam(ctx context.Context, id string) (model.Team, error)
	ListTeams(ctx context.Context) ([]model.Team, error)

	// SavePlayer upserts the player and replaces its stored stats with p.Stats().
	SavePlayer(ctx context.Context, p *model.Player) error
	// GetPlayer returns a detached copy of the stored player.
	GetPlayer(ctx context.Context, id string) (*model.Player, error)
	// ListPlayers returns the players of a team ordered by shirt number.
	ListPlayers(ctx context.Context, teamID string) ([]*model.Player, error)

	SaveMatch(ctx context.Context, m model.Match) error
	GetMatch(ctx context.Context, id string) (model.Match, error)

	Close() error
}

func validateID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s id is required: %w", kind, ErrInvalidEntity)
	}
	return nil
}

// observe records the latency of a store operation started at start.
func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
