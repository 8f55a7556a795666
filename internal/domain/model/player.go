package model

import (
	"sync"

	"github.com/okian/takraw/internal/domain/rally"
)

// Position is a player's court role.
type Position string

// Court positions.
const (
	Tekong  Position = "tekong"
	Feeder  Position = "feeder"
	Striker Position = "striker"
)

// Valid reports whether p is a known court position.
func (p Position) Valid() bool {
	switch p {
	case Tekong, Feeder, Striker:
		return true
	}
	return false
}

// Team is a registered side. Bot teams are driven by the simulator.
type Team struct {
	ID    string
	Name  string
	IsBot bool
	Color string
}

// Player owns the stats recorded for it. Methods are safe for concurrent use.
type Player struct {
	ID       string
	Name     string
	Number   int
	Position Position
	TeamID   string

	mu      sync.RWMutex
	stats   []StatRecord
	version uint64
}

// NewPlayer creates a player with the given stats already attached.
func NewPlayer(id, name string, number int, pos Position, teamID string, stats ...StatRecord) *Player {
	p := &Player{ID: id, Name: name, Number: number, Position: pos, TeamID: teamID}
	p.stats = append(p.stats, stats...)
	return p
}

// AddStat attaches a stat record.
func (p *Player) AddStat(s StatRecord) {
	p.mu.Lock()
	p.stats = append(p.stats, s)
	p.version++
	p.mu.Unlock()
}

// RemoveStat deletes the stat with the given id. It reports whether one was found.
func (p *Player) RemoveStat(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.stats {
		if p.stats[i].ID == id {
			p.stats = append(p.stats[:i], p.stats[i+1:]...)
			p.version++
			return true
		}
	}
	return false
}

// Stats returns a copy of the player's stats in recording order.
func (p *Player) Stats() []StatRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]StatRecord, len(p.stats))
	copy(out, p.stats)
	return out
}

// Version counts stat mutations. It changes on every AddStat and every
// successful RemoveStat.
func (p *Player) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// SuccessRate returns the percentage of successful plays of the given type,
// or 0 when the player has no attempts.
func (p *Player) SuccessRate(pt rally.PlayType) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var attempts, made int
	for _, s := range p.stats {
		if s.PlayType != pt {
			continue
		}
		attempts++
		if s.Success {
			made++
		}
	}
	if attempts == 0 {
		return 0
	}
	return float64(made) / float64(attempts) * 100
}
