package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/okian/takraw/internal/adapters/repository/migrations"
	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
)

const migrationTable = "schema_migrations"

// SQLiteStore persists records in a SQLite database file.
type SQLiteStore struct {
	db           *sql.DB
	busyTimeout  time.Duration
	maxOpenConns int
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// embedded migrations.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required: %w", ErrNotConfigured)
	}
	s := &SQLiteStore{busyTimeout: defaultBusyTimeout, maxOpenConns: defaultMaxOpenConns}
	for _, opt := range opts {
		opt(s)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		filepath.Clean(path), s.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s.db = db
	return s, nil
}

// applyMigrations executes each embedded .sql file at most once, in name order.
func applyMigrations(db *sql.DB, fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
	    name TEXT PRIMARY KEY,
	    applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, name := range files {
		var n int
		if err := db.QueryRow(`SELECT COUNT(1) FROM `+migrationTable+` WHERE name = ?`, name).Scan(&n); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if n > 0 {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`,
			name, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveTeam inserts or updates a team.
func (s *SQLiteStore) SaveTeam(ctx context.Context, t model.Team) error {
	defer observe("save_team", time.Now())
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := validateID("team", t.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO teams (id, name, is_bot, color) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, is_bot = excluded.is_bot, color = excluded.color`,
		t.ID, t.Name, boolToInt(t.IsBot), t.Color)
	if err != nil {
		return fmt.Errorf("save team %s: %w", t.ID, err)
	}
	return nil
}

// GetTeam returns a team by id.
func (s *SQLiteStore) GetTeam(ctx context.Context, id string) (model.Team, error) {
	if err := s.ready(ctx); err != nil {
		return model.Team{}, err
	}
	var (
		t     model.Team
		isBot int
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, is_bot, color FROM teams WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &isBot, &t.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Team{}, fmt.Errorf("team %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("get team %s: %w", id, err)
	}
	t.IsBot = isBot != 0
	return t, nil
}

// ListTeams returns teams in insertion order.
func (s *SQLiteStore) ListTeams(ctx context.Context) ([]model.Team, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, is_bot, color FROM teams ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var out []model.Team
	for rows.Next() {
		var (
			t     model.Team
			isBot int
		)
		if err := rows.Scan(&t.ID, &t.Name, &isBot, &t.Color); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		t.IsBot = isBot != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// SavePlayer upserts the player row and rewrites its stats in one transaction.
func (s *SQLiteStore) SavePlayer(ctx context.Context, p *model.Player) error {
	defer observe("save_player", time.Now())
	if err := s.ready(ctx); err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("nil player: %w", ErrInvalidEntity)
	}
	if err := validateID("player", p.ID); err != nil {
		return err
	}
	stats := p.Stats()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save player: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO players (id, name, number, position, team_id) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, number = excluded.number,
		   position = excluded.position, team_id = excluded.team_id`,
		p.ID, p.Name, p.Number, string(p.Position), p.TeamID); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("player %q references unknown team %q: %w", p.ID, p.TeamID, ErrInvalidEntity)
		}
		return fmt.Errorf("save player %s: %w", p.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stats WHERE player_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear stats for %s: %w", p.ID, err)
	}
	for i, st := range stats {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stats (id, player_id, seq, play_type, match_id, success, failure_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			st.ID, p.ID, i, string(st.PlayType), st.MatchID, boolToInt(st.Success), string(st.FailureReason)); err != nil {
			return fmt.Errorf("save stat %s: %w", st.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save player %s: %w", p.ID, err)
	}
	return nil
}

// GetPlayer loads a player with its stats.
func (s *SQLiteStore) GetPlayer(ctx context.Context, id string) (*model.Player, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var (
		name, position, teamID string
		number                 int
	)
	err := s.db.QueryRowContext(ctx, `SELECT name, number, position, team_id FROM players WHERE id = ?`, id).
		Scan(&name, &number, &position, &teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get player %s: %w", id, err)
	}
	stats, err := s.loadStats(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.NewPlayer(id, name, number, model.Position(position), teamID, stats...), nil
}

func (s *SQLiteStore) loadStats(ctx context.Context, playerID string) ([]model.StatRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, play_type, match_id, success, failure_reason FROM stats WHERE player_id = ? ORDER BY seq`, playerID)
	if err != nil {
		return nil, fmt.Errorf("load stats for %s: %w", playerID, err)
	}
	defer rows.Close()

	var out []model.StatRecord
	for rows.Next() {
		var (
			st            model.StatRecord
			playType, rsn string
			success       int
		)
		if err := rows.Scan(&st.ID, &playType, &st.MatchID, &success, &rsn); err != nil {
			return nil, fmt.Errorf("scan stat: %w", err)
		}
		st.PlayType = rally.PlayType(playType)
		st.Success = success != 0
		st.FailureReason = rally.FailureReason(rsn)
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListPlayers returns a team's players ordered by number, then id.
func (s *SQLiteStore) ListPlayers(ctx context.Context, teamID string) ([]*model.Player, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM players WHERE team_id = ? ORDER BY number, id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan player id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]*model.Player, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetPlayer(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// SaveMatch inserts or updates a match.
func (s *SQLiteStore) SaveMatch(ctx context.Context, m model.Match) error {
	defer observe("save_match", time.Now())
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := validateID("match", m.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matches (id, team_a_id, team_b_id, team_a_serves_first, score_a, score_b, date_ms, team_a_suffix, team_b_suffix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET score_a = excluded.score_a, score_b = excluded.score_b,
		   team_a_suffix = excluded.team_a_suffix, team_b_suffix = excluded.team_b_suffix`,
		m.ID, m.TeamAID, m.TeamBID, boolToInt(m.TeamAServesFirst), m.ScoreA, m.ScoreB,
		m.Date.UTC().UnixMilli(), m.TeamASuffix, m.TeamBSuffix)
	if err != nil {
		return fmt.Errorf("save match %s: %w", m.ID, err)
	}
	return nil
}

// GetMatch returns a match by id.
func (s *SQLiteStore) GetMatch(ctx context.Context, id string) (model.Match, error) {
	if err := s.ready(ctx); err != nil {
		return model.Match{}, err
	}
	var (
		m          model.Match
		servesA    int
		dateMillis int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, team_a_id, team_b_id, team_a_serves_first, score_a, score_b, date_ms, team_a_suffix, team_b_suffix
		 FROM matches WHERE id = ?`, id).
		Scan(&m.ID, &m.TeamAID, &m.TeamBID, &servesA, &m.ScoreA, &m.ScoreB, &dateMillis, &m.TeamASuffix, &m.TeamBSuffix)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Match{}, fmt.Errorf("match %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Match{}, fmt.Errorf("get match %s: %w", id, err)
	}
	m.TeamAServesFirst = servesA != 0
	m.Date = time.UnixMilli(dateMillis).UTC()
	return m, nil
}
