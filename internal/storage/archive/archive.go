// Package archive records finished battles in SQLite so they can be listed and
// replayed later.
package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

//go:embed schema.sql
var schemaSQL string

// Schema versions:
// 0 - initial tables
// 1 - index on battle_events.kind
const currentSchemaVersion = 1

// ErrNotFound is returned for battles that were never archived.
var ErrNotFound = errors.New("battle not archived")

// Summary describes an archived battle without its log.
type Summary struct {
	ID            string
	Ruleset       string
	Seed          int64
	Winner        fight.Side
	Events        int
	FinalChecksum string
	FinishedAt    time.Time
}

// Store is a SQLite-backed game.Archive.
type Store struct {
	db *sql.DB
}

// Open creates or opens the archive at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record archives a finished battle. Recording the same battle twice is a no-op.
func (s *Store) Record(ctx context.Context, h *game.Host) error {
	winner, ok := h.Fight.Winner()
	if !ok {
		return fmt.Errorf("battle %s is not finished", h.ID)
	}
	initial, err := json.Marshal(h.Initial)
	if err != nil {
		return fmt.Errorf("failed to encode initial state: %w", err)
	}
	finished := h.UpdatedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO battles
			(id, ruleset, seed, winner, event_count, final_checksum, initial, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.Ruleset, h.Seed, int(winner), len(h.Log),
		game.ComputeChecksum(h.Fight).Hash, string(initial),
		h.CreatedAt.UTC().Format(time.RFC3339Nano), finished.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert battle %s: %w", h.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO battle_events (battle_id, seq, kind, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare event insert: %w", err)
	}
	defer stmt.Close()
	for seq, e := range h.Log {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event %d: %w", seq, err)
		}
		if _, err := stmt.ExecContext(ctx, h.ID, seq, string(e.Kind), string(payload)); err != nil {
			return fmt.Errorf("insert event %d: %w", seq, err)
		}
	}
	return tx.Commit()
}

// Replay loads an archived battle as a replay.
func (s *Store) Replay(ctx context.Context, id string) (*game.Replay, error) {
	var initialJSON string
	err := s.db.QueryRowContext(ctx, `SELECT initial FROM battles WHERE id = ?`, id).Scan(&initialJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query battle %s: %w", id, err)
	}
	var initial fight.Fight
	if err := json.Unmarshal([]byte(initialJSON), &initial); err != nil {
		return nil, fmt.Errorf("decode initial state: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM battle_events WHERE battle_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []rules.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e rules.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return game.NewReplay(id, &initial, events), nil
}

// Get returns the summary of an archived battle.
func (s *Store) Get(ctx context.Context, id string) (Summary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ruleset, seed, winner, event_count, final_checksum, finished_at
		FROM battles WHERE id = ?`, id)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return sum, err
}

// List returns the most recently finished battles first.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ruleset, seed, winner, event_count, final_checksum, finished_at
		FROM battles ORDER BY finished_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// CountKind counts archived events of kind across every battle.
func (s *Store) CountKind(ctx context.Context, kind rules.Kind) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM battle_events WHERE kind = ?`, string(kind)).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (Summary, error) {
	var (
		sum      Summary
		winner   int
		finished string
	)
	if err := row.Scan(&sum.ID, &sum.Ruleset, &sum.Seed, &winner, &sum.Events, &sum.FinalChecksum, &finished); err != nil {
		return Summary{}, err
	}
	sum.Winner = fight.Side(winner)
	t, err := time.Parse(time.RFC3339Nano, finished)
	if err != nil {
		return Summary{}, fmt.Errorf("parse finished_at: %w", err)
	}
	sum.FinishedAt = t
	return sum, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS battle_events_kind ON battle_events (kind)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
