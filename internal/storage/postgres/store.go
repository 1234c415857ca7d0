// Package postgres stores battle host records in a PostgreSQL JSONB table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
)

const schema = `
CREATE TABLE IF NOT EXISTS battle_hosts (
	id          TEXT PRIMARY KEY,
	ruleset     TEXT NOT NULL,
	suspended   BOOLEAN NOT NULL DEFAULT FALSE,
	record      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS battle_hosts_updated_at ON battle_hosts (updated_at);
`

// Store is a game.HostStore over a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect opens a pool for dsn, checks it and creates the table.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{pool: pool, logger: logger}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	stats := pool.Stat()
	logger.Info("battle store connected",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()))
	return s, nil
}

// Migrate creates the host table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create battle_hosts: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Save upserts h.
func (s *Store) Save(ctx context.Context, h *game.Host) error {
	if h == nil || h.ID == "" {
		return fmt.Errorf("battle id is required")
	}
	record, err := game.EncodeHost(h)
	if err != nil {
		return err
	}
	created, updated := h.CreatedAt, h.UpdatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	if updated.IsZero() {
		updated = created
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO battle_hosts (id, ruleset, suspended, record, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			ruleset = EXCLUDED.ruleset,
			suspended = EXCLUDED.suspended,
			record = EXCLUDED.record,
			updated_at = EXCLUDED.updated_at`,
		h.ID, h.Ruleset, h.Suspended(), record, created, updated)
	if err != nil {
		return fmt.Errorf("failed to save battle %s: %w", h.ID, err)
	}
	return nil
}

// Load fetches the record for id.
func (s *Store) Load(ctx context.Context, id string) (*game.Host, error) {
	var record []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM battle_hosts WHERE id = $1`, id).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", id, game.ErrHostNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load battle %s: %w", id, err)
	}
	return game.DecodeHost(record)
}

// Delete removes the record for id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM battle_hosts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete battle %s: %w", id, err)
	}
	return nil
}

// Suspended lists battles waiting for a response, oldest update first.
func (s *Store) Suspended(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM battle_hosts WHERE suspended ORDER BY updated_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list suspended battles: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan suspended battles: %w", err)
	}
	return ids, nil
}
