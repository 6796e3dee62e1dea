package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/openspace/core/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQL stores values in the kv_store table of a Postgres or SQLite database.
// Queries are written with "?" placeholders and rebound per driver.
type SQL struct {
	db *sqlx.DB
}

// NewSQL wraps an open connection. The kv_store table must exist.
func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db}
}

// OpenSQLite opens (or creates) the SQLite file at path and ensures the
// schema exists. Use ":memory:" in tests.
func OpenSQLite(ctx context.Context, path string) (*SQL, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("kv: open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: create schema: %w", err)
	}
	logger.Info(ctx, component, "kv.open",
		slog.String("driver", "sqlite"),
		slog.String("path", path),
	)
	return &SQL{db: db}, nil
}

// DB exposes the underlying connection.
func (s *SQL) DB() *sqlx.DB { return s.db }

// Close closes the underlying connection.
func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.db.Rebind(`SELECT value FROM kv_store WHERE key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv: get: %w", err)
	}
	return value, nil
}

func (s *SQL) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`), key, value)
	if err != nil {
		return fmt.Errorf("kv: set: %w", err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM kv_store WHERE key = ?`), key); err != nil {
		return fmt.Errorf("kv: delete: %w", err)
	}
	return nil
}

func (s *SQL) Has(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one, s.db.Rebind(`SELECT 1 FROM kv_store WHERE key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kv: has: %w", err)
	}
	return true, nil
}
