package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements TokenStore using SQLite. Tokens survive process
// restarts until cleared.
type SQLiteStore struct {
	db *sql.DB
}

var _ TokenStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tokens (
		kind       TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Token(ctx context.Context, kind Kind) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM tokens WHERE kind = ?`, string(kind)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read %s token: %w", kind, err)
	}
	return value, nil
}

func (s *SQLiteStore) SetToken(ctx context.Context, kind Kind, value string) error {
	if err := checkSet(kind, value); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (kind, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(kind) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(kind), value, now)
	if err != nil {
		return fmt.Errorf("write %s token: %w", kind, err)
	}
	return nil
}

func (s *SQLiteStore) ClearToken(ctx context.Context, kind Kind) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("clear %s token: %w", kind, err)
	}
	return nil
}

// UpdatedAt reports when a token was last written.
func (s *SQLiteStore) UpdatedAt(ctx context.Context, kind Kind) (time.Time, error) {
	var ts string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM tokens WHERE kind = ?`, string(kind)).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNoToken
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read %s token updated_at: %w", kind, err)
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s token updated_at: %w", kind, err)
	}
	return t, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
