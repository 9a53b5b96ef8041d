// Package sqlitestore provides a SQLite-backed entity store for single-host
// deployments.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/susu3304/tallybot/internal/entity"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    version INTEGER NOT NULL,
    payload TEXT NOT NULL,
    coupon_code TEXT UNIQUE,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind);
`

// Store persists entities in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens the database at path and creates the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY churn.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Get(ctx context.Context, id string) (entity.Entity, error) {
	var kind, payload string
	var version int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT kind, version, payload FROM entities WHERE id = ?`, id,
	).Scan(&kind, &version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Entity{}, fmt.Errorf("get %s: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		return entity.Entity{}, fmt.Errorf("get %s: %w", id, err)
	}
	return entity.Unmarshal(id, entity.Kind(kind), version, []byte(payload))
}

func (s *Store) Create(ctx context.Context, e entity.Entity) error {
	e.Version = 1
	payload, err := entity.Marshal(e)
	if err != nil {
		return err
	}
	var code any
	if c := entity.CouponCode(e); c != "" {
		code = c
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO entities (id, kind, version, payload, coupon_code, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.Version, string(payload), code, toMillis(e.CreatedAt), toMillis(e.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("create %s: %w", e.ID, entity.ErrDuplicate)
		}
		return fmt.Errorf("create %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) Commit(ctx context.Context, id string, expectedVersion int64, e entity.Entity) error {
	e.ID = id
	e.Version = expectedVersion + 1
	payload, err := entity.Marshal(e)
	if err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE entities SET version = ?, payload = ?, updated_at = ?
		 WHERE id = ? AND version = ? AND kind = ?`,
		e.Version, string(payload), toMillis(e.UpdatedAt), id, expectedVersion, string(e.Kind),
	)
	if err != nil {
		return fmt.Errorf("commit %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit %s: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	var stored int64
	err = s.sqlDB.QueryRowContext(ctx, `SELECT version FROM entities WHERE id = ?`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("commit %s: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("commit %s: %w", id, err)
	}
	if stored == expectedVersion {
		return fmt.Errorf("commit %s: %w", id, entity.ErrKindMismatch)
	}
	return fmt.Errorf("commit %s at version %d (stored %d): %w", id, expectedVersion, stored, entity.ErrVersionConflict)
}

func (s *Store) List(ctx context.Context, kind entity.Kind) ([]entity.Entity, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, version, payload FROM entities WHERE kind = ? ORDER BY id`, string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var out []entity.Entity
	for rows.Next() {
		var id, payload string
		var version int64
		if err := rows.Scan(&id, &version, &payload); err != nil {
			return nil, err
		}
		e, err := entity.Unmarshal(id, kind, version, []byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func isConstraintViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
