package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/susu3304/tallybot/internal/entity"
)

func (db *DB) Get(ctx context.Context, id string) (entity.Entity, error) {
	var kind string
	var version int64
	var payload []byte
	err := db.pool.QueryRow(ctx,
		"SELECT kind, version, payload FROM entities WHERE id = $1",
		id,
	).Scan(&kind, &version, &payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Entity{}, fmt.Errorf("get %s: %w", id, entity.ErrNotFound)
		}
		return entity.Entity{}, fmt.Errorf("get %s: %w", id, err)
	}
	return entity.Unmarshal(id, entity.Kind(kind), version, payload)
}

func (db *DB) Create(ctx context.Context, e entity.Entity) error {
	e.Version = 1
	payload, err := entity.Marshal(e)
	if err != nil {
		return err
	}
	var code *string
	if c := entity.CouponCode(e); c != "" {
		code = &c
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO entities (id, kind, version, payload, coupon_code, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		e.ID, string(e.Kind), e.Version, payload, code, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create %s: %w", e.ID, entity.ErrDuplicate)
		}
		return fmt.Errorf("create %s: %w", e.ID, err)
	}
	return nil
}

// Commit is a single conditional UPDATE, so concurrent writers that bypass
// the serializer still cannot overwrite each other.
func (db *DB) Commit(ctx context.Context, id string, expectedVersion int64, e entity.Entity) error {
	e.ID = id
	e.Version = expectedVersion + 1
	payload, err := entity.Marshal(e)
	if err != nil {
		return err
	}

	result, err := db.pool.Exec(ctx,
		`UPDATE entities
		 SET version = $3, payload = $4, updated_at = $5
		 WHERE id = $1 AND version = $2 AND kind = $6`,
		id, expectedVersion, e.Version, payload, e.UpdatedAt, string(e.Kind),
	)
	if err != nil {
		return fmt.Errorf("commit %s: %w", id, err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	var stored int64
	err = db.pool.QueryRow(ctx, "SELECT version FROM entities WHERE id = $1", id).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (db *DB) List(ctx context.Context, kind entity.Kind) ([]entity.Entity, error) {
	rows, err := db.pool.Query(ctx,
		"SELECT id, version, payload FROM entities WHERE kind = $1 ORDER BY id",
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var out []entity.Entity
	for rows.Next() {
		var id string
		var version int64
		var payload []byte
		if err := rows.Scan(&id, &version, &payload); err != nil {
			return nil, err
		}
		e, err := entity.Unmarshal(id, kind, version, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
