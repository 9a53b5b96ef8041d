package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Store is the durable home of entity state. Implementations must make Commit
// an atomic compare-and-swap on Version so no reader observes a half-applied
// mutation.
type Store interface {
	Get(ctx context.Context, id string) (Entity, error)
	// Create persists a new entity at Version 1. It fails with ErrDuplicate
	// when the id, or a coupon code, is taken.
	Create(ctx context.Context, e Entity) error
	// Commit replaces the entity if the stored version equals expectedVersion.
	// The stored copy gets Version expectedVersion+1.
	Commit(ctx context.Context, id string, expectedVersion int64, e Entity) error
	List(ctx context.Context, kind Kind) ([]Entity, error)
}

// Marshal encodes the payload column of the persisted layout.
func Marshal(e Entity) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode entity %s: %w", e.ID, err)
	}
	return b, nil
}

// Unmarshal rebuilds an entity from its persisted columns. The id, kind and
// version columns win over anything inside the payload.
func Unmarshal(id string, kind Kind, version int64, payload []byte) (Entity, error) {
	var e Entity
	if err := json.Unmarshal(payload, &e); err != nil {
		return Entity{}, fmt.Errorf("decode entity %s: %w", id, err)
	}
	e.ID = id
	e.Kind = kind
	e.Version = version
	if err := e.Validate(); err != nil {
		return Entity{}, err
	}
	return e, nil
}

// CouponCode returns the normalised unique code for coupons, or "" for other kinds.
func CouponCode(e Entity) string {
	if e.Coupon == nil {
		return ""
	}
	return NormalizeCode(e.Coupon.Code)
}

// NormalizeCode is the canonical form used for coupon code uniqueness.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
