// Package memstore keeps entity state in process memory. Entries are stored
// encoded, so every Get decodes a private copy and a Commit is a single map
// swap under the lock.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/susu3304/tallybot/internal/entity"
)

type record struct {
	kind    entity.Kind
	version int64
	payload []byte
}

type Store struct {
	mu      sync.RWMutex
	store   map[string]record
	coupons map[string]string // normalised code -> entity id
}

func New() *Store {
	return &Store{
		store:   make(map[string]record),
		coupons: make(map[string]string),
	}
}

func (s *Store) Get(ctx context.Context, id string) (entity.Entity, error) {
	if err := ctx.Err(); err != nil {
		return entity.Entity{}, err
	}
	s.mu.RLock()
	rec, ok := s.store[id]
	s.mu.RUnlock()
	if !ok {
		return entity.Entity{}, fmt.Errorf("get %s: %w", id, entity.ErrNotFound)
	}
	return entity.Unmarshal(id, rec.kind, rec.version, rec.payload)
}

func (s *Store) Create(ctx context.Context, e entity.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.Version = 1
	payload, err := entity.Marshal(e)
	if err != nil {
		return err
	}
	code := entity.CouponCode(e)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.store[e.ID]; exists {
		return fmt.Errorf("create %s: %w", e.ID, entity.ErrDuplicate)
	}
	if code != "" {
		if _, taken := s.coupons[code]; taken {
			return fmt.Errorf("create coupon %s: %w", code, entity.ErrDuplicate)
		}
		s.coupons[code] = e.ID
	}
	s.store[e.ID] = record{kind: e.Kind, version: 1, payload: payload}
	return nil
}

func (s *Store) Commit(ctx context.Context, id string, expectedVersion int64, e entity.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.ID = id
	e.Version = expectedVersion + 1
	payload, err := entity.Marshal(e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.store[id]
	if !ok {
		return fmt.Errorf("commit %s: %w", id, entity.ErrNotFound)
	}
	if cur.version != expectedVersion {
		return fmt.Errorf("commit %s at version %d (stored %d): %w", id, expectedVersion, cur.version, entity.ErrVersionConflict)
	}
	if cur.kind != e.Kind {
		return fmt.Errorf("commit %s: %w", id, entity.ErrKindMismatch)
	}
	s.store[id] = record{kind: e.Kind, version: e.Version, payload: payload}
	return nil
}

func (s *Store) List(ctx context.Context, kind entity.Kind) ([]entity.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.store))
	recs := make(map[string]record)
	for id, rec := range s.store {
		if rec.kind == kind {
			ids = append(ids, id)
			recs[id] = rec
		}
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	out := make([]entity.Entity, 0, len(ids))
	for _, id := range ids {
		rec := recs[id]
		e, err := entity.Unmarshal(id, rec.kind, rec.version, rec.payload)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
