// Package serializer runs read-modify-commit cycles on entities with
// per-entity mutual exclusion. Waiters for the same entity are served in
// arrival order; different entities never contend.
package serializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/susu3304/tallybot/internal/entity"
	"golang.org/x/sync/semaphore"
)

var (
	ErrShuttingDown = errors.New("serializer is shutting down")

	// ErrNoChange may be returned by a mutation to report that the entity is
	// already in the requested state. Nothing is committed and the current
	// snapshot is returned without an error.
	ErrNoChange = errors.New("no change")
)

// MutateFunc computes the next state of an entity from a private copy of the
// latest committed one.
type MutateFunc func(current entity.Entity) (entity.Entity, error)

type entityLock struct {
	sem  *semaphore.Weighted
	refs int
}

type Serializer struct {
	store       entity.Store
	logger      *slog.Logger
	waitTimeout time.Duration

	mu     sync.Mutex
	locks  map[string]*entityLock
	closed bool
	active sync.WaitGroup
}

// New returns a Serializer over store. A positive waitTimeout bounds how long a
// caller queues for an entity before giving up.
func New(store entity.Store, logger *slog.Logger, waitTimeout time.Duration) *Serializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Serializer{
		store:       store,
		logger:      logger,
		waitTimeout: waitTimeout,
		locks:       make(map[string]*entityLock),
	}
}

// WithEntityLock acquires exclusive access to id, reads the latest committed
// entity, runs fn on a copy and commits the result with the version it read.
// If fn fails nothing is committed. Cancelling ctx only abandons the wait; once
// the lock is held the cycle runs to completion.
func (s *Serializer) WithEntityLock(ctx context.Context, id string, fn MutateFunc) (entity.Entity, error) {
	l, err := s.ref(id)
	if err != nil {
		return entity.Entity{}, err
	}
	defer s.unref(id, l)

	waitCtx := ctx
	if s.waitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.waitTimeout)
		defer cancel()
	}
	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		return entity.Entity{}, fmt.Errorf("wait for %s: %w", id, err)
	}
	defer l.sem.Release(1)

	return s.run(context.WithoutCancel(ctx), id, fn)
}

func (s *Serializer) run(ctx context.Context, id string, fn MutateFunc) (entity.Entity, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return entity.Entity{}, err
	}

	next, err := fn(current.Clone())
	if errors.Is(err, ErrNoChange) {
		return current, nil
	}
	if err != nil {
		return entity.Entity{}, err
	}

	next.ID = id
	if err := s.store.Commit(ctx, id, current.Version, next); err != nil {
		if errors.Is(err, entity.ErrVersionConflict) {
			// Only possible when another process shares the store.
			s.logger.Warn("commit lost version race", "entity_id", id, "version", current.Version)
		}
		return entity.Entity{}, err
	}
	next.Version = current.Version + 1
	s.logger.Debug("entity committed", "entity_id", id, "version", next.Version)
	return next, nil
}

func (s *Serializer) ref(id string) (*entityLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrShuttingDown
	}
	l, ok := s.locks[id]
	if !ok {
		l = &entityLock{sem: semaphore.NewWeighted(1)}
		s.locks[id] = l
	}
	l.refs++
	s.active.Add(1)
	return l, nil
}

func (s *Serializer) unref(id string, l *entityLock) {
	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
	s.mu.Unlock()
	s.active.Done()
}

// Close rejects new acquisitions and waits for queued and running cycles to
// finish, or for ctx to end.
func (s *Serializer) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
