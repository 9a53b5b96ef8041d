// Package ledger applies actor actions to entities. Every mutation runs as a
// pure operation on a private copy inside the entity's serializer lock.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/susu3304/tallybot/internal/clock"
	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/serializer"
	"github.com/susu3304/tallybot/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Engine struct {
	store  entity.Store
	locks  *serializer.Serializer
	clock  clock.Clock
	logger *slog.Logger
	tracer trace.Tracer
}

func New(store entity.Store, locks *serializer.Serializer, clk clock.Clock, logger *slog.Logger) *Engine {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  store,
		locks:  locks,
		clock:  clk,
		logger: logger,
		tracer: telemetry.Tracer(),
	}
}

// Clock is the time source used for every mutation.
func (e *Engine) Clock() clock.Clock { return e.clock }

// Get returns the latest committed entity. It never takes the entity lock.
func (e *Engine) Get(ctx context.Context, id string) (entity.Entity, error) {
	return e.store.Get(ctx, id)
}

// List returns every entity of a kind.
func (e *Engine) List(ctx context.Context, kind entity.Kind) ([]entity.Entity, error) {
	return e.store.List(ctx, kind)
}

// Create validates spec and persists a new entity owned by creatorID.
func (e *Engine) Create(ctx context.Context, creatorID string, spec Spec) (ent entity.Entity, err error) {
	ctx, span := e.tracer.Start(ctx, "ledger.Create")
	defer func() { endSpan(span, err) }()

	if creatorID == "" {
		return entity.Entity{}, entity.Invalid("creator id is required")
	}
	ent, err = spec.build(newID(), creatorID, e.clock.Now())
	if err != nil {
		return entity.Entity{}, err
	}
	span.SetAttributes(attribute.String("entity.id", ent.ID), attribute.String("entity.kind", string(ent.Kind)))

	if err := e.store.Create(ctx, ent); err != nil {
		return entity.Entity{}, err
	}
	ent.Version = 1
	e.logger.Info("entity created", "entity_id", ent.ID, "kind", ent.Kind, "actor_id", creatorID)
	return ent, nil
}

// Apply runs a and returns the committed snapshot.
func (e *Engine) Apply(ctx context.Context, a Action) (entity.Entity, error) {
	res, err := e.Do(ctx, a)
	if err != nil {
		return entity.Entity{}, err
	}
	return res.Snapshot, nil
}

// Do runs a and returns the snapshot together with any action output.
func (e *Engine) Do(ctx context.Context, a Action) (res Result, err error) {
	entityID, actorID := a.target()
	ctx, span := e.tracer.Start(ctx, "ledger.Apply", trace.WithAttributes(
		attribute.String("action", actionName(a)),
		attribute.String("entity.id", entityID),
		attribute.String("actor.id", actorID),
	))
	defer func() { endSpan(span, err) }()

	if err := a.Validate(); err != nil {
		return Result{}, err
	}

	snap, err := e.locks.WithEntityLock(ctx, entityID, func(cur entity.Entity) (entity.Entity, error) {
		res = Result{}
		now := e.clock.Now()
		next, err := a.apply(cur, now, &res)
		if err != nil {
			return next, err
		}
		next.UpdatedAt = now
		return next, nil
	})
	e.logResult(actionName(a), entityID, actorID, err)
	if err != nil {
		return Result{}, err
	}
	res.Snapshot = snap
	return res, nil
}

// Decide records a guardian decision on requestID in poolID.
func (e *Engine) Decide(ctx context.Context, poolID, requestID, guardianID string, decision entity.RequestStatus) (entity.Entity, entity.PendingRequest, error) {
	var req entity.PendingRequest
	snap, err := e.locks.WithEntityLock(ctx, poolID, func(cur entity.Entity) (entity.Entity, error) {
		now := e.clock.Now()
		next, r, err := DecideOp(cur, requestID, guardianID, decision, now)
		req = r
		if err != nil {
			return next, err
		}
		next.UpdatedAt = now
		return next, nil
	})
	e.logResult("decide", poolID, guardianID, err)
	return snap, req, err
}

func (e *Engine) logResult(action, entityID, actorID string, err error) {
	switch {
	case err == nil:
		e.logger.Debug("action applied", "action", action, "entity_id", entityID, "actor_id", actorID)
	case entity.IsDomain(err):
		e.logger.Info("action rejected", "action", action, "entity_id", entityID, "actor_id", actorID, "error", err)
	default:
		e.logger.Error("action failed", "action", action, "entity_id", entityID, "actor_id", actorID, "error", err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil && !entity.IsDomain(err) && !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func actionName(a Action) string {
	switch a.(type) {
	case CastVote:
		return "cast_vote"
	case RetractVote:
		return "retract_vote"
	case PlaceWager:
		return "place_wager"
	case RedeemCoupon:
		return "redeem_coupon"
	case RequestClaim:
		return "request_claim"
	case CloseEntity:
		return "close"
	}
	return fmt.Sprintf("%T", a)
}
