// Package approval runs the guardian round-trip for claim pools: a request is
// committed as pending, dispatched to its two guardians outside the entity
// lock, and the first decision to commit wins.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/ledger"
	"github.com/susu3304/tallybot/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Decision string

const (
	Approve Decision = "approve"
	Deny    Decision = "deny"
)

// ParseDecision accepts "approve" or "deny".
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case Approve, Deny:
		return Decision(s), nil
	}
	return "", entity.Invalid("decision must be approve or deny, got %q", s)
}

func (d Decision) status() entity.RequestStatus {
	if d == Approve {
		return entity.RequestApproved
	}
	return entity.RequestDenied
}

type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeDenied   Outcome = "denied"
	// OutcomeStale means another guardian decided first.
	OutcomeStale Outcome = "stale"
)

// Resolution is the result of a guardian decision. A stale resolution is
// returned without an error; Err exposes who decided first.
type Resolution struct {
	Snapshot  entity.Entity
	Outcome   Outcome
	DecidedBy string
	Request   entity.PendingRequest

	stale *entity.AlreadyResolvedError
}

// Err returns *entity.AlreadyResolvedError for stale resolutions and nil otherwise.
func (r Resolution) Err() error {
	if r.stale == nil {
		return nil
	}
	return r.stale
}

type Coordinator struct {
	engine     *ledger.Engine
	dispatcher Dispatcher
	logger     *slog.Logger
	tracer     trace.Tracer

	mu    sync.RWMutex
	index map[string]string // pending request id -> pool id
}

func New(engine *ledger.Engine, dispatcher Dispatcher, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if dispatcher == nil {
		dispatcher = LogDispatcher{Logger: logger}
	}
	return &Coordinator{
		engine:     engine,
		dispatcher: dispatcher,
		logger:     logger,
		tracer:     telemetry.Tracer(),
		index:      make(map[string]string),
	}
}

// RequestClaim commits a pending request and dispatches it to the guardians.
// A dispatch failure is returned wrapped together with the committed result;
// the request stays resolvable and is retried by the reminder worker.
func (c *Coordinator) RequestClaim(ctx context.Context, poolID, requesterID string, guardians [2]string) (ledger.Result, error) {
	res, err := c.engine.Do(ctx, ledger.RequestClaim{EntityID: poolID, ActorID: requesterID, GuardianIDs: guardians})
	if err != nil {
		return ledger.Result{}, err
	}
	req := *res.Request
	c.remember(req.ID, poolID)

	if err := c.dispatcher.Dispatch(ctx, req); err != nil {
		c.logger.Error("dispatch claim request", "request_id", req.ID, "entity_id", poolID, "error", err)
		return res, fmt.Errorf("dispatch request %s: %w", req.ID, err)
	}
	return res, nil
}

// Resolve records guardianID's decision on requestID.
func (c *Coordinator) Resolve(ctx context.Context, requestID, guardianID string, decision Decision) (res Resolution, err error) {
	ctx, span := c.tracer.Start(ctx, "approval.Resolve", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("guardian.id", guardianID),
		attribute.String("decision", string(decision)),
	))
	defer func() {
		span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
		if err != nil && !entity.IsDomain(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if _, err := ParseDecision(string(decision)); err != nil {
		return Resolution{}, err
	}
	poolID, err := c.poolFor(ctx, requestID)
	if err != nil {
		return Resolution{}, err
	}

	snap, req, err := c.engine.Decide(ctx, poolID, requestID, guardianID, decision.status())
	var resolved *entity.AlreadyResolvedError
	if errors.As(err, &resolved) {
		c.logger.Info("late guardian decision", "request_id", requestID, "guardian_id", guardianID, "decided_by", resolved.DecidedBy)
		c.forget(requestID)
		current, gerr := c.engine.Get(ctx, poolID)
		if gerr != nil {
			return Resolution{}, gerr
		}
		return Resolution{
			Snapshot:  current,
			Outcome:   OutcomeStale,
			DecidedBy: resolved.DecidedBy,
			Request:   req,
			stale:     resolved,
		}, nil
	}
	if err != nil {
		return Resolution{}, err
	}

	c.forget(requestID)
	outcome := OutcomeDenied
	if req.Status == entity.RequestApproved {
		outcome = OutcomeApproved
	}
	c.logger.Info("claim request decided", "request_id", requestID, "entity_id", poolID, "guardian_id", guardianID, "outcome", outcome)
	return Resolution{Snapshot: snap, Outcome: outcome, DecidedBy: guardianID, Request: req}, nil
}

// Pending lists every undecided request across all claim pools and resets the
// request index to exactly that set.
func (c *Coordinator) Pending(ctx context.Context) ([]entity.PendingRequest, error) {
	pools, err := c.engine.List(ctx, entity.KindClaimPool)
	if err != nil {
		return nil, err
	}
	var out []entity.PendingRequest
	index := make(map[string]string)
	for _, p := range pools {
		for _, r := range p.ClaimPool.Pending() {
			index[r.ID] = p.ID
			out = append(out, r)
		}
	}
	c.mu.Lock()
	c.index = index
	c.mu.Unlock()
	return out, nil
}

// Redispatch sends req to its guardians again.
func (c *Coordinator) Redispatch(ctx context.Context, req entity.PendingRequest) error {
	return c.dispatcher.Dispatch(ctx, req)
}

func (c *Coordinator) remember(requestID, poolID string) {
	c.mu.Lock()
	c.index[requestID] = poolID
	c.mu.Unlock()
}

func (c *Coordinator) forget(requestID string) {
	c.mu.Lock()
	delete(c.index, requestID)
	c.mu.Unlock()
}

func (c *Coordinator) poolFor(ctx context.Context, requestID string) (string, error) {
	c.mu.RLock()
	poolID, ok := c.index[requestID]
	c.mu.RUnlock()
	if ok {
		return poolID, nil
	}

	// Unknown locally (restart, decided, or created by another process):
	// scan the pools. Only pending requests go back into the index.
	pools, err := c.engine.List(ctx, entity.KindClaimPool)
	if err != nil {
		return "", err
	}
	for _, p := range pools {
		for _, r := range p.ClaimPool.Requests {
			if !r.Decided() {
				c.remember(r.ID, p.ID)
			}
			if r.ID == requestID {
				poolID, ok = p.ID, true
			}
		}
	}
	if !ok {
		return "", fmt.Errorf("request %s: %w", requestID, entity.ErrNotFound)
	}
	return poolID, nil
}
