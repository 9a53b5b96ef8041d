package ledger

import (
	"fmt"
	"time"

	"github.com/susu3304/tallybot/internal/entity"
)

func validGuardians(g [2]string) bool {
	return g[0] != "" && g[1] != "" && g[0] != g[1]
}

// RequestClaimOp appends a pending request for requesterID. Zero guardians
// fall back to the pool's guardians; any other pair is accepted only from the
// pool's creator. The requester can never be one of the guardians.
func RequestClaimOp(e entity.Entity, requesterID string, guardians [2]string, requestID string, now time.Time) (entity.Entity, entity.PendingRequest, error) {
	next, err := open(e, entity.KindClaimPool)
	if err != nil {
		return entity.Entity{}, entity.PendingRequest{}, err
	}
	pool := next.ClaimPool
	if pool.Remaining() <= 0 {
		return entity.Entity{}, entity.PendingRequest{}, fmt.Errorf("pool %s: %w", e.ID, entity.ErrExhausted)
	}
	override := guardians != [2]string{} && guardians != pool.Guardians
	if !override {
		guardians = pool.Guardians
	}
	if !validGuardians(guardians) {
		return entity.Entity{}, entity.PendingRequest{}, entity.ErrInvalidGuardians
	}
	if guardians[0] == requesterID || guardians[1] == requesterID {
		return entity.Entity{}, entity.PendingRequest{}, fmt.Errorf("%s: %w", requesterID, entity.ErrSelfGuardian)
	}
	// Only the pool's creator may route a request to other guardians.
	if override && requesterID != e.CreatedBy {
		return entity.Entity{}, entity.PendingRequest{}, fmt.Errorf("override guardians of %s by %s: %w", e.ID, requesterID, entity.ErrNotPermitted)
	}
	if pool.Claimed(requesterID) {
		return entity.Entity{}, entity.PendingRequest{}, fmt.Errorf("%s in %s: %w", requesterID, e.ID, entity.ErrAlreadyClaimed)
	}
	for _, r := range pool.Pending() {
		if r.RequesterID == requesterID {
			return entity.Entity{}, entity.PendingRequest{}, fmt.Errorf("%s has pending request %s: %w", requesterID, r.ID, entity.ErrAlreadyClaimed)
		}
	}

	req := entity.PendingRequest{
		ID:          requestID,
		PoolID:      e.ID,
		RequesterID: requesterID,
		GuardianIDs: guardians,
		Status:      entity.RequestPending,
		RequestedAt: now,
	}
	pool.Requests = append(pool.Requests, req)
	return next, req, nil
}

// DecideOp applies a guardian decision to a pending request. A request that is
// already decided yields *entity.AlreadyResolvedError. Approval re-checks
// capacity; when none is left the request stays pending and ErrExhausted is
// returned.
func DecideOp(e entity.Entity, requestID, guardianID string, decision entity.RequestStatus, now time.Time) (entity.Entity, entity.PendingRequest, error) {
	if decision != entity.RequestApproved && decision != entity.RequestDenied {
		return entity.Entity{}, entity.PendingRequest{}, entity.Invalid("decision %q", decision)
	}
	if e.Kind != entity.KindClaimPool {
		return entity.Entity{}, entity.PendingRequest{}, fmt.Errorf("decide on %s %s: %w", e.Kind, e.ID, entity.ErrKindMismatch)
	}
	next := e.Clone()
	pool := next.ClaimPool
	idx := pool.Request(requestID)
	if idx < 0 {
		return entity.Entity{}, entity.PendingRequest{}, fmt.Errorf("request %s: %w", requestID, entity.ErrNotFound)
	}
	req := pool.Requests[idx]
	if !req.IsGuardian(guardianID) || guardianID == req.RequesterID {
		return entity.Entity{}, req, fmt.Errorf("%s on request %s: %w", guardianID, requestID, entity.ErrNotGuardian)
	}
	if req.Decided() {
		return entity.Entity{}, req, &entity.AlreadyResolvedError{RequestID: req.ID, DecidedBy: req.DecidedBy, Status: req.Status}
	}
	if decision == entity.RequestApproved {
		if next.Closed {
			return entity.Entity{}, req, fmt.Errorf("%s: %w", e.ID, entity.ErrClosed)
		}
		if pool.Remaining() <= 0 {
			return entity.Entity{}, req, fmt.Errorf("approve %s in %s: %w", requestID, e.ID, entity.ErrExhausted)
		}
		pool.ClaimedBy = append(pool.ClaimedBy, req.RequesterID)
	}

	at := now
	req.Status = decision
	req.DecidedBy = guardianID
	req.DecidedAt = &at
	pool.Requests[idx] = req
	return next, req, nil
}
