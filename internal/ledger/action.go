package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/susu3304/tallybot/internal/entity"
)

// Action is a single actor intent against one entity. The set of actions is
// closed; collaborators build one of the types below and hand it to Apply.
type Action interface {
	Validate() error
	target() (entityID, actorID string)
	apply(e entity.Entity, now time.Time, res *Result) (entity.Entity, error)
}

// Result is the committed snapshot plus any per-action output.
type Result struct {
	Snapshot entity.Entity
	// FinalPrice is set by RedeemCoupon.
	FinalPrice int64
	// Request is set by RequestClaim.
	Request *entity.PendingRequest
}

type CastVote struct {
	EntityID string
	ActorID  string
	ChoiceID string
}

type RetractVote struct {
	EntityID string
	ActorID  string
}

type PlaceWager struct {
	EntityID string
	ActorID  string
	SideID   string
	Amount   int64
}

// RedeemCoupon redeems a coupon for ActorID. A positive BasePrice overrides
// the price stored on the coupon.
type RedeemCoupon struct {
	EntityID  string
	ActorID   string
	BasePrice int64
}

// RequestClaim asks for a slot in a claim pool. A zero GuardianIDs uses the
// pool's guardians.
type RequestClaim struct {
	EntityID    string
	ActorID     string
	GuardianIDs [2]string
}

type CloseEntity struct {
	EntityID string
	ActorID  string
}

func validateRef(entityID, actorID string) error {
	if strings.TrimSpace(entityID) == "" {
		return entity.Invalid("entity id is required")
	}
	if strings.TrimSpace(actorID) == "" {
		return entity.Invalid("actor id is required")
	}
	return nil
}

func (a CastVote) Validate() error {
	if err := validateRef(a.EntityID, a.ActorID); err != nil {
		return err
	}
	if a.ChoiceID == "" {
		return entity.Invalid("choice id is required")
	}
	return nil
}

func (a RetractVote) Validate() error { return validateRef(a.EntityID, a.ActorID) }

func (a PlaceWager) Validate() error {
	if err := validateRef(a.EntityID, a.ActorID); err != nil {
		return err
	}
	if a.SideID == "" {
		return entity.Invalid("side id is required")
	}
	if a.Amount > entity.MaxAmount {
		return fmt.Errorf("wager of %d exceeds %d: %w", a.Amount, entity.MaxAmount, entity.ErrInvalidAmount)
	}
	return nil
}

func (a RedeemCoupon) Validate() error {
	if err := validateRef(a.EntityID, a.ActorID); err != nil {
		return err
	}
	if a.BasePrice < 0 {
		return entity.Invalid("base price must not be negative")
	}
	if a.BasePrice > entity.MaxAmount {
		return fmt.Errorf("base price %d exceeds %d: %w", a.BasePrice, entity.MaxAmount, entity.ErrInvalidAmount)
	}
	return nil
}

func (a RequestClaim) Validate() error { return validateRef(a.EntityID, a.ActorID) }

func (a CloseEntity) Validate() error { return validateRef(a.EntityID, a.ActorID) }

func (a CastVote) target() (string, string)     { return a.EntityID, a.ActorID }
func (a RetractVote) target() (string, string)  { return a.EntityID, a.ActorID }
func (a PlaceWager) target() (string, string)   { return a.EntityID, a.ActorID }
func (a RedeemCoupon) target() (string, string) { return a.EntityID, a.ActorID }
func (a RequestClaim) target() (string, string) { return a.EntityID, a.ActorID }
func (a CloseEntity) target() (string, string)  { return a.EntityID, a.ActorID }

func (a CastVote) apply(e entity.Entity, _ time.Time, _ *Result) (entity.Entity, error) {
	return CastVoteOp(e, a.ActorID, a.ChoiceID)
}

func (a RetractVote) apply(e entity.Entity, _ time.Time, _ *Result) (entity.Entity, error) {
	return RetractVoteOp(e, a.ActorID)
}

func (a PlaceWager) apply(e entity.Entity, _ time.Time, _ *Result) (entity.Entity, error) {
	return PlaceWagerOp(e, a.ActorID, a.SideID, a.Amount)
}

func (a RedeemCoupon) apply(e entity.Entity, now time.Time, res *Result) (entity.Entity, error) {
	next, price, err := RedeemCouponOp(e, a.ActorID, a.BasePrice, now)
	if err != nil {
		return entity.Entity{}, err
	}
	res.FinalPrice = price
	return next, nil
}

func (a RequestClaim) apply(e entity.Entity, now time.Time, res *Result) (entity.Entity, error) {
	next, req, err := RequestClaimOp(e, a.ActorID, a.GuardianIDs, newID(), now)
	if err != nil {
		return entity.Entity{}, err
	}
	res.Request = &req
	return next, nil
}

func (a CloseEntity) apply(e entity.Entity, _ time.Time, _ *Result) (entity.Entity, error) {
	return CloseOp(e, a.ActorID)
}
