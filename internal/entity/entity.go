package entity

import (
	"fmt"
	"time"
)

// MaxAmount bounds every wager, wager pool total and coupon price.
const MaxAmount int64 = 1_000_000_000_000_000

type Kind string

const (
	KindPoll      Kind = "poll"
	KindWagerPool Kind = "wager_pool"
	KindCoupon    Kind = "coupon"
	KindClaimPool Kind = "claim_pool"
)

// Valid reports whether k is one of the known entity kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPoll, KindWagerPool, KindCoupon, KindClaimPool:
		return true
	}
	return false
}

// Entity is the versioned aggregate shared by every kind. Exactly one of the
// kind payloads is set and it matches Kind.
type Entity struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Version   int64     `json:"version"`
	Title     string    `json:"title"`
	CreatedBy string    `json:"created_by"`
	Closed    bool      `json:"closed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Poll      *Poll      `json:"poll,omitempty"`
	WagerPool *WagerPool `json:"wager_pool,omitempty"`
	Coupon    *Coupon    `json:"coupon,omitempty"`
	ClaimPool *ClaimPool `json:"claim_pool,omitempty"`
}

// Validate checks the structural shape of the entity, not domain rules.
func (e Entity) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("entity id is required")
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown entity kind %q", e.Kind)
	}
	set := 0
	var match bool
	if e.Poll != nil {
		set++
		match = e.Kind == KindPoll
	}
	if e.WagerPool != nil {
		set++
		match = e.Kind == KindWagerPool
	}
	if e.Coupon != nil {
		set++
		match = e.Kind == KindCoupon
	}
	if e.ClaimPool != nil {
		set++
		match = e.Kind == KindClaimPool
	}
	if set != 1 || !match {
		return fmt.Errorf("entity %s: payload does not match kind %s", e.ID, e.Kind)
	}
	return nil
}

// Clone returns a deep copy so that pure operations never alias committed state.
func (e Entity) Clone() Entity {
	out := e
	if e.Poll != nil {
		p := e.Poll.clone()
		out.Poll = &p
	}
	if e.WagerPool != nil {
		w := e.WagerPool.clone()
		out.WagerPool = &w
	}
	if e.Coupon != nil {
		c := e.Coupon.clone()
		out.Coupon = &c
	}
	if e.ClaimPool != nil {
		c := e.ClaimPool.clone()
		out.ClaimPool = &c
	}
	return out
}

// Choice is one poll option and the actors currently choosing it.
type Choice struct {
	ID     string   `json:"id"`
	Label  string   `json:"label"`
	Voters []string `json:"voters"`
}

type Poll struct {
	Choices []Choice `json:"choices"`
}

// Choice returns the index of the choice with the given id, or -1.
func (p *Poll) Choice(id string) int {
	for i := range p.Choices {
		if p.Choices[i].ID == id {
			return i
		}
	}
	return -1
}

// VoteOf returns the choice the actor currently belongs to.
func (p *Poll) VoteOf(actorID string) (string, bool) {
	for _, c := range p.Choices {
		if containsString(c.Voters, actorID) {
			return c.ID, true
		}
	}
	return "", false
}

// TotalVotes counts voters across every choice.
func (p *Poll) TotalVotes() int {
	n := 0
	for _, c := range p.Choices {
		n += len(c.Voters)
	}
	return n
}

func (p Poll) clone() Poll {
	out := Poll{Choices: make([]Choice, len(p.Choices))}
	for i, c := range p.Choices {
		out.Choices[i] = Choice{ID: c.ID, Label: c.Label, Voters: cloneStrings(c.Voters)}
	}
	return out
}

type Wager struct {
	ActorID string `json:"actor_id"`
	Amount  int64  `json:"amount"`
}

// Side is one of the two outcomes of a wager pool. Totals are always derived
// from Wagers.
type Side struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Wagers []Wager `json:"wagers"`
}

// Total sums every wager on the side.
func (s Side) Total() int64 {
	var sum int64
	for _, w := range s.Wagers {
		sum += w.Amount
	}
	return sum
}

type WagerPool struct {
	Sides [2]Side `json:"sides"`
}

// Side returns the index of the side with the given id, or -1.
func (w *WagerPool) Side(id string) int {
	for i := range w.Sides {
		if w.Sides[i].ID == id {
			return i
		}
	}
	return -1
}

// SideOf returns the side the actor has wagered on.
func (w *WagerPool) SideOf(actorID string) (string, bool) {
	for _, s := range w.Sides {
		for _, wg := range s.Wagers {
			if wg.ActorID == actorID {
				return s.ID, true
			}
		}
	}
	return "", false
}

// Total sums both sides.
func (w *WagerPool) Total() int64 {
	return w.Sides[0].Total() + w.Sides[1].Total()
}

func (w WagerPool) clone() WagerPool {
	var out WagerPool
	for i, s := range w.Sides {
		wagers := make([]Wager, len(s.Wagers))
		copy(wagers, s.Wagers)
		out.Sides[i] = Side{ID: s.ID, Label: s.Label, Wagers: wagers}
	}
	return out
}

type Coupon struct {
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discount_percent"`
	BasePrice       int64     `json:"base_price"`
	ExpiresAt       time.Time `json:"expires_at"`
	RedeemedBy      []string  `json:"redeemed_by"`
}

// FinalPrice is ceil(base * (100 - discount) / 100) in integer arithmetic.
// base is split into hundreds and a remainder so the product never exceeds
// base itself.
func (c *Coupon) FinalPrice(base int64) int64 {
	keep := int64(100 - c.DiscountPercent)
	if base <= 0 || keep <= 0 {
		return 0
	}
	if keep > 100 {
		keep = 100
	}
	q, r := base/100, base%100
	return q*keep + (r*keep+99)/100
}

// Redeemed reports whether the actor has already used the coupon.
func (c *Coupon) Redeemed(actorID string) bool {
	return containsString(c.RedeemedBy, actorID)
}

// ExpiredAt reports whether a redemption at now is too late.
func (c *Coupon) ExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

func (c Coupon) clone() Coupon {
	out := c
	out.RedeemedBy = cloneStrings(c.RedeemedBy)
	return out
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestDenied   RequestStatus = "denied"
)

// PendingRequest is a claim awaiting a decision by one of two guardians. It
// stays in the pool after it is decided so late decisions can be recognised.
type PendingRequest struct {
	ID          string        `json:"id"`
	PoolID      string        `json:"pool_id"`
	RequesterID string        `json:"requester_id"`
	GuardianIDs [2]string     `json:"guardian_ids"`
	Status      RequestStatus `json:"status"`
	DecidedBy   string        `json:"decided_by,omitempty"`
	RequestedAt time.Time     `json:"requested_at"`
	DecidedAt   *time.Time    `json:"decided_at,omitempty"`
}

// IsGuardian reports whether id may decide the request.
func (r PendingRequest) IsGuardian(id string) bool {
	return id != "" && (r.GuardianIDs[0] == id || r.GuardianIDs[1] == id)
}

// Decided reports whether the request reached a terminal state.
func (r PendingRequest) Decided() bool {
	return r.DecidedBy != "" || r.Status != RequestPending
}

type ClaimPool struct {
	Capacity  int              `json:"capacity"`
	ClaimedBy []string         `json:"claimed_by"`
	Guardians [2]string        `json:"guardians"`
	Requests  []PendingRequest `json:"requests"`
}

// Remaining is the capacity not yet consumed by approved claims.
func (c *ClaimPool) Remaining() int {
	return c.Capacity - len(c.ClaimedBy)
}

// Request returns the index of the request with the given id, or -1.
func (c *ClaimPool) Request(id string) int {
	for i := range c.Requests {
		if c.Requests[i].ID == id {
			return i
		}
	}
	return -1
}

// Pending returns the requests still awaiting a decision.
func (c *ClaimPool) Pending() []PendingRequest {
	var out []PendingRequest
	for _, r := range c.Requests {
		if !r.Decided() {
			out = append(out, r)
		}
	}
	return out
}

// Claimed reports whether the actor already holds a slot.
func (c *ClaimPool) Claimed(actorID string) bool {
	return containsString(c.ClaimedBy, actorID)
}

func (c ClaimPool) clone() ClaimPool {
	out := c
	out.ClaimedBy = cloneStrings(c.ClaimedBy)
	out.Requests = make([]PendingRequest, len(c.Requests))
	for i, r := range c.Requests {
		if r.DecidedAt != nil {
			at := *r.DecidedAt
			r.DecidedAt = &at
		}
		out.Requests[i] = r
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
