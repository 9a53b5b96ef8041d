package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/susu3304/tallybot/internal/entity"
)

var newID = func() string { return uuid.NewString() }

// Spec describes a new entity. Like Action, the set is closed.
type Spec interface {
	build(id, creator string, now time.Time) (entity.Entity, error)
}

type Option struct {
	ID    string
	Label string
}

type NewPoll struct {
	Title   string
	Choices []Option
}

type NewWagerPool struct {
	Title string
	Sides [2]Option
}

type NewCoupon struct {
	Title           string
	Code            string
	DiscountPercent int
	BasePrice       int64
	ExpiresAt       time.Time
}

type NewClaimPool struct {
	Title     string
	Capacity  int
	Guardians [2]string
}

func base(id, creator, title string, kind entity.Kind, now time.Time) entity.Entity {
	return entity.Entity{
		ID:        id,
		Kind:      kind,
		Title:     strings.TrimSpace(title),
		CreatedBy: creator,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func options(in []Option) ([]entity.Choice, error) {
	seen := make(map[string]bool, len(in))
	out := make([]entity.Choice, 0, len(in))
	for _, o := range in {
		id := strings.TrimSpace(o.ID)
		if id == "" {
			return nil, entity.Invalid("option id is required")
		}
		if seen[id] {
			return nil, entity.Invalid("duplicate option %q", id)
		}
		seen[id] = true
		label := strings.TrimSpace(o.Label)
		if label == "" {
			label = id
		}
		out = append(out, entity.Choice{ID: id, Label: label})
	}
	return out, nil
}

func (s NewPoll) build(id, creator string, now time.Time) (entity.Entity, error) {
	if len(s.Choices) < 2 {
		return entity.Entity{}, entity.Invalid("a poll needs at least two choices")
	}
	choices, err := options(s.Choices)
	if err != nil {
		return entity.Entity{}, err
	}
	e := base(id, creator, s.Title, entity.KindPoll, now)
	e.Poll = &entity.Poll{Choices: choices}
	return e, nil
}

func (s NewWagerPool) build(id, creator string, now time.Time) (entity.Entity, error) {
	sides, err := options(s.Sides[:])
	if err != nil {
		return entity.Entity{}, err
	}
	e := base(id, creator, s.Title, entity.KindWagerPool, now)
	e.WagerPool = &entity.WagerPool{}
	for i, c := range sides {
		e.WagerPool.Sides[i] = entity.Side{ID: c.ID, Label: c.Label}
	}
	return e, nil
}

func (s NewCoupon) build(id, creator string, now time.Time) (entity.Entity, error) {
	code := entity.NormalizeCode(s.Code)
	if code == "" {
		return entity.Entity{}, entity.Invalid("coupon code is required")
	}
	if s.DiscountPercent <= 0 || s.DiscountPercent > 100 {
		return entity.Entity{}, entity.Invalid("discount must be in (0, 100], got %d", s.DiscountPercent)
	}
	if s.BasePrice < 0 {
		return entity.Entity{}, entity.Invalid("base price must not be negative")
	}
	if s.BasePrice > entity.MaxAmount {
		return entity.Entity{}, fmt.Errorf("base price %d exceeds %d: %w", s.BasePrice, entity.MaxAmount, entity.ErrInvalidAmount)
	}
	if !s.ExpiresAt.After(now) {
		return entity.Entity{}, entity.Invalid("coupon must expire in the future")
	}
	e := base(id, creator, s.Title, entity.KindCoupon, now)
	e.Coupon = &entity.Coupon{
		Code:            code,
		DiscountPercent: s.DiscountPercent,
		BasePrice:       s.BasePrice,
		ExpiresAt:       s.ExpiresAt.UTC(),
	}
	return e, nil
}

func (s NewClaimPool) build(id, creator string, now time.Time) (entity.Entity, error) {
	if s.Capacity <= 0 {
		return entity.Entity{}, entity.Invalid("capacity must be positive, got %d", s.Capacity)
	}
	if !validGuardians(s.Guardians) {
		return entity.Entity{}, entity.ErrInvalidGuardians
	}
	e := base(id, creator, s.Title, entity.KindClaimPool, now)
	e.ClaimPool = &entity.ClaimPool{Capacity: s.Capacity, Guardians: s.Guardians}
	return e, nil
}
