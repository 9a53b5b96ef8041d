// Package projection turns a committed entity into display-ready rows. It is
// pure: nothing here reads or writes the store, and nothing is ever parsed
// back from the output.
package projection

import (
	"math/bits"
	"strings"
	"time"

	"github.com/susu3304/tallybot/internal/entity"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const barCells = 10

type Row struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Amount  int64  `json:"amount"`
	Percent int    `json:"percent"`
	Bar     string `json:"bar"`
	// Display is Amount (or Count when there is no amount) with digit grouping.
	Display string `json:"display"`
}

type Summary struct {
	EntityID    string      `json:"entity_id"`
	Kind        entity.Kind `json:"kind"`
	Title       string      `json:"title"`
	Version     int64       `json:"version"`
	Closed      bool        `json:"closed"`
	Rows        []Row       `json:"rows"`
	TotalCount  int         `json:"total_count"`
	TotalAmount int64       `json:"total_amount"`
	Headline    string      `json:"headline"`

	// Claim pools.
	Capacity  int `json:"capacity,omitempty"`
	Remaining int `json:"remaining,omitempty"`
	Pending   int `json:"pending,omitempty"`

	// Coupons.
	Expired   bool       `json:"expired,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Project renders e with English number formatting.
func Project(e entity.Entity, now time.Time) Summary {
	return ProjectWith(message.NewPrinter(language.English), e, now)
}

// ProjectWith renders e using p for number formatting.
func ProjectWith(p *message.Printer, e entity.Entity, now time.Time) Summary {
	s := Summary{
		EntityID: e.ID,
		Kind:     e.Kind,
		Title:    e.Title,
		Version:  e.Version,
		Closed:   e.Closed,
	}
	switch {
	case e.Poll != nil:
		projectPoll(p, &s, e.Poll)
	case e.WagerPool != nil:
		projectWagers(p, &s, e.WagerPool)
	case e.Coupon != nil:
		projectCoupon(p, &s, e.Coupon, now)
	case e.ClaimPool != nil:
		projectClaims(p, &s, e.ClaimPool)
	}
	return s
}

func projectPoll(p *message.Printer, s *Summary, poll *entity.Poll) {
	total := poll.TotalVotes()
	for _, c := range poll.Choices {
		n := len(c.Voters)
		pct := Percent(int64(n), int64(total))
		s.Rows = append(s.Rows, Row{
			ID:      c.ID,
			Label:   c.Label,
			Count:   n,
			Percent: pct,
			Bar:     Bar(pct),
			Display: p.Sprintf("%d", n),
		})
	}
	s.TotalCount = total
	s.Headline = p.Sprintf("%d votes", total)
}

func projectWagers(p *message.Printer, s *Summary, pool *entity.WagerPool) {
	total := pool.Total()
	count := 0
	for _, side := range pool.Sides {
		amount := side.Total()
		pct := Percent(amount, total)
		count += len(side.Wagers)
		s.Rows = append(s.Rows, Row{
			ID:      side.ID,
			Label:   side.Label,
			Count:   len(side.Wagers),
			Amount:  amount,
			Percent: pct,
			Bar:     Bar(pct),
			Display: p.Sprintf("%d", amount),
		})
	}
	s.TotalCount = count
	s.TotalAmount = total
	s.Headline = p.Sprintf("%d wagered by %d", total, count)
}

func projectCoupon(p *message.Printer, s *Summary, c *entity.Coupon, now time.Time) {
	n := len(c.RedeemedBy)
	pct := 0
	if n > 0 {
		pct = 100
	}
	s.Rows = []Row{{
		ID:      c.Code,
		Label:   c.Code,
		Count:   n,
		Amount:  c.FinalPrice(c.BasePrice),
		Percent: pct,
		Bar:     Bar(pct),
		Display: p.Sprintf("%d", c.FinalPrice(c.BasePrice)),
	}}
	expires := c.ExpiresAt
	s.ExpiresAt = &expires
	s.Expired = c.ExpiredAt(now)
	s.TotalCount = n
	s.Headline = p.Sprintf("%d%% off, redeemed %d times", c.DiscountPercent, n)
}

func projectClaims(p *message.Printer, s *Summary, pool *entity.ClaimPool) {
	claimed := len(pool.ClaimedBy)
	pending := len(pool.Pending())
	for _, r := range []struct {
		id, label string
		n         int
	}{
		{"claimed", "Claimed", claimed},
		{"pending", "Pending", pending},
	} {
		pct := Percent(int64(r.n), int64(pool.Capacity))
		s.Rows = append(s.Rows, Row{
			ID:      r.id,
			Label:   r.label,
			Count:   r.n,
			Percent: pct,
			Bar:     Bar(pct),
			Display: p.Sprintf("%d", r.n),
		})
	}
	s.Capacity = pool.Capacity
	s.Remaining = pool.Remaining()
	s.Pending = pending
	s.TotalCount = claimed
	s.Headline = p.Sprintf("%d of %d claimed", claimed, pool.Capacity)
}

// Percent is part/total as an integer percentage rounded half up. A zero
// total yields 0. The intermediate product is 128-bit.
func Percent(part, total int64) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	if part >= total {
		return 100
	}
	// (part*200 + total) / (total*2)
	hi, lo := bits.Mul64(uint64(part), 200)
	lo, carry := bits.Add64(lo, uint64(total), 0)
	hi += carry
	pct, _ := bits.Div64(hi, lo, uint64(total)*2)
	return int(pct)
}

// Bar renders pct as a fixed-width bar of filled and empty cells.
func Bar(pct int) string {
	filled := (pct + 5) / 10
	if filled < 0 {
		filled = 0
	}
	if filled > barCells {
		filled = barCells
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barCells-filled)
}
