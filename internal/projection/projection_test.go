package projection

import (
	"math"
	"testing"
	"time"

	"github.com/susu3304/tallybot/internal/entity"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPercent(t *testing.T) {
	tests := []struct {
		part, total int64
		want        int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{1, 200, 1},
		{1, 201, 0},
		{5, 5, 100},
		{1e17, 2e17, 50},
		{1e17, 1e17 + 3e17, 25},
		{math.MaxInt64 / 2, math.MaxInt64, 50},
		{math.MaxInt64, math.MaxInt64, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.part, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.part, tt.total, got, tt.want)
		}
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		pct  int
		want string
	}{
		{0, "░░░░░░░░░░"},
		{4, "░░░░░░░░░░"},
		{5, "█░░░░░░░░░"},
		{67, "███████░░░"},
		{100, "██████████"},
	}
	for _, tt := range tests {
		if got := Bar(tt.pct); got != tt.want {
			t.Errorf("Bar(%d) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestProjectPoll(t *testing.T) {
	e := entity.Entity{
		ID: "p1", Kind: entity.KindPoll, Title: "Lunch", Version: 4,
		Poll: &entity.Poll{Choices: []entity.Choice{
			{ID: "a", Label: "Ramen", Voters: []string{"u1", "u2"}},
			{ID: "b", Label: "Sushi", Voters: []string{"u3"}},
			{ID: "c", Label: "Curry"},
		}},
	}
	s := Project(e, now)
	if s.TotalCount != 3 || len(s.Rows) != 3 || s.Version != 4 {
		t.Fatalf("summary = %+v", s)
	}
	want := []int{67, 33, 0}
	for i, row := range s.Rows {
		if row.Percent != want[i] {
			t.Errorf("row %s percent = %d, want %d", row.ID, row.Percent, want[i])
		}
	}
	if s.Rows[0].Label != "Ramen" || s.Headline != "3 votes" {
		t.Errorf("row0 = %+v headline = %q", s.Rows[0], s.Headline)
	}
}

func TestProjectWagersFormatsAmounts(t *testing.T) {
	e := entity.Entity{
		ID: "w1", Kind: entity.KindWagerPool,
		WagerPool: &entity.WagerPool{Sides: [2]entity.Side{
			{ID: "yes", Label: "Yes", Wagers: []entity.Wager{{ActorID: "u1", Amount: 1000}, {ActorID: "u2", Amount: 500}}},
			{ID: "no", Label: "No", Wagers: []entity.Wager{{ActorID: "u3", Amount: 500}}},
		}},
	}
	s := Project(e, now)
	if s.TotalAmount != 2000 || s.TotalCount != 3 {
		t.Fatalf("totals = %d / %d", s.TotalAmount, s.TotalCount)
	}
	if s.Rows[0].Percent != 75 || s.Rows[1].Percent != 25 {
		t.Errorf("percents = %d / %d", s.Rows[0].Percent, s.Rows[1].Percent)
	}
	if s.Rows[0].Display != "1,500" {
		t.Errorf("Display = %q, want 1,500", s.Rows[0].Display)
	}
}

func TestProjectEmptyWagerPool(t *testing.T) {
	e := entity.Entity{
		ID: "w1", Kind: entity.KindWagerPool,
		WagerPool: &entity.WagerPool{Sides: [2]entity.Side{{ID: "a"}, {ID: "b"}}},
	}
	for _, row := range Project(e, now).Rows {
		if row.Percent != 0 || row.Bar != Bar(0) {
			t.Errorf("row %+v should be empty", row)
		}
	}
}

func TestProjectCoupon(t *testing.T) {
	e := entity.Entity{
		ID: "c1", Kind: entity.KindCoupon,
		Coupon: &entity.Coupon{Code: "SAVE", DiscountPercent: 25, BasePrice: 1000, ExpiresAt: now.Add(-time.Minute), RedeemedBy: []string{"u1"}},
	}
	s := Project(e, now)
	if len(s.Rows) != 1 || s.Rows[0].Amount != 750 || s.Rows[0].Count != 1 {
		t.Fatalf("rows = %+v", s.Rows)
	}
	if !s.Expired || s.ExpiresAt == nil {
		t.Errorf("expected expired coupon, got %+v", s)
	}
}

func TestProjectClaimPool(t *testing.T) {
	e := entity.Entity{
		ID: "cp1", Kind: entity.KindClaimPool,
		ClaimPool: &entity.ClaimPool{
			Capacity:  4,
			ClaimedBy: []string{"u1"},
			Requests: []entity.PendingRequest{
				{ID: "r1", Status: entity.RequestApproved, DecidedBy: "g1"},
				{ID: "r2", Status: entity.RequestPending},
			},
		},
	}
	s := Project(e, now)
	if s.Remaining != 3 || s.Pending != 1 || s.Capacity != 4 {
		t.Fatalf("summary = %+v", s)
	}
	if s.Rows[0].Percent != 25 || s.Headline != "1 of 4 claimed" {
		t.Errorf("row = %+v headline = %q", s.Rows[0], s.Headline)
	}
}
