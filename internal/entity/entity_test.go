package entity

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestCouponFinalPrice(t *testing.T) {
	tests := []struct {
		name     string
		discount int
		base     int64
		want     int64
	}{
		{name: "quarter off", discount: 25, base: 1000, want: 750},
		{name: "rounds up", discount: 33, base: 999, want: 670},
		{name: "free", discount: 100, base: 500, want: 0},
		{name: "one percent", discount: 1, base: 1, want: 1},
		{name: "max amount", discount: 25, base: MaxAmount, want: 750_000_000_000_000},
		{name: "above max amount", discount: 25, base: 1_000_000_000_000_000_000, want: 750_000_000_000_000_000},
		{name: "max int64", discount: 25, base: math.MaxInt64, want: 6917529027641081856},
		{name: "non-positive base", discount: 25, base: -5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Coupon{DiscountPercent: tt.discount}
			if got := c.FinalPrice(tt.base); got != tt.want {
				t.Errorf("FinalPrice(%d) with %d%% = %d, want %d", tt.base, tt.discount, got, tt.want)
			}
		})
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	decided := time.Now()
	orig := Entity{
		ID:   "p1",
		Kind: KindClaimPool,
		ClaimPool: &ClaimPool{
			Capacity:  2,
			ClaimedBy: []string{"a"},
			Requests:  []PendingRequest{{ID: "r1", Status: RequestApproved, DecidedAt: &decided}},
		},
	}

	cp := orig.Clone()
	cp.ClaimPool.ClaimedBy[0] = "b"
	cp.ClaimPool.Requests[0].Status = RequestDenied
	*cp.ClaimPool.Requests[0].DecidedAt = decided.Add(time.Hour)

	if orig.ClaimPool.ClaimedBy[0] != "a" {
		t.Errorf("clone shares ClaimedBy with original")
	}
	if orig.ClaimPool.Requests[0].Status != RequestApproved {
		t.Errorf("clone shares Requests with original")
	}
	if !orig.ClaimPool.Requests[0].DecidedAt.Equal(decided) {
		t.Errorf("clone shares DecidedAt with original")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		e       Entity
		wantErr bool
	}{
		{name: "poll ok", e: Entity{ID: "x", Kind: KindPoll, Poll: &Poll{}}},
		{name: "missing id", e: Entity{Kind: KindPoll, Poll: &Poll{}}, wantErr: true},
		{name: "wrong payload", e: Entity{ID: "x", Kind: KindPoll, Coupon: &Coupon{}}, wantErr: true},
		{name: "two payloads", e: Entity{ID: "x", Kind: KindPoll, Poll: &Poll{}, Coupon: &Coupon{}}, wantErr: true},
		{name: "unknown kind", e: Entity{ID: "x", Kind: "raffle", Poll: &Poll{}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.e.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUnmarshalColumnsWin(t *testing.T) {
	e := Entity{ID: "w1", Kind: KindWagerPool, Version: 9, WagerPool: &WagerPool{}}
	payload, err := Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := Unmarshal("w1", KindWagerPool, 3, payload)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Version != 3 {
		t.Errorf("Version = %d, want column value 3", got.Version)
	}
}

func TestAlreadyResolvedErrorIs(t *testing.T) {
	var err error = &AlreadyResolvedError{RequestID: "r", DecidedBy: "g1", Status: RequestDenied}
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected errors.Is(err, ErrAlreadyResolved)")
	}
	if !IsDomain(err) {
		t.Fatalf("expected IsDomain to be true")
	}
	if IsDomain(errors.New("connection refused")) {
		t.Fatalf("infrastructure error reported as domain error")
	}
}
