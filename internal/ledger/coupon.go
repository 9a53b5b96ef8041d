package ledger

import (
	"fmt"
	"time"

	"github.com/susu3304/tallybot/internal/entity"
)

// RedeemCouponOp redeems the coupon for actorID at now and returns the
// discounted price. basePrice overrides the coupon's own price when positive.
func RedeemCouponOp(e entity.Entity, actorID string, basePrice int64, now time.Time) (entity.Entity, int64, error) {
	next, err := open(e, entity.KindCoupon)
	if err != nil {
		return entity.Entity{}, 0, err
	}
	coupon := next.Coupon
	if coupon.ExpiredAt(now) {
		return entity.Entity{}, 0, fmt.Errorf("coupon %s expired at %s: %w", coupon.Code, coupon.ExpiresAt.Format(time.RFC3339), entity.ErrExpired)
	}
	if coupon.Redeemed(actorID) {
		return entity.Entity{}, 0, fmt.Errorf("coupon %s by %s: %w", coupon.Code, actorID, entity.ErrAlreadyRedeemed)
	}

	if basePrice <= 0 {
		basePrice = coupon.BasePrice
	}
	if basePrice > entity.MaxAmount {
		return entity.Entity{}, 0, fmt.Errorf("base price %d: %w", basePrice, entity.ErrInvalidAmount)
	}
	coupon.RedeemedBy = append(coupon.RedeemedBy, actorID)
	return next, coupon.FinalPrice(basePrice), nil
}
