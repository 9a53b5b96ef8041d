package ledger

import (
	"fmt"

	"github.com/susu3304/tallybot/internal/entity"
)

// PlaceWagerOp records a single wager by actorID. An actor wagers at most once
// per pool, on either side.
func PlaceWagerOp(e entity.Entity, actorID, sideID string, amount int64) (entity.Entity, error) {
	next, err := open(e, entity.KindWagerPool)
	if err != nil {
		return entity.Entity{}, err
	}
	if amount <= 0 || amount > entity.MaxAmount {
		return entity.Entity{}, fmt.Errorf("wager of %d: %w", amount, entity.ErrInvalidAmount)
	}
	pool := next.WagerPool
	if pool.Total() > entity.MaxAmount-amount {
		return entity.Entity{}, fmt.Errorf("pool %s total would exceed %d: %w", e.ID, entity.MaxAmount, entity.ErrInvalidAmount)
	}
	idx := pool.Side(sideID)
	if idx < 0 {
		return entity.Entity{}, fmt.Errorf("side %q: %w", sideID, entity.ErrUnknownChoice)
	}
	if side, ok := pool.SideOf(actorID); ok {
		return entity.Entity{}, fmt.Errorf("%s on %s: %w", actorID, side, entity.ErrAlreadyWagered)
	}

	pool.Sides[idx].Wagers = append(pool.Sides[idx].Wagers, entity.Wager{ActorID: actorID, Amount: amount})
	return next, nil
}
