package ledger

import (
	"fmt"

	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/serializer"
)

// CloseOp closes any entity. Only the creator may close it; closing twice is a
// no-op.
func CloseOp(e entity.Entity, actorID string) (entity.Entity, error) {
	if e.CreatedBy != "" && e.CreatedBy != actorID {
		return entity.Entity{}, fmt.Errorf("close %s by %s: %w", e.ID, actorID, entity.ErrNotPermitted)
	}
	if e.Closed {
		return e, serializer.ErrNoChange
	}
	next := e.Clone()
	next.Closed = true
	return next, nil
}
