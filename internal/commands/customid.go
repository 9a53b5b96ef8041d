package commands

import (
	"fmt"
	"strings"
)

// Component custom ids carry only identifiers. Everything shown to users is
// regenerated from entity state.
const (
	idVote        = "vote"
	idRetract     = "retract"
	idWager       = "wager"
	idWagerAmount = "wager_amount"
	idClaim       = "claim"
	idApprove     = "approve"
	idDeny        = "deny"

	amountInputID = "amount"
)

// ComponentID is a parsed button or modal custom id.
type ComponentID struct {
	Action string
	// Target is the entity id, or the request id for approve and deny.
	Target string
	// Arg is the choice or side id where the action needs one.
	Arg string
}

func (c ComponentID) String() string {
	if c.Arg == "" {
		return c.Action + ":" + c.Target
	}
	return c.Action + ":" + c.Target + ":" + c.Arg
}

func VoteID(entityID, choiceID string) string {
	return ComponentID{Action: idVote, Target: entityID, Arg: choiceID}.String()
}

func RetractID(entityID string) string {
	return ComponentID{Action: idRetract, Target: entityID}.String()
}

func WagerID(entityID, sideID string) string {
	return ComponentID{Action: idWager, Target: entityID, Arg: sideID}.String()
}

func WagerAmountID(entityID, sideID string) string {
	return ComponentID{Action: idWagerAmount, Target: entityID, Arg: sideID}.String()
}

func ClaimID(entityID string) string {
	return ComponentID{Action: idClaim, Target: entityID}.String()
}

func ApproveID(requestID string) string {
	return ComponentID{Action: idApprove, Target: requestID}.String()
}

func DenyID(requestID string) string {
	return ComponentID{Action: idDeny, Target: requestID}.String()
}

// ParseCustomID splits a custom id produced by this package.
func ParseCustomID(s string) (ComponentID, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || parts[1] == "" {
		return ComponentID{}, fmt.Errorf("malformed custom id %q", s)
	}
	id := ComponentID{Action: parts[0], Target: parts[1]}

	var wantArg bool
	switch id.Action {
	case idVote, idWager, idWagerAmount:
		wantArg = true
	case idRetract, idClaim, idApprove, idDeny:
	default:
		return ComponentID{}, fmt.Errorf("unknown custom id action %q", id.Action)
	}

	switch {
	case wantArg && (len(parts) != 3 || parts[2] == ""):
		return ComponentID{}, fmt.Errorf("custom id %q: missing argument", s)
	case !wantArg && len(parts) != 2:
		return ComponentID{}, fmt.Errorf("custom id %q: unexpected argument", s)
	}
	if wantArg {
		id.Arg = parts[2]
	}
	return id, nil
}
