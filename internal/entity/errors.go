package entity

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("entity not found")
	ErrUnknownChoice   = errors.New("unknown choice")
	ErrInvalidAmount   = errors.New("amount must be positive and within limits")
	ErrAlreadyWagered  = errors.New("actor has already wagered in this pool")
	ErrExpired         = errors.New("coupon has expired")
	ErrAlreadyRedeemed = errors.New("coupon already redeemed by actor")
	ErrExhausted       = errors.New("claim pool capacity exhausted")
	ErrAlreadyResolved = errors.New("request already resolved")
	ErrVersionConflict = errors.New("entity version conflict")

	ErrDuplicate        = errors.New("entity already exists")
	ErrClosed           = errors.New("entity is closed")
	ErrKindMismatch     = errors.New("action does not apply to this entity kind")
	ErrInvalidAction    = errors.New("invalid action")
	ErrInvalidGuardians = errors.New("exactly two distinct guardians are required")
	ErrNotGuardian      = errors.New("actor is not a guardian of this request")
	ErrNotPermitted     = errors.New("actor is not permitted to perform this action")
	ErrAlreadyClaimed   = errors.New("actor already holds a claim in this pool")

	// ErrSelfGuardian is an ErrInvalidGuardians naming the requester.
	ErrSelfGuardian = fmt.Errorf("requester cannot guard their own request: %w", ErrInvalidGuardians)
)

var domainErrors = []error{
	ErrNotFound,
	ErrUnknownChoice,
	ErrInvalidAmount,
	ErrAlreadyWagered,
	ErrExpired,
	ErrAlreadyRedeemed,
	ErrExhausted,
	ErrAlreadyResolved,
	ErrVersionConflict,
	ErrDuplicate,
	ErrClosed,
	ErrKindMismatch,
	ErrInvalidAction,
	ErrInvalidGuardians,
	ErrNotGuardian,
	ErrNotPermitted,
	ErrAlreadyClaimed,
}

// IsDomain reports whether err is a terminal validation failure that should be
// reported to the acting party, as opposed to an infrastructure failure.
func IsDomain(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// AlreadyResolvedError carries who decided a request first.
type AlreadyResolvedError struct {
	RequestID string
	DecidedBy string
	Status    RequestStatus
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("request %s already %s by %s", e.RequestID, e.Status, e.DecidedBy)
}

func (e *AlreadyResolvedError) Unwrap() error {
	return ErrAlreadyResolved
}

// Invalid wraps ErrInvalidAction with a reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidAction, fmt.Sprintf(format, args...))
}
