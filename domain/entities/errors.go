package entities

import (
	"errors"
	"fmt"
)

// Base error taxonomy. Every operation failure wraps one of these so
// callers can classify with errors.Is.
var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrPreconditionViolation = errors.New("precondition violation")
	ErrInsufficientFunds     = errors.New("insufficient funds")
)

// Specific precondition failures.
var (
	ErrNoOpenDraw       = fmt.Errorf("%w: no open draw", ErrPreconditionViolation)
	ErrNotYetRewarded   = fmt.Errorf("%w: committed draw not yet rewarded", ErrPreconditionViolation)
	ErrNoCommittedDraw  = fmt.Errorf("%w: no committed draw", ErrPreconditionViolation)
	ErrAlreadyRewarded  = fmt.Errorf("%w: draw already rewarded", ErrPreconditionViolation)
	ErrDepositsPaused   = fmt.Errorf("%w: deposits are paused", ErrPreconditionViolation)
	ErrNotAuthorized    = fmt.Errorf("%w: caller not authorized", ErrPreconditionViolation)
	ErrSeedNotAvailable = fmt.Errorf("%w: entropy seed not yet available", ErrPreconditionViolation)
	ErrPoolLocked       = fmt.Errorf("%w: pool is locked", ErrPreconditionViolation)
	ErrPoolNotLocked    = fmt.Errorf("%w: pool is not locked", ErrPreconditionViolation)
)
