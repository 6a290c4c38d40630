package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrForbidden      = errors.New("forbidden")

	ErrNotFound             = errors.New("not found")
	ErrPaymentNotFound      = fmt.Errorf("payment %w", ErrNotFound)
	ErrVerificationNotFound = fmt.Errorf("verification %w", ErrNotFound)
	ErrDisputeNotFound      = fmt.Errorf("dispute %w", ErrNotFound)

	ErrInvalidState      = errors.New("invalid state")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrNotClaimed        = errors.New("verification is not claimed by caller")
	ErrAlreadyClaimed    = errors.New("verification is already claimed")
	ErrAlreadyDecided    = errors.New("verification is already decided")
	ErrDuplicateDispute  = errors.New("an open dispute already exists for verification")
	ErrDisputeClosed     = fmt.Errorf("dispute is closed: %w", ErrIllegalTransition)
	ErrQueueEmpty        = errors.New("verification queue is empty")
)

// ErrorCode returns the stable machine-readable code for err, or INTERNAL.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest):
		return "INVALID_REQUEST"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrDisputeClosed):
		return "DISPUTE_CLOSED"
	case errors.Is(err, ErrIllegalTransition):
		return "ILLEGAL_TRANSITION"
	case errors.Is(err, ErrNotClaimed):
		return "NOT_CLAIMED"
	case errors.Is(err, ErrAlreadyClaimed):
		return "ALREADY_CLAIMED"
	case errors.Is(err, ErrAlreadyDecided):
		return "ALREADY_DECIDED"
	case errors.Is(err, ErrDuplicateDispute):
		return "DUPLICATE_DISPUTE"
	case errors.Is(err, ErrQueueEmpty):
		return "QUEUE_EMPTY"
	default:
		return "INTERNAL"
	}
}

// IsConflict reports whether err is a state or contention error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrNotClaimed) ||
		errors.Is(err, ErrAlreadyClaimed) ||
		errors.Is(err, ErrAlreadyDecided) ||
		errors.Is(err, ErrDuplicateDispute)
}
