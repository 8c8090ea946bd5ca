package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrShiftNotFound is returned when the requested shift does not exist.
var ErrShiftNotFound = errors.New("shift not found")

// ValidationError reports malformed caller input. It is always detected
// before any write, so a ValidationError guarantees no side effects.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AlreadyClosedError is returned when closing a shift that is not OPEN.
// Closing twice is an error, not a no-op.
type AlreadyClosedError struct {
	ShiftID int64
}

func (e *AlreadyClosedError) Error() string {
	return fmt.Sprintf("shift %d is already closed", e.ShiftID)
}

// UnresolvedOrder identifies one order blocking a shift close.
type UnresolvedOrder struct {
	ID          int64
	OrderNumber string
	Status      OrderStatus
}

// UnresolvedOrdersError carries every order still blocking a shift
// close, so the operator sees the complete list at once.
type UnresolvedOrdersError struct {
	ShiftID int64
	Orders  []UnresolvedOrder
}

func (e *UnresolvedOrdersError) Error() string {
	parts := make([]string, 0, len(e.Orders))
	for _, o := range e.Orders {
		parts = append(parts, fmt.Sprintf("%s (%s)", o.OrderNumber, o.Status))
	}
	return fmt.Sprintf("shift %d has %d unresolved orders: %s",
		e.ShiftID, len(e.Orders), strings.Join(parts, ", "))
}

// SyncRejectedError signals a non-retryable rejection from the
// authoritative ledger. The synchronizer records Reason on the order as
// conflictReason and stops retrying.
type SyncRejectedError struct {
	Reason string
}

func (e *SyncRejectedError) Error() string {
	return "sync rejected: " + e.Reason
}

// IsRetryable reports whether a sync failure should be retried on a
// later pass. Rejections are terminal; everything else (network,
// timeout, server fault) is assumed transient.
func IsRetryable(err error) bool {
	var rejected *SyncRejectedError
	return err != nil && !errors.As(err, &rejected)
}
