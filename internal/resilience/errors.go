package resilience

import (
	"context"
	"errors"

	"github.com/LavishGent/boardcache/internal/types"
)

var (
	ErrCircuitOpen     = types.ErrCircuitOpen
	ErrBulkheadFull    = types.ErrBulkheadFull
	ErrBulkheadTimeout = types.ErrBulkheadTimeout
)

// IsCircuitOpen returns true if the error is a circuit open error.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, types.ErrCircuitOpen)
}

// IsBulkheadError returns true if the error is a bulkhead rejection.
func IsBulkheadError(err error) bool {
	return errors.Is(err, types.ErrBulkheadFull) || errors.Is(err, types.ErrBulkheadTimeout)
}

// IsRejection reports whether err came from the guard rather than the sink.
func IsRejection(err error) bool {
	return IsCircuitOpen(err) || IsBulkheadError(err)
}

// countsAsFailure decides whether err should move the breaker toward open.
// Cancellation by the caller says nothing about the sink's health.
func countsAsFailure(ctx context.Context, err error) bool {
	if err == nil || IsRejection(err) {
		return false
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return false
	}
	return true
}
