package boardcache

import (
	"github.com/LavishGent/boardcache/internal/types"
)

// FetchError describes a failed refresh.
type FetchError = types.FetchError

const (
	// MissingConfigurationMessage is recorded when a refresh runs without credentials.
	MissingConfigurationMessage = types.MissingConfigurationMessage
	// PermissionDeniedMessage is recorded when the upstream serves its denial page.
	PermissionDeniedMessage = types.PermissionDeniedMessage
)

var (
	// ErrClosed indicates that the cache or one of its stores has been closed.
	ErrClosed = types.ErrClosed
	// ErrSinkUnavailable indicates that the snapshot sink cannot accept writes.
	ErrSinkUnavailable = types.ErrSinkUnavailable
	// ErrCircuitOpen indicates that the circuit breaker is open.
	ErrCircuitOpen = types.ErrCircuitOpen
	// ErrInvalidLeaderboardCode indicates a code that is unsafe in an upstream path.
	ErrInvalidLeaderboardCode = types.ErrInvalidLeaderboardCode
	// ErrShutdownTimeout indicates that Close gave up waiting for an in-flight fetch.
	ErrShutdownTimeout = types.ErrShutdownTimeout
)

// IsConfigurationError returns true if the refresh failed for missing or invalid credentials.
func IsConfigurationError(err error) bool {
	return types.IsConfigurationError(err)
}

// IsTransportError returns true if the upstream could not be reached or answered non-2xx.
func IsTransportError(err error) bool {
	return types.IsTransportError(err)
}

// IsPermissionError returns true if the upstream refused access to the leaderboard.
func IsPermissionError(err error) bool {
	return types.IsPermissionError(err)
}

// IsParseError returns true if the upstream body was not a leaderboard.
func IsParseError(err error) bool {
	return types.IsParseError(err)
}
