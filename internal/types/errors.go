package types

import (
	"errors"
	"fmt"
)

// MissingConfigurationMessage is recorded when a refresh runs without credentials.
const MissingConfigurationMessage = "Missing configuration"

// PermissionDeniedMessage is recorded when the upstream serves its denial page.
const PermissionDeniedMessage = "You don't have permission to view this leaderboard"

var (
	ErrClosed                 = errors.New("boardcache: closed")
	ErrSinkUnavailable        = errors.New("boardcache: snapshot sink unavailable")
	ErrWriteQueueFull         = errors.New("boardcache: write queue full")
	ErrCircuitOpen            = errors.New("boardcache: circuit breaker open")
	ErrBulkheadFull           = errors.New("boardcache: bulkhead at capacity")
	ErrBulkheadTimeout        = errors.New("boardcache: bulkhead timeout")
	ErrInvalidLeaderboardCode = errors.New("boardcache: invalid leaderboard code")
	ErrShutdownTimeout        = errors.New("boardcache: shutdown timeout waiting for background operations")
	ErrRenderMiss             = errors.New("boardcache: render not cached")
)

// FetchKind classifies a failed refresh.
type FetchKind int

const (
	KindConfiguration FetchKind = iota + 1
	KindTransport
	KindPermission
	KindParse
)

func (k FetchKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindPermission:
		return "permission"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Outcome maps the kind onto the refresh outcome it produces.
func (k FetchKind) Outcome() Outcome {
	switch k {
	case KindConfiguration:
		return OutcomeConfiguration
	case KindPermission:
		return OutcomePermission
	case KindParse:
		return OutcomeParse
	default:
		return OutcomeTransport
	}
}

// FetchError is the error produced by a failed refresh.
type FetchError struct {
	Err        error
	Reason     string
	StatusCode int
	Kind       FetchKind
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindConfiguration:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", MissingConfigurationMessage, e.Err)
		}
		return MissingConfigurationMessage
	case KindPermission:
		if e.StatusCode != 0 && (e.StatusCode < 200 || e.StatusCode > 299) {
			return fmt.Sprintf("%s (HTTP %d: %s)", PermissionDeniedMessage, e.StatusCode, e.Reason)
		}
		return PermissionDeniedMessage
	case KindParse:
		return fmt.Sprintf("invalid leaderboard payload: %v", e.Err)
	default:
		if e.StatusCode != 0 {
			return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Reason)
		}
		return fmt.Sprintf("request failed: %v", e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a configuration error. A nil cause yields
// the plain missing-configuration message.
func NewConfigurationError(err error) *FetchError {
	return &FetchError{Kind: KindConfiguration, Err: err}
}

// NewStatusError creates a transport error for a non-2xx response.
func NewStatusError(code int, reason string) *FetchError {
	return &FetchError{Kind: KindTransport, StatusCode: code, Reason: reason}
}

// NewTransportError creates a transport error for a failed round trip.
func NewTransportError(err error) *FetchError {
	return &FetchError{Kind: KindTransport, Err: err}
}

// NewPermissionError creates a permission error; code is the response status.
func NewPermissionError(code int, reason string) *FetchError {
	return &FetchError{Kind: KindPermission, StatusCode: code, Reason: reason}
}

// NewParseError creates a parse error.
func NewParseError(err error) *FetchError {
	return &FetchError{Kind: KindParse, Err: err}
}

// KindOf returns the fetch kind of err, treating unknown errors as transport failures.
func KindOf(err error) FetchKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransport
}

func IsConfigurationError(err error) bool {
	return err != nil && KindOf(err) == KindConfiguration
}

func IsTransportError(err error) bool {
	return err != nil && KindOf(err) == KindTransport
}

func IsPermissionError(err error) bool {
	return err != nil && KindOf(err) == KindPermission
}

func IsParseError(err error) bool {
	return err != nil && KindOf(err) == KindParse
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

func IsSinkUnavailable(err error) bool {
	return errors.Is(err, ErrSinkUnavailable)
}
