// Package resilience guards snapshot export against a slow or failing sink.
package resilience

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LavishGent/boardcache/internal/config"
)

type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker is the circuit breaker surface used by Policy.
type Breaker interface {
	Execute(ctx context.Context, fn func(context.Context) error) error
	Allow() bool
	RecordSuccess()
	RecordFailure()
	State() State
	SetOnStateChange(fn func(from, to State))
}

// CircuitBreaker stops calls to a sink after consecutive failures and lets
// a limited number of probes through once the open period has elapsed.
type CircuitBreaker struct {
	name string
	now  func() time.Time

	failureThreshold    int
	successThreshold    int
	openDuration        time.Duration
	halfOpenMaxRequests int

	state atomic.Int32

	mu               sync.Mutex
	consecutiveFails int
	consecutiveSuccs int
	halfOpenRequests int
	openedAt         time.Time

	onStateChange func(from, to State)
}

// BreakerOption configures a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) BreakerOption {
	return func(cb *CircuitBreaker) {
		if now != nil {
			cb.now = now
		}
	}
}

// transition is applied after the mutex is released so callbacks may read state.
type transition struct {
	from, to State
	notify   func(from, to State)
}

func (t *transition) fire() {
	if t != nil && t.notify != nil {
		t.notify(t.from, t.to)
	}
}

// NewCircuitBreaker creates a breaker for the named sink.
func NewCircuitBreaker(name string, cfg config.CircuitBreakerConfig, opts ...BreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:                name,
		now:                 time.Now,
		failureThreshold:    cfg.FailureThreshold,
		successThreshold:    cfg.SuccessThreshold,
		openDuration:        cfg.OpenDuration,
		halfOpenMaxRequests: cfg.HalfOpenMaxRequests,
	}

	if cb.failureThreshold <= 0 {
		cb.failureThreshold = 5
	}
	if cb.successThreshold <= 0 {
		cb.successThreshold = 2
	}
	if cb.openDuration <= 0 {
		cb.openDuration = 30 * time.Second
	}
	// Fewer probes than the success threshold would leave the circuit half-open forever.
	if cb.halfOpenMaxRequests < cb.successThreshold {
		cb.halfOpenMaxRequests = cb.successThreshold
	}
	for _, opt := range opts {
		opt(cb)
	}

	cb.state.Store(int32(StateClosed))
	return cb
}

// Name returns the sink name this breaker guards.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute runs fn if the circuit allows it and records the outcome.
// A canceled caller context does not count against the sink.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}

	err := fn(ctx)
	switch {
	case err == nil:
		cb.RecordSuccess()
	case countsAsFailure(ctx, err):
		cb.RecordFailure()
	}
	return err
}

// Allow checks if a request should be allowed through.
func (cb *CircuitBreaker) Allow() bool {
	switch State(cb.state.Load()) {
	case StateClosed:
		return true

	case StateOpen:
		var t *transition
		allowed := false

		cb.mu.Lock()
		if cb.now().Sub(cb.openedAt) >= cb.openDuration {
			t = cb.moveTo(StateHalfOpen)
			cb.halfOpenRequests = 1
			allowed = true
		}
		cb.mu.Unlock()

		t.fire()
		return allowed

	case StateHalfOpen:
		cb.mu.Lock()
		defer cb.mu.Unlock()
		if cb.halfOpenRequests >= cb.halfOpenMaxRequests {
			return false
		}
		cb.halfOpenRequests++
		return true

	default:
		return true
	}
}

// RecordSuccess records a successful operation.
func (cb *CircuitBreaker) RecordSuccess() {
	var t *transition

	cb.mu.Lock()
	switch State(cb.state.Load()) {
	case StateClosed:
		cb.consecutiveFails = 0
	case StateHalfOpen:
		cb.consecutiveSuccs++
		if cb.consecutiveSuccs >= cb.successThreshold {
			t = cb.moveTo(StateClosed)
		}
	}
	cb.mu.Unlock()

	t.fire()
}

// RecordFailure records a failed operation.
func (cb *CircuitBreaker) RecordFailure() {
	var t *transition

	cb.mu.Lock()
	switch State(cb.state.Load()) {
	case StateClosed:
		cb.consecutiveFails++
		if cb.consecutiveFails >= cb.failureThreshold {
			t = cb.moveTo(StateOpen)
		}
	case StateHalfOpen:
		t = cb.moveTo(StateOpen)
	}
	cb.mu.Unlock()

	t.fire()
}

// moveTo must be called with mu held. The returned transition must be fired
// after mu is released.
func (cb *CircuitBreaker) moveTo(next State) *transition {
	prev := State(cb.state.Load())
	if prev == next {
		return nil
	}

	switch next {
	case StateClosed:
		cb.consecutiveFails = 0
		cb.consecutiveSuccs = 0
		cb.halfOpenRequests = 0
	case StateOpen:
		cb.openedAt = cb.now()
		cb.consecutiveSuccs = 0
	case StateHalfOpen:
		cb.consecutiveSuccs = 0
		cb.halfOpenRequests = 0
	}

	cb.state.Store(int32(next))

	if cb.onStateChange == nil {
		return nil
	}
	return &transition{from: prev, to: next, notify: cb.onStateChange}
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	return State(cb.state.Load())
}

// SetOnStateChange sets a callback for state changes. The callback runs
// synchronously outside the breaker's lock.
func (cb *CircuitBreaker) SetOnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	cb.consecutiveSuccs = 0
	cb.halfOpenRequests = 0
	cb.state.Store(int32(StateClosed))
}

// Stats returns circuit breaker statistics.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerStats{
		Name:             cb.name,
		State:            cb.State(),
		ConsecutiveFails: cb.consecutiveFails,
		ConsecutiveSuccs: cb.consecutiveSuccs,
		HalfOpenRequests: cb.halfOpenRequests,
	}
}

// CircuitBreakerStats contains circuit breaker statistics.
type CircuitBreakerStats struct {
	Name             string
	State            State
	ConsecutiveFails int
	ConsecutiveSuccs int
	HalfOpenRequests int
}

// DisabledCircuitBreaker lets every call through.
type DisabledCircuitBreaker struct{}

func NewDisabledCircuitBreaker() *DisabledCircuitBreaker {
	return &DisabledCircuitBreaker{}
}

func (DisabledCircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (DisabledCircuitBreaker) Allow() bool    { return true }
func (DisabledCircuitBreaker) RecordSuccess() {}
func (DisabledCircuitBreaker) RecordFailure() {}
func (DisabledCircuitBreaker) State() State   { return StateClosed }

func (DisabledCircuitBreaker) SetOnStateChange(func(from, to State)) {}
