package resilience

import (
	"context"

	"github.com/LavishGent/boardcache/internal/config"
)

// Policy combines a bulkhead and a circuit breaker around sink writes.
// Failed writes are not retried; the next successful refresh supersedes them.
type Policy struct {
	breaker  Breaker
	bulkhead Limiter
}

// NewPolicy builds the policy for the named sink from cfg. Disabled
// sections become pass-through components.
func NewPolicy(name string, cfg *config.Config, opts ...BreakerOption) *Policy {
	p := &Policy{}

	if cfg.CircuitBreaker.Enabled {
		p.breaker = NewCircuitBreaker(name, cfg.CircuitBreaker, opts...)
	} else {
		p.breaker = NewDisabledCircuitBreaker()
	}

	if cfg.Bulkhead.Enabled {
		p.bulkhead = NewBulkhead(cfg.Bulkhead)
	} else {
		p.bulkhead = NewDisabledBulkhead()
	}

	return p
}

// NewDisabledPolicy returns a policy that guards nothing.
func NewDisabledPolicy() *Policy {
	return &Policy{breaker: NewDisabledCircuitBreaker(), bulkhead: NewDisabledBulkhead()}
}

// Execute runs fn inside the bulkhead, then the breaker. Bulkhead rejections
// never reach the breaker, so a burst of queued writes cannot open it.
func (p *Policy) Execute(ctx context.Context, fn func(context.Context) error) error {
	return p.bulkhead.Do(ctx, func(ctx context.Context) error {
		return p.breaker.Execute(ctx, fn)
	})
}

// IsCircuitOpen returns true if the circuit breaker is open.
func (p *Policy) IsCircuitOpen() bool {
	return p.breaker.State() == StateOpen
}

// CircuitState returns the current circuit breaker state.
func (p *Policy) CircuitState() State {
	return p.breaker.State()
}

// SetOnCircuitStateChange sets a callback for circuit state changes.
func (p *Policy) SetOnCircuitStateChange(fn func(from, to State)) {
	p.breaker.SetOnStateChange(fn)
}

// BulkheadStats returns bulkhead statistics.
func (p *Policy) BulkheadStats() BulkheadStats {
	return p.bulkhead.Stats()
}
