package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LavishGent/boardcache/internal/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.CircuitBreaker = testBreakerConfig()
	cfg.Bulkhead = config.BulkheadConfig{
		Enabled:        true,
		MaxConcurrent:  2,
		MaxQueue:       0,
		AcquireTimeout: 10 * time.Millisecond,
	}
	return cfg
}

func TestNewPolicy(t *testing.T) {
	t.Run("creates enabled components", func(t *testing.T) {
		p := NewPolicy("redis", testConfig())

		if _, ok := p.breaker.(*CircuitBreaker); !ok {
			t.Errorf("breaker = %T, want *CircuitBreaker", p.breaker)
		}
		if _, ok := p.bulkhead.(*Bulkhead); !ok {
			t.Errorf("bulkhead = %T, want *Bulkhead", p.bulkhead)
		}
	})

	t.Run("creates disabled components when not enabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.CircuitBreaker.Enabled = false
		cfg.Bulkhead.Enabled = false
		p := NewPolicy("redis", cfg)

		if _, ok := p.breaker.(*DisabledCircuitBreaker); !ok {
			t.Errorf("breaker = %T, want *DisabledCircuitBreaker", p.breaker)
		}
		if _, ok := p.bulkhead.(*DisabledBulkhead); !ok {
			t.Errorf("bulkhead = %T, want *DisabledBulkhead", p.bulkhead)
		}
	})
}

func TestPolicyExecute(t *testing.T) {
	p := NewPolicy("redis", testConfig())

	if err := p.Execute(context.Background(), succeeding); err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if err := p.Execute(context.Background(), failing); !errors.Is(err, errSink) {
		t.Errorf("Execute() error = %v, want errSink", err)
	}
}

func TestPolicyCircuitBreakerIntegration(t *testing.T) {
	clock := newFakeClock()
	p := NewPolicy("redis", testConfig(), WithClock(clock.Now))

	var mu sync.Mutex
	var transitions []State
	p.SetOnCircuitStateChange(func(_, to State) {
		mu.Lock()
		transitions = append(transitions, to)
		mu.Unlock()
	})

	for i := 0; i < 3; i++ {
		_ = p.Execute(context.Background(), failing)
	}
	if !p.IsCircuitOpen() {
		t.Fatalf("CircuitState() = %v, want open", p.CircuitState())
	}

	err := p.Execute(context.Background(), succeeding)
	if !IsCircuitOpen(err) {
		t.Errorf("Execute() error = %v, want circuit open", err)
	}
	if !IsRejection(err) {
		t.Error("IsRejection() = false for circuit open")
	}

	clock.Advance(time.Minute)
	_ = p.Execute(context.Background(), succeeding)
	_ = p.Execute(context.Background(), succeeding)
	if p.CircuitState() != StateClosed {
		t.Errorf("CircuitState() = %v, want closed", p.CircuitState())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 3 {
		t.Errorf("transitions = %v, want 3", transitions)
	}
}

func TestPolicyBulkheadRejectionsDoNotOpenCircuit(t *testing.T) {
	p := NewPolicy("redis", testConfig())

	blocking := make(chan struct{})
	started := make(chan struct{}, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Execute(context.Background(), func(context.Context) error {
				started <- struct{}{}
				<-blocking
				return nil
			})
		}()
	}
	<-started
	<-started

	for i := 0; i < 5; i++ {
		err := p.Execute(context.Background(), succeeding)
		if !IsBulkheadError(err) {
			t.Errorf("Execute() error = %v, want bulkhead rejection", err)
		}
	}
	close(blocking)
	wg.Wait()

	if p.CircuitState() != StateClosed {
		t.Errorf("CircuitState() = %v, want closed", p.CircuitState())
	}
	if got := p.BulkheadStats().TotalRejected; got != 5 {
		t.Errorf("TotalRejected = %d, want 5", got)
	}
}

func TestDisabledPolicy(t *testing.T) {
	p := NewDisabledPolicy()
	for i := 0; i < 10; i++ {
		_ = p.Execute(context.Background(), failing)
	}
	if p.IsCircuitOpen() {
		t.Error("IsCircuitOpen() = true for disabled policy")
	}
	if err := p.Execute(context.Background(), succeeding); err != nil {
		t.Errorf("Execute() error = %v", err)
	}
}
