package resilience

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/LavishGent/boardcache/internal/config"
)

// Limiter is the bulkhead surface used by Policy.
type Limiter interface {
	Do(ctx context.Context, fn func(context.Context) error) error
	Stats() BulkheadStats
}

// Bulkhead caps concurrent sink operations. Callers beyond MaxConcurrent
// wait up to AcquireTimeout in a queue of at most MaxQueue.
type Bulkhead struct {
	slots          chan struct{}
	acquireTimeout time.Duration
	maxConcurrent  int
	maxQueue       int

	active   atomic.Int32
	queued   atomic.Int32
	rejected atomic.Int64
	executed atomic.Int64
}

func NewBulkhead(cfg config.BulkheadConfig) *Bulkhead {
	b := &Bulkhead{
		maxConcurrent:  cfg.MaxConcurrent,
		maxQueue:       cfg.MaxQueue,
		acquireTimeout: cfg.AcquireTimeout,
	}
	if b.maxConcurrent <= 0 {
		b.maxConcurrent = 4
	}
	if b.maxQueue < 0 {
		b.maxQueue = 0
	}
	if b.acquireTimeout <= 0 {
		b.acquireTimeout = 100 * time.Millisecond
	}
	b.slots = make(chan struct{}, b.maxConcurrent)
	return b
}

// Do runs fn once a slot is free.
func (b *Bulkhead) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer func() { <-b.slots }()

	b.active.Add(1)
	defer b.active.Add(-1)

	err := fn(ctx)
	b.executed.Add(1)
	return err
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	default:
	}

	if int(b.queued.Add(1)) > b.maxQueue {
		b.queued.Add(-1)
		b.rejected.Add(1)
		return ErrBulkheadFull
	}
	defer b.queued.Add(-1)

	timer := time.NewTimer(b.acquireTimeout)
	defer timer.Stop()

	select {
	case b.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		b.rejected.Add(1)
		return ctx.Err()
	case <-timer.C:
		b.rejected.Add(1)
		return ErrBulkheadTimeout
	}
}

// Stats returns bulkhead statistics.
func (b *Bulkhead) Stats() BulkheadStats {
	return BulkheadStats{
		MaxConcurrent: b.maxConcurrent,
		MaxQueue:      b.maxQueue,
		Active:        int(b.active.Load()),
		Queued:        int(b.queued.Load()),
		TotalExecuted: b.executed.Load(),
		TotalRejected: b.rejected.Load(),
	}
}

// BulkheadStats contains bulkhead statistics.
type BulkheadStats struct {
	MaxConcurrent int
	MaxQueue      int
	Active        int
	Queued        int
	TotalExecuted int64
	TotalRejected int64
}

// DisabledBulkhead runs every call immediately.
type DisabledBulkhead struct{}

func NewDisabledBulkhead() *DisabledBulkhead {
	return &DisabledBulkhead{}
}

func (DisabledBulkhead) Do(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (DisabledBulkhead) Stats() BulkheadStats { return BulkheadStats{} }
