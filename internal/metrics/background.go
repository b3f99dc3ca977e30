package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/LavishGent/boardcache/internal/types"
)

// BackgroundPublisher publishes health metrics at regular intervals
// with context-based cancellation support.
type BackgroundPublisher struct {
	publisher types.Publisher
	logger    *slog.Logger
	getHealth func() *types.PublisherHealthMetrics
	cancel    context.CancelFunc
	ctx       context.Context
	wg        sync.WaitGroup
	interval  time.Duration
	mu        sync.Mutex
}

// NewBackgroundPublisher creates a new background publisher.
// The healthFn is called on each interval to get the current health metrics.
func NewBackgroundPublisher(
	publisher types.Publisher,
	interval time.Duration,
	healthFn func() *types.PublisherHealthMetrics,
	logger *slog.Logger,
) *BackgroundPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = NewNoOpPublisher()
	}

	return &BackgroundPublisher{
		publisher: publisher,
		interval:  interval,
		logger:    logger.With("component", "metrics-background"),
		getHealth: healthFn,
	}
}

// Start begins the background publishing loop. Calling Start twice
// without Stop is a no-op.
func (b *BackgroundPublisher) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return
	}

	b.ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go b.run(b.ctx)
	b.logger.Info("background metrics publisher started", "interval", b.interval)
}

// Stop cancels the background context and waits for shutdown.
func (b *BackgroundPublisher) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	b.wg.Wait()
	b.logger.Info("background metrics publisher stopped")
}

// Run starts the loop and blocks until ctx is done, for use under an errgroup.
func (b *BackgroundPublisher) Run(ctx context.Context) error {
	b.Start(ctx)
	<-ctx.Done()
	b.Stop()
	return nil
}

func (b *BackgroundPublisher) run(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final publish before stopping
			b.publish()
			return
		case <-ticker.C:
			b.publish()
		}
	}
}

func (b *BackgroundPublisher) publish() {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("recovered from panic in metrics publisher", "panic", r)
		}
	}()

	if b.getHealth == nil {
		return
	}

	if metrics := b.getHealth(); metrics != nil {
		b.publisher.PublishHealthMetrics(metrics)
	}
}

// PublishNow triggers an immediate metrics publish.
func (b *BackgroundPublisher) PublishNow() {
	b.publish()
}

// HealthFromTracker combines tracker counters with live cache state. state
// returns the snapshot age, whether an error is recorded and whether the
// sink is connected.
func HealthFromTracker(tracker *Tracker, state func() (age time.Duration, hasErr, sinkUp bool)) func() *types.PublisherHealthMetrics {
	return func() *types.PublisherHealthMetrics {
		snap := tracker.Snapshot()
		age, hasErr, sinkUp := state()

		m := &types.PublisherHealthMetrics{
			AverageLatencyMs: snap.AvgLatencyMs,
			MemberCount:      snap.MemberCount,
			SuccessCount:     snap.Successes,
			FailureCount:     snap.Failures(),
			SkippedCount:     snap.Skipped,
			HasData:          age != types.AgeUnknown,
			HasError:         hasErr,
			SinkConnected:    sinkUp,
			DataAgeSeconds:   -1,
		}
		if m.HasData {
			m.DataAgeSeconds = age.Seconds()
		}
		return m
	}
}
