// Package metrics collects refresh metrics and publishes them.
package metrics

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LavishGent/boardcache/internal/types"
)

const (
	// Refreshes run minutes apart, so a small window covers days of history.
	defaultLatencyBufferSize = 1024
)

// Tracker counts refresh outcomes and keeps a window of fetch latencies.
// When a publisher is attached every event is also forwarded to it.
type Tracker struct {
	successes        atomic.Int64
	configErrors     atomic.Int64
	transportErrors  atomic.Int64
	permissionErrors atomic.Int64
	parseErrors      atomic.Int64
	skipped          atomic.Int64

	sinkErrors     atomic.Int64
	cbStateChanges atomic.Int64
	memberCount    atomic.Int64

	latencyMu     sync.RWMutex
	latencyBuffer []time.Duration
	latencyIndex  int
	latencyCount  int

	publisher types.Publisher
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithPublisher forwards each recorded event to p.
func WithPublisher(p types.Publisher) TrackerOption {
	return func(t *Tracker) {
		t.publisher = p
	}
}

// WithLatencyWindow sets how many fetch latencies are kept for percentiles.
func WithLatencyWindow(n int) TrackerOption {
	return func(t *Tracker) {
		if n > 0 {
			t.latencyBuffer = make([]time.Duration, n)
		}
	}
}

func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		latencyBuffer: make([]time.Duration, defaultLatencyBufferSize),
		publisher:     NewNoOpPublisher(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.publisher == nil {
		t.publisher = NewNoOpPublisher()
	}
	return t
}

// RecordRefresh records one completed fetch attempt.
func (t *Tracker) RecordRefresh(outcome types.Outcome, members int, latency time.Duration) {
	switch outcome {
	case types.OutcomeSuccess:
		t.successes.Add(1)
		t.memberCount.Store(int64(members))
		t.publisher.Gauge("refresh.members", float64(members))
	case types.OutcomeConfiguration:
		t.configErrors.Add(1)
	case types.OutcomeTransport:
		t.transportErrors.Add(1)
	case types.OutcomePermission:
		t.permissionErrors.Add(1)
	case types.OutcomeParse:
		t.parseErrors.Add(1)
	case types.OutcomeSkipped:
		t.RecordSkipped()
		return
	}

	t.publisher.Incr("refresh.attempts", OutcomeTag(outcome.String()))
	// Configuration failures never reach the network.
	if outcome != types.OutcomeConfiguration {
		t.recordLatency(latency)
		t.publisher.Timing("refresh.latency", latency, OutcomeTag(outcome.String()))
	}
}

// RecordSkipped records a refresh dropped because another was in flight.
func (t *Tracker) RecordSkipped() {
	t.skipped.Add(1)
	t.publisher.Incr("refresh.skipped")
}

// RecordSinkError records a failed snapshot export.
func (t *Tracker) RecordSinkError(sink string, operation string, err error) {
	t.sinkErrors.Add(1)
	t.publisher.Incr("sink.errors", SinkTag(sink), OperationTag(operation))
}

// RecordCircuitBreakerStateChange records circuit breaker state transitions.
func (t *Tracker) RecordCircuitBreakerStateChange(from, to string) {
	t.cbStateChanges.Add(1)
	t.publisher.Incr("sink.circuit_transitions", Tag("from", from), CircuitStateTag(to))
	if to == "open" {
		t.publisher.Event("Snapshot sink circuit opened",
			"Snapshot export is paused until the sink recovers.", "warning", CircuitStateTag(to))
	}
}

// recordLatency adds a latency measurement using a circular buffer.
func (t *Tracker) recordLatency(latency time.Duration) {
	t.latencyMu.Lock()
	t.latencyBuffer[t.latencyIndex] = latency
	t.latencyIndex = (t.latencyIndex + 1) % len(t.latencyBuffer)
	if t.latencyCount < len(t.latencyBuffer) {
		t.latencyCount++
	}
	t.latencyMu.Unlock()
}

// Snapshot returns current metrics snapshot.
func (t *Tracker) Snapshot() types.MetricsSnapshot {
	t.latencyMu.RLock()
	count := t.latencyCount
	latencies := make([]time.Duration, count)
	if count > 0 {
		if count < len(t.latencyBuffer) {
			copy(latencies, t.latencyBuffer[:count])
		} else {
			// Oldest entry sits at latencyIndex once the ring has wrapped.
			first := len(t.latencyBuffer) - t.latencyIndex
			copy(latencies[:first], t.latencyBuffer[t.latencyIndex:])
			copy(latencies[first:], t.latencyBuffer[:t.latencyIndex])
		}
	}
	t.latencyMu.RUnlock()

	snapshot := types.MetricsSnapshot{
		Timestamp:           time.Now(),
		Successes:           t.successes.Load(),
		ConfigurationErrors: t.configErrors.Load(),
		TransportErrors:     t.transportErrors.Load(),
		PermissionErrors:    t.permissionErrors.Load(),
		ParseErrors:         t.parseErrors.Load(),
		Skipped:             t.skipped.Load(),
		SinkErrors:          t.sinkErrors.Load(),
		CircuitChanges:      t.cbStateChanges.Load(),
		MemberCount:         t.memberCount.Load(),
	}

	if len(latencies) > 0 {
		snapshot.AvgLatencyMs = millis(avgDuration(latencies))
		snapshot.P50LatencyMs = millis(percentile(latencies, 50))
		snapshot.P95LatencyMs = millis(percentile(latencies, 95))
		snapshot.P99LatencyMs = millis(percentile(latencies, 99))
	}

	return snapshot
}

// Reset clears all metrics.
func (t *Tracker) Reset() {
	t.successes.Store(0)
	t.configErrors.Store(0)
	t.transportErrors.Store(0)
	t.permissionErrors.Store(0)
	t.parseErrors.Store(0)
	t.skipped.Store(0)
	t.sinkErrors.Store(0)
	t.cbStateChanges.Store(0)
	t.memberCount.Store(0)

	t.latencyMu.Lock()
	t.latencyIndex = 0
	t.latencyCount = 0
	t.latencyMu.Unlock()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func avgDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func percentile(durations []time.Duration, p int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	sorted := slices.Clone(durations)
	slices.Sort(sorted)

	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

var _ types.MetricsRecorder = (*Tracker)(nil)
