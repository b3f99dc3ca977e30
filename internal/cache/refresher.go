// Package cache holds the refreshing leaderboard cache and the stores that
// sit around it: the rendered-response cache and the Redis snapshot sink.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LavishGent/boardcache/internal/config"
	"github.com/LavishGent/boardcache/internal/metrics"
	"github.com/LavishGent/boardcache/internal/resilience"
	"github.com/LavishGent/boardcache/internal/types"
	"github.com/LavishGent/boardcache/internal/upstream"
)

// DefaultShutdownTimeout bounds how long Close waits for an in-flight fetch.
const DefaultShutdownTimeout = 30 * time.Second

// RefreshingCache keeps the most recent leaderboard fetched from the upstream
// and refreshes it on a fixed interval. Readers never block and always see
// the data, fetch time and error of one attempt together.
type RefreshingCache struct {
	fetcher   types.Fetcher
	sink      types.SnapshotSink
	policy    *resilience.Policy
	metrics   types.MetricsRecorder
	logger    *slog.Logger
	now       func() time.Time
	listeners []types.RefreshListener

	interval     time.Duration
	fetchTimeout time.Duration

	snapshot    atomic.Pointer[types.Snapshot]
	credentials atomic.Pointer[types.Credentials]
	fetching    atomic.Bool

	schedMu  sync.Mutex
	cancel   context.CancelFunc
	loopWg   sync.WaitGroup
	inflight sync.WaitGroup

	ownsSink bool
	closed   atomic.Bool
}

// New builds an empty cache. Nothing is fetched until Initialize is called.
func New(cfg *config.Config, opts ...types.Option) (*RefreshingCache, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	options := types.ApplyOptions(opts...)

	logger := slog.Default()
	if options.Logger != nil {
		logger = slog.New(slogAdapter{logger: options.Logger})
	}
	logger = logger.With("component", "refreshing-cache")

	c := &RefreshingCache{
		metrics:      options.Metrics,
		logger:       logger,
		now:          options.Now,
		listeners:    options.Listeners,
		interval:     cfg.Refresh.Interval,
		fetchTimeout: cfg.Refresh.FetchTimeout,
	}
	if c.metrics == nil {
		c.metrics = metrics.NewNoOpTracker()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if options.Interval > 0 {
		c.interval = options.Interval
	}
	if c.interval <= 0 {
		c.interval = config.DefaultRefreshInterval
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = config.DefaultFetchTimeout
	}

	c.fetcher = options.Fetcher
	if c.fetcher == nil {
		client, err := upstream.NewClient(cfg.Upstream,
			upstream.WithHTTPClient(options.HTTPClient),
			upstream.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		c.fetcher = client
	}

	c.policy = resilience.NewPolicy("snapshot-sink", cfg)
	c.policy.SetOnCircuitStateChange(func(from, to resilience.State) {
		logger.Info("Circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
		c.metrics.RecordCircuitBreakerStateChange(from.String(), to.String())
	})

	switch {
	case options.Sink != nil:
		c.sink = options.Sink
	case cfg.Redis.Enabled && !options.DisableSink:
		sink, err := NewRedisSink(cfg.Redis, c.policy, c.metrics, logger)
		if err != nil {
			logger.Warn("Failed to create Redis sink, snapshots will not be exported", "error", err)
			c.sink = NewDisabledSink()
		} else {
			c.sink = sink
			c.ownsSink = true
		}
	default:
		c.sink = NewDisabledSink()
	}

	c.snapshot.Store(&types.Snapshot{})
	c.credentials.Store(&types.Credentials{})

	return c, nil
}

// Initialize stores the credentials, performs one fetch and waits for it,
// then replaces any running schedule with a new one. A failed first fetch is
// recorded in Err and retried on the next tick.
func (c *RefreshingCache) Initialize(ctx context.Context, leaderboardCode, sessionCookie string) {
	c.credentials.Store(&types.Credentials{
		LeaderboardCode: leaderboardCode,
		SessionCookie:   types.NewSecretString(sessionCookie),
	})

	c.Refresh(ctx)

	c.schedMu.Lock()
	defer c.schedMu.Unlock()
	if c.closed.Load() {
		return
	}
	c.stopLocked()

	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.loopWg.Add(1)
	go c.loop(loopCtx, c.interval)

	c.logger.Info("Refresh scheduled", "interval", c.interval)
}

// Refresh runs one fetch attempt. It returns false without doing anything
// when another attempt is already in flight.
func (c *RefreshingCache) Refresh(ctx context.Context) bool {
	if !c.fetching.CompareAndSwap(false, true) {
		c.metrics.RecordSkipped()
		c.logger.Debug("Refresh skipped, fetch already in flight")
		return false
	}
	defer c.fetching.Store(false)

	creds := *c.credentials.Load()
	start := c.now()

	var (
		lb  *types.Leaderboard
		err error
	)
	if !creds.IsComplete() {
		err = types.NewConfigurationError(nil)
	} else {
		fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		lb, err = c.fetcher.Fetch(fetchCtx, creds)
		cancel()
		if err == nil && lb == nil {
			err = types.NewParseError(errors.New("empty response"))
		}
	}
	elapsed := c.now().Sub(start)

	result := types.RefreshResult{Elapsed: elapsed, Code: creds.LeaderboardCode}
	if err != nil {
		result.Outcome = types.KindOf(err).Outcome()
		result.Snapshot = c.recordFailure(err)
		c.logFailure(err, elapsed)
		c.metrics.RecordRefresh(result.Outcome, 0, elapsed)
	} else {
		result.Outcome = types.OutcomeSuccess
		result.Snapshot = c.recordSuccess(lb)
		c.logger.Info("Leaderboard refreshed",
			"members", lb.MemberCount(),
			"elapsed", elapsed,
		)
		c.metrics.RecordRefresh(types.OutcomeSuccess, lb.MemberCount(), elapsed)
		c.export(ctx, creds.LeaderboardCode, result.Snapshot)
	}

	c.notify(result)
	return true
}

func (c *RefreshingCache) recordSuccess(lb *types.Leaderboard) types.Snapshot {
	next := &types.Snapshot{Data: lb, FetchedAt: c.now(), Seq: c.snapshot.Load().Seq + 1}
	c.snapshot.Store(next)
	return *next
}

// recordFailure keeps the previous data and fetch time. Only one attempt
// runs at a time, so the load and store cannot interleave with another write.
func (c *RefreshingCache) recordFailure(err error) types.Snapshot {
	next := *c.snapshot.Load()
	next.Err = err.Error()
	c.snapshot.Store(&next)
	return next
}

func (c *RefreshingCache) logFailure(err error, elapsed time.Duration) {
	kind := types.KindOf(err)
	if kind == types.KindConfiguration {
		c.logger.Warn("Leaderboard refresh skipped, missing configuration", "error", err)
		return
	}
	c.logger.Error("Leaderboard refresh failed",
		"kind", kind.String(),
		"error", err,
		"elapsed", elapsed,
		"serving_stale", c.snapshot.Load().HasData(),
	)
}

func (c *RefreshingCache) export(ctx context.Context, code string, snap types.Snapshot) {
	if !c.sink.IsAvailable() {
		return
	}
	if err := c.sink.Publish(ctx, code, snap); err != nil {
		c.metrics.RecordSinkError(c.sink.Name(), "publish", err)
		c.logger.Debug("Snapshot export failed", "sink", c.sink.Name(), "error", err)
	}
}

func (c *RefreshingCache) notify(result types.RefreshResult) {
	for _, listener := range c.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("Recovered from panic in refresh listener", "panic", r)
				}
			}()
			listener(result)
		}()
	}
}

func (c *RefreshingCache) loop(ctx context.Context, interval time.Duration) {
	defer c.loopWg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.inflight.Add(1)
			go func() {
				defer c.inflight.Done()
				// Stopping the schedule must not abort a fetch already under way.
				c.Refresh(context.WithoutCancel(ctx))
			}()
		}
	}
}

// Stop cancels the refresh schedule. It is safe to call more than once and
// before Initialize. A fetch already in flight still completes and records
// its result.
func (c *RefreshingCache) Stop() {
	c.schedMu.Lock()
	defer c.schedMu.Unlock()
	c.stopLocked()
}

func (c *RefreshingCache) stopLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
	c.loopWg.Wait()
	c.logger.Debug("Refresh schedule stopped")
}

// Close stops the schedule and releases the sink using the default timeout.
func (c *RefreshingCache) Close() error {
	return c.CloseWithTimeout(DefaultShutdownTimeout)
}

// CloseWithTimeout stops the schedule, waits up to timeout for an in-flight
// fetch, then closes the sink if the cache created it.
func (c *RefreshingCache) CloseWithTimeout(timeout time.Duration) error {
	c.schedMu.Lock()
	if c.closed.Swap(true) {
		c.schedMu.Unlock()
		return nil
	}
	c.stopLocked()
	c.schedMu.Unlock()

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()

	var errs []error
	select {
	case <-done:
	case <-time.After(timeout):
		c.logger.Warn("Shutdown timeout exceeded, closing with fetch in flight", "timeout", timeout)
		errs = append(errs, types.ErrShutdownTimeout)
	}

	if c.ownsSink {
		if err := c.sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Data returns the last successfully fetched leaderboard, or nil.
func (c *RefreshingCache) Data() *types.Leaderboard {
	return c.snapshot.Load().Data
}

// Err returns the message of the last failed attempt. It is empty after a
// success and before any attempt.
func (c *RefreshingCache) Err() string {
	return c.snapshot.Load().Err
}

// LastFetchedAt returns the time of the last successful fetch; zero means never.
func (c *RefreshingCache) LastFetchedAt() time.Time {
	return c.snapshot.Load().FetchedAt
}

// Age returns the time since the last successful fetch, or types.AgeUnknown.
func (c *RefreshingCache) Age() time.Duration {
	return c.snapshot.Load().Age(c.now())
}

// Snapshot returns the data, fetch time and error as one consistent value.
func (c *RefreshingCache) Snapshot() types.Snapshot {
	return *c.snapshot.Load()
}

// IsFetching reports whether an attempt is in flight.
func (c *RefreshingCache) IsFetching() bool {
	return c.fetching.Load()
}

// IsScheduled reports whether the recurring refresh is armed.
func (c *RefreshingCache) IsScheduled() bool {
	c.schedMu.Lock()
	defer c.schedMu.Unlock()
	return c.cancel != nil
}

// Interval returns the refresh period.
func (c *RefreshingCache) Interval() time.Duration {
	return c.interval
}

// Health summarizes freshness and sink state.
func (c *RefreshingCache) Health() *types.HealthMetrics {
	snap := c.Snapshot()
	now := c.now()

	h := &types.HealthMetrics{
		Timestamp: now,
		Refresh: types.RefreshHealthMetrics{
			LastFetchedAt: snap.FetchedAt,
			Interval:      c.interval,
			AgeSeconds:    -1,
			LastError:     snap.Err,
			MemberCount:   snap.Data.MemberCount(),
			Scheduled:     c.IsScheduled(),
			Fetching:      c.IsFetching(),
			HasData:       snap.HasData(),
		},
		Sink: types.SinkHealthMetrics{
			Name:                c.sink.Name(),
			Available:           c.sink.IsAvailable(),
			CircuitBreakerState: c.policy.CircuitState().String(),
			PendingWrites:       c.sink.PendingWrites(),
			DroppedWrites:       c.sink.DroppedWrites(),
		},
	}
	if age := snap.Age(now); age != types.AgeUnknown {
		h.Refresh.AgeSeconds = age.Seconds()
	}

	switch {
	case !snap.HasData():
		h.Status = types.HealthStatusUnhealthy
	case snap.Err != "":
		h.Status = types.HealthStatusDegraded
	default:
		h.Status = types.HealthStatusHealthy
	}

	return h
}

// HealthState reports the snapshot age, whether an error is recorded and
// whether the sink is connected, in the form metrics.HealthFromTracker takes.
func (c *RefreshingCache) HealthState() (age time.Duration, hasErr, sinkUp bool) {
	snap := c.snapshot.Load()
	return snap.Age(c.now()), snap.Err != "", c.sink.IsAvailable()
}
