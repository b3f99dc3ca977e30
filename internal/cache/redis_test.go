package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LavishGent/boardcache/internal/config"
	"github.com/LavishGent/boardcache/internal/metrics"
	"github.com/LavishGent/boardcache/internal/resilience"
	"github.com/LavishGent/boardcache/internal/types"
)

func newTestSink(t *testing.T, cfg *config.Config, policy *resilience.Policy, recorder types.MetricsRecorder) *RedisSink {
	t.Helper()
	sink, err := NewRedisSink(cfg.Redis, policy, recorder, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func testSnapshot(t *testing.T) types.Snapshot {
	t.Helper()
	lb, err := types.ParseLeaderboard([]byte(twoMembers))
	require.NoError(t, err)
	return types.Snapshot{Data: lb, FetchedAt: time.Date(2025, 12, 1, 5, 0, 0, 0, time.UTC)}
}

func TestRedisSinkPublish(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.ForTestingWithRedis(mr.Addr())
	sink := newTestSink(t, cfg, nil, nil)

	require.True(t, sink.IsAvailable())
	assert.Equal(t, "redis", sink.Name())

	snap := testSnapshot(t)
	require.NoError(t, sink.Publish(context.Background(), testCode, snap))

	assert.Eventually(t, func() bool { return sink.Writes() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, sink.PendingWrites())

	key := sink.KeyFor(testCode)
	assert.Equal(t, "test:leaderboard:"+testCode, key)

	raw, err := mr.Get(key)
	require.NoError(t, err)

	var record SnapshotRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &record))
	assert.Equal(t, testCode, record.Code)
	assert.Equal(t, snap.Version(), record.Version)
	assert.Equal(t, 2, record.Members)
	require.NotNil(t, record.Leaderboard)
	assert.Len(t, record.Leaderboard.Members, 2)

	assert.Equal(t, cfg.Redis.SnapshotTTL, mr.TTL(key))
}

func TestRedisSinkAnnouncesWrites(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.ForTestingWithRedis(mr.Addr())
	sink := newTestSink(t, cfg, nil, nil)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, cfg.Redis.Channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	snap := testSnapshot(t)
	require.NoError(t, sink.Publish(ctx, testCode, snap))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var notice SnapshotNotice
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &notice))
	assert.Equal(t, testCode, notice.Code)
	assert.Equal(t, sink.KeyFor(testCode), notice.Key)
	assert.Equal(t, snap.Version(), notice.Version)
	assert.Equal(t, 2, notice.Members)
}

func TestRedisSinkSkipsEmptySnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	sink := newTestSink(t, config.ForTestingWithRedis(mr.Addr()), nil, nil)

	require.NoError(t, sink.Publish(context.Background(), testCode, types.Snapshot{Err: "HTTP 500: Internal Server Error"}))
	assert.False(t, mr.Exists(sink.KeyFor(testCode)))
}

func TestRedisSinkUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.ForTestingWithRedis(addr)
	cfg.Redis.DialTimeout = 100 * time.Millisecond
	sink := newTestSink(t, cfg, nil, nil)

	assert.False(t, sink.IsAvailable())
	err := sink.Publish(context.Background(), testCode, testSnapshot(t))
	assert.ErrorIs(t, err, types.ErrSinkUnavailable)

	lastErr, at := sink.LastError()
	assert.Error(t, lastErr)
	assert.False(t, at.IsZero())
}

func TestRedisSinkHealthCheckReconnects(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.ForTestingWithRedis(mr.Addr())
	cfg.Redis.HealthCheckInterval = 10 * time.Millisecond
	sink := newTestSink(t, cfg, nil, nil)
	require.True(t, sink.IsAvailable())

	mr.SetError("LOADING")
	assert.Eventually(t, func() bool { return !sink.IsAvailable() }, 2*time.Second, 5*time.Millisecond)

	mr.SetError("")
	assert.Eventually(t, sink.IsAvailable, 2*time.Second, 5*time.Millisecond)
}

func TestRedisSinkQueueFull(t *testing.T) {
	sink := &RedisSink{
		writeQueue: make(chan writeOp, 1),
		logger:     slog.Default(),
	}

	require.NoError(t, sink.enqueue(writeOp{key: "a"}))
	assert.ErrorIs(t, sink.enqueue(writeOp{key: "b"}), types.ErrWriteQueueFull)
	assert.Equal(t, 1, sink.PendingWrites())
	assert.EqualValues(t, 1, sink.DroppedWrites())
}

func TestRedisSinkEnqueueAfterClose(t *testing.T) {
	sink := &RedisSink{
		writeQueue: make(chan writeOp, 1),
		logger:     slog.Default(),
	}
	sink.closed.Store(true)

	assert.ErrorIs(t, sink.enqueue(writeOp{key: "a"}), types.ErrClosed)
	assert.Zero(t, sink.PendingWrites())
}

func TestRedisSinkPublishRacingClose(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.ForTestingWithRedis(mr.Addr())
	cfg.Redis.MaxPendingWrites = 64
	sink, err := NewRedisSink(cfg.Redis, nil, nil, nil)
	require.NoError(t, err)

	snap := testSnapshot(t)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
				err := sink.Publish(context.Background(), testCode, snap)
				if err != nil && !errors.Is(err, types.ErrClosed) &&
					!errors.Is(err, types.ErrWriteQueueFull) && !errors.Is(err, types.ErrSinkUnavailable) {
					t.Errorf("Publish() unexpected error: %v", err)
				}
			}
		}()
	}

	close(start)
	require.NoError(t, sink.Close())
	wg.Wait()

	assert.Zero(t, sink.PendingWrites())
}

func TestRedisSinkCircuitOpensOnWriteFailures(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.ForTestingWithRedis(mr.Addr())
	cfg.CircuitBreaker.Enabled = true
	cfg.CircuitBreaker.FailureThreshold = 2
	cfg.CircuitBreaker.OpenDuration = time.Minute
	policy := resilience.NewPolicy("test-sink", cfg)
	tracker := metrics.NewTracker()
	sink := newTestSink(t, cfg, policy, tracker)

	mr.SetError("READONLY You can't write against a read only replica.")
	for i := 0; i < 2; i++ {
		require.NoError(t, sink.Publish(context.Background(), testCode, testSnapshot(t)))
	}

	assert.Eventually(t, policy.IsCircuitOpen, 10*time.Second, 10*time.Millisecond)
	assert.False(t, sink.IsAvailable())
	assert.Eventually(t, func() bool { return tracker.Snapshot().SinkErrors >= 2 }, 10*time.Second, 10*time.Millisecond)
}

func TestRedisSinkClose(t *testing.T) {
	mr := miniredis.RunT(t)
	sink, err := NewRedisSink(config.ForTestingWithRedis(mr.Addr()).Redis, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, sink.Publish(context.Background(), testCode, testSnapshot(t)))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	// Queued writes are drained before the client closes.
	assert.True(t, mr.Exists(sink.KeyFor(testCode)))
	assert.False(t, sink.IsAvailable())
	assert.ErrorIs(t, sink.Publish(context.Background(), testCode, testSnapshot(t)), types.ErrClosed)
}

func TestRefreshingCacheExportsToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	_, server := newFakeUpstream(t)

	cfg := config.ForTestingWithRedis(mr.Addr())
	cfg.Upstream.BaseURL = server.URL
	c := newTestCacheWithConfig(t, cfg)

	c.Initialize(context.Background(), testCode, testCookie)

	assert.Eventually(t, func() bool { return mr.Exists("test:leaderboard:" + testCode) }, 2*time.Second, 5*time.Millisecond)

	h := c.Health()
	assert.Equal(t, "redis", h.Sink.Name)
	assert.True(t, h.Sink.Available)

	require.NoError(t, c.Close())
	assert.False(t, c.sink.IsAvailable())
}
