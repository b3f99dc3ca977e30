package cache

import (
	"context"
	"crypto/tls"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LavishGent/boardcache/internal/config"
	"github.com/LavishGent/boardcache/internal/metrics"
	"github.com/LavishGent/boardcache/internal/resilience"
	"github.com/LavishGent/boardcache/internal/types"
)

const (
	disconnectErrorThreshold = 5
	writeTimeout             = 2 * time.Second
)

// SnapshotRecord is the value stored under a leaderboard's key.
type SnapshotRecord struct {
	FetchedAt   time.Time          `json:"fetched_at"`
	Leaderboard *types.Leaderboard `json:"leaderboard"`
	Code        string             `json:"code"`
	Version     string             `json:"version"`
	Members     int                `json:"members"`
}

// SnapshotNotice is published on the refresh channel after each write.
type SnapshotNotice struct {
	FetchedAt time.Time `json:"fetched_at"`
	Code      string    `json:"code"`
	Version   string    `json:"version"`
	Key       string    `json:"key"`
	Members   int       `json:"members"`
}

// RedisSink exports successful snapshots to Redis. Writes are queued and
// applied by a single worker so a slow or absent Redis never delays a
// refresh. The sink is write-only; nothing is read back.
type RedisSink struct {
	client     *redis.Client
	config     config.RedisConfig
	policy     *resilience.Policy
	recorder   types.MetricsRecorder
	serializer types.Serializer
	logger     *slog.Logger

	mu            sync.RWMutex
	connected     atomic.Bool
	lastError     error
	lastErrorTime time.Time
	errorCount    atomic.Int64

	// queueMu orders enqueues against Close so nothing lands in writeQueue
	// after the worker's final drain.
	queueMu       sync.RWMutex
	writeQueue    chan writeOp
	pendingWrites atomic.Int32
	droppedWrites atomic.Int64
	writes        atomic.Int64
	stopCh        chan struct{}
	wg            sync.WaitGroup

	healthCheckStopCh chan struct{}
	healthCheckWg     sync.WaitGroup

	closeOnce sync.Once
	closed    atomic.Bool
}

type writeOp struct {
	key    string
	value  []byte
	notice []byte
	ttl    time.Duration
}

// NewRedisSink connects to Redis and starts the write and health-check
// workers. A failed initial ping leaves the sink disconnected rather than
// returning an error; the health check reconnects it later.
func NewRedisSink(cfg config.RedisConfig, policy *resilience.Policy, recorder types.MetricsRecorder, logger *slog.Logger) (*RedisSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == nil {
		policy = resilience.NewDisabledPolicy()
	}
	if recorder == nil {
		recorder = metrics.NewNoOpTracker()
	}
	if cfg.MaxPendingWrites <= 0 {
		cfg.MaxPendingWrites = 1
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password.Value(),
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
	}

	if cfg.EnableTLS {
		opts.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in via config
		}
		if cfg.TLSSkipVerify {
			logger.Warn("TLS certificate verification is disabled - this is insecure for production use")
		}
	}

	s := &RedisSink{
		client:            redis.NewClient(opts),
		config:            cfg,
		policy:            policy,
		recorder:          recorder,
		serializer:        NewJSONSerializer(),
		logger:            logger.With("component", "redis-sink"),
		writeQueue:        make(chan writeOp, cfg.MaxPendingWrites),
		stopCh:            make(chan struct{}),
		healthCheckStopCh: make(chan struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		s.logger.Warn("Redis initial connection failed", "error", err)
		s.setError(err)
	} else {
		s.connected.Store(true)
		s.logger.Info("Redis connected", "address", cfg.Address)
	}

	s.wg.Add(1)
	go s.asyncWriteWorker()

	if cfg.HealthCheckInterval > 0 {
		s.healthCheckWg.Add(1)
		go s.healthCheckWorker()
	}

	return s, nil
}

func (s *RedisSink) Name() string {
	return "redis"
}

// IsAvailable reports whether Redis is connected and the circuit is not open.
func (s *RedisSink) IsAvailable() bool {
	return s.connected.Load() && !s.policy.IsCircuitOpen()
}

// KeyFor returns the Redis key holding code's latest snapshot.
func (s *RedisSink) KeyFor(code string) string {
	return s.config.KeyPrefix + "leaderboard:" + code
}

// Publish queues snap for export. It never blocks; when the queue is full
// the snapshot is dropped and ErrWriteQueueFull is returned.
func (s *RedisSink) Publish(ctx context.Context, code string, snap types.Snapshot) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	if !snap.HasData() {
		return nil
	}
	if !s.connected.Load() {
		return types.ErrSinkUnavailable
	}

	key := s.KeyFor(code)
	members := snap.Data.MemberCount()

	value, err := s.serializer.Marshal(SnapshotRecord{
		Code:        code,
		Version:     snap.Version(),
		FetchedAt:   snap.FetchedAt,
		Members:     members,
		Leaderboard: snap.Data,
	})
	if err != nil {
		return err
	}
	notice, err := s.serializer.Marshal(SnapshotNotice{
		Code:      code,
		Version:   snap.Version(),
		FetchedAt: snap.FetchedAt,
		Key:       key,
		Members:   members,
	})
	if err != nil {
		return err
	}

	return s.enqueue(writeOp{key: key, value: value, notice: notice, ttl: s.config.SnapshotTTL})
}

func (s *RedisSink) enqueue(op writeOp) error {
	s.queueMu.RLock()
	defer s.queueMu.RUnlock()
	if s.closed.Load() {
		return types.ErrClosed
	}

	select {
	case s.writeQueue <- op:
		s.pendingWrites.Add(1)
		return nil
	default:
		s.droppedWrites.Add(1)
		s.logger.Warn("Write queue full, dropping snapshot",
			"key", op.key,
			"dropped_total", s.droppedWrites.Load(),
		)
		return types.ErrWriteQueueFull
	}
}

func (s *RedisSink) asyncWriteWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			for {
				select {
				case op := <-s.writeQueue:
					s.executeWrite(op)
				default:
					return
				}
			}
		case op := <-s.writeQueue:
			s.executeWrite(op)
		}
	}
}

// executeWrite stores the record and announces it in one transaction.
func (s *RedisSink) executeWrite(op writeOp) {
	defer s.pendingWrites.Add(-1)

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err := s.policy.Execute(ctx, func(ctx context.Context) error {
		pipe := s.client.TxPipeline()
		pipe.Set(ctx, op.key, op.value, op.ttl)
		if s.config.Channel != "" {
			pipe.Publish(ctx, s.config.Channel, op.notice)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		if !resilience.IsRejection(err) {
			s.handleError(err)
		}
		s.recorder.RecordSinkError(s.Name(), "write", err)
		s.logger.Debug("Snapshot write failed", "key", op.key, "error", err)
		return
	}

	s.writes.Add(1)
	s.clearError()
}

func (s *RedisSink) healthCheckWorker() {
	defer s.healthCheckWg.Done()

	ticker := time.NewTicker(s.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.healthCheckStopCh:
			return
		case <-ticker.C:
			s.performHealthCheck()
		}
	}
}

func (s *RedisSink) performHealthCheck() {
	wasConnected := s.connected.Load()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.DialTimeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		if wasConnected {
			s.logger.Warn("Redis health check failed", "error", err)
			s.setError(err)
		}
		return
	}

	if !wasConnected {
		s.connected.Store(true)
		s.errorCount.Store(0)
		s.logger.Info("Redis connection restored via health check")
	}
}

// Close drains queued writes and closes the client. It is idempotent.
func (s *RedisSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.queueMu.Lock()
		s.closed.Store(true)
		s.queueMu.Unlock()

		close(s.healthCheckStopCh)
		s.healthCheckWg.Wait()

		close(s.stopCh)
		s.wg.Wait()

		s.connected.Store(false)
		err = s.client.Close()
	})
	return err
}

func (s *RedisSink) PendingWrites() int {
	return int(s.pendingWrites.Load())
}

func (s *RedisSink) DroppedWrites() int64 {
	return s.droppedWrites.Load()
}

// Writes returns the number of snapshots stored successfully.
func (s *RedisSink) Writes() int64 {
	return s.writes.Load()
}

func (s *RedisSink) handleError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastError = err
	s.lastErrorTime = time.Now()
	count := s.errorCount.Add(1)

	if count >= disconnectErrorThreshold {
		if s.connected.CompareAndSwap(true, false) {
			s.logger.Warn("Redis marked as disconnected after errors",
				"error_count", count,
				"last_error", err,
			)
		}
	}
}

func (s *RedisSink) clearError() {
	if s.errorCount.Swap(0) > 0 {
		if s.connected.CompareAndSwap(false, true) {
			s.logger.Info("Redis connection restored")
		}
	}
}

func (s *RedisSink) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
	s.lastErrorTime = time.Now()
	s.connected.Store(false)
}

// LastError returns the most recent Redis error and when it happened.
func (s *RedisSink) LastError() (error, time.Time) { //nolint:revive // mirrors the pair stored together
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError, s.lastErrorTime
}

func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ types.SnapshotSink = (*RedisSink)(nil)
