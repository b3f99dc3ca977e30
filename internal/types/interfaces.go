package types

import (
	"context"
	"time"
)

// Fetcher retrieves a leaderboard from the upstream API. Failures are
// reported as *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, creds Credentials) (*Leaderboard, error)
}

// SnapshotSink receives successful snapshots for export outside the process.
type SnapshotSink interface {
	Name() string
	IsAvailable() bool
	Publish(ctx context.Context, code string, snap Snapshot) error
	PendingWrites() int
	DroppedWrites() int64
	Close() error
}

// RenderStore holds encoded leaderboards keyed by snapshot version.
type RenderStore interface {
	Name() string
	IsAvailable() bool
	Get(version string) ([]byte, error)
	Set(version string, body []byte) error
	Stats() RenderStats
	EntryCount() int
	Close() error
}

type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, dest interface{}) error
}

type MetricsRecorder interface {
	RecordRefresh(outcome Outcome, members int, latency time.Duration)
	RecordSkipped()
	RecordSinkError(sink string, operation string, err error)
	RecordCircuitBreakerStateChange(from, to string)
}

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type Publisher interface {
	Gauge(name string, value float64, tags ...string)
	Incr(name string, tags ...string)
	Count(name string, value int64, tags ...string)
	Histogram(name string, value float64, tags ...string)
	Timing(name string, duration time.Duration, tags ...string)
	Event(title, text string, alertType string, tags ...string)
	PublishHealthMetrics(metrics *PublisherHealthMetrics)
	Close() error
}

type PublisherHealthMetrics struct {
	DataAgeSeconds   float64
	AverageLatencyMs float64
	MemberCount      int64
	SuccessCount     int64
	FailureCount     int64
	SkippedCount     int64
	HasData          bool
	HasError         bool
	SinkConnected    bool
}

// RenderStats counts render cache activity.
type RenderStats struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Evictions int64
}
