package types

import (
	"net/http"
	"time"
)

// RefreshListener is called after every completed refresh attempt.
type RefreshListener func(result RefreshResult)

// CacheOptions holds the collaborators of a refreshing cache.
type CacheOptions struct {
	// Logger is the structured logger to use.
	Logger Logger

	// Metrics is the metrics recorder.
	Metrics MetricsRecorder

	// Fetcher overrides the upstream HTTP client.
	Fetcher Fetcher

	// HTTPClient is used by the default upstream client.
	HTTPClient *http.Client

	// Sink receives successful snapshots.
	Sink SnapshotSink

	// Listeners are notified after each refresh attempt.
	Listeners []RefreshListener

	// Now overrides the clock.
	Now func() time.Time

	// Interval overrides the configured refresh interval.
	Interval time.Duration

	// DisableSink skips building the Redis sink from config.
	DisableSink bool
}

// Option is a functional option for configuring a refreshing cache.
type Option func(*CacheOptions)

// ApplyOptions applies functional options to create CacheOptions.
func ApplyOptions(opts ...Option) *CacheOptions {
	options := &CacheOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
