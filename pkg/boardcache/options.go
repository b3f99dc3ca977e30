package boardcache

import (
	"net/http"
	"time"

	"github.com/LavishGent/boardcache/internal/types"
)

type (
	Option       = types.Option
	CacheOptions = types.CacheOptions
)

func WithLogger(logger Logger) Option {
	return func(o *CacheOptions) {
		o.Logger = logger
	}
}

func WithMetrics(metrics MetricsRecorder) Option {
	return func(o *CacheOptions) {
		o.Metrics = metrics
	}
}

// WithFetcher replaces the upstream HTTP client.
func WithFetcher(fetcher Fetcher) Option {
	return func(o *CacheOptions) {
		o.Fetcher = fetcher
	}
}

// WithHTTPClient sets the client used by the default fetcher.
func WithHTTPClient(client *http.Client) Option {
	return func(o *CacheOptions) {
		o.HTTPClient = client
	}
}

// WithSink exports successful snapshots to sink. The cache does not close it.
func WithSink(sink SnapshotSink) Option {
	return func(o *CacheOptions) {
		o.Sink = sink
	}
}

// WithoutSink skips the Redis sink even when it is enabled in config.
func WithoutSink() Option {
	return func(o *CacheOptions) {
		o.DisableSink = true
	}
}

// WithOnRefresh registers a listener for every completed refresh attempt.
func WithOnRefresh(listener RefreshListener) Option {
	return func(o *CacheOptions) {
		o.Listeners = append(o.Listeners, listener)
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *CacheOptions) {
		o.Now = now
	}
}

func WithInterval(interval time.Duration) Option {
	return func(o *CacheOptions) {
		o.Interval = interval
	}
}
