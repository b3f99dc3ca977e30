package config

import "time"

const (
	// DefaultBaseURL is the upstream leaderboard host.
	DefaultBaseURL = "https://adventofcode.com"
	// DefaultYear is the event year used in the upstream path.
	DefaultYear = 2025
	// DefaultUserAgent identifies this client to the upstream.
	DefaultUserAgent = "github.com/LavishGent/boardcache"
	// DefaultPermissionMarker is the text of the upstream denial page.
	DefaultPermissionMarker = "You don't have permission"
	// DefaultRefreshInterval is the fixed refresh period.
	DefaultRefreshInterval = 15 * time.Minute
	// DefaultFetchTimeout bounds a single upstream request.
	DefaultFetchTimeout = 30 * time.Second
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:          DefaultBaseURL,
			Year:             DefaultYear,
			UserAgent:        DefaultUserAgent,
			PermissionMarker: DefaultPermissionMarker,
			MaxBodyBytes:     10 * 1024 * 1024, // 10MB
		},
		Refresh: RefreshConfig{
			Interval:     DefaultRefreshInterval,
			FetchTimeout: DefaultFetchTimeout,
		},
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			EnableWebSocket:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Render: RenderConfig{
			Enabled:         true,
			MaxSizeMB:       32,
			LifeWindow:      2 * DefaultRefreshInterval,
			CleanupInterval: time.Minute,
			Shards:          16,
			MaxEntrySize:    1024 * 1024, // 1MB
		},
		Redis: RedisConfig{
			Enabled:             false,
			Address:             "localhost:6379",
			Password:            SecretString{},
			DB:                  0,
			KeyPrefix:           "boardcache:",
			Channel:             "boardcache:refreshed",
			SnapshotTTL:         24 * time.Hour,
			PoolSize:            10,
			MinIdleConns:        1,
			DialTimeout:         5 * time.Second,
			ReadTimeout:         3 * time.Second,
			WriteTimeout:        3 * time.Second,
			PoolTimeout:         4 * time.Second,
			MaxPendingWrites:    16,
			EnableTLS:           false,
			TLSSkipVerify:       false,
			HealthCheckInterval: 30 * time.Second,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:             true,
			FailureThreshold:    5,
			SuccessThreshold:    2,
			OpenDuration:        30 * time.Second,
			HalfOpenMaxRequests: 2,
		},
		Bulkhead: BulkheadConfig{
			Enabled:        true,
			MaxConcurrent:  4,
			MaxQueue:       4,
			AcquireTimeout: 100 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			PublishInterval: 30 * time.Second,
			DataDog: DataDogConfig{
				Enabled:   false,
				AgentHost: "127.0.0.1",
				Port:      8125,
				Prefix:    "boardcache",
				Tags:      []string{},
			},
		},
	}
}

// ForTesting returns a minimal configuration suitable for unit tests.
func ForTesting() *Config {
	cfg := DefaultConfig()
	cfg.Upstream.BaseURL = "http://127.0.0.1:0"
	cfg.Refresh.Interval = time.Hour
	cfg.Refresh.FetchTimeout = 2 * time.Second
	cfg.Server.Address = "127.0.0.1:0"
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "text"
	cfg.Render.MaxSizeMB = 4
	cfg.Render.Shards = 4
	cfg.Render.LifeWindow = time.Minute
	cfg.Render.CleanupInterval = time.Second
	cfg.Redis.Enabled = false // Disabled for unit tests
	cfg.Redis.KeyPrefix = "test:"
	cfg.Redis.DialTimeout = time.Second
	cfg.Redis.ReadTimeout = time.Second
	cfg.Redis.WriteTimeout = time.Second
	cfg.Redis.PoolTimeout = time.Second
	cfg.Redis.HealthCheckInterval = 0
	cfg.CircuitBreaker.Enabled = false
	cfg.CircuitBreaker.OpenDuration = time.Second
	cfg.Bulkhead.Enabled = false
	cfg.Metrics.Enabled = false
	cfg.Metrics.PublishInterval = time.Second
	return cfg
}

// ForTestingWithRedis returns a test config with the Redis sink enabled.
func ForTestingWithRedis(addr string) *Config {
	cfg := ForTesting()
	cfg.Redis.Enabled = true
	cfg.Redis.Address = addr
	return cfg
}
