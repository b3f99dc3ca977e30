package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Load loads configuration from a JSON file.
// If the file doesn't exist, returns default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, use defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a JSON file and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

//nolint:gocyclo // Environment variable parsing requires many conditional checks
func applyEnvOverrides(cfg *Config) {
	// Credential names are shared with the page layer of earlier deployments.
	if v := os.Getenv("AOC_LEADERBOARD_CODE"); v != "" {
		cfg.Upstream.LeaderboardCode = strings.TrimSpace(v)
	}
	if v := os.Getenv("AOC_SESSION_COOKIE"); v != "" {
		cfg.Upstream.SessionCookie = NewSecretString(strings.TrimSpace(v))
	}
	if v := os.Getenv("AOC_JOIN_CODE"); v != "" {
		cfg.Upstream.JoinCode = strings.TrimSpace(v)
	}
	if v := os.Getenv("AOC_YEAR"); v != "" {
		cfg.Upstream.Year = parseInt(v, cfg.Upstream.Year)
	}

	if v := os.Getenv("BOARDCACHE_UPSTREAM_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("BOARDCACHE_UPSTREAM_USER_AGENT"); v != "" {
		cfg.Upstream.UserAgent = v
	}

	if v := os.Getenv("BOARDCACHE_REFRESH_INTERVAL"); v != "" {
		cfg.Refresh.Interval = parseDuration(v, cfg.Refresh.Interval)
	}
	if v := os.Getenv("BOARDCACHE_FETCH_TIMEOUT"); v != "" {
		cfg.Refresh.FetchTimeout = parseDuration(v, cfg.Refresh.FetchTimeout)
	}

	if v := os.Getenv("BOARDCACHE_SERVER_ADDR"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("PORT"); v != "" && os.Getenv("BOARDCACHE_SERVER_ADDR") == "" {
		cfg.Server.Address = ":" + strings.TrimSpace(v)
	}
	if v := os.Getenv("BOARDCACHE_SERVER_PATH_PREFIX"); v != "" {
		cfg.Server.PathPrefix = v
	}
	if v := os.Getenv("BOARDCACHE_SERVER_CORS_ORIGIN"); v != "" {
		cfg.Server.CORSOrigin = v
	}
	if v := os.Getenv("BOARDCACHE_SERVER_WEBSOCKET"); v != "" {
		cfg.Server.EnableWebSocket = parseBool(v)
	}

	if v := os.Getenv("BOARDCACHE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("BOARDCACHE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}

	if v := os.Getenv("BOARDCACHE_RENDER_ENABLED"); v != "" {
		cfg.Render.Enabled = parseBool(v)
	}
	if v := os.Getenv("BOARDCACHE_RENDER_MAX_SIZE_MB"); v != "" {
		cfg.Render.MaxSizeMB = parseInt(v, cfg.Render.MaxSizeMB)
	}

	if v := os.Getenv("BOARDCACHE_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("BOARDCACHE_REDIS_ADDRESS"); v != "" {
		cfg.Redis.Address = v
	}
	if v := os.Getenv("BOARDCACHE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = NewSecretString(v)
	}
	if v := os.Getenv("BOARDCACHE_REDIS_DB"); v != "" {
		cfg.Redis.DB = parseInt(v, cfg.Redis.DB)
	}
	if v := os.Getenv("BOARDCACHE_REDIS_KEY_PREFIX"); v != "" {
		cfg.Redis.KeyPrefix = v
	}
	if v := os.Getenv("BOARDCACHE_REDIS_SNAPSHOT_TTL"); v != "" {
		cfg.Redis.SnapshotTTL = parseDuration(v, cfg.Redis.SnapshotTTL)
	}
	if v := os.Getenv("BOARDCACHE_REDIS_ENABLE_TLS"); v != "" {
		cfg.Redis.EnableTLS = parseBool(v)
	}

	if v := os.Getenv("BOARDCACHE_CIRCUIT_BREAKER_ENABLED"); v != "" {
		cfg.CircuitBreaker.Enabled = parseBool(v)
	}
	if v := os.Getenv("BOARDCACHE_BULKHEAD_ENABLED"); v != "" {
		cfg.Bulkhead.Enabled = parseBool(v)
	}

	if v := os.Getenv("BOARDCACHE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("BOARDCACHE_METRICS_PUBLISH_INTERVAL"); v != "" {
		cfg.Metrics.PublishInterval = parseDuration(v, cfg.Metrics.PublishInterval)
	}

	if v := os.Getenv("DD_AGENT_HOST"); v != "" {
		cfg.Metrics.DataDog.AgentHost = v
		cfg.Metrics.DataDog.Enabled = true
	}
	if v := os.Getenv("DD_DOGSTATSD_PORT"); v != "" {
		cfg.Metrics.DataDog.Port = parseInt(v, cfg.Metrics.DataDog.Port)
	}
	if v := os.Getenv("DD_SERVICE"); v != "" {
		cfg.Metrics.DataDog.Prefix = v
	}
	if v := os.Getenv("DD_ENV"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "env:"+v)
	}
	if v := os.Getenv("DD_VERSION"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "version:"+v)
	}
}

// Validate checks if the configuration is valid. Missing credentials are
// not a validation failure; the cache and page layer report them at runtime.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.baseURL is required")
	}
	if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream.baseURL must be an absolute URL")
	}
	if c.Upstream.Year <= 0 {
		return fmt.Errorf("upstream.year must be positive")
	}
	if c.Upstream.MaxBodyBytes <= 0 {
		return fmt.Errorf("upstream.maxBodyBytes must be positive")
	}

	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive")
	}
	if c.Refresh.FetchTimeout <= 0 {
		return fmt.Errorf("refresh.fetchTimeout must be positive")
	}

	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}

	if c.Render.Enabled {
		if c.Render.MaxSizeMB <= 0 {
			return fmt.Errorf("render.maxSizeMB must be positive")
		}
		if c.Render.Shards <= 0 || (c.Render.Shards&(c.Render.Shards-1)) != 0 {
			return fmt.Errorf("render.shards must be a positive power of 2")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address is required when redis is enabled")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.poolSize must be positive")
		}
	}

	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.FailureThreshold <= 0 {
			return fmt.Errorf("circuitBreaker.failureThreshold must be positive")
		}
		if c.CircuitBreaker.OpenDuration <= 0 {
			return fmt.Errorf("circuitBreaker.openDuration must be positive")
		}
	}

	if c.Bulkhead.Enabled {
		if c.Bulkhead.MaxConcurrent <= 0 {
			return fmt.Errorf("bulkhead.maxConcurrent must be positive")
		}
	}

	if c.Metrics.Enabled && c.Metrics.PublishInterval <= 0 {
		return fmt.Errorf("metrics.publishInterval must be positive")
	}

	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}
