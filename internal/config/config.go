// Package config provides configuration management for boardcache.
package config

import (
	"time"

	"github.com/LavishGent/boardcache/internal/types"
)

// SecretString is a string type that redacts its value when marshaled to JSON.
type SecretString = types.SecretString

// NewSecretString creates a new SecretString with the provided value.
func NewSecretString(value string) SecretString {
	return types.NewSecretString(value)
}

// Config contains all configuration for the boardcache process.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type Config struct {
	Upstream       UpstreamConfig       `json:"upstream"`
	Refresh        RefreshConfig        `json:"refresh"`
	Server         ServerConfig         `json:"server"`
	Logging        LoggingConfig        `json:"logging"`
	Render         RenderConfig         `json:"render"`
	Redis          RedisConfig          `json:"redis"`
	CircuitBreaker CircuitBreakerConfig `json:"circuitBreaker"`
	Bulkhead       BulkheadConfig       `json:"bulkhead"`
	Metrics        MetricsConfig        `json:"metrics"`
}

// UpstreamConfig describes the leaderboard API and the credentials used against it.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type UpstreamConfig struct {
	BaseURL          string       `json:"baseURL"`
	Year             int          `json:"year"`
	LeaderboardCode  string       `json:"leaderboardCode"`
	SessionCookie    SecretString `json:"sessionCookie"`
	JoinCode         string       `json:"joinCode"`
	UserAgent        string       `json:"userAgent"`
	PermissionMarker string       `json:"permissionMarker"`
	MaxBodyBytes     int64        `json:"maxBodyBytes"`
}

// Credentials returns the configured leaderboard credentials.
func (c UpstreamConfig) Credentials() types.Credentials {
	return types.Credentials{
		LeaderboardCode: c.LeaderboardCode,
		SessionCookie:   c.SessionCookie,
	}
}

// HasCredentials reports whether both required secrets are present.
func (c UpstreamConfig) HasCredentials() bool {
	return c.Credentials().IsComplete()
}

// RefreshConfig controls the refresh schedule.
type RefreshConfig struct {
	Interval     time.Duration `json:"interval"`
	FetchTimeout time.Duration `json:"fetchTimeout"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address           string        `json:"address"`
	PathPrefix        string        `json:"pathPrefix"`
	CORSOrigin        string        `json:"corsOrigin"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout"`
	ReadTimeout       time.Duration `json:"readTimeout"`
	WriteTimeout      time.Duration `json:"writeTimeout"`
	IdleTimeout       time.Duration `json:"idleTimeout"`
	ShutdownTimeout   time.Duration `json:"shutdownTimeout"`
	EnableWebSocket   bool          `json:"enableWebSocket"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// RenderConfig contains configuration for the encoded-response cache.
type RenderConfig struct {
	LifeWindow      time.Duration `json:"lifeWindow"`
	CleanupInterval time.Duration `json:"cleanupInterval"`
	MaxSizeMB       int           `json:"maxSizeMB"`
	Shards          int           `json:"shards"`
	MaxEntrySize    int           `json:"maxEntrySize"`
	Enabled         bool          `json:"enabled"`
}

// RedisConfig contains configuration for the Redis snapshot sink.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type RedisConfig struct {
	SnapshotTTL         time.Duration `json:"snapshotTTL"`
	DialTimeout         time.Duration `json:"dialTimeout"`
	ReadTimeout         time.Duration `json:"readTimeout"`
	WriteTimeout        time.Duration `json:"writeTimeout"`
	PoolTimeout         time.Duration `json:"poolTimeout"`
	HealthCheckInterval time.Duration `json:"healthCheckInterval"`
	Password            SecretString  `json:"password"`
	Address             string        `json:"address"`
	KeyPrefix           string        `json:"keyPrefix"`
	Channel             string        `json:"channel"`
	DB                  int           `json:"db"`
	PoolSize            int           `json:"poolSize"`
	MinIdleConns        int           `json:"minIdleConns"`
	MaxPendingWrites    int           `json:"maxPendingWrites"`
	Enabled             bool          `json:"enabled"`
	EnableTLS           bool          `json:"enableTLS"`
	TLSSkipVerify       bool          `json:"tlsSkipVerify"`
}

// CircuitBreakerConfig contains configuration for the circuit breaker pattern.
type CircuitBreakerConfig struct {
	Enabled             bool          `json:"enabled"`
	FailureThreshold    int           `json:"failureThreshold"`
	SuccessThreshold    int           `json:"successThreshold"`
	OpenDuration        time.Duration `json:"openDuration"`
	HalfOpenMaxRequests int           `json:"halfOpenMaxRequests"`
}

// BulkheadConfig contains configuration for the bulkhead pattern.
type BulkheadConfig struct {
	Enabled        bool          `json:"enabled"`
	MaxConcurrent  int           `json:"maxConcurrent"`
	MaxQueue       int           `json:"maxQueue"`
	AcquireTimeout time.Duration `json:"acquireTimeout"`
}

// MetricsConfig contains configuration for metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type MetricsConfig struct {
	PublishInterval time.Duration `json:"publishInterval"`
	DataDog         DataDogConfig `json:"datadog"`
	Enabled         bool          `json:"enabled"`
}

// DataDogConfig contains configuration for DataDog metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type DataDogConfig struct {
	Tags      []string `json:"tags"`
	AgentHost string   `json:"agentHost"`
	Prefix    string   `json:"prefix"`
	Port      int      `json:"port"`
	Enabled   bool     `json:"enabled"`
}
