package boardcache

import (
	"github.com/LavishGent/boardcache/internal/cache"
	"github.com/LavishGent/boardcache/internal/config"
)

// New creates an empty cache with default configuration.
func New(opts ...Option) (*Cache, error) {
	return NewFromConfig(config.DefaultConfig(), opts...)
}

// NewFromConfig creates an empty cache from configuration.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Cache, error) {
	return cache.New(cfg, opts...)
}

// NewFromFile creates an empty cache from a JSON config file with
// environment overrides applied.
func NewFromFile(path string, opts ...Option) (*Cache, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// Config returns a default configuration that can be modified before creating a cache.
func Config() *config.Config {
	return config.DefaultConfig()
}

// TestConfig returns a configuration suitable for unit tests.
func TestConfig() *config.Config {
	return config.ForTesting()
}
