package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/allegro/bigcache/v3"

	"github.com/LavishGent/boardcache/internal/config"
	"github.com/LavishGent/boardcache/internal/types"
)

// RenderCache keeps encoded API responses keyed by snapshot version, so a
// leaderboard is serialized once per successful fetch rather than once per
// request. Old versions age out through the bigcache life window.
type RenderCache struct {
	cache  *bigcache.BigCache
	config config.RenderConfig
	logger *slog.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64

	closed atomic.Bool
}

// NewRenderCache creates a render cache with the given configuration.
func NewRenderCache(cfg config.RenderConfig, logger *slog.Logger) (*RenderCache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rc := &RenderCache{
		config: cfg,
		logger: logger.With("component", "render-cache"),
	}

	bcConfig := bigcache.Config{
		Shards:             cfg.Shards,
		LifeWindow:         cfg.LifeWindow,
		CleanWindow:        cfg.CleanupInterval,
		MaxEntriesInWindow: 64, // one entry per refresh, plus variants
		MaxEntrySize:       cfg.MaxEntrySize,
		HardMaxCacheSize:   cfg.MaxSizeMB,
		Logger:             &bigcacheLogger{logger: rc.logger},
		OnRemoveWithReason: func(key string, entry []byte, reason bigcache.RemoveReason) {
			if reason == bigcache.NoSpace || reason == bigcache.Expired {
				rc.evictions.Add(1)
			}
		},
	}

	bc, err := bigcache.New(context.Background(), bcConfig)
	if err != nil {
		return nil, err
	}

	rc.cache = bc
	return rc, nil
}

func (c *RenderCache) Name() string {
	return "render"
}

// IsAvailable returns true until the cache is closed.
func (c *RenderCache) IsAvailable() bool {
	return !c.closed.Load()
}

// Get returns the encoded body stored for version, or types.ErrRenderMiss.
func (c *RenderCache) Get(version string) ([]byte, error) {
	if c.closed.Load() {
		return nil, types.ErrClosed
	}

	body, err := c.cache.Get(version)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			c.misses.Add(1)
			return nil, types.ErrRenderMiss
		}
		return nil, err
	}

	c.hits.Add(1)
	return body, nil
}

// Set stores body under version.
func (c *RenderCache) Set(version string, body []byte) error {
	if c.closed.Load() {
		return types.ErrClosed
	}

	if err := c.cache.Set(version, body); err != nil {
		return err
	}

	c.sets.Add(1)
	return nil
}

func (c *RenderCache) Stats() types.RenderStats {
	return types.RenderStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Sets:      c.sets.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (c *RenderCache) EntryCount() int {
	return c.cache.Len()
}

// HitRatio returns hits over lookups, or 0 before any lookup.
func (c *RenderCache) HitRatio() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func (c *RenderCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.cache.Close()
}

type bigcacheLogger struct {
	logger *slog.Logger
}

func (l *bigcacheLogger) Printf(format string, args ...any) {
	l.logger.Debug("bigcache: "+format, args...)
}

var _ types.RenderStore = (*RenderCache)(nil)
