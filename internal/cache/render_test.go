package cache

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LavishGent/boardcache/internal/config"
	"github.com/LavishGent/boardcache/internal/types"
)

func newTestRenderCache(t testing.TB) *RenderCache {
	t.Helper()
	rc, err := NewRenderCache(config.ForTesting().Render, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestNewRenderCache(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		rc, err := NewRenderCache(config.ForTesting().Render, nil)
		require.NoError(t, err)
		defer rc.Close()

		assert.Equal(t, "render", rc.Name())
		assert.True(t, rc.IsAvailable())
	})

	t.Run("invalid shard count", func(t *testing.T) {
		cfg := config.ForTesting().Render
		cfg.Shards = 3
		_, err := NewRenderCache(cfg, nil)
		assert.Error(t, err)
	})
}

func TestRenderCacheGetSet(t *testing.T) {
	rc := newTestRenderCache(t)

	_, err := rc.Get("1")
	assert.ErrorIs(t, err, types.ErrRenderMiss)

	body := []byte(`{"leaderboard":{}}`)
	require.NoError(t, rc.Set("1", body))

	got, err := rc.Get("1")
	require.NoError(t, err)
	assert.Equal(t, body, got)

	stats := rc.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.EqualValues(t, 1, stats.Sets)
	assert.Equal(t, 1, rc.EntryCount())
	assert.InDelta(t, 0.5, rc.HitRatio(), 0.001)
}

func TestRenderCacheVersionsAreIndependent(t *testing.T) {
	rc := newTestRenderCache(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, rc.Set(fmt.Sprint(i), []byte(fmt.Sprintf("body-%d", i))))
	}
	for i := 0; i < 5; i++ {
		got, err := rc.Get(fmt.Sprint(i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("body-%d", i), string(got))
	}
}

func TestRenderCacheClose(t *testing.T) {
	rc, err := NewRenderCache(config.ForTesting().Render, nil)
	require.NoError(t, err)

	require.NoError(t, rc.Close())
	require.NoError(t, rc.Close())
	assert.False(t, rc.IsAvailable())

	_, err = rc.Get("1")
	assert.ErrorIs(t, err, types.ErrClosed)
	assert.ErrorIs(t, rc.Set("1", nil), types.ErrClosed)
}

func TestDisabledStores(t *testing.T) {
	t.Run("render store", func(t *testing.T) {
		store := NewDisabledRenderStore()
		assert.False(t, store.IsAvailable())
		assert.NoError(t, store.Set("1", []byte("x")))
		_, err := store.Get("1")
		assert.ErrorIs(t, err, types.ErrRenderMiss)
		assert.Zero(t, store.EntryCount())
		assert.NoError(t, store.Close())
	})

	t.Run("sink", func(t *testing.T) {
		sink := NewDisabledSink()
		assert.Equal(t, "disabled", sink.Name())
		assert.False(t, sink.IsAvailable())
		assert.ErrorIs(t, sink.Publish(context.Background(), testCode, types.Snapshot{}), types.ErrSinkUnavailable)
		assert.Zero(t, sink.PendingWrites())
		assert.Zero(t, sink.DroppedWrites())
		assert.NoError(t, sink.Close())
	})
}

func BenchmarkRenderCache_Get(b *testing.B) {
	rc := newTestRenderCache(b)
	_ = rc.Set("1733029200000000000", make([]byte, 16*1024))

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = rc.Get("1733029200000000000")
	}
}

func BenchmarkRenderCache_Set(b *testing.B) {
	rc := newTestRenderCache(b)
	body := make([]byte, 16*1024)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = rc.Set(fmt.Sprint(i%32), body)
	}
}
