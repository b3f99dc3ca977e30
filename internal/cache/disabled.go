package cache

import (
	"context"

	"github.com/LavishGent/boardcache/internal/types"
)

// DisabledSink drops every snapshot. It is used when Redis export is off.
type DisabledSink struct{}

func NewDisabledSink() *DisabledSink {
	return &DisabledSink{}
}

func (DisabledSink) Name() string         { return "disabled" }
func (DisabledSink) IsAvailable() bool    { return false }
func (DisabledSink) PendingWrites() int   { return 0 }
func (DisabledSink) DroppedWrites() int64 { return 0 }
func (DisabledSink) Close() error         { return nil }

// Publish reports the sink as unavailable.
func (DisabledSink) Publish(ctx context.Context, code string, snap types.Snapshot) error {
	return types.ErrSinkUnavailable
}

// DisabledRenderStore never holds anything; every Get misses.
type DisabledRenderStore struct{}

func NewDisabledRenderStore() *DisabledRenderStore {
	return &DisabledRenderStore{}
}

func (DisabledRenderStore) Name() string                       { return "render-disabled" }
func (DisabledRenderStore) IsAvailable() bool                  { return false }
func (DisabledRenderStore) Get(version string) ([]byte, error) { return nil, types.ErrRenderMiss }
func (DisabledRenderStore) Set(version string, body []byte) error {
	return nil
}
func (DisabledRenderStore) Stats() types.RenderStats { return types.RenderStats{} }
func (DisabledRenderStore) EntryCount() int          { return 0 }
func (DisabledRenderStore) Close() error             { return nil }

var (
	_ types.SnapshotSink = (*DisabledSink)(nil)
	_ types.RenderStore  = (*DisabledRenderStore)(nil)
)
