package boardcache

import (
	"github.com/LavishGent/boardcache/internal/cache"
	"github.com/LavishGent/boardcache/internal/types"
)

type (
	// Cache is a periodically refreshed leaderboard.
	Cache = cache.RefreshingCache
	// Leaderboard is an upstream leaderboard payload.
	Leaderboard = types.Leaderboard
	// Member is a single leaderboard participant.
	Member = types.Member
	// Snapshot is the cached data, fetch time and last error, read together.
	Snapshot = types.Snapshot
	// RefreshResult describes one completed refresh attempt.
	RefreshResult = types.RefreshResult
	// Outcome classifies a refresh attempt.
	Outcome = types.Outcome
	// RefreshListener is called after every completed refresh attempt.
	RefreshListener = types.RefreshListener
	// Fetcher retrieves a leaderboard from the upstream API.
	Fetcher = types.Fetcher
	// Credentials identify the leaderboard and authenticate against the upstream.
	Credentials = types.Credentials
	// SnapshotSink receives successful snapshots for export.
	SnapshotSink = types.SnapshotSink
	// MetricsRecorder provides operations for recording refresh metrics.
	MetricsRecorder = types.MetricsRecorder
	// Logger provides logging operations.
	Logger = types.Logger
)

// AgeUnknown is returned by Age before the first successful fetch.
const AgeUnknown = types.AgeUnknown

const (
	OutcomeSuccess       = types.OutcomeSuccess
	OutcomeConfiguration = types.OutcomeConfiguration
	OutcomeTransport     = types.OutcomeTransport
	OutcomePermission    = types.OutcomePermission
	OutcomeParse         = types.OutcomeParse
	OutcomeSkipped       = types.OutcomeSkipped
)

// ParseLeaderboard decodes an upstream payload.
func ParseLeaderboard(data []byte) (*Leaderboard, error) {
	return types.ParseLeaderboard(data)
}
