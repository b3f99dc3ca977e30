package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LavishGent/boardcache/internal/types"
)

func TestJSONSerializerSnapshotRecord(t *testing.T) {
	s := NewJSONSerializer()

	lb, err := types.ParseLeaderboard([]byte(twoMembers))
	require.NoError(t, err)

	fetchedAt := time.Date(2025, 12, 1, 5, 0, 0, 0, time.UTC)
	data, err := s.Marshal(SnapshotRecord{
		Code:        testCode,
		Version:     "1",
		FetchedAt:   fetchedAt,
		Members:     lb.MemberCount(),
		Leaderboard: lb,
	})
	require.NoError(t, err)

	var got SnapshotRecord
	require.NoError(t, s.Unmarshal(data, &got))
	assert.Equal(t, testCode, got.Code)
	assert.True(t, fetchedAt.Equal(got.FetchedAt))
	assert.Equal(t, 2, got.Members)
	require.NotNil(t, got.Leaderboard)
	assert.Equal(t, "Alice", got.Leaderboard.Members["1"].Name)
}

func TestJSONSerializerUnmarshalError(t *testing.T) {
	var dest SnapshotRecord
	assert.Error(t, NewJSONSerializer().Unmarshal([]byte("{"), &dest))
}
