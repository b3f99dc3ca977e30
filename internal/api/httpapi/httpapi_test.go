package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LavishGent/boardcache/internal/cache"
	"github.com/LavishGent/boardcache/internal/config"
	"github.com/LavishGent/boardcache/internal/realtime"
	"github.com/LavishGent/boardcache/internal/types"
)

const board = `{"event":"2025","owner_id":1,"members":{"1":{"id":1,"name":"Alice","local_score":10,"stars":4},"2":{"id":2,"name":null,"local_score":3,"stars":1}}}`

var fetchedAt = time.Date(2025, 12, 1, 5, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu   sync.Mutex
	snap types.Snapshot
}

func (s *fakeSource) Snapshot() types.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *fakeSource) Health() *types.HealthMetrics {
	snap := s.Snapshot()
	h := &types.HealthMetrics{Status: types.HealthStatusHealthy}
	if !snap.HasData() {
		h.Status = types.HealthStatusUnhealthy
	}
	return h
}

func (s *fakeSource) set(snap types.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

func withData(t *testing.T) types.Snapshot {
	t.Helper()
	lb, err := types.ParseLeaderboard([]byte(board))
	require.NoError(t, err)
	return types.Snapshot{Data: lb, FetchedAt: fetchedAt}
}

func fixedNow(d time.Duration) func() time.Time {
	return func() time.Time { return fetchedAt.Add(d) }
}

func baseOptions() Options {
	return Options{
		PathPrefix:      "/board",
		LeaderboardCode: "123456",
		JoinCode:        "123456-abcdef",
		HasCredentials:  true,
		Now:             fixedNow(90*time.Second + 500*time.Millisecond),
	}
}

func getPage(t *testing.T, handler http.Handler) (*httptest.ResponseRecorder, PageData) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/board/api/leaderboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var page PageData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	return rec, page
}

func TestLeaderboardSuccess(t *testing.T) {
	src := &fakeSource{snap: withData(t)}
	handler := NewMux(src, nil, nil, nil, baseOptions())

	rec, page := getPage(t, handler)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "123456", page.LeaderboardCode)
	assert.Equal(t, "123456-abcdef", page.JoinCode)
	assert.Nil(t, page.Error)
	require.NotNil(t, page.CacheAgeSeconds)
	assert.EqualValues(t, 90, *page.CacheAgeSeconds)

	var lb types.Leaderboard
	require.NoError(t, json.Unmarshal(page.Leaderboard, &lb))
	assert.Len(t, lb.Members, 2)
	assert.Equal(t, "2025", lb.Event)
}

func TestLeaderboardErrors(t *testing.T) {
	tests := []struct {
		name       string
		snap       func(t *testing.T) types.Snapshot
		noCreds    bool
		wantStatus int
		wantType   string
		wantMsg    string
	}{
		{
			name:       "missing credentials",
			snap:       withData,
			noCreds:    true,
			wantStatus: http.StatusServiceUnavailable,
			wantType:   ErrorTypeConfig,
			wantMsg:    "AOC_LEADERBOARD_CODE and AOC_SESSION_COOKIE environment variables must be set.",
		},
		{
			name: "stored error with stale data",
			snap: func(t *testing.T) types.Snapshot {
				snap := withData(t)
				snap.Err = types.PermissionDeniedMessage
				return snap
			},
			wantStatus: http.StatusBadGateway,
			wantType:   ErrorTypeAuth,
			wantMsg:    "Failed to fetch leaderboard: You don't have permission to view this leaderboard",
		},
		{
			name:       "no data yet",
			snap:       func(*testing.T) types.Snapshot { return types.Snapshot{} },
			wantStatus: http.StatusServiceUnavailable,
			wantType:   ErrorTypeNetwork,
			wantMsg:    "Leaderboard data is not available yet. Please refresh the page in a moment.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := baseOptions()
			opts.HasCredentials = !tt.noCreds
			handler := NewMux(&fakeSource{snap: tt.snap(t)}, nil, nil, nil, opts)

			rec, page := getPage(t, handler)

			assert.Equal(t, tt.wantStatus, rec.Code)
			require.NotNil(t, page.Error)
			assert.Equal(t, tt.wantType, page.Error.Type)
			assert.Equal(t, tt.wantMsg, page.Error.Message)
			assert.Equal(t, "123456", page.LeaderboardCode)
			assert.Empty(t, page.Leaderboard)
			assert.Nil(t, page.CacheAgeSeconds)
		})
	}
}

func TestCacheAgeSeconds(t *testing.T) {
	assert.EqualValues(t, 0, cacheAgeSeconds(types.AgeUnknown))
	assert.EqualValues(t, 0, cacheAgeSeconds(0))
	assert.EqualValues(t, 0, cacheAgeSeconds(999*time.Millisecond))
	assert.EqualValues(t, 61, cacheAgeSeconds(61*time.Second+900*time.Millisecond))
}

func TestLeaderboardUsesRenderCache(t *testing.T) {
	renders, err := cache.NewRenderCache(config.ForTesting().Render, nil)
	require.NoError(t, err)
	defer renders.Close()

	src := &fakeSource{snap: withData(t)}
	handler := NewMux(src, nil, renders, nil, baseOptions())

	_, first := getPage(t, handler)
	_, second := getPage(t, handler)
	assert.JSONEq(t, string(first.Leaderboard), string(second.Leaderboard))

	stats := renders.Stats()
	assert.EqualValues(t, 1, stats.Sets)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)

	// A new fetch produces a new version and a new encoding.
	next := withData(t)
	next.FetchedAt = fetchedAt.Add(15 * time.Minute)
	src.set(next)
	getPage(t, handler)
	assert.EqualValues(t, 2, renders.Stats().Sets)
}

func TestLeaderboardConcurrentRequests(t *testing.T) {
	renders, err := cache.NewRenderCache(config.ForTesting().Render, nil)
	require.NoError(t, err)
	defer renders.Close()

	handler := NewMux(&fakeSource{snap: withData(t)}, nil, renders, nil, baseOptions())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/board/api/leaderboard", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, renders.EntryCount(), 1)
}

func TestHealthz(t *testing.T) {
	src := &fakeSource{}
	handler := NewMux(src, nil, nil, nil, baseOptions())

	req := httptest.NewRequest(http.MethodGet, "/board/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])

	src.set(withData(t))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/board/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	handler := NewMux(&fakeSource{}, nil, nil, nil, baseOptions())

	req := httptest.NewRequest(http.MethodPost, "/board/api/leaderboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	opts := baseOptions()
	opts.AllowCORSOrigin = "*"
	handler := NewMux(&fakeSource{snap: withData(t)}, nil, nil, nil, opts)

	req := httptest.NewRequest(http.MethodOptions, "/board/api/leaderboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, _ = getPage(t, handler)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWithPrefix(t *testing.T) {
	assert.Equal(t, "/healthz", withPrefix("", "/healthz"))
	assert.Equal(t, "/healthz", withPrefix("/", "/healthz"))
	assert.Equal(t, "/board/healthz", withPrefix("/board/", "/healthz"))
	assert.Equal(t, "/board/healthz", withPrefix("/board", "/healthz"))
}

func TestWebSocketRoute(t *testing.T) {
	hub := realtime.NewHub()
	defer hub.Close()

	src := &fakeSource{snap: withData(t)}
	server := httptest.NewServer(NewMux(src, hub, nil, nil, baseOptions()))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/board/ws"
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev realtime.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, realtime.EventState, ev.Type)
	assert.Equal(t, 2, ev.Members)
	assert.Equal(t, src.snap.Version(), ev.Version)
}

func TestNoWebSocketWithoutHub(t *testing.T) {
	handler := NewMux(&fakeSource{}, nil, nil, nil, baseOptions())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/board/ws", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeaderboardRerendersNewPayloadAtSameInstant(t *testing.T) {
	renders, err := cache.NewRenderCache(config.ForTesting().Render, nil)
	require.NoError(t, err)
	defer renders.Close()

	first := withData(t)
	first.Seq = 1
	src := &fakeSource{snap: first}
	handler := NewMux(src, nil, renders, nil, baseOptions())

	_, page := getPage(t, handler)
	var lb types.Leaderboard
	require.NoError(t, json.Unmarshal(page.Leaderboard, &lb))
	require.Len(t, lb.Members, 2)

	smaller, err := types.ParseLeaderboard([]byte(`{"members":{"1":{"id":1,"name":"Alice"}}}`))
	require.NoError(t, err)
	src.set(types.Snapshot{Data: smaller, FetchedAt: first.FetchedAt, Seq: 2})

	_, page = getPage(t, handler)
	var next types.Leaderboard
	require.NoError(t, json.Unmarshal(page.Leaderboard, &next))
	assert.Len(t, next.Members, 1)
}
