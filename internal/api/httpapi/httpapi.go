// Package httpapi serves the cached leaderboard, its health and the refresh
// event stream over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/LavishGent/boardcache/internal/metrics"
	"github.com/LavishGent/boardcache/internal/realtime"
	"github.com/LavishGent/boardcache/internal/types"
)

// Error types reported in the leaderboard response.
const (
	ErrorTypeConfig  = "config"
	ErrorTypeAuth    = "auth"
	ErrorTypeNetwork = "network"
)

// Messages shown to the user for each error type. Auth messages carry the
// stored refresh error after this prefix.
const (
	ConfigErrorMessage  = "AOC_LEADERBOARD_CODE and AOC_SESSION_COOKIE environment variables must be set."
	AuthErrorPrefix     = "Failed to fetch leaderboard: "
	NetworkErrorMessage = "Leaderboard data is not available yet. Please refresh the page in a moment."
)

// Source is the read side of a refreshing cache.
type Source interface {
	Snapshot() types.Snapshot
	Health() *types.HealthMetrics
}

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/board").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// LeaderboardCode and JoinCode are echoed back to the page.
	LeaderboardCode string
	JoinCode        string
	// HasCredentials reports whether the process was started with both
	// upstream secrets. Without them every leaderboard request is a config error.
	HasCredentials bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewMux builds an http.Handler exposing the leaderboard page data and the
// refresh event stream.
// Routes:
//   - GET {prefix}/api/leaderboard
//   - GET {prefix}/healthz
//   - WS  {prefix}/ws (only when hub is non-nil)
//
// renders and publisher may be nil.
func NewMux(src Source, hub *realtime.Hub, renders types.RenderStore, publisher types.Publisher, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if publisher == nil {
		publisher = metrics.NewNoOpPublisher()
	}

	s := &server{
		src:       src,
		publisher: publisher,
		renders:   renders,
		opts:      opts,
		logger:    opts.Logger.With("component", "httpapi"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+withPrefix(opts.PathPrefix, "/api/leaderboard"), s.leaderboard)
	mux.HandleFunc("GET "+withPrefix(opts.PathPrefix, "/healthz"), s.health)

	if hub != nil {
		mux.Handle("GET "+withPrefix(opts.PathPrefix, "/ws"), realtime.Handler(hub,
			realtime.WithLogger(opts.Logger),
			realtime.WithAllowedOrigin(opts.AllowCORSOrigin),
			realtime.WithInitialState(func() realtime.Event {
				return realtime.StateEvent(src.Snapshot(), opts.Now())
			}),
		))
	}

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	return handler
}

type server struct {
	src       Source
	publisher types.Publisher
	renders   types.RenderStore
	opts      Options
	logger    *slog.Logger
	group     singleflight.Group
}

// PageError is the error half of a leaderboard response.
type PageError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PageData is the body of GET /api/leaderboard. Exactly one of Leaderboard
// and Error is set.
type PageData struct {
	LeaderboardCode string          `json:"leaderboard_code"`
	JoinCode        string          `json:"join_code"`
	Leaderboard     json.RawMessage `json:"leaderboard,omitempty"`
	CacheAgeSeconds *int64          `json:"cache_age_seconds,omitempty"`
	Error           *PageError      `json:"error,omitempty"`
}

func (s *server) leaderboard(w http.ResponseWriter, r *http.Request) {
	page := PageData{
		LeaderboardCode: s.opts.LeaderboardCode,
		JoinCode:        s.opts.JoinCode,
	}

	if !s.opts.HasCredentials {
		s.fail(w, http.StatusServiceUnavailable, page, ErrorTypeConfig, ConfigErrorMessage)
		return
	}

	snap := s.src.Snapshot()
	if snap.Err != "" {
		s.fail(w, http.StatusBadGateway, page, ErrorTypeAuth, AuthErrorPrefix+snap.Err)
		return
	}
	if !snap.HasData() {
		s.fail(w, http.StatusServiceUnavailable, page, ErrorTypeNetwork, NetworkErrorMessage)
		return
	}

	body, err := s.render(snap)
	if err != nil {
		s.logger.Error("Failed to encode leaderboard", "error", err, "version", snap.Version())
		writeError(w, http.StatusInternalServerError, "internal", "failed to encode leaderboard")
		return
	}

	age := cacheAgeSeconds(snap.Age(s.opts.Now()))
	page.Leaderboard = body
	page.CacheAgeSeconds = &age

	s.publisher.Incr("api.leaderboard", metrics.Tag("result", "ok"))
	writeJSON(w, http.StatusOK, page)
}

func (s *server) fail(w http.ResponseWriter, status int, page PageData, kind, message string) {
	page.Error = &PageError{Type: kind, Message: message}
	s.publisher.Incr("api.leaderboard", metrics.Tag("result", kind))
	writeJSON(w, status, page)
}

// render returns the encoded leaderboard for snap. Encodings are shared by
// concurrent requests and kept per snapshot version.
func (s *server) render(snap types.Snapshot) ([]byte, error) {
	version := snap.Version()

	if s.renders != nil {
		if body, err := s.renders.Get(version); err == nil {
			return body, nil
		} else if !errors.Is(err, types.ErrRenderMiss) {
			s.logger.Debug("Render cache read failed", "error", err)
		}
	}

	v, err, _ := s.group.Do(version, func() (any, error) {
		timer := metrics.NewTimer(s.publisher, "api.render")
		body, err := json.Marshal(snap.Data)
		timer.Stop()
		if err != nil {
			return nil, err
		}
		if s.renders != nil {
			if err := s.renders.Set(version, body); err != nil {
				s.logger.Debug("Render cache write failed", "error", err)
			}
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// cacheAgeSeconds floors age to whole seconds. Unknown and non-positive
// ages report zero.
func cacheAgeSeconds(age time.Duration) int64 {
	if age <= 0 {
		return 0
	}
	return int64(age / time.Second)
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	h := s.src.Health()
	status := http.StatusOK
	if h.Status == types.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, apiError{Code: code, Message: msg})
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
