package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/LavishGent/boardcache/internal/api/httpapi"
	"github.com/LavishGent/boardcache/internal/cache"
	"github.com/LavishGent/boardcache/internal/config"
	"github.com/LavishGent/boardcache/internal/metrics"
	"github.com/LavishGent/boardcache/internal/metrics/datadog"
	"github.com/LavishGent/boardcache/internal/realtime"
	"github.com/LavishGent/boardcache/internal/types"
)

// App aggregates the assembled server components.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Publisher  types.Publisher
	Tracker    *metrics.Tracker
	Background *metrics.BackgroundPublisher
	Hub        *realtime.Hub
	Renders    types.RenderStore
	Cache      *cache.RefreshingCache
	Handler    http.Handler
	Server     *http.Server
}

// BuildApp loads configuration and wires every component. Nothing is
// fetched or served until Run.
func BuildApp(configPath string) (*App, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg}
	app.Logger = setupLogging(cfg)

	app.Publisher, err = providePublisher(cfg, app.Logger)
	if err != nil {
		return nil, err
	}
	app.Tracker = metrics.NewTracker(metrics.WithPublisher(app.Publisher))
	app.Hub = realtime.NewHub()
	app.Renders = provideRenders(cfg, app.Logger)

	app.Cache, err = cache.New(cfg, func(o *types.CacheOptions) {
		o.Logger = app.Logger
		o.Metrics = app.Tracker
		o.Listeners = append(o.Listeners, app.Hub.Listener())
	})
	if err != nil {
		_ = app.Renders.Close()
		_ = app.Publisher.Close()
		return nil, err
	}

	if cfg.Metrics.Enabled {
		app.Background = metrics.NewBackgroundPublisher(
			app.Publisher,
			cfg.Metrics.PublishInterval,
			metrics.HealthFromTracker(app.Tracker, app.Cache.HealthState),
			app.Logger,
		)
	}

	var hub *realtime.Hub
	if cfg.Server.EnableWebSocket {
		hub = app.Hub
	}
	app.Handler = httpapi.NewMux(app.Cache, hub, app.Renders, app.Publisher, httpapi.Options{
		PathPrefix:      cfg.Server.PathPrefix,
		AllowCORSOrigin: cfg.Server.CORSOrigin,
		LeaderboardCode: cfg.Upstream.LeaderboardCode,
		JoinCode:        cfg.Upstream.JoinCode,
		HasCredentials:  cfg.Upstream.HasCredentials(),
		Logger:          app.Logger,
	})
	app.Server = provideServer(cfg, app.Handler)

	return app, nil
}

// Initialize performs the first fetch and arms the schedule. Missing
// credentials are logged and leave the cache empty and unscheduled.
func (a *App) Initialize(ctx context.Context) {
	up := a.Config.Upstream
	if !up.HasCredentials() {
		a.Logger.Error("AOC_LEADERBOARD_CODE and AOC_SESSION_COOKIE must be set, leaderboard will stay empty")
		return
	}
	a.Cache.Initialize(ctx, up.LeaderboardCode, up.SessionCookie.Value())
}

// Close releases everything BuildApp created.
func (a *App) Close() error {
	var errs []error
	if err := a.Cache.Close(); err != nil {
		errs = append(errs, err)
	}
	a.Hub.Close()
	if err := a.Renders.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func providePublisher(cfg *config.Config, logger *slog.Logger) (types.Publisher, error) {
	switch {
	case !cfg.Metrics.Enabled:
		return metrics.NewNoOpPublisher(), nil
	case cfg.Metrics.DataDog.Enabled:
		return datadog.NewPublisher(&cfg.Metrics.DataDog, logger)
	default:
		return metrics.NewLoggingPublisher(logger), nil
	}
}

func provideRenders(cfg *config.Config, logger *slog.Logger) types.RenderStore {
	if !cfg.Render.Enabled {
		return cache.NewDisabledRenderStore()
	}
	renders, err := cache.NewRenderCache(cfg.Render, logger)
	if err != nil {
		logger.Warn("Failed to create render cache, encoding every request", "error", err)
		return cache.NewDisabledRenderStore()
	}
	return renders
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", "boardcache")
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
