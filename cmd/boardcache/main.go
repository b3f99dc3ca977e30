// Command boardcache serves a cached private leaderboard over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", os.Getenv("BOARDCACHE_CONFIG"), "path to a JSON config file")
	flag.Parse()

	app, err := BuildApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, app); err != nil {
		slog.Error("boardcache exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(ctx context.Context, app *App) error {
	ln, err := net.Listen("tcp", app.Config.Server.Address)
	if err != nil {
		return errors.Join(fmt.Errorf("listen: %w", err), app.Close())
	}
	return serve(ctx, app, ln)
}

// serve runs the HTTP server, the first fetch and the metrics publisher
// until ctx is done, then shuts everything down.
func serve(ctx context.Context, app *App, ln net.Listener) error {
	cfg := app.Config

	app.Logger.Info("starting boardcache",
		"address", ln.Addr().String(),
		"interval", cfg.Refresh.Interval,
		"redis_sink", cfg.Redis.Enabled,
		"websocket", cfg.Server.EnableWebSocket)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Logger.Info("server listening", "address", ln.Addr().String())
		if err := app.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Pages are served while the first fetch is in flight and report that
	// no data is available yet.
	g.Go(func() error {
		app.Initialize(gctx)
		return nil
	})

	if app.Background != nil {
		g.Go(func() error {
			return app.Background.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		app.Logger.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Shutdown does not track hijacked connections; closing the hub ends the websocket streams.
		app.Hub.Close()
		return app.Server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	return errors.Join(err, app.Close())
}
