package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quote-generator/internal/adapters/http"
	"github.com/jsamuelsen/quote-generator/internal/adapters/http/handlers"
)

// runServe starts the HTTP server and the sync agent and blocks until a
// shutdown signal arrives or either of them fails.
func runServe(parent context.Context, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap(ctx, opts.profile, os.Stdout)
	if err != nil {
		return err
	}
	defer c.Close()

	cfg := c.cfg

	c.logger.Info("starting quote generator",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.Bool("sync_enabled", cfg.Sync.Enabled),
		slog.Bool("telemetry_enabled", c.telemetry.Enabled()),
	)

	// Handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(c.health, buildInfo, c.registry)
	quoteHandler := handlers.NewQuoteHandler(c.service, c.agent, c.notifier)
	pageHandler := handlers.NewPageHandler(c.service, c.notifier, c.flashes)

	// HTTP server
	server := http.New(&cfg.Server, c.logger)
	http.SetupRouter(server.Engine(), http.NewDefaultRouterConfig(c.logger, cfg, healthHandler, quoteHandler, pageHandler))

	serverErr := server.Start()

	// Start binds synchronously; a port clash is already on the channel.
	select {
	case err := <-serverErr:
		return fmt.Errorf("serving: %w", err)
	default:
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case err := <-serverErr:
			return err
		case <-gctx.Done():
		}

		c.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if cfg.Sync.Enabled {
		g.Go(func() error {
			return c.agent.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serving: %w", err)
	}

	c.logger.Info("quote generator stopped")

	return nil
}
