package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/draftroom/internal/api"
	"github.com/mcoot/draftroom/internal/config"
	"github.com/mcoot/draftroom/internal/factory"
)

func main() {
	// Bootstrap logger until the configured level is known
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Create application factory
	app, err := factory.New(factory.FromConfig(cfg, logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	// Create API router
	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		AuthService:    app.AuthService,
		SessionManager: app.SessionManager,
		Websocket:      app.Websocket,
	})

	server := api.NewServer(apiRouter, cfg.Server, logger)
	// Hijacked websocket connections are not tracked by http.Server
	server.OnShutdown(app.Websocket.Close)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			slog.String("addr", server.Addr()),
			slog.String("storage", cfg.Storage.Type))
		return server.Run(ctx)
	})

	// Session reaper
	g.Go(func() error {
		return app.SessionManager.Run(ctx)
	})

	return g.Wait()
}
