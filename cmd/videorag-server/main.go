// Package main provides the HTTP server for videorag.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/videorag-go/internal/app"
	"github.com/raphaelgruber/videorag-go/internal/config"
	"github.com/raphaelgruber/videorag-go/internal/server"
)

func main() {
	// Parse flags
	configFile := flag.String("config", "", "YAML config file")
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadFile(*configFile); err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, closeLog := config.LoggerFor(cfg)
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)

	logger.Info("starting videorag-server", "port", cfg.ServerPort, "provider", cfg.LLMProvider)

	// Wire services
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(context.Background()); err != nil {
			logger.Error("failed to close services", "error", err)
		}
	}()

	// Wipe database if requested (via flag or env var)
	if *wipeDB || os.Getenv("VIDEORAG_WIPE_DB") == "true" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := application.Store.WipeData(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to wipe database", "error", err)
			return
		}
	}

	// Wait for interrupt signal
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(runCtx, server.Deps{
		Query:      application.Query,
		Library:    application.Library,
		Jobs:       application.Jobs,
		Sessions:   application.Sessions,
		Metrics:    application.Metrics,
		NewSession: application.NewSession,
	}, logger)

	if err := srv.Run(runCtx, ":"+cfg.ServerPort); err != nil {
		logger.Error("server error", "error", err)
	}
}
