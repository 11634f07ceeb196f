package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	corecfg "github.com/anomalab/datafeed/internal/core/config"
	"github.com/anomalab/datafeed/internal/core/storage/postgres"
	"github.com/anomalab/datafeed/internal/datafeed"
	"github.com/anomalab/datafeed/internal/migrations"
	"github.com/anomalab/datafeed/internal/server"
)

func main() {
	configPath := flag.String("config", "datafeed.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "config", cfg)

	// 2. Initialize Storage (PostgreSQL)
	store, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(store.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Datafeed Registry
	service := datafeed.NewService(datafeed.Defaults{
		ScrollSize: cfg.Datafeeds.ScrollSize,
		QueryDelay: cfg.Datafeeds.QueryDelay,
	})
	registry := datafeed.NewRegistry(store, service)

	// 3.1. Register datafeeds defined on disk
	if err := registry.LoadDirectory(context.Background(), cfg.Datafeeds.ConfigDir); err != nil {
		slog.Error("Failed to load datafeed definitions", "error", err, "dir", cfg.Datafeeds.ConfigDir)
		os.Exit(1)
	}

	// 4. Initialize Server
	handler := datafeed.NewHandler(registry, service)
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), store.DB(), cfg.Server.Mode, handler)

	// 5. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
