package main

import (
	"context"

	"callsync/internal/association"
	"callsync/internal/config"
	"callsync/internal/database"
	"callsync/internal/enrich"
	"callsync/internal/notify"
	"callsync/internal/platform"
	"callsync/internal/platform/fireflies"
	"callsync/internal/platform/gong"
	"callsync/internal/platform/zoom"
	"callsync/internal/queue"
	"callsync/internal/server"
	"callsync/internal/stats"
	"callsync/internal/syncer"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := cfg.SetupLogger()

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Database connection failed")
	}
	store := database.NewStore(db, logger)
	if err := store.CreateTables(); err != nil {
		logger.Fatal().Err(err).Msg("Schema migration failed")
	}
	logger.Info().Msg("Database connection established successfully")

	statsSvc := stats.NewService(db, logger)
	if err := statsSvc.CreateTables(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Stats schema migration failed")
	}

	// Redis-backed webhook queue
	q, err := queue.New(cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer q.Close()

	// Platform adapters
	registry := platform.NewRegistry(logger)
	registry.RegisterFactory(platform.PlatformGong, func() (platform.Adapter, error) {
		return gong.New(cfg, logger), nil
	})
	registry.RegisterFactory(platform.PlatformFireflies, func() (platform.Adapter, error) {
		return fireflies.New(cfg, logger), nil
	})
	registry.RegisterFactory(platform.PlatformZoom, func() (platform.Adapter, error) {
		return zoom.New(cfg, logger), nil
	})

	// Sync pipeline
	associator := association.NewEngine(store, cfg.InternalDomains, logger)

	var summarizer syncer.Summarizer
	if s := enrich.NewSummarizer(cfg); s != nil {
		summarizer = s
	}
	var notifier syncer.Notifier
	if n := notify.NewEmailNotifier(cfg.SendGridAPIKey, cfg.AlertEmail); n != nil {
		notifier = n
	}

	syncEngine := syncer.NewEngine(registry, store, associator, summarizer, notifier, logger)

	// Create and initialize server
	srv := server.New(cfg, db, store, syncEngine, associator, q, statsSvc, logger)
	srv.Initialize()

	// Start server
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed to start")
	}
}
