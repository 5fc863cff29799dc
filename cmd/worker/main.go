package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

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
	"callsync/internal/syncer"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := cfg.SetupLogger()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	store := database.NewStore(db, logger)

	q, err := queue.New(cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer q.Close()

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

	associator := association.NewEngine(store, cfg.InternalDomains, logger)

	var summarizer syncer.Summarizer
	if s := enrich.NewSummarizer(cfg); s != nil {
		summarizer = s
	}
	var notifier syncer.Notifier
	if n := notify.NewEmailNotifier(cfg.SendGridAPIKey, cfg.AlertEmail); n != nil {
		notifier = n
	}

	engine := syncer.NewEngine(registry, store, associator, summarizer, notifier, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := queue.NewConsumer(q, engine.SyncCall, logger)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("Consumer stopped with error")
	}
}
