package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"callsync/internal/association"
	"callsync/internal/config"
	"callsync/internal/database"
	"callsync/internal/enrich"
	"callsync/internal/notify"
	"callsync/internal/platform"
	"callsync/internal/platform/fireflies"
	"callsync/internal/platform/gong"
	"callsync/internal/platform/zoom"
	"callsync/internal/syncer"
)

func main() {
	// Parse command line flags
	platformName := flag.String("platform", "", "Platform to sync (gong, fireflies, zoom)")
	daysBack := flag.Int("days", 7, "How many days back to sync")
	limit := flag.Int("limit", 100, "Maximum number of calls to sync")
	callID := flag.String("call", "", "Sync a single call by vendor id instead of a window")
	flag.Parse()

	if *platformName == "" {
		fmt.Println("Usage:")
		fmt.Println("  Bulk sync:    sync -platform gong -days 30 -limit 500")
		fmt.Println("  Single call:  sync -platform zoom -call <vendor-call-id>")
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()
	logger := cfg.SetupLogger()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store := database.NewStore(db, logger)

	fmt.Println("Creating tables...")
	if err := store.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

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

	ctx := context.Background()

	if *callID != "" {
		fmt.Printf("Syncing %s call %s...\n", *platformName, *callID)
		detail, err := engine.SyncCall(ctx, *platformName, *callID)
		if err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
		fmt.Printf("✓ Call %s: %s (%s)\n", detail.CallID, detail.Status, detail.Reason)
		return
	}

	window := platform.Window{
		Start: time.Now().AddDate(0, 0, -*daysBack),
		End:   time.Now(),
	}

	fmt.Printf("Syncing %s calls from the last %d days (limit %d)...\n", *platformName, *daysBack, *limit)
	summary, err := engine.SyncPlatform(ctx, *platformName, window, *limit)
	if err != nil {
		log.Fatalf("Sync failed: %v", err)
	}

	fmt.Println("\n✓ Sync complete!")
	fmt.Printf("  - Discovered: %d calls\n", summary.Total)
	fmt.Printf("  - Processed:  %d\n", summary.Processed)
	fmt.Printf("  - Skipped:    %d\n", summary.Skipped)
	fmt.Printf("  - Errors:     %d\n", summary.Errors)

	if summary.Errors > 0 {
		os.Exit(1)
	}
}
