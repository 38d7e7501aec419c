package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweepwatch/engine/internal/config"
	"github.com/sweepwatch/engine/internal/feed"
	"github.com/sweepwatch/engine/internal/logger"
	"github.com/sweepwatch/engine/internal/notify"
	"github.com/sweepwatch/engine/internal/scanner"
	"github.com/sweepwatch/engine/internal/storage"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	runOnce    = flag.Bool("once", false, "Run a single scan cycle and exit (for external scheduling)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	feedClient := feed.NewClient(
		cfg.Feed.BaseURL,
		cfg.Feed.Timeout,
		cfg.Feed.Limit,
		feed.ClientConfig{
			MaxRetries:     cfg.Feed.MaxRetries,
			RetryDelayBase: cfg.Feed.RetryDelayBase,
			RatePerSec:     cfg.Feed.RatePerSec,
		},
	)

	scanConfig := scanner.Config{
		MinPremiumLarge:  cfg.Scanner.MinPremiumLarge,
		MinPremiumGolden: cfg.Scanner.MinPremiumGolden,
		MaxDTEGolden:     cfg.Scanner.MaxDTEGolden,
		MinVolOI:         cfg.Scanner.MinVolOI,
		AggressiveRatio:  cfg.Scanner.AggressiveRatio,
		Window:           cfg.Scanner.Window,

		ClusterMinPremium:  cfg.Cluster.MinPremium,
		StrikeBandPct:      cfg.Cluster.StrikeBandPct,
		DateBandDays:       cfg.Cluster.DateBandDays,
		ClusterPremiumJump: cfg.Cluster.PremiumJump,

		PerRunCap:        cfg.Notify.PerRunCap,
		PostedRetention:  cfg.Storage.PostedRetention,
		HistoryRetention: cfg.Storage.HistoryRetention,
	}
	scan := scanner.New(store, scanConfig)

	sinks := []notify.Notifier{
		notify.NewDiscord(cfg.Notify.WebhookLarge, cfg.Notify.WebhookGolden, cfg.Notify.WebhookCluster, cfg.Feed.Timeout),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Notify.Telegram.Enabled {
		telegramClient, err := notify.NewTelegram(
			cfg.Notify.Telegram.BotToken,
			cfg.Notify.Telegram.ChatID,
			cfg.Notify.Telegram.MaxRetries,
			cfg.Notify.Telegram.RetryDelayBase,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		telegramClient.ListenForCommands(ctx)
		sinks = append(sinks, telegramClient)
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	dispatcher := notify.NewDispatcher(cfg.Notify.SendDelay, sinks...)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if *runOnce {
		if err := runScanCycle(ctx, feedClient, scan, dispatcher, cfg); err != nil {
			logger.Fatal("Scan cycle failed: %v", err)
		}
		return
	}

	logger.Info("Starting scan service (interval: %v, window: %v, large: $%.0f, golden: $%.0f, cluster: $%.0f)",
		cfg.Feed.PollInterval,
		cfg.Scanner.Window,
		cfg.Scanner.MinPremiumLarge,
		cfg.Scanner.MinPremiumGolden,
		cfg.Cluster.MinPremium,
	)

	ticker := time.NewTicker(cfg.Feed.PollInterval)
	defer ticker.Stop()

	logger.Debug("Running initial scan cycle")
	if err := runScanCycle(ctx, feedClient, scan, dispatcher, cfg); err != nil {
		logger.Error("Scan cycle failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled scan cycle")
			if err := runScanCycle(ctx, feedClient, scan, dispatcher, cfg); err != nil {
				logger.Error("Scan cycle failed: %v", err)
			}
		}
	}
}

func runScanCycle(
	ctx context.Context,
	feedClient *feed.Client,
	scan *scanner.Scanner,
	dispatcher *notify.Dispatcher,
	cfg *config.Config,
) error {
	startTime := time.Now()
	logger.Info("Starting scan cycle")

	raws, err := feedClient.FetchUnusualActivity(ctx)
	if err != nil {
		// Acquisition failure is a no-op run, never fatal to the process.
		logger.Warn("Failed to fetch snapshot, running empty: %v", err)
		raws = nil
	}
	trades := feed.NormalizeBatch(raws)
	logger.Info("Fetched %d records, normalized %d trades", len(raws), len(trades))

	notifications, err := scan.Run(trades, time.Now())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	logger.Info("Run fired %d notifications", len(notifications))

	if cfg.Notify.Console {
		notify.RenderSummary(os.Stdout, notifications)
	}

	if len(notifications) > 0 {
		if err := dispatcher.Dispatch(ctx, notifications); err != nil {
			logger.Error("Dispatch interrupted: %v", err)
		}
	}

	logger.Info("Scan cycle completed in %v", time.Since(startTime))
	return nil
}
