package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/rewired-gh/ssq-planner/internal/archive"
	"github.com/rewired-gh/ssq-planner/internal/config"
	"github.com/rewired-gh/ssq-planner/internal/cwl"
	"github.com/rewired-gh/ssq-planner/internal/logger"
	"github.com/rewired-gh/ssq-planner/internal/metrics"
	"github.com/rewired-gh/ssq-planner/internal/planner"
	"github.com/rewired-gh/ssq-planner/internal/server"
	"github.com/rewired-gh/ssq-planner/internal/storage"
	"github.com/rewired-gh/ssq-planner/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	// Initialize storage
	store, err := storage.New(cfg.Storage.DBPath, 0o644, 0o755)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	cwlClient := cwl.NewClient(
		cfg.Archive.APIURL,
		cfg.Archive.Timeout,
		cwl.ClientConfig{
			PageSize:          cfg.Archive.PageSize,
			MaxRetries:        cfg.Archive.MaxRetries,
			RetryDelayBase:    cfg.Archive.RetryDelayBase,
			RequestsPerSecond: cfg.Archive.RequestsPerSecond,
			BreakerFailures:   uint32(cfg.Archive.BreakerFailures),
			BreakerTimeout:    cfg.Archive.BreakerTimeout,
		},
	)
	syncer := archive.New(store, cwlClient, archive.Options{
		BackupPath: cfg.Archive.BackupPath,
		ExportPath: cfg.Storage.ExportPath,
		MaxPages:   cfg.Archive.MaxPages,
	})

	engine := planner.New(planner.Config{
		Singles:             cfg.Engine.Singles,
		CoverageSets:        cfg.Engine.CoverageSets,
		CandidateMultiplier: cfg.Engine.CandidateMultiplier,
		StrategySeed:        cfg.Engine.StrategySeed,
		CandidateSeed:       cfg.Engine.CandidateSeed,
	})

	// Initialize Telegram client
	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(engine, store, server.Config{
			Addr:               cfg.Server.Addr,
			RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
			HistoryPageSize:    cfg.Server.HistoryPageSize,
		})
		go func() {
			logger.Info("HTTP API listening on %s", cfg.Server.Addr)
			if err := srv.ListenAndServe(); err != nil {
				logger.Error("HTTP server failed: %v", err)
				cancel()
			}
		}()
	}

	logger.Info("Starting archive sync loop (interval: %v)", cfg.Archive.SyncInterval)
	ticker := time.NewTicker(cfg.Archive.SyncInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleSyncResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Archive sync failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError("Archive sync failed", err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
			return
		}
		if consecutiveFailures > 0 && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
			}
		}
		consecutiveFailures = 0
	}

	handleSyncResult(runSyncCycle(ctx, syncer, store, engine, telegramClient))

	for {
		select {
		case <-ctx.Done():
			if srv != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Warn("HTTP server shutdown: %v", err)
				}
				shutdownCancel()
			}
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled archive sync")
			handleSyncResult(runSyncCycle(ctx, syncer, store, engine, telegramClient))
		}
	}
}

// runSyncCycle syncs the archive and, when new draws arrived, sends a fresh plan.
func runSyncCycle(
	ctx context.Context,
	syncer *archive.Syncer,
	store *storage.Storage,
	engine *planner.Engine,
	telegramClient *telegram.Client,
) error {
	startTime := time.Now()

	res, err := syncer.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("Archive sync finished in %v: source=%s new=%d total=%d",
		time.Since(startTime), res.Source, res.NewDraws(), res.Total)

	if res.NewDraws() == 0 || telegramClient == nil {
		return nil
	}

	draws, err := store.Draws(ctx)
	if err != nil {
		return err
	}
	planStart := time.Now()
	plan, err := engine.Generate(draws, planner.Request{})
	if err != nil {
		return err
	}
	plan.ID = uuid.NewString()
	metrics.ObservePlan("sync", plan, engine.Config().CoverageSets, time.Since(planStart))

	if err := telegramClient.SendPlan(plan, res.Latest); err != nil {
		logger.Error("Failed to send Telegram notification: %v", err)
	} else {
		logger.Info("Sent plan %s for draw %s to Telegram", plan.ID, res.Latest.Period)
	}
	return nil
}
