// Command plan prints a recommendation plan, or the archive analysis, as JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/rewired-gh/ssq-planner/internal/archive"
	"github.com/rewired-gh/ssq-planner/internal/config"
	"github.com/rewired-gh/ssq-planner/internal/cwl"
	"github.com/rewired-gh/ssq-planner/internal/logger"
	"github.com/rewired-gh/ssq-planner/internal/metrics"
	"github.com/rewired-gh/ssq-planner/internal/models"
	"github.com/rewired-gh/ssq-planner/internal/planner"
	"github.com/rewired-gh/ssq-planner/internal/storage"
)

var (
	configPath = flag.String("config", "", "Path to configuration file (defaults and environment when empty)")
	singles    = flag.Int("singles", 0, "Number of single tickets (1-8, 0 uses the configured value)")
	redDan     = flag.String("red-dan", "", "Comma-separated anchored red balls (at most 5)")
	blueDan    = flag.String("blue-dan", "", "Anchored blue ball")
	strategies = flag.String("strategies", "", "Comma-separated strategy names to draw singles from")
	analysis   = flag.Bool("analysis", false, "Print the archive analysis instead of a plan")
	syncFirst  = flag.Bool("sync", false, "Sync the archive before planning")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	// logs go to stderr so stdout stays valid JSON
	logger.InitWithWriter(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	if err := run(context.Background(), cfg); err != nil {
		logger.Fatal("%v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := storage.New(cfg.Storage.DBPath, 0o644, 0o755)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	if *syncFirst {
		client := cwl.NewClient(cfg.Archive.APIURL, cfg.Archive.Timeout, cwl.ClientConfig{
			PageSize:          cfg.Archive.PageSize,
			MaxRetries:        cfg.Archive.MaxRetries,
			RetryDelayBase:    cfg.Archive.RetryDelayBase,
			RequestsPerSecond: cfg.Archive.RequestsPerSecond,
			BreakerFailures:   uint32(cfg.Archive.BreakerFailures),
			BreakerTimeout:    cfg.Archive.BreakerTimeout,
		})
		res, err := archive.New(store, client, archive.Options{
			BackupPath: cfg.Archive.BackupPath,
			ExportPath: cfg.Storage.ExportPath,
			MaxPages:   cfg.Archive.MaxPages,
		}).Run(ctx)
		if err != nil {
			return fmt.Errorf("failed to sync archive: %w", err)
		}
		logger.Info("Archive synced: %d new, %d total", res.NewDraws(), res.Total)
	}

	draws, err := store.Draws(ctx)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	if *analysis {
		a, err := planner.Analyze(draws)
		if err != nil {
			return err
		}
		return printJSON(a)
	}

	engine := planner.New(planner.Config{
		Singles:             cfg.Engine.Singles,
		CoverageSets:        cfg.Engine.CoverageSets,
		CandidateMultiplier: cfg.Engine.CandidateMultiplier,
		StrategySeed:        cfg.Engine.StrategySeed,
		CandidateSeed:       cfg.Engine.CandidateSeed,
	})

	req := planner.Request{Singles: *singles}
	anchor := models.AnchorConstraint{
		Mains:    models.ParseNumberList(*redDan, models.MainPoolSize),
		Specials: models.ParseNumberList(*blueDan, models.SpecialPoolSize),
	}
	if a := anchor.Normalize(); !a.Empty() {
		req.Anchor = &a
	}
	for _, name := range strings.Split(*strategies, ",") {
		if name = strings.TrimSpace(name); name != "" {
			req.Strategies = append(req.Strategies, name)
		}
	}

	start := time.Now()
	plan, err := engine.Generate(draws, req)
	if err != nil {
		return err
	}
	plan.ID = uuid.NewString()
	metrics.ObservePlan("cli", plan, engine.Config().CoverageSets, time.Since(start))

	return printJSON(map[string]any{
		"latest_period": draws[0].Period,
		"latest_date":   draws[0].Date,
		"plan":          plan,
	})
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}
