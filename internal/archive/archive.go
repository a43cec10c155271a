// Package archive keeps the draw archive current.
//
// A sync run seeds an empty archive (from the JSON backup, or failing that
// one full fetch that also writes the backup) and then fetches only the draws
// dated after the newest stored one.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rewired-gh/ssq-planner/internal/logger"
	"github.com/rewired-gh/ssq-planner/internal/metrics"
	"github.com/rewired-gh/ssq-planner/internal/models"
	"github.com/rewired-gh/ssq-planner/internal/storage"
)

// Seed sources reported in Result.
const (
	SourceArchive   = "archive"
	SourceBackup    = "backup"
	SourceFullFetch = "full_fetch"
)

// Fetcher retrieves draws from the upstream API.
type Fetcher interface {
	MaxPages(ctx context.Context) (int, error)
	FetchAll(ctx context.Context, maxPages int) ([]models.DrawRecord, error)
	FetchRange(ctx context.Context, start, end time.Time) ([]models.DrawRecord, error)
}

// Options configure a Syncer.
type Options struct {
	BackupPath string // seed file; written once after a full fetch
	ExportPath string // refreshed whenever a run adds draws; empty disables
	MaxPages   int    // 0 discovers the page count
}

// Syncer runs archive syncs.
type Syncer struct {
	store   *storage.Storage
	fetcher Fetcher
	opts    Options
	now     func() time.Time
}

// Result summarizes one sync run.
type Result struct {
	Source string             // where the archive came from before the incremental step
	Seeded int                // draws added while seeding
	Added  int                // draws added by the incremental fetch
	Total  int                // draws stored after the run
	Latest *models.DrawRecord // newest stored draw
}

// NewDraws is the total number of draws this run added.
func (r *Result) NewDraws() int {
	return r.Seeded + r.Added
}

// New creates a Syncer.
func New(store *storage.Storage, fetcher Fetcher, opts Options) *Syncer {
	return &Syncer{store: store, fetcher: fetcher, opts: opts, now: time.Now}
}

// Run performs one sync.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	res, err := s.run(ctx)
	if err != nil {
		metrics.ObserveSync(0, 0, err)
		return nil, err
	}
	metrics.ObserveSync(res.NewDraws(), res.Total, nil)
	return res, nil
}

func (s *Syncer) run(ctx context.Context) (*Result, error) {
	res := &Result{Source: SourceArchive}

	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		if err := s.seed(ctx, res); err != nil {
			return nil, err
		}
	}

	latest, err := s.store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, errors.New("no draw data available after seeding")
	}

	added, err := s.catchUp(ctx, latest)
	if err != nil {
		return nil, err
	}
	res.Added = added

	if res.NewDraws() > 0 && s.opts.ExportPath != "" {
		if err := s.store.ExportJSON(ctx, s.opts.ExportPath); err != nil {
			logger.Warn("Failed to export archive: %v", err)
		}
	}

	if res.Total, err = s.store.Count(ctx); err != nil {
		return nil, err
	}
	if res.Latest, err = s.store.Latest(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// seed fills an empty archive from the backup file, or with a full fetch.
func (s *Syncer) seed(ctx context.Context, res *Result) error {
	if s.opts.BackupPath != "" {
		n, err := s.store.ImportJSON(ctx, s.opts.BackupPath)
		if err != nil {
			logger.Warn("Failed to import backup %s: %v", s.opts.BackupPath, err)
		}
		if n > 0 {
			logger.Info("Seeded %d draws from backup %s", n, s.opts.BackupPath)
			res.Source = SourceBackup
			res.Seeded = n
			return nil
		}
	}

	maxPages := s.opts.MaxPages
	if maxPages <= 0 {
		var err error
		if maxPages, err = s.fetcher.MaxPages(ctx); err != nil {
			return fmt.Errorf("failed to discover page count: %w", err)
		}
	}
	logger.Info("Archive empty, fetching full history (%d pages)", maxPages)

	draws, fetchErr := s.fetcher.FetchAll(ctx, maxPages)
	if fetchErr != nil && len(draws) == 0 {
		return fmt.Errorf("failed to fetch history: %w", fetchErr)
	}
	if fetchErr != nil {
		logger.Warn("Full fetch incomplete, keeping %d draws: %v", len(draws), fetchErr)
	}

	n, err := s.store.UpsertDraws(ctx, draws)
	if err != nil {
		return err
	}
	res.Source = SourceFullFetch
	res.Seeded = n

	if s.opts.BackupPath != "" && n > 0 {
		if _, err := os.Stat(s.opts.BackupPath); errors.Is(err, os.ErrNotExist) {
			if err := s.store.ExportJSON(ctx, s.opts.BackupPath); err != nil {
				logger.Warn("Failed to write backup %s: %v", s.opts.BackupPath, err)
			}
		}
	}
	return nil
}

// catchUp fetches draws dated after latest up to today.
func (s *Syncer) catchUp(ctx context.Context, latest *models.DrawRecord) (int, error) {
	last, err := latest.DrawDate()
	if err != nil {
		logger.Warn("Latest draw %s has a bad date, skipping incremental fetch: %v", latest.Period, err)
		return 0, nil
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := last.AddDate(0, 0, 1)
	if start.After(today) {
		logger.Debug("Archive up to date (latest %s on %s)", latest.Period, latest.Date)
		return 0, nil
	}

	draws, fetchErr := s.fetcher.FetchRange(ctx, start, today)
	if fetchErr != nil && len(draws) == 0 {
		return 0, fmt.Errorf("failed to fetch new draws: %w", fetchErr)
	}
	if fetchErr != nil {
		logger.Warn("Incremental fetch incomplete: %v", fetchErr)
	}

	n, err := s.store.UpsertDraws(ctx, draws)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("Added %d new draws since %s", n, latest.Date)
	}
	return n, nil
}
