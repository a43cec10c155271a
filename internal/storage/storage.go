// Package storage keeps the draw archive in SQLite and moves it to and from
// JSON backup files.
//
// Writes are serialized behind a mutex; readers always receive fresh copies,
// so a plan computed from Draws() is never affected by a concurrent sync.
// Backup files are written atomically through a temp file and rename.
package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rewired-gh/ssq-planner/internal/logger"
	"github.com/rewired-gh/ssq-planner/internal/models"
	_ "modernc.org/sqlite"
)

const backupVersion = "1.0"

const schema = `
CREATE TABLE IF NOT EXISTS draws (
	period              TEXT PRIMARY KEY,
	draw_date           TEXT NOT NULL,
	red_balls           TEXT NOT NULL,
	blue_ball           INTEGER NOT NULL,
	first_prize_count   INTEGER NOT NULL DEFAULT 0,
	first_prize_amount  INTEGER NOT NULL DEFAULT 0,
	second_prize_count  INTEGER NOT NULL DEFAULT 0,
	second_prize_amount INTEGER NOT NULL DEFAULT 0,
	sales_amount        INTEGER NOT NULL DEFAULT 0,
	pool_amount         INTEGER NOT NULL DEFAULT 0
)`

const drawColumns = `period, draw_date, red_balls, blue_ball,
	first_prize_count, first_prize_amount, second_prize_count, second_prize_amount,
	sales_amount, pool_amount`

// Storage is the SQLite-backed draw archive.
type Storage struct {
	db *sql.DB
	mu sync.RWMutex

	filePermissions os.FileMode
	dirPermissions  os.FileMode
}

// BackupFile is the JSON backup layout.
type BackupFile struct {
	Version string              `json:"version"`
	SavedAt time.Time           `json:"saved_at"`
	Draws   []models.DrawRecord `json:"draws"`
}

// New opens (creating if needed) the archive at dbPath. ":memory:" gives a
// private in-memory archive.
func New(dbPath string, filePermissions, dirPermissions os.FileMode) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "ssq-planner", "draws.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), dirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Storage{
		db:              db,
		filePermissions: filePermissions,
		dirPermissions:  dirPermissions,
	}, nil
}

// Close releases the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// UpsertDraws merges records by period and returns how many were new.
// Records failing validation are skipped with a warning.
func (s *Storage) UpsertDraws(ctx context.Context, draws []models.DrawRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	before, err := countDraws(ctx, tx)
	if err != nil {
		return 0, err
	}

	for i := range draws {
		d := draws[i]
		if err := d.Validate(); err != nil {
			logger.Warn("Skipping invalid draw %q: %v", d.Period, err)
			continue
		}
		mains, err := json.Marshal(d.Mains)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal main numbers for %s: %w", d.Period, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO draws (`+drawColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(period) DO UPDATE SET
				draw_date = excluded.draw_date,
				red_balls = excluded.red_balls,
				blue_ball = excluded.blue_ball,
				first_prize_count = excluded.first_prize_count,
				first_prize_amount = excluded.first_prize_amount,
				second_prize_count = excluded.second_prize_count,
				second_prize_amount = excluded.second_prize_amount,
				sales_amount = excluded.sales_amount,
				pool_amount = excluded.pool_amount
		`, d.Period, d.Date, string(mains), d.Special,
			d.FirstPrizeCount, d.FirstPrizeAmount, d.SecondPrizeCount, d.SecondPrizeAmount,
			d.SalesAmount, d.PoolAmount)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert draw %s: %w", d.Period, err)
		}
	}

	after, err := countDraws(ctx, tx)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit draws: %w", err)
	}
	return after - before, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func countDraws(ctx context.Context, q queryer) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM draws`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count draws: %w", err)
	}
	return n, nil
}

// Count returns the number of stored draws.
func (s *Storage) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countDraws(ctx, s.db)
}

// Draws returns every draw, newest first.
func (s *Storage) Draws(ctx context.Context) ([]models.DrawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryDraws(ctx, s.db, `SELECT `+drawColumns+` FROM draws ORDER BY period DESC`)
}

// Latest returns the newest draw, or nil when the archive is empty.
func (s *Storage) Latest(ctx context.Context) (*models.DrawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draws, err := queryDraws(ctx, s.db, `SELECT `+drawColumns+` FROM draws ORDER BY period DESC LIMIT 1`)
	if err != nil {
		return nil, err
	}
	if len(draws) == 0 {
		return nil, nil
	}
	return &draws[0], nil
}

// Page returns one page of draws, newest first, plus the total draw count.
// Pages start at 1; out-of-range pages are empty.
func (s *Storage) Page(ctx context.Context, page, perPage int) ([]models.DrawRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		return nil, 0, fmt.Errorf("invalid page size %d: must be positive", perPage)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total, err := countDraws(ctx, s.db)
	if err != nil {
		return nil, 0, err
	}
	draws, err := queryDraws(ctx, s.db,
		`SELECT `+drawColumns+` FROM draws ORDER BY period DESC LIMIT ? OFFSET ?`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	return draws, total, nil
}

func queryDraws(ctx context.Context, q queryer, query string, args ...any) ([]models.DrawRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query draws: %w", err)
	}
	defer rows.Close()

	draws := make([]models.DrawRecord, 0)
	for rows.Next() {
		var (
			d     models.DrawRecord
			mains string
		)
		if err := rows.Scan(&d.Period, &d.Date, &mains, &d.Special,
			&d.FirstPrizeCount, &d.FirstPrizeAmount, &d.SecondPrizeCount, &d.SecondPrizeAmount,
			&d.SalesAmount, &d.PoolAmount); err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		if err := json.Unmarshal([]byte(mains), &d.Mains); err != nil {
			return nil, fmt.Errorf("failed to decode main numbers for %s: %w", d.Period, err)
		}
		draws = append(draws, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read draws: %w", err)
	}
	return draws, nil
}

// ExportJSON writes the whole archive to path as a BackupFile.
func (s *Storage) ExportJSON(ctx context.Context, path string) error {
	draws, err := s.Draws(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), s.dirPermissions); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	data, err := json.MarshalIndent(BackupFile{
		Version: backupVersion,
		SavedAt: time.Now(),
		Draws:   draws,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, s.filePermissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// ImportJSON merges a backup into the archive and returns how many draws were
// new. A missing file imports nothing. Both the BackupFile layout and a bare
// array of draws are accepted.
func (s *Storage) ImportJSON(ctx context.Context, path string) (int, error) {
	// Stale temp file from an interrupted export.
	_ = os.Remove(path + ".tmp")

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}

	var draws []models.DrawRecord
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &draws); err != nil {
			return 0, fmt.Errorf("failed to unmarshal draws: %w", err)
		}
	} else {
		var backup BackupFile
		if err := json.Unmarshal(data, &backup); err != nil {
			return 0, fmt.Errorf("failed to unmarshal backup: %w", err)
		}
		draws = backup.Draws
	}

	return s.UpsertDraws(ctx, draws)
}
