// Package models defines the core domain entities for the ssq-planner application.
// These models represent historical draws, recommended tickets and the plan that
// bundles them. All models include built-in validation to ensure data integrity
// throughout the application.
//
// Terminology:
//   - Main number: one of the 6 distinct numbers drawn from 1–33 (the red balls).
//   - Special number: the number drawn from 1–16 (the blue ball).
//   - Period: the lottery's own draw identifier ("2024001"); sorts chronologically.
package models

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MainPoolSize is the highest main number.
	MainPoolSize = 33
	// SpecialPoolSize is the highest special number.
	SpecialPoolSize = 16
	// MainsPerTicket is how many main numbers a standard ticket carries.
	MainsPerTicket = 6
	// DateLayout is the draw date format used by the archive.
	DateLayout = "2006-01-02"
)

// DrawRecord represents one historical draw. Records are immutable once ingested;
// the json tags match the archive's backup file format.
type DrawRecord struct {
	Period            string `json:"period"`
	Date              string `json:"date"`
	Mains             []int  `json:"red_balls"`
	Special           int    `json:"blue_ball"`
	FirstPrizeCount   int64  `json:"first_prize_count"`
	FirstPrizeAmount  int64  `json:"first_prize_amount"`
	SecondPrizeCount  int64  `json:"second_prize_count"`
	SecondPrizeAmount int64  `json:"second_prize_amount"`
	SalesAmount       int64  `json:"sales_amount"`
	PoolAmount        int64  `json:"pool_amount"`
}

// Validate checks that all draw fields are valid.
func (d *DrawRecord) Validate() error {
	if d.Period == "" {
		return errors.New("period must not be empty")
	}
	if _, err := time.Parse(DateLayout, d.Date); err != nil {
		return fmt.Errorf("date %q must use YYYY-MM-DD", d.Date)
	}
	if len(d.Mains) != MainsPerTicket {
		return fmt.Errorf("draw must have %d main numbers, got %d", MainsPerTicket, len(d.Mains))
	}
	if err := checkDistinctInRange(d.Mains, MainPoolSize); err != nil {
		return fmt.Errorf("main numbers: %w", err)
	}
	if d.Special < 1 || d.Special > SpecialPoolSize {
		return fmt.Errorf("special number %d out of range 1-%d", d.Special, SpecialPoolSize)
	}
	return nil
}

// DrawDate parses the record's date.
func (d *DrawRecord) DrawDate() (time.Time, error) {
	return time.Parse(DateLayout, d.Date)
}

func checkDistinctInRange(nums []int, max int) error {
	seen := make(map[int]bool, len(nums))
	for _, n := range nums {
		if n < 1 || n > max {
			return fmt.Errorf("%d out of range 1-%d", n, max)
		}
		if seen[n] {
			return fmt.Errorf("%d appears more than once", n)
		}
		seen[n] = true
	}
	return nil
}
