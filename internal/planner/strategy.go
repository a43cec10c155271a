package planner

import (
	"fmt"

	"github.com/rewired-gh/ssq-planner/internal/models"
)

// Strategy is a named sampling policy: how many mains to draw from each tier
// and which HighSpecial rank supplies the special number.
type Strategy struct {
	Name          string `json:"name"`
	High          int    `json:"high"`
	Mid           int    `json:"mid"`
	Low           int    `json:"low"`
	SpecialRank   int    `json:"special_rank"`
	Description   string `json:"description"`
	ParityControl bool   `json:"parity_control,omitempty"`
}

func (s Strategy) validate() error {
	if s.Name == "" {
		return fmt.Errorf("strategy name is required")
	}
	if s.High < 0 || s.Mid < 0 || s.Low < 0 {
		return fmt.Errorf("strategy %s: quotas must be non-negative", s.Name)
	}
	if total := s.High + s.Mid + s.Low; total > models.MainsPerTicket {
		return fmt.Errorf("strategy %s: quotas sum to %d, more than %d", s.Name, total, models.MainsPerTicket)
	}
	if s.SpecialRank < 0 {
		return fmt.Errorf("strategy %s: special rank must be non-negative", s.Name)
	}
	return nil
}

// catalog is the fixed strategy table, in plan order.
var catalog = [...]Strategy{
	{Name: "High-dominant", High: 4, Mid: 2, Low: 0, SpecialRank: 0, Description: "stable combination built on the most frequent numbers"},
	{Name: "Balanced", High: 3, Mid: 2, Low: 1, SpecialRank: 1, Description: "even spread across high, mid and low tiers"},
	{Name: "Mid-first", High: 2, Mid: 3, Low: 1, SpecialRank: 2, Description: "weighted towards the mid tier"},
	{Name: "Hot-cold mix", High: 3, Mid: 1, Low: 2, SpecialRank: 3, Description: "hedges hot numbers against cold ones"},
	{Name: "Ultra-high", High: 5, Mid: 1, Low: 0, SpecialRank: 0, Description: "aggressive, top-frequency numbers only"},
	{Name: "Low-contrarian", High: 1, Mid: 2, Low: 3, SpecialRank: 4, Description: "favors under-represented numbers"},
	{Name: "Random-balanced", High: 2, Mid: 2, Low: 2, SpecialRank: 2, Description: "uniform draw from every tier"},
	{Name: "Odd-even optimized", High: 3, Mid: 2, Low: 1, SpecialRank: 1, Description: "balanced tiers with 3-4 odd numbers", ParityControl: true},
}

// coverageQuota is the tier mix used for coverage candidates.
var coverageQuota = Strategy{Name: "Coverage", High: 3, Mid: 2, Low: 1, Description: "diversity-optimized coverage ticket"}

func init() {
	for _, s := range catalog {
		if err := s.validate(); err != nil {
			panic(err)
		}
	}
	if err := coverageQuota.validate(); err != nil {
		panic(err)
	}
}

// Strategies returns a copy of the catalog in plan order.
func Strategies() []Strategy {
	out := make([]Strategy, len(catalog))
	copy(out, catalog[:])
	return out
}

// MaxSingles is the largest number of single tickets one plan can hold.
func MaxSingles() int {
	return len(catalog)
}

// filterStrategies keeps catalog entries whose names are listed, preserving
// catalog order. An empty or fully unknown filter selects the whole catalog.
func filterStrategies(names []string) []Strategy {
	if len(names) == 0 {
		return Strategies()
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Strategy
	for _, s := range catalog {
		if want[s.Name] {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return Strategies()
	}
	return out
}
