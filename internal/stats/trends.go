package stats

import (
	"github.com/rewired-gh/ssq-planner/internal/models"
)

const (
	// TrendWindow is how many of the newest draws the trend view covers.
	TrendWindow = 10
	// hotThreshold is the minimum appearances within the window for a hot number.
	hotThreshold = 2
	// InsufficientData marks a trend view built from fewer than TrendWindow draws.
	InsufficientData = "insufficient data"
)

// Trend is the short-window view over the newest draws.
type Trend struct {
	Sufficient  bool                `json:"sufficient"`
	Status      string              `json:"status,omitempty"`
	RecentDraws []models.DrawRecord `json:"recent_draws"`
	HotMains    []int               `json:"hot_mains"`
	HotSpecials []int               `json:"hot_specials"`
}

// AnalyzeTrends inspects the newest TrendWindow draws (the archive is newest-first).
// Fewer draws produce a degraded view carrying the InsufficientData marker.
func AnalyzeTrends(draws []models.DrawRecord) Trend {
	if len(draws) < TrendWindow {
		return Trend{
			Status:      InsufficientData,
			RecentDraws: []models.DrawRecord{},
			HotMains:    []int{},
			HotSpecials: []int{},
		}
	}

	recent := append([]models.DrawRecord(nil), draws[:TrendWindow]...)
	main, special := Tabulate(recent)
	return Trend{
		Sufficient:  true,
		RecentDraws: recent,
		HotMains:    hotNumbers(main),
		HotSpecials: hotNumbers(special),
	}
}

func hotNumbers(t FrequencyTable) []int {
	hot := []int{}
	for n := 1; n <= t.Size(); n++ {
		if t.Count(n) >= hotThreshold {
			hot = append(hot, n)
		}
	}
	return hot
}
