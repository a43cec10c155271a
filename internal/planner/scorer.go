package planner

import (
	"github.com/rewired-gh/ssq-planner/internal/models"
	"github.com/rewired-gh/ssq-planner/internal/stats"
)

// pickSeed returns the index and history score of the ticket whose odd/even,
// sum band and span band have occurred least often in the archive. The first
// ticket wins ties. It returns -1 for an empty list.
//
// Favoring the rarest shape is a heuristic, not a prediction.
func pickSeed(tickets []models.Ticket, dist stats.PatternDistribution) (int, int) {
	best, bestScore := -1, 0
	for i, t := range tickets {
		score := dist.Support(t.Features)
		if best < 0 || score < bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}
