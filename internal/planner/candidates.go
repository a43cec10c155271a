package planner

import (
	"fmt"
	"math/rand"

	"github.com/rewired-gh/ssq-planner/internal/models"
	"github.com/rewired-gh/ssq-planner/internal/stats"
)

const (
	// highSpecialProbability is the chance a candidate's special comes from HighSpecial.
	highSpecialProbability = 0.7
	// maxAttemptsPerCandidate bounds generation when duplicates keep recurring.
	maxAttemptsPerCandidate = 50
)

// Candidate is a coverage ticket under consideration by the selector.
type Candidate struct {
	Ticket    models.Ticket
	FreqScore int // main frequency sum plus the special's frequency
}

func (c Candidate) key() string {
	return fmt.Sprint(c.Ticket.Mains, c.Ticket.Specials)
}

// candidateTarget is the pool size generated for a selection of totalSets.
func candidateTarget(totalSets, multiplier int) int {
	return max(totalSets*multiplier, totalSets*3)
}

// generateCandidates builds up to target distinct candidates. Generation stops
// early if the space of distinct tickets is exhausted within the attempt budget.
func generateCandidates(tiers stats.Tiers, main, special stats.FrequencyTable, target int, rng *rand.Rand) []Candidate {
	candidates := make([]Candidate, 0, target)
	seen := make(map[string]bool, target)

	for attempts := 0; len(candidates) < target && attempts < target*maxAttemptsPerCandidate; attempts++ {
		mains := drawMains(coverageQuota, tiers, rng)
		sp := candidateSpecial(tiers.HighSpecial, rng)

		t := models.NewTicket(models.TicketStandard, mains, []int{sp})
		t.Strategy = coverageQuota.Name
		t.Description = coverageQuota.Description
		c := Candidate{
			Ticket:    t,
			FreqScore: main.SumOf(mains) + special.Count(sp),
		}
		if seen[c.key()] {
			continue
		}
		seen[c.key()] = true
		candidates = append(candidates, c)
	}
	return candidates
}

func candidateSpecial(highSpecial []int, rng *rand.Rand) int {
	if len(highSpecial) > 0 && rng.Float64() < highSpecialProbability {
		return highSpecial[rng.Intn(len(highSpecial))]
	}
	return rng.Intn(models.SpecialPoolSize) + 1
}
