package planner

import "github.com/rewired-gh/ssq-planner/internal/models"

// overlapCeiling is the most main numbers two selected tickets may share.
const overlapCeiling = 4

// featureUsage counts how often each feature value appears among selected tickets.
type featureUsage struct {
	oddEven map[string]int
	sum     map[int]int
	zone    map[string]int
}

func newFeatureUsage() featureUsage {
	return featureUsage{
		oddEven: make(map[string]int),
		sum:     make(map[int]int),
		zone:    make(map[string]int),
	}
}

func (u featureUsage) score(f models.Features) int {
	return u.oddEven[f.OddEven] + u.sum[f.SumBucket] + u.zone[f.ZonePattern]
}

func (u featureUsage) add(f models.Features) {
	u.oddEven[f.OddEven]++
	u.sum[f.SumBucket]++
	u.zone[f.ZonePattern]++
}

// selectionKey orders candidates: least overlap, then least feature usage,
// then highest historical frequency.
type selectionKey struct {
	overlap int
	usage   int
	freq    int
}

func (k selectionKey) less(o selectionKey) bool {
	if k.overlap != o.overlap {
		return k.overlap < o.overlap
	}
	if k.usage != o.usage {
		return k.usage < o.usage
	}
	return k.freq > o.freq
}

// selectDiverse greedily picks up to totalSets candidates such that no two
// share more than overlapCeiling mains. It returns fewer when the eligible
// pool runs out; that is not an error. The input slice is not modified.
func selectDiverse(candidates []Candidate, totalSets int) []Candidate {
	pool := append([]Candidate(nil), candidates...)
	selected := make([]Candidate, 0, totalSets)
	usage := newFeatureUsage()

	for len(selected) < totalSets && len(pool) > 0 {
		best := -1
		var bestKey selectionKey
		for i, c := range pool {
			ov := maxOverlap(c, selected)
			if ov > overlapCeiling {
				continue
			}
			k := selectionKey{overlap: ov, usage: usage.score(c.Ticket.Features), freq: c.FreqScore}
			if best < 0 || k.less(bestKey) {
				best, bestKey = i, k
			}
		}
		if best < 0 {
			break
		}

		chosen := pool[best]
		pool = append(pool[:best], pool[best+1:]...)
		selected = append(selected, chosen)
		usage.add(chosen.Ticket.Features)
	}
	return selected
}

func maxOverlap(c Candidate, selected []Candidate) int {
	worst := 0
	for _, s := range selected {
		if ov := models.Overlap(c.Ticket.Mains, s.Ticket.Mains); ov > worst {
			worst = ov
		}
	}
	return worst
}
