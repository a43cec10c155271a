package planner

import (
	"math/rand"
	"sort"

	"github.com/rewired-gh/ssq-planner/internal/models"
	"github.com/rewired-gh/ssq-planner/internal/stats"
)

// synthesize draws one standard ticket for s from the tiers.
func synthesize(s Strategy, tiers stats.Tiers, rng *rand.Rand) models.Ticket {
	mains := drawMains(s, tiers, rng)
	t := models.NewTicket(models.TicketStandard, mains, []int{specialAt(tiers.HighSpecial, s.SpecialRank)})
	t.Strategy = s.Name
	t.Description = s.Description
	return t
}

// drawMains samples each tier by quota, pads to six numbers and returns them sorted.
func drawMains(s Strategy, tiers stats.Tiers, rng *rand.Rand) []int {
	quotas := []struct {
		pool  []int
		count int
	}{
		{tiers.High, s.High},
		{tiers.Mid, s.Mid},
		{tiers.Low, s.Low},
	}

	picked := make([]int, 0, models.MainsPerTicket)
	for _, q := range quotas {
		if q.count <= 0 || len(q.pool) == 0 {
			continue
		}
		n := min(q.count, len(q.pool))
		if s.ParityControl {
			picked = append(picked, sampleWithParity(q.pool, n, picked, rng)...)
		} else {
			picked = append(picked, sample(q.pool, n, rng)...)
		}
	}

	picked = pad(picked, [][]int{tiers.Union(), fullRange(models.MainPoolSize)}, rng)
	if len(picked) > models.MainsPerTicket {
		picked = picked[:models.MainsPerTicket]
	}
	sort.Ints(picked)
	return picked
}

// sample picks n distinct members of pool uniformly at random.
func sample(pool []int, n int, rng *rand.Rand) []int {
	if n > len(pool) {
		n = len(pool)
	}
	perm := rng.Perm(len(pool))
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = pool[perm[i]]
	}
	return out
}

// sampleWithParity picks count members of pool steering the ticket towards
// three odd numbers, or four once the ticket would exceed six.
func sampleWithParity(pool []int, count int, existing []int, rng *rand.Rand) []int {
	existingOdd := 0
	for _, n := range existing {
		if n%2 == 1 {
			existingOdd++
		}
	}
	target := 3
	if len(existing)+count > models.MainsPerTicket {
		target = 4
	}
	neededOdd := min(max(0, target-existingOdd), count)
	neededEven := count - neededOdd

	var odds, evens []int
	for _, n := range pool {
		if n%2 == 1 {
			odds = append(odds, n)
		} else {
			evens = append(evens, n)
		}
	}

	selected := make([]int, 0, count)
	selected = append(selected, sample(odds, neededOdd, rng)...)
	selected = append(selected, sample(evens, neededEven, rng)...)

	if len(selected) < count {
		rest := without(pool, selected)
		selected = append(selected, sample(rest, count-len(selected), rng)...)
	}
	return selected
}

// pad tops picked up to six numbers, walking the fallback pools in order and
// choosing uniformly among members not yet picked. Each pool is visited once.
func pad(picked []int, pools [][]int, rng *rand.Rand) []int {
	for _, pool := range pools {
		if len(picked) >= models.MainsPerTicket {
			break
		}
		avail := without(pool, picked)
		sort.Ints(avail)
		for len(picked) < models.MainsPerTicket && len(avail) > 0 {
			i := rng.Intn(len(avail))
			picked = append(picked, avail[i])
			avail = append(avail[:i], avail[i+1:]...)
		}
	}
	return picked
}

// specialAt returns HighSpecial[rank], clamped to the first entry when rank is
// out of range, or 1 when there is no HighSpecial at all.
func specialAt(highSpecial []int, rank int) int {
	if rank >= 0 && rank < len(highSpecial) {
		return highSpecial[rank]
	}
	if len(highSpecial) > 0 {
		return highSpecial[0]
	}
	return 1
}

func without(pool, exclude []int) []int {
	skip := make(map[int]bool, len(exclude))
	for _, n := range exclude {
		skip[n] = true
	}
	out := make([]int, 0, len(pool))
	for _, n := range pool {
		if !skip[n] {
			out = append(out, n)
		}
	}
	return out
}

func fullRange(size int) []int {
	out := make([]int, size)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
