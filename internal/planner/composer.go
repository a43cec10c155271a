package planner

import (
	"sort"

	"github.com/rewired-gh/ssq-planner/internal/models"
	"github.com/rewired-gh/ssq-planner/internal/stats"
)

// compounds builds the 7+1 and 6+2 tickets from the seed after applying anchors.
func compounds(seed models.Ticket, anchor models.AnchorConstraint, main, special stats.FrequencyTable) (models.Ticket, models.Ticket) {
	base := applyAnchorMains(seed.Mains, anchor.Mains, main)

	baseSpecial := specialAt(seed.Specials, 0)
	if sp, ok := anchor.Special(); ok {
		baseSpecial = sp
	}

	extraMain := coldestMissing(main, base)
	c7 := models.NewTicket(models.TicketCompound7, append(append([]int(nil), base...), extraMain), []int{baseSpecial})
	c7.Strategy = seed.Strategy
	c7.Description = "seed ticket extended with its least frequent missing main number"

	extraSpecial := coldestMissing(special, []int{baseSpecial})
	c62 := models.NewTicket(models.TicketCompound62, base, []int{baseSpecial, extraSpecial})
	c62.Strategy = seed.Strategy
	c62.Description = "seed ticket extended with its least frequent other special number"

	return c7, c62
}

// applyAnchorMains forces every anchor into mains. When that leaves more than
// six numbers, the least frequent non-anchor numbers are dropped one at a time.
func applyAnchorMains(mains, anchors []int, main stats.FrequencyTable) []int {
	out := append([]int(nil), mains...)
	isAnchor := make(map[int]bool, len(anchors))
	for _, a := range anchors {
		isAnchor[a] = true
	}
	for _, a := range anchors {
		if !contains(out, a) {
			out = append(out, a)
		}
	}

	if len(out) > models.MainsPerTicket {
		for _, nc := range main.Coldest() {
			if len(out) == models.MainsPerTicket {
				break
			}
			if isAnchor[nc.Number] || !contains(out, nc.Number) {
				continue
			}
			out = remove(out, nc.Number)
		}
	}
	sort.Ints(out)
	return out
}

// coldestMissing returns the least frequent number of the table's pool not in
// exclude, ties by ascending number. It falls back to scanning the pool in
// order, then to exclude[0].
func coldestMissing(t stats.FrequencyTable, exclude []int) int {
	for _, nc := range t.Coldest() {
		if !contains(exclude, nc.Number) {
			return nc.Number
		}
	}
	for n := 1; n <= t.Size(); n++ {
		if !contains(exclude, n) {
			return n
		}
	}
	if len(exclude) > 0 {
		return exclude[0]
	}
	return 1
}

func contains(nums []int, n int) bool {
	for _, x := range nums {
		if x == n {
			return true
		}
	}
	return false
}

func remove(nums []int, n int) []int {
	for i, x := range nums {
		if x == n {
			return append(nums[:i], nums[i+1:]...)
		}
	}
	return nums
}
