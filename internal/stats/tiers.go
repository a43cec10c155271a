package stats

// highSpecialSize is how many top specials form HighSpecial.
const highSpecialSize = 8

// Tiers partitions the main pool into frequency bands.
type Tiers struct {
	High        []int `json:"high"`
	Mid         []int `json:"mid"`
	Low         []int `json:"low"`
	HighSpecial []int `json:"high_special"`
}

// Partition splits the main table into High/Mid/Low and picks HighSpecial.
//
// For a pool of N numbers, High holds the top max(6, N/3), Mid brings the
// cumulative count to max(12, 2N/3) and Low takes the rest. Tier members keep
// rank order (count descending, ties by ascending number).
func Partition(main, special FrequencyTable) Tiers {
	ranked := main.Ranked()
	n := len(ranked)

	highCut := clamp(max(6, n/3), n)
	midCut := clamp(max(12, 2*n/3), n)

	var t Tiers
	for i, nc := range ranked {
		switch {
		case i < highCut:
			t.High = append(t.High, nc.Number)
		case i < midCut:
			t.Mid = append(t.Mid, nc.Number)
		default:
			t.Low = append(t.Low, nc.Number)
		}
	}

	seen := make(map[int]bool, highSpecialSize)
	for _, nc := range special.Ranked() {
		if len(t.HighSpecial) == highSpecialSize {
			break
		}
		t.HighSpecial = append(t.HighSpecial, nc.Number)
		seen[nc.Number] = true
	}
	for n := 1; len(t.HighSpecial) < highSpecialSize && n <= special.Size(); n++ {
		if !seen[n] {
			t.HighSpecial = append(t.HighSpecial, n)
		}
	}
	return t
}

// Union returns all tier members in High, Mid, Low order.
func (t Tiers) Union() []int {
	out := make([]int, 0, len(t.High)+len(t.Mid)+len(t.Low))
	out = append(out, t.High...)
	out = append(out, t.Mid...)
	return append(out, t.Low...)
}

func clamp(v, hi int) int {
	if v > hi {
		return hi
	}
	return v
}
