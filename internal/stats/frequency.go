// Package stats turns a draw archive snapshot into the frequency, tier, pattern
// and trend views the planner and the presentation layer consume.
//
// Every function here is a pure function of its input slice: nothing is cached
// between calls, so an unchanged archive always yields identical results.
package stats

import (
	"sort"

	"github.com/rewired-gh/ssq-planner/internal/models"
)

// FrequencyTable counts how often each number of one pool was drawn.
type FrequencyTable struct {
	counts []int // index 0 unused
	draws  int
}

// NumberCount pairs a number with its occurrence count.
type NumberCount struct {
	Number int `json:"number"`
	Count  int `json:"count"`
}

// NewFrequencyTable returns a zero-filled table for numbers 1..size.
func NewFrequencyTable(size int) FrequencyTable {
	return FrequencyTable{counts: make([]int, size+1)}
}

// Tabulate counts main and special occurrences across the archive.
// An empty archive yields zero-filled tables.
func Tabulate(draws []models.DrawRecord) (main, special FrequencyTable) {
	main = NewFrequencyTable(models.MainPoolSize)
	special = NewFrequencyTable(models.SpecialPoolSize)
	for _, d := range draws {
		for _, n := range d.Mains {
			main.add(n)
		}
		special.add(d.Special)
	}
	main.draws = len(draws)
	special.draws = len(draws)
	return main, special
}

func (t *FrequencyTable) add(n int) {
	if n >= 1 && n < len(t.counts) {
		t.counts[n]++
	}
}

// Size is the highest number in the pool.
func (t FrequencyTable) Size() int {
	if len(t.counts) == 0 {
		return 0
	}
	return len(t.counts) - 1
}

// Draws is the number of records the table was built from.
func (t FrequencyTable) Draws() int {
	return t.draws
}

// Count returns the occurrences of n (0 when out of range).
func (t FrequencyTable) Count(n int) int {
	if n < 1 || n >= len(t.counts) {
		return 0
	}
	return t.counts[n]
}

// Percent returns the share of draws containing n, in percent.
func (t FrequencyTable) Percent(n int) float64 {
	if t.draws == 0 {
		return 0
	}
	return float64(t.Count(n)) / float64(t.draws) * 100
}

// Entries lists every number in ascending number order.
func (t FrequencyTable) Entries() []NumberCount {
	out := make([]NumberCount, 0, t.Size())
	for n := 1; n <= t.Size(); n++ {
		out = append(out, NumberCount{Number: n, Count: t.counts[n]})
	}
	return out
}

// Ranked lists numbers by count descending, ties by ascending number.
func (t FrequencyTable) Ranked() []NumberCount {
	out := t.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Number < out[j].Number
	})
	return out
}

// Coldest lists numbers by count ascending, ties by ascending number.
func (t FrequencyTable) Coldest() []NumberCount {
	out := t.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count < out[j].Count
		}
		return out[i].Number < out[j].Number
	})
	return out
}

// SumOf adds up the counts of the given numbers.
func (t FrequencyTable) SumOf(nums []int) int {
	total := 0
	for _, n := range nums {
		total += t.Count(n)
	}
	return total
}
