package stats

import (
	"fmt"
	"sort"

	"github.com/rewired-gh/ssq-planner/internal/models"
)

// PatternDistribution counts historical draws per feature value.
type PatternDistribution struct {
	OddEven     map[string]int `json:"odd_even"`
	SumBuckets  map[int]int    `json:"sum_buckets"`
	SpanBuckets map[int]int    `json:"span_buckets"`
	Draws       int            `json:"draws"`
}

// BucketCount is one row of a distribution, labelled for display.
type BucketCount struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// AnalyzePatterns builds the odd/even, sum-bucket and span-bucket distributions.
func AnalyzePatterns(draws []models.DrawRecord) PatternDistribution {
	p := PatternDistribution{
		OddEven:     make(map[string]int),
		SumBuckets:  make(map[int]int),
		SpanBuckets: make(map[int]int),
		Draws:       len(draws),
	}
	for _, d := range draws {
		f := models.ComputeFeatures(d.Mains)
		p.OddEven[f.OddEven]++
		p.SumBuckets[f.SumBucket]++
		p.SpanBuckets[f.SpanBucket]++
	}
	return p
}

// Support is how many historical draws share each of f's three feature values, summed.
func (p PatternDistribution) Support(f models.Features) int {
	return p.OddEven[f.OddEven] + p.SumBuckets[f.SumBucket] + p.SpanBuckets[f.SpanBucket]
}

// OddEvenRows lists odd/even patterns by count descending, ties by label.
func (p PatternDistribution) OddEvenRows() []BucketCount {
	rows := make([]BucketCount, 0, len(p.OddEven))
	for label, c := range p.OddEven {
		rows = append(rows, BucketCount{Label: label, Count: c, Percent: p.percent(c)})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Label < rows[j].Label
	})
	return rows
}

// SumRows lists sum bands in ascending order.
func (p PatternDistribution) SumRows() []BucketCount {
	return p.bucketRows(p.SumBuckets, 9)
}

// SpanRows lists span bands in ascending order.
func (p PatternDistribution) SpanRows() []BucketCount {
	return p.bucketRows(p.SpanBuckets, 4)
}

func (p PatternDistribution) bucketRows(buckets map[int]int, width int) []BucketCount {
	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	rows := make([]BucketCount, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, BucketCount{
			Label:   fmt.Sprintf("%d-%d", k, k+width),
			Count:   buckets[k],
			Percent: p.percent(buckets[k]),
		})
	}
	return rows
}

func (p PatternDistribution) percent(c int) float64 {
	if p.Draws == 0 {
		return 0
	}
	return float64(c) / float64(p.Draws) * 100
}
