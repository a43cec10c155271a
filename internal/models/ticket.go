package models

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Ticket types, named by mains+specials.
const (
	TicketStandard   = "6+1"
	TicketCompound7  = "7+1"
	TicketCompound62 = "6+2"
)

// zoneCount is the number of fixed 5-wide zones over 1–33 (the last covers 31–33).
const zoneCount = 7

// Features are the derived shape descriptors of a main-number set.
type Features struct {
	OddCount    int    `json:"odd_count"`
	EvenCount   int    `json:"even_count"`
	OddEven     string `json:"odd_even"` // "odd:even", e.g. "3:3"
	Sum         int    `json:"sum"`
	SumBucket   int    `json:"sum_bucket"` // lower bound of the width-10 band
	Span        int    `json:"span"`
	SpanBucket  int    `json:"span_bucket"` // lower bound of the width-5 band
	ZonePattern string `json:"zone_pattern"`
}

// SumRange renders the sum band, e.g. "100-109".
func (f Features) SumRange() string {
	return fmt.Sprintf("%d-%d", f.SumBucket, f.SumBucket+9)
}

// SpanRange renders the span band, e.g. "20-24".
func (f Features) SpanRange() string {
	return fmt.Sprintf("%d-%d", f.SpanBucket, f.SpanBucket+4)
}

// ComputeFeatures derives Features from a set of main numbers.
func ComputeFeatures(mains []int) Features {
	var f Features
	if len(mains) == 0 {
		f.OddEven = OddEvenLabel(0, 0)
		f.ZonePattern = ZonePattern(nil)
		return f
	}

	lo, hi := mains[0], mains[0]
	for _, n := range mains {
		if n%2 == 1 {
			f.OddCount++
		}
		f.Sum += n
		if n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	f.EvenCount = len(mains) - f.OddCount
	f.OddEven = OddEvenLabel(f.OddCount, f.EvenCount)
	f.SumBucket = (f.Sum / 10) * 10
	f.Span = hi - lo
	f.SpanBucket = (f.Span / 5) * 5
	f.ZonePattern = ZonePattern(mains)
	return f
}

// OddEvenLabel formats an odd/even split.
func OddEvenLabel(odd, even int) string {
	return strconv.Itoa(odd) + ":" + strconv.Itoa(even)
}

// ZoneIndex maps a main number to its zone: 1–5 → 0, 6–10 → 1, ..., 31–33 → 6.
func ZoneIndex(n int) int {
	idx := (n - 1) / 5
	if idx < 0 {
		return 0
	}
	if idx >= zoneCount {
		return zoneCount - 1
	}
	return idx
}

// ZonePattern returns the 7-zone histogram of mains as "1-0-2-1-1-0-1".
func ZonePattern(mains []int) string {
	var zones [zoneCount]int
	for _, n := range mains {
		zones[ZoneIndex(n)]++
	}
	parts := make([]string, zoneCount)
	for i, c := range zones {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, "-")
}

// Ticket is one recommended combination.
type Ticket struct {
	Type        string   `json:"type"`
	Mains       []int    `json:"red_balls"`
	Specials    []int    `json:"blue_balls"`
	Strategy    string   `json:"strategy,omitempty"`
	Description string   `json:"description,omitempty"`
	Features    Features `json:"features"`
}

// NewTicket builds a ticket with sorted copies of the numbers and computed features.
func NewTicket(kind string, mains, specials []int) Ticket {
	m := append([]int(nil), mains...)
	s := append([]int(nil), specials...)
	sort.Ints(m)
	sort.Ints(s)
	return Ticket{
		Type:     kind,
		Mains:    m,
		Specials: s,
		Features: ComputeFeatures(m),
	}
}

// Validate checks the ticket shape against its type.
func (t *Ticket) Validate() error {
	wantMains, wantSpecials := MainsPerTicket, 1
	switch t.Type {
	case TicketStandard:
	case TicketCompound7:
		wantMains = MainsPerTicket + 1
	case TicketCompound62:
		wantSpecials = 2
	default:
		return fmt.Errorf("unknown ticket type %q", t.Type)
	}

	if len(t.Mains) != wantMains {
		return fmt.Errorf("%s ticket must have %d main numbers, got %d", t.Type, wantMains, len(t.Mains))
	}
	if len(t.Specials) != wantSpecials {
		return fmt.Errorf("%s ticket must have %d special numbers, got %d", t.Type, wantSpecials, len(t.Specials))
	}
	if err := checkDistinctInRange(t.Mains, MainPoolSize); err != nil {
		return fmt.Errorf("main numbers: %w", err)
	}
	if err := checkDistinctInRange(t.Specials, SpecialPoolSize); err != nil {
		return fmt.Errorf("special numbers: %w", err)
	}
	if !sort.IntsAreSorted(t.Mains) {
		return errors.New("main numbers must be sorted ascending")
	}
	return nil
}

// Overlap counts the main numbers two tickets share.
func Overlap(a, b []int) int {
	set := make(map[int]struct{}, len(a))
	for _, n := range a {
		set[n] = struct{}{}
	}
	shared := 0
	for _, n := range b {
		if _, ok := set[n]; ok {
			shared++
		}
	}
	return shared
}

// AsMap renders the ticket using only map/list/primitive values.
func (t *Ticket) AsMap() map[string]any {
	m := map[string]any{
		"type":       t.Type,
		"red_balls":  intsToAny(t.Mains),
		"blue_balls": intsToAny(t.Specials),
		"features": map[string]any{
			"odd_count":    t.Features.OddCount,
			"even_count":   t.Features.EvenCount,
			"odd_even":     t.Features.OddEven,
			"sum":          t.Features.Sum,
			"sum_range":    t.Features.SumRange(),
			"span":         t.Features.Span,
			"span_range":   t.Features.SpanRange(),
			"zone_pattern": t.Features.ZonePattern,
		},
	}
	if t.Strategy != "" {
		m["strategy"] = t.Strategy
	}
	if t.Description != "" {
		m["description"] = t.Description
	}
	return m
}

func intsToAny(nums []int) []any {
	out := make([]any, len(nums))
	for i, n := range nums {
		out[i] = n
	}
	return out
}
