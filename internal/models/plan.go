package models

import (
	"strconv"
	"strings"
)

// Anchor limits: a standard ticket needs at least one free main slot.
const (
	MaxAnchorMains    = 5
	MaxAnchorSpecials = 1
)

// AnchorConstraint holds caller-fixed numbers that must appear in the base
// ticket feeding the compound tickets.
type AnchorConstraint struct {
	Mains    []int `json:"red_dan,omitempty"`
	Specials []int `json:"blue_dan,omitempty"`
}

// Normalize drops out-of-range and repeated values, then discards a whole list
// that is over its limit. It never fails.
func (a *AnchorConstraint) Normalize() AnchorConstraint {
	if a == nil {
		return AnchorConstraint{}
	}
	mains := dedupeInRange(a.Mains, MainPoolSize)
	if len(mains) > MaxAnchorMains {
		mains = nil
	}
	specials := dedupeInRange(a.Specials, SpecialPoolSize)
	if len(specials) > MaxAnchorSpecials {
		specials = nil
	}
	return AnchorConstraint{Mains: mains, Specials: specials}
}

// Empty reports whether no anchor is set.
func (a AnchorConstraint) Empty() bool {
	return len(a.Mains) == 0 && len(a.Specials) == 0
}

// Special returns the anchored special number, if any.
func (a AnchorConstraint) Special() (int, bool) {
	if len(a.Specials) == 0 {
		return 0, false
	}
	return a.Specials[0], true
}

// ParseNumberList parses user input like "1,3,08" (ASCII or full-width commas)
// into distinct in-range numbers, silently skipping anything else.
func ParseNumberList(raw string, max int) []int {
	raw = strings.ReplaceAll(raw, "，", ",")
	var nums []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	return dedupeInRange(nums, max)
}

func dedupeInRange(nums []int, max int) []int {
	var out []int
	seen := make(map[int]bool, len(nums))
	for _, n := range nums {
		if n < 1 || n > max || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Plan is the composed recommendation output.
type Plan struct {
	ID               string   `json:"id,omitempty"`
	Singles          []Ticket `json:"singles_6_1"`
	Compound7        Ticket   `json:"combo_7_1"`
	Compound6x2      Ticket   `json:"combo_6_2"`
	Coverage         []Ticket `json:"coverage,omitempty"`
	SeedStrategy     string   `json:"seed_strategy"`
	SeedHistoryScore int      `json:"seed_history_score"`
	Draws            int      `json:"draws_analyzed"`
}

// AsMap renders the plan as nested maps, lists and primitives for serializers
// that do not understand Go structs.
func (p *Plan) AsMap() map[string]any {
	singles := make([]any, len(p.Singles))
	for i := range p.Singles {
		singles[i] = p.Singles[i].AsMap()
	}
	coverage := make([]any, len(p.Coverage))
	for i := range p.Coverage {
		coverage[i] = p.Coverage[i].AsMap()
	}
	m := map[string]any{
		"singles_6_1":        singles,
		"combo_7_1":          p.Compound7.AsMap(),
		"combo_6_2":          p.Compound6x2.AsMap(),
		"coverage":           coverage,
		"seed_strategy":      p.SeedStrategy,
		"seed_history_score": p.SeedHistoryScore,
		"draws_analyzed":     p.Draws,
	}
	if p.ID != "" {
		m["id"] = p.ID
	}
	return m
}
