package planner

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sort"
	"testing"

	"github.com/rewired-gh/ssq-planner/internal/models"
	"github.com/rewired-gh/ssq-planner/internal/stats"
)

// fixtureDraws returns n valid newest-first draws generated from seed.
func fixtureDraws(t *testing.T, n int, seed int64) []models.DrawRecord {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	draws := make([]models.DrawRecord, 0, n)
	for i := 0; i < n; i++ {
		perm := rng.Perm(models.MainPoolSize)
		mains := make([]int, models.MainsPerTicket)
		for j := range mains {
			mains[j] = perm[j] + 1
		}
		sort.Ints(mains)
		d := models.DrawRecord{
			Period:  fmt.Sprintf("2024%03d", n-i),
			Date:    "2024-03-01",
			Mains:   mains,
			Special: rng.Intn(models.SpecialPoolSize) + 1,
		}
		if err := d.Validate(); err != nil {
			t.Fatalf("fixture draw invalid: %v", err)
		}
		draws = append(draws, d)
	}
	return draws
}

func fixtureTiers(t *testing.T) (stats.Tiers, stats.FrequencyTable, stats.FrequencyTable) {
	t.Helper()
	main, special := stats.Tabulate(fixtureDraws(t, 60, 7))
	return stats.Partition(main, special), main, special
}

func TestCatalog(t *testing.T) {
	strategies := Strategies()
	if len(strategies) != 8 {
		t.Fatalf("expected 8 strategies, got %d", len(strategies))
	}
	names := make(map[string]bool)
	for _, s := range strategies {
		if err := s.validate(); err != nil {
			t.Errorf("strategy %s invalid: %v", s.Name, err)
		}
		if s.High+s.Mid+s.Low != models.MainsPerTicket {
			t.Errorf("strategy %s quotas sum to %d", s.Name, s.High+s.Mid+s.Low)
		}
		if names[s.Name] {
			t.Errorf("duplicate strategy name %s", s.Name)
		}
		names[s.Name] = true
	}

	strategies[0].High = 99
	if Strategies()[0].High == 99 {
		t.Error("Strategies must return a copy")
	}
}

func TestStrategyValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Strategy
		wantErr bool
	}{
		{name: "valid", s: Strategy{Name: "x", High: 2, Mid: 2, Low: 2}},
		{name: "under six is allowed", s: Strategy{Name: "x", High: 1}},
		{name: "negative quota", s: Strategy{Name: "x", High: -1, Mid: 3}, wantErr: true},
		{name: "over six", s: Strategy{Name: "x", High: 4, Mid: 3}, wantErr: true},
		{name: "missing name", s: Strategy{High: 1}, wantErr: true},
		{name: "negative rank", s: Strategy{Name: "x", SpecialRank: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFilterStrategies(t *testing.T) {
	got := filterStrategies([]string{"Low-contrarian", "Balanced", "nope"})
	if len(got) != 2 || got[0].Name != "Balanced" || got[1].Name != "Low-contrarian" {
		t.Errorf("expected catalog-ordered subset, got %+v", got)
	}
	if len(filterStrategies([]string{"nope"})) != 8 {
		t.Error("unknown-only filter should select the whole catalog")
	}
	if len(filterStrategies(nil)) != 8 {
		t.Error("empty filter should select the whole catalog")
	}
}

func TestSynthesizeTicketInvariants(t *testing.T) {
	tiers, _, _ := fixtureTiers(t)
	for seed := int64(0); seed < 25; seed++ {
		rng := rand.New(rand.NewSource(seed))
		for _, s := range Strategies() {
			ticket := synthesize(s, tiers, rng)
			if err := ticket.Validate(); err != nil {
				t.Fatalf("seed %d strategy %s: %v (%v)", seed, s.Name, err, ticket.Mains)
			}
			if ticket.Strategy != s.Name {
				t.Errorf("expected strategy %s, got %s", s.Name, ticket.Strategy)
			}
		}
	}
}

func TestSynthesizeQuotaPlacement(t *testing.T) {
	tiers, _, _ := fixtureTiers(t)
	rng := rand.New(rand.NewSource(1))
	s := Strategy{Name: "Ultra-high", High: 5, Mid: 1}
	ticket := synthesize(s, tiers, rng)

	inHigh := 0
	for _, n := range ticket.Mains {
		for _, h := range tiers.High {
			if n == h {
				inHigh++
			}
		}
	}
	if inHigh != 5 {
		t.Errorf("expected 5 mains from High, got %d (%v)", inHigh, ticket.Mains)
	}
}

func TestSynthesizePadsShortQuotas(t *testing.T) {
	tiers, _, _ := fixtureTiers(t)
	rng := rand.New(rand.NewSource(3))
	ticket := synthesize(Strategy{Name: "Sparse", High: 1}, tiers, rng)
	if err := ticket.Validate(); err != nil {
		t.Fatalf("padded ticket invalid: %v", err)
	}

	empty := stats.Tiers{}
	ticket = synthesize(Strategy{Name: "Empty", High: 3, Mid: 3}, empty, rng)
	if err := ticket.Validate(); err != nil {
		t.Fatalf("ticket from empty tiers invalid: %v", err)
	}
	if ticket.Specials[0] != 1 {
		t.Errorf("expected special 1 with empty HighSpecial, got %d", ticket.Specials[0])
	}
}

func TestSampleWithParity(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	pool := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

	got := sampleWithParity(pool, 6, nil, rng)
	if odd := countOdd(got); odd != 3 || len(got) != 6 {
		t.Errorf("expected 3 odd of 6, got %v", got)
	}

	// Four existing odds already meet the target.
	got = sampleWithParity(pool, 2, []int{13, 15, 17, 19}, rng)
	if odd := countOdd(got); odd != 0 {
		t.Errorf("expected only even picks, got %v", got)
	}

	// An all-odd pool falls back to the remaining members.
	got = sampleWithParity([]int{1, 3, 5, 7}, 3, []int{9, 11}, rng)
	if len(got) != 3 {
		t.Errorf("expected 3 picks from fallback, got %v", got)
	}
}

func countOdd(nums []int) int {
	odd := 0
	for _, n := range nums {
		if n%2 == 1 {
			odd++
		}
	}
	return odd
}

func TestPadIsBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got := pad([]int{4}, [][]int{{4, 5}, {5, 6}}, rng)
	if !reflect.DeepEqual(sorted(got), []int{4, 5, 6}) {
		t.Errorf("expected pad to exhaust pools once, got %v", got)
	}

	got = pad(nil, [][]int{fullRange(models.MainPoolSize)}, rng)
	if len(got) != models.MainsPerTicket {
		t.Errorf("expected 6 numbers, got %v", got)
	}
}

func sorted(nums []int) []int {
	out := append([]int(nil), nums...)
	sort.Ints(out)
	return out
}

func TestSpecialAt(t *testing.T) {
	tests := []struct {
		name string
		pool []int
		rank int
		want int
	}{
		{name: "in range", pool: []int{9, 4, 2}, rank: 1, want: 4},
		{name: "rank past end clamps to first", pool: []int{9, 4, 2}, rank: 8, want: 9},
		{name: "empty pool", pool: nil, rank: 0, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := specialAt(tt.pool, tt.rank); got != tt.want {
				t.Errorf("specialAt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCandidateTarget(t *testing.T) {
	if got := candidateTarget(20, 8); got != 160 {
		t.Errorf("expected 160, got %d", got)
	}
	if got := candidateTarget(20, 1); got != 60 {
		t.Errorf("expected floor of 3x, got %d", got)
	}
}

func TestGenerateCandidates(t *testing.T) {
	tiers, main, special := fixtureTiers(t)
	rng := rand.New(rand.NewSource(12345))
	candidates := generateCandidates(tiers, main, special, 120, rng)

	if len(candidates) != 120 {
		t.Fatalf("expected 120 candidates, got %d", len(candidates))
	}
	seen := make(map[string]bool)
	for _, c := range candidates {
		if err := c.Ticket.Validate(); err != nil {
			t.Fatalf("invalid candidate: %v", err)
		}
		if seen[c.key()] {
			t.Fatalf("duplicate candidate %v", c.key())
		}
		seen[c.key()] = true

		want := main.SumOf(c.Ticket.Mains) + special.Count(c.Ticket.Specials[0])
		if c.FreqScore != want {
			t.Errorf("expected freq score %d, got %d", want, c.FreqScore)
		}
	}
}

func TestGenerateCandidatesStopsWhenSpaceIsExhausted(t *testing.T) {
	// Tiers admit one main set, so at most 16 distinct tickets exist.
	tiers := stats.Tiers{High: []int{1, 2, 3}, Mid: []int{4, 5}, Low: []int{6}, HighSpecial: []int{1}}
	main := stats.NewFrequencyTable(models.MainPoolSize)
	special := stats.NewFrequencyTable(1)
	rng := rand.New(rand.NewSource(1))

	candidates := generateCandidates(tiers, main, special, 40, rng)
	if len(candidates) == 0 || len(candidates) > models.SpecialPoolSize {
		t.Errorf("expected a small bounded pool, got %d", len(candidates))
	}
}

func candidate(freq int, mains ...int) Candidate {
	return Candidate{Ticket: models.NewTicket(models.TicketStandard, mains, []int{1}), FreqScore: freq}
}

func TestSelectDiverse_EarlyTermination(t *testing.T) {
	candidates := []Candidate{candidate(100, 1, 2, 3, 4, 5, 6)}
	for x := 7; x <= 20; x++ {
		candidates = append(candidates, candidate(10, 1, 2, 3, 4, 5, x))
	}

	got := selectDiverse(candidates, 5)
	if len(got) != 1 {
		t.Fatalf("expected 1 ticket after early termination, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0].Ticket.Mains, []int{1, 2, 3, 4, 5, 6}) {
		t.Errorf("expected the hottest candidate first, got %v", got[0].Ticket.Mains)
	}
	if len(candidates) != 15 {
		t.Error("selectDiverse must not modify its input")
	}
}

func TestSelectDiverse_PrefersLowOverlap(t *testing.T) {
	candidates := []Candidate{
		candidate(50, 1, 2, 3, 4, 5, 6),
		candidate(40, 1, 2, 3, 4, 10, 11),    // overlap 4
		candidate(1, 20, 21, 22, 23, 24, 25), // overlap 0
	}
	got := selectDiverse(candidates, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(got))
	}
	if got[1].Ticket.Mains[0] != 20 {
		t.Errorf("expected disjoint ticket second, got %v", got[1].Ticket.Mains)
	}
}

func TestSelectDiverse_PairwiseOverlap(t *testing.T) {
	tiers, main, special := fixtureTiers(t)
	rng := rand.New(rand.NewSource(99))
	got := selectDiverse(generateCandidates(tiers, main, special, 160, rng), 20)

	if len(got) == 0 || len(got) > 20 {
		t.Fatalf("unexpected selection size %d", len(got))
	}
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			if ov := models.Overlap(got[i].Ticket.Mains, got[j].Ticket.Mains); ov > overlapCeiling {
				t.Errorf("tickets %d and %d share %d mains", i, j, ov)
			}
		}
	}
}

func TestPickSeed(t *testing.T) {
	dist := stats.AnalyzePatterns([]models.DrawRecord{
		{Mains: []int{1, 2, 3, 4, 5, 6}},
		{Mains: []int{1, 2, 3, 4, 5, 7}},
	})
	common := models.NewTicket(models.TicketStandard, []int{1, 2, 3, 4, 5, 6}, []int{1})
	rare := models.NewTicket(models.TicketStandard, []int{2, 4, 6, 8, 28, 32}, []int{1})
	rareToo := models.NewTicket(models.TicketStandard, []int{2, 4, 6, 8, 28, 30}, []int{1})

	idx, score := pickSeed([]models.Ticket{common, rare, rareToo}, dist)
	if idx != 1 || score != 0 {
		t.Errorf("expected first rarest ticket (1, 0), got (%d, %d)", idx, score)
	}
	if idx, _ := pickSeed(nil, dist); idx != -1 {
		t.Errorf("expected -1 for no tickets, got %d", idx)
	}
}

func TestApplyAnchorMains(t *testing.T) {
	main, _ := stats.Tabulate([]models.DrawRecord{
		{Mains: []int{15, 20, 21, 22, 23, 24}},
		{Mains: []int{15, 20, 21, 22, 23, 24}},
	})

	got := applyAnchorMains([]int{10, 11, 12, 13, 14, 15}, []int{1, 2, 3, 4, 5}, main)
	if !reflect.DeepEqual(got, []int{1, 2, 3, 4, 5, 15}) {
		t.Errorf("expected anchors plus the hottest seed number, got %v", got)
	}

	got = applyAnchorMains([]int{1, 2, 8, 9, 10, 11}, []int{1, 2}, main)
	if !reflect.DeepEqual(got, []int{1, 2, 8, 9, 10, 11}) {
		t.Errorf("anchors already present should leave the set unchanged, got %v", got)
	}
}

func TestColdestMissing(t *testing.T) {
	main, special := stats.Tabulate([]models.DrawRecord{
		{Mains: []int{1, 2, 3, 4, 5, 6}, Special: 1},
	})
	if got := coldestMissing(main, []int{7, 8}); got != 9 {
		t.Errorf("expected 9, got %d", got)
	}
	if got := coldestMissing(special, []int{2}); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}

func TestGenerate_NoData(t *testing.T) {
	plan, err := New(DefaultConfig()).Generate(nil, Request{})
	if plan != nil {
		t.Error("expected no plan for an empty archive")
	}
	var nd NoDataError
	if !errors.As(err, &nd) {
		t.Fatalf("expected NoDataError, got %v", err)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	draws := fixtureDraws(t, 80, 11)
	engine := New(DefaultConfig())

	first, err := engine.Generate(draws, Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, err := engine.Generate(draws, Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs must produce identical plans")
	}

	other := New(Config{StrategySeed: 1, CandidateSeed: 2})
	third, err := other.Generate(draws, Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if reflect.DeepEqual(first.Coverage, third.Coverage) {
		t.Error("different candidate seeds should change the coverage portfolio")
	}
}

func TestGenerate_PlanShape(t *testing.T) {
	draws := fixtureDraws(t, 50, 3)
	plan, err := New(DefaultConfig()).Generate(draws, Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(plan.Singles) != 8 {
		t.Errorf("expected 8 singles, got %d", len(plan.Singles))
	}
	for i, ticket := range plan.Singles {
		if err := ticket.Validate(); err != nil {
			t.Errorf("single %d invalid: %v", i, err)
		}
		if ticket.Type != models.TicketStandard {
			t.Errorf("single %d has type %s", i, ticket.Type)
		}
	}
	if err := plan.Compound7.Validate(); err != nil {
		t.Errorf("compound7 invalid: %v", err)
	}
	if err := plan.Compound6x2.Validate(); err != nil {
		t.Errorf("compound6x2 invalid: %v", err)
	}
	if len(plan.Coverage) == 0 || len(plan.Coverage) > 20 {
		t.Errorf("unexpected coverage size %d", len(plan.Coverage))
	}
	for i := range plan.Coverage {
		for j := i + 1; j < len(plan.Coverage); j++ {
			if ov := models.Overlap(plan.Coverage[i].Mains, plan.Coverage[j].Mains); ov > overlapCeiling {
				t.Errorf("coverage %d and %d share %d mains", i, j, ov)
			}
		}
	}
	if plan.Draws != 50 {
		t.Errorf("expected 50 draws analyzed, got %d", plan.Draws)
	}

	// Without anchors, the 6+2 reuses the seed single unchanged.
	var seed *models.Ticket
	for i := range plan.Singles {
		if plan.Singles[i].Strategy == plan.SeedStrategy {
			seed = &plan.Singles[i]
		}
	}
	if seed == nil {
		t.Fatalf("seed strategy %q not among singles", plan.SeedStrategy)
	}
	if !reflect.DeepEqual(plan.Compound6x2.Mains, seed.Mains) {
		t.Errorf("expected 6+2 mains %v, got %v", seed.Mains, plan.Compound6x2.Mains)
	}
	if models.Overlap(plan.Compound7.Mains, seed.Mains) != 6 {
		t.Errorf("expected 7+1 to extend the seed, got %v", plan.Compound7.Mains)
	}
}

func TestGenerate_SinglesCountAndFilter(t *testing.T) {
	draws := fixtureDraws(t, 30, 5)
	engine := New(DefaultConfig())

	plan, err := engine.Generate(draws, Request{Singles: 5})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(plan.Singles) != 5 {
		t.Errorf("expected 5 singles, got %d", len(plan.Singles))
	}

	plan, err = engine.Generate(draws, Request{Strategies: []string{"Balanced", "Mid-first"}})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(plan.Singles) != 2 || plan.Singles[0].Strategy != "Balanced" {
		t.Errorf("expected filtered singles, got %+v", plan.Singles)
	}
}

func TestGenerate_Anchors(t *testing.T) {
	draws := fixtureDraws(t, 20, 9)
	engine := New(DefaultConfig())

	plan, err := engine.Generate(draws, Request{
		Anchor: &models.AnchorConstraint{Mains: []int{1, 2, 3, 4, 5}, Specials: []int{16}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, n := range []int{1, 2, 3, 4, 5} {
		if !contains(plan.Compound7.Mains, n) || !contains(plan.Compound6x2.Mains, n) {
			t.Errorf("anchor %d missing from compounds", n)
		}
	}
	if plan.Compound7.Specials[0] != 16 || !contains(plan.Compound6x2.Specials, 16) {
		t.Errorf("expected special anchor 16, got %v / %v", plan.Compound7.Specials, plan.Compound6x2.Specials)
	}
	if err := plan.Compound6x2.Validate(); err != nil {
		t.Errorf("compound6x2 invalid: %v", err)
	}
}

func TestGenerate_OversizedAnchorsAreIgnored(t *testing.T) {
	draws := fixtureDraws(t, 20, 9)
	engine := New(DefaultConfig())

	plain, err := engine.Generate(draws, Request{Singles: 8})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	anchored, err := engine.Generate(draws, Request{
		Singles: 8,
		Anchor:  &models.AnchorConstraint{Mains: []int{1, 2, 3, 4, 5, 6}, Specials: []int{0, 40}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !reflect.DeepEqual(plain, anchored) {
		t.Error("six main anchors exceed the limit and must be treated as absent")
	}

	extra := without(anchored.Compound7.Mains, anchored.Compound6x2.Mains)
	if len(extra) != 1 || contains(anchored.Compound6x2.Mains, extra[0]) {
		t.Errorf("expected 7+1 to add exactly one new main, got %v", extra)
	}
}

func TestAnalyze(t *testing.T) {
	if _, err := Analyze(nil); !errors.As(err, new(NoDataError)) {
		t.Errorf("expected NoDataError, got %v", err)
	}

	a, err := Analyze(fixtureDraws(t, 12, 4))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if a.Draws != 12 || len(a.MainFrequency) != 33 || len(a.SpecialFrequency) != 16 {
		t.Errorf("unexpected analysis sizes: %+v", a)
	}
	if !a.Trend.Sufficient {
		t.Error("12 draws should give a sufficient trend view")
	}
	if len(a.Strategies) != 8 {
		t.Errorf("expected 8 strategies, got %d", len(a.Strategies))
	}
}
