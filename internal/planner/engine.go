// Package planner turns a draw archive snapshot into a recommendation plan:
// strategy-driven single tickets, a diversity-optimized coverage portfolio and
// two compound tickets built from the historically rarest single.
//
// The pipeline is a pure function of (archive, request, seeds). Each call uses
// two fresh generators, one per randomized stage, so identical inputs always
// produce identical plans.
package planner

import (
	"math/rand"

	"github.com/rewired-gh/ssq-planner/internal/logger"
	"github.com/rewired-gh/ssq-planner/internal/models"
	"github.com/rewired-gh/ssq-planner/internal/stats"
)

// NoDataError reports that the archive held no draws.
type NoDataError struct{}

func (NoDataError) Error() string {
	return "no draw data available"
}

// Config holds engine tunables.
type Config struct {
	Singles             int
	CoverageSets        int
	CandidateMultiplier int
	StrategySeed        int64
	CandidateSeed       int64
}

// DefaultConfig returns the standard engine settings.
func DefaultConfig() Config {
	return Config{
		Singles:             8,
		CoverageSets:        20,
		CandidateMultiplier: 8,
		StrategySeed:        42,
		CandidateSeed:       12345,
	}
}

// Request customizes one plan.
type Request struct {
	Singles    int                      // 0 uses the engine default
	Anchor     *models.AnchorConstraint // nil for none; invalid values are dropped
	Strategies []string                 // restrict singles to these strategy names
}

// Engine generates plans.
type Engine struct {
	cfg Config
}

// New creates an Engine. Non-positive sizes fall back to DefaultConfig values.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Singles < 1 {
		cfg.Singles = def.Singles
	}
	if cfg.CoverageSets < 1 {
		cfg.CoverageSets = def.CoverageSets
	}
	if cfg.CandidateMultiplier < 1 {
		cfg.CandidateMultiplier = def.CandidateMultiplier
	}
	return &Engine{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Generate builds a plan from a newest-first archive. It returns NoDataError
// for an empty archive and never returns a partial plan.
func (e *Engine) Generate(draws []models.DrawRecord, req Request) (*models.Plan, error) {
	if len(draws) == 0 {
		return nil, NoDataError{}
	}
	snapshot := append([]models.DrawRecord(nil), draws...)

	main, special := stats.Tabulate(snapshot)
	tiers := stats.Partition(main, special)
	logger.Debug("Tiers from %d draws: high=%d mid=%d low=%d high_special=%v",
		len(snapshot), len(tiers.High), len(tiers.Mid), len(tiers.Low), tiers.HighSpecial)

	strategyRNG := rand.New(rand.NewSource(e.cfg.StrategySeed))
	candidateRNG := rand.New(rand.NewSource(e.cfg.CandidateSeed))

	strategies := filterStrategies(req.Strategies)
	count := req.Singles
	if count < 1 {
		count = e.cfg.Singles
	}
	if count > len(strategies) {
		count = len(strategies)
	}

	singles := make([]models.Ticket, 0, count)
	for _, s := range strategies[:count] {
		singles = append(singles, synthesize(s, tiers, strategyRNG))
	}

	target := candidateTarget(e.cfg.CoverageSets, e.cfg.CandidateMultiplier)
	candidates := generateCandidates(tiers, main, special, target, candidateRNG)
	chosen := selectDiverse(candidates, e.cfg.CoverageSets)
	if len(chosen) < e.cfg.CoverageSets {
		logger.Debug("Coverage selection stopped early: %d of %d from %d candidates",
			len(chosen), e.cfg.CoverageSets, len(candidates))
	}
	coverage := make([]models.Ticket, len(chosen))
	for i, c := range chosen {
		coverage[i] = c.Ticket
	}

	dist := stats.AnalyzePatterns(snapshot)
	seedIdx, seedScore := pickSeed(singles, dist)
	seed := singles[seedIdx]
	logger.Debug("Compound seed: %s (history score %d)", seed.Strategy, seedScore)

	anchor := req.Anchor.Normalize()
	c7, c62 := compounds(seed, anchor, main, special)

	return &models.Plan{
		Singles:          singles,
		Compound7:        c7,
		Compound6x2:      c62,
		Coverage:         coverage,
		SeedStrategy:     seed.Strategy,
		SeedHistoryScore: seedScore,
		Draws:            len(snapshot),
	}, nil
}

// Analysis is the statistical view of an archive.
type Analysis struct {
	Draws            int                 `json:"draws"`
	MainFrequency    []stats.NumberCount `json:"main_frequency"`
	SpecialFrequency []stats.NumberCount `json:"special_frequency"`
	Tiers            stats.Tiers         `json:"tiers"`
	OddEven          []stats.BucketCount `json:"odd_even"`
	SumRanges        []stats.BucketCount `json:"sum_ranges"`
	SpanRanges       []stats.BucketCount `json:"span_ranges"`
	Trend            stats.Trend         `json:"trend"`
	Strategies       []Strategy          `json:"strategies"`
}

// Analyze summarizes the archive. Frequencies are ranked most frequent first.
func Analyze(draws []models.DrawRecord) (*Analysis, error) {
	if len(draws) == 0 {
		return nil, NoDataError{}
	}
	snapshot := append([]models.DrawRecord(nil), draws...)

	main, special := stats.Tabulate(snapshot)
	dist := stats.AnalyzePatterns(snapshot)
	return &Analysis{
		Draws:            len(snapshot),
		MainFrequency:    main.Ranked(),
		SpecialFrequency: special.Ranked(),
		Tiers:            stats.Partition(main, special),
		OddEven:          dist.OddEvenRows(),
		SumRanges:        dist.SumRows(),
		SpanRanges:       dist.SpanRows(),
		Trend:            stats.AnalyzeTrends(snapshot),
		Strategies:       Strategies(),
	}, nil
}
