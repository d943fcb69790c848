package recon

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/recon/internal/id"
	"github.com/cleared-dev/recon/internal/model"
)

// Candidate is a bank record chosen by a strategy for one ledger record.
type Candidate struct {
	Record      model.Record
	Strategy    model.Strategy
	DateDelta   int
	AmountDelta decimal.Decimal
	Confidence  float64
}

// Strategy selects at most one bank record for a ledger record.
// Implementations are pure: they only read their arguments.
type Strategy interface {
	Tag() model.Strategy
	// Window is the date tolerance, in days, of the candidates the strategy wants.
	Window() int
	Match(ledger model.Record, candidates []model.Record) (Candidate, bool)
}

// Chain builds the enabled strategies of cfg in priority order: exact, fee, fuzzy.
func Chain(cfg Config) []Strategy {
	all := []Strategy{
		ExactStrategy{
			Tolerance: cfg.ExactDateToleranceDays,
			Epsilon:   decimal.NewFromFloat(cfg.ExactAmountEpsilon),
		},
		FeeStrategy{
			Tolerance: cfg.ExactDateToleranceDays,
			MinRatio:  decimal.NewFromFloat(cfg.FeeMinRatio),
		},
		FuzzyStrategy{
			Tolerance:         cfg.FuzzyDateToleranceDays,
			Threshold:         cfg.FuzzyScoreThreshold,
			DateWeight:        cfg.FuzzyDateWeight,
			DescriptionWeight: cfg.FuzzyDescriptionWeight,
		},
	}
	chain := make([]Strategy, 0, len(all))
	for _, s := range all {
		if cfg.Enabled(s.Tag()) {
			chain = append(chain, s)
		}
	}
	return chain
}

// ExactStrategy accepts a candidate whose absolute amount equals the ledger's within Epsilon.
type ExactStrategy struct {
	Tolerance int
	Epsilon   decimal.Decimal
}

func (s ExactStrategy) Tag() model.Strategy { return model.StrategyExact }
func (s ExactStrategy) Window() int         { return s.Tolerance }

func (s ExactStrategy) Match(ledger model.Record, candidates []model.Record) (Candidate, bool) {
	want := ledger.AbsAmount()
	return nearest(ledger, candidates, s.Tolerance, func(bank model.Record) bool {
		return bank.AbsAmount().Sub(want).Abs().LessThanOrEqual(s.Epsilon)
	}, model.StrategyExact)
}

// FeeStrategy accepts a candidate that is short of the ledger amount by a
// processor-fee sized margin: MinRatio*|ledger| <= |bank| < |ledger|.
type FeeStrategy struct {
	Tolerance int
	MinRatio  decimal.Decimal
}

func (s FeeStrategy) Tag() model.Strategy { return model.StrategyFee }
func (s FeeStrategy) Window() int         { return s.Tolerance }

func (s FeeStrategy) Match(ledger model.Record, candidates []model.Record) (Candidate, bool) {
	gross := ledger.AbsAmount()
	floor := gross.Mul(s.MinRatio)
	return nearest(ledger, candidates, s.Tolerance, func(bank model.Record) bool {
		net := bank.AbsAmount()
		return net.LessThan(gross) && net.GreaterThanOrEqual(floor)
	}, model.StrategyFee)
}

// nearest picks the qualifying candidate closest in date, then smallest id.
func nearest(ledger model.Record, candidates []model.Record, tolerance int, ok func(model.Record) bool, tag model.Strategy) (Candidate, bool) {
	var best model.Record
	bestDist := -1
	for _, bank := range candidates {
		dist := absInt(ledger.Date.DaysUntil(bank.Date))
		if dist > tolerance || !ok(bank) {
			continue
		}
		if bestDist < 0 || dist < bestDist || (dist == bestDist && id.Less(bank.ID, best.ID)) {
			best, bestDist = bank, dist
		}
	}
	if bestDist < 0 {
		return Candidate{}, false
	}
	return Candidate{
		Record:      best,
		Strategy:    tag,
		DateDelta:   ledger.Date.DaysUntil(best.Date),
		AmountDelta: best.AbsAmount().Sub(ledger.AbsAmount()),
		Confidence:  1.0,
	}, true
}

// FuzzyStrategy scores candidates on date proximity and description similarity
// and accepts the best one scoring strictly above Threshold. Amount plays no
// part in the score: "Uber" -25.00 can pair with "UBER" -2500.00, and the
// resulting AmountDelta is the only trace of the gap.
type FuzzyStrategy struct {
	Tolerance         int
	Threshold         float64
	DateWeight        float64
	DescriptionWeight float64
}

func (s FuzzyStrategy) Tag() model.Strategy { return model.StrategyFuzzy }
func (s FuzzyStrategy) Window() int         { return s.Tolerance }

func (s FuzzyStrategy) Match(ledger model.Record, candidates []model.Record) (Candidate, bool) {
	var best model.Record
	bestScore := -1.0
	for _, bank := range candidates {
		dist := absInt(ledger.Date.DaysUntil(bank.Date))
		if dist > s.Tolerance {
			continue
		}
		score := s.Score(dist, ledger.Description, bank.Description)
		if score <= s.Threshold {
			continue
		}
		if score > bestScore || (score == bestScore && id.Less(bank.ID, best.ID)) {
			best, bestScore = bank, score
		}
	}
	if bestScore < 0 {
		return Candidate{}, false
	}
	return Candidate{
		Record:      best,
		Strategy:    model.StrategyFuzzy,
		DateDelta:   ledger.Date.DaysUntil(best.Date),
		AmountDelta: best.AbsAmount().Sub(ledger.AbsAmount()),
		Confidence:  roundScore(bestScore),
	}, true
}

// Score combines date proximity and description similarity into [0,1].
func (s FuzzyStrategy) Score(dateDistance int, ledgerDesc, bankDesc string) float64 {
	proximity := 1.0
	if s.Tolerance > 0 {
		proximity = 1 - float64(dateDistance)/float64(s.Tolerance)
	}
	if proximity < 0 {
		proximity = 0
	}
	total := s.DateWeight + s.DescriptionWeight
	if total <= 0 {
		return 0
	}
	return (s.DateWeight*proximity + s.DescriptionWeight*Similarity(ledgerDesc, bankDesc)) / total
}

func roundScore(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
