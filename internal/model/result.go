package model

import (
	"github.com/shopspring/decimal"
)

// Result partitions the inputs of one run into matches and unmatched residues.
type Result struct {
	Matches         []Match  `json:"matches"`
	UnmatchedBank   []string `json:"unmatched_bank"`
	UnmatchedLedger []string `json:"unmatched_ledger"`
}

// Summary aggregates a Result.
type Summary struct {
	Matched         int              `json:"matched"`
	ByStrategy      map[Strategy]int `json:"by_strategy"`
	UnmatchedBank   int              `json:"unmatched_bank"`
	UnmatchedLedger int              `json:"unmatched_ledger"`
	TotalFees       decimal.Decimal  `json:"total_fees"`
}

// Summary counts matches per strategy and totals the fee deltas.
func (r *Result) Summary() Summary {
	s := Summary{
		Matched:         len(r.Matches),
		ByStrategy:      make(map[Strategy]int, 3),
		UnmatchedBank:   len(r.UnmatchedBank),
		UnmatchedLedger: len(r.UnmatchedLedger),
		TotalFees:       decimal.Zero,
	}
	for _, st := range Strategies() {
		s.ByStrategy[st] = 0
	}
	for _, m := range r.Matches {
		s.ByStrategy[m.Strategy]++
		if m.Strategy == StrategyFee {
			s.TotalFees = s.TotalFees.Add(m.AmountDelta.Neg())
		}
	}
	return s
}
