package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMatch_Explain(t *testing.T) {
	tests := []struct {
		name string
		m    Match
		want string
	}{
		{
			name: "exact",
			m:    Match{Strategy: StrategyExact, AmountDelta: decimal.Zero},
			want: "exact amount (delta 0.00), same day",
		},
		{
			name: "fee",
			m:    Match{Strategy: StrategyFee, DateDelta: 1, AmountDelta: decimal.RequireFromString("-36.55")},
			want: "bank amount short by fee 36.55, bank 1 day(s) after ledger",
		},
		{
			name: "fuzzy",
			m:    Match{Strategy: StrategyFuzzy, DateDelta: -3, AmountDelta: decimal.RequireFromString("2.5"), Confidence: 0.72},
			want: "description and date score 0.7200, amount delta 2.50, bank 3 day(s) before ledger",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.Explain())
		})
	}
}

func TestResult_Summary(t *testing.T) {
	r := &Result{
		Matches: []Match{
			{LedgerID: "1", BankID: "1", Strategy: StrategyFee, AmountDelta: decimal.RequireFromString("-36.55")},
			{LedgerID: "2", BankID: "2", Strategy: StrategyFee, AmountDelta: decimal.RequireFromString("-3.45")},
			{LedgerID: "3", BankID: "3", Strategy: StrategyExact, AmountDelta: decimal.Zero},
		},
		UnmatchedBank:   []string{"9"},
		UnmatchedLedger: []string{"7", "8"},
	}
	s := r.Summary()
	assert.Equal(t, 3, s.Matched)
	assert.Equal(t, 1, s.ByStrategy[StrategyExact])
	assert.Equal(t, 2, s.ByStrategy[StrategyFee])
	assert.Equal(t, 0, s.ByStrategy[StrategyFuzzy])
	assert.Equal(t, 1, s.UnmatchedBank)
	assert.Equal(t, 2, s.UnmatchedLedger)
	assert.Equal(t, "40.00", s.TotalFees.StringFixed(2))
}

func TestStrategies_PriorityOrder(t *testing.T) {
	assert.Equal(t, []Strategy{StrategyExact, StrategyFee, StrategyFuzzy}, Strategies())
}
