package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Strategy tags the rule that produced a match.
type Strategy string

const (
	StrategyExact Strategy = "exact"
	StrategyFee   Strategy = "fee"
	StrategyFuzzy Strategy = "fuzzy"
)

// Strategies lists every strategy in priority order.
func Strategies() []Strategy {
	return []Strategy{StrategyExact, StrategyFee, StrategyFuzzy}
}

// Match pairs one ledger record with one bank record.
type Match struct {
	LedgerID    string          `json:"ledger_id"`
	BankID      string          `json:"bank_id"`
	Strategy    Strategy        `json:"strategy"`
	DateDelta   int             `json:"date_delta"`   // bank date - ledger date, in days
	// AmountDelta is |bank| - |ledger| for every strategy, not the signed
	// difference: two outflows of -100.00 (ledger) and -100.01 (bank) give +0.01.
	// Negative values are the fee withheld on Fee matches.
	AmountDelta decimal.Decimal `json:"amount_delta"`
	Confidence  float64         `json:"confidence"`
}

// Explain returns a one-line account of why the pair matched.
func (m Match) Explain() string {
	when := "same day"
	switch {
	case m.DateDelta > 0:
		when = fmt.Sprintf("bank %d day(s) after ledger", m.DateDelta)
	case m.DateDelta < 0:
		when = fmt.Sprintf("bank %d day(s) before ledger", -m.DateDelta)
	}

	switch m.Strategy {
	case StrategyExact:
		return fmt.Sprintf("exact amount (delta %s), %s", m.AmountDelta.StringFixed(2), when)
	case StrategyFee:
		return fmt.Sprintf("bank amount short by fee %s, %s", m.AmountDelta.Neg().StringFixed(2), when)
	case StrategyFuzzy:
		return fmt.Sprintf("description and date score %.4f, amount delta %s, %s", m.Confidence, m.AmountDelta.StringFixed(2), when)
	}
	return fmt.Sprintf("%s match, %s", m.Strategy, when)
}
