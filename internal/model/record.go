package model

import (
	"github.com/shopspring/decimal"
)

// Source identifies which side of a reconciliation a record came from.
type Source string

const (
	SourceBank   Source = "bank"
	SourceLedger Source = "ledger"
)

// Record is one normalized transaction handed to the matching engine.
type Record struct {
	ID          string          `json:"id"`
	Source      Source          `json:"source"`
	Date        Date            `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"` // negative = outflow, positive = inflow
}

// AbsAmount returns |Amount|.
func (r Record) AbsAmount() decimal.Decimal {
	return r.Amount.Abs()
}

// IDs returns the ids of records in order.
func IDs(records []Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
