package recon

import (
	"github.com/cleared-dev/recon/internal/model"
)

// MatchLedger accumulates accepted matches and enforces that every id is
// matched at most once.
type MatchLedger struct {
	matches       []model.Match
	ledgerToBank  map[string]string
	bankToLedger  map[string]string
	pendingLedger map[string]bool
	pendingBank   map[string]bool
}

// NewMatchLedger starts a ledger with every given id unmatched.
func NewMatchLedger(ledgerIDs, bankIDs []string) *MatchLedger {
	l := &MatchLedger{
		ledgerToBank:  make(map[string]string),
		bankToLedger:  make(map[string]string),
		pendingLedger: make(map[string]bool, len(ledgerIDs)),
		pendingBank:   make(map[string]bool, len(bankIDs)),
	}
	for _, id := range ledgerIDs {
		l.pendingLedger[id] = true
	}
	for _, id := range bankIDs {
		l.pendingBank[id] = true
	}
	return l
}

// Accept records the pairing of ledger with c.Record. It fails with a
// *DuplicateMatchError if either id has already been matched.
func (l *MatchLedger) Accept(ledger model.Record, c Candidate) (model.Match, error) {
	bank := c.Record
	if prev, ok := l.ledgerToBank[ledger.ID]; ok {
		return model.Match{}, &DuplicateMatchError{LedgerID: ledger.ID, BankID: bank.ID, Side: model.SourceLedger, Existing: prev}
	}
	if prev, ok := l.bankToLedger[bank.ID]; ok {
		return model.Match{}, &DuplicateMatchError{LedgerID: ledger.ID, BankID: bank.ID, Side: model.SourceBank, Existing: prev}
	}

	m := model.Match{
		LedgerID:    ledger.ID,
		BankID:      bank.ID,
		Strategy:    c.Strategy,
		DateDelta:   c.DateDelta,
		AmountDelta: c.AmountDelta,
		Confidence:  c.Confidence,
	}
	l.matches = append(l.matches, m)
	l.ledgerToBank[ledger.ID] = bank.ID
	l.bankToLedger[bank.ID] = ledger.ID
	delete(l.pendingLedger, ledger.ID)
	delete(l.pendingBank, bank.ID)
	return m, nil
}

// Matches returns the accepted matches in acceptance order.
func (l *MatchLedger) Matches() []model.Match {
	out := make([]model.Match, len(l.matches))
	copy(out, l.matches)
	return out
}

// IsMatched reports whether id has been matched on the given side.
func (l *MatchLedger) IsMatched(side model.Source, id string) bool {
	if side == model.SourceBank {
		_, ok := l.bankToLedger[id]
		return ok
	}
	_, ok := l.ledgerToBank[id]
	return ok
}

// PendingLedger returns the ids of order that are still unmatched, keeping order.
func (l *MatchLedger) PendingLedger(order []string) []string {
	return pending(order, l.pendingLedger)
}

// PendingBank returns the ids of order that are still unmatched, keeping order.
func (l *MatchLedger) PendingBank(order []string) []string {
	return pending(order, l.pendingBank)
}

func pending(order []string, pool map[string]bool) []string {
	out := make([]string, 0, len(pool))
	for _, id := range order {
		if pool[id] {
			out = append(out, id)
		}
	}
	return out
}
