package recon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/recon/internal/model"
)

func mustDate(t testing.TB, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

func record(t testing.TB, source model.Source, id, date, desc, amount string) model.Record {
	t.Helper()
	return model.Record{
		ID:          id,
		Source:      source,
		Date:        mustDate(t, date),
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
	}
}

func bankRec(t testing.TB, id, date, desc, amount string) model.Record {
	return record(t, model.SourceBank, id, date, desc, amount)
}

func ledgerRec(t testing.TB, id, date, desc, amount string) model.Record {
	return record(t, model.SourceLedger, id, date, desc, amount)
}

func newEngine(t testing.TB, mutate ...func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}
