package importer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/recon/internal/model"
	"github.com/cleared-dev/recon/internal/recon"
)

func TestCSVParser_Parse(t *testing.T) {
	f, err := os.Open("testdata/bank.csv")
	require.NoError(t, err)
	defer f.Close()

	p := &CSVParser{}
	recs, err := p.Parse(f, model.SourceBank)
	require.NoError(t, err)
	assert.Len(t, recs, 5)

	// First: Stripe payout net of fees
	assert.Equal(t, "B1", recs[0].ID)
	assert.Equal(t, model.SourceBank, recs[0].Source)
	assert.Equal(t, "STRIPE TRANSFER", recs[0].Description)
	assert.Equal(t, "1213.45", recs[0].Amount.StringFixed(2))
	assert.Equal(t, "2025-01-11", recs[0].Date.String())

	// Second: payroll outflow (negative)
	assert.True(t, recs[1].Amount.IsNegative())
	assert.Equal(t, "-12500.00", recs[1].Amount.StringFixed(2))
}

func TestCSVParser_StdHeadersAndRowIDs(t *testing.T) {
	f, err := os.Open("testdata/ledger_std.csv")
	require.NoError(t, err)
	defer f.Close()

	recs, err := (&CSVParser{}).Parse(f, model.SourceLedger)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, []string{"1", "2", "3"}, model.IDs(recs))
	assert.Equal(t, "Invoice 1042", recs[0].Description)
	assert.Equal(t, "2025-01-20", recs[2].Date.String())
	assert.Equal(t, "1500.00", recs[2].Amount.StringFixed(2))
}

func TestCSVParser_EmptyFile(t *testing.T) {
	p := &CSVParser{}
	recs, err := p.Parse(strings.NewReader(""), model.SourceBank)
	require.NoError(t, err)
	assert.Nil(t, recs)

	recs, err = p.Parse(strings.NewReader("id,date,description,amount\n"), model.SourceBank)
	require.NoError(t, err)
	assert.Nil(t, recs)
}

func TestCSVParser_MissingColumn(t *testing.T) {
	_, err := (&CSVParser{}).Parse(strings.NewReader("id,description,amount\n1,x,2\n"), model.SourceBank)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing date column")
}

func TestCSVParser_BadDate(t *testing.T) {
	csv := "id,date,description,amount\n7,NOTADATE,desc,-4.00\n"
	_, err := (&CSVParser{}).Parse(strings.NewReader(csv), model.SourceBank)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing date")

	var rerr *recon.InvalidRecordError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "date", rerr.Field)
	assert.Equal(t, "7", rerr.ID)
	assert.Equal(t, 0, rerr.Index)
}

func TestCSVParser_BadAmount(t *testing.T) {
	csv := "id,date,description,amount\n1,2025-01-03,desc,NOTANUMBER\n"
	_, err := (&CSVParser{}).Parse(strings.NewReader(csv), model.SourceBank)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing amount")
	assert.ErrorIs(t, err, recon.ErrInvalidRecord)
}

func TestParseAmount(t *testing.T) {
	tests := map[string]string{
		"12.50":     "12.50",
		"$1,234.56": "1234.56",
		"(30.00)":   "-30.00",
		" -4 ":      "-4.00",
	}
	for in, want := range tests {
		got, err := parseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.StringFixed(2), in)
	}
	_, err := parseAmount("NaN")
	assert.Error(t, err)
}

func TestJSONParser_Parse(t *testing.T) {
	f, err := os.Open("testdata/ledger.json")
	require.NoError(t, err)
	defer f.Close()

	recs, err := (&JSONParser{}).Parse(f, model.SourceLedger)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, []string{"L1", "2", "3"}, model.IDs(recs))
	assert.Equal(t, "-4500.00", recs[1].Amount.StringFixed(2))
	assert.Equal(t, "1500.50", recs[2].Amount.StringFixed(2))
	assert.Equal(t, model.SourceLedger, recs[2].Source)
}

func TestJSONParser_BadDate(t *testing.T) {
	_, err := (&JSONParser{}).Parse(strings.NewReader(`[{"id":"x","date":"soon","amount":1}]`), model.SourceBank)
	assert.ErrorIs(t, err, recon.ErrInvalidRecord)
}

func TestJSONParser_MissingAmount(t *testing.T) {
	for _, body := range []string{
		`[{"id":"b1","date":"2025-01-10"}]`,
		`[{"id":"b1","date":"2025-01-10","amount":null}]`,
		`[{"id":"b1","date":"2025-01-10","amount":""}]`,
	} {
		_, err := (&JSONParser{}).Parse(strings.NewReader(body), model.SourceBank)
		var rerr *recon.InvalidRecordError
		require.ErrorAs(t, err, &rerr, body)
		assert.Equal(t, "amount", rerr.Field)
		assert.Equal(t, "b1", rerr.ID)
	}
}

func TestJSONParser_Malformed(t *testing.T) {
	_, err := (&JSONParser{}).Parse(strings.NewReader(`{"id":`), model.SourceBank)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding JSON records")
}

func TestLoadFile(t *testing.T) {
	recs, err := LoadFile("testdata/bank.csv", model.SourceBank)
	require.NoError(t, err)
	assert.Len(t, recs, 5)

	recs, err = LoadFile("testdata/ledger.json", model.SourceLedger)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	_, err = LoadFile("testdata/bank.xlsx", model.SourceBank)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no parser")

	_, err = LoadFile("testdata/missing.csv", model.SourceBank)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("nonexistent"))
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(&CSVParser{})
	assert.NotNil(t, r.Get("CSV"))
	assert.NotNil(t, r.ForPath("statement.CSV"))
	assert.Nil(t, r.ForPath("statement.json"))
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&CSVParser{})
	assert.Panics(t, func() { r.Register(&CSVParser{}) })
}

func TestScan_FindsRecordFiles(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(filepath.Join(importDir, "processed"), 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(importDir, "bank-jan.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "ledger.json"), []byte("[]"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "notes.txt"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "processed", "old.csv"), []byte("data"), 0o644))

	files, err := DefaultRegistry().Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "bank-jan.csv", files[0].Name)
	assert.Equal(t, model.SourceBank, files[0].Source)
	assert.Equal(t, "ledger.json", files[1].Name)
	assert.Equal(t, model.SourceLedger, files[1].Source)
}

func TestScan_EmptyDir(t *testing.T) {
	files, err := DefaultRegistry().Scan(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "bank.csv"), []byte("data"), 0o644))

	err := MarkProcessed(dir, "bank.csv")
	require.NoError(t, err)

	// Source gone.
	_, err = os.Stat(filepath.Join(importDir, "bank.csv"))
	assert.True(t, os.IsNotExist(err))

	// Destination exists.
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "bank.csv"))
	assert.NoError(t, err)
}
