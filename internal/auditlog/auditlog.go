// Package auditlog keeps a CSV trail of every reconciliation decision.
package auditlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cleared-dev/recon/internal/model"
)

// Kind classifies a decision.
type Kind string

const (
	KindMatch           Kind = "match"
	KindUnmatchedBank   Kind = "unmatched_bank"
	KindUnmatchedLedger Kind = "unmatched_ledger"
)

// Entry is one row in the audit log.
type Entry struct {
	Timestamp   time.Time
	RunID       string
	Kind        Kind
	LedgerID    string
	BankID      string
	Strategy    model.Strategy
	Explanation string
}

// Header is the CSV header for the audit log.
const Header = "timestamp,run_id,kind,ledger_id,bank_id,strategy,explanation"

// DefaultPath is where the audit log lives relative to the project root.
const DefaultPath = "logs/recon-audit.csv"

const (
	numFields      = 7
	colTimestamp   = 0
	colRunID       = 1
	colKind        = 2
	colLedgerID    = 3
	colBankID      = 4
	colStrategy    = 5
	colExplanation = 6
)

// FromResult turns a run's result into audit entries: matches in acceptance
// order, then unmatched bank ids, then unmatched ledger ids.
func FromResult(runID string, at time.Time, res *model.Result) []Entry {
	entries := make([]Entry, 0, len(res.Matches)+len(res.UnmatchedBank)+len(res.UnmatchedLedger))
	for _, m := range res.Matches {
		entries = append(entries, Entry{
			Timestamp:   at,
			RunID:       runID,
			Kind:        KindMatch,
			LedgerID:    m.LedgerID,
			BankID:      m.BankID,
			Strategy:    m.Strategy,
			Explanation: m.Explain(),
		})
	}
	for _, id := range res.UnmatchedBank {
		entries = append(entries, Entry{
			Timestamp:   at,
			RunID:       runID,
			Kind:        KindUnmatchedBank,
			BankID:      id,
			Explanation: "no ledger record within any strategy window",
		})
	}
	for _, id := range res.UnmatchedLedger {
		entries = append(entries, Entry{
			Timestamp:   at,
			RunID:       runID,
			Kind:        KindUnmatchedLedger,
			LedgerID:    id,
			Explanation: "no bank record satisfied exact, fee or fuzzy rules",
		})
	}
	return entries
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colKind] = string(e.Kind)
	row[colLedgerID] = e.LedgerID
	row[colBankID] = e.BankID
	row[colStrategy] = string(e.Strategy)
	row[colExplanation] = e.Explanation
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp:   ts,
		RunID:       record[colRunID],
		Kind:        Kind(record[colKind]),
		LedgerID:    record[colLedgerID],
		BankID:      record[colBankID],
		Strategy:    model.Strategy(record[colStrategy]),
		Explanation: record[colExplanation],
	}, nil
}

// Append writes entries to the CSV file at path, creating it and its header if needed.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating audit log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from the CSV file at path.
// Returns an empty slice if the file does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

// ForRun filters entries down to one run.
func ForRun(entries []Entry, runID string) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
