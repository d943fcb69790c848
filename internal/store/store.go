// Package store persists completed reconciliation runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/recon/internal/model"
	"github.com/cleared-dev/recon/internal/recon"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one stored reconciliation.
type Run struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	State     recon.State   `json:"state"`
	Config    recon.Config  `json:"config"`
	Summary   model.Summary `json:"summary"`
	Result    *model.Result `json:"result,omitempty"`
}

// Store provides SQLite access to run history.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the database at path and applies pending migrations.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores run and its result in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run.Result == nil {
		return fmt.Errorf("saving run %s: no result", run.ID)
	}
	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("marshaling run config: %w", err)
	}
	summary := run.Result.Summary()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs
	(id, created_at, state, config_json, matched, exact_count, fee_count, fuzzy_count,
	 unmatched_bank, unmatched_ledger, total_fees)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.UTC(),
		string(run.State),
		string(cfgJSON),
		summary.Matched,
		summary.ByStrategy[model.StrategyExact],
		summary.ByStrategy[model.StrategyFee],
		summary.ByStrategy[model.StrategyFuzzy],
		summary.UnmatchedBank,
		summary.UnmatchedLedger,
		summary.TotalFees.String(),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	for i, m := range run.Result.Matches {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO matches (run_id, seq, ledger_id, bank_id, strategy, date_delta, amount_delta, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, m.LedgerID, m.BankID, string(m.Strategy), m.DateDelta, m.AmountDelta.String(), m.Confidence)
		if err != nil {
			return fmt.Errorf("inserting match %d of run %s: %w", i, run.ID, err)
		}
	}
	if err := insertUnmatched(ctx, tx, run.ID, model.SourceBank, run.Result.UnmatchedBank); err != nil {
		return err
	}
	if err := insertUnmatched(ctx, tx, run.ID, model.SourceLedger, run.Result.UnmatchedLedger); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run %s: %w", run.ID, err)
	}
	run.Summary = summary
	s.logger.Debug().Str("run_id", run.ID).Int("matches", summary.Matched).Msg("run saved")
	return nil
}

func insertUnmatched(ctx context.Context, tx *sql.Tx, runID string, side model.Source, ids []string) error {
	for i, id := range ids {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO unmatched (run_id, side, seq, record_id) VALUES (?, ?, ?, ?)`,
			runID, string(side), i, id)
		if err != nil {
			return fmt.Errorf("inserting unmatched %s %s: %w", side, id, err)
		}
	}
	return nil
}

// GetRun loads a run with its full result. Unknown ids yield ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, runColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}

	result := &model.Result{
		Matches:         []model.Match{},
		UnmatchedBank:   []string{},
		UnmatchedLedger: []string{},
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT ledger_id, bank_id, strategy, date_delta, amount_delta, confidence
	FROM matches WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("loading matches of run %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var m model.Match
		var strategy, delta string
		if err := rows.Scan(&m.LedgerID, &m.BankID, &strategy, &m.DateDelta, &delta, &m.Confidence); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		m.Strategy = model.Strategy(strategy)
		if m.AmountDelta, err = decimal.NewFromString(delta); err != nil {
			return nil, fmt.Errorf("parsing stored amount delta %q: %w", delta, err)
		}
		result.Matches = append(result.Matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}

	urows, err := s.db.QueryContext(ctx, `
	SELECT side, record_id FROM unmatched WHERE run_id = ? ORDER BY side, seq`, id)
	if err != nil {
		return nil, fmt.Errorf("loading unmatched of run %s: %w", id, err)
	}
	defer urows.Close()
	for urows.Next() {
		var side, recordID string
		if err := urows.Scan(&side, &recordID); err != nil {
			return nil, fmt.Errorf("scanning unmatched: %w", err)
		}
		if model.Source(side) == model.SourceBank {
			result.UnmatchedBank = append(result.UnmatchedBank, recordID)
		} else {
			result.UnmatchedLedger = append(result.UnmatchedLedger, recordID)
		}
	}
	if err := urows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unmatched: %w", err)
	}

	run.Result = result
	return run, nil
}

// ListRuns returns the most recent runs first, without their results.
// A limit <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := runColumns + ` ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

const runColumns = `
	SELECT id, created_at, state, config_json, matched, exact_count, fee_count, fuzzy_count,
	       unmatched_bank, unmatched_ledger, total_fees
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                       Run
		state, cfgJSON, totalFees string
		exact, fee, fuzzy         int
	)
	err := row.Scan(&run.ID, &run.CreatedAt, &state, &cfgJSON, &run.Summary.Matched,
		&exact, &fee, &fuzzy, &run.Summary.UnmatchedBank, &run.Summary.UnmatchedLedger, &totalFees)
	if err != nil {
		return nil, err
	}
	run.State = recon.State(state)
	if err := json.Unmarshal([]byte(cfgJSON), &run.Config); err != nil {
		return nil, fmt.Errorf("decoding stored config: %w", err)
	}
	run.Summary.ByStrategy = map[model.Strategy]int{
		model.StrategyExact: exact,
		model.StrategyFee:   fee,
		model.StrategyFuzzy: fuzzy,
	}
	if run.Summary.TotalFees, err = decimal.NewFromString(totalFees); err != nil {
		return nil, fmt.Errorf("parsing stored total fees %q: %w", totalFees, err)
	}
	return &run, nil
}
