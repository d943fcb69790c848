// Package recon pairs bank records with ledger records.
//
// The engine is a deterministic, greedy, fixed-priority matcher. Ledger
// records are visited in (date, id) order; for each one the strategy chain
// (exact, fee, fuzzy) is tried against the bank records still unmatched and
// the first strategy that finds a candidate wins. Whatever is left on either
// side becomes the unmatched residue.
//
// Example usage:
//
//	engine, err := recon.New(recon.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	result, err := engine.Reconcile(bankRecords, ledgerRecords)
package recon

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/recon/internal/model"
)

// State is the lifecycle state of a single run.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Engine reconciles record sets under a fixed configuration.
// An Engine is immutable; each Reconcile call owns its own index and ledger.
type Engine struct {
	cfg      Config
	chain    []Strategy
	logger   zerolog.Logger
	onChange func(State)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-match debug lines and run summaries.
// ReconcileSharded logs from several goroutines at once, so the logger's writer
// must be safe for concurrent use (loggers from the logging package are).
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithStateHook registers fn to observe every state transition of a run.
func WithStateHook(fn func(State)) Option {
	return func(e *Engine) { e.onChange = fn }
}

// New validates cfg and returns an Engine. Invalid options yield a *ConfigurationError.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		chain:  Chain(cfg),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the options the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Reconcile matches ledger records against bank records.
// Both inputs are validated first; a malformed record aborts the run with an
// *InvalidRecordError and no partial result.
func (e *Engine) Reconcile(bank, ledger []model.Record) (*model.Result, error) {
	r := e.newRun()
	if err := r.validate(bank, ledger); err != nil {
		r.transition(StateFailed)
		return nil, err
	}
	return r.execute(bank, ledger)
}

// run is the mutable state of one reconciliation.
type run struct {
	engine *Engine
	state  State
	index  *CandidateIndex
	ledger *MatchLedger
}

func (e *Engine) newRun() *run {
	r := &run{engine: e}
	r.transition(StatePending)
	return r
}

func (r *run) transition(to State) {
	r.state = to
	if r.engine.onChange != nil {
		r.engine.onChange(to)
	}
}

func (r *run) validate(bank, ledger []model.Record) error {
	if err := ValidateRecords(bank, model.SourceBank); err != nil {
		return err
	}
	return ValidateRecords(ledger, model.SourceLedger)
}

// execute runs the matching loop over already validated inputs.
func (r *run) execute(bank, ledger []model.Record) (*model.Result, error) {
	r.transition(StateRunning)
	log := r.engine.logger

	order := slices.Clone(ledger)
	slices.SortStableFunc(order, compareByDateThenID)

	r.index = NewCandidateIndex(bank)
	r.ledger = NewMatchLedger(model.IDs(order), model.IDs(bank))

	for _, rec := range order {
		c, ok := r.match(rec)
		if !ok {
			continue
		}
		m, err := r.ledger.Accept(rec, c)
		if err != nil {
			r.transition(StateFailed)
			log.Error().Err(err).Msg("match ledger rejected candidate")
			return nil, err
		}
		r.index.Remove(c.Record.ID)
		log.Debug().
			Str("ledger_id", m.LedgerID).
			Str("bank_id", m.BankID).
			Str("strategy", string(m.Strategy)).
			Int("date_delta", m.DateDelta).
			Str("amount_delta", m.AmountDelta.StringFixed(2)).
			Float64("confidence", m.Confidence).
			Msg("matched")
	}

	result := &model.Result{
		Matches:         r.ledger.Matches(),
		UnmatchedBank:   model.IDs(r.index.Remaining()),
		UnmatchedLedger: r.ledger.PendingLedger(model.IDs(order)),
	}
	r.transition(StateCompleted)

	s := result.Summary()
	log.Info().
		Int("bank", len(bank)).
		Int("ledger", len(ledger)).
		Int("matched", s.Matched).
		Int("exact", s.ByStrategy[model.StrategyExact]).
		Int("fee", s.ByStrategy[model.StrategyFee]).
		Int("fuzzy", s.ByStrategy[model.StrategyFuzzy]).
		Int("unmatched_bank", s.UnmatchedBank).
		Int("unmatched_ledger", s.UnmatchedLedger).
		Msg("reconciliation completed")

	return result, nil
}

// match runs the strategy chain for one ledger record against the live index.
func (r *run) match(rec model.Record) (Candidate, bool) {
	windows := make(map[int][]model.Record, 2)
	for _, s := range r.engine.chain {
		w := s.Window()
		candidates, ok := windows[w]
		if !ok {
			candidates = r.index.CandidatesNear(rec.Date, w)
			windows[w] = candidates
		}
		if c, found := s.Match(rec, candidates); found {
			return c, true
		}
	}
	return Candidate{}, false
}
