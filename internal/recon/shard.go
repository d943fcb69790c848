package recon

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/recon/internal/model"
)

// shard is a slice of the ledger whose candidate windows cannot reach any
// other shard's bank records.
type shard struct {
	ledger   []model.Record
	bank     []model.Record
	from, to int64 // bank day range [from, to]
}

// ReconcileSharded produces the same Result as Reconcile but splits the work
// into date-disjoint shards that are matched concurrently, at most parallel at
// a time (parallel <= 0 means no limit).
//
// Ledger records are cut wherever two consecutive dates are more than twice
// the widest strategy window apart. No bank record can be a candidate for
// ledger records on both sides of such a gap, so the shards never compete.
//
// Shards share the engine's logger; its writer must tolerate concurrent writes.
func (e *Engine) ReconcileSharded(ctx context.Context, bank, ledger []model.Record, parallel int) (*model.Result, error) {
	r := e.newRun()
	if err := r.validate(bank, ledger); err != nil {
		r.transition(StateFailed)
		return nil, err
	}

	shards, orphans := e.partition(bank, ledger)
	if len(shards) <= 1 {
		return r.execute(bank, ledger)
	}
	r.transition(StateRunning)

	results := make([]*model.Result, len(shards))
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, sh := range shards {
		i, sh := i, sh
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sub := &Engine{cfg: e.cfg, chain: e.chain, logger: e.logger.With().Int("shard", i).Logger()}
			res, err := sub.newRun().execute(sh.bank, sh.ledger)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.transition(StateFailed)
		return nil, err
	}

	merged := &model.Result{
		Matches:         []model.Match{},
		UnmatchedBank:   []string{},
		UnmatchedLedger: []string{},
	}
	unmatchedBank := slices.Clone(orphans)
	for i, res := range results {
		merged.Matches = append(merged.Matches, res.Matches...)
		merged.UnmatchedLedger = append(merged.UnmatchedLedger, res.UnmatchedLedger...)
		unmatchedBank = append(unmatchedBank, pick(shards[i].bank, res.UnmatchedBank)...)
	}
	slices.SortStableFunc(unmatchedBank, compareByDateThenID)
	merged.UnmatchedBank = model.IDs(unmatchedBank)
	r.transition(StateCompleted)

	s := merged.Summary()
	e.logger.Info().
		Int("shards", len(shards)).
		Int("matched", s.Matched).
		Int("unmatched_bank", s.UnmatchedBank).
		Int("unmatched_ledger", s.UnmatchedLedger).
		Msg("sharded reconciliation completed")
	return merged, nil
}

// partition groups the ledger into independent shards and assigns each bank
// record to the shard whose day range covers it. Bank records covered by no
// shard can never be matched and are returned as orphans.
func (e *Engine) partition(bank, ledger []model.Record) ([]shard, []model.Record) {
	if len(ledger) == 0 {
		return nil, slices.Clone(bank)
	}
	w := int64(e.cfg.widestWindow())

	order := slices.Clone(ledger)
	slices.SortStableFunc(order, compareByDateThenID)

	var shards []shard
	start := 0
	for i := 1; i <= len(order); i++ {
		if i < len(order) && order[i].Date.Days()-order[i-1].Date.Days() <= 2*w {
			continue
		}
		shards = append(shards, shard{
			ledger: order[start:i],
			from:   order[start].Date.Days() - w,
			to:     order[i-1].Date.Days() + w,
		})
		start = i
	}

	var orphans []model.Record
	for _, b := range bank {
		d := b.Date.Days()
		i, found := slices.BinarySearchFunc(shards, d, func(s shard, day int64) int {
			switch {
			case s.to < day:
				return -1
			case s.from > day:
				return 1
			}
			return 0
		})
		if !found {
			orphans = append(orphans, b)
			continue
		}
		shards[i].bank = append(shards[i].bank, b)
	}
	return shards, orphans
}

// pick returns the records whose ids appear in ids, in ids order.
func pick(records []model.Record, ids []string) []model.Record {
	byID := make(map[string]model.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	out := make([]model.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}
