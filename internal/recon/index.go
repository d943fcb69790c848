package recon

import (
	"cmp"
	"slices"
	"sort"

	"github.com/cleared-dev/recon/internal/id"
	"github.com/cleared-dev/recon/internal/model"
)

// CandidateIndex holds one side's records sorted by (date, id) for window lookups.
// It is not safe for concurrent use.
type CandidateIndex struct {
	records []model.Record
	days    []int64
	removed []bool
	pos     map[string]int
	live    int
}

// NewCandidateIndex builds an index over records. The input slice is not modified.
func NewCandidateIndex(records []model.Record) *CandidateIndex {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, compareByDateThenID)

	ix := &CandidateIndex{
		records: sorted,
		days:    make([]int64, len(sorted)),
		removed: make([]bool, len(sorted)),
		pos:     make(map[string]int, len(sorted)),
		live:    len(sorted),
	}
	for i, r := range sorted {
		ix.days[i] = r.Date.Days()
		ix.pos[r.ID] = i
	}
	return ix
}

// CandidatesNear returns the unmatched records dated within toleranceDays of date,
// nearest first, ties broken by ascending id.
func (ix *CandidateIndex) CandidatesNear(date model.Date, toleranceDays int) []model.Record {
	if toleranceDays < 0 || ix.live == 0 {
		return nil
	}
	d := date.Days()
	from := d - int64(toleranceDays)
	to := d + int64(toleranceDays)

	lo := sort.Search(len(ix.days), func(i int) bool { return ix.days[i] >= from })
	hi := sort.Search(len(ix.days), func(i int) bool { return ix.days[i] > to })

	var out []model.Record
	for i := lo; i < hi; i++ {
		if !ix.removed[i] {
			out = append(out, ix.records[i])
		}
	}
	slices.SortStableFunc(out, func(a, b model.Record) int {
		if c := cmp.Compare(absDays(a.Date.Days()-d), absDays(b.Date.Days()-d)); c != 0 {
			return c
		}
		return id.Compare(a.ID, b.ID)
	})
	return out
}

// Remove drops a record from future queries. Unknown or already removed ids are ignored.
func (ix *CandidateIndex) Remove(recordID string) {
	i, ok := ix.pos[recordID]
	if !ok || ix.removed[i] {
		return
	}
	ix.removed[i] = true
	ix.live--
}

// Contains reports whether recordID is indexed and not yet removed.
func (ix *CandidateIndex) Contains(recordID string) bool {
	i, ok := ix.pos[recordID]
	return ok && !ix.removed[i]
}

// Len returns the number of records still available.
func (ix *CandidateIndex) Len() int {
	return ix.live
}

// Remaining returns the records never removed, in (date, id) order.
func (ix *CandidateIndex) Remaining() []model.Record {
	out := make([]model.Record, 0, ix.live)
	for i, r := range ix.records {
		if !ix.removed[i] {
			out = append(out, r)
		}
	}
	return out
}

func compareByDateThenID(a, b model.Record) int {
	if c := cmp.Compare(a.Date.Days(), b.Date.Days()); c != 0 {
		return c
	}
	return id.Compare(a.ID, b.ID)
}

func absDays(d int64) int64 {
	if d < 0 {
		return -d
	}
	return d
}
