package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/cleared-dev/recon/internal/model"
	"github.com/cleared-dev/recon/internal/store"
)

type runOutput struct {
	RunID   string        `json:"run_id"`
	Summary model.Summary `json:"summary"`
	Result  *model.Result `json:"result"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResultTable(w io.Writer, runID string, res *model.Result) error {
	fmt.Fprintf(w, "Run %s\n\n", runID)

	if len(res.Matches) > 0 {
		table := tablewriter.NewTable(w)
		table.Header("Ledger", "Bank", "Strategy", "Days", "Amount Delta", "Confidence", "Why")
		for _, m := range res.Matches {
			if err := table.Append(
				m.LedgerID,
				m.BankID,
				string(m.Strategy),
				strconv.Itoa(m.DateDelta),
				m.AmountDelta.StringFixed(2),
				strconv.FormatFloat(m.Confidence, 'f', 4, 64),
				m.Explain(),
			); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	s := res.Summary()
	fmt.Fprintf(w, "Matched %d (exact %d, fee %d, fuzzy %d), fees %s\n",
		s.Matched,
		s.ByStrategy[model.StrategyExact],
		s.ByStrategy[model.StrategyFee],
		s.ByStrategy[model.StrategyFuzzy],
		s.TotalFees.StringFixed(2))
	fmt.Fprintf(w, "Unmatched bank (%d): %s\n", s.UnmatchedBank, joinOrDash(res.UnmatchedBank))
	fmt.Fprintf(w, "Unmatched ledger (%d): %s\n", s.UnmatchedLedger, joinOrDash(res.UnmatchedLedger))
	return nil
}

func writeRunsTable(w io.Writer, runs []*store.Run) error {
	table := tablewriter.NewTable(w)
	table.Header("Run", "Created", "Matched", "Exact", "Fee", "Fuzzy", "Unmatched Bank", "Unmatched Ledger")
	for _, r := range runs {
		if err := table.Append(
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.Summary.Matched),
			strconv.Itoa(r.Summary.ByStrategy[model.StrategyExact]),
			strconv.Itoa(r.Summary.ByStrategy[model.StrategyFee]),
			strconv.Itoa(r.Summary.ByStrategy[model.StrategyFuzzy]),
			strconv.Itoa(r.Summary.UnmatchedBank),
			strconv.Itoa(r.Summary.UnmatchedLedger),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}
