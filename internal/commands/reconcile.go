package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/auditlog"
	"github.com/cleared-dev/recon/internal/id"
	"github.com/cleared-dev/recon/internal/importer"
	"github.com/cleared-dev/recon/internal/model"
	"github.com/cleared-dev/recon/internal/recon"
	"github.com/cleared-dev/recon/internal/store"
)

type reconcileOptions struct {
	bankPath   string
	ledgerPath string
	output     string
	storePath  string
	auditPath  string
	shards     int
	archive    bool
}

func newReconcileCommand(g *globalFlags) *cobra.Command {
	var opts reconcileOptions

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match a bank statement against the ledger",
		Long: `Match a bank statement against the ledger.

Without --bank/--ledger the project's import/ directory is scanned for one
file starting with "bank" and one starting with "ledger".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(g)
			if err != nil {
				return err
			}
			return runReconcile(cmd.Context(), cmd.OutOrStdout(), p, opts)
		},
	}

	cmd.Flags().StringVar(&opts.bankPath, "bank", "", "bank records file (.csv or .json)")
	cmd.Flags().StringVar(&opts.ledgerPath, "ledger", "", "ledger records file (.csv or .json)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "output format: table or json")
	cmd.Flags().StringVar(&opts.storePath, "store", "", "save the run to this SQLite database")
	cmd.Flags().StringVar(&opts.auditPath, "audit", "", "append decisions to this CSV audit log")
	cmd.Flags().IntVar(&opts.shards, "shards", 0, "match date-disjoint shards with up to N workers (0 = single pass)")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "move scanned import files to import/processed afterwards")

	return cmd
}

func runReconcile(ctx context.Context, out io.Writer, p *project, opts reconcileOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.output != "table" && opts.output != "json" {
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	scanned, err := resolveInputs(p, &opts)
	if err != nil {
		return err
	}

	bank, err := importer.LoadFile(opts.bankPath, model.SourceBank)
	if err != nil {
		return err
	}
	ledger, err := importer.LoadFile(opts.ledgerPath, model.SourceLedger)
	if err != nil {
		return err
	}

	runID := id.NewRunID()
	log := p.logger.With().Str("run_id", runID).Logger()
	log.Info().Str("bank", opts.bankPath).Int("bank_records", len(bank)).
		Str("ledger", opts.ledgerPath).Int("ledger_records", len(ledger)).
		Msg("reconciling")

	engine, err := recon.New(p.cfg.Matching, recon.WithLogger(log))
	if err != nil {
		return err
	}

	var res *model.Result
	if opts.shards > 0 {
		res, err = engine.ReconcileSharded(ctx, bank, ledger, opts.shards)
	} else {
		res, err = engine.Reconcile(bank, ledger)
	}
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	if path := p.storePath(opts.storePath); path != "" {
		s, err := p.openStore(path)
		if err != nil {
			return err
		}
		defer s.Close()
		run := &store.Run{ID: runID, CreatedAt: now, State: recon.StateCompleted, Config: p.cfg.Matching, Result: res}
		if err := s.SaveRun(ctx, run); err != nil {
			return err
		}
	}

	if path := p.auditPath(opts.auditPath); path != "" {
		if err := auditlog.Append(path, auditlog.FromResult(runID, now, res)); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to write audit log")
		}
	}

	if opts.archive {
		for _, f := range scanned {
			if err := importer.MarkProcessed(p.root, f.Name); err != nil {
				return err
			}
		}
	}

	if opts.output == "json" {
		return writeJSON(out, runOutput{RunID: runID, Summary: res.Summary(), Result: res})
	}
	return writeResultTable(out, runID, res)
}

// resolveInputs fills missing --bank/--ledger paths from the project's import directory.
func resolveInputs(p *project, opts *reconcileOptions) ([]importer.FileInfo, error) {
	if opts.bankPath != "" && opts.ledgerPath != "" {
		if opts.archive {
			return nil, errors.New("--archive only applies to files scanned from import/")
		}
		return nil, nil
	}
	if p.root == "" {
		return nil, errors.New("--bank and --ledger are required outside a recon project")
	}

	files, err := importer.DefaultRegistry().Scan(p.root)
	if err != nil {
		return nil, err
	}
	var used []importer.FileInfo
	for _, side := range []struct {
		source model.Source
		path   *string
	}{
		{model.SourceBank, &opts.bankPath},
		{model.SourceLedger, &opts.ledgerPath},
	} {
		if *side.path != "" {
			continue
		}
		var found []importer.FileInfo
		for _, f := range files {
			if f.Source == side.source {
				found = append(found, f)
			}
		}
		switch len(found) {
		case 0:
			return nil, fmt.Errorf("no %s file in import/ (pass --%s)", side.source, side.source)
		case 1:
			*side.path = found[0].Path
			used = append(used, found[0])
		default:
			return nil, fmt.Errorf("%d %s files in import/, pass --%s to pick one", len(found), side.source, side.source)
		}
	}
	return used, nil
}
