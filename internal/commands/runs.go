package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/id"
)

func newRunsCommand(g *globalFlags) *cobra.Command {
	var storeFlag, output string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored reconciliation runs",
	}
	cmd.PersistentFlags().StringVar(&storeFlag, "store", "", "SQLite run store (default: project store)")
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format: table or json")

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(g)
			if err != nil {
				return err
			}
			s, err := p.openStore(p.storePath(storeFlag))
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch output {
			case "json":
				return writeJSON(out, runs)
			case "table":
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs.")
					return nil
				}
				return writeRunsTable(out, runs)
			}
			return fmt.Errorf("unknown output format %q", output)
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the matches of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := id.ParseRunID(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}
			p, err := loadProject(g)
			if err != nil {
				return err
			}
			s, err := p.openStore(p.storePath(storeFlag))
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.GetRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch output {
			case "json":
				return writeJSON(out, run)
			case "table":
				fmt.Fprintf(out, "Created %s, state %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"), run.State)
				return writeResultTable(out, run.ID, run.Result)
			}
			return fmt.Errorf("unknown output format %q", output)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}
