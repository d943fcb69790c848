package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/buildinfo"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:     "recon",
		Short:   "Deterministic bank-to-ledger reconciliation",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "recon.yaml", "project config file (optional)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newReconcileCommand(&g))
	rootCmd.AddCommand(newRunsCommand(&g))
	rootCmd.AddCommand(newServeCommand(&g))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "recon "+buildinfo.String())
		},
	}
}
