package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/api"
)

func newServeCommand(g *globalFlags) *cobra.Command {
	var (
		port      int
		storeFlag string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reconciliation HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(g)
			if err != nil {
				return err
			}
			if port == 0 {
				port = p.cfg.Server.Port
			}

			var runs api.RunStore
			if path := p.storePath(storeFlag); path != "" {
				s, err := p.openStore(path)
				if err != nil {
					return err
				}
				defer s.Close()
				runs = s
			} else {
				p.logger.Warn().Msg("no run store configured, /runs endpoints disabled")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return api.NewServer(p.cfg.Matching, runs, p.logger).ListenAndServe(ctx, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default: server.port from config)")
	cmd.Flags().StringVar(&storeFlag, "store", "", "SQLite run store (default: project store)")
	return cmd
}
