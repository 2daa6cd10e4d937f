package commands

import (
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		join   bool
		listen string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the enclave host: sync with the ledger and serve calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := wire.NewApp(ctx, passphrase)
			if err != nil {
				return err
			}
			period, err := cfg.SyncPeriod()
			if err != nil {
				return err
			}
			if ln := a.StartMetrics(cfg.MetricsAddr); ln != nil {
				defer ln.Close()
			}

			// Catch up before anything is built on top of the group state.
			if _, err := a.Sync.Run(ctx); err != nil {
				return err
			}
			if join && !a.Enclave.Status().Joined {
				tx, err := a.Enclave.JoinGroup(ctx)
				if err != nil {
					return err
				}
				seq, err := a.Ledger.SubmitJoin(ctx, tx)
				if err != nil {
					return err
				}
				wire.Log.Infow("join submitted", "seq", seq)
			}

			var lc net.ListenConfig
			ln, err := lc.Listen(ctx, "tcp", cfg.Listen)
			if err != nil {
				return err
			}
			return a.Serve(ctx, ln, period)
		},
	}
	cmd.Flags().BoolVar(&join, "join", false, "self-add to the group on start if not a member")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}
