package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sealedstate/internal/app"
	"sealedstate/internal/host"
)

var (
	home       string
	passphrase string
	cfg        app.Config
	wire       *app.Wire

	ledgerURL string
	hostURL   string
	logLevel  string
)

func Execute() error {
	root := &cobra.Command{
		Use:           "sealedstate",
		Short:         "Confidential state committee CLI",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".sealedstate")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			var err error
			if cfg, err = app.LoadConfig(home); err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("ledger") {
				cfg.LedgerURL = ledgerURL
			}
			if flags.Changed("host") {
				cfg.HostURL = hostURL
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			wire, err = app.NewWire(cfg, cfg.Logger())
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire == nil {
				return nil
			}
			return wire.Close()
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.sealedstate)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect keys")
	root.PersistentFlags().StringVar(&ledgerURL, "ledger", "", "ledger base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVar(&hostURL, "host", "", "enclave host base URL (e.g. http://127.0.0.1:8090)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		keygenCmd(), fingerprintCmd(), serveCmd(),
		joinCmd(), handshakeCmd(), addCmd(), removeCmd(),
		accountCmd(), initStateCmd(), transferCmd(), mintCmd(), burnCmd(), balanceCmd(), watchCmd(),
		syncCmd(), simulateCmd(),
	)
	return root.Execute()
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return nil
}

func hostClient() *host.Client { return host.NewClient(cfg.HostURL) }
