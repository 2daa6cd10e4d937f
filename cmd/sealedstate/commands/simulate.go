package commands

import (
	"os"

	"github.com/spf13/cobra"

	"sealedstate/internal/simulate"
)

func simulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "Run an in-process committee against a memory ledger",
		Long: "Runs three checks on a fresh committee: a member adding a new enclave by key package, " +
			"forward secrecy of the application key chain and rejection of a stale lock parameter.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return simulate.Run(cmd.Context(), os.Stdout, wire.Log)
		},
	}
}
