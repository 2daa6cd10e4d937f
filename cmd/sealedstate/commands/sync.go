package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Ask the enclave host to ingest new ledger entries now",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := hostClient().Sync(cmd.Context())
			if res != nil {
				fmt.Printf("Processed %d entries, cursor %d\n", res.Processed, res.Cursor)
				for _, f := range res.Failed {
					fmt.Printf("  skipped %d (%s): %s\n", f.Seq, f.Kind, f.Err)
				}
				for _, n := range res.Notifications {
					fmt.Printf("  %s updated, lock %s\n", n.Address, n.LockParam)
				}
			}
			return err
		},
	}
}
