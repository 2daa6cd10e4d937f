package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

func keygenCmd() *cobra.Command {
	var withKeyPackage bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the enclave identity and store it securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			_, fp, err := wire.Identity.GenerateIdentity(passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Identity created.\nFingerprint: %s\n", fp)
			if !withKeyPackage {
				return nil
			}
			pub, err := wire.KeyPackage.GenerateKeyPackage(passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Key package: %s\n", hex.EncodeToString(pub[:]))
			return nil
		},
	}
	cmd.Flags().BoolVar(&withKeyPackage, "key-package", false, "also create a key package so a member can add this enclave")
	return cmd
}
