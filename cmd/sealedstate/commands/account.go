package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
	"sealedstate/internal/services/identity"
	"sealedstate/internal/store"
)

func accountStore() *store.AccountFileStore { return store.NewAccountFileStore(home) }

// loadAccount returns the named account and a fresh access right for it.
func loadAccount(name string) (domain.Account, domain.AccessRight, error) {
	if err := requirePassphrase(); err != nil {
		return domain.Account{}, domain.AccessRight{}, err
	}
	a, err := accountStore().LoadAccount(passphrase, name)
	if err != nil {
		return domain.Account{}, domain.AccessRight{}, err
	}
	ar, err := crypto.NewAccessRight(a.EdPriv, a.EdPub)
	return a, ar, err
}

// resolveAddress accepts an account name or a hex address.
func resolveAddress(s string) (domain.UserAddress, error) {
	var addr domain.UserAddress
	if err := addr.UnmarshalText([]byte(s)); err == nil {
		return addr, nil
	}
	a, _, err := loadAccount(s)
	if err != nil {
		return addr, fmt.Errorf("%q is neither an address nor an account: %w", s, err)
	}
	return crypto.AddressFromPublic(a.EdPub), nil
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "new <name>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if err := identity.CheckPassphrase(passphrase); err != nil {
				return err
			}
			priv, pub, err := crypto.GenerateEd25519()
			if err != nil {
				return err
			}
			a := domain.Account{Name: args[0], EdPub: pub, EdPriv: priv}
			if err := accountStore().SaveAccount(passphrase, a); err != nil {
				return err
			}
			fmt.Printf("Account %s created.\nAddress: %s\n", a.Name, crypto.AddressFromPublic(pub))
			return nil
		},
	}, &cobra.Command{
		Use:   "show <name>",
		Short: "Print an account's address and public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := loadAccount(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Address: %s\nPublic key: %s\n", crypto.AddressFromPublic(a.EdPub), crypto.B64(a.EdPub[:]))
			return nil
		},
	})
	return cmd
}
