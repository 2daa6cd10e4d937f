package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sealedstate/internal/bridge"
	"sealedstate/internal/domain"
)

// submitHandshake asks the host for a handshake via op and publishes it.
func submitHandshake(ctx context.Context, op string, req any) error {
	var tx domain.HandshakeTx
	if err := hostClient().Call(ctx, op, req, &tx); err != nil {
		return err
	}
	seq, err := wire.Ledger.SubmitHandshake(ctx, tx)
	if err != nil {
		return err
	}
	fmt.Printf("Handshake submitted at %d\n", seq)
	return nil
}

func joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join",
		Short: "Self-add the served enclave to the group",
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := hostClient().Join(cmd.Context(), wire.Ledger)
			if err != nil {
				return err
			}
			fmt.Printf("Join submitted at %d\n", seq)
			return nil
		},
	}
}

func handshakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handshake",
		Short: "Rotate the served enclave's path secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitHandshake(cmd.Context(), bridge.OpHandshake, nil)
		},
	}
}

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <key-package-hex>",
		Short: "Add the enclave holding a key package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var kp domain.X25519Public
			if err := kp.UnmarshalText([]byte(args[0])); err != nil {
				return fmt.Errorf("key package: %w", err)
			}
			return submitHandshake(cmd.Context(), bridge.OpAddMember, bridge.AddMemberRequest{KeyPackage: kp})
		},
	}
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <roster-index>",
		Short: "Remove the member at a roster index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("roster index: %w", err)
			}
			return submitHandshake(cmd.Context(), bridge.OpRemoveMember,
				bridge.RemoveMemberRequest{RosterIndex: domain.RosterIndex(idx)})
		},
	}
}

