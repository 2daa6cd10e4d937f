package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sealedstate/internal/bridge"
	"sealedstate/internal/domain"
	"sealedstate/internal/runtime"
	"sealedstate/internal/runtime/token"
)

// instruct runs kind for account against target on the host and publishes
// the resulting transaction.
func instruct(ctx context.Context, account, target string, kind runtime.CallKind, amount string) error {
	_, ar, err := loadAccount(account)
	if err != nil {
		return err
	}
	to, err := resolveAddress(target)
	if err != nil {
		return err
	}
	v, err := token.ParseBalance(amount)
	if err != nil {
		return err
	}
	var tx domain.InstructionTx
	if err := hostClient().Call(ctx, bridge.OpInstruction, bridge.InstructionRequest{
		AccessRight: ar,
		Target:      to,
		CallKind:    uint32(kind),
		Params:      v.Marshal(),
	}, &tx); err != nil {
		return err
	}
	seq, err := wire.Ledger.SubmitInstruction(ctx, tx)
	if err != nil {
		return err
	}
	fmt.Printf("Instruction submitted at %d (%d ciphertexts)\n", seq, len(tx.Ciphertexts))
	return nil
}

func initStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-state <account> <amount>",
		Short: "Publish the first balance of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ar, err := loadAccount(args[0])
			if err != nil {
				return err
			}
			v, err := token.ParseBalance(args[1])
			if err != nil {
				return err
			}
			var tx domain.InitStateTx
			if err := hostClient().Call(cmd.Context(), bridge.OpInitState,
				bridge.InitStateRequest{AccessRight: ar, State: v.Marshal()}, &tx); err != nil {
				return err
			}
			seq, err := wire.Ledger.SubmitInitState(cmd.Context(), tx)
			if err != nil {
				return err
			}
			fmt.Printf("State published at %d, lock %s\n", seq, tx.LockParam)
			return nil
		},
	}
}

func transferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <account> <to> <amount>",
		Short: "Move balance to an account name or address",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return instruct(cmd.Context(), args[0], args[1], token.CallTransfer, args[2])
		},
	}
}

func mintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mint <account> <amount>",
		Short: "Add to an account's balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return instruct(cmd.Context(), args[0], args[0], token.CallMint, args[1])
		},
	}
}

func burnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "burn <account> <amount>",
		Short: "Remove from an account's balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return instruct(cmd.Context(), args[0], args[0], token.CallBurn, args[1])
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Read an account's balance from the enclave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ar, err := loadAccount(args[0])
			if err != nil {
				return err
			}
			var resp bridge.StateResponse
			if err := hostClient().Call(cmd.Context(), bridge.OpGetState, bridge.AccessRequest{AccessRight: ar}, &resp); err != nil {
				return err
			}
			v, err := token.Balance(0).Unmarshal(resp.State)
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <account>",
		Short: "Ask the enclave host to log every update of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ar, err := loadAccount(args[0])
			if err != nil {
				return err
			}
			var resp bridge.RegisterResponse
			if err := hostClient().Call(cmd.Context(), bridge.OpRegisterNotification,
				bridge.AccessRequest{AccessRight: ar}, &resp); err != nil {
				return err
			}
			fmt.Printf("Watching %s\n", resp.Address)
			return nil
		},
	}
}
