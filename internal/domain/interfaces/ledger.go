package interfaces

import (
	"context"

	domaintypes "sealedstate/internal/domain/types"
)

// Ledger is the public append-only log the committee shares. Submissions return
// the sequence number of the first entry they produced. Entries are returned in
// finalized order starting at from.
type Ledger interface {
	SubmitJoin(ctx context.Context, tx domaintypes.JoinGroupTx) (uint64, error)
	SubmitHandshake(ctx context.Context, tx domaintypes.HandshakeTx) (uint64, error)
	SubmitInitState(ctx context.Context, tx domaintypes.InitStateTx) (uint64, error)
	SubmitInstruction(ctx context.Context, tx domaintypes.InstructionTx) (uint64, error)
	Entries(ctx context.Context, from uint64, limit int) ([]domaintypes.Entry, error)
}
