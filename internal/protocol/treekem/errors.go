package treekem

import (
	"errors"
	"fmt"

	"sealedstate/internal/domain"
)

// ErrRejected marks a handshake that fails checks on public data only. Every
// member replaying the same log rejects it the same way, so it can be skipped.
var ErrRejected = errors.New("handshake rejected")

func rejected(err error) error { return fmt.Errorf("%w: %w", ErrRejected, err) }

var (
	// ErrNotMember is returned when an operation needs membership this state lacks.
	ErrNotMember = fmt.Errorf("%w: not a group member", domain.ErrTree)
	// ErrSenderOutOfRange is returned for a sender index outside the roster or on a blank leaf.
	ErrSenderOutOfRange = fmt.Errorf("%w: sender roster index out of range", domain.ErrTree)
	// ErrInvalidTarget is returned when the Add/Remove target does not fit the roster.
	ErrInvalidTarget = fmt.Errorf("%w: invalid target roster index", domain.ErrTree)
	// ErrRosterFull is returned when an Add would exceed the maximum roster size.
	ErrRosterFull = fmt.Errorf("%w: roster is full", domain.ErrTree)
	// ErrPathLength is returned when the committed path does not match the tree.
	ErrPathLength = fmt.Errorf("%w: path length does not match tree", domain.ErrTree)
	// ErrMissingShare is returned when no share is addressed to this member.
	ErrMissingShare = fmt.Errorf("%w: no path secret addressed to this member", domain.ErrTree)
	// ErrUndecryptableShare is returned when the addressed share fails to open.
	ErrUndecryptableShare = fmt.Errorf("%w: path secret share does not decrypt", domain.ErrTree)
	// ErrCommitmentMismatch is returned when derived keys disagree with the committed ones.
	ErrCommitmentMismatch = fmt.Errorf("%w: derived key does not match commitment", domain.ErrTree)
	// ErrReplayedHandshake is returned for a handshake whose leaf key is already the sender's.
	ErrReplayedHandshake = fmt.Errorf("%w: handshake already applied", domain.ErrTree)
	// ErrUnknownPending is returned when our own handshake arrives without its stored secret.
	ErrUnknownPending = fmt.Errorf("%w: no pending secret for own handshake", domain.ErrTree)
)
