package domain

import "errors"

// Error categories. Package errors wrap one of these with fmt.Errorf("%w: ...")
// so callers and the RPC bridge can classify failures with errors.Is.
var (
	// ErrCrypto covers signature and AEAD failures.
	ErrCrypto = errors.New("crypto error")
	// ErrCodec covers malformed wire bytes. Nothing is mutated.
	ErrCodec = errors.New("codec error")
	// ErrTree covers invalid roster indices and missing or undecryptable path secrets.
	ErrTree = errors.New("tree error")
	// ErrStaleLockParam is returned when a revealed lock parameter is no longer current.
	ErrStaleLockParam = errors.New("stale lock parameter")
	// ErrIO covers store access failures.
	ErrIO = errors.New("io error")
	// ErrTransition covers application transition failures such as insufficient balance.
	ErrTransition = errors.New("transition error")
)
