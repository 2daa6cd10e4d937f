package keychain

import (
	"fmt"

	"sealedstate/internal/domain"
)

var (
	// ErrForwardSecrecy is returned for a ciphertext of a generation whose key
	// has already been ratcheted away.
	ErrForwardSecrecy = fmt.Errorf("%w: generation already ratcheted past", domain.ErrCrypto)
	// ErrFutureGeneration is returned for a ciphertext ahead of the local chain.
	ErrFutureGeneration = fmt.Errorf("%w: generation ahead of local chain", domain.ErrCrypto)
	// ErrDecrypt is returned when the AEAD rejects a ciphertext.
	ErrDecrypt = fmt.Errorf("%w: ciphertext does not decrypt", domain.ErrCrypto)
	// ErrUnknownSender is returned for a roster index without a chain.
	ErrUnknownSender = fmt.Errorf("%w: no key chain for roster index", domain.ErrTree)
	// ErrNoKey is returned when the chain holds a counter but no key.
	ErrNoKey = fmt.Errorf("%w: no application key", domain.ErrTree)
	// ErrShortCiphertext is returned when a ciphertext cannot hold its header.
	ErrShortCiphertext = fmt.Errorf("%w: ciphertext too short", domain.ErrCodec)
)
