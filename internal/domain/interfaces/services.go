package interfaces

import (
	"context"

	domaintypes "sealedstate/internal/domain/types"
)

// IdentityService creates, retrieves, and inspects the enclave signing identity.
type IdentityService interface {
	GenerateIdentity(passphrase string) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	FingerprintIdentity(passphrase string) (domaintypes.Fingerprint, error)
}

// KeyPackageService generates the init key used when another member adds us.
type KeyPackageService interface {
	GenerateKeyPackage(passphrase string) (domaintypes.X25519Public, error)
	LoadKeyPackage(passphrase string) (domaintypes.KeyPackage, bool, error)
}

// Ingestor applies finalized ledger entries to an enclave.
type Ingestor interface {
	InsertHandshake(ctx context.Context, handshake []byte) error
	InsertCiphertext(ctx context.Context, ciphertext []byte) (*domaintypes.Notification, error)
}
