package interfaces

import (
	"context"

	domaintypes "sealedstate/internal/domain/types"
)

// KeyedStore is the enclave's state store: the application encoding of a
// Current state plus its lock parameter, keyed by address. Durability and
// eviction are the implementation's concern.
type KeyedStore interface {
	Get(ctx context.Context, addr domaintypes.UserAddress) (value []byte, ok bool, err error)
	Put(ctx context.Context, addr domaintypes.UserAddress, value []byte) error
}

// IdentityStore persists the enclave signing identity.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
}

// KeyPackageStore persists the enclave's pending key package.
type KeyPackageStore interface {
	SaveKeyPackage(passphrase string, kp domaintypes.KeyPackage) error
	LoadKeyPackage(passphrase string) (domaintypes.KeyPackage, bool, error)
}
