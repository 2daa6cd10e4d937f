// Package identity manages creation, encryption and loading of the enclave's
// signing identity.
//
// It enforces passphrase policy, generates the Ed25519 key pair every
// transaction is signed with, and persists it via the domain.IdentityStore.
package identity
