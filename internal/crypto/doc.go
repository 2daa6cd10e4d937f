// Package crypto holds the primitives the tree, key chain and stores build on.
//
// Node key pairs are X25519 keys, either random (GenerateX25519) or derived
// from a path secret (X25519FromSecret), so every member holding the secret
// arrives at the same public key. Path secrets travel to other members sealed
// with Seal/Open, an ECIES construction over X25519, HKDF-SHA256 and
// ChaCha20-Poly1305.
//
// Enclaves and users sign with Ed25519. A user address is the Keccak-256 of
// the user's public key; an AccessRight is a signature over a random challenge
// proving control of that address.
//
// DeriveKEK stretches a passphrase with Argon2id for sealing state at rest.
package crypto
