package crypto

import (
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SaltBytes is the salt length expected by DeriveKEK.
const SaltBytes = 16

// DeriveKEK derives a key-encryption key from a passphrase and salt using Argon2id.
func DeriveKEK(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
}
