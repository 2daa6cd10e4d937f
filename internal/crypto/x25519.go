package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/curve25519"

	"sealedstate/internal/domain"
)

var errShortSecret = errors.New("x25519: secret shorter than 32 bytes")

// GenerateX25519 returns a fresh Curve25519 key pair.
// The private key is clamped per RFC 7748.
func GenerateX25519() (priv domain.X25519Private, pub domain.X25519Public, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return
	}
	clamp(&priv)
	pub, err = PublicX25519(priv)
	return
}

// X25519FromSecret deterministically turns a 32-byte secret into a key pair.
// Every member deriving from the same node secret obtains the same pair.
func X25519FromSecret(secret []byte) (priv domain.X25519Private, pub domain.X25519Public, err error) {
	if len(secret) < 32 {
		return priv, pub, errShortSecret
	}
	copy(priv[:], secret[:32])
	clamp(&priv)
	pub, err = PublicX25519(priv)
	return
}

// PublicX25519 returns the public key of priv.
func PublicX25519(priv domain.X25519Private) (pub domain.X25519Public, err error) {
	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return pub, err
	}
	copy(pub[:], pb)
	return pub, nil
}

// DH computes X25519 Diffie–Hellman.
func DH(priv domain.X25519Private, pub domain.X25519Public) (out [32]byte, err error) {
	secret, err := curve25519.X25519(priv.Slice(), pub.Slice())
	if err != nil {
		return out, err
	}
	copy(out[:], secret)
	return out, nil
}

// FingerprintX25519 returns a short fingerprint of the public key.
func FingerprintX25519(pub domain.X25519Public) string {
	sum := sha256.Sum256(pub[:])
	return hex.EncodeToString(sum[:10])
}

func clamp(k *domain.X25519Private) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
