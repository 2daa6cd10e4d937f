package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"sealedstate/internal/domain"
	"sealedstate/internal/util/memzero"
)

// This file provides an implementation of the ECIES scheme over X25519:
// ephemeral-static DH, HKDF-SHA256 and ChaCha20-Poly1305.
//
// Sealed layout: ephemeral public key (32) ‖ nonce (12) ‖ AEAD output.

const eciesInfo = "sealedstate|ecies"

// ECIESOverhead is the number of bytes Seal adds to a plaintext.
const ECIESOverhead = 32 + chacha20poly1305.NonceSize + chacha20poly1305.Overhead

var errShortECIES = fmt.Errorf("%w: ecies: ciphertext too short", domain.ErrCrypto)

// Seal encrypts msg to public, binding aad.
func Seal(public domain.X25519Public, msg, aad []byte) ([]byte, error) {
	ephPriv, ephPub, err := GenerateX25519()
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(ephPriv[:])

	key, err := eciesKey(ephPriv, public, ephPub)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 32+chacha20poly1305.NonceSize, ECIESOverhead+len(msg))
	copy(out, ephPub[:])
	nonce := out[32:]
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(out, nonce, msg, aad), nil
}

// Open decrypts a Seal output with priv. Any failure is reported as a crypto
// error.
func Open(priv domain.X25519Private, sealed, aad []byte) ([]byte, error) {
	if len(sealed) < ECIESOverhead {
		return nil, errShortECIES
	}
	var ephPub domain.X25519Public
	copy(ephPub[:], sealed[:32])

	key, err := eciesKey(priv, ephPub, ephPub)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := sealed[32 : 32+chacha20poly1305.NonceSize]
	pt, err := aead.Open(nil, nonce, sealed[32+chacha20poly1305.NonceSize:], aad)
	if err != nil {
		return nil, fmt.Errorf("%w: ecies open: %v", domain.ErrCrypto, err)
	}
	return pt, nil
}

func eciesKey(priv domain.X25519Private, peer, eph domain.X25519Public) ([]byte, error) {
	dh, err := DH(priv, peer)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(dh[:])

	r := hkdf.New(sha256.New, dh[:], eph[:], []byte(eciesInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
