package types

import "encoding/hex"

// X25519Public is a Curve25519 public key: a ratchet tree node key or a key package.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// MarshalText encodes the key as hex.
func (p X25519Public) MarshalText() ([]byte, error) { return hexText(p[:]), nil }

// UnmarshalText decodes a hex key.
func (p *X25519Public) UnmarshalText(b []byte) error { return unhexText("x25519 public key", p[:], b) }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// Ed25519Public is an Ed25519 signing public key.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

// MarshalText encodes the key as hex.
func (p Ed25519Public) MarshalText() ([]byte, error) { return hexText(p[:]), nil }

// UnmarshalText decodes a hex key.
func (p *Ed25519Public) UnmarshalText(b []byte) error {
	return unhexText("ed25519 public key", p[:], b)
}

// Ed25519Private is an Ed25519 signing private key (ed25519.PrivateKey layout).
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }

func hexText(b []byte) []byte {
	out := make([]byte, hex.EncodedLen(len(b)))
	hex.Encode(out, b)
	return out
}
