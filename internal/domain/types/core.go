package types

import (
	"encoding/hex"
	"fmt"
)

// AddressSize is the length of a UserAddress in bytes.
const AddressSize = 20

// LockParamSize is the length of a LockParam in bytes.
const LockParamSize = 32

// RosterIndex is the stable leaf position of a group member. Indices are handed
// out in join order and never reused.
type RosterIndex uint32

// UserAddress identifies the owner of a confidential state.
type UserAddress [AddressSize]byte

// String returns the hex form of the address.
func (a UserAddress) String() string { return hex.EncodeToString(a[:]) }

// MarshalText encodes the address as hex.
func (a UserAddress) MarshalText() ([]byte, error) { return hexText(a[:]), nil }

// UnmarshalText decodes a hex address.
func (a *UserAddress) UnmarshalText(b []byte) error { return unhexText("address", a[:], b) }

// LockParam is the hash-chained optimistic concurrency token of a state.
type LockParam [LockParamSize]byte

// String returns the hex form of the lock parameter.
func (l LockParam) String() string { return hex.EncodeToString(l[:]) }

// MarshalText encodes the lock parameter as hex.
func (l LockParam) MarshalText() ([]byte, error) { return hexText(l[:]), nil }

// UnmarshalText decodes a hex lock parameter.
func (l *LockParam) UnmarshalText(b []byte) error { return unhexText("lock param", l[:], b) }

// Fingerprint is a short identifier for public keys presented to operators.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

func unhexText(what string, dst, src []byte) error {
	if hex.DecodedLen(len(src)) != len(dst) {
		return fmt.Errorf("%s: want %d bytes, got %d", what, len(dst), hex.DecodedLen(len(src)))
	}
	_, err := hex.Decode(dst, src)
	return err
}
