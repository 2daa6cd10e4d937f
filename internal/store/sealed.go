package store

import (
	"context"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"sealedstate/internal/domain"
)

// Sealed encrypts values with ChaCha20-Poly1305 before handing them to the
// wrapped store. The address is bound as additional data, so a value moved to
// another key does not open.
type Sealed struct {
	inner domain.KeyedStore
	key   []byte
}

// NewSealed wraps inner with a 32-byte sealing key.
func NewSealed(inner domain.KeyedStore, key []byte) (*Sealed, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("sealed store: want %d-byte key, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Sealed{inner: inner, key: append([]byte(nil), key...)}, nil
}

// Get opens the value stored under addr.
func (s *Sealed) Get(ctx context.Context, addr domain.UserAddress) ([]byte, bool, error) {
	b, ok, err := s.inner.Get(ctx, addr)
	if err != nil || !ok {
		return nil, ok, err
	}
	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return nil, false, err
	}
	if len(b) < aead.NonceSize()+aead.Overhead() {
		return nil, false, fmt.Errorf("%w: sealed value too short", domain.ErrIO)
	}
	pt, err := aead.Open(nil, b[:aead.NonceSize()], b[aead.NonceSize():], addr[:])
	if err != nil {
		return nil, false, fmt.Errorf("%w: sealed value does not open", domain.ErrIO)
	}
	return pt, true, nil
}

// Put seals value and stores it under addr.
func (s *Sealed) Put(ctx context.Context, addr domain.UserAddress, value []byte) error {
	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return err
	}
	out := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return err
	}
	return s.inner.Put(ctx, addr, aead.Seal(out, out, value, addr[:]))
}

var _ domain.KeyedStore = (*Sealed)(nil)
