package keychain

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"

	"sealedstate/internal/domain"
)

// HeaderSize is the length of the plaintext ciphertext header.
const HeaderSize = 8

// Overhead is the number of bytes a ciphertext adds to its plaintext.
const Overhead = HeaderSize + chacha20poly1305.NonceSize + chacha20poly1305.Overhead

// Header names the chain and generation a ciphertext was sealed under. It is
// sent in the clear and authenticated as additional data.
type Header struct {
	Sender     domain.RosterIndex
	Generation uint32
}

// Bytes encodes the header as sender u32 ‖ generation u32, big endian.
func (h Header) Bytes() []byte {
	out := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(out[0:4], uint32(h.Sender))
	binary.BigEndian.PutUint32(out[4:8], h.Generation)
	return out
}

// ParseHeader reads the header of a ciphertext without decrypting it.
func ParseHeader(ct []byte) (Header, error) {
	if len(ct) < Overhead {
		return Header{}, ErrShortCiphertext
	}
	return Header{
		Sender:     domain.RosterIndex(binary.BigEndian.Uint32(ct[0:4])),
		Generation: binary.BigEndian.Uint32(ct[4:8]),
	}, nil
}
