package keychain

import (
	"crypto/rand"
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"

	"sealedstate/internal/domain"
	"sealedstate/internal/protocol/treekem"
	"sealedstate/internal/util/memzero"
)

const (
	labelChain   = "chain"
	labelRatchet = "ratchet"
	labelMsg     = "msg"
	nonceSize    = chacha20poly1305.NonceSize
)

type chain struct {
	key []byte
	gen uint32
}

// KeyChain holds one symmetric chain per roster index.
type KeyChain struct {
	chains []chain
}

// New derives the chains of a roster of rosterSize members from appSecret.
// Generations are taken from prev so they never move backwards across a
// handshake; prev's keys are wiped.
//
// A nil appSecret yields counters without keys. An enclave that has not
// joined yet keeps them so its generations line up once it does.
func New(appSecret []byte, rosterSize uint32, prev *KeyChain) *KeyChain {
	k := &KeyChain{chains: make([]chain, rosterSize)}
	for i := range k.chains {
		var gen uint32
		if prev != nil && i < len(prev.chains) {
			gen = prev.chains[i].gen
		}
		k.chains[i].gen = gen
		if appSecret != nil {
			k.chains[i].key = chainKey(appSecret, domain.RosterIndex(i), gen)
		}
	}
	if prev != nil {
		prev.Wipe()
	}
	return k
}

func chainKey(appSecret []byte, i domain.RosterIndex, gen uint32) []byte {
	var ctx [8]byte
	binary.BigEndian.PutUint32(ctx[0:4], uint32(i))
	binary.BigEndian.PutUint32(ctx[4:8], gen)
	return treekem.Derive(appSecret, labelChain, ctx[:])
}

// Size returns the number of chains.
func (k *KeyChain) Size() int { return len(k.chains) }

// Generation returns the current generation of roster index i.
func (k *KeyChain) Generation(i domain.RosterIndex) (uint32, error) {
	c, err := k.chain(i)
	if err != nil {
		return 0, err
	}
	return c.gen, nil
}

// Encrypt seals plaintext under sender's current generation. The chain does
// not move; it advances when the ciphertext comes back from the ledger.
func (k *KeyChain) Encrypt(plaintext []byte, sender domain.RosterIndex) ([]byte, error) {
	c, err := k.keyed(sender)
	if err != nil {
		return nil, err
	}
	return seal(c.key, Header{Sender: sender, Generation: c.gen}, plaintext)
}

// EncryptAt seals the k-th plaintext at generation G+k, where G is sender's
// current generation. It matches how the ledger will ratchet the chain over
// the ciphertexts of one transaction. The chain itself is left untouched.
func (k *KeyChain) EncryptAt(plaintexts [][]byte, sender domain.RosterIndex) ([][]byte, error) {
	c, err := k.keyed(sender)
	if err != nil {
		return nil, err
	}
	key := append([]byte(nil), c.key...)
	defer func() { memzero.Zero(key) }()

	out := make([][]byte, len(plaintexts))
	for j, pt := range plaintexts {
		ct, err := seal(key, Header{Sender: sender, Generation: c.gen + uint32(j)}, pt)
		if err != nil {
			return nil, err
		}
		out[j] = ct
		next := treekem.Derive(key, labelRatchet)
		memzero.Zero(key)
		key = next
	}
	return out, nil
}

// Decrypt opens a ciphertext produced by Encrypt or EncryptAt. The header
// generation must equal the sender's current generation. The chain is not
// advanced; callers ratchet the sender once the ciphertext is consumed,
// whether or not it decrypted.
func (k *KeyChain) Decrypt(ct []byte) ([]byte, Header, error) {
	h, err := ParseHeader(ct)
	if err != nil {
		return nil, Header{}, err
	}
	c, err := k.keyed(h.Sender)
	if err != nil {
		return nil, h, err
	}
	switch {
	case h.Generation < c.gen:
		return nil, h, ErrForwardSecrecy
	case h.Generation > c.gen:
		return nil, h, ErrFutureGeneration
	}
	pt, err := open(c.key, h, ct)
	if err != nil {
		return nil, h, err
	}
	return pt, h, nil
}

// Ratchet advances the chain of roster index i by one generation and wipes
// the previous chain key.
func (k *KeyChain) Ratchet(i domain.RosterIndex) error {
	c, err := k.chain(i)
	if err != nil {
		return err
	}
	if c.key != nil {
		next := treekem.Derive(c.key, labelRatchet)
		memzero.Zero(c.key)
		c.key = next
	}
	c.gen++
	return nil
}

// Wipe zeroes every chain key.
func (k *KeyChain) Wipe() {
	for i := range k.chains {
		memzero.Zero(k.chains[i].key)
	}
}

func (k *KeyChain) chain(i domain.RosterIndex) (*chain, error) {
	if uint64(i) >= uint64(len(k.chains)) {
		return nil, ErrUnknownSender
	}
	return &k.chains[i], nil
}

func (k *KeyChain) keyed(i domain.RosterIndex) (*chain, error) {
	c, err := k.chain(i)
	if err != nil {
		return nil, err
	}
	if c.key == nil {
		return nil, ErrNoKey
	}
	return c, nil
}

// --- helpers ---

func seal(ck []byte, h Header, plaintext []byte) ([]byte, error) {
	mk := treekem.Derive(ck, labelMsg)
	defer memzero.Zero(mk)
	aead, err := chacha20poly1305.New(mk)
	if err != nil {
		return nil, err
	}
	hdr := h.Bytes()
	out := make([]byte, HeaderSize+nonceSize, Overhead+len(plaintext))
	copy(out, hdr)
	nonce := out[HeaderSize:]
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(out, nonce, plaintext, hdr), nil
}

func open(ck []byte, h Header, ct []byte) ([]byte, error) {
	mk := treekem.Derive(ck, labelMsg)
	defer memzero.Zero(mk)
	aead, err := chacha20poly1305.New(mk)
	if err != nil {
		return nil, err
	}
	nonce := ct[HeaderSize : HeaderSize+nonceSize]
	pt, err := aead.Open(nil, nonce, ct[HeaderSize+nonceSize:], h.Bytes())
	if err != nil {
		return nil, ErrDecrypt
	}
	return pt, nil
}
