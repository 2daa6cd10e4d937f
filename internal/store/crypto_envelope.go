package store

import (
	"crypto/rand"
	"fmt"

	json "github.com/nikkolasg/hexjson"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"sealedstate/internal/domain"
)

const envelopeVersion = 2

// Envelope kinds. The kind is authenticated, so a sealed file cannot be
// moved into another file's place.
const (
	kindIdentity   = "identity"
	kindKeyPackage = "key_package"
	kindAccount    = "account"
)

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// sealed file was modified.
var ErrWrongPassphrase = fmt.Errorf("%w: wrong passphrase or corrupted key file", domain.ErrCrypto)

// envelope is the on-disk form of a passphrase-sealed value.
type envelope struct {
	Version int    `json:"v"`
	Kind    string `json:"kind"`
	Salt    []byte `json:"salt"`
	Nonce   []byte `json:"nonce"`
	N       int    `json:"scrypt_n"`
	R       int    `json:"scrypt_r"`
	P       int    `json:"scrypt_p"`
	Sealed  []byte `json:"sealed"`
}

// Tunables for scrypt key derivation.
var scryptParams = func() (N, r, p int) { return 1 << 15, 8, 1 }

func (e *envelope) aad() []byte { return append([]byte(e.Kind+"|"), e.Salt...) }

func (e *envelope) key(passphrase string) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), e.Salt, e.N, e.R, e.P, chacha20poly1305.KeySize)
}

func sealEnvelope(kind, passphrase string, raw []byte) ([]byte, error) {
	e := envelope{
		Version: envelopeVersion,
		Kind:    kind,
		Salt:    make([]byte, 16),
		Nonce:   make([]byte, chacha20poly1305.NonceSizeX),
	}
	e.N, e.R, e.P = scryptParams()
	if _, err := rand.Read(e.Salt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(e.Nonce); err != nil {
		return nil, err
	}
	key, err := e.key(passphrase)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	e.Sealed = aead.Seal(nil, e.Nonce, raw, e.aad())
	return json.Marshal(e)
}

func openEnvelope(kind, passphrase string, b []byte) ([]byte, error) {
	var e envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCodec, err)
	}
	switch {
	case e.Version != envelopeVersion:
		return nil, fmt.Errorf("%w: unsupported envelope version %d", domain.ErrCodec, e.Version)
	case e.Kind != kind:
		return nil, fmt.Errorf("%w: file holds %s, want %s", domain.ErrCodec, e.Kind, kind)
	case len(e.Nonce) != chacha20poly1305.NonceSizeX:
		return nil, fmt.Errorf("%w: bad envelope nonce", domain.ErrCodec)
	}
	key, err := e.key(passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCodec, err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, e.Nonce, e.Sealed, e.aad())
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

// saveSealed writes v as a sealed envelope of the given kind.
func saveSealed(path, kind, passphrase string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b, err := sealEnvelope(kind, passphrase, raw)
	if err != nil {
		return err
	}
	if err := writeFile(path, b, 0o600); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	return nil
}

// loadSealed opens the envelope at path into out. ok is false when there is
// no file.
func loadSealed(path, kind, passphrase string, out any) (ok bool, err error) {
	b, err := readFile(path)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	if b == nil {
		return false, nil
	}
	pt, err := openEnvelope(kind, passphrase, b)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(pt, out); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrCodec, err)
	}
	return true, nil
}
