package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/sha3"

	"sealedstate/internal/domain"
)

// AddressFromPublic derives a UserAddress from an Ed25519 public key: the last
// 20 bytes of its Keccak-256 digest.
func AddressFromPublic(pub domain.Ed25519Public) domain.UserAddress {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub[:])
	sum := h.Sum(nil)

	var addr domain.UserAddress
	copy(addr[:], sum[len(sum)-domain.AddressSize:])
	return addr
}

// VerifyAccessRight checks the signature of an access right and returns the
// address it grants access to.
func VerifyAccessRight(ar domain.AccessRight) (domain.UserAddress, error) {
	if !VerifyEd25519(ar.PubKey, ar.Challenge[:], ar.Sig) {
		return domain.UserAddress{}, fmt.Errorf("%w: invalid access right signature", domain.ErrCrypto)
	}
	return AddressFromPublic(ar.PubKey), nil
}

// NewAccessRight signs a fresh random challenge with priv.
func NewAccessRight(priv domain.Ed25519Private, pub domain.Ed25519Public) (domain.AccessRight, error) {
	var ar domain.AccessRight
	if _, err := rand.Read(ar.Challenge[:]); err != nil {
		return ar, err
	}
	ar.PubKey = pub
	ar.Sig = SignEd25519(priv, ar.Challenge[:])
	return ar, nil
}
