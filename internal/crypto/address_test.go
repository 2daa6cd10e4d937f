package crypto_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
)

func TestAccessRight(t *testing.T) {
	priv, pub, err := crypto.GenerateEd25519()
	require.NoError(t, err)

	ar, err := crypto.NewAccessRight(priv, pub)
	require.NoError(t, err)

	addr, err := crypto.VerifyAccessRight(ar)
	require.NoError(t, err)
	require.Equal(t, crypto.AddressFromPublic(pub), addr)

	ar.Challenge[0] ^= 0xff
	_, err = crypto.VerifyAccessRight(ar)
	require.True(t, errors.Is(err, domain.ErrCrypto))
}

func TestAddressDiffersPerKey(t *testing.T) {
	_, a, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	_, b, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	require.NotEqual(t, crypto.AddressFromPublic(a), crypto.AddressFromPublic(b))
}
