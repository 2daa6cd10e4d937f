package groupkey_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
	"sealedstate/internal/protocol/groupkey"
	"sealedstate/internal/protocol/keychain"
)

func process(t *testing.T, b []byte, keys ...*groupkey.GroupKey) {
	t.Helper()
	for i, k := range keys {
		_, err := k.ProcessHandshake(b)
		require.NoError(t, err, "key %d", i)
	}
}

func committee(t *testing.T, n int, observers ...*groupkey.GroupKey) []*groupkey.GroupKey {
	t.Helper()
	keys := make([]*groupkey.GroupKey, n)
	for i := range keys {
		keys[i] = groupkey.New(0, nil)
	}
	all := append(append([]*groupkey.GroupKey(nil), keys...), observers...)
	for _, k := range keys {
		b, err := k.CreateJoin()
		require.NoError(t, err)
		process(t, b, all...)
	}
	return keys
}

// ingest mimics the ledger handing one ciphertext to every enclave.
func ingest(t *testing.T, ct []byte, keys ...*groupkey.GroupKey) [][]byte {
	t.Helper()
	out := make([][]byte, len(keys))
	for i, k := range keys {
		pt, h, err := k.Decrypt(ct)
		if err == nil {
			out[i] = pt
		}
		require.NoError(t, k.Ratchet(h.Sender))
	}
	return out
}

func TestCommitteeSharesPlaintext(t *testing.T) {
	keys := committee(t, 3)
	ct, err := keys[1].Encrypt([]byte("state"))
	require.NoError(t, err)
	for i, pt := range ingest(t, ct, keys...) {
		require.Equal(t, []byte("state"), pt, "key %d", i)
	}
}

func TestHandshakeKeepsGenerations(t *testing.T) {
	keys := committee(t, 2)
	ct, err := keys[0].Encrypt([]byte("a"))
	require.NoError(t, err)
	ingest(t, ct, keys...)

	b, err := keys[1].CreateHandshake()
	require.NoError(t, err)
	process(t, b, keys...)

	gen, err := keys[1].Generation(0)
	require.NoError(t, err)
	require.Equal(t, uint32(1), gen)

	ct, err = keys[0].Encrypt([]byte("b"))
	require.NoError(t, err)
	for _, pt := range ingest(t, ct, keys...) {
		require.Equal(t, []byte("b"), pt)
	}
}

func TestLateJoinerCatchesUp(t *testing.T) {
	priv, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	late := groupkey.New(0, &domain.KeyPackage{Pub: pub, Priv: priv})
	kpPub, ok := late.KeyPackage()
	require.True(t, ok)

	keys := committee(t, 2, late)
	ct, err := keys[0].Encrypt([]byte("before"))
	require.NoError(t, err)
	all := append(keys, late)
	out := ingest(t, ct, all...)
	require.Nil(t, out[2])

	add, err := keys[1].CreateAdd(kpPub)
	require.NoError(t, err)
	process(t, add, all...)
	require.True(t, late.Joined())
	_, ok = late.KeyPackage()
	require.False(t, ok)

	ct, err = keys[0].Encrypt([]byte("after"))
	require.NoError(t, err)
	for _, pt := range ingest(t, ct, all...) {
		require.Equal(t, []byte("after"), pt)
	}
}

func TestRemovedMemberCannotDecrypt(t *testing.T) {
	keys := committee(t, 3)
	rm, err := keys[0].CreateRemove(2)
	require.NoError(t, err)
	process(t, rm, keys...)
	require.False(t, keys[2].Joined())

	ct, err := keys[1].Encrypt([]byte("secret"))
	require.NoError(t, err)
	_, _, err = keys[2].Decrypt(ct)
	require.ErrorIs(t, err, keychain.ErrNoKey)

	_, err = keys[2].Encrypt([]byte("x"))
	require.Error(t, err)
}

func TestEncryptAllMatchesLedgerOrder(t *testing.T) {
	keys := committee(t, 2)
	cts, err := keys[0].EncryptAll([][]byte{[]byte("one"), []byte("two")})
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("one"), []byte("one")}, ingest(t, cts[0], keys...))
	require.Equal(t, [][]byte{[]byte("two"), []byte("two")}, ingest(t, cts[1], keys...))
}
