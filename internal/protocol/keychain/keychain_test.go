package keychain_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"sealedstate/internal/domain"
	"sealedstate/internal/protocol/keychain"
)

var app = bytes.Repeat([]byte{0x42}, 32)

func TestRoundTrip(t *testing.T) {
	alice := keychain.New(app, 3, nil)
	bob := keychain.New(app, 3, nil)

	ct, err := alice.Encrypt([]byte("hi"), 1)
	require.NoError(t, err)
	require.Len(t, ct, keychain.Overhead+2)

	pt, h, err := bob.Decrypt(ct)
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), pt)
	require.Equal(t, domain.RosterIndex(1), h.Sender)
	require.Equal(t, uint32(0), h.Generation)
}

// A ciphertext sealed at generation g stops decrypting once the receiver has
// ratcheted past g.
func TestForwardSecrecy(t *testing.T) {
	sender := keychain.New(app, 2, nil)
	receiver := keychain.New(app, 2, nil)

	old, err := sender.Encrypt([]byte("g0"), 0)
	require.NoError(t, err)
	pt, _, err := receiver.Decrypt(old)
	require.NoError(t, err)
	require.Equal(t, []byte("g0"), pt)

	require.NoError(t, sender.Ratchet(0))
	require.NoError(t, receiver.Ratchet(0))

	fresh, err := sender.Encrypt([]byte("g1"), 0)
	require.NoError(t, err)
	pt, _, err = receiver.Decrypt(fresh)
	require.NoError(t, err)
	require.Equal(t, []byte("g1"), pt)

	_, _, err = receiver.Decrypt(old)
	require.ErrorIs(t, err, keychain.ErrForwardSecrecy)
	require.True(t, errors.Is(err, domain.ErrCrypto))
}

func TestFutureGeneration(t *testing.T) {
	sender := keychain.New(app, 1, nil)
	receiver := keychain.New(app, 1, nil)
	require.NoError(t, sender.Ratchet(0))

	ct, err := sender.Encrypt([]byte("x"), 0)
	require.NoError(t, err)
	_, _, err = receiver.Decrypt(ct)
	require.ErrorIs(t, err, keychain.ErrFutureGeneration)
}

func TestUnknownSender(t *testing.T) {
	k := keychain.New(app, 2, nil)
	_, err := k.Encrypt([]byte("x"), 2)
	require.ErrorIs(t, err, keychain.ErrUnknownSender)
	require.True(t, errors.Is(k.Ratchet(5), domain.ErrTree))

	wide := keychain.New(app, 4, nil)
	ct, err := wide.Encrypt([]byte("x"), 3)
	require.NoError(t, err)
	_, h, err := k.Decrypt(ct)
	require.ErrorIs(t, err, keychain.ErrUnknownSender)
	require.Equal(t, domain.RosterIndex(3), h.Sender)
}

func TestEncryptAtFollowsLedgerRatchets(t *testing.T) {
	sender := keychain.New(app, 2, nil)
	receiver := keychain.New(app, 2, nil)

	cts, err := sender.EncryptAt([][]byte{[]byte("a"), []byte("b"), []byte("c")}, 1)
	require.NoError(t, err)
	gen, err := sender.Generation(1)
	require.NoError(t, err)
	require.Equal(t, uint32(0), gen)

	for i, ct := range cts {
		pt, h, err := receiver.Decrypt(ct)
		require.NoError(t, err, "ciphertext %d", i)
		require.Equal(t, uint32(i), h.Generation)
		require.Len(t, pt, 1)
		require.NoError(t, receiver.Ratchet(1))
	}
}

func TestNewCarriesGenerations(t *testing.T) {
	prev := keychain.New(app, 2, nil)
	require.NoError(t, prev.Ratchet(1))
	require.NoError(t, prev.Ratchet(1))

	next := keychain.New(bytes.Repeat([]byte{7}, 32), 3, prev)
	gen, err := next.Generation(1)
	require.NoError(t, err)
	require.Equal(t, uint32(2), gen)
	gen, err = next.Generation(2)
	require.NoError(t, err)
	require.Equal(t, uint32(0), gen)
}

func TestDifferentAppSecretDoesNotDecrypt(t *testing.T) {
	a := keychain.New(app, 1, nil)
	b := keychain.New(bytes.Repeat([]byte{1}, 32), 1, nil)
	ct, err := a.Encrypt([]byte("x"), 0)
	require.NoError(t, err)
	_, _, err = b.Decrypt(ct)
	require.ErrorIs(t, err, keychain.ErrDecrypt)
}

func TestTamperedHeaderRejected(t *testing.T) {
	k := keychain.New(app, 2, nil)
	ct, err := k.Encrypt([]byte("x"), 0)
	require.NoError(t, err)
	ct[3] = 1 // sender 0 -> 1
	_, _, err = k.Decrypt(ct)
	require.ErrorIs(t, err, keychain.ErrDecrypt)
}

func FuzzDecrypt(f *testing.F) {
	k := keychain.New(app, 4, nil)
	seed, _ := k.Encrypt([]byte("seed"), 2)
	f.Add(seed)
	f.Add([]byte{0, 0, 0, 1})
	f.Fuzz(func(t *testing.T, data []byte) {
		_, _, err := k.Decrypt(data)
		if err == nil {
			return
		}
		if !errors.Is(err, domain.ErrCrypto) && !errors.Is(err, domain.ErrCodec) && !errors.Is(err, domain.ErrTree) {
			t.Fatalf("unclassified error: %v", err)
		}
	})
}

func TestKeylessCountersTrackGenerations(t *testing.T) {
	counters := keychain.New(nil, 2, nil)
	_, err := counters.Encrypt([]byte("x"), 0)
	require.ErrorIs(t, err, keychain.ErrNoKey)

	require.NoError(t, counters.Ratchet(0))
	require.NoError(t, counters.Ratchet(0))

	keyed := keychain.New(app, 3, counters)
	gen, err := keyed.Generation(0)
	require.NoError(t, err)
	require.Equal(t, uint32(2), gen)
}
