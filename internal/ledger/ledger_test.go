package ledger_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
	"sealedstate/internal/ledger"
	"sealedstate/internal/log/logtest"
)

type signer struct {
	priv domain.Ed25519Private
	pub  domain.Ed25519Public
}

func newSigner(t *testing.T) signer {
	t.Helper()
	priv, pub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	return signer{priv: priv, pub: pub}
}

func (s signer) instruction(lps []domain.LockParam, cts ...[]byte) domain.InstructionTx {
	tx := domain.InstructionTx{CallKind: 1, Ciphertexts: cts, LockParams: lps, Signer: s.pub}
	tx.EnclaveSig = crypto.SignEd25519(s.priv, tx.SigningBytes())
	return tx
}

func (s signer) init(prev, lp domain.LockParam, ct []byte) domain.InitStateTx {
	tx := domain.InitStateTx{Ciphertext: ct, LockParam: lp, Prev: prev, Signer: s.pub}
	tx.EnclaveSig = crypto.SignEd25519(s.priv, tx.SigningBytes())
	return tx
}

func (s signer) handshake(b []byte) domain.HandshakeTx {
	tx := domain.HandshakeTx{Handshake: b, Signer: s.pub}
	tx.EnclaveSig = crypto.SignEd25519(s.priv, tx.SigningBytes())
	return tx
}

func (s signer) join(b []byte) domain.JoinGroupTx {
	tx := domain.JoinGroupTx{Handshake: b, Signer: s.pub}
	tx.EnclaveSig = crypto.SignEd25519(s.priv, tx.SigningBytes())
	return tx
}

// exerciseLedger runs the contract rules against any Ledger implementation.
func exerciseLedger(t *testing.T, l domain.Ledger) {
	t.Helper()
	ctx := context.Background()
	s := newSigner(t)

	seq, err := l.SubmitJoin(ctx, s.join([]byte("join")))
	require.NoError(t, err)
	require.Equal(t, uint64(0), seq)

	defA, lpA := domain.LockParam{0xda}, domain.LockParam{0xa}
	seq, err = l.SubmitInitState(ctx, s.init(defA, lpA, []byte("init")))
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)

	_, err = l.SubmitInitState(ctx, s.init(domain.LockParam{0xd0}, lpA, []byte("again")))
	require.True(t, errors.Is(err, domain.ErrStaleLockParam))
	// the default lock was consumed: neither a second init nor a transition
	// computed from the default state lands
	_, err = l.SubmitInitState(ctx, s.init(defA, domain.LockParam{0xa2}, []byte("other")))
	require.True(t, errors.Is(err, domain.ErrStaleLockParam))
	_, err = l.SubmitInstruction(ctx, s.instruction([]domain.LockParam{defA}, []byte("lagging")))
	require.True(t, errors.Is(err, domain.ErrStaleLockParam))
	_, err = l.SubmitInitState(ctx, s.init(domain.LockParam{0xd1}, domain.LockParam{0xd1}, []byte("zero")))
	require.True(t, errors.Is(err, domain.ErrStaleLockParam))

	lpB := domain.LockParam{0xb}
	seq, err = l.SubmitInstruction(ctx, s.instruction([]domain.LockParam{lpA, lpB}, []byte("a1"), []byte("b1")))
	require.NoError(t, err)
	require.Equal(t, uint64(2), seq)

	// a second transition computed from the same lock params is rejected
	_, err = l.SubmitInstruction(ctx, s.instruction([]domain.LockParam{lpA}, []byte("a1'")))
	require.True(t, errors.Is(err, domain.ErrStaleLockParam))

	_, err = l.SubmitHandshake(ctx, s.handshake([]byte("update")))
	require.NoError(t, err)

	bad := s.handshake([]byte("update"))
	bad.EnclaveSig[0] ^= 1
	_, err = l.SubmitHandshake(ctx, bad)
	require.True(t, errors.Is(err, domain.ErrCrypto))

	entries, err := l.Entries(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	kinds := make([]domain.EntryKind, len(entries))
	for i, e := range entries {
		require.Equal(t, uint64(i), e.Seq)
		require.Equal(t, s.pub, e.Signer)
		kinds[i] = e.Kind
	}
	require.Equal(t, []domain.EntryKind{
		domain.EntryHandshake, domain.EntryCiphertext, domain.EntryCiphertext,
		domain.EntryCiphertext, domain.EntryHandshake,
	}, kinds)
	require.Equal(t, []byte("b1"), entries[3].Payload)

	page, err := l.Entries(ctx, 3, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, uint64(3), page[0].Seq)

	page, err = l.Entries(ctx, 99, 10)
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestMemory(t *testing.T) {
	exerciseLedger(t, ledger.NewMemory(logtest.New(t)))
}

func TestHTTP(t *testing.T) {
	lg := logtest.New(t)
	srv := httptest.NewServer(ledger.Handler(ledger.NewMemory(lg), lg))
	defer srv.Close()
	exerciseLedger(t, ledger.NewHTTP(srv.URL))
}

func TestHTTPUnreachableIsIOError(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()
	_, err := ledger.NewHTTP(url).Entries(context.Background(), 0, 1)
	require.True(t, errors.Is(err, domain.ErrIO))
}

func TestEmptyInstructionRejected(t *testing.T) {
	s := newSigner(t)
	_, err := ledger.NewMemory(logtest.New(t)).SubmitInstruction(context.Background(), s.instruction(nil))
	require.True(t, errors.Is(err, domain.ErrCodec))
}
