package sync_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
	"sealedstate/internal/ledger"
	"sealedstate/internal/log/logtest"
	"sealedstate/internal/protocol/keychain"
	"sealedstate/internal/protocol/treekem"
	"sealedstate/internal/runtime/token"
	"sealedstate/internal/services/enclave"
	"sealedstate/internal/services/sync"
	"sealedstate/internal/store"
)

// scripted fails payloads listed in errs and records the rest.
type scripted struct {
	errs    map[string]error
	applied []string
}

func (s *scripted) InsertHandshake(_ context.Context, b []byte) error {
	if err, ok := s.errs[string(b)]; ok {
		return err
	}
	s.applied = append(s.applied, string(b))
	return nil
}

func (s *scripted) InsertCiphertext(_ context.Context, b []byte) (*domain.Notification, error) {
	if err, ok := s.errs[string(b)]; ok {
		return nil, err
	}
	s.applied = append(s.applied, string(b))
	return &domain.Notification{State: b}, nil
}

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

func (s signer) handshake(b string) domain.HandshakeTx {
	tx := domain.HandshakeTx{Handshake: []byte(b), Signer: s.pub}
	tx.EnclaveSig = crypto.SignEd25519(s.priv, tx.SigningBytes())
	return tx
}

func (s signer) ciphertext(b string, lock byte) domain.InitStateTx {
	tx := domain.InitStateTx{
		Ciphertext: []byte(b),
		LockParam:  domain.LockParam{lock},
		Prev:       domain.LockParam{0xff, lock},
		Signer:     s.pub,
	}
	tx.EnclaveSig = crypto.SignEd25519(s.priv, tx.SigningBytes())
	return tx
}

func TestRunPagesThroughLedger(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemory(logtest.New(t))
	s := newSigner(t)
	for i := 0; i < 5; i++ {
		_, err := l.SubmitInitState(ctx, s.ciphertext(string(rune('a'+i)), byte(i)))
		require.NoError(t, err)
	}

	in := &scripted{}
	svc := sync.New(l, in, 0, 2, logtest.New(t))
	res, err := svc.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, res.Processed)
	require.Len(t, res.Notifications, 5)
	require.Equal(t, uint64(5), svc.Cursor())
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, in.applied)

	res, err = svc.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Processed)
	require.Equal(t, uint64(5), res.Cursor)
}

func TestRunStartsAtCursor(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemory(logtest.New(t))
	s := newSigner(t)
	for i := 0; i < 3; i++ {
		_, err := l.SubmitHandshake(ctx, s.handshake(string(rune('x'+i))))
		require.NoError(t, err)
	}
	in := &scripted{}
	_, err := sync.New(l, in, 2, 0, logtest.New(t)).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"z"}, in.applied)
}

func TestRunSkipsDeterministicFailures(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemory(logtest.New(t))
	s := newSigner(t)
	_, err := l.SubmitInitState(ctx, s.ciphertext("bad-ct", 1))
	require.NoError(t, err)
	_, err = l.SubmitHandshake(ctx, s.handshake("stale-join"))
	require.NoError(t, err)
	_, err = l.SubmitHandshake(ctx, s.handshake("garbage"))
	require.NoError(t, err)
	_, err = l.SubmitInitState(ctx, s.ciphertext("good", 2))
	require.NoError(t, err)

	in := &scripted{errs: map[string]error{
		"bad-ct":     keychain.ErrDecrypt,
		"stale-join": fmt.Errorf("%w: %w", treekem.ErrRejected, treekem.ErrInvalidTarget),
		"garbage":    domain.ErrCodec,
	}}
	res, err := sync.New(l, in, 0, 0, logtest.New(t)).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, res.Processed)
	require.Equal(t, []string{"good"}, in.applied)
	require.Len(t, res.Failed, 3)
	require.Equal(t, uint64(1), res.Failed[1].Seq)
	require.Equal(t, domain.EntryHandshake, res.Failed[1].Kind)
}

func TestRunStopsOnHandshakeFailure(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemory(logtest.New(t))
	s := newSigner(t)
	_, err := l.SubmitHandshake(ctx, s.handshake("ok"))
	require.NoError(t, err)
	_, err = l.SubmitHandshake(ctx, s.handshake("lost-share"))
	require.NoError(t, err)
	_, err = l.SubmitHandshake(ctx, s.handshake("after"))
	require.NoError(t, err)

	in := &scripted{errs: map[string]error{"lost-share": treekem.ErrUndecryptableShare}}
	svc := sync.New(l, in, 0, 0, logtest.New(t))
	res, err := svc.Run(ctx)
	require.ErrorIs(t, err, treekem.ErrUndecryptableShare)
	require.Equal(t, 1, res.Processed)
	require.Equal(t, uint64(1), svc.Cursor())
	require.Equal(t, []string{"ok"}, in.applied)
}

type brokenLedger struct{ domain.Ledger }

func (brokenLedger) Entries(context.Context, uint64, int) ([]domain.Entry, error) {
	return nil, domain.ErrIO
}

func TestRunReportsLedgerErrors(t *testing.T) {
	_, err := sync.New(brokenLedger{}, &scripted{}, 0, 0, logtest.New(t)).Run(context.Background())
	require.ErrorIs(t, err, domain.ErrIO)
}

func TestRunHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := ledger.NewMemory(logtest.New(t))
	_, err := sync.New(l, &scripted{}, 0, 0, logtest.New(t)).Run(ctx)
	require.True(t, errors.Is(err, context.Canceled))
}

// member is one enclave with its own sync cursor over a shared ledger.
type member struct {
	ctx  *enclave.Context[token.Balance]
	sync *sync.Service
}

func newMember(t *testing.T, l domain.Ledger, kp *domain.KeyPackage) *member {
	t.Helper()
	priv, pub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	c := enclave.New(domain.Identity{EdPub: pub, EdPriv: priv}, store.NewMemory(), token.NewRuntime(),
		enclave.Config{KeyPackage: kp}, logtest.New(t))
	return &member{ctx: c, sync: sync.New(l, c, 0, 0, logtest.New(t))}
}

func syncAll(t *testing.T, members ...*member) {
	t.Helper()
	for _, m := range members {
		res, err := m.sync.Run(context.Background())
		require.NoError(t, err)
		require.Empty(t, res.Failed)
	}
}

func user(t *testing.T) (domain.AccessRight, domain.UserAddress) {
	t.Helper()
	priv, pub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	ar, err := crypto.NewAccessRight(priv, pub)
	require.NoError(t, err)
	return ar, crypto.AddressFromPublic(pub)
}

func TestAddByThirdMemberConverges(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemory(logtest.New(t))

	var members []*member
	for i := 0; i < 3; i++ {
		m := newMember(t, l, nil)
		members = append(members, m)
		// Catch up first: a self-add names the next free roster index.
		syncAll(t, m)
		tx, err := m.ctx.JoinGroup(ctx)
		require.NoError(t, err)
		_, err = l.SubmitJoin(ctx, tx)
		require.NoError(t, err)
		syncAll(t, members...)
	}

	priv, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	newcomer := newMember(t, l, &domain.KeyPackage{Pub: pub, Priv: priv})
	members = append(members, newcomer)

	tx, err := members[2].ctx.AddMember(ctx, pub)
	require.NoError(t, err)
	_, err = l.SubmitHandshake(ctx, tx)
	require.NoError(t, err)
	syncAll(t, members...)
	require.Equal(t, domain.RosterIndex(3), newcomer.ctx.Status().RosterIndex)

	// Every member can read what the newcomer writes.
	ar, addr := user(t)
	itx, err := newcomer.ctx.Instruction(ctx, ar, addr, token.CallMint, 12)
	require.NoError(t, err)
	_, err = l.SubmitInstruction(ctx, itx)
	require.NoError(t, err)
	syncAll(t, members...)
	for _, m := range members {
		b, err := m.ctx.GetState(ctx, ar)
		require.NoError(t, err)
		require.Equal(t, token.Balance(12), b)
	}
}

func TestStaleResubmissionRejected(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemory(logtest.New(t))
	m := newMember(t, l, nil)
	tx, err := m.ctx.JoinGroup(ctx)
	require.NoError(t, err)
	_, err = l.SubmitJoin(ctx, tx)
	require.NoError(t, err)
	syncAll(t, m)

	ar, addr := user(t)
	l0, err := m.ctx.RevealLockParams(ctx, ar, addr)
	require.NoError(t, err)

	first, err := m.ctx.Instruction(ctx, ar, addr, token.CallMint, 5)
	require.NoError(t, err)
	_, err = l.SubmitInstruction(ctx, first)
	require.NoError(t, err)
	syncAll(t, m)

	l1, err := m.ctx.RevealLockParams(ctx, ar, addr)
	require.NoError(t, err)
	require.NotEqual(t, l0, l1)

	_, err = l.SubmitInstruction(ctx, first)
	require.ErrorIs(t, err, domain.ErrStaleLockParam)

	// A fresh instruction reveals L1 and goes through.
	next, err := m.ctx.Instruction(ctx, ar, addr, token.CallBurn, 2)
	require.NoError(t, err)
	require.Equal(t, l1, next.LockParams)
	_, err = l.SubmitInstruction(ctx, next)
	require.NoError(t, err)
	syncAll(t, m)

	b, err := m.ctx.GetState(ctx, ar)
	require.NoError(t, err)
	require.Equal(t, token.Balance(3), b)
}

func TestReplayedHandshakeIsSkipped(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemory(logtest.New(t))
	var members []*member
	for i := 0; i < 2; i++ {
		m := newMember(t, l, nil)
		members = append(members, m)
		syncAll(t, m)
		tx, err := m.ctx.JoinGroup(ctx)
		require.NoError(t, err)
		_, err = l.SubmitJoin(ctx, tx)
		require.NoError(t, err)
		syncAll(t, members...)
	}

	upd, err := members[0].ctx.CreateHandshake(ctx)
	require.NoError(t, err)
	_, err = l.SubmitHandshake(ctx, upd)
	require.NoError(t, err)
	replay, err := l.SubmitHandshake(ctx, upd)
	require.NoError(t, err)

	for _, m := range members {
		res, err := m.sync.Run(ctx)
		require.NoError(t, err)
		require.Len(t, res.Failed, 1)
		require.Equal(t, replay, res.Failed[0].Seq)
		require.Equal(t, replay+1, m.sync.Cursor())
	}

	ar, addr := user(t)
	itx, err := members[0].ctx.Instruction(ctx, ar, addr, token.CallMint, 4)
	require.NoError(t, err)
	_, err = l.SubmitInstruction(ctx, itx)
	require.NoError(t, err)
	syncAll(t, members...)
	b, err := members[1].ctx.GetState(ctx, ar)
	require.NoError(t, err)
	require.Equal(t, token.Balance(4), b)
}
