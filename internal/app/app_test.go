package app_test

import (
	"context"
	"net"
	"testing"
	"time"

	clock "github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"sealedstate/internal/app"
	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
	"sealedstate/internal/ledger"
	"sealedstate/internal/log/logtest"
	"sealedstate/internal/runtime/token"
	"sealedstate/internal/services/enclave"
	"sealedstate/internal/store"
)

func newApp(t *testing.T) (*app.App, *ledger.Memory, *clock.FakeClock) {
	t.Helper()
	priv, pub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	c := enclave.New(domain.Identity{EdPub: pub, EdPriv: priv}, store.NewMemory(), token.NewRuntime(),
		enclave.Config{}, logtest.New(t))
	l := ledger.NewMemory(logtest.New(t))
	a := app.New(c, l, 0, logtest.New(t))
	fake := clock.NewFakeClock()
	a.Clock = fake
	return a, l, fake
}

func serve(t *testing.T, ctx context.Context, a *app.App) <-chan error {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln, time.Second) }()
	return done
}

func stop(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeSyncsOnStart(t *testing.T) {
	a, l, _ := newApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tx, err := a.Enclave.JoinGroup(ctx)
	require.NoError(t, err)
	_, err = l.SubmitJoin(ctx, tx)
	require.NoError(t, err)

	done := serve(t, ctx, a)
	// no tick: the clock never moves
	require.Eventually(t, func() bool {
		return a.Enclave.Status().Joined
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, uint64(1), a.Sync.Cursor())
	stop(t, cancel, done)
}

func TestServeSyncsOnTick(t *testing.T) {
	a, l, fake := newApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tx, err := a.Enclave.JoinGroup(ctx)
	require.NoError(t, err)
	_, err = l.SubmitJoin(ctx, tx)
	require.NoError(t, err)

	done := serve(t, ctx, a)
	require.Eventually(t, func() bool {
		return a.Sync.Cursor() == 1
	}, 5*time.Second, 10*time.Millisecond)

	priv, pub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	ar, err := crypto.NewAccessRight(priv, pub)
	require.NoError(t, err)
	itx, err := a.Enclave.Instruction(ctx, ar, crypto.AddressFromPublic(pub), token.CallMint, 8)
	require.NoError(t, err)
	_, err = l.SubmitInstruction(ctx, itx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		fake.Advance(time.Second)
		return a.Sync.Cursor() == 2
	}, 5*time.Second, 10*time.Millisecond)
	b, err := a.Enclave.GetState(ctx, ar)
	require.NoError(t, err)
	require.Equal(t, token.Balance(8), b)
	stop(t, cancel, done)
}
