package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sealedstate/internal/domain"
	"sealedstate/internal/log/logtest"
	"sealedstate/internal/store"
)

func TestMain(m *testing.M) {
	store.FastScrypt()
	os.Exit(m.Run())
}

var (
	alice = domain.UserAddress{1}
	bob   = domain.UserAddress{2}
)

// exerciseKeyedStore runs the behaviour every KeyedStore shares.
func exerciseKeyedStore(t *testing.T, s domain.KeyedStore) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, alice)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Put(ctx, alice, []byte("one")))
	require.NoError(t, s.Put(ctx, bob, []byte("two")))
	require.NoError(t, s.Put(ctx, alice, []byte("three")))

	v, ok, err := s.Get(ctx, alice)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("three"), v)

	// returned values are copies
	v[0] = 'X'
	v, _, err = s.Get(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, []byte("three"), v)

	v, ok, err = s.Get(ctx, bob)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("two"), v)
}

func TestMemory(t *testing.T) {
	m := store.NewMemory()
	exerciseKeyedStore(t, m)
	require.Equal(t, 2, m.Len())
}

func TestBolt(t *testing.T) {
	dir := t.TempDir()
	b, err := store.NewBolt(context.Background(), logtest.New(t), dir, nil)
	require.NoError(t, err)
	exerciseKeyedStore(t, b)

	n, err := b.Len(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, b.Close())

	// values survive a reopen
	b, err = store.NewBolt(context.Background(), logtest.New(t), dir, nil)
	require.NoError(t, err)
	defer b.Close()
	v, ok, err := b.Get(context.Background(), bob)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("two"), v)
}

func TestBoltCancelledContext(t *testing.T) {
	b, err := store.NewBolt(context.Background(), logtest.New(t), t.TempDir(), nil)
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, b.Put(ctx, alice, []byte("x")), context.Canceled)
}

func TestCached(t *testing.T) {
	inner := store.NewMemory()
	c, err := store.NewCached(inner, 8)
	require.NoError(t, err)
	exerciseKeyedStore(t, c)
	require.Equal(t, 2, c.Len())

	// a value written behind the cache's back is only seen after a miss
	require.NoError(t, inner.Put(context.Background(), domain.UserAddress{3}, []byte("behind")))
	v, ok, err := c.Get(context.Background(), domain.UserAddress{3})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("behind"), v)
}

func TestSealed(t *testing.T) {
	inner := store.NewMemory()
	key := make([]byte, 32)
	key[0] = 9
	s, err := store.NewSealed(inner, key)
	require.NoError(t, err)
	exerciseKeyedStore(t, s)

	raw, ok, err := inner.Get(context.Background(), alice)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotContains(t, string(raw), "three")

	// a sealed value copied to another address does not open
	require.NoError(t, inner.Put(context.Background(), bob, raw))
	_, _, err = s.Get(context.Background(), bob)
	require.True(t, errors.Is(err, domain.ErrIO))

	_, err = store.NewSealed(inner, key[:16])
	require.Error(t, err)
}

func TestIdentityFileStore(t *testing.T) {
	home := t.TempDir()
	ids := store.NewIdentityFileStore(home)

	_, err := ids.LoadIdentity("pass")
	require.True(t, errors.Is(err, domain.ErrIO))

	id := domain.Identity{EdPub: domain.Ed25519Public{3}, EdPriv: domain.Ed25519Private{4}}
	require.NoError(t, ids.SaveIdentity("pass", id))

	got, err := ids.LoadIdentity("pass")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = ids.LoadIdentity("wrong")
	require.ErrorIs(t, err, store.ErrWrongPassphrase)

	info, err := os.Stat(filepath.Join(home, "identity.json.enc"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestKeyPackageFileStore(t *testing.T) {
	kps := store.NewKeyPackageFileStore(t.TempDir())

	_, ok, err := kps.LoadKeyPackage("pass")
	require.NoError(t, err)
	require.False(t, ok)

	kp := domain.KeyPackage{Pub: domain.X25519Public{1}, Priv: domain.X25519Private{2}}
	require.NoError(t, kps.SaveKeyPackage("pass", kp))

	got, ok, err := kps.LoadKeyPackage("pass")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, kp, got)
}

func TestAccountFileStore(t *testing.T) {
	as := store.NewAccountFileStore(t.TempDir())

	_, err := as.LoadAccount("pass", "alice")
	require.ErrorIs(t, err, domain.ErrIO)

	a := domain.Account{Name: "alice", EdPub: domain.Ed25519Public{3}, EdPriv: domain.Ed25519Private{4}}
	require.NoError(t, as.SaveAccount("pass", a))
	got, err := as.LoadAccount("pass", "alice")
	require.NoError(t, err)
	require.Equal(t, a, got)

	_, err = as.LoadAccount("other", "alice")
	require.ErrorIs(t, err, store.ErrWrongPassphrase)

	require.Error(t, as.SaveAccount("pass", domain.Account{Name: "../escape"}))
	_, err = as.LoadAccount("pass", "")
	require.Error(t, err)
}

func TestSealedFileKindIsBound(t *testing.T) {
	home := t.TempDir()
	kps := store.NewKeyPackageFileStore(home)
	require.NoError(t, kps.SaveKeyPackage("pass", domain.KeyPackage{Pub: domain.X25519Public{1}}))

	// A key package file swapped into the identity's place does not load.
	b, err := os.ReadFile(filepath.Join(home, "keypackage.json.enc"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(home, "identity.json.enc"), b, 0o600))

	_, err = store.NewIdentityFileStore(home).LoadIdentity("pass")
	require.ErrorIs(t, err, domain.ErrCodec)
}
