package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
	"sealedstate/internal/ledger"
	"sealedstate/internal/log"
	identitysvc "sealedstate/internal/services/identity"
	keypackagesvc "sealedstate/internal/services/keypackage"
	"sealedstate/internal/store"
	"sealedstate/internal/util/memzero"
)

// SaltFileName holds the salt of the key sealing the bolt state store.
const SaltFileName = "store.salt"

// Wire bundles the stores, services and clients for the CLI.
type Wire struct {
	Config     Config
	Identity   domain.IdentityService
	KeyPackage domain.KeyPackageService
	Ledger     domain.Ledger
	Log        log.Logger

	closers []io.Closer
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, l log.Logger) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// File-based stores
	identityStore := store.NewIdentityFileStore(cfg.Home)
	keyPackageStore := store.NewKeyPackageFileStore(cfg.Home)

	return &Wire{
		Config:     cfg,
		Identity:   identitysvc.New(identityStore),
		KeyPackage: keypackagesvc.New(identityStore, keyPackageStore),
		Ledger:     ledger.NewHTTP(cfg.LedgerURL),
		Log:        l,
	}, nil
}

// StateStore opens the enclave state store cfg names. With bolt, values are
// sealed under a key derived from passphrase before they reach the disk and
// an ARC cache sits in front of the sealed store.
func (w *Wire) StateStore(ctx context.Context, passphrase string) (domain.KeyedStore, error) {
	if w.Config.Store == StoreMemory {
		return store.NewMemory(), nil
	}

	salt, err := loadOrCreateSalt(filepath.Join(w.Config.Home, SaltFileName))
	if err != nil {
		return nil, err
	}
	b, err := store.NewBolt(ctx, w.Log, w.Config.Home, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt store: %w", domain.ErrIO, err)
	}
	w.closers = append(w.closers, b)

	key := crypto.DeriveKEK(passphrase, salt)
	defer memzero.Zero(key)
	sealed, err := store.NewSealed(b, key)
	if err != nil {
		return nil, err
	}
	if w.Config.CacheSize == 0 {
		return sealed, nil
	}
	return store.NewCached(sealed, w.Config.CacheSize)
}

// Close releases everything StateStore opened.
func (w *Wire) Close() error {
	var errs *multierror.Error
	for _, c := range w.closers {
		if err := c.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	w.closers = nil
	return errs.ErrorOrNil()
}

func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	switch {
	case err == nil && len(salt) == crypto.SaltBytes:
		return salt, nil
	case err == nil:
		return nil, fmt.Errorf("%w: %s holds %d bytes, want %d", domain.ErrIO, path, len(salt), crypto.SaltBytes)
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %w", domain.ErrIO, err)
	}
	salt = make([]byte, crypto.SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIO, err)
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIO, err)
	}
	return salt, nil
}
