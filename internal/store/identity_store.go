package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"sealedstate/internal/domain"
)

const (
	idFilename = "identity.json.enc"
	kpFilename = "keypackage.json.enc"
)

var errNotFound = errors.New("not found")

// IdentityFileStore persists the enclave signing identity to disk.
type IdentityFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string) *IdentityFileStore {
	return &IdentityFileStore{dir: dir}
}

// SaveIdentity writes the encrypted identity to disk.
func (s *IdentityFileStore) SaveIdentity(passphrase string, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveSealed(filepath.Join(s.dir, idFilename), kindIdentity, passphrase, id)
}

// LoadIdentity reads and decrypts the identity.
func (s *IdentityFileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id domain.Identity
	ok, err := loadSealed(filepath.Join(s.dir, idFilename), kindIdentity, passphrase, &id)
	if err != nil {
		return domain.Identity{}, err
	}
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: identity: %v", domain.ErrIO, errNotFound)
	}
	return id, nil
}

// KeyPackageFileStore persists the key package waiting for an Add.
type KeyPackageFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewKeyPackageFileStore returns a KeyPackageFileStore rooted at dir.
func NewKeyPackageFileStore(dir string) *KeyPackageFileStore {
	return &KeyPackageFileStore{dir: dir}
}

// SaveKeyPackage writes the encrypted key package to disk.
func (s *KeyPackageFileStore) SaveKeyPackage(passphrase string, kp domain.KeyPackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveSealed(filepath.Join(s.dir, kpFilename), kindKeyPackage, passphrase, kp)
}

// LoadKeyPackage reads the key package; ok is false when none was saved.
func (s *KeyPackageFileStore) LoadKeyPackage(passphrase string) (domain.KeyPackage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kp domain.KeyPackage
	ok, err := loadSealed(filepath.Join(s.dir, kpFilename), kindKeyPackage, passphrase, &kp)
	if err != nil || !ok {
		return domain.KeyPackage{}, false, err
	}
	return kp, true, nil
}

// Compile-time assertions that the file stores implement the domain interfaces.
var (
	_ domain.IdentityStore   = (*IdentityFileStore)(nil)
	_ domain.KeyPackageStore = (*KeyPackageFileStore)(nil)
)
