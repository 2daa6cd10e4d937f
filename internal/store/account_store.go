package store

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sync"

	"sealedstate/internal/domain"
)

const accountsDir = "accounts"

var accountName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// AccountFileStore keeps user accounts under dir/accounts, one sealed file
// per name.
type AccountFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewAccountFileStore returns an AccountFileStore rooted at dir.
func NewAccountFileStore(dir string) *AccountFileStore {
	return &AccountFileStore{dir: filepath.Join(dir, accountsDir)}
}

// SaveAccount writes a under its name, replacing any previous account.
func (s *AccountFileStore) SaveAccount(passphrase string, a domain.Account) error {
	path, err := s.path(a.Name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveSealed(path, kindAccount, passphrase, a)
}

// LoadAccount reads the account called name.
func (s *AccountFileStore) LoadAccount(passphrase, name string) (domain.Account, error) {
	path, err := s.path(name)
	if err != nil {
		return domain.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var a domain.Account
	ok, err := loadSealed(path, kindAccount, passphrase, &a)
	if err != nil {
		return domain.Account{}, err
	}
	if !ok {
		return domain.Account{}, fmt.Errorf("%w: account %q: %v", domain.ErrIO, name, errNotFound)
	}
	return a, nil
}

func (s *AccountFileStore) path(name string) (string, error) {
	if !accountName.MatchString(name) {
		return "", fmt.Errorf("invalid account name %q", name)
	}
	return filepath.Join(s.dir, name+".json.enc"), nil
}
