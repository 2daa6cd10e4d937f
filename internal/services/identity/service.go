package identity

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
)

// MinPassphrase is the shortest passphrase CheckPassphrase accepts.
const MinPassphrase = 12

// ErrWeakPassphrase is wrapped by every CheckPassphrase failure.
var ErrWeakPassphrase = errors.New("weak passphrase")

// CheckPassphrase requires MinPassphrase characters drawn from upper case,
// lower case, digit and symbol classes. The error names what is missing.
func CheckPassphrase(p string) error {
	var missing []string
	if len([]rune(p)) < MinPassphrase {
		missing = append(missing, fmt.Sprintf("%d characters", MinPassphrase))
	}
	classes := []struct {
		name string
		in   func(rune) bool
	}{
		{"an upper case letter", unicode.IsUpper},
		{"a lower case letter", unicode.IsLower},
		{"a digit", unicode.IsDigit},
		{"a symbol", func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) }},
	}
	for _, c := range classes {
		if !strings.ContainsFunc(p, c.in) {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: needs %s", ErrWeakPassphrase, strings.Join(missing, ", "))
	}
	return nil
}

// Service owns the enclave signing identity. Handshakes and state
// transactions are signed with it and the ledger checks that signature.
type Service struct {
	store domain.IdentityStore
}

func New(s domain.IdentityStore) *Service { return &Service{store: s} }

// GenerateIdentity creates and stores a new signing identity.
func (s *Service) GenerateIdentity(passphrase string) (domain.Identity, domain.Fingerprint, error) {
	if err := CheckPassphrase(passphrase); err != nil {
		return domain.Identity{}, "", err
	}
	priv, pub, err := crypto.GenerateEd25519()
	if err != nil {
		return domain.Identity{}, "", err
	}
	id := domain.Identity{EdPub: pub, EdPriv: priv}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, "", err
	}
	return id, fingerprintOf(id), nil
}

func (s *Service) LoadIdentity(passphrase string) (domain.Identity, error) {
	return s.store.LoadIdentity(passphrase)
}

// FingerprintIdentity is the short display form of the stored signing key.
func (s *Service) FingerprintIdentity(passphrase string) (domain.Fingerprint, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return fingerprintOf(id), nil
}

func fingerprintOf(id domain.Identity) domain.Fingerprint {
	return domain.Fingerprint(crypto.Fingerprint(id.EdPub.Slice()))
}

var _ domain.IdentityService = (*Service)(nil)
