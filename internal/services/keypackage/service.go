package keypackage

import (
	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
)

// Service creates and loads key packages.
type Service struct {
	ids domain.IdentityStore
	kps domain.KeyPackageStore
}

// New returns a key package service. The identity store is only used to
// check the passphrase before anything is written.
func New(ids domain.IdentityStore, kps domain.KeyPackageStore) *Service {
	return &Service{ids: ids, kps: kps}
}

// GenerateKeyPackage creates a fresh key package, replacing any previous one,
// and returns the public half to hand to a group member.
func (s *Service) GenerateKeyPackage(passphrase string) (domain.X25519Public, error) {
	if _, err := s.ids.LoadIdentity(passphrase); err != nil {
		return domain.X25519Public{}, err
	}
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.X25519Public{}, err
	}
	if err := s.kps.SaveKeyPackage(passphrase, domain.KeyPackage{Pub: pub, Priv: priv}); err != nil {
		return domain.X25519Public{}, err
	}
	return pub, nil
}

// LoadKeyPackage returns the stored key package, if any.
func (s *Service) LoadKeyPackage(passphrase string) (domain.KeyPackage, bool, error) {
	return s.kps.LoadKeyPackage(passphrase)
}

var _ domain.KeyPackageService = (*Service)(nil)
