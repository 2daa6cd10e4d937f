package treekem

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
	"sealedstate/internal/util/memzero"
)

// SecretSize is the length of every path, node and application secret.
const SecretSize = 32

// Derivation labels. A node's key pair comes from its node secret; the parent's
// path secret comes from the child's path secret.
const (
	labelNode = "tk|node"
	labelPath = "tk|path"
	labelApp  = "tk|app"
)

// PathSecret is the secret attached to one node on a member's direct path.
type PathSecret []byte

// Derive expands secret under label with HKDF-SHA256. It is one-way: no
// derived value reveals its input.
func Derive(secret []byte, label string, context ...[]byte) []byte {
	info := []byte(label)
	for _, c := range context {
		info = append(info, c...)
	}
	r := hkdf.New(sha256.New, secret, nil, info)
	out := make([]byte, SecretSize)
	_, _ = io.ReadFull(r, out)
	return out
}

// NextPathSecret derives the parent's path secret.
func NextPathSecret(ps PathSecret) PathSecret { return Derive(ps, labelPath) }

// NodeKeyPair derives the X25519 key pair of the node holding ps.
func NodeKeyPair(ps PathSecret) (domain.X25519Private, domain.X25519Public, error) {
	nodeSecret := Derive(ps, labelNode)
	defer memzero.Zero(nodeSecret)
	return crypto.X25519FromSecret(nodeSecret)
}

// AppSecret derives the application secret from the root path secret.
func AppSecret(root PathSecret) []byte { return Derive(root, labelApp) }

func freshPathSecret() (PathSecret, error) {
	ps := make(PathSecret, SecretSize)
	if _, err := rand.Read(ps); err != nil {
		return nil, err
	}
	return ps, nil
}

// derivePath walks n+1 path secrets up from leaf and returns them together
// with the public keys they commit to. Index 0 is the leaf.
func derivePath(leaf PathSecret, n int) ([]PathSecret, []domain.X25519Public, error) {
	secrets := make([]PathSecret, n+1)
	pubs := make([]domain.X25519Public, n+1)
	ps := leaf
	for i := 0; i <= n; i++ {
		_, pub, err := NodeKeyPair(ps)
		if err != nil {
			return nil, nil, err
		}
		secrets[i], pubs[i] = ps, pub
		if i < n {
			ps = NextPathSecret(ps)
		}
	}
	return secrets, pubs, nil
}
