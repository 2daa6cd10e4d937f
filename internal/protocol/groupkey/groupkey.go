package groupkey

import (
	"sealedstate/internal/domain"
	"sealedstate/internal/protocol/keychain"
	"sealedstate/internal/protocol/treekem"
)

// GroupKey is an enclave's group membership and application keys.
type GroupKey struct {
	group *treekem.GroupState
	chain *keychain.KeyChain
}

// New returns the group key of an enclave that has not joined yet. kp may be
// nil when the enclave joins by itself.
func New(maxRoster uint32, kp *domain.KeyPackage) *GroupKey {
	return &GroupKey{
		group: treekem.NewGroupState(maxRoster, kp),
		chain: keychain.New(nil, 0, nil),
	}
}

// Joined reports whether this enclave holds the group secret.
func (g *GroupKey) Joined() bool { return g.group.Joined() }

// RosterIndex returns this enclave's roster index.
func (g *GroupKey) RosterIndex() (domain.RosterIndex, bool) { return g.group.MyIndex() }

// RosterSize returns the number of leaf slots handed out so far.
func (g *GroupKey) RosterSize() uint32 { return g.group.RosterSize() }

// SetKeyPackage replaces the key package used to recognise an Add for us.
func (g *GroupKey) SetKeyPackage(kp *domain.KeyPackage) { g.group.SetKeyPackage(kp) }

// KeyPackage returns the public half of the pending key package, if any.
func (g *GroupKey) KeyPackage() (domain.X25519Public, bool) {
	kp := g.group.KeyPackage()
	if kp == nil {
		return domain.X25519Public{}, false
	}
	return kp.Pub, true
}

// CreateHandshake returns an encoded Update rotating our path.
func (g *GroupKey) CreateHandshake() ([]byte, error) {
	return encoded(g.group.CreateUpdate())
}

// CreateJoin returns an encoded self-add for the next roster index.
func (g *GroupKey) CreateJoin() ([]byte, error) {
	return encoded(g.group.CreateJoin())
}

// CreateAdd returns an encoded Add of the holder of kp.
func (g *GroupKey) CreateAdd(kp domain.X25519Public) ([]byte, error) {
	return encoded(g.group.CreateAdd(kp))
}

// CreateRemove returns an encoded Remove of target.
func (g *GroupKey) CreateRemove(target domain.RosterIndex) ([]byte, error) {
	return encoded(g.group.CreateRemove(target))
}

// ProcessHandshake applies an encoded handshake and rebuilds the key chains.
// On error nothing changes.
func (g *GroupKey) ProcessHandshake(b []byte) (*treekem.Handshake, error) {
	h, err := treekem.UnmarshalHandshake(b)
	if err != nil {
		return nil, err
	}
	if err := g.group.Process(h); err != nil {
		return nil, err
	}
	var app []byte
	if g.group.Joined() {
		if app, err = g.group.AppSecret(); err != nil {
			return nil, err
		}
	}
	g.chain = keychain.New(app, g.group.RosterSize(), g.chain)
	return h, nil
}

// Encrypt seals plaintext under our chain.
func (g *GroupKey) Encrypt(plaintext []byte) ([]byte, error) {
	me, ok := g.group.MyIndex()
	if !ok {
		return nil, treekem.ErrNotMember
	}
	return g.chain.Encrypt(plaintext, me)
}

// EncryptAll seals plaintexts at consecutive generations of our chain, in
// the order the ledger will consume them.
func (g *GroupKey) EncryptAll(plaintexts [][]byte) ([][]byte, error) {
	me, ok := g.group.MyIndex()
	if !ok {
		return nil, treekem.ErrNotMember
	}
	return g.chain.EncryptAt(plaintexts, me)
}

// Decrypt opens a ciphertext. The header is returned whenever it parsed so
// the caller can ratchet the sender even on failure.
func (g *GroupKey) Decrypt(ct []byte) ([]byte, keychain.Header, error) {
	return g.chain.Decrypt(ct)
}

// Ratchet advances the chain of roster index i.
func (g *GroupKey) Ratchet(i domain.RosterIndex) error {
	return g.chain.Ratchet(i)
}

// Generation returns the current generation of roster index i.
func (g *GroupKey) Generation(i domain.RosterIndex) (uint32, error) {
	return g.chain.Generation(i)
}

func encoded(h *treekem.Handshake, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return h.Marshal(), nil
}
