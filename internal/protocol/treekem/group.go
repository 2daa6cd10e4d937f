package treekem

import (
	"fmt"

	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
	"sealedstate/internal/protocol/treemath"
)

// DefaultMaxRoster bounds the number of leaves a group hands out.
const DefaultMaxRoster = 1 << 16

// GroupState is one member's view of the group: the ratchet tree, its own
// leaf index and the current root path secret.
//
// Handshakes are applied to a clone of the tree and swapped in only after
// every check passed, so a failed Process leaves the state untouched.
type GroupState struct {
	tree       *RatchetTree
	myIndex    domain.RosterIndex
	joined     bool
	rootSecret PathSecret
	maxRoster  uint32
	keyPackage *domain.KeyPackage

	// pending maps the leaf commitment of a handshake we created to its leaf
	// path secret, so our own handshake can be re-derived when the ledger
	// hands it back.
	pending map[domain.X25519Public]PathSecret
}

// NewGroupState returns the state of an enclave that has not joined yet. kp,
// when set, lets another member add this enclave.
func NewGroupState(maxRoster uint32, kp *domain.KeyPackage) *GroupState {
	if maxRoster == 0 {
		maxRoster = DefaultMaxRoster
	}
	return &GroupState{
		tree:       NewRatchetTree(),
		maxRoster:  maxRoster,
		keyPackage: kp,
		pending:    make(map[domain.X25519Public]PathSecret),
	}
}

// Joined reports whether this state holds the group secret.
func (g *GroupState) Joined() bool { return g.joined }

// MyIndex returns this member's roster index.
func (g *GroupState) MyIndex() (domain.RosterIndex, bool) { return g.myIndex, g.joined }

// RosterSize returns the number of leaf slots handed out so far.
func (g *GroupState) RosterSize() uint32 { return g.tree.Size() }

// IsActive reports whether roster index i holds a member.
func (g *GroupState) IsActive(i domain.RosterIndex) bool { return g.tree.LeafPresent(i) }

// KeyPackage returns the key package still waiting for an Add, or nil.
func (g *GroupState) KeyPackage() *domain.KeyPackage { return g.keyPackage }

// SetKeyPackage replaces the key package. It is ignored once joined.
func (g *GroupState) SetKeyPackage(kp *domain.KeyPackage) {
	if !g.joined {
		g.keyPackage = kp
	}
}

// RootSecret returns a copy of the root path secret.
func (g *GroupState) RootSecret() (PathSecret, error) {
	if !g.joined {
		return nil, ErrNotMember
	}
	return append(PathSecret(nil), g.rootSecret...), nil
}

// AppSecret returns the application secret derived from the root.
func (g *GroupState) AppSecret() ([]byte, error) {
	if !g.joined {
		return nil, ErrNotMember
	}
	return AppSecret(g.rootSecret), nil
}

// CreateUpdate rotates this member's leaf and direct path.
func (g *GroupState) CreateUpdate() (*Handshake, error) {
	if !g.joined {
		return nil, ErrNotMember
	}
	return g.create(OpUpdate, g.myIndex, g.myIndex, domain.X25519Public{})
}

// CreateAdd adds the holder of key package kp at the next roster index.
func (g *GroupState) CreateAdd(kp domain.X25519Public) (*Handshake, error) {
	if !g.joined {
		return nil, ErrNotMember
	}
	return g.create(OpAdd, g.myIndex, domain.RosterIndex(g.tree.Size()), kp)
}

// CreateJoin adds this enclave to the group by itself at the next roster
// index. The first enclave of a group joins this way.
func (g *GroupState) CreateJoin() (*Handshake, error) {
	if g.joined {
		return nil, fmt.Errorf("%w: already a member", domain.ErrTree)
	}
	idx := domain.RosterIndex(g.tree.Size())
	return g.create(OpAdd, idx, idx, domain.X25519Public{})
}

// CreateRemove removes the member at target.
func (g *GroupState) CreateRemove(target domain.RosterIndex) (*Handshake, error) {
	if !g.joined {
		return nil, ErrNotMember
	}
	if target == g.myIndex || !g.tree.LeafPresent(target) {
		return nil, ErrInvalidTarget
	}
	return g.create(OpRemove, g.myIndex, target, domain.X25519Public{})
}

// create builds a handshake against a clone of the tree. Only the pending map
// is touched.
func (g *GroupState) create(op Op, sender, target domain.RosterIndex, added domain.X25519Public) (*Handshake, error) {
	leaf, err := freshPathSecret()
	if err != nil {
		return nil, err
	}

	work := g.tree.Clone()
	switch op {
	case OpAdd:
		if work.Size() >= g.maxRoster {
			return nil, ErrRosterFull
		}
		if sender == target {
			if _, added, err = NodeKeyPair(leaf); err != nil {
				return nil, err
			}
		}
		work.AddLeaf(added)
	case OpRemove:
		work.BlankPath(target)
	}

	path := work.DirectPath(sender)
	copath := work.Copath(sender)
	secrets, pubs, err := derivePath(leaf, len(path))
	if err != nil {
		return nil, err
	}

	h := &Handshake{
		Op:        op,
		Sender:    sender,
		Target:    target,
		AddedLeaf: added,
		LeafPub:   pubs[0],
		PathPubs:  pubs[1:],
	}
	for i, cp := range copath {
		for _, r := range work.Resolution(cp) {
			pub, _ := work.Public(r)
			ct, err := crypto.Seal(pub, secrets[i+1], shareAAD(op, sender, target, r))
			if err != nil {
				return nil, err
			}
			h.Shares = append(h.Shares, Share{Node: r, Ciphertext: ct})
		}
	}

	g.pending[h.LeafPub] = leaf
	return h, nil
}

// Process applies h. Handshakes must be processed exactly once each, in ledger
// order; a different order yields a root secret other members do not share.
func (g *GroupState) Process(h *Handshake) error {
	if err := g.validate(h); err != nil {
		return err
	}

	work := g.tree.Clone()
	switch h.Op {
	case OpAdd:
		work.AddLeaf(h.AddedLeaf)
	case OpRemove:
		work.BlankPath(h.Target)
	}
	path := work.DirectPath(h.Sender)
	if len(path) != len(h.PathPubs) {
		return rejected(ErrPathLength)
	}

	leafSecret, mine := g.pending[h.LeafPub]
	selfAdd := h.Op == OpAdd && h.Sender == h.Target
	me := g.myIndex
	usedKeyPackage := false

	switch {
	case mine && ((g.joined && h.Sender == g.myIndex) || (!g.joined && selfAdd)):
		root, err := applyOwn(work, h, path, leafSecret)
		if err != nil {
			return err
		}
		delete(g.pending, h.LeafPub)
		g.commit(work, root, h.Sender)
		return nil

	case g.joined && h.Sender == g.myIndex:
		return ErrUnknownPending

	case !g.joined && h.Op == OpAdd && !selfAdd && g.keyPackage != nil && h.AddedLeaf == g.keyPackage.Pub:
		work.setPrivate(treemath.LeafNode(uint32(h.Target)), g.keyPackage.Priv, g.keyPackage.Pub)
		me = h.Target
		usedKeyPackage = true

	case !g.joined:
		applyPublic(work, h, path)
		g.tree = work
		return nil

	case h.Op == OpRemove && h.Target == g.myIndex:
		applyPublic(work, h, path)
		work.forgetSecrets()
		g.tree = work
		g.joined = false
		g.rootSecret = nil
		return nil
	}

	root, err := applyShare(work, h, path, me)
	if err != nil {
		return err
	}
	if usedKeyPackage {
		g.keyPackage = nil
	}
	g.commit(work, root, me)
	return nil
}

func (g *GroupState) commit(tree *RatchetTree, root PathSecret, me domain.RosterIndex) {
	g.tree = tree
	g.rootSecret = append(PathSecret(nil), root...)
	g.myIndex = me
	g.joined = true
}

func (g *GroupState) validate(h *Handshake) error {
	if err := g.check(h); err != nil {
		return rejected(err)
	}
	return nil
}

func (g *GroupState) check(h *Handshake) error {
	size := g.tree.Size()
	switch h.Op {
	case OpAdd:
		if uint32(h.Target) != size {
			return ErrInvalidTarget
		}
		if size >= g.maxRoster {
			return ErrRosterFull
		}
		if h.Sender == h.Target {
			if h.AddedLeaf != h.LeafPub {
				return ErrCommitmentMismatch
			}
			return nil
		}
	case OpUpdate:
		if h.Target != h.Sender {
			return ErrInvalidTarget
		}
	case OpRemove:
		if h.Target == h.Sender || !g.tree.LeafPresent(h.Target) {
			return ErrInvalidTarget
		}
	default:
		return fmt.Errorf("%w: unknown handshake op %d", domain.ErrCodec, uint8(h.Op))
	}
	if uint32(h.Sender) >= g.maxRoster || !g.tree.LeafPresent(h.Sender) {
		return ErrSenderOutOfRange
	}
	// Every handshake commits a fresh leaf key, so one that repeats the
	// sender's current key has been applied already.
	if cur, ok := g.tree.Public(treemath.LeafNode(uint32(h.Sender))); ok && cur == h.LeafPub {
		return ErrReplayedHandshake
	}
	return nil
}

// applyOwn re-derives a handshake this member created from its leaf secret.
func applyOwn(work *RatchetTree, h *Handshake, path []uint32, leaf PathSecret) (PathSecret, error) {
	secrets, pubs, err := derivePath(leaf, len(path))
	if err != nil {
		return nil, err
	}
	if pubs[0] != h.LeafPub {
		return nil, ErrCommitmentMismatch
	}
	for i := range path {
		if pubs[i+1] != h.PathPubs[i] {
			return nil, ErrCommitmentMismatch
		}
	}
	if err := work.setSecret(treemath.LeafNode(uint32(h.Sender)), secrets[0]); err != nil {
		return nil, err
	}
	for i, p := range path {
		if err := work.setSecret(p, secrets[i+1]); err != nil {
			return nil, err
		}
	}
	return secrets[len(path)], nil
}

// applyPublic installs the sender's new commitments without any secret.
func applyPublic(work *RatchetTree, h *Handshake, path []uint32) {
	work.setPublic(treemath.LeafNode(uint32(h.Sender)), h.LeafPub)
	for i, p := range path {
		work.setPublic(p, h.PathPubs[i])
	}
}

// applyShare decrypts the path secret addressed to me at the lowest common
// ancestor with the sender and derives every secret above it.
func applyShare(work *RatchetTree, h *Handshake, path []uint32, me domain.RosterIndex) (PathSecret, error) {
	senderLeaf := treemath.LeafNode(uint32(h.Sender))
	lca := treemath.Ancestor(treemath.LeafNode(uint32(me)), senderLeaf)
	level := -1
	for i, p := range path {
		if p == lca {
			level = i
			break
		}
	}
	if level < 0 {
		return nil, ErrSenderOutOfRange
	}
	copath := work.Copath(h.Sender)

	var ps PathSecret
	for _, r := range work.Resolution(copath[level]) {
		priv, ok := work.Private(r)
		if !ok {
			continue
		}
		share, ok := findShare(h.Shares, r)
		if !ok {
			return nil, ErrMissingShare
		}
		pt, err := crypto.Open(priv, share.Ciphertext, shareAAD(h.Op, h.Sender, h.Target, r))
		if err != nil || len(pt) != SecretSize {
			return nil, ErrUndecryptableShare
		}
		ps = pt
		break
	}
	if ps == nil {
		return nil, ErrMissingShare
	}

	applyPublic(work, h, path)
	for j := level; j < len(path); j++ {
		if j > level {
			ps = NextPathSecret(ps)
		}
		_, pub, err := NodeKeyPair(ps)
		if err != nil {
			return nil, err
		}
		if pub != h.PathPubs[j] {
			return nil, ErrCommitmentMismatch
		}
		if err := work.setSecret(path[j], ps); err != nil {
			return nil, err
		}
	}
	return ps, nil
}

func findShare(shares []Share, node uint32) (Share, bool) {
	for _, s := range shares {
		if s.Node == node {
			return s, true
		}
	}
	return Share{}, false
}
