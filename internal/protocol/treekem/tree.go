package treekem

import (
	"sealedstate/internal/domain"
	"sealedstate/internal/protocol/treemath"
)

// node is one slot of the ratchet tree. A blank node has no key. A node whose
// secret is known holds the path secret and the derived private key; other
// nodes only hold the public commitment.
type node struct {
	present bool
	pub     domain.X25519Public
	priv    *domain.X25519Private
	secret  PathSecret
}

func (n node) clone() node {
	out := node{present: n.present, pub: n.pub}
	if n.priv != nil {
		p := *n.priv
		out.priv = &p
	}
	if n.secret != nil {
		out.secret = append(PathSecret(nil), n.secret...)
	}
	return out
}

// RatchetTree is an array-backed binary tree of node keys. Capacity is a
// power of two and doubles when a leaf is added to a full tree; node indices
// never move.
type RatchetTree struct {
	leaves uint32
	nodes  []node
}

// NewRatchetTree returns an empty tree.
func NewRatchetTree() *RatchetTree {
	return &RatchetTree{nodes: make([]node, 1)}
}

// Size returns the number of leaf slots handed out, including blanked ones.
func (t *RatchetTree) Size() uint32 { return t.leaves }

// Capacity returns the number of leaves the current array can hold.
func (t *RatchetTree) Capacity() uint32 { return (uint32(len(t.nodes)) + 1) / 2 }

// Root returns the root node index.
func (t *RatchetTree) Root() uint32 { return treemath.Root(t.Capacity()) }

// Clone returns a deep copy.
func (t *RatchetTree) Clone() *RatchetTree {
	out := &RatchetTree{leaves: t.leaves, nodes: make([]node, len(t.nodes))}
	for i, n := range t.nodes {
		out.nodes[i] = n.clone()
	}
	return out
}

// DirectPath returns the ancestors of leaf up to the root.
func (t *RatchetTree) DirectPath(leaf domain.RosterIndex) []uint32 {
	return treemath.DirectPath(treemath.LeafNode(uint32(leaf)), t.Capacity())
}

// Copath returns the copath of leaf, aligned with DirectPath.
func (t *RatchetTree) Copath(leaf domain.RosterIndex) []uint32 {
	return treemath.Copath(treemath.LeafNode(uint32(leaf)), t.Capacity())
}

// IsBlank reports whether node x holds no key.
func (t *RatchetTree) IsBlank(x uint32) bool {
	return int(x) >= len(t.nodes) || !t.nodes[x].present
}

// LeafPresent reports whether leaf i is an active member.
func (t *RatchetTree) LeafPresent(i domain.RosterIndex) bool {
	return uint32(i) < t.leaves && !t.IsBlank(treemath.LeafNode(uint32(i)))
}

// Public returns the public key of node x.
func (t *RatchetTree) Public(x uint32) (domain.X25519Public, bool) {
	if t.IsBlank(x) {
		return domain.X25519Public{}, false
	}
	return t.nodes[x].pub, true
}

// Private returns the private key of node x when it is known.
func (t *RatchetTree) Private(x uint32) (domain.X25519Private, bool) {
	if t.IsBlank(x) || t.nodes[x].priv == nil {
		return domain.X25519Private{}, false
	}
	return *t.nodes[x].priv, true
}

// Resolution returns the minimal set of non-blank nodes covering the subtree
// rooted at x: x itself when present, nothing for a blank leaf, and the
// resolutions of both children otherwise.
func (t *RatchetTree) Resolution(x uint32) []uint32 {
	if !t.IsBlank(x) {
		return []uint32{x}
	}
	if treemath.IsLeaf(x) {
		return nil
	}
	return append(t.Resolution(treemath.Left(x)), t.Resolution(treemath.Right(x))...)
}

// AddLeaf appends a leaf holding pub, doubling the capacity when the tree is
// full, and blanks the new leaf's direct path.
func (t *RatchetTree) AddLeaf(pub domain.X25519Public) domain.RosterIndex {
	idx := t.leaves
	if idx >= t.Capacity() {
		grown := make([]node, treemath.NodeWidth(2*t.Capacity()))
		copy(grown, t.nodes)
		t.nodes = grown
	}
	t.leaves++
	x := treemath.LeafNode(idx)
	t.nodes[x] = node{present: true, pub: pub}
	for _, p := range treemath.DirectPath(x, t.Capacity()) {
		t.blank(p)
	}
	return domain.RosterIndex(idx)
}

// BlankPath blanks leaf i and every node on its direct path.
func (t *RatchetTree) BlankPath(i domain.RosterIndex) {
	x := treemath.LeafNode(uint32(i))
	t.blank(x)
	for _, p := range treemath.DirectPath(x, t.Capacity()) {
		t.blank(p)
	}
}

// setPublic stores a public commitment for x and forgets any secret.
func (t *RatchetTree) setPublic(x uint32, pub domain.X25519Public) {
	t.blank(x)
	t.nodes[x] = node{present: true, pub: pub}
}

// setSecret stores path secret ps for x together with its key pair.
func (t *RatchetTree) setSecret(x uint32, ps PathSecret) error {
	priv, pub, err := NodeKeyPair(ps)
	if err != nil {
		return err
	}
	t.blank(x)
	t.nodes[x] = node{present: true, pub: pub, priv: &priv, secret: append(PathSecret(nil), ps...)}
	return nil
}

// setPrivate stores a key pair that was not derived from a path secret, such
// as a key package init key.
func (t *RatchetTree) setPrivate(x uint32, priv domain.X25519Private, pub domain.X25519Public) {
	t.blank(x)
	t.nodes[x] = node{present: true, pub: pub, priv: &priv}
}

// forgetSecrets drops every private key and path secret in the tree.
func (t *RatchetTree) forgetSecrets() {
	for i := range t.nodes {
		if t.nodes[i].priv != nil {
			wipeNode(&t.nodes[i])
		}
	}
}

func (t *RatchetTree) blank(x uint32) {
	wipeNode(&t.nodes[x])
	t.nodes[x] = node{}
}

func wipeNode(n *node) {
	if n.priv != nil {
		for i := range n.priv {
			n.priv[i] = 0
		}
		n.priv = nil
	}
	for i := range n.secret {
		n.secret[i] = 0
	}
	n.secret = nil
}
