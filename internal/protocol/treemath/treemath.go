package treemath

import "math/bits"

// Level returns the height of node x above the leaves. Leaves are level 0.
func Level(x uint32) uint32 {
	return uint32(bits.TrailingZeros32(^x))
}

// IsLeaf reports whether x is a leaf node.
func IsLeaf(x uint32) bool { return x&1 == 0 }

// LeafNode returns the node index of leaf i.
func LeafNode(i uint32) uint32 { return 2 * i }

// LeafIndex returns the leaf index of leaf node x.
func LeafIndex(x uint32) uint32 { return x >> 1 }

// CapacityFor returns the smallest power of two that holds n leaves, min 1.
func CapacityFor(n uint32) uint32 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len32(n-1)
}

// Root returns the root node of a tree with capacity leaves.
func Root(capacity uint32) uint32 { return capacity - 1 }

// NodeWidth returns the number of nodes in a tree with capacity leaves.
func NodeWidth(capacity uint32) uint32 { return 2*capacity - 1 }

// Left returns the left child of intermediate node x. Leaves are their own child.
func Left(x uint32) uint32 {
	k := Level(x)
	if k == 0 {
		return x
	}
	return x ^ (1 << (k - 1))
}

// Right returns the right child of intermediate node x in a complete tree.
func Right(x uint32) uint32 {
	k := Level(x)
	if k == 0 {
		return x
	}
	return x ^ (3 << (k - 1))
}

// Parent returns the parent of x. The result is only meaningful below the root.
func Parent(x uint32) uint32 {
	k := Level(x)
	b := (x >> (k + 1)) & 1
	return (x | (1 << k)) ^ (b << (k + 1))
}

// Sibling returns the other child of x's parent.
func Sibling(x uint32) uint32 {
	p := Parent(x)
	if x < p {
		return Right(p)
	}
	return Left(p)
}

// DirectPath returns the ancestors of node x from its parent up to the root of
// a tree with capacity leaves. The root's direct path is empty.
func DirectPath(x, capacity uint32) []uint32 {
	r := Root(capacity)
	var out []uint32
	for x != r {
		x = Parent(x)
		out = append(out, x)
	}
	return out
}

// Copath returns the siblings of x and of every direct path node below the
// root, ordered from the bottom up. Copath(x)[i] is the sibling of the child of
// DirectPath(x)[i] that lies on the path.
func Copath(x, capacity uint32) []uint32 {
	r := Root(capacity)
	var out []uint32
	for x != r {
		out = append(out, Sibling(x))
		x = Parent(x)
	}
	return out
}

// Ancestor returns the lowest common ancestor of nodes x and y.
func Ancestor(x, y uint32) uint32 {
	if x == y {
		return x
	}
	k := uint32(0)
	for x != y {
		x >>= 1
		y >>= 1
		k++
	}
	return (x << k) + (1 << (k - 1)) - 1
}

// InSubtree reports whether node x lies in the subtree rooted at node r.
func InSubtree(x, r uint32) bool {
	k := Level(r)
	lo := r - (1 << k) + 1
	hi := r + (1 << k) - 1
	return x >= lo && x <= hi
}
