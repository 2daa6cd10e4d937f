// Package treemath implements index arithmetic for an array-backed complete
// binary tree.
//
// Leaf i lives at node 2i and intermediate nodes sit between their subtrees,
// so a tree holding a power of two leaves has its root at capacity-1. Doubling
// the capacity keeps every existing index in place: the old root becomes the
// left child of the new one. The package holds no state.
package treemath
