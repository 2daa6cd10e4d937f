// Package treekem implements the ratchet tree group key agreement that lets a
// changing committee of enclaves agree on one root secret without putting it
// on the wire.
//
// Every handshake refreshes the sender's leaf and direct path. The new path
// secrets are sealed (ECIES over X25519) to the resolution of each copath
// node, so every other member can open exactly one share and derive the
// secrets from the lowest common ancestor up to the root. Adds grow the tree
// by doubling its capacity, removals blank the leaf and its path; leaf
// indices never change.
//
// Handshakes carry no epoch. Members must process them once each, in ledger
// order. A member that processes them out of order silently diverges.
//
// Concurrency: GroupState is NOT safe for concurrent use. Callers must
// serialise access.
package treekem
