// Package state models user states as they move between the ledger and the
// enclave.
//
// A CurrentState is what the enclave holds: the last state of an address
// that came back from the ledger. A NextState is what a transition produces
// and what gets encrypted and published. The only way from Current to Next is
// IntoNext, which hash-chains the lock parameter; the only way back is
// decoding a ciphertext the ledger finalized.
package state
