// Package enclave is the trusted core of one committee member. Context owns
// the group key, the state store and the transition runtime, and is the only
// way to reach them.
//
// Ledger ingestion and group changes take the write lock; state reads and
// transaction building take the read lock, so many instructions can be built
// while no entry is being applied.
package enclave
