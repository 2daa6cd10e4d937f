// Package ledger provides the append-only log enclaves publish transactions
// to and replay from.
//
// Memory is a single-process ledger that enforces the contract-side rules:
// every transaction must carry a valid enclave signature, and a lock
// parameter can be revealed by one instruction only. Handler exposes a Memory
// over HTTP and HTTP is the matching client.
package ledger
