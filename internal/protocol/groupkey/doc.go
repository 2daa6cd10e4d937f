// Package groupkey ties the TreeKEM group state to the application key chain.
// Every processed handshake re-derives the chains from the new application
// secret; ciphertexts are sealed and opened under the chain of their sender.
//
// Concurrency: GroupKey is NOT safe for concurrent use.
package groupkey
