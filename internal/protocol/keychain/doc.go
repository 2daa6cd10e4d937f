// Package keychain implements the per-member application key chains derived
// from the group's application secret.
//
// Every roster index owns a symmetric chain. A ciphertext is sealed under the
// message key of the sender's current generation and every finalized
// ciphertext from that sender advances its chain by one step, so keys of
// earlier generations cannot be recovered from the current ones. A handshake
// replaces the chain keys but keeps the generation counters.
//
// Concurrency: KeyChain is NOT safe for concurrent use. Callers must
// serialise access.
package keychain
