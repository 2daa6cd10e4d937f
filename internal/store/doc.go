// Package store provides persistence for the enclave.
//
// KeyedStore implementations hold user states keyed by address:
//   - Memory: the default in-enclave map
//   - Bolt: a bbolt bucket on disk
//   - Cached: an ARC read-through cache in front of another KeyedStore
//   - Sealed: encrypts values before they reach the wrapped store
//
// IdentityFileStore and KeyPackageFileStore keep the enclave's long-term keys
// in passphrase-encrypted files under the home directory. All stores are safe
// for concurrent use.
package store
