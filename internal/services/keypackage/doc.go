// Package keypackage manages the X25519 init key an existing member uses to
// add this enclave to the group.
package keypackage
