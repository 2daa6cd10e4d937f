// Package app wires the enclave host for the CLI.
//
// It loads Config from TOML, builds the stores, ledger client and services it
// names, and exposes them via the Wire struct for commands to use.
package app
