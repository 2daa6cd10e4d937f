// Package commands defines the sealedstate CLI and wires dependencies for subcommands.
//
// Commands
//
//   - keygen         Create the enclave signing identity and, optionally, a key package
//   - fingerprint    Print the identity fingerprint
//   - serve          Run the enclave host: ledger sync plus the call endpoint
//   - join           Self-add the served enclave to the group
//   - handshake      Rotate the served enclave's path secrets
//   - add            Add the enclave holding a key package
//   - remove         Remove a roster index
//   - account        Create or show user accounts
//   - init-state     Publish the first balance of an account
//   - transfer       Move balance between accounts
//   - mint, burn     Change an account's balance
//   - balance        Read an account's balance
//   - watch          Ask the enclave to log updates of an account
//   - sync           Ingest new ledger entries now
//   - simulate       Run a committee in-process against a memory ledger
//
// # Implementation
//
// The root command loads config.toml from the home directory, applies flag
// overrides and builds the dependency graph (stores, services, ledger client)
// before any subcommand runs. Client commands reach the enclave through the
// host endpoint and submit the transactions it builds to the ledger.
package commands
