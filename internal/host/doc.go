// Package host exposes a running enclave over HTTP so the CLI can reach it
// from another process.
//
// The server forwards each call body to the bridge untouched and reports the
// bridge status in the Bridge-Status header. It also lets a client trigger a
// ledger sync instead of waiting for the next tick. Client is the matching
// HTTP client; a failed call comes back as a *CallError that errors.Is
// classifies by the domain error categories.
package host
