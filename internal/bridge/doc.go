// Package bridge is the synchronous call interface into an enclave. Every
// operation takes a hexjson request and returns a hexjson response together
// with a Status; failures are reported through the Status and an error body,
// never by aborting.
package bridge
