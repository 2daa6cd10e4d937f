// Command devledger serves an in-memory ledger over HTTP for local
// committees. Entries live only as long as the process.
package main
