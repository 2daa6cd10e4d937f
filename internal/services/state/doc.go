// Package state loads the participants of a transition from the enclave's
// store, runs the transition and turns its output into sealed next states.
package state
