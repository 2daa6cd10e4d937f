// Package runtime is the registry of state transition functions an enclave
// can run on behalf of users.
package runtime

import (
	"errors"
	"fmt"
	"sort"

	"sealedstate/internal/domain"
	"sealedstate/internal/state"
)

// CallKind selects a registered transition.
type CallKind uint32

// TransitionFunc computes the next states of the participants from their
// current states. It must return exactly one state per input state and must
// not keep references to states.
type TransitionFunc[S state.State[S]] func(params S, states []S) ([]S, error)

type call[S state.State[S]] struct {
	name string
	fn   TransitionFunc[S]
}

// Runtime maps call kinds to transitions.
type Runtime[S state.State[S]] struct {
	calls map[CallKind]call[S]
}

// New returns an empty runtime.
func New[S state.State[S]]() *Runtime[S] {
	return &Runtime[S]{calls: make(map[CallKind]call[S])}
}

// Register adds fn under kind.
func (r *Runtime[S]) Register(kind CallKind, name string, fn TransitionFunc[S]) error {
	if _, ok := r.calls[kind]; ok {
		return fmt.Errorf("call kind %d already registered", kind)
	}
	r.calls[kind] = call[S]{name: name, fn: fn}
	return nil
}

// Name returns the name registered for kind.
func (r *Runtime[S]) Name(kind CallKind) (string, bool) {
	c, ok := r.calls[kind]
	return c.name, ok
}

// Kind looks a call kind up by name.
func (r *Runtime[S]) Kind(name string) (CallKind, bool) {
	for k, c := range r.calls {
		if c.name == name {
			return k, true
		}
	}
	return 0, false
}

// Kinds returns the registered kinds in ascending order.
func (r *Runtime[S]) Kinds() []CallKind {
	out := make([]CallKind, 0, len(r.calls))
	for k := range r.calls {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Call runs the transition registered under kind on a copy of states.
func (r *Runtime[S]) Call(kind CallKind, params S, states []S) ([]S, error) {
	c, ok := r.calls[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown call kind %d", domain.ErrTransition, kind)
	}
	in := append([]S(nil), states...)
	out, err := c.fn(params, in)
	if err != nil {
		if !errors.Is(err, domain.ErrTransition) {
			err = fmt.Errorf("%w: %s: %v", domain.ErrTransition, c.name, err)
		}
		return nil, err
	}
	if len(out) != len(states) {
		return nil, fmt.Errorf("%w: %s returned %d states for %d participants",
			domain.ErrTransition, c.name, len(out), len(states))
	}
	return out, nil
}
