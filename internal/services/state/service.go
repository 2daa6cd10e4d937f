package state

import (
	"context"
	"errors"
	"fmt"

	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
	"sealedstate/internal/log"
	"sealedstate/internal/runtime"
	userstate "sealedstate/internal/state"
)

// ErrDefaultInit is returned for a first state equal to the default state.
var ErrDefaultInit = fmt.Errorf("%w: first state equals the default", domain.ErrTransition)

// Service resolves user states and applies transitions to them.
type Service[S userstate.State[S]] struct {
	store domain.KeyedStore
	rt    *runtime.Runtime[S]
	log   log.Logger
}

// New returns a state service over store running transitions from rt.
func New[S userstate.State[S]](store domain.KeyedStore, rt *runtime.Runtime[S], l log.Logger) *Service[S] {
	return &Service[S]{store: store, rt: rt, log: l.Named("state")}
}

// Runtime returns the transition registry.
func (s *Service[S]) Runtime() *runtime.Runtime[S] { return s.rt }

// Current returns the current state of addr, or the default state when the
// store has none.
func (s *Service[S]) Current(ctx context.Context, addr domain.UserAddress) (userstate.CurrentState[S], error) {
	b, ok, err := s.store.Get(ctx, addr)
	if err != nil {
		return userstate.CurrentState[S]{}, ioError(err)
	}
	if !ok {
		return userstate.Default[S](addr), nil
	}
	return userstate.FromStoreValue[S](addr, b)
}

// Save stores c as the current state of its address.
func (s *Service[S]) Save(ctx context.Context, c userstate.CurrentState[S]) error {
	if err := s.store.Put(ctx, c.Address(), c.StoreValue()); err != nil {
		return ioError(err)
	}
	s.log.Debugw("stored state", "address", c.Address(), "lock_param", c.LockParam())
	return nil
}

// FromAccessRight verifies ar and loads the caller and target as the
// participants of a transition. A caller equal to target is one participant.
func (s *Service[S]) FromAccessRight(ctx context.Context, ar domain.AccessRight, target domain.UserAddress) (*Participants[S], error) {
	caller, err := crypto.VerifyAccessRight(ar)
	if err != nil {
		return nil, err
	}
	addrs := []domain.UserAddress{caller}
	if target != caller {
		addrs = append(addrs, target)
	}
	p := &Participants[S]{states: make([]userstate.CurrentState[S], 0, len(addrs))}
	for _, a := range addrs {
		c, err := s.Current(ctx, a)
		if err != nil {
			return nil, err
		}
		p.states = append(p.states, c)
	}
	return p, nil
}

// Transition is the sealed output of one applied call.
type Transition struct {
	Ciphertexts [][]byte
	LockParams  []domain.LockParam
}

// Apply runs kind on the participants and seals every next state. On error
// nothing is produced and the participants are unchanged.
func (s *Service[S]) Apply(p *Participants[S], kind runtime.CallKind, params S, enc userstate.Encrypter) (*Transition, error) {
	inners := make([]S, len(p.states))
	for i, c := range p.states {
		inners[i] = c.Inner()
	}
	out, err := s.rt.Call(kind, params, inners)
	if err != nil {
		return nil, err
	}

	next := make([]userstate.NextState[S], len(out))
	for i, c := range p.states {
		next[i] = c.IntoNext(out[i])
	}
	cts, err := userstate.EncryptAll(enc, next)
	if err != nil {
		return nil, err
	}
	name, _ := s.rt.Name(kind)
	s.log.Debugw("applied transition", "call", name, "participants", len(next))
	return &Transition{Ciphertexts: cts, LockParams: p.RevealLockParams()}, nil
}

// Initial is the sealed first state of an address.
type Initial struct {
	Ciphertext []byte
	LockParam  domain.LockParam
	// Prev is the default lock parameter the first state replaces.
	Prev domain.LockParam
}

// Init seals the first state of addr. It refuses an address the store
// already holds, and a first state equal to the default one.
func (s *Service[S]) Init(ctx context.Context, addr domain.UserAddress, inner S, enc userstate.Encrypter) (*Initial, error) {
	_, ok, err := s.store.Get(ctx, addr)
	if err != nil {
		return nil, ioError(err)
	}
	if ok {
		return nil, fmt.Errorf("%w: %s already has state", domain.ErrStaleLockParam, addr)
	}
	def := userstate.Default[S](addr)
	if inner == def.Inner() {
		return nil, ErrDefaultInit
	}
	next := userstate.Init(addr, inner)
	ct, err := next.Encrypt(enc)
	if err != nil {
		return nil, err
	}
	return &Initial{Ciphertext: ct, LockParam: next.LockParam(), Prev: def.LockParam()}, nil
}

// Participants are the current states a transition reads, caller first.
type Participants[S userstate.State[S]] struct {
	states []userstate.CurrentState[S]
}

// Caller returns the caller's current state.
func (p *Participants[S]) Caller() userstate.CurrentState[S] { return p.states[0] }

// States returns the participants' current states.
func (p *Participants[S]) States() []userstate.CurrentState[S] {
	return append([]userstate.CurrentState[S](nil), p.states...)
}

// RevealLockParams returns the lock parameters the transition consumes.
func (p *Participants[S]) RevealLockParams() []domain.LockParam {
	out := make([]domain.LockParam, len(p.states))
	for i, c := range p.states {
		out[i] = c.LockParam()
	}
	return out
}

func ioError(err error) error {
	if errors.Is(err, domain.ErrIO) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrIO, err)
}
