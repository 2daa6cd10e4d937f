package state

import (
	"crypto/sha256"
	"fmt"

	"sealedstate/internal/domain"
)

// State is the constraint on application state values. The zero value of S
// is the state of an address nobody has written yet.
type State[S any] interface {
	comparable
	Marshal() []byte
	Unmarshal(b []byte) (S, error)
}

// InitLockParam returns the lock parameter of the first state of addr.
func InitLockParam[S State[S]](addr domain.UserAddress, s S) domain.LockParam {
	h := sha256.New()
	h.Write(addr[:])
	h.Write(s.Marshal())
	var out domain.LockParam
	copy(out[:], h.Sum(nil))
	return out
}

// NextLockParam chains prev into the lock parameter of the update s.
func NextLockParam[S State[S]](addr domain.UserAddress, s S, prev domain.LockParam) domain.LockParam {
	h := sha256.New()
	h.Write(addr[:])
	h.Write(s.Marshal())
	h.Write(prev[:])
	var out domain.LockParam
	copy(out[:], h.Sum(nil))
	return out
}

// CurrentState is the enclave's copy of an address's latest finalized state.
type CurrentState[S State[S]] struct {
	addr  domain.UserAddress
	inner S
	lock  domain.LockParam
}

// Default is the state of an address without any finalized state.
func Default[S State[S]](addr domain.UserAddress) CurrentState[S] {
	var zero S
	return CurrentState[S]{addr: addr, inner: zero, lock: InitLockParam(addr, zero)}
}

// Address returns the owner of the state.
func (c CurrentState[S]) Address() domain.UserAddress { return c.addr }

// Inner returns the application state.
func (c CurrentState[S]) Inner() S { return c.inner }

// LockParam returns the lock parameter the next transition must reveal.
func (c CurrentState[S]) LockParam() domain.LockParam { return c.lock }

// IntoNext turns the current state into its successor holding update.
func (c CurrentState[S]) IntoNext(update S) NextState[S] {
	return NextState[S]{addr: c.addr, inner: update, lock: NextLockParam(c.addr, update, c.lock)}
}

// StoreValue encodes the state for a KeyedStore: inner ‖ lock.
func (c CurrentState[S]) StoreValue() []byte {
	return append(c.inner.Marshal(), c.lock[:]...)
}

// FromStoreValue decodes a StoreValue output stored under addr.
func FromStoreValue[S State[S]](addr domain.UserAddress, b []byte) (CurrentState[S], error) {
	if len(b) < domain.LockParamSize {
		return CurrentState[S]{}, fmt.Errorf("%w: store value too short", domain.ErrCodec)
	}
	split := len(b) - domain.LockParamSize
	inner, err := unmarshalInner[S](b[:split])
	if err != nil {
		return CurrentState[S]{}, err
	}
	c := CurrentState[S]{addr: addr, inner: inner}
	copy(c.lock[:], b[split:])
	return c, nil
}

// NextState is a state produced by a transition and not yet finalized.
type NextState[S State[S]] struct {
	addr  domain.UserAddress
	inner S
	lock  domain.LockParam
}

// Init is the first state of addr.
func Init[S State[S]](addr domain.UserAddress, s S) NextState[S] {
	return NextState[S]{addr: addr, inner: s, lock: InitLockParam(addr, s)}
}

// Address returns the owner of the state.
func (n NextState[S]) Address() domain.UserAddress { return n.addr }

// Inner returns the application state.
func (n NextState[S]) Inner() S { return n.inner }

// LockParam returns the lock parameter this state will be current under.
func (n NextState[S]) LockParam() domain.LockParam { return n.lock }

// Marshal encodes the state as address ‖ inner ‖ lock.
func (n NextState[S]) Marshal() []byte {
	out := make([]byte, 0, domain.AddressSize+domain.LockParamSize+8)
	out = append(out, n.addr[:]...)
	out = append(out, n.inner.Marshal()...)
	return append(out, n.lock[:]...)
}

// DecodeCurrent decodes a NextState.Marshal output taken from a finalized
// ciphertext. It becomes the current state of its address.
func DecodeCurrent[S State[S]](b []byte) (CurrentState[S], error) {
	if len(b) < domain.AddressSize+domain.LockParamSize {
		return CurrentState[S]{}, fmt.Errorf("%w: user state too short", domain.ErrCodec)
	}
	var addr domain.UserAddress
	copy(addr[:], b[:domain.AddressSize])
	return FromStoreValue[S](addr, b[domain.AddressSize:])
}

func unmarshalInner[S State[S]](b []byte) (S, error) {
	var zero S
	s, err := zero.Unmarshal(b)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", domain.ErrCodec, err)
	}
	return s, nil
}
