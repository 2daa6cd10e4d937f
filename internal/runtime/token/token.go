// Package token is a fungible token on confidential balances, the reference
// application of the state runtime.
package token

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"sealedstate/internal/domain"
	"sealedstate/internal/runtime"
)

// BalanceSize is the encoded size of a Balance.
const BalanceSize = 8

// Call kinds of the token runtime.
const (
	CallTransfer runtime.CallKind = iota + 1
	CallMint
	CallBurn
)

var (
	ErrInsufficientBalance = fmt.Errorf("%w: insufficient balance", domain.ErrTransition)
	ErrOverflow            = fmt.Errorf("%w: balance overflow", domain.ErrTransition)
	ErrParticipants        = fmt.Errorf("%w: wrong number of participants", domain.ErrTransition)
)

// Balance is an account balance, encoded as 8 little-endian bytes.
type Balance uint64

// Marshal encodes the balance.
func (b Balance) Marshal() []byte {
	out := make([]byte, BalanceSize)
	binary.LittleEndian.PutUint64(out, uint64(b))
	return out
}

// Unmarshal decodes an encoded balance.
func (Balance) Unmarshal(p []byte) (Balance, error) {
	if len(p) != BalanceSize {
		return 0, fmt.Errorf("balance: want %d bytes, got %d", BalanceSize, len(p))
	}
	return Balance(binary.LittleEndian.Uint64(p)), nil
}

// String returns the decimal amount.
func (b Balance) String() string { return strconv.FormatUint(uint64(b), 10) }

// ParseBalance parses a decimal amount.
func ParseBalance(s string) (Balance, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return Balance(v), nil
}

// Transfer moves amount from states[0] to states[1]. A single participant is
// a transfer to oneself and only checks the balance.
func Transfer(amount Balance, states []Balance) ([]Balance, error) {
	switch len(states) {
	case 1:
		if states[0] < amount {
			return nil, ErrInsufficientBalance
		}
		return states, nil
	case 2:
		from, to := states[0], states[1]
		if from < amount {
			return nil, ErrInsufficientBalance
		}
		if to > math.MaxUint64-amount {
			return nil, ErrOverflow
		}
		return []Balance{from - amount, to + amount}, nil
	default:
		return nil, ErrParticipants
	}
}

// Mint credits amount to the caller.
func Mint(amount Balance, states []Balance) ([]Balance, error) {
	if len(states) == 0 {
		return nil, ErrParticipants
	}
	if states[0] > math.MaxUint64-amount {
		return nil, ErrOverflow
	}
	states[0] += amount
	return states, nil
}

// Burn debits amount from the caller.
func Burn(amount Balance, states []Balance) ([]Balance, error) {
	if len(states) == 0 {
		return nil, ErrParticipants
	}
	if states[0] < amount {
		return nil, ErrInsufficientBalance
	}
	states[0] -= amount
	return states, nil
}

// NewRuntime returns a runtime with the token transitions registered.
func NewRuntime() *runtime.Runtime[Balance] {
	rt := runtime.New[Balance]()
	_ = rt.Register(CallTransfer, "transfer", Transfer)
	_ = rt.Register(CallMint, "mint", Mint)
	_ = rt.Register(CallBurn, "burn", Burn)
	return rt
}
