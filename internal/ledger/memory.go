package ledger

import (
	"context"
	"fmt"
	"sync"

	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
	"sealedstate/internal/log"
)

// DefaultPageSize bounds Entries when the caller passes no limit.
const DefaultPageSize = 256

// ErrBadSignature is returned for a transaction whose enclave signature does
// not verify.
var ErrBadSignature = fmt.Errorf("%w: invalid enclave signature", domain.ErrCrypto)

// Memory is an in-process ledger. Entry sequence numbers start at 0.
type Memory struct {
	mu       sync.RWMutex
	entries  []domain.Entry
	consumed map[domain.LockParam]struct{}
	inited   map[domain.LockParam]struct{}
	log      log.Logger
}

// NewMemory returns an empty ledger.
func NewMemory(l log.Logger) *Memory {
	return &Memory{
		consumed: make(map[domain.LockParam]struct{}),
		inited:   make(map[domain.LockParam]struct{}),
		log:      l.Named("ledger"),
	}
}

// SubmitJoin appends the self-add handshake of a new enclave.
func (m *Memory) SubmitJoin(_ context.Context, tx domain.JoinGroupTx) (uint64, error) {
	if err := verify(tx.Signer, tx.SigningBytes(), tx.EnclaveSig); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	seq := m.append(domain.EntryHandshake, tx.Handshake, tx.Signer)
	m.log.Infow("enclave joined", "seq", seq, "signer", crypto.Fingerprint(tx.Signer[:]))
	return seq, nil
}

// SubmitHandshake appends a handshake.
func (m *Memory) SubmitHandshake(_ context.Context, tx domain.HandshakeTx) (uint64, error) {
	if err := verify(tx.Signer, tx.SigningBytes(), tx.EnclaveSig); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.append(domain.EntryHandshake, tx.Handshake, tx.Signer), nil
}

// SubmitInitState appends the first ciphertext of an address and consumes
// the address's default lock parameter. A lock parameter can be initialised
// once, and never after a transition consumed the default.
func (m *Memory) SubmitInitState(_ context.Context, tx domain.InitStateTx) (uint64, error) {
	if err := verify(tx.Signer, tx.SigningBytes(), tx.EnclaveSig); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.LockParam == tx.Prev {
		return 0, fmt.Errorf("%w: init repeats the default lock %s", domain.ErrStaleLockParam, tx.Prev)
	}
	if _, ok := m.consumed[tx.Prev]; ok {
		m.log.Debugw("rejected init of a written address", "prev_lock_param", tx.Prev)
		return 0, fmt.Errorf("%w: %s already written", domain.ErrStaleLockParam, tx.Prev)
	}
	if m.known(tx.LockParam) {
		return 0, fmt.Errorf("%w: %s already initialised", domain.ErrStaleLockParam, tx.LockParam)
	}
	m.consumed[tx.Prev] = struct{}{}
	m.inited[tx.LockParam] = struct{}{}
	return m.append(domain.EntryCiphertext, tx.Ciphertext, tx.Signer), nil
}

// SubmitInstruction appends the ciphertexts of a transition after checking
// that none of its revealed lock parameters was consumed before. The
// ciphertexts become consecutive entries in transaction order.
func (m *Memory) SubmitInstruction(_ context.Context, tx domain.InstructionTx) (uint64, error) {
	if err := verify(tx.Signer, tx.SigningBytes(), tx.EnclaveSig); err != nil {
		return 0, err
	}
	if len(tx.Ciphertexts) == 0 {
		return 0, fmt.Errorf("%w: instruction without ciphertexts", domain.ErrCodec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[domain.LockParam]struct{}, len(tx.LockParams))
	for _, lp := range tx.LockParams {
		if _, ok := m.consumed[lp]; ok {
			m.log.Debugw("rejected stale instruction", "lock_param", lp)
			return 0, fmt.Errorf("%w: %s", domain.ErrStaleLockParam, lp)
		}
		if _, ok := seen[lp]; ok {
			return 0, fmt.Errorf("%w: %s revealed twice", domain.ErrStaleLockParam, lp)
		}
		seen[lp] = struct{}{}
	}
	for lp := range seen {
		m.consumed[lp] = struct{}{}
	}

	first := uint64(len(m.entries))
	for _, ct := range tx.Ciphertexts {
		m.append(domain.EntryCiphertext, ct, tx.Signer)
	}
	return first, nil
}

// Entries returns up to limit entries starting at sequence number from.
func (m *Memory) Entries(_ context.Context, from uint64, limit int) ([]domain.Entry, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if from >= uint64(len(m.entries)) {
		return nil, nil
	}
	end := from + uint64(limit)
	if end > uint64(len(m.entries)) {
		end = uint64(len(m.entries))
	}
	out := make([]domain.Entry, end-from)
	copy(out, m.entries[from:end])
	return out, nil
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) known(lp domain.LockParam) bool {
	if _, ok := m.inited[lp]; ok {
		return true
	}
	_, ok := m.consumed[lp]
	return ok
}

func (m *Memory) append(kind domain.EntryKind, payload []byte, signer domain.Ed25519Public) uint64 {
	seq := uint64(len(m.entries))
	m.entries = append(m.entries, domain.Entry{
		Seq:     seq,
		Kind:    kind,
		Payload: append([]byte(nil), payload...),
		Signer:  signer,
	})
	return seq
}

func verify(signer domain.Ed25519Public, msg, sig []byte) error {
	if !crypto.VerifyEd25519(signer, msg, sig) {
		return ErrBadSignature
	}
	return nil
}

var _ domain.Ledger = (*Memory)(nil)
