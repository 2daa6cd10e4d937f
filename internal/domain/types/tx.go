package types

import "encoding/binary"

// InitStateTx publishes the first ciphertext of an address. Prev is the lock
// parameter of the address's default state: the ledger consumes it, so an
// init lands at most once and only before any transition touched the address.
type InitStateTx struct {
	Ciphertext []byte        `json:"ciphertext"`
	LockParam  LockParam     `json:"lock_param"`
	Prev       LockParam     `json:"prev_lock_param"`
	Signer     Ed25519Public `json:"signer"`
	EnclaveSig []byte        `json:"enclave_sig"`
}

// SigningBytes returns the bytes covered by EnclaveSig.
func (tx InitStateTx) SigningBytes() []byte {
	out := append([]byte("init|"), tx.Prev[:]...)
	out = append(out, tx.LockParam[:]...)
	return append(out, tx.Ciphertext...)
}

// InstructionTx publishes the next ciphertexts of a state transition together
// with the lock parameters the transition was computed from.
type InstructionTx struct {
	CallKind    uint32        `json:"call_kind"`
	Ciphertexts [][]byte      `json:"ciphertexts"`
	LockParams  []LockParam   `json:"lock_params"`
	Signer      Ed25519Public `json:"signer"`
	EnclaveSig  []byte        `json:"enclave_sig"`
}

// SigningBytes returns the bytes covered by EnclaveSig.
func (tx InstructionTx) SigningBytes() []byte {
	out := []byte("instruction|")
	out = binary.BigEndian.AppendUint32(out, tx.CallKind)
	for _, l := range tx.LockParams {
		out = append(out, l[:]...)
	}
	for _, c := range tx.Ciphertexts {
		out = binary.BigEndian.AppendUint32(out, uint32(len(c)))
		out = append(out, c...)
	}
	return out
}

// HandshakeTx publishes a key rotation, Add or Remove handshake.
type HandshakeTx struct {
	Handshake  []byte        `json:"handshake"`
	Signer     Ed25519Public `json:"signer"`
	EnclaveSig []byte        `json:"enclave_sig"`
}

// SigningBytes returns the bytes covered by EnclaveSig.
func (tx HandshakeTx) SigningBytes() []byte {
	return append([]byte("handshake|"), tx.Handshake...)
}

// JoinGroupTx publishes the self-add handshake of a new enclave. In a real
// deployment it also carries the attestation report binding Signer to the
// enclave measurement.
type JoinGroupTx struct {
	Handshake  []byte        `json:"handshake"`
	Signer     Ed25519Public `json:"signer"`
	EnclaveSig []byte        `json:"enclave_sig"`
}

// SigningBytes returns the bytes covered by EnclaveSig.
func (tx JoinGroupTx) SigningBytes() []byte {
	return append([]byte("join|"), tx.Handshake...)
}
