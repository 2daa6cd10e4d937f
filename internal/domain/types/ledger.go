package types

// EntryKind tells ledger consumers how to apply an entry.
type EntryKind uint8

const (
	// EntryHandshake carries an encoded handshake.
	EntryHandshake EntryKind = iota + 1
	// EntryCiphertext carries one encrypted user state.
	EntryCiphertext
)

// String returns the entry kind name.
func (k EntryKind) String() string {
	switch k {
	case EntryHandshake:
		return "handshake"
	case EntryCiphertext:
		return "ciphertext"
	default:
		return "unknown"
	}
}

// Entry is one finalized ledger log entry. Seq is strictly increasing and
// defines the order every enclave must apply entries in.
type Entry struct {
	Seq     uint64        `json:"seq"`
	Kind    EntryKind     `json:"kind"`
	Payload []byte        `json:"payload"`
	Signer  Ed25519Public `json:"signer"`
}

// Notification reports the new state of an address the enclave was asked to
// watch. State holds the application encoding of the inner state.
type Notification struct {
	Address   UserAddress `json:"address"`
	State     []byte      `json:"state"`
	LockParam LockParam   `json:"lock_param"`
}
